package providers

import (
	"context"
	"testing"

	"github.com/poiesic/fundlens/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectEmbedder(t *testing.T) {
	t.Run("local without credential", func(t *testing.T) {
		embedder, err := SelectEmbedder(ai.DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, 384, embedder.Dimensions())
	})

	t.Run("remote with credential", func(t *testing.T) {
		embedder, err := SelectEmbedder(ai.NewConfig(ai.WithOpenAIAPIKey("sk-test")))
		require.NoError(t, err)
		assert.Equal(t, 1536, embedder.Dimensions())
	})
}

func TestEmbeddingDimensions(t *testing.T) {
	assert.Equal(t, 384, EmbeddingDimensions(ai.DefaultConfig()))
	assert.Equal(t, 1536, EmbeddingDimensions(ai.NewConfig(ai.WithOpenAIAPIKey("sk-test"))))
}

func TestSelectChatModel(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ai.ConfigOption
		wantErr error
	}{
		{
			name:    "groq without key",
			opts:    []ai.ConfigOption{ai.WithLLMProvider(ai.ProviderGroq)},
			wantErr: ai.ErrLLMNotConfigured,
		},
		{
			name: "groq with key",
			opts: []ai.ConfigOption{ai.WithLLMProvider(ai.ProviderGroq), ai.WithGroq("gsk-test", "")},
		},
		{
			name:    "openai without key",
			opts:    []ai.ConfigOption{ai.WithLLMProvider(ai.ProviderOpenAI)},
			wantErr: ai.ErrLLMNotConfigured,
		},
		{
			name: "openai with key",
			opts: []ai.ConfigOption{ai.WithLLMProvider(ai.ProviderOpenAI), ai.WithOpenAIAPIKey("sk-test")},
		},
		{
			name: "ollama",
			opts: []ai.ConfigOption{ai.WithLLMProvider(ai.ProviderOllama)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := SelectChatModel(ai.NewConfig(tt.opts...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, model)
		})
	}
}

func TestRegister(t *testing.T) {
	registry := ai.NewRegistry()
	defer registry.Close()

	cfg := ai.NewConfig(ai.WithLLMProvider(ai.ProviderGroq))
	require.NoError(t, Register(registry, cfg))

	embedder, release, err := registry.Embedder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, embedder.Dimensions())
	release()

	// The chat model is only built on first use, so the missing credential
	// surfaces here rather than at registration.
	_, _, err = registry.ChatModel(context.Background())
	assert.ErrorIs(t, err, ai.ErrProviderInit)
	assert.ErrorIs(t, err, ai.ErrLLMNotConfigured)

	assert.Error(t, Register(ai.NewRegistry(), ai.NewConfig(ai.WithLLMProvider("bogus"))))
}
