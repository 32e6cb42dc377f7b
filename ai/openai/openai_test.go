package openai

import (
	"testing"

	"github.com/poiesic/fundlens/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewEmbedder(ai.DefaultConfig())
		assert.ErrorIs(t, err, ErrAPIKeyRequired)
	})

	t.Run("reports configured dimensions", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithOpenAIAPIKey("sk-test"),
			ai.WithOpenAIBaseURL("http://localhost:9999/v1"),
		)
		embedder, err := NewEmbedder(cfg)
		require.NoError(t, err)
		assert.Equal(t, 1536, embedder.Dimensions())
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithOpenAIAPIKey("sk-test"), ai.WithOpenAIEmbeddingModel("", 0))
		_, err := NewEmbedder(cfg)
		assert.Error(t, err)
	})
}

func TestNewChatModels(t *testing.T) {
	t.Run("openai requires api key", func(t *testing.T) {
		_, err := NewChatModel(ai.DefaultConfig())
		assert.ErrorIs(t, err, ErrAPIKeyRequired)
	})

	t.Run("groq requires api key", func(t *testing.T) {
		_, err := NewGroqChatModel(ai.DefaultConfig())
		assert.ErrorIs(t, err, ErrAPIKeyRequired)
	})

	t.Run("construction does not call the network", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithOpenAIAPIKey("sk-test"),
			ai.WithGroq("gsk-test", "llama-3.3-70b-versatile"),
		)

		chat, err := NewChatModel(cfg)
		require.NoError(t, err)
		assert.NotNil(t, chat)

		groq, err := NewGroqChatModel(cfg)
		require.NoError(t, err)
		assert.NotNil(t, groq)
	})
}
