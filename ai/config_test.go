package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAIEmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAIEmbeddingDimensions)
	assert.Equal(t, "all-minilm", cfg.LocalEmbeddingModel)
	assert.Equal(t, 384, cfg.LocalEmbeddingDimensions)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, DefaultGroqBaseURL, cfg.GroqBaseURL)
	assert.False(t, cfg.RemoteEmbeddings())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with openai key", func(t *testing.T) {
		cfg := NewConfig(WithOpenAIAPIKey("sk-test"))

		assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		assert.True(t, cfg.RemoteEmbeddings())
	})

	t.Run("with custom embedding models", func(t *testing.T) {
		cfg := NewConfig(
			WithOpenAIEmbeddingModel("text-embedding-3-large", 3072),
			WithLocalEmbeddingModel("nomic-embed-text", 768),
		)

		assert.Equal(t, "text-embedding-3-large", cfg.OpenAIEmbeddingModel)
		assert.Equal(t, 3072, cfg.OpenAIEmbeddingDimensions)
		assert.Equal(t, "nomic-embed-text", cfg.LocalEmbeddingModel)
		assert.Equal(t, 768, cfg.LocalEmbeddingDimensions)
	})

	t.Run("with groq keeps default model when empty", func(t *testing.T) {
		cfg := NewConfig(WithGroq("gsk-test", ""))

		assert.Equal(t, "gsk-test", cfg.GroqAPIKey)
		assert.Equal(t, "llama-3.1-8b-instant", cfg.GroqModel)
	})

	t.Run("with llm provider and models", func(t *testing.T) {
		cfg := NewConfig(
			WithLLMProvider(ProviderOllama),
			WithOllamaModel("qwen2.5:3b"),
			WithOllamaHost("http://gpu-box:11434"),
			WithOpenAIModel("gpt-4o"),
			WithOpenAIBaseURL("http://proxy/v1"),
		)

		assert.Equal(t, ProviderOllama, cfg.LLMProvider)
		assert.Equal(t, "qwen2.5:3b", cfg.OllamaModel)
		assert.Equal(t, "http://gpu-box:11434", cfg.OllamaHost)
		assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
		assert.Equal(t, "http://proxy/v1", cfg.OpenAIBaseURL)
	})
}

func TestConfig_Normalize(t *testing.T) {
	cfg := NewConfig(
		WithLLMProvider("  OpenAI "),
		WithOllamaHost("http://localhost:11434/"),
		WithOpenAIBaseURL("https://api.openai.com/v1/"),
	)
	cfg.GroqBaseURL = ""

	cfg.Normalize()

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, DefaultGroqBaseURL, cfg.GroqBaseURL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing ollama host",
			mutate:  func(c *Config) { c.OllamaHost = "" },
			wantErr: "OllamaHost is required",
		},
		{
			name:    "missing local embedding model",
			mutate:  func(c *Config) { c.LocalEmbeddingModel = "" },
			wantErr: "LocalEmbeddingModel is required",
		},
		{
			name:    "zero local dimensions",
			mutate:  func(c *Config) { c.LocalEmbeddingDimensions = 0 },
			wantErr: "LocalEmbeddingDimensions must be positive",
		},
		{
			name: "remote embeddings need a model",
			mutate: func(c *Config) {
				c.OpenAIAPIKey = "sk-test"
				c.OpenAIEmbeddingModel = ""
			},
			wantErr: "OpenAIEmbeddingModel is required",
		},
		{
			name: "remote embeddings need dimensions",
			mutate: func(c *Config) {
				c.OpenAIAPIKey = "sk-test"
				c.OpenAIEmbeddingDimensions = -1
			},
			wantErr: "OpenAIEmbeddingDimensions must be positive",
		},
		{
			name:    "unknown llm provider",
			mutate:  func(c *Config) { c.LLMProvider = "anthropic-local" },
			wantErr: "unknown LLMProvider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
