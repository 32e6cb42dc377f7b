// Package ollama provides local AI services served by Ollama.
//
// The local embedder is the fallback when no remote embedding credential is
// configured; the chat model serves LLMProvider "ollama".
package ollama

import (
	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/ai/langchain"
	"github.com/tmc/langchaingo/llms/ollama"
)

// NewEmbedder creates the local embedding provider.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.OllamaHost),
		ollama.WithModel(config.LocalEmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	return langchain.NewEmbedder(client, config.LocalEmbeddingDimensions, "ollama-embedder")
}

// NewChatModel creates a local chat model.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.OllamaHost),
		ollama.WithModel(config.OllamaModel),
	)
	if err != nil {
		return nil, err
	}
	return langchain.NewChatModel(client, "ollama-chat"), nil
}
