// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package providers holds the provider selection policy and registers it
// with an ai.Registry.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/ai/ollama"
	"github.com/poiesic/fundlens/ai/openai"
)

// Register validates config and registers the embedding and LLM factories.
// Nothing is constructed until first use.
func Register(registry *ai.Registry, config *ai.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	// Copy so later mutation by the caller cannot change the selection.
	cfg := *config

	if err := registry.Register(ai.EmbedderKey, func(ctx context.Context) (any, error) {
		return SelectEmbedder(&cfg)
	}); err != nil {
		return err
	}
	return registry.Register(ai.ChatModelKey, func(ctx context.Context) (any, error) {
		return SelectChatModel(&cfg)
	})
}

// SelectEmbedder prefers the remote embedder when its credential is set and
// falls back to the local one otherwise or when remote construction fails.
func SelectEmbedder(config *ai.Config) (ai.Embedder, error) {
	logger := slog.Default().With("component", "provider-selection")

	if config.RemoteEmbeddings() {
		embedder, err := openai.NewEmbedder(config)
		if err == nil {
			logger.Info("using remote embeddings", "model", config.OpenAIEmbeddingModel, "dimensions", embedder.Dimensions())
			return embedder, nil
		}
		logger.Warn("remote embeddings unavailable, falling back to local", "err", err)
	}

	embedder, err := ollama.NewEmbedder(config)
	if err != nil {
		return nil, err
	}
	logger.Info("using local embeddings", "model", config.LocalEmbeddingModel, "dimensions", embedder.Dimensions())
	return embedder, nil
}

// SelectChatModel builds the LLM named by config.LLMProvider.
func SelectChatModel(config *ai.Config) (ai.ChatModel, error) {
	logger := slog.Default().With("component", "provider-selection")

	switch config.LLMProvider {
	case ai.ProviderGroq:
		if config.GroqAPIKey == "" {
			return nil, ai.ErrLLMNotConfigured
		}
		logger.Info("using groq llm", "model", config.GroqModel)
		return openai.NewGroqChatModel(config)
	case ai.ProviderOpenAI:
		if config.OpenAIAPIKey == "" {
			return nil, ai.ErrLLMNotConfigured
		}
		logger.Info("using openai llm", "model", config.OpenAIModel)
		return openai.NewChatModel(config)
	case ai.ProviderOllama:
		logger.Info("using ollama llm", "model", config.OllamaModel)
		return ollama.NewChatModel(config)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ai.ErrLLMNotConfigured, config.LLMProvider)
	}
}

// EmbeddingDimensions returns the dimension the selection policy will use
// without building a provider.
func EmbeddingDimensions(config *ai.Config) int {
	if config.RemoteEmbeddings() {
		return config.OpenAIEmbeddingDimensions
	}
	return config.LocalEmbeddingDimensions
}
