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

package openai

import (
	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/ai/langchain"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates the remote embedding provider. The config must carry
// an OpenAI API key.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.OpenAIAPIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	opts := []openai.Option{
		openai.WithToken(config.OpenAIAPIKey),
		openai.WithEmbeddingModel(config.OpenAIEmbeddingModel),
	}
	if config.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.OpenAIBaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return langchain.NewEmbedder(client, config.OpenAIEmbeddingDimensions, "openai-embedder")
}

// NewChatModel creates an OpenAI chat model.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.OpenAIAPIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	opts := []openai.Option{
		openai.WithToken(config.OpenAIAPIKey),
		openai.WithModel(config.OpenAIModel),
	}
	if config.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.OpenAIBaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return langchain.NewChatModel(client, "openai-chat"), nil
}

// NewGroqChatModel creates a chat model against Groq's OpenAI-compatible API.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewGroqChatModel(config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.GroqAPIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GroqBaseURL),
		openai.WithToken(config.GroqAPIKey),
		openai.WithModel(config.GroqModel),
	)
	if err != nil {
		return nil, err
	}
	return langchain.NewChatModel(client, "groq-chat"), nil
}
