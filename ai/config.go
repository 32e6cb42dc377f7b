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

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// LLM provider names accepted by Config.LLMProvider.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Config holds configuration for the embedding and LLM providers.
type Config struct {
	// OpenAIAPIKey enables the remote OpenAI embedder, and the OpenAI LLM when
	// LLMProvider is "openai".
	OpenAIAPIKey string

	// OpenAIBaseURL overrides the OpenAI endpoint. Empty uses the client default.
	OpenAIBaseURL string

	// OpenAIEmbeddingModel is the remote embedding model.
	// Default: "text-embedding-3-small"
	OpenAIEmbeddingModel string

	// OpenAIEmbeddingDimensions is the vector size of OpenAIEmbeddingModel.
	// Default: 1536
	OpenAIEmbeddingDimensions int

	// OpenAIModel is the chat model used when LLMProvider is "openai".
	OpenAIModel string

	// OllamaHost is the base URL of the local Ollama server.
	// Example: "http://localhost:11434"
	OllamaHost string

	// LocalEmbeddingModel is the local fallback embedding model.
	// Default: "all-minilm"
	LocalEmbeddingModel string

	// LocalEmbeddingDimensions is the vector size of LocalEmbeddingModel.
	// Default: 384
	LocalEmbeddingDimensions int

	// OllamaModel is the chat model used when LLMProvider is "ollama".
	OllamaModel string

	// LLMProvider selects the answer-generation provider: groq, openai or ollama.
	LLMProvider string

	// GroqAPIKey authenticates against Groq.
	GroqAPIKey string

	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL string

	// GroqModel is the chat model used when LLMProvider is "groq".
	GroqModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithOpenAIAPIKey sets the OpenAI credential.
func WithOpenAIAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.OpenAIAPIKey = key
	}
}

// WithOpenAIBaseURL overrides the OpenAI endpoint.
func WithOpenAIBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.OpenAIBaseURL = url
	}
}

// WithOpenAIEmbeddingModel sets the remote embedding model and its dimension.
func WithOpenAIEmbeddingModel(model string, dimensions int) ConfigOption {
	return func(c *Config) {
		c.OpenAIEmbeddingModel = model
		c.OpenAIEmbeddingDimensions = dimensions
	}
}

// WithOpenAIModel sets the OpenAI chat model.
func WithOpenAIModel(model string) ConfigOption {
	return func(c *Config) {
		c.OpenAIModel = model
	}
}

// WithOllamaHost sets the local Ollama server URL.
func WithOllamaHost(host string) ConfigOption {
	return func(c *Config) {
		c.OllamaHost = host
	}
}

// WithLocalEmbeddingModel sets the local embedding model and its dimension.
func WithLocalEmbeddingModel(model string, dimensions int) ConfigOption {
	return func(c *Config) {
		c.LocalEmbeddingModel = model
		c.LocalEmbeddingDimensions = dimensions
	}
}

// WithOllamaModel sets the Ollama chat model.
func WithOllamaModel(model string) ConfigOption {
	return func(c *Config) {
		c.OllamaModel = model
	}
}

// WithLLMProvider selects the answer-generation provider.
func WithLLMProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.LLMProvider = provider
	}
}

// WithGroq sets the Groq credential and model.
func WithGroq(key, model string) ConfigOption {
	return func(c *Config) {
		c.GroqAPIKey = key
		if model != "" {
			c.GroqModel = model
		}
	}
}

// DefaultConfig returns a Config that embeds and generates locally through Ollama
// until remote credentials are supplied.
func DefaultConfig() *Config {
	return &Config{
		OpenAIEmbeddingModel:      "text-embedding-3-small",
		OpenAIEmbeddingDimensions: 1536,
		OpenAIModel:               "gpt-4o-mini",
		OllamaHost:                "http://localhost:11434",
		LocalEmbeddingModel:       "all-minilm",
		LocalEmbeddingDimensions:  384,
		OllamaModel:               "llama3.2",
		LLMProvider:               ProviderGroq,
		GroqBaseURL:               DefaultGroqBaseURL,
		GroqModel:                 "llama-3.1-8b-instant",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithOpenAIAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    WithLLMProvider(ai.ProviderOpenAI),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// RemoteEmbeddings reports whether the remote embedding provider is configured.
func (c *Config) RemoteEmbeddings() bool {
	return c.OpenAIAPIKey != ""
}

// Normalize ensures the configuration is in a canonical form.
// Provider names are lower-cased and hosts lose trailing slashes.
func (c *Config) Normalize() {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.OllamaHost = strings.TrimSuffix(c.OllamaHost, "/")
	c.OpenAIBaseURL = strings.TrimSuffix(c.OpenAIBaseURL, "/")
	c.GroqBaseURL = strings.TrimSuffix(c.GroqBaseURL, "/")
	if c.GroqBaseURL == "" {
		c.GroqBaseURL = DefaultGroqBaseURL
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.OpenAIAPIKey != "" {
		if c.OpenAIEmbeddingModel == "" {
			return errors.New("ai config: OpenAIEmbeddingModel is required")
		}
		if c.OpenAIEmbeddingDimensions <= 0 {
			return errors.New("ai config: OpenAIEmbeddingDimensions must be positive")
		}
	}
	if c.OllamaHost == "" {
		return errors.New("ai config: OllamaHost is required")
	}
	if c.LocalEmbeddingModel == "" {
		return errors.New("ai config: LocalEmbeddingModel is required")
	}
	if c.LocalEmbeddingDimensions <= 0 {
		return errors.New("ai config: LocalEmbeddingDimensions must be positive")
	}
	switch c.LLMProvider {
	case ProviderGroq, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("ai config: unknown LLMProvider %q", c.LLMProvider)
	}
	return nil
}
