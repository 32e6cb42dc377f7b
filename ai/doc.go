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

// Package ai provides abstractions for the AI services used by fundlens.
//
// Two interfaces cover everything the rest of the module needs:
//
//   - Embedder: turns chunk text and questions into fixed-dimension vectors
//   - ChatModel: turns role-tagged messages into an answer
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible endpoints (Groq) via langchaingo
//   - ai/ollama: local models served by Ollama via langchaingo
//   - ai/providers: selection policy that registers the right factories
//   - ai/mock: test doubles for unit testing without external services
//
// # Provider Lifecycle
//
// Providers are application-scoped and built lazily through a Registry.
// Each key has its own initialization lock so concurrent first requests
// construct a single instance, and leases are reference counted so Close
// never tears down a provider that is still in use.
//
//	registry := ai.NewRegistry()
//	if err := providers.Register(registry, ai.DefaultConfig()); err != nil {
//	    log.Fatal(err)
//	}
//	defer registry.Close()
//
//	embedder, release, err := registry.Embedder(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer release()
//	vector, err := embedder.EmbedText(ctx, "What is the fund's DPI?")
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages (openai.NewEmbedder,
// ollama.NewChatModel, ...) return interface types. Mock constructors return
// concrete types so tests can inject behavior and inspect call counts.
package ai
