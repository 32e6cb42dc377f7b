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

// Package openai provides remote AI services using OpenAI-compatible APIs.
//
// It builds langchaingo OpenAI clients for the remote embedding provider,
// the OpenAI chat model, and Groq (which speaks the same protocol from a
// different base URL).
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithOpenAIAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithGroq(os.Getenv("GROQ_API_KEY"), ""),
//	)
//
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Q3 capital call notice")
//
//	chat, err := openai.NewGroqChatModel(config)
//	answer, err := chat.Generate(ctx, []ai.Message{ai.UserMessage("What is DPI?")})
package openai
