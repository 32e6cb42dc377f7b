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

import "errors"

var (
	// ErrRegistryClosed indicates the registry was closed.
	ErrRegistryClosed = errors.New("provider registry is closed")

	// ErrUnknownProvider indicates no factory is registered for a key.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrDuplicateProvider indicates a key was registered twice.
	ErrDuplicateProvider = errors.New("provider already registered")

	// ErrFactoryRequired indicates a nil factory was registered.
	ErrFactoryRequired = errors.New("provider factory is required")

	// ErrProviderInit indicates a factory failed.
	ErrProviderInit = errors.New("provider initialization failed")

	// ErrProviderType indicates a registered instance has the wrong type.
	ErrProviderType = errors.New("provider has unexpected type")

	// ErrLLMNotConfigured indicates the selected LLM provider lacks credentials.
	ErrLLMNotConfigured = errors.New("no LLM configured: set GROQ_API_KEY, OPENAI_API_KEY, or select ollama")

	// ErrEmptyResponse indicates a model returned no choices.
	ErrEmptyResponse = errors.New("model returned an empty response")
)
