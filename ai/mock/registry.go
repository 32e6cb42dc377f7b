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

package mock

import (
	"context"

	"github.com/poiesic/fundlens/ai"
)

// NewRegistry returns a registry serving the given mocks under the standard
// keys. Either mock may be nil to leave its key unregistered.
func NewRegistry(embedder *MockEmbedder, chat *MockChatModel) *ai.Registry {
	registry := ai.NewRegistry()
	if embedder != nil {
		_ = registry.Register(ai.EmbedderKey, func(ctx context.Context) (any, error) {
			return embedder, nil
		})
	}
	if chat != nil {
		_ = registry.Register(ai.ChatModelKey, func(ctx context.Context) (any, error) {
			return chat, nil
		})
	}
	return registry
}
