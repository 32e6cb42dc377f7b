// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder and ai.ChatModel
// for use in unit tests. The mocks allow tests to run without external AI
// services and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	chat := mock.NewMockChatModel()
//	chat.GenerateFunc = func(ctx context.Context, msgs []ai.Message) (string, error) {
//	    return "", errors.New("provider down")
//	}
//	registry := mock.NewRegistry(embedder, chat)
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockChatModel: Echoes the last message with a "mock answer: " prefix
package mock
