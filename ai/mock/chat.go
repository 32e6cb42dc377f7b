package mock

import (
	"context"
	"sync"

	"github.com/poiesic/fundlens/ai"
)

// MockChatModel is a test double for ai.ChatModel.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the reply echoes the last message.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	mu        sync.Mutex
	callCount int
	last      []ai.Message
}

// NewMockChatModel creates a mock chat model with echo behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate records the conversation and returns the injected or default reply.
func (m *MockChatModel) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.last = append([]ai.Message(nil), messages...)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return "mock answer: " + messages[len(messages)-1].Content, nil
}

// LastMessages returns the messages passed to the most recent Generate call.
func (m *MockChatModel) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// CallCount returns the number of Generate calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears recorded calls and injected behavior.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.last = nil
	m.GenerateFunc = nil
}
