package langchain

import (
	"context"
	"log/slog"

	"github.com/poiesic/fundlens/ai"
	"github.com/tmc/langchaingo/llms"
)

// ChatModel implements ai.ChatModel on top of a langchaingo model.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

var _ ai.ChatModel = (*ChatModel)(nil)

// NewChatModel wraps a langchaingo model. Generation runs at temperature 0.
func NewChatModel(client llms.Model, component string) *ChatModel {
	return &ChatModel{
		client: client,
		logger: slog.Default().With("component", component),
	}
}

// Generate sends the conversation to the model and returns the first choice.
func (m *ChatModel) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	content := toMessageContent(messages)

	response, err := m.client.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("failed to generate content", "messages", len(messages), "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		m.logger.Warn("no choices returned from model")
		return "", ai.ErrEmptyResponse
	}

	return response.Choices[0].Content, nil
}
