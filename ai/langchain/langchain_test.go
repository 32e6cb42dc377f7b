package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/fundlens/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	llms.Model
	got      []llms.MessageContent
	response *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	return f.response, f.err
}

type fakeEmbeddingClient struct {
	got [][]string
}

func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.got = append(f.got, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestChatModel_Generate(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "DPI is 0.45."}},
	}}
	chat := NewChatModel(model, "test-chat")

	answer, err := chat.Generate(context.Background(), []ai.Message{
		ai.SystemMessage("You are a financial analyst."),
		ai.UserMessage("What is the DPI?"),
		{Role: ai.RoleAssistant, Content: "Let me check."},
	})
	require.NoError(t, err)
	assert.Equal(t, "DPI is 0.45.", answer)

	require.Len(t, model.got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.got[2].Role)
	assert.Equal(t, llms.TextPart("What is the DPI?"), model.got[1].Parts[0])
}

func TestChatModel_Errors(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		chat := NewChatModel(&fakeModel{err: errors.New("rate limited")}, "test-chat")
		_, err := chat.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")})
		assert.EqualError(t, err, "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		chat := NewChatModel(&fakeModel{response: &llms.ContentResponse{}}, "test-chat")
		_, err := chat.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")})
		assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	})
}

func TestEmbedder(t *testing.T) {
	client := &fakeEmbeddingClient{}
	embedder, err := NewEmbedder(client, 2, "test-embedder")
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.Dimensions())

	vector, err := embedder.EmbedText(context.Background(), "  net asset value\x00 ")
	require.NoError(t, err)
	assert.Equal(t, []float32{15, 1}, vector)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, []string{"net asset value"}, client.got[0])
}

func TestScrub(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded\t", "padded"},
		{"line one\nline two", "line one\nline two"},
		{"bell\x07 char", "bell char"},
		{"bad � rune", "bad  rune"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scrub(tt.in))
		})
	}
}
