package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed length of every vector this embedder returns.
	Dimensions() int
}

// ChatModel generates answers from role-tagged messages.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Generate returns the model's reply to the conversation.
	Generate(ctx context.Context, messages []Message) (string, error)
}
