package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// BatchProcessor re-embeds one page of chunks and writes the vectors back.
type BatchProcessor struct {
	repo           storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a batch processor. Embedding calls are retried
// up to maxRetries times with exponential backoff from retryBaseDelay.
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process embeds the chunks' content and replaces their vectors in a
// single atomic update. Vectors are normalized before storage.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.EmbeddingRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := RetryWithBackoff(ctx, bp.logger, bp.maxRetries, bp.retryBaseDelay,
		func(ctx context.Context) ([][]float32, error) {
			return bp.embedder.EmbedTexts(ctx, texts)
		})
	if err != nil {
		return fmt.Errorf("generating embeddings after %d attempts: %w", bp.maxRetries, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	vectors := make(map[core.ID][]float32, len(chunks))
	for i, chunk := range chunks {
		vectors[chunk.ID] = NormalizeVector(embeddings[i])
	}

	if err := bp.repo.UpdateVectors(ctx, vectors); err != nil {
		return fmt.Errorf("updating vectors: %w", err)
	}
	return nil
}
