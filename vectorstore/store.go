// Package vectorstore indexes text chunks as embeddings and answers
// similarity queries over them.
//
// Embedding calls and database access run on the shared worker pool. An Add
// is all-or-nothing: every text is embedded before anything is written, and
// the repository removes any rows it committed if a later write fails.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
	"github.com/poiesic/fundlens/workpool"
)

// DefaultEmbedBatchSize is how many texts go to the embedder per call.
const DefaultEmbedBatchSize = 32

// Store is an embedding-backed similarity index. It is safe for concurrent use.
type Store struct {
	repo      storage.EmbeddingRepository
	embedder  ai.Embedder
	pool      *workpool.Pool
	batchSize int
	dims      int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithEmbedBatchSize sets how many texts are embedded per provider call.
func WithEmbedBatchSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be positive, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "vectorstore")
		return nil
	}
}

// New creates a store and records the embedder's dimension in the
// repository. A repository already holding vectors of another dimension
// fails with ErrDimensionMismatch.
func New(ctx context.Context, repo storage.EmbeddingRepository, embedder ai.Embedder, pool *workpool.Pool, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if pool == nil {
		return nil, ErrPoolRequired
	}

	s := &Store{
		repo:      repo,
		embedder:  embedder,
		pool:      pool,
		batchSize: DefaultEmbedBatchSize,
		dims:      embedder.Dimensions(),
		logger:    slog.Default().With("component", "vectorstore"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.dims <= 0 {
		return nil, fmt.Errorf("%w: embedder reports %d dimensions", ErrDimensionMismatch, s.dims)
	}
	err := workpool.Run(ctx, pool, func(ctx context.Context) error {
		return repo.EnsureSchema(ctx, s.dims)
	})
	if err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("preparing embedding schema: %w", err)
	}
	return s, nil
}

// Dimensions returns the vector size of the store.
func (s *Store) Dimensions() int {
	return s.dims
}

// Add embeds texts and stores them with their metadata, returning the new
// record IDs in input order. On any error nothing is stored.
func (s *Store) Add(ctx context.Context, texts []string, metadata []core.ChunkMetadata) ([]core.ID, error) {
	if len(texts) != len(metadata) {
		return nil, fmt.Errorf("%w: %d texts, %d metadata", ErrMetadataMismatch, len(texts), len(metadata))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		batch := texts[start:min(start+s.batchSize, len(texts))]
		embedded, err := workpool.Do(ctx, s.pool, func(ctx context.Context) ([][]float32, error) {
			return s.embedder.EmbedTexts(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, start+len(batch)-1, err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("%w: got %d for %d texts", ErrEmbeddingCount, len(embedded), len(batch))
		}
		vectors = append(vectors, embedded...)
	}

	records := make([]*core.EmbeddingRecord, len(texts))
	for i, text := range texts {
		if len(vectors[i]) != s.dims {
			return nil, fmt.Errorf("%w: text %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vectors[i]), s.dims)
		}
		meta, err := json.Marshal(metadata[i])
		if err != nil {
			return nil, fmt.Errorf("encoding metadata for text %d: %w", i, err)
		}
		records[i] = &core.EmbeddingRecord{
			DocumentID: metadata[i].DocumentID,
			FundID:     metadata[i].FundID,
			ChunkIndex: metadata[i].ChunkIndex,
			Content:    text,
			Vector:     vectors[i],
			Metadata:   meta,
		}
	}

	added, err := workpool.Do(ctx, s.pool, func(ctx context.Context) ([]*core.EmbeddingRecord, error) {
		return s.repo.AddEmbeddings(ctx, records...)
	})
	if err != nil {
		return nil, fmt.Errorf("storing embeddings: %w", err)
	}

	ids := make([]core.ID, len(added))
	for i, record := range added {
		ids[i] = record.ID
	}
	s.logger.Debug("indexed chunks", "count", len(ids))
	return ids, nil
}

// Search returns up to k chunks most similar to query. Only the
// document_id and fund_id filter keys are applied.
func (s *Store) Search(ctx context.Context, query string, k int, filter Filter) ([]core.SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	ef, err := filter.resolve(s.logger)
	if err != nil {
		return nil, err
	}

	vector, err := workpool.Do(ctx, s.pool, func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedText(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(vector), s.dims)
	}

	found, err := workpool.Do(ctx, s.pool, func(ctx context.Context) ([]*core.SearchHit, error) {
		return s.repo.FindNearest(ctx, vector, k, ef)
	})
	if err != nil {
		return nil, fmt.Errorf("searching embeddings: %w", err)
	}

	hits := make([]core.SearchHit, len(found))
	for i, hit := range found {
		hits[i] = *hit
	}
	return hits, nil
}

// DeleteDocument removes every chunk of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID core.ID) (int, error) {
	return workpool.Do(ctx, s.pool, func(ctx context.Context) (int, error) {
		return s.repo.DeleteByDocument(ctx, documentID)
	})
}
