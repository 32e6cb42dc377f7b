package vectorstore

import "errors"

var (
	// ErrRepositoryRequired indicates a missing embedding repository.
	ErrRepositoryRequired = errors.New("embedding repository is required")

	// ErrEmbedderRequired indicates a missing embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrPoolRequired indicates a missing worker pool.
	ErrPoolRequired = errors.New("worker pool is required")

	// ErrDimensionMismatch indicates the embedder's vector size differs from
	// the store's, or a returned vector has the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMetadataMismatch indicates texts and metadata of different lengths.
	ErrMetadataMismatch = errors.New("texts and metadata must have the same length")

	// ErrEmbeddingCount indicates the embedder returned a different number
	// of vectors than texts submitted.
	ErrEmbeddingCount = errors.New("embedder returned wrong number of vectors")

	// ErrInvalidFilter indicates a filter value that is not a non-negative integer.
	ErrInvalidFilter = errors.New("invalid filter value")

	// ErrInvalidK indicates a non-positive result count.
	ErrInvalidK = errors.New("k must be positive")
)
