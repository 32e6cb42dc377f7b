package query

import "errors"

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrMetricsRequired is returned when a metrics source is not provided.
	ErrMetricsRequired = errors.New("metrics source required")

	// ErrRegistryRequired is returned when a provider registry is not provided.
	ErrRegistryRequired = errors.New("provider registry required")

	// ErrPoolRequired is returned when a worker pool is not provided.
	ErrPoolRequired = errors.New("worker pool required")

	// ErrInvalidTopK is returned for a retrieval size below one.
	ErrInvalidTopK = errors.New("top-k must be positive")

	// ErrEmptyQuery is returned for a blank question.
	ErrEmptyQuery = errors.New("query is empty")
)
