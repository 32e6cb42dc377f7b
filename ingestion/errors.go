package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrTransactionRepositoryRequired is returned when a transaction repository is not provided.
	ErrTransactionRepositoryRequired = errors.New("transaction repository required")

	// ErrIndexRequired is returned when a text index is not provided.
	ErrIndexRequired = errors.New("text index required")

	// ErrSourceRequired is returned when an ingest request has no page source.
	ErrSourceRequired = errors.New("page source required")

	// ErrInvalidChunker is returned for chunker settings that cannot work.
	ErrInvalidChunker = errors.New("invalid chunker settings")

	// ErrDocumentBusy is returned when re-ingesting or deleting a document
	// that is still queued or being processed.
	ErrDocumentBusy = errors.New("document is still processing")
)
