package storage

import (
	"context"

	"github.com/poiesic/fundlens/core"
)

// Repository provides operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository. It does not close
	// the shared backend.
	Close() error
}

// DocumentRepository manages uploaded documents and their processing state.
type DocumentRepository interface {
	Repository

	// CreateDocument stores a new document.
	// Generates the ID, sets UploadedAt/UpdatedAt, and defaults Status to pending.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// UpdateDocument replaces a stored document and refreshes UpdatedAt.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// ListDocuments returns the documents of a fund ordered by ID.
	// A zero fundID lists every document.
	ListDocuments(ctx context.Context, fundID core.ID) ([]*core.Document, error)

	// DeleteDocument removes a document together with its ledger entries
	// and embeddings in a single transaction.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error
}

// TransactionBatch stages ledger entries for one table. Nothing is visible
// to readers until Commit succeeds. A batch is not safe for concurrent use.
type TransactionBatch interface {
	// Add validates and stages one record, returning the entry it will
	// become on commit.
	Add(ctx context.Context, record core.TransactionRecord) (*core.LedgerEntry, error)

	// Commit persists every staged entry atomically.
	Commit(ctx context.Context) error

	// Rollback discards staged entries. It is safe to call after Commit.
	Rollback()
}

// TransactionRepository manages the fund cash-flow ledger.
type TransactionRepository interface {
	Repository

	// BeginBatch opens a batch whose entries belong to fundID and documentID.
	BeginBatch(ctx context.Context, fundID, documentID core.ID) (TransactionBatch, error)

	// ListTransactions returns a fund's ledger entries in insertion order.
	ListTransactions(ctx context.Context, fundID core.ID) ([]*core.LedgerEntry, error)

	// ListDocumentTransactions returns the entries extracted from one document.
	ListDocumentTransactions(ctx context.Context, documentID core.ID) ([]*core.LedgerEntry, error)

	// DeleteDocumentTransactions removes a document's entries so it can be
	// re-ingested. It returns the number removed.
	DeleteDocumentTransactions(ctx context.Context, documentID core.ID) (int, error)
}

// EmbeddingFilter restricts a nearest-neighbour search by equality.
// Zero fields do not filter.
type EmbeddingFilter struct {
	DocumentID core.ID
	FundID     core.ID
}

// EmbeddingRepository stores chunk embeddings and answers similarity queries.
type EmbeddingRepository interface {
	Repository

	// EnsureSchema records the vector dimension on first use.
	// Returns ErrDimensionMismatch if a different dimension is already recorded.
	EnsureSchema(ctx context.Context, dimensions int) error

	// SchemaDimensions returns the recorded vector dimension, or 0 if none.
	SchemaDimensions(ctx context.Context) (int, error)

	// ResetSchema overwrites the recorded vector dimension. Stored vectors
	// must be rewritten with UpdateVectors afterwards.
	ResetSchema(ctx context.Context, dimensions int) error

	// AddEmbeddings stores records, generating their IDs and CreatedAt.
	// Either every record is stored or none is; a batch may span several
	// backend transactions, so readers can briefly observe part of it.
	AddEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) ([]*core.EmbeddingRecord, error)

	// FindNearest returns up to k records ordered by ascending cosine
	// distance to vector. Equal distances are ordered by ascending ID.
	FindNearest(ctx context.Context, vector []float32, k int, filter EmbeddingFilter) ([]*core.SearchHit, error)

	// DeleteByDocument removes a document's embeddings and returns how many
	// were removed.
	DeleteByDocument(ctx context.Context, documentID core.ID) (int, error)

	// CountEmbeddings returns the number of stored records.
	CountEmbeddings(ctx context.Context) (int, error)

	// ListEmbeddings pages through records in ID order, starting after afterID.
	ListEmbeddings(ctx context.Context, afterID core.ID, limit int) ([]*core.EmbeddingRecord, error)

	// UpdateVectors replaces the vectors of existing records atomically.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error
}
