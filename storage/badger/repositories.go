package badger

import (
	"errors"

	"github.com/poiesic/fundlens/storage"
)

// Repositories bundles every repository over one backend.
type Repositories struct {
	Documents    storage.DocumentRepository
	Transactions storage.TransactionRepository
	Embeddings   storage.EmbeddingRepository

	backend *Backend
}

// OpenRepositories creates all repositories over backend. Closing the
// result also closes the backend.
func OpenRepositories(backend *Backend) (*Repositories, error) {
	documents, err := NewDocumentRepository(backend)
	if err != nil {
		return nil, err
	}

	transactions, err := NewTransactionRepository(backend)
	if err != nil {
		documents.Close()
		return nil, err
	}

	embeddings, err := NewEmbeddingRepository(backend)
	if err != nil {
		transactions.Close()
		documents.Close()
		return nil, err
	}

	return &Repositories{
		Documents:    documents,
		Transactions: transactions,
		Embeddings:   embeddings,
		backend:      backend,
	}, nil
}

// Backend returns the shared backend.
func (r *Repositories) Backend() *Backend {
	return r.backend
}

// Close releases every repository and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Embeddings.Close(),
		r.Transactions.Close(),
		r.Documents.Close(),
		r.backend.Close(),
	)
}
