package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// CreateDocument stores a new document.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc != nil && doc.Status == "" {
		doc.Status = core.StatusPending
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		doc.ID = core.ID(id)

		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = time.Now().UTC()
		}
		doc.UpdatedAt = doc.UploadedAt

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(doc.ID), value); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentFundKey(doc.FundID, doc.ID), storage.MarshalID(doc.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// UpdateDocument replaces a stored document.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDocument(tx, doc.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.UploadedAt = old.UploadedAt
		doc.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(doc.ID), value); err != nil {
			return err
		}

		// Move the fund index entry if the document changed funds
		if old.FundID != doc.FundID {
			if err := tx.Delete(makeDocumentFundKey(old.FundID, doc.ID)); err != nil {
				return err
			}
			if err := tx.Set(makeDocumentFundKey(doc.FundID, doc.ID), storage.MarshalID(doc.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the documents of a fund ordered by ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, fundID core.ID) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if fundID == 0 {
			return iterateValues(tx, []byte(documentPrefix), func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				results = append(results, doc)
				return nil
			})
		}

		ids, err := indexedIDs(tx, makeKey(documentFundPrefix, fundID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteDocument removes a document with its ledger entries and embeddings.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if _, err := deleteDocumentLedger(tx, doc.ID); err != nil {
			return err
		}
		if _, err := deleteDocumentEmbeddings(tx, doc.ID); err != nil {
			return err
		}

		if err := tx.Delete(makeDocumentFundKey(doc.FundID, doc.ID)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(doc.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Helper functions

// readDocument reads a document from the transaction. Returns nil, nil if
// it doesn't exist.
func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// indexedIDs reads the record IDs stored as values under an index prefix.
func indexedIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	var ids []core.ID
	err := iterateValues(tx, prefix, func(val []byte) error {
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// iterateValues calls fn with the value of every key under prefix, in key order.
func iterateValues(tx *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := iter.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
