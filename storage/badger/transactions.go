package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// TransactionRepository implements storage.TransactionRepository for BadgerDB.
type TransactionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(backend *Backend) (*TransactionRepository, error) {
	idSeq, err := backend.GetSequence(ledgerIDSeq)
	if err != nil {
		return nil, err
	}

	return &TransactionRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *TransactionRepository) Close() error {
	return r.idSeq.Release()
}

// BeginBatch opens a write transaction for one table's rows.
func (r *TransactionRepository) BeginBatch(ctx context.Context, fundID, documentID core.ID) (storage.TransactionBatch, error) {
	if fundID == 0 {
		return nil, core.ErrMissingFund
	}
	tx, err := r.backend.begin(true)
	if err != nil {
		return nil, err
	}
	return &transactionBatch{
		repo:       r,
		tx:         tx,
		fundID:     fundID,
		documentID: documentID,
	}, nil
}

// ListTransactions returns a fund's ledger entries in insertion order.
func (r *TransactionRepository) ListTransactions(ctx context.Context, fundID core.ID) ([]*core.LedgerEntry, error) {
	return r.listIndexed(makeKey(ledgerFundPrefix, fundID))
}

// ListDocumentTransactions returns the entries extracted from one document.
func (r *TransactionRepository) ListDocumentTransactions(ctx context.Context, documentID core.ID) ([]*core.LedgerEntry, error) {
	return r.listIndexed(makeKey(ledgerDocumentPrefix, documentID))
}

// DeleteDocumentTransactions removes the entries extracted from one
// document and reports how many were removed.
func (r *TransactionRepository) DeleteDocumentTransactions(ctx context.Context, documentID core.ID) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		if removed, err = deleteDocumentLedger(tx, documentID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return removed, err
}

func (r *TransactionRepository) listIndexed(prefix []byte) ([]*core.LedgerEntry, error) {
	var results []*core.LedgerEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := indexedIDs(tx, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entry, err := readLedgerEntry(tx, id)
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)
	return results, err
}

// transactionBatch holds one open badger write transaction.
type transactionBatch struct {
	repo       *TransactionRepository
	tx         *badger.Txn
	fundID     core.ID
	documentID core.ID
	closed     bool
}

var _ storage.TransactionBatch = (*transactionBatch)(nil)

// Add validates and stages one record.
func (b *transactionBatch) Add(ctx context.Context, record core.TransactionRecord) (*core.LedgerEntry, error) {
	if b.closed {
		return nil, storage.ErrBatchClosed
	}
	if err := core.ValidateTransaction(record); err != nil {
		return nil, err
	}

	id, err := nextID(b.repo.idSeq)
	if err != nil {
		return nil, err
	}
	entry := &core.LedgerEntry{
		ID:         core.ID(id),
		FundID:     b.fundID,
		DocumentID: b.documentID,
		Record:     record,
		InsertedAt: time.Now().UTC(),
	}

	value, err := storage.MarshalLedgerEntry(entry)
	if err != nil {
		return nil, err
	}
	if err := b.tx.Set(makeLedgerKey(entry.ID), value); err != nil {
		return nil, fmt.Errorf("staging ledger entry: %w", err)
	}
	if err := b.tx.Set(makeLedgerFundKey(entry.FundID, entry.ID), storage.MarshalID(entry.ID)); err != nil {
		return nil, fmt.Errorf("staging ledger entry: %w", err)
	}
	if entry.DocumentID != 0 {
		if err := b.tx.Set(makeLedgerDocumentKey(entry.DocumentID, entry.ID), storage.MarshalID(entry.ID)); err != nil {
			return nil, fmt.Errorf("staging ledger entry: %w", err)
		}
	}
	return entry, nil
}

// Commit persists every staged entry.
func (b *transactionBatch) Commit(ctx context.Context) error {
	if b.closed {
		return storage.ErrBatchClosed
	}
	b.closed = true
	defer b.tx.Discard()
	return b.tx.Commit()
}

// Rollback discards staged entries.
func (b *transactionBatch) Rollback() {
	b.closed = true
	b.tx.Discard()
}

// Helper functions

// readLedgerEntry reads a ledger entry. Returns nil, nil if it doesn't exist.
func readLedgerEntry(tx *badger.Txn, id core.ID) (*core.LedgerEntry, error) {
	item, err := tx.Get(makeLedgerKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.LedgerEntry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalLedgerEntry(val)
		return unmarshalErr
	})
	return entry, err
}

// deleteDocumentLedger removes every ledger entry extracted from a document.
func deleteDocumentLedger(tx *badger.Txn, documentID core.ID) (int, error) {
	ids, err := indexedIDs(tx, makeKey(ledgerDocumentPrefix, documentID))
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		entry, err := readLedgerEntry(tx, id)
		if err != nil {
			return 0, err
		}
		if entry != nil {
			if err := tx.Delete(makeLedgerFundKey(entry.FundID, id)); err != nil {
				return 0, err
			}
			if err := tx.Delete(makeLedgerKey(id)); err != nil {
				return 0, err
			}
		}
		if err := tx.Delete(makeLedgerDocumentKey(documentID, id)); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
