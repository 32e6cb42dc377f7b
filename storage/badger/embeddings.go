package badger

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
//
// Each record is stored under three kinds of keys: the record itself
// without its vector, the packed vector, and document and fund index
// entries used for equality filtering.
type EmbeddingRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	idSeq, err := backend.GetSequence(embeddingIDSeq)
	if err != nil {
		return nil, err
	}

	return &EmbeddingRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EmbeddingRepository) Close() error {
	return r.idSeq.Release()
}

// EnsureSchema records the vector dimension on first use.
func (r *EmbeddingRepository) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %d", storage.ErrInvalidQuery, dimensions)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		current, err := readSchemaDimensions(tx)
		if err != nil {
			return err
		}
		if current == dimensions {
			return nil
		}
		if current != 0 {
			return fmt.Errorf("%w: store has %d dimensions, provider has %d",
				storage.ErrDimensionMismatch, current, dimensions)
		}
		if err := tx.Set([]byte(schemaDimensionsKey), encodeDimensions(dimensions)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SchemaDimensions returns the recorded vector dimension, or 0 if none.
func (r *EmbeddingRepository) SchemaDimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dims, err = readSchemaDimensions(tx)
		return err
	}, false)
	return dims, err
}

// ResetSchema overwrites the recorded vector dimension.
func (r *EmbeddingRepository) ResetSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %d", storage.ErrInvalidQuery, dimensions)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(schemaDimensionsKey), encodeDimensions(dimensions)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AddEmbeddings stores records atomically. A batch too large for one badger
// transaction is committed in several; if a later one fails, the records
// already committed are removed again before the error is returned.
func (r *EmbeddingRepository) AddEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) ([]*core.EmbeddingRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	// Validate everything before writing anything
	dims, err := r.SchemaDimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return nil, storage.ErrSchemaNotInitialized
	}
	for i, record := range records {
		if len(record.Vector) != dims {
			return nil, fmt.Errorf("%w: record %d has %d dimensions, want %d",
				storage.ErrDimensionMismatch, i, len(record.Vector), dims)
		}
	}

	now := time.Now().UTC()
	for _, record := range records {
		id, err := nextID(r.idSeq)
		if err != nil {
			clearIDs(records)
			return nil, err
		}
		record.ID = core.ID(id)
		record.CreatedAt = now
	}

	committed, err := r.backend.commitSplit(ctx, len(records), func(tx *badger.Txn, i int) error {
		return writeEmbedding(tx, records[i])
	})
	if err != nil {
		if committed > 0 {
			r.removeRecords(context.WithoutCancel(ctx), records[:committed])
		}
		// IDs of records that are not stored were never issued
		clearIDs(records)
		return nil, err
	}
	return records, nil
}

// removeRecords deletes records written by a batch that later failed.
func (r *EmbeddingRepository) removeRecords(ctx context.Context, records []*core.EmbeddingRecord) {
	_, err := r.backend.commitSplit(ctx, len(records), func(tx *badger.Txn, i int) error {
		return deleteEmbedding(tx, records[i])
	})
	if err != nil {
		r.backend.logger.Error("error removing partially stored embeddings", "count", len(records), "err", err)
	}
}

func clearIDs(records []*core.EmbeddingRecord) {
	for _, record := range records {
		record.ID = 0
	}
}

// FindNearest returns up to k records ordered by ascending cosine distance.
func (r *EmbeddingRepository) FindNearest(ctx context.Context, vector []float32, k int, filter storage.EmbeddingFilter) ([]*core.SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}

	type candidate struct {
		id       core.ID
		distance float32
	}
	var hits []*core.SearchHit

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		dims, err := readSchemaDimensions(tx)
		if err != nil {
			return err
		}
		if dims == 0 {
			return nil
		}
		if len(vector) != dims {
			return fmt.Errorf("%w: query has %d dimensions, want %d",
				storage.ErrDimensionMismatch, len(vector), dims)
		}

		var candidates []candidate
		score := func(id core.ID, val []byte) error {
			stored, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			candidates = append(candidates, candidate{id: id, distance: cosineDistance(vector, stored)})
			return nil
		}

		switch {
		case filter.DocumentID == 0 && filter.FundID == 0:
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(embeddingVectorPrefix)
			iter := tx.NewIterator(opts)
			defer iter.Close()
			for iter.Rewind(); iter.Valid(); iter.Next() {
				item := iter.Item()
				id := idFromKey(item.Key())
				if err := item.Value(func(val []byte) error { return score(id, val) }); err != nil {
					return err
				}
			}
		default:
			ids, err := filteredIDs(tx, filter)
			if err != nil {
				return err
			}
			for _, id := range ids {
				item, err := tx.Get(makeEmbeddingVectorKey(id))
				if err != nil {
					if err == badger.ErrKeyNotFound {
						continue
					}
					return err
				}
				if err := item.Value(func(val []byte) error { return score(id, val) }); err != nil {
					return err
				}
			}
		}

		// Candidates arrive in ID order from ID-sorted keys; keep ties that way
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			if c := cmp.Compare(a.distance, b.distance); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})
		if len(candidates) > k {
			candidates = candidates[:k]
		}

		for _, c := range candidates {
			record, err := readEmbedding(tx, c.id)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			hits = append(hits, &core.SearchHit{
				ID:         record.ID,
				DocumentID: record.DocumentID,
				FundID:     record.FundID,
				ChunkIndex: record.ChunkIndex,
				Content:    record.Content,
				Metadata:   record.Metadata,
				Score:      1 - c.distance,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// DeleteByDocument removes a document's embeddings.
func (r *EmbeddingRepository) DeleteByDocument(ctx context.Context, documentID core.ID) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		removed, err = deleteDocumentEmbeddings(tx, documentID)
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CountEmbeddings returns the number of stored records.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ListEmbeddings pages through records in ID order, vectors included.
// A non-positive limit returns every remaining record.
func (r *EmbeddingRepository) ListEmbeddings(ctx context.Context, afterID core.ID, limit int) ([]*core.EmbeddingRecord, error) {
	var results []*core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeEmbeddingKey(afterID + 1)); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalEmbeddingRecord(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if record.Vector, err = readVector(tx, record.ID); err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)
	return results, err
}

// UpdateVectors replaces the vectors of existing records atomically.
func (r *EmbeddingRepository) UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		dims, err := readSchemaDimensions(tx)
		if err != nil {
			return err
		}
		if dims == 0 {
			return storage.ErrSchemaNotInitialized
		}

		for id, vector := range vectors {
			if len(vector) != dims {
				return fmt.Errorf("%w: record %d has %d dimensions, want %d",
					storage.ErrDimensionMismatch, id, len(vector), dims)
			}
			if _, err := tx.Get(makeEmbeddingKey(id)); err != nil {
				if err == badger.ErrKeyNotFound {
					return fmt.Errorf("%w: embedding %d", storage.ErrNotFound, id)
				}
				return err
			}
			if err := tx.Set(makeEmbeddingVectorKey(id), storage.MarshalVector(vector)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Helper functions

func encodeDimensions(dims int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dims))
	return buf
}

func readSchemaDimensions(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(schemaDimensionsKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}

	var dims int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrTruncatedData
		}
		dims = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return dims, err
}

func writeEmbedding(tx *badger.Txn, record *core.EmbeddingRecord) error {
	value, err := storage.MarshalEmbeddingRecord(record)
	if err != nil {
		return err
	}
	if err := tx.Set(makeEmbeddingKey(record.ID), value); err != nil {
		return err
	}
	if err := tx.Set(makeEmbeddingVectorKey(record.ID), storage.MarshalVector(record.Vector)); err != nil {
		return err
	}
	if err := tx.Set(makeEmbeddingDocumentKey(record.DocumentID, record.ID), storage.MarshalID(record.ID)); err != nil {
		return err
	}
	return tx.Set(makeEmbeddingFundKey(record.FundID, record.ID), storage.MarshalID(record.ID))
}

func deleteEmbedding(tx *badger.Txn, record *core.EmbeddingRecord) error {
	for _, key := range [][]byte{
		makeEmbeddingKey(record.ID),
		makeEmbeddingVectorKey(record.ID),
		makeEmbeddingDocumentKey(record.DocumentID, record.ID),
		makeEmbeddingFundKey(record.FundID, record.ID),
	} {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// readEmbedding reads a record without its vector. Returns nil, nil if it
// doesn't exist.
func readEmbedding(tx *badger.Txn, id core.ID) (*core.EmbeddingRecord, error) {
	item, err := tx.Get(makeEmbeddingKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.EmbeddingRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalEmbeddingRecord(val)
		return unmarshalErr
	})
	return record, err
}

func readVector(tx *badger.Txn, id core.ID) ([]float32, error) {
	item, err := tx.Get(makeEmbeddingVectorKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var vector []float32
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		vector, unmarshalErr = storage.UnmarshalVector(val)
		return unmarshalErr
	})
	return vector, err
}

// filteredIDs resolves an equality filter through the index keys. When
// both fields are set the document index drives and the fund is checked.
func filteredIDs(tx *badger.Txn, filter storage.EmbeddingFilter) ([]core.ID, error) {
	if filter.DocumentID == 0 {
		return indexedIDs(tx, makeKey(embeddingFundPrefix, filter.FundID))
	}

	ids, err := indexedIDs(tx, makeKey(embeddingDocumentPrefix, filter.DocumentID))
	if err != nil || filter.FundID == 0 {
		return ids, err
	}

	matched := ids[:0]
	for _, id := range ids {
		if _, err := tx.Get(makeEmbeddingFundKey(filter.FundID, id)); err != nil {
			if err == badger.ErrKeyNotFound {
				continue
			}
			return nil, err
		}
		matched = append(matched, id)
	}
	return matched, nil
}

// deleteDocumentEmbeddings removes every embedding owned by a document.
func deleteDocumentEmbeddings(tx *badger.Txn, documentID core.ID) (int, error) {
	ids, err := indexedIDs(tx, makeKey(embeddingDocumentPrefix, documentID))
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		record, err := readEmbedding(tx, id)
		if err != nil {
			return 0, err
		}
		if record != nil {
			if err := tx.Delete(makeEmbeddingFundKey(record.FundID, id)); err != nil {
				return 0, err
			}
		}
		for _, key := range [][]byte{
			makeEmbeddingKey(id),
			makeEmbeddingVectorKey(id),
			makeEmbeddingDocumentKey(documentID, id),
		} {
			if err := tx.Delete(key); err != nil {
				return 0, err
			}
		}
	}
	return len(ids), nil
}

// cosineDistance returns 1 - cos(a, b). A zero vector is at distance 1
// from everything.
func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
