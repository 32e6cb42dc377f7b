package badger

import (
	"context"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedding(doc, fund core.ID, content string, vector ...float32) *core.EmbeddingRecord {
	return &core.EmbeddingRecord{DocumentID: doc, FundID: fund, Content: content, Vector: vector}
}

func TestEnsureSchema(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	dims, err := repos.Embeddings.SchemaDimensions(ctx)
	require.NoError(t, err)
	assert.Zero(t, dims)

	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 3))
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 3))

	err = repos.Embeddings.EnsureSchema(ctx, 4)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = repos.Embeddings.EnsureSchema(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	require.NoError(t, repos.Embeddings.ResetSchema(ctx, 4))
	dims, err = repos.Embeddings.SchemaDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)
}

func TestAddEmbeddings_RequiresSchema(t *testing.T) {
	repos := newTestRepositories(t)

	_, err := repos.Embeddings.AddEmbeddings(context.Background(), embedding(1, 1, "x", 1, 0))
	assert.ErrorIs(t, err, storage.ErrSchemaNotInitialized)
}

func TestAddEmbeddings_AllOrNothing(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	records := []*core.EmbeddingRecord{
		embedding(1, 1, "good", 1, 0),
		embedding(1, 1, "bad", 1, 0, 0),
	}
	_, err := repos.Embeddings.AddEmbeddings(ctx, records...)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Zero(t, records[0].ID)

	stored, err := repos.Embeddings.ListEmbeddings(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAddEmbeddings_AssignsIDs(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	added, err := repos.Embeddings.AddEmbeddings(ctx,
		embedding(1, 1, "a", 1, 0),
		embedding(1, 1, "b", 0, 1),
	)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotZero(t, added[0].ID)
	assert.Greater(t, added[1].ID, added[0].ID)
	assert.False(t, added[0].CreatedAt.IsZero())
}

func TestFindNearest(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 3))

	_, err := repos.Embeddings.AddEmbeddings(ctx,
		embedding(1, 1, "exact", 1, 0, 0),
		embedding(1, 1, "close", 0.9, 0.1, 0),
		embedding(2, 1, "far", 0, 0, 1),
		embedding(3, 2, "other fund", 1, 0, 0),
	)
	require.NoError(t, err)

	query := []float32{1, 0, 0}

	t.Run("ordered by distance", func(t *testing.T) {
		hits, err := repos.Embeddings.FindNearest(ctx, query, 10, storage.EmbeddingFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 4)
		for i := 0; i < len(hits)-1; i++ {
			assert.GreaterOrEqual(t, hits[i].Score, hits[i+1].Score)
		}
		assert.InDelta(t, 1.0, hits[0].Score, 0.0001)
		assert.Equal(t, "far", hits[3].Content)
	})

	t.Run("ties break by id", func(t *testing.T) {
		hits, err := repos.Embeddings.FindNearest(ctx, query, 2, storage.EmbeddingFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "exact", hits[0].Content)
		assert.Equal(t, "other fund", hits[1].Content)
		assert.Less(t, hits[0].ID, hits[1].ID)
	})

	t.Run("fund filter", func(t *testing.T) {
		hits, err := repos.Embeddings.FindNearest(ctx, query, 10, storage.EmbeddingFilter{FundID: 1})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for _, hit := range hits {
			assert.Equal(t, core.ID(1), hit.FundID)
		}
	})

	t.Run("document filter", func(t *testing.T) {
		hits, err := repos.Embeddings.FindNearest(ctx, query, 10, storage.EmbeddingFilter{DocumentID: 2})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "far", hits[0].Content)
	})

	t.Run("document and fund filter", func(t *testing.T) {
		hits, err := repos.Embeddings.FindNearest(ctx, query, 10, storage.EmbeddingFilter{DocumentID: 3, FundID: 1})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := repos.Embeddings.FindNearest(ctx, []float32{1, 0}, 10, storage.EmbeddingFilter{})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := repos.Embeddings.FindNearest(ctx, query, 0, storage.EmbeddingFilter{})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestFindNearest_EmptyStore(t *testing.T) {
	repos := newTestRepositories(t)

	hits, err := repos.Embeddings.FindNearest(context.Background(), []float32{1, 0}, 5, storage.EmbeddingFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteByDocument(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	_, err := repos.Embeddings.AddEmbeddings(ctx,
		embedding(1, 1, "a", 1, 0),
		embedding(1, 1, "b", 0, 1),
		embedding(2, 1, "c", 1, 1),
	)
	require.NoError(t, err)

	removed, err := repos.Embeddings.DeleteByDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	hits, err := repos.Embeddings.FindNearest(ctx, []float32{1, 0}, 10, storage.EmbeddingFilter{FundID: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].Content)

	removed, err = repos.Embeddings.DeleteByDocument(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestListEmbeddings_Pages(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	for _, content := range []string{"a", "b", "c"} {
		_, err := repos.Embeddings.AddEmbeddings(ctx, embedding(1, 1, content, 1, 0))
		require.NoError(t, err)
	}

	page, err := repos.Embeddings.ListEmbeddings(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].Content)
	assert.Equal(t, []float32{1, 0}, page[0].Vector)

	rest, err := repos.Embeddings.ListEmbeddings(ctx, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Content)
}

func TestUpdateVectors(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	added, err := repos.Embeddings.AddEmbeddings(ctx, embedding(1, 1, "a", 1, 0))
	require.NoError(t, err)
	id := added[0].ID

	require.NoError(t, repos.Embeddings.ResetSchema(ctx, 3))
	require.NoError(t, repos.Embeddings.UpdateVectors(ctx, map[core.ID][]float32{id: {0, 0, 1}}))

	hits, err := repos.Embeddings.FindNearest(ctx, []float32{0, 0, 1}, 1, storage.EmbeddingFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 0.0001)

	err = repos.Embeddings.UpdateVectors(ctx, map[core.ID][]float32{id + 100: {0, 0, 1}})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = repos.Embeddings.UpdateVectors(ctx, map[core.ID][]float32{id: {1, 0}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestCountEmbeddings(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 2))

	count, err := repos.Embeddings.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repos.Embeddings.AddEmbeddings(ctx,
		embedding(1, 1, "a", 1, 0),
		embedding(1, 1, "b", 0, 1),
		embedding(2, 1, "c", 1, 1))
	require.NoError(t, err)

	count, err = repos.Embeddings.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = repos.Embeddings.DeleteByDocument(ctx, 1)
	require.NoError(t, err)
	count, err = repos.Embeddings.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// newSmallTxnRepositories opens in-memory repositories whose transactions
// hold well under a megabyte.
func newSmallTxnRepositories(t *testing.T) *Repositories {
	t.Helper()
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithMemTableSize(4 << 20).
		WithValueThreshold(64 << 10)
	backend, err := openBackend(opts)
	require.NoError(t, err)

	repos, err := OpenRepositories(backend)
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func largeBatch(n, dims int) []*core.EmbeddingRecord {
	content := strings.Repeat("x", 1000)
	records := make([]*core.EmbeddingRecord, n)
	for i := range records {
		vector := make([]float32, dims)
		vector[i%dims] = 1
		records[i] = &core.EmbeddingRecord{DocumentID: 1, FundID: 1, ChunkIndex: i, Content: content, Vector: vector}
	}
	return records
}

func TestAddEmbeddings_LargerThanOneTransaction(t *testing.T) {
	repos := newSmallTxnRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Embeddings.EnsureSchema(ctx, 256))

	records := largeBatch(1000, 256)

	err := repos.Backend().WithTx(func(tx *badger.Txn) error {
		for i, record := range records {
			record.ID = core.ID(i + 1)
			if err := writeEmbedding(tx, record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	require.ErrorIs(t, err, badger.ErrTxnTooBig, "batch must exceed a single transaction")
	clearIDs(records)

	added, err := repos.Embeddings.AddEmbeddings(ctx, records...)
	require.NoError(t, err)
	require.Len(t, added, 1000)

	seen := make(map[core.ID]bool)
	for _, record := range added {
		assert.NotZero(t, record.ID)
		seen[record.ID] = true
	}
	assert.Len(t, seen, 1000)

	count, err := repos.Embeddings.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, count)

	hits, err := repos.Embeddings.FindNearest(ctx, records[999].Vector, 1, storage.EmbeddingFilter{FundID: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

// expiringContext reports cancellation once its first n Err calls are used.
type expiringContext struct {
	context.Context
	remaining int
}

func (c *expiringContext) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}
	c.remaining--
	return nil
}

func TestAddEmbeddings_FailureAfterPartialCommitRemovesRecords(t *testing.T) {
	repos := newSmallTxnRepositories(t)
	require.NoError(t, repos.Embeddings.EnsureSchema(context.Background(), 256))

	records := largeBatch(1000, 256)
	ctx := &expiringContext{Context: context.Background(), remaining: 2}

	_, err := repos.Embeddings.AddEmbeddings(ctx, records...)
	require.ErrorIs(t, err, context.Canceled)
	for _, record := range records {
		assert.Zero(t, record.ID)
	}

	count, err := repos.Embeddings.CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	hits, err := repos.Embeddings.FindNearest(context.Background(), records[0].Vector, 5, storage.EmbeddingFilter{DocumentID: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
