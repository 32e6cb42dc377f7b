package badger

import (
	"context"
	"testing"

	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capitalCall(date string, amount int64) core.CapitalCallRecord {
	return core.CapitalCallRecord{
		Transaction: core.Transaction{Date: date, Amount: decimal.NewFromInt(amount)},
		CallType:    "Regular Capital Call",
	}
}

func TestTransactionBatch_Commit(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	batch, err := repos.Transactions.BeginBatch(ctx, 1, 10)
	require.NoError(t, err)

	first, err := batch.Add(ctx, capitalCall("2024-01-15", 1000))
	require.NoError(t, err)
	second, err := batch.Add(ctx, core.DistributionRecord{
		Transaction:      core.Transaction{Date: "2024-06-30", Amount: decimal.NewFromInt(250)},
		DistributionType: "Return of Capital",
		IsRecallable:     true,
	})
	require.NoError(t, err)
	assert.Less(t, first.ID, second.ID)

	// Staged entries are invisible until commit
	before, err := repos.Transactions.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, before)

	require.NoError(t, batch.Commit(ctx))

	entries, err := repos.Transactions.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.TableCapitalCall, entries[0].Record.Kind())
	assert.Equal(t, core.TableDistribution, entries[1].Record.Kind())
	assert.Equal(t, core.ID(10), entries[1].DocumentID)
	assert.True(t, entries[1].Record.(core.DistributionRecord).IsRecallable)

	byDoc, err := repos.Transactions.ListDocumentTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	_, err = batch.Add(ctx, capitalCall("2024-01-15", 1))
	assert.ErrorIs(t, err, storage.ErrBatchClosed)
	assert.ErrorIs(t, batch.Commit(ctx), storage.ErrBatchClosed)
	batch.Rollback()
}

func TestTransactionBatch_Rollback(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	batch, err := repos.Transactions.BeginBatch(ctx, 1, 10)
	require.NoError(t, err)
	_, err = batch.Add(ctx, capitalCall("2024-01-15", 1000))
	require.NoError(t, err)
	batch.Rollback()

	entries, err := repos.Transactions.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransactionBatch_RejectsInvalidRecords(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	batch, err := repos.Transactions.BeginBatch(ctx, 1, 10)
	require.NoError(t, err)
	defer batch.Rollback()

	_, err = batch.Add(ctx, capitalCall("01/15/2024", 1000))
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = batch.Add(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransaction)

	_, err = repos.Transactions.BeginBatch(ctx, 0, 10)
	assert.ErrorIs(t, err, core.ErrMissingFund)
}

func TestListTransactions_SeparatesFunds(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	for _, fund := range []core.ID{1, 2, 1} {
		batch, err := repos.Transactions.BeginBatch(ctx, fund, 0)
		require.NoError(t, err)
		_, err = batch.Add(ctx, capitalCall("2024-01-15", int64(fund)))
		require.NoError(t, err)
		require.NoError(t, batch.Commit(ctx))
	}

	fund1, err := repos.Transactions.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, fund1, 2)

	fund2, err := repos.Transactions.ListTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, fund2, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(fund2[0].Record.Base().Amount))
}

func TestDeleteDocumentTransactions(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	for _, doc := range []core.ID{10, 10, 11} {
		batch, err := repos.Transactions.BeginBatch(ctx, 1, doc)
		require.NoError(t, err)
		_, err = batch.Add(ctx, capitalCall("2024-01-15", 100))
		require.NoError(t, err)
		require.NoError(t, batch.Commit(ctx))
	}

	removed, err := repos.Transactions.DeleteDocumentTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := repos.Transactions.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, core.ID(11), left[0].DocumentID)

	removed, err = repos.Transactions.DeleteDocumentTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
