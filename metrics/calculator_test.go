package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage/badger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	entries []*core.LedgerEntry
	err     error
}

func (s *stubLedger) ListTransactions(ctx context.Context, fundID core.ID) ([]*core.LedgerEntry, error) {
	return s.entries, s.err
}

func tx(date, amount string) core.Transaction {
	return core.Transaction{Date: date, Amount: decimal.RequireFromString(amount)}
}

func entry(record core.TransactionRecord) *core.LedgerEntry {
	return &core.LedgerEntry{FundID: 1, Record: record}
}

func requireMetric(t *testing.T, m core.Metrics, name, want string) {
	t.Helper()
	value, ok := m[name]
	require.True(t, ok, "metric %s missing", name)
	require.NotNil(t, value, "metric %s is nil", name)
	assert.True(t, decimal.RequireFromString(want).Equal(*value), "%s: got %s, want %s", name, value, want)
}

func TestNewCalculator_RequiresLedger(t *testing.T) {
	_, err := NewCalculator(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestCalculateAll(t *testing.T) {
	ledger := &stubLedger{entries: []*core.LedgerEntry{
		entry(core.CapitalCallRecord{Transaction: tx("2023-01-01", "1000")}),
		entry(core.DistributionRecord{Transaction: tx("2024-01-01", "1100")}),
		entry(core.AdjustmentRecord{Transaction: tx("2023-06-30", "50"), IsContributionAdjustment: false}),
	}}
	c, err := NewCalculator(ledger)
	require.NoError(t, err)

	m, err := c.CalculateAll(context.Background(), 1)
	require.NoError(t, err)

	requireMetric(t, m, PaidInCapital, "1000")
	requireMetric(t, m, TotalDistributions, "1100")
	requireMetric(t, m, DPI, "1.1")
	requireMetric(t, m, IRR, "0.1")

	for _, name := range []string{TVPI, MOIC} {
		value, ok := m[name]
		assert.True(t, ok, name)
		assert.Nil(t, value, name)
	}
}

func TestCalculateAll_ContributionAdjustments(t *testing.T) {
	ledger := &stubLedger{entries: []*core.LedgerEntry{
		entry(core.CapitalCallRecord{Transaction: tx("2023-01-01", "1000")}),
		entry(core.AdjustmentRecord{Transaction: tx("2023-02-01", "-200"), IsContributionAdjustment: true}),
		entry(core.DistributionRecord{Transaction: tx("2023-12-31", "-400")}),
	}}
	c, err := NewCalculator(ledger)
	require.NoError(t, err)

	m, err := c.CalculateAll(context.Background(), 1)
	require.NoError(t, err)

	requireMetric(t, m, PaidInCapital, "800")
	requireMetric(t, m, TotalDistributions, "400")
	requireMetric(t, m, DPI, "0.5")
	require.NotNil(t, m[IRR])
	assert.True(t, m[IRR].IsNegative())
}

func TestCalculateAll_EmptyLedger(t *testing.T) {
	c, err := NewCalculator(&stubLedger{})
	require.NoError(t, err)

	m, err := c.CalculateAll(context.Background(), 1)
	require.NoError(t, err)

	requireMetric(t, m, PaidInCapital, "0")
	requireMetric(t, m, TotalDistributions, "0")
	assert.Nil(t, m[DPI])
	assert.Nil(t, m[IRR])
}

func TestCalculateAll_LedgerError(t *testing.T) {
	c, err := NewCalculator(&stubLedger{err: errors.New("disk gone")})
	require.NoError(t, err)

	_, err = c.CalculateAll(context.Background(), 1)
	assert.ErrorContains(t, err, "disk gone")
}

func TestCalculateAll_FromStorage(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	batch, err := repos.Transactions.BeginBatch(ctx, 7, 0)
	require.NoError(t, err)
	_, err = batch.Add(ctx, core.CapitalCallRecord{Transaction: tx("2022-01-01", "500000"), CallType: "Initial"})
	require.NoError(t, err)
	_, err = batch.Add(ctx, core.DistributionRecord{Transaction: tx("2023-01-01", "125000"), DistributionType: "Income"})
	require.NoError(t, err)
	require.NoError(t, batch.Commit(ctx))

	c, err := NewCalculator(repos.Transactions)
	require.NoError(t, err)

	m, err := c.CalculateAll(ctx, 7)
	require.NoError(t, err)
	requireMetric(t, m, DPI, "0.25")

	other, err := c.CalculateAll(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, other[DPI])
}

func TestXIRR(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(core.DateLayout, s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		name  string
		flows []CashFlow
		want  float64
	}{
		{
			name: "one year ten percent",
			flows: []CashFlow{
				{Date: day("2023-01-01"), Amount: decimal.NewFromInt(-1000)},
				{Date: day("2024-01-01"), Amount: decimal.NewFromInt(1100)},
			},
			want: 0.1,
		},
		{
			name: "unsorted input",
			flows: []CashFlow{
				{Date: day("2025-01-01"), Amount: decimal.NewFromInt(1210)},
				{Date: day("2023-01-01"), Amount: decimal.NewFromInt(-1000)},
			},
			want: 0.1,
		},
		{
			name: "loss",
			flows: []CashFlow{
				{Date: day("2023-01-01"), Amount: decimal.NewFromInt(-1000)},
				{Date: day("2024-01-01"), Amount: decimal.NewFromInt(500)},
			},
			want: -0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := XIRR(tt.flows)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestXIRR_NotComputable(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := XIRR(nil)
	assert.ErrorIs(t, err, ErrNoConvergence)

	_, err = XIRR([]CashFlow{
		{Date: now, Amount: decimal.NewFromInt(-1)},
		{Date: now.AddDate(1, 0, 0), Amount: decimal.NewFromInt(-1)},
	})
	assert.ErrorIs(t, err, ErrNoConvergence)

	rate, err := XIRR([]CashFlow{
		{Date: now, Amount: decimal.NewFromInt(-1)},
		{Date: now.AddDate(1, 0, 0), Amount: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	assert.Less(t, math.Abs(rate), 1e-6)
}
