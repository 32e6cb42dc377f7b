package storage

import (
	"testing"
	"time"

	"github.com/poiesic/fundlens/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.Len(t, data, 8)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestMarshalID_SortsNumerically(t *testing.T) {
	assert.Less(t, string(MarshalID(9)), string(MarshalID(10)))
	assert.Less(t, string(MarshalID(255)), string(MarshalID(256)))
}

func TestUnmarshalID_Truncated(t *testing.T) {
	_, err := UnmarshalID([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0, -1.5, 3.25, 1e-7}

	decoded, err := UnmarshalVector(MarshalVector(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = UnmarshalVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestLedgerEntry_PreservesVariant(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []core.TransactionRecord{
		core.CapitalCallRecord{
			Transaction: core.Transaction{Date: "2024-01-15", Amount: decimal.RequireFromString("1500000.00")},
			CallType:    "Initial",
		},
		core.DistributionRecord{
			Transaction:      core.Transaction{Date: "2024-03-31", Amount: decimal.RequireFromString("250000"), Description: "ROC"},
			DistributionType: "Return of Capital",
			IsRecallable:     true,
		},
		&core.AdjustmentRecord{
			Transaction:              core.Transaction{Date: "2023-12-31", Amount: decimal.RequireFromString("-5000")},
			AdjustmentType:           "Fee Offset",
			Category:                 "Fees",
			IsContributionAdjustment: true,
		},
	}

	for _, record := range records {
		t.Run(record.Kind().String(), func(t *testing.T) {
			data, err := MarshalLedgerEntry(&core.LedgerEntry{
				ID: 7, FundID: 1, DocumentID: 2, Record: record, InsertedAt: now,
			})
			require.NoError(t, err)

			entry, err := UnmarshalLedgerEntry(data)
			require.NoError(t, err)
			assert.Equal(t, core.ID(7), entry.ID)
			assert.Equal(t, core.ID(1), entry.FundID)
			assert.Equal(t, core.ID(2), entry.DocumentID)
			assert.True(t, now.Equal(entry.InsertedAt))
			assert.Equal(t, record.Kind(), entry.Record.Kind())
			assert.True(t, record.Base().Amount.Equal(entry.Record.Base().Amount))
			assert.Equal(t, record.Base().Date, entry.Record.Base().Date)
		})
	}
}

func TestUnmarshalLedgerEntry_UnknownKind(t *testing.T) {
	_, err := UnmarshalLedgerEntry([]byte(`{"id":1,"kind":"unknown","record":{}}`))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalLedgerEntry([]byte(`{"id":1,"kind":"bogus","record":{}}`))
	assert.ErrorIs(t, err, core.ErrInvalidTableType)
}

func TestMarshalLedgerEntry_NilRecord(t *testing.T) {
	_, err := MarshalLedgerEntry(&core.LedgerEntry{ID: 1})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestEmbeddingRecord_OmitsVector(t *testing.T) {
	record := &core.EmbeddingRecord{
		ID:         3,
		DocumentID: 2,
		FundID:     1,
		ChunkIndex: 4,
		Content:    "narrative",
		Vector:     []float32{1, 2, 3},
		Metadata:   []byte(`{"page":1}`),
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := MarshalEmbeddingRecord(record)
	require.NoError(t, err)

	decoded, err := UnmarshalEmbeddingRecord(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Vector)
	assert.Equal(t, record.Content, decoded.Content)
	assert.Equal(t, record.Metadata, decoded.Metadata)
	assert.Equal(t, record.ChunkIndex, decoded.ChunkIndex)
}
