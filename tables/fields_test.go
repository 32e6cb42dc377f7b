package tables

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"15/01/2024", "2024-01-15", true},
		{"01/15/2024", "2024-01-15", true},
		{"02/03/2024", "2024-02-03", true},
		{"15-01-2024", "2024-01-15", true},
		{"2024/1/5", "2024-01-05", true},
		{"Paid on 3/7/2024", "2024-03-07", true},
		{"2024-02-29", "2024-02-29", true},
		{"2023-02-30", "", false},
		{"13/13/2024", "", false},
		{"TBD", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "$1,500,000.00", want: "1500000"},
		{in: "(250,000)", want: "-250000"},
		{in: "-300.50", want: "-300.5"},
		{in: "USD 2,000", want: "2000"},
		{in: "€ 1 234", want: "1234"},
		{in: "£99", want: "99"},
		{in: "0", want: "0"},
		{in: "0.1", want: "0.1"},
		{in: "5.5M", wantErr: ErrAbbreviatedAmount},
		{in: "200k", wantErr: ErrAbbreviatedAmount},
		{in: "1 B", wantErr: ErrAbbreviatedAmount},
		{in: "", wantErr: ErrEmptyAmount},
		{in: "N/A", wantErr: ErrNotAmount},
		{in: "01/15/2024", wantErr: ErrNotAmount},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseAmount_IsExact(t *testing.T) {
	a, err := ParseAmount("0.10")
	require.NoError(t, err)
	b, err := ParseAmount("0.20")
	require.NoError(t, err)

	assert.True(t, a.Add(b).Equal(decimal.RequireFromString("0.3")))
}

func TestRow_Columns(t *testing.T) {
	r := row{
		headers: []string{"date", "amount ($)", "total"},
		cells:   []string{"2024-01-01", "10"},
	}

	// The third header has no cell and is ignored.
	assert.Equal(t, []string{"10"}, r.columns([]string{"amount", "total"}))
	assert.Nil(t, r.columns([]string{"memo"}))
}

func TestRow_RecallableHeaderWins(t *testing.T) {
	k := DefaultKeywords()

	withHeader := row{headers: []string{"date", "recallable"}, cells: []string{"2024-01-01", "Y"}}
	assert.True(t, withHeader.recallable(k))

	explicitNo := row{headers: []string{"recallable", "note"}, cells: []string{"no", "recallable per LPA"}}
	assert.False(t, explicitNo.recallable(k), "a recallable column decides even when other cells mention it")

	scanned := row{headers: []string{"date", "note"}, cells: []string{"2024-01-01", "Subject to recall"}}
	assert.True(t, scanned.recallable(k))
}
