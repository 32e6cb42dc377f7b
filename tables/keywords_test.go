package tables

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/fundlens/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeywords(t *testing.T) {
	k := DefaultKeywords()

	assert.Contains(t, k.Classification.CapitalCall, "capital call")
	assert.Contains(t, k.Classification.Distribution, "distribution")
	assert.Contains(t, k.Classification.Adjustment, "recallable")
	assert.Equal(t, Weights{CapitalCall: 1, Distribution: 1, Adjustment: 2}, k.Weights)
	assert.Contains(t, k.Fields.Amount, "$")
	assert.Equal(t, []string{"yes", "true", "1", "y", "t"}, k.Truthy)
}

func TestDefaultKeywords_ReturnsCopies(t *testing.T) {
	a := DefaultKeywords()
	a.Classification.Distribution[0] = "changed"

	b := DefaultKeywords()
	assert.Equal(t, "distribution", b.Classification.Distribution[0])
}

func TestLoadKeywords_PartialOverride(t *testing.T) {
	k, err := LoadKeywords(strings.NewReader(`
classification:
  distribution: [Payout]
weights:
  capital_call: 1
  distribution: 3
  adjustment: 2
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"payout"}, k.Classification.Distribution)
	assert.Equal(t, DefaultKeywords().Classification.CapitalCall, k.Classification.CapitalCall)
	assert.Equal(t, 3, k.Weights.Distribution)
	assert.Equal(t, DefaultKeywords().Fields, k.Fields)
}

func TestLoadKeywords_Empty(t *testing.T) {
	k, err := LoadKeywords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywords(), k)
}

func TestLoadKeywords_Errors(t *testing.T) {
	_, err := LoadKeywords(strings.NewReader("unknown_section: [a]\n"))
	assert.ErrorIs(t, err, ErrInvalidKeywords)

	_, err = LoadKeywords(strings.NewReader("weights:\n  adjustment: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidKeywords)
}

func TestLoadKeywordsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classification:\n  adjustment: [restatement]\n"), 0o600))

	k, err := LoadKeywordsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"restatement"}, k.Classification.Adjustment)

	_, err = LoadKeywordsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWithKeywords_ChangesClassification(t *testing.T) {
	k, err := LoadKeywords(strings.NewReader("classification:\n  distribution: [payout]\n"))
	require.NoError(t, err)

	p, err := NewParser(WithKeywords(k))
	require.NoError(t, err)

	table := core.RawTable{
		{"Date", "Payout", "Amount"},
		{"2024-01-01", "x", "10"},
	}
	assert.Equal(t, core.TableDistribution, p.Classify(table))

	_, err = NewParser(WithKeywords(nil))
	assert.ErrorIs(t, err, ErrInvalidKeywords)
}
