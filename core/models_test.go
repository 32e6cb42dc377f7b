package core

import (
	"testing"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "empty", content: nil},
		{name: "short", content: []byte("capital call notice")},
		{name: "binary", content: []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := HashContent(tt.content)
			h2 := HashContent(tt.content)
			if h1 != h2 {
				t.Errorf("HashContent() not deterministic: %s vs %s", h1, h2)
			}
			if len(h1) != 64 {
				t.Errorf("HashContent() length = %d, want 64", len(h1))
			}
		})
	}
}

func TestHashContent_Different(t *testing.T) {
	if HashContent([]byte("report a")) == HashContent([]byte("report b")) {
		t.Errorf("HashContent() produced same digest for different content")
	}
}

func TestTableType_String(t *testing.T) {
	tests := []struct {
		typ  TableType
		want string
	}{
		{TableUnknown, "unknown"},
		{TableCapitalCall, "capital_call"},
		{TableDistribution, "distribution"},
		{TableAdjustment, "adjustment"},
		{TableType(42), "TableType(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTableType(t *testing.T) {
	for _, typ := range []TableType{TableUnknown, TableCapitalCall, TableDistribution, TableAdjustment} {
		got, err := ParseTableType(typ.String())
		if err != nil {
			t.Fatalf("ParseTableType(%q) error = %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseTableType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}

	if _, err := ParseTableType("commitment"); err == nil {
		t.Errorf("ParseTableType() accepted unknown name")
	}
}

func TestClassificationPriority(t *testing.T) {
	want := [...]TableType{TableAdjustment, TableDistribution, TableCapitalCall}
	if ClassificationPriority != want {
		t.Errorf("ClassificationPriority = %v, want %v", ClassificationPriority, want)
	}
}

func TestDocumentStatus_Terminal(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusCompletedWithErrors, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessingStats_StoredCount(t *testing.T) {
	stats := &ProcessingStats{CapitalCalls: 2, Distributions: 3, Adjustments: 1, TextChunks: 9}
	if got := stats.StoredCount(); got != 6 {
		t.Errorf("StoredCount() = %d, want 6", got)
	}
}

func TestTextChunk_Metadata(t *testing.T) {
	chunk := TextChunk{Text: "x", PageNumber: 3, ChunkIndex: 7, DocumentID: 11, FundID: 5}
	want := ChunkMetadata{DocumentID: 11, FundID: 5, PageNumber: 3, ChunkIndex: 7}
	if got := chunk.Metadata(); got != want {
		t.Errorf("Metadata() = %+v, want %+v", got, want)
	}
}
