// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/shopspring/decimal"
)

// ID is a storage-assigned identifier. Sequences never issue 0, so the zero
// value means "absent" wherever an ID is optional.
type ID uint64

// HashContent returns the hex BLAKE2b-256 digest of an uploaded file.
func HashContent(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

const (
	StatusPending             DocumentStatus = "pending"
	StatusProcessing          DocumentStatus = "processing"
	StatusCompleted           DocumentStatus = "completed"
	StatusCompletedWithErrors DocumentStatus = "completed_with_errors"
	StatusFailed              DocumentStatus = "failed"
)

// Terminal reports whether no further processing will happen for the status.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	default:
		return false
	}
}

// ProcessingStats summarizes one ingestion run.
type ProcessingStats struct {
	TotalPages    int      `json:"total_pages"`
	TablesFound   int      `json:"tables_found"`
	CapitalCalls  int      `json:"capital_calls"`
	Distributions int      `json:"distributions"`
	Adjustments   int      `json:"adjustments"`
	TextChunks    int      `json:"text_chunks"`
	RowsSkipped   int      `json:"rows_skipped"`
	Errors        []string `json:"errors"`
}

// StoredCount is the number of transaction rows persisted during the run.
func (s *ProcessingStats) StoredCount() int {
	return s.CapitalCalls + s.Distributions + s.Adjustments
}

// Document is an uploaded fund report and its processing state.
type Document struct {
	ID           ID               `json:"id"`
	FundID       ID               `json:"fund_id"`
	FileName     string           `json:"file_name"`
	FilePath     string           `json:"file_path,omitempty"`
	ContentHash  string           `json:"content_hash,omitempty"`
	JobID        string           `json:"job_id,omitempty"`
	UploadedAt   time.Time        `json:"uploaded_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Status       DocumentStatus   `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Stats        *ProcessingStats `json:"stats,omitempty"`
	PageCount    int              `json:"page_count"`
	ChunkCount   int              `json:"chunk_count"`
}

// TextChunk is a bounded slice of a page's narrative text.
type TextChunk struct {
	Text       string
	PageNumber int
	ChunkIndex int
	DocumentID ID
	FundID     ID
}

// Metadata returns the metadata stored alongside the chunk's embedding.
func (c TextChunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		DocumentID: c.DocumentID,
		FundID:     c.FundID,
		PageNumber: c.PageNumber,
		ChunkIndex: c.ChunkIndex,
	}
}

// ChunkMetadata is serialized as the opaque metadata blob of an embedding.
type ChunkMetadata struct {
	DocumentID ID  `json:"document_id"`
	FundID     ID  `json:"fund_id"`
	PageNumber int `json:"page"`
	ChunkIndex int `json:"chunk_index"`
}

// EmbeddingRecord is one indexed chunk. It is owned by its document.
type EmbeddingRecord struct {
	ID         ID
	DocumentID ID
	FundID     ID
	ChunkIndex int
	Content    string
	Vector     []float32
	Metadata   []byte
	CreatedAt  time.Time
}

// SearchHit is an embedding record matched by similarity search.
// Score is 1 minus the cosine distance.
type SearchHit struct {
	ID         ID
	DocumentID ID
	FundID     ID
	ChunkIndex int
	Content    string
	Metadata   []byte
	Score      float32
}

// Metrics maps metric names to values. A nil value means the metric could
// not be computed.
type Metrics map[string]*decimal.Decimal

// Source is a retrieved chunk cited in a query answer.
type Source struct {
	Content    string  `json:"content"`
	DocumentID ID      `json:"document_id"`
	Score      float32 `json:"score"`
}

// QueryResult is the answer to a natural-language question.
type QueryResult struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Metrics        Metrics  `json:"metrics,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
}
