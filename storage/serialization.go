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

package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/poiesic/fundlens/core"
)

// MarshalID serializes an ID to 8 big-endian bytes so keys sort by ID.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalVector packs a vector as little-endian float32s.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// UnmarshalVector unpacks a vector written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, ErrTruncatedData
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vector, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// ledgerEnvelope tags the record variant so it can be restored.
type ledgerEnvelope struct {
	ID         core.ID         `json:"id"`
	FundID     core.ID         `json:"fund_id"`
	DocumentID core.ID         `json:"document_id"`
	Kind       string          `json:"kind"`
	Record     json.RawMessage `json:"record"`
	InsertedAt time.Time       `json:"inserted_at"`
}

// MarshalLedgerEntry serializes a LedgerEntry to bytes.
func MarshalLedgerEntry(entry *core.LedgerEntry) ([]byte, error) {
	if entry.Record == nil {
		return nil, fmt.Errorf("%w: ledger entry %d has no record", ErrSerializationFailed, entry.ID)
	}
	record, err := json.Marshal(entry.Record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	data, err := json.Marshal(ledgerEnvelope{
		ID:         entry.ID,
		FundID:     entry.FundID,
		DocumentID: entry.DocumentID,
		Kind:       entry.Record.Kind().String(),
		Record:     record,
		InsertedAt: entry.InsertedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalLedgerEntry deserializes a LedgerEntry from bytes.
func UnmarshalLedgerEntry(data []byte) (*core.LedgerEntry, error) {
	var env ledgerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	kind, err := core.ParseTableType(env.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	var record core.TransactionRecord
	switch kind {
	case core.TableCapitalCall:
		var r core.CapitalCallRecord
		err = json.Unmarshal(env.Record, &r)
		record = r
	case core.TableDistribution:
		var r core.DistributionRecord
		err = json.Unmarshal(env.Record, &r)
		record = r
	case core.TableAdjustment:
		var r core.AdjustmentRecord
		err = json.Unmarshal(env.Record, &r)
		record = r
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrSerializationFailed, core.ErrInvalidTableType, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	return &core.LedgerEntry{
		ID:         env.ID,
		FundID:     env.FundID,
		DocumentID: env.DocumentID,
		Record:     record,
		InsertedAt: env.InsertedAt,
	}, nil
}

// embeddingEnvelope holds an embedding record without its vector, which is
// stored under its own key.
type embeddingEnvelope struct {
	ID         core.ID   `json:"id"`
	DocumentID core.ID   `json:"document_id"`
	FundID     core.ID   `json:"fund_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Metadata   []byte    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarshalEmbeddingRecord serializes everything but the vector.
func MarshalEmbeddingRecord(record *core.EmbeddingRecord) ([]byte, error) {
	data, err := json.Marshal(embeddingEnvelope{
		ID:         record.ID,
		DocumentID: record.DocumentID,
		FundID:     record.FundID,
		ChunkIndex: record.ChunkIndex,
		Content:    record.Content,
		Metadata:   record.Metadata,
		CreatedAt:  record.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalEmbeddingRecord deserializes a record written by
// MarshalEmbeddingRecord. The returned record has no vector.
func UnmarshalEmbeddingRecord(data []byte) (*core.EmbeddingRecord, error) {
	var env embeddingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &core.EmbeddingRecord{
		ID:         env.ID,
		DocumentID: env.DocumentID,
		FundID:     env.FundID,
		ChunkIndex: env.ChunkIndex,
		Content:    env.Content,
		Metadata:   env.Metadata,
		CreatedAt:  env.CreatedAt,
	}, nil
}
