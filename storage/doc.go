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

// Package storage provides the storage abstraction layer for fundlens.
//
// This package defines repository interfaces that decouple persistence from
// ingestion and query logic. The BadgerDB implementation lives in
// storage/badger.
//
// # Architecture
//
//   - DocumentRepository: uploaded documents and their processing state
//   - TransactionRepository: the cash-flow ledger, written one table at a time
//     through a TransactionBatch
//   - EmbeddingRepository: chunk embeddings, the schema dimension, and
//     nearest-neighbour search with document and fund filters
//
// Deleting a document cascades to its ledger entries and embeddings.
//
// # Usage
//
//	repos, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// # Thread Safety
//
// Repository implementations are safe for concurrent use. A TransactionBatch
// belongs to the goroutine that opened it.
package storage
