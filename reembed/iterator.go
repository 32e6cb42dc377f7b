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

package reembed

import (
	"context"

	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// DefaultBatchSize is the number of chunks fetched per page.
const DefaultBatchSize = 100

// ChunkIterator pages through stored chunks in ID order.
type ChunkIterator struct {
	repo      storage.EmbeddingRepository
	batchSize int
}

// NewChunkIterator creates an iterator. A batchSize below 1 uses
// DefaultBatchSize.
func NewChunkIterator(repo storage.EmbeddingRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each page of chunks. It stops at the first error
// from fn or the repository, and checks ctx between pages. Only one page
// is held in memory at a time.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.EmbeddingRecord) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.ListEmbeddings(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		if len(page) < it.batchSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}
