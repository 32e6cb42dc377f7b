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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Logger receives debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder rewrites every stored chunk vector with a new embedder.
type Reembedder struct {
	repo      storage.EmbeddingRepository
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *ChunkIterator
}

// NewReembedder creates a reembedder. Progress lines are written to
// progress, typically os.Stderr; nil discards them.
func NewReembedder(repo storage.EmbeddingRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reembed")

	return &Reembedder{
		repo:      repo,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		logger:    logger,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay, logger),
		iterator:  NewChunkIterator(repo, config.BatchSize),
	}, nil
}

// Run re-embeds every stored chunk and returns how many were rewritten.
// The schema dimension is reset to the embedder's first, so a run that
// fails part way can simply be repeated.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total, err := r.repo.CountEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}

	dims := r.embedder.Dimensions()
	current, err := r.repo.SchemaDimensions(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading schema: %w", err)
	}
	if current != dims {
		r.logger.Info("resetting vector schema", "from", current, "to", dims)
		if err := r.repo.ResetSchema(ctx, dims); err != nil {
			return 0, fmt.Errorf("resetting schema: %w", err)
		}
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(chunks []*core.EmbeddingRecord) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("processing batch starting at chunk %d: %w", chunks[0].ID, err)
		}
		processed += len(chunks)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/max(elapsed.Seconds(), 1e-9))
	r.logger.Info("reembedding complete", "chunks", processed, "dimensions", dims)

	return processed, nil
}
