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

package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/vectorstore"
	"github.com/poiesic/fundlens/workpool"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Retriever finds report text similar to a question. *vectorstore.Store
// implements it.
type Retriever interface {
	Search(ctx context.Context, query string, k int, filter vectorstore.Filter) ([]core.SearchHit, error)
}

// MetricsSource computes fund metrics. *metrics.Calculator implements it.
type MetricsSource interface {
	CalculateAll(ctx context.Context, fundID core.ID) (core.Metrics, error)
}

// Request is one question, optionally scoped to a fund.
type Request struct {
	Query string
	// FundID limits retrieval and enables metrics. Zero searches every fund.
	FundID  core.ID
	History []ai.Message
}

// Engine answers questions. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	retriever Retriever
	metrics   MetricsSource
	registry  *ai.Registry
	pool      *workpool.Pool
	topK      int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTopK sets how many chunks are retrieved per question.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(e *Engine) error {
		if k < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
		}
		e.topK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "query")
		return nil
	}
}

// NewEngine creates an engine. The chat model is acquired from registry
// for each question.
func NewEngine(retriever Retriever, metrics MetricsSource, registry *ai.Registry, pool *workpool.Pool, opts ...Option) (*Engine, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if metrics == nil {
		return nil, ErrMetricsRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if pool == nil {
		return nil, ErrPoolRequired
	}

	e := &Engine{
		retriever: retriever,
		metrics:   metrics,
		registry:  registry,
		pool:      pool,
		topK:      DefaultTopK,
		logger:    slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Process answers a question. It never fails: any error produces an
// apology as the answer with no sources or metrics.
func (e *Engine) Process(ctx context.Context, req Request) core.QueryResult {
	start := time.Now()

	result, err := e.safeAnswer(ctx, req)
	if err != nil {
		e.logger.Error("error processing query", "fund_id", req.FundID, "err", err)
		result = core.QueryResult{
			Answer:  fmt.Sprintf("I apologize, but I encountered an error: %v", err),
			Sources: []core.Source{},
		}
	}

	result.ProcessingTime = math.Round(time.Since(start).Seconds()*100) / 100
	return result
}

// safeAnswer runs answer, turning a panic on the calling goroutine into an
// error.
func (e *Engine) safeAnswer(ctx context.Context, req Request) (result core.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = core.QueryResult{}, fmt.Errorf("%w: %v", workpool.ErrPanic, r)
		}
	}()
	return e.answer(ctx, req)
}

func (e *Engine) answer(ctx context.Context, req Request) (core.QueryResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return core.QueryResult{}, ErrEmptyQuery
	}

	intent := ClassifyIntent(req.Query)
	logger := e.logger.With("fund_id", req.FundID, "intent", intent)

	var filter vectorstore.Filter
	if req.FundID != 0 {
		filter = vectorstore.Filter{vectorstore.FilterFundID: req.FundID}
	}
	hits, err := e.retriever.Search(ctx, req.Query, e.topK, filter)
	if err != nil {
		return core.QueryResult{}, fmt.Errorf("retrieving context: %w", err)
	}
	logger.Debug("retrieved context", "hits", len(hits))

	var metrics core.Metrics
	if req.FundID != 0 && intent.needsMetrics() {
		metrics, err = workpool.Do(ctx, e.pool, func(ctx context.Context) (core.Metrics, error) {
			return e.metrics.CalculateAll(ctx, req.FundID)
		})
		if err != nil {
			return core.QueryResult{}, fmt.Errorf("calculating metrics: %w", err)
		}
	}

	model, release, err := e.registry.ChatModel(ctx)
	if err != nil {
		return core.QueryResult{}, err
	}
	defer release()

	messages := BuildMessages(req.Query, hits, metrics, req.History)
	answer, err := workpool.Do(ctx, e.pool, func(ctx context.Context) (string, error) {
		return model.Generate(ctx, messages)
	})
	if err != nil {
		return core.QueryResult{}, fmt.Errorf("generating answer: %w", err)
	}

	return core.QueryResult{
		Answer:  answer,
		Sources: sourcesFrom(hits),
		Metrics: metrics,
	}, nil
}
