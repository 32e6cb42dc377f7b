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

package fundlens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/ai/providers"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/extract"
	"github.com/poiesic/fundlens/ingestion"
	"github.com/poiesic/fundlens/metrics"
	"github.com/poiesic/fundlens/query"
	"github.com/poiesic/fundlens/reembed"
	"github.com/poiesic/fundlens/storage"
	"github.com/poiesic/fundlens/storage/badger"
	"github.com/poiesic/fundlens/tables"
	"github.com/poiesic/fundlens/vectorstore"
	"github.com/poiesic/fundlens/workpool"
)

// Database wires storage, providers, ingestion, retrieval and the query
// engine over one badger directory.
type Database struct {
	repos           *badger.Repositories
	pool            *workpool.Pool
	registry        *ai.Registry
	releaseEmbedder func()
	store           *vectorstore.Store
	pipeline        *ingestion.Pipeline
	calculator      *metrics.Calculator
	engine          *query.Engine
	logger          *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig       *ai.Config
	registry       *ai.Registry
	inMemory       bool
	poolSize       int
	jobPoolSize    int
	topK           int
	embedBatchSize int
	keywords       *tables.Keywords
	chunkerOpts    []ingestion.ChunkerOption
	logger         *slog.Logger
}

// WithAIConfig selects the embedding and LLM providers.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithRegistry supplies a ready provider registry instead of building one
// from the AI config. The Database takes ownership and closes it.
func WithRegistry(registry *ai.Registry) DatabaseOption {
	return func(o *databaseOptions) {
		o.registry = registry
	}
}

// InMemory keeps all data in memory. The path argument is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithPoolSize bounds concurrent blocking work (embedding, search, LLM).
// Default is workpool.DefaultSize().
func WithPoolSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.poolSize = size
	}
}

// WithJobPoolSize bounds how many documents are processed at once.
func WithJobPoolSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.jobPoolSize = size
	}
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) DatabaseOption {
	return func(o *databaseOptions) {
		o.topK = k
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per provider call.
func WithEmbedBatchSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedBatchSize = size
	}
}

// WithKeywords replaces the table classification keywords.
func WithKeywords(k *tables.Keywords) DatabaseOption {
	return func(o *databaseOptions) {
		o.keywords = k
	}
}

// WithChunkerOptions configures text chunking.
func WithChunkerOptions(opts ...ingestion.ChunkerOption) DatabaseOption {
	return func(o *databaseOptions) {
		o.chunkerOpts = append(o.chunkerOpts, opts...)
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func applyOptions(opts []DatabaseOption) *databaseOptions {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		poolSize: workpool.DefaultSize(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return options
}

// openStorage opens the repositories and the provider registry.
func openStorage(filePath string, options *databaseOptions) (*badger.Repositories, *ai.Registry, error) {
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, nil, err
	}
	repos, err := badger.OpenRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	registry := options.registry
	if registry == nil {
		registry = ai.NewRegistry()
		if err := providers.Register(registry, options.aiConfig); err != nil {
			repos.Close()
			return nil, nil, err
		}
	}
	return repos, registry, nil
}

// NewDatabase opens or creates a database at filePath. The embedding
// provider is built immediately because the vector schema depends on its
// dimension; the LLM is built on the first question.
func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)

	repos, registry, err := openStorage(filePath, options)
	if err != nil {
		return nil, err
	}

	db := &Database{
		repos:    repos,
		registry: registry,
		logger:   options.logger.With("component", "database"),
	}
	if err := db.build(ctx, options); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) build(ctx context.Context, options *databaseOptions) error {
	pool, err := workpool.New(options.poolSize)
	if err != nil {
		return err
	}
	db.pool = pool

	embedder, release, err := db.registry.Embedder(ctx)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}
	db.releaseEmbedder = release

	storeOpts := []vectorstore.Option{vectorstore.WithLogger(options.logger)}
	if options.embedBatchSize > 0 {
		storeOpts = append(storeOpts, vectorstore.WithEmbedBatchSize(options.embedBatchSize))
	}
	db.store, err = vectorstore.New(ctx, db.repos.Embeddings, embedder, pool, storeOpts...)
	if err != nil {
		return err
	}

	parserOpts := []tables.Option{}
	if options.keywords != nil {
		parserOpts = append(parserOpts, tables.WithKeywords(options.keywords))
	}
	parser, err := tables.NewParser(parserOpts...)
	if err != nil {
		return err
	}
	chunker, err := ingestion.NewChunker(options.chunkerOpts...)
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithParser(parser),
		ingestion.WithChunker(chunker),
	}
	if options.jobPoolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.jobPoolSize))
	}
	db.pipeline, err = ingestion.NewPipeline(db.repos.Documents, db.repos.Transactions, db.store, pipelineOpts...)
	if err != nil {
		return err
	}

	db.calculator, err = metrics.NewCalculator(db.repos.Transactions, metrics.WithLogger(options.logger))
	if err != nil {
		return err
	}

	engineOpts := []query.Option{query.WithLogger(options.logger)}
	if options.topK > 0 {
		engineOpts = append(engineOpts, query.WithTopK(options.topK))
	}
	db.engine, err = query.NewEngine(db.store, db.calculator, db.registry, pool, engineOpts...)
	return err
}

// Close waits for queued documents to finish and then releases every
// component. Safe to call on a partially built Database.
func (db *Database) Close() error {
	if db.pipeline != nil {
		db.pipeline.Wait()
		db.pipeline.Release()
	}
	if db.releaseEmbedder != nil {
		db.releaseEmbedder()
	}
	if db.pool != nil {
		db.pool.Release()
	}

	var errs []error
	if err := db.registry.Close(); err != nil {
		db.logger.Error("error closing AI providers", "err", err)
		errs = append(errs, err)
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repos.Documents
}

func (db *Database) TransactionRepository() storage.TransactionRepository {
	return db.repos.Transactions
}

func (db *Database) Pipeline() *ingestion.Pipeline {
	return db.pipeline
}

func (db *Database) Store() *vectorstore.Store {
	return db.store
}

func (db *Database) Engine() *query.Engine {
	return db.engine
}

// IngestFile queues the report at path for fundID. The file is hashed for
// the document record; src provides its extracted pages.
func (db *Database) IngestFile(ctx context.Context, fundID core.ID, path string, src extract.Source) (*core.Document, error) {
	hash, err := hashFile(path)
	if err != nil {
		return nil, err
	}
	return db.pipeline.Ingest(ctx, ingestion.IngestRequest{
		FundID:      fundID,
		FileName:    filepath.Base(path),
		FilePath:    path,
		ContentHash: hash,
		Source:      src,
	})
}

// Reingest processes a finished document again from src.
func (db *Database) Reingest(ctx context.Context, documentID core.ID, src extract.Source) (*core.Document, error) {
	return db.pipeline.Reingest(ctx, documentID, src)
}

// Wait blocks until every queued document is processed.
func (db *Database) Wait() {
	db.pipeline.Wait()
}

// Document returns a document with its processing status.
func (db *Database) Document(ctx context.Context, id core.ID) (*core.Document, error) {
	return db.repos.Documents.GetDocument(ctx, id)
}

// Documents lists a fund's documents. A zero fundID lists all of them.
func (db *Database) Documents(ctx context.Context, fundID core.ID) ([]*core.Document, error) {
	return db.repos.Documents.ListDocuments(ctx, fundID)
}

// DeleteDocument removes a document with its ledger entries and chunks.
// Documents still being ingested are refused with ingestion.ErrDocumentBusy.
func (db *Database) DeleteDocument(ctx context.Context, id core.ID) error {
	return db.pipeline.Delete(ctx, id)
}

// Search returns the k chunks most similar to text, optionally within one
// fund.
func (db *Database) Search(ctx context.Context, text string, k int, fundID core.ID) ([]core.SearchHit, error) {
	var filter vectorstore.Filter
	if fundID != 0 {
		filter = vectorstore.Filter{vectorstore.FilterFundID: fundID}
	}
	return db.store.Search(ctx, text, k, filter)
}

// Metrics computes a fund's performance metrics.
func (db *Database) Metrics(ctx context.Context, fundID core.ID) (core.Metrics, error) {
	return db.calculator.CalculateAll(ctx, fundID)
}

// Query answers a question. Failures are reported in the answer text.
func (db *Database) Query(ctx context.Context, req query.Request) core.QueryResult {
	return db.engine.Process(ctx, req)
}

// Reembed rewrites every stored chunk vector with the configured embedding
// provider. It must run without an open Database on the same path, since
// opening one fails once the provider's dimension has changed.
func Reembed(ctx context.Context, filePath string, config *reembed.Config, progress io.Writer, opts ...DatabaseOption) (int, error) {
	options := applyOptions(opts)

	repos, registry, err := openStorage(filePath, options)
	if err != nil {
		return 0, err
	}
	defer repos.Close()
	defer registry.Close()

	embedder, release, err := registry.Embedder(ctx)
	if err != nil {
		return 0, fmt.Errorf("building embedder: %w", err)
	}
	defer release()

	cfg := reembed.DefaultConfig()
	if config != nil {
		cfg = new(reembed.Config)
		*cfg = *config
	}
	if cfg.Logger == nil {
		cfg.Logger = options.logger
	}
	r, err := reembed.NewReembedder(repos.Embeddings, embedder, cfg, progress)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return core.HashContent(data), nil
}
