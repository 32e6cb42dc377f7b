package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/extract"
	"github.com/poiesic/fundlens/storage"
	"github.com/poiesic/fundlens/tables"
)

// maxSummaryErrors bounds how many errors a partially successful document
// reports in its error message.
const maxSummaryErrors = 3

// Index stores chunk text for retrieval. *vectorstore.Store implements it.
type Index interface {
	Add(ctx context.Context, texts []string, metadata []core.ChunkMetadata) ([]core.ID, error)
	DeleteDocument(ctx context.Context, documentID core.ID) (int, error)
}

// Pipeline orchestrates the ingestion of fund reports.
// Documents are processed in the background on a bounded job pool.
type Pipeline struct {
	documents    storage.DocumentRepository
	transactions storage.TransactionRepository
	index        Index
	parser       *tables.Parser
	chunker      *Chunker
	jobPool      *ants.Pool
	jobs         sync.WaitGroup
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many documents are processed at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.jobPool != nil {
			p.jobPool.Release()
		}

		jobPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.jobPool = jobPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// WithParser sets the table parser.
// Default is a parser with the built-in keyword tables.
func WithParser(parser *tables.Parser) Option {
	return func(p *Pipeline) error {
		if parser != nil {
			p.parser = parser
		}
		return nil
	}
}

// WithChunker sets the text chunker.
// Default is NewChunker() with no options.
func WithChunker(chunker *Chunker) Option {
	return func(p *Pipeline) error {
		if chunker != nil {
			p.chunker = chunker
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	transactions storage.TransactionRepository,
	index Index,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if transactions == nil {
		return nil, ErrTransactionRepositoryRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	parser, err := tables.NewParser()
	if err != nil {
		return nil, err
	}
	chunker, err := NewChunker()
	if err != nil {
		return nil, err
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	jobPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents:    documents,
		transactions: transactions,
		index:        index,
		parser:       parser,
		chunker:      chunker,
		jobPool:      jobPool,
		logger:       slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestRequest describes an uploaded report.
type IngestRequest struct {
	FundID      core.ID
	FileName    string
	FilePath    string
	ContentHash string
	Source      extract.Source
}

// Ingest records a pending document and schedules it for processing. It
// returns as soon as the document is stored; poll the document's status
// to follow progress.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*core.Document, error) {
	if req.Source == nil {
		return nil, ErrSourceRequired
	}

	doc, err := p.documents.CreateDocument(ctx, &core.Document{
		FundID:      req.FundID,
		FileName:    req.FileName,
		FilePath:    req.FilePath,
		ContentHash: req.ContentHash,
		JobID:       uuid.NewString(),
		Status:      core.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	if err := p.Submit(doc.ID, req.Source); err != nil {
		p.fail(ctx, doc.ID, err)
		return doc, err
	}
	p.logger.Info("document queued", "document_id", doc.ID, "fund_id", doc.FundID, "job_id", doc.JobID)
	return doc, nil
}

// Reingest clears a document's ledger entries and indexed text, then
// schedules it for processing again from src.
func (p *Pipeline) Reingest(ctx context.Context, documentID core.ID, src extract.Source) (*core.Document, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}

	doc, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.Terminal() {
		return nil, fmt.Errorf("%w: document %d is %s", ErrDocumentBusy, doc.ID, doc.Status)
	}

	if _, err := p.transactions.DeleteDocumentTransactions(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("clearing ledger entries: %w", err)
	}
	if _, err := p.index.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("clearing indexed text: %w", err)
	}

	doc.Status = core.StatusPending
	doc.JobID = uuid.NewString()
	doc.ErrorMessage = ""
	doc.Stats = nil
	doc.PageCount = 0
	doc.ChunkCount = 0
	if doc, err = p.documents.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	if err := p.Submit(doc.ID, src); err != nil {
		p.fail(ctx, doc.ID, err)
		return doc, err
	}
	p.logger.Info("document requeued", "document_id", doc.ID, "job_id", doc.JobID)
	return doc, nil
}

// Delete removes a document with its ledger entries and indexed text. A
// document that is still queued or processing is refused with
// ErrDocumentBusy.
func (p *Pipeline) Delete(ctx context.Context, documentID core.ID) error {
	doc, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.Status.Terminal() {
		return fmt.Errorf("%w: document %d is %s", ErrDocumentBusy, doc.ID, doc.Status)
	}
	if err := p.documents.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	p.logger.Info("document deleted", "document_id", doc.ID, "fund_id", doc.FundID)
	return nil
}

// purge removes ledger entries and chunks left behind by a job whose
// document no longer exists.
func (p *Pipeline) purge(ctx context.Context, documentID core.ID) {
	if n, err := p.transactions.DeleteDocumentTransactions(ctx, documentID); err != nil {
		p.logger.Error("error purging ledger entries", "document_id", documentID, "err", err)
	} else if n > 0 {
		p.logger.Debug("purged ledger entries", "document_id", documentID, "count", n)
	}
	if n, err := p.index.DeleteDocument(ctx, documentID); err != nil {
		p.logger.Error("error purging indexed text", "document_id", documentID, "err", err)
	} else if n > 0 {
		p.logger.Debug("purged indexed text", "document_id", documentID, "count", n)
	}
}

// Submit schedules processing of an existing document. It blocks while
// the job pool is full.
func (p *Pipeline) Submit(documentID core.ID, src extract.Source) error {
	if src == nil {
		return ErrSourceRequired
	}
	p.jobs.Add(1)
	err := p.jobPool.Submit(func() {
		defer p.jobs.Done()
		p.run(context.Background(), documentID, src)
	})
	if err != nil {
		p.jobs.Done()
		return err
	}
	return nil
}

// Wait blocks until every submitted document has been processed.
func (p *Pipeline) Wait() {
	p.jobs.Wait()
}

// Release releases the job pool. Documents already running finish; the
// pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.jobPool != nil {
		p.jobPool.Release()
	}
}

// run processes one document and persists the outcome. A panic fails the
// document instead of the worker.
func (p *Pipeline) run(ctx context.Context, documentID core.ID, src extract.Source) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("document processing panicked", "document_id", documentID, "panic", r)
			p.fail(ctx, documentID, fmt.Errorf("panic: %v", r))
		}
	}()

	doc, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("error loading document", "document_id", documentID, "err", err)
		return
	}
	doc.Status = core.StatusProcessing
	if doc, err = p.documents.UpdateDocument(ctx, doc); err != nil {
		p.logger.Error("error marking document processing", "document_id", documentID, "err", err)
		return
	}

	status, stats := p.Process(ctx, src, doc.ID, doc.FundID)

	doc.Status = status
	doc.Stats = stats
	doc.PageCount = stats.TotalPages
	doc.ChunkCount = stats.TextChunks
	doc.ErrorMessage = ErrorSummary(status, stats)
	if _, err := p.documents.UpdateDocument(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted while processing: drop what this job wrote after the delete.
			p.logger.Warn("document deleted during processing", "document_id", documentID)
			p.purge(ctx, documentID)
			return
		}
		p.logger.Error("error saving document result", "document_id", documentID, "err", err)
		return
	}
	p.logger.Info("document processed",
		"document_id", doc.ID,
		"status", status,
		"pages", stats.TotalPages,
		"tables", stats.TablesFound,
		"transactions", stats.StoredCount(),
		"chunks", stats.TextChunks,
		"errors", len(stats.Errors))
}

// fail marks a document failed with err as its only error.
func (p *Pipeline) fail(ctx context.Context, documentID core.ID, cause error) {
	doc, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("error loading failed document", "document_id", documentID, "err", err)
		return
	}
	doc.Status = core.StatusFailed
	if doc.Stats == nil {
		doc.Stats = &core.ProcessingStats{}
	}
	doc.Stats.Errors = append(doc.Stats.Errors, cause.Error())
	doc.ErrorMessage = ErrorSummary(doc.Status, doc.Stats)
	if _, err := p.documents.UpdateDocument(ctx, doc); err != nil {
		p.logger.Error("error marking document failed", "document_id", documentID, "err", err)
	}
}

// Process extracts one report synchronously. Page, table and indexing
// failures are collected in the returned stats; processing continues past
// each of them.
func (p *Pipeline) Process(ctx context.Context, src extract.Source, documentID, fundID core.ID) (core.DocumentStatus, *core.ProcessingStats) {
	stats := &core.ProcessingStats{Errors: []string{}}

	doc, err := src.Open(ctx)
	if err != nil {
		stats.Errors = append(stats.Errors, err.Error())
		return core.StatusFailed, stats
	}
	defer doc.Close()

	stats.TotalPages = doc.PageCount()
	var texts []PageText
	for number := 1; number <= stats.TotalPages; number++ {
		page, err := doc.Page(ctx, number)
		if err != nil {
			p.logger.Warn("error reading page", "document_id", documentID, "page", number, "err", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("page %d: %v", number, err))
			continue
		}

		for i, table := range page.Tables {
			if len(table) < 2 {
				continue
			}
			stats.TablesFound++
			if err := p.storeTable(ctx, table, documentID, fundID, stats); err != nil {
				p.logger.Warn("error storing table", "document_id", documentID, "page", number, "table", i+1, "err", err)
				stats.Errors = append(stats.Errors, fmt.Sprintf("page %d table %d: %v", number, i+1, err))
			}
		}

		if strings.TrimSpace(page.Text) != "" {
			texts = append(texts, PageText{Number: number, Text: page.Text})
		}
	}

	if err := p.indexText(ctx, documentID, fundID, texts, stats); err != nil {
		p.logger.Warn("error indexing text", "document_id", documentID, "err", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("text indexing: %v", err))
	}

	return DeriveStatus(stats), stats
}

// storeTable persists a table's rows in one batch. Either every row is
// stored or none are.
func (p *Pipeline) storeTable(ctx context.Context, table core.RawTable, documentID, fundID core.ID, stats *core.ProcessingStats) (err error) {
	result := p.parser.Parse(table)
	for _, skip := range result.Skipped {
		p.logger.Debug("row skipped", "document_id", documentID, "type", result.Type, "row", skip.Row, "reason", skip.Reason)
	}
	stats.RowsSkipped += len(result.Skipped)
	if result.RowCount() == 0 {
		return nil
	}

	batch, err := p.transactions.BeginBatch(ctx, fundID, documentID)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			batch.Rollback()
		}
	}()

	for _, record := range result.Rows {
		if _, err := batch.Add(ctx, record); err != nil {
			return err
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	switch result.Type {
	case core.TableCapitalCall:
		stats.CapitalCalls += result.RowCount()
	case core.TableDistribution:
		stats.Distributions += result.RowCount()
	case core.TableAdjustment:
		stats.Adjustments += result.RowCount()
	}
	return nil
}

// indexText chunks the collected page text and adds it to the index.
func (p *Pipeline) indexText(ctx context.Context, documentID, fundID core.ID, pages []PageText, stats *core.ProcessingStats) error {
	chunks := p.chunker.Chunk(documentID, fundID, pages)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	metadata := make([]core.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		metadata[i] = chunk.Metadata()
	}

	ids, err := p.index.Add(ctx, texts, metadata)
	if err != nil {
		return err
	}
	stats.TextChunks = len(ids)
	return nil
}

// DeriveStatus maps a run's stats to its final status: completed with no
// errors, completed_with_errors when some transactions were stored despite
// errors, failed otherwise.
func DeriveStatus(stats *core.ProcessingStats) core.DocumentStatus {
	switch {
	case len(stats.Errors) == 0:
		return core.StatusCompleted
	case stats.StoredCount() > 0:
		return core.StatusCompletedWithErrors
	default:
		return core.StatusFailed
	}
}

// ErrorSummary renders the error message stored on a document. Failed
// documents report every error; partially successful ones report the
// first few.
func ErrorSummary(status core.DocumentStatus, stats *core.ProcessingStats) string {
	if stats == nil || len(stats.Errors) == 0 {
		return ""
	}
	switch status {
	case core.StatusFailed:
		return strings.Join(stats.Errors, "; ")
	case core.StatusCompletedWithErrors:
		return strings.Join(stats.Errors[:min(maxSummaryErrors, len(stats.Errors))], "; ")
	default:
		return ""
	}
}
