package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/fundlens"
	"github.com/poiesic/fundlens/core"
	"github.com/poiesic/fundlens/extract"
	"github.com/poiesic/fundlens/ingestion"
	"github.com/poiesic/fundlens/query"
	"github.com/poiesic/fundlens/reembed"
	"github.com/urfave/cli/v2"
)

// commands holds the actions. extra is appended to the options of every
// database they open.
type commands struct {
	extra []fundlens.DatabaseOption
}

func (cmd *commands) open(c *cli.Context, opts ...fundlens.DatabaseOption) (*fundlens.Database, error) {
	base, err := databaseOptions(c)
	if err != nil {
		return nil, err
	}
	opts = append(append(base, opts...), cmd.extra...)

	db, err := fundlens.NewDatabase(c.Context, c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (cmd *commands) ingest(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("manifest")
	}
	if path == "" {
		return errors.New("a report file or --manifest is required")
	}
	documentID := core.ID(c.Uint64("document"))
	fundID := core.ID(c.Uint64("fund"))
	if documentID == 0 && fundID == 0 {
		return errors.New("--fund is required when ingesting a new document")
	}

	src, err := sourceFor(c, path)
	if err != nil {
		return err
	}

	var chunkerOpts []ingestion.ChunkerOption
	if size := c.Int("chunk-size"); size > 0 {
		chunkerOpts = append(chunkerOpts, ingestion.WithChunkSize(size))
	}
	if overlap := c.Int("chunk-overlap"); overlap >= 0 {
		chunkerOpts = append(chunkerOpts, ingestion.WithOverlap(overlap))
	}

	db, err := cmd.open(c, fundlens.WithJobPoolSize(c.Int("jobs")), fundlens.WithChunkerOptions(chunkerOpts...))
	if err != nil {
		return err
	}
	defer db.Close()

	var doc *core.Document
	if documentID != 0 {
		doc, err = db.Reingest(c.Context, documentID, src)
	} else {
		doc, err = db.IngestFile(c.Context, fundID, path, src)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	db.Wait()
	if doc, err = db.Document(c.Context, doc.ID); err != nil {
		return err
	}
	printDocument(c.App.Writer, doc)

	if doc.Status == core.StatusFailed {
		return fmt.Errorf("document %d failed: %s", doc.ID, doc.ErrorMessage)
	}
	return nil
}

// sourceFor picks the page source: a pre-extracted manifest or the
// extraction service.
func sourceFor(c *cli.Context, path string) (extract.Source, error) {
	if manifest := c.String("manifest"); manifest != "" {
		return extract.LoadManifest(manifest)
	}

	serviceURL := c.String("extract-url")
	if serviceURL == "" {
		return nil, errors.New("either --manifest or --extract-url is required")
	}
	opts := []extract.ClientOption{}
	if rps := c.Float64("rate-limit"); rps > 0 {
		opts = append(opts, extract.WithRateLimit(rps, 1))
	}
	client, err := extract.NewServiceClient(serviceURL, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Health(c.Context); err != nil {
		return nil, fmt.Errorf("extraction service unavailable: %w", err)
	}
	return client.File(path), nil
}

func (cmd *commands) status(c *cli.Context) error {
	id, err := idArg(c, "document id")
	if err != nil {
		return err
	}

	db, err := cmd.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.Document(c.Context, id)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, doc)
	}
	printDocument(c.App.Writer, doc)
	return nil
}

func (cmd *commands) documents(c *cli.Context) error {
	db, err := cmd.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.Documents(c.Context, core.ID(c.Uint64("fund")))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(c.App.Writer, "No documents")
		return nil
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFUND\tFILE\tSTATUS\tPAGES\tCHUNKS\tUPLOADED")
	for _, doc := range docs {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%d\t%s\n",
			doc.ID, doc.FundID, doc.FileName, doc.Status, doc.PageCount, doc.ChunkCount,
			doc.UploadedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func (cmd *commands) delete(c *cli.Context) error {
	id, err := idArg(c, "document id")
	if err != nil {
		return err
	}

	db, err := cmd.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteDocument(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted document %d\n", id)
	return nil
}

func (cmd *commands) search(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("search text is required")
	}

	db, err := cmd.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	hits, err := db.Search(c.Context, text, c.Int("k"), core.ID(c.Uint64("fund")))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(c.App.Writer, "No results")
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(c.App.Writer, "%d. [%.3f] document %d, fund %d, chunk %d\n   %s\n",
			i+1, hit.Score, hit.DocumentID, hit.FundID, hit.ChunkIndex, oneLine(hit.Content))
	}
	return nil
}

func (cmd *commands) query(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	db, err := cmd.open(c, fundlens.WithTopK(c.Int("top-k")))
	if err != nil {
		return err
	}
	defer db.Close()

	result := db.Query(c.Context, query.Request{Query: question, FundID: core.ID(c.Uint64("fund"))})
	if c.Bool("json") {
		return printJSON(c.App.Writer, result)
	}

	w := c.App.Writer
	fmt.Fprintln(w, result.Answer)
	if len(result.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, source := range result.Sources {
			fmt.Fprintf(w, "  [%d] document %d (%.3f): %s\n", i+1, source.DocumentID, source.Score, oneLine(source.Content))
		}
	}
	if len(result.Metrics) > 0 {
		fmt.Fprintln(w, "\nMetrics:")
		printMetrics(w, result.Metrics)
	}
	fmt.Fprintf(w, "\n(%.2fs)\n", result.ProcessingTime)
	return nil
}

func (cmd *commands) metrics(c *cli.Context) error {
	db, err := cmd.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.Metrics(c.Context, core.ID(c.Uint64("fund")))
	if err != nil {
		return err
	}
	printMetrics(c.App.Writer, m)
	return nil
}

func (cmd *commands) reembed(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	opts, err := databaseOptions(c)
	if err != nil {
		return err
	}
	opts = append(opts, cmd.extra...)

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n\n", c.String("db"))
	if _, err := fundlens.Reembed(c.Context, c.String("db"), config, c.App.ErrWriter, opts...); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func idArg(c *cli.Context, name string) (core.ID, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return core.ID(id), nil
}

func printDocument(w io.Writer, doc *core.Document) {
	fmt.Fprintf(w, "Document %d: %s\n", doc.ID, doc.FileName)
	fmt.Fprintf(w, "  Fund:    %d\n", doc.FundID)
	fmt.Fprintf(w, "  Status:  %s\n", doc.Status)
	if doc.JobID != "" {
		fmt.Fprintf(w, "  Job:     %s\n", doc.JobID)
	}
	fmt.Fprintf(w, "  Pages:   %d\n", doc.PageCount)
	fmt.Fprintf(w, "  Chunks:  %d\n", doc.ChunkCount)
	if s := doc.Stats; s != nil {
		fmt.Fprintf(w, "  Tables:  %d (capital calls %d, distributions %d, adjustments %d, rows skipped %d)\n",
			s.TablesFound, s.CapitalCalls, s.Distributions, s.Adjustments, s.RowsSkipped)
	}
	if doc.ErrorMessage != "" {
		fmt.Fprintf(w, "  Errors:  %s\n", doc.ErrorMessage)
	}
}

func printMetrics(w io.Writer, m core.Metrics) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value := "n/a"
		if v := m[name]; v != nil {
			value = v.String()
		}
		fmt.Fprintf(w, "  %-20s %s\n", name, value)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
