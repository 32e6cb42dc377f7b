// Package ingestion turns uploaded fund reports into ledger entries and
// searchable text.
//
// The Pipeline walks a report page by page:
//   - Tables are classified and their rows stored, one batch per table
//   - Narrative text is split by the Chunker and indexed for retrieval
//
// Documents are processed in the background on a bounded worker pool.
// Failures are recorded per page or table in the document's
// ProcessingStats and never abort the rest of the report.
package ingestion
