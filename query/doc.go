// Package query answers natural-language questions about funds.
//
// An Engine classifies the question, retrieves similar report text,
// computes ledger metrics when the question calls for them, and asks the
// configured chat model for an answer. Every blocking step runs on the
// shared worker pool. Process never returns an error: failures become an
// apologetic answer so callers can always display something.
package query
