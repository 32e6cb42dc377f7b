// Package metrics computes fund performance figures from the transaction
// ledger.
//
// Only ledger-derived metrics are available: paid-in capital, total
// distributions, DPI and IRR. TVPI and MOIC need a net asset value, which
// reports do not yield as transactions, so they are always reported as
// not computable.
package metrics
