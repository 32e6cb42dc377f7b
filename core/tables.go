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

package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawTable is a matrix of cell strings extracted from one region of a page.
// The first row is treated as the header row.
type RawTable [][]string

// TableType is the closed set of transaction table kinds.
type TableType int

const (
	TableUnknown TableType = iota
	TableCapitalCall
	TableDistribution
	TableAdjustment
)

// ClassificationPriority breaks classification ties: earlier entries win.
var ClassificationPriority = [...]TableType{TableAdjustment, TableDistribution, TableCapitalCall}

// String returns the table type's wire name.
func (t TableType) String() string {
	switch t {
	case TableUnknown:
		return "unknown"
	case TableCapitalCall:
		return "capital_call"
	case TableDistribution:
		return "distribution"
	case TableAdjustment:
		return "adjustment"
	default:
		return fmt.Sprintf("TableType(%d)", int(t))
	}
}

// ParseTableType converts a wire name back into a TableType.
func ParseTableType(s string) (TableType, error) {
	switch s {
	case "unknown":
		return TableUnknown, nil
	case "capital_call":
		return TableCapitalCall, nil
	case "distribution":
		return TableDistribution, nil
	case "adjustment":
		return TableAdjustment, nil
	default:
		return TableUnknown, fmt.Errorf("%w: %q", ErrInvalidTableType, s)
	}
}

// Transaction holds the fields common to every ledger record.
type Transaction struct {
	// Date is ISO-8601 (YYYY-MM-DD).
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	// Description is empty when the row had none.
	Description string `json:"description,omitempty"`
}

// Base returns the common fields.
func (t Transaction) Base() Transaction { return t }

// TransactionRecord is implemented by the three ledger record variants only.
type TransactionRecord interface {
	Kind() TableType
	Base() Transaction
}

// CapitalCallRecord is a row of a capital call table.
type CapitalCallRecord struct {
	Transaction
	CallType string `json:"call_type"`
}

func (CapitalCallRecord) Kind() TableType { return TableCapitalCall }

// DistributionRecord is a row of a distribution table.
type DistributionRecord struct {
	Transaction
	DistributionType string `json:"distribution_type"`
	IsRecallable     bool   `json:"is_recallable"`
}

func (DistributionRecord) Kind() TableType { return TableDistribution }

// AdjustmentRecord is a row of an adjustment table.
type AdjustmentRecord struct {
	Transaction
	AdjustmentType           string `json:"adjustment_type"`
	Category                 string `json:"category"`
	IsContributionAdjustment bool   `json:"is_contribution_adjustment"`
}

func (AdjustmentRecord) Kind() TableType { return TableAdjustment }

// RowSkip records why a table row produced no record.
type RowSkip struct {
	Row    int
	Reason error
}

// ClassifiedTable is the result of parsing a RawTable.
type ClassifiedTable struct {
	Type    TableType
	Headers []string
	Rows    []TransactionRecord
	// Skipped lists dropped rows in table order. Row numbers count data rows from 1.
	Skipped []RowSkip
	// InsufficientData is set when the table had fewer than two rows.
	InsufficientData bool
}

// RowCount returns the number of extracted records.
func (t *ClassifiedTable) RowCount() int {
	return len(t.Rows)
}

// LedgerEntry is a persisted transaction record.
type LedgerEntry struct {
	ID         ID
	FundID     ID
	DocumentID ID
	Record     TransactionRecord
	InsertedAt time.Time
}
