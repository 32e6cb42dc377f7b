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

package tables

import (
	"fmt"
	"strings"

	"github.com/poiesic/fundlens/core"
)

// classificationRows is how many leading rows feed classification.
const classificationRows = 3

// Parser classifies raw tables and extracts their rows. It is safe for
// concurrent use.
type Parser struct {
	keywords *Keywords
}

// Option configures a Parser.
type Option func(*Parser) error

// WithKeywords replaces the default keyword tables.
func WithKeywords(k *Keywords) Option {
	return func(p *Parser) error {
		if k == nil {
			return fmt.Errorf("%w: keywords are nil", ErrInvalidKeywords)
		}
		if err := k.Validate(); err != nil {
			return err
		}
		p.keywords = k
		return nil
	}
}

// NewParser creates a parser using the built-in keyword tables unless
// overridden.
func NewParser(opts ...Option) (*Parser, error) {
	p := &Parser{keywords: DefaultKeywords()}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Classify scores the table's leading rows against each type's keywords.
// The highest non-zero score wins; ties go to the type listed first in
// core.ClassificationPriority. A table with no hits is TableUnknown.
func (p *Parser) Classify(table core.RawTable) core.TableType {
	text := analysisText(table)

	best, bestScore := core.TableUnknown, 0
	for _, typ := range core.ClassificationPriority {
		keywords, weight := p.keywords.classKeywords(typ)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score += weight
			}
		}
		if score > bestScore {
			best, bestScore = typ, score
		}
	}
	return best
}

// analysisText joins the non-empty cells of the leading rows, case-folded.
func analysisText(table core.RawTable) string {
	var parts []string
	for _, r := range table[:min(classificationRows, len(table))] {
		for _, cell := range r {
			if cell = strings.TrimSpace(cell); cell != "" {
				parts = append(parts, strings.ToLower(cell))
			}
		}
	}
	return strings.Join(parts, " ")
}

// Parse classifies the table and extracts its rows.
func (p *Parser) Parse(table core.RawTable) core.ClassifiedTable {
	if len(table) < 2 {
		return core.ClassifiedTable{Type: core.TableUnknown, InsufficientData: true}
	}
	return p.ParseAs(table, p.Classify(table))
}

// ParseAs extracts rows using a known table type.
func (p *Parser) ParseAs(table core.RawTable, typ core.TableType) core.ClassifiedTable {
	if len(table) < 2 {
		return core.ClassifiedTable{Type: core.TableUnknown, InsufficientData: true}
	}

	result := core.ClassifiedTable{
		Type:    typ,
		Headers: normalizeHeaders(table[0]),
	}

	extract := p.extractorFor(typ)
	if extract == nil {
		return result
	}

	for i, cells := range table[1:] {
		cells = trimCells(cells)
		if isBlank(cells) {
			continue
		}

		record, err := extractRow(extract, row{headers: result.Headers, cells: cells})
		if err != nil {
			result.Skipped = append(result.Skipped, core.RowSkip{Row: i + 1, Reason: err})
			continue
		}
		result.Rows = append(result.Rows, record)
	}
	return result
}

type rowExtractor func(r row) (core.TransactionRecord, error)

func (p *Parser) extractorFor(typ core.TableType) rowExtractor {
	switch typ {
	case core.TableCapitalCall:
		return p.capitalCall
	case core.TableDistribution:
		return p.distribution
	case core.TableAdjustment:
		return p.adjustment
	default:
		return nil
	}
}

// extractRow runs one extractor, turning a panic into a skip reason.
func extractRow(extract rowExtractor, r row) (record core.TransactionRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			record = nil
			err = fmt.Errorf("%w: %v", ErrRowPanic, rec)
		}
	}()
	return extract(r)
}

// base extracts the mandatory date and amount plus the description.
func (p *Parser) base(r row) (core.Transaction, error) {
	date, ok := r.date(p.keywords)
	if !ok {
		return core.Transaction{}, ErrMissingDate
	}
	amount, ok := r.amount(p.keywords)
	if !ok {
		return core.Transaction{}, ErrMissingAmount
	}
	return core.Transaction{
		Date:        date,
		Amount:      amount,
		Description: r.description(p.keywords),
	}, nil
}

func (p *Parser) capitalCall(r row) (core.TransactionRecord, error) {
	tx, err := p.base(r)
	if err != nil {
		return nil, err
	}
	return core.CapitalCallRecord{
		Transaction: tx,
		CallType:    r.text(p.keywords.Fields.Type, "Regular Capital Call"),
	}, nil
}

func (p *Parser) distribution(r row) (core.TransactionRecord, error) {
	tx, err := p.base(r)
	if err != nil {
		return nil, err
	}
	return core.DistributionRecord{
		Transaction:      tx,
		DistributionType: r.text(p.keywords.Fields.Type, "Distribution"),
		IsRecallable:     r.recallable(p.keywords),
	}, nil
}

func (p *Parser) adjustment(r row) (core.TransactionRecord, error) {
	tx, err := p.base(r)
	if err != nil {
		return nil, err
	}
	return core.AdjustmentRecord{
		Transaction:              tx,
		AdjustmentType:           r.text(p.keywords.Fields.Type, "Adjustment"),
		Category:                 r.text(p.keywords.Fields.Category, "General"),
		IsContributionAdjustment: containsAny(strings.ToLower(tx.Description), p.keywords.Fields.Contribution),
	}, nil
}

func normalizeHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return headers
}

func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, cell := range cells {
		if cell != "" {
			return false
		}
	}
	return true
}
