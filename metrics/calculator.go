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

package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/fundlens/core"
	"github.com/shopspring/decimal"
)

// Metric names reported by CalculateAll.
const (
	PaidInCapital      = "paid_in_capital"
	TotalDistributions = "total_distributions"
	DPI                = "dpi"
	IRR                = "irr"
	TVPI               = "tvpi"
	MOIC               = "moic"
)

// ratioPlaces is the precision of DPI and IRR.
const ratioPlaces = 4

// Ledger lists a fund's transactions. storage.TransactionRepository
// implements it.
type Ledger interface {
	ListTransactions(ctx context.Context, fundID core.ID) ([]*core.LedgerEntry, error)
}

// Calculator derives fund metrics from the ledger. It is safe for
// concurrent use.
type Calculator struct {
	ledger Ledger
	logger *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "metrics")
		return nil
	}
}

// NewCalculator creates a calculator over ledger.
func NewCalculator(ledger Ledger, opts ...Option) (*Calculator, error) {
	if ledger == nil {
		return nil, ErrRepositoryRequired
	}
	c := &Calculator{
		ledger: ledger,
		logger: slog.Default().With("component", "metrics"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CalculateAll returns every metric for a fund. Metrics that cannot be
// computed are present with a nil value.
func (c *Calculator) CalculateAll(ctx context.Context, fundID core.ID) (core.Metrics, error) {
	entries, err := c.ledger.ListTransactions(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for fund %d: %w", fundID, err)
	}

	totals, flows := summarize(entries)
	metrics := core.Metrics{
		PaidInCapital:      decimalPtr(totals.paidIn),
		TotalDistributions: decimalPtr(totals.distributed),
		DPI:                nil,
		IRR:                nil,
		TVPI:               nil,
		MOIC:               nil,
	}

	if totals.paidIn.IsPositive() {
		dpi := totals.distributed.Div(totals.paidIn).Round(ratioPlaces)
		metrics[DPI] = &dpi
	}

	if rate, err := XIRR(flows); err != nil {
		c.logger.Debug("irr not computable", "fund_id", fundID, "flows", len(flows), "err", err)
	} else {
		irr := decimal.NewFromFloat(rate).Round(ratioPlaces)
		metrics[IRR] = &irr
	}

	return metrics, nil
}

type totals struct {
	paidIn      decimal.Decimal
	distributed decimal.Decimal
}

// summarize totals the ledger and converts it to investor cash flows:
// contributions are outflows, distributions inflows. Adjustments count
// only when they adjust contributions.
func summarize(entries []*core.LedgerEntry) (totals, []CashFlow) {
	var t totals
	var flows []CashFlow
	for _, entry := range entries {
		base := entry.Record.Base()
		date, err := time.Parse(core.DateLayout, base.Date)
		if err != nil {
			continue
		}

		switch entry.Record.Kind() {
		case core.TableCapitalCall:
			amount := base.Amount.Abs()
			t.paidIn = t.paidIn.Add(amount)
			flows = append(flows, CashFlow{Date: date, Amount: amount.Neg()})
		case core.TableDistribution:
			amount := base.Amount.Abs()
			t.distributed = t.distributed.Add(amount)
			flows = append(flows, CashFlow{Date: date, Amount: amount})
		case core.TableAdjustment:
			if isContributionAdjustment(entry.Record) {
				t.paidIn = t.paidIn.Add(base.Amount)
				flows = append(flows, CashFlow{Date: date, Amount: base.Amount.Neg()})
			}
		}
	}
	return t, flows
}

func isContributionAdjustment(record core.TransactionRecord) bool {
	switch r := record.(type) {
	case core.AdjustmentRecord:
		return r.IsContributionAdjustment
	case *core.AdjustmentRecord:
		return r.IsContributionAdjustment
	default:
		return false
	}
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
