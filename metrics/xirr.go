package metrics

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	xirrTolerance  = 1e-9
	xirrIterations = 300
	xirrMinRate    = -0.9999
	xirrMaxRate    = 1e6
)

// CashFlow is a dated investor cash flow. Outflows are negative.
type CashFlow struct {
	Date   time.Time
	Amount decimal.Decimal
}

// XIRR returns the annual rate at which the flows' net present value is
// zero, discounting by actual days over 365. It needs at least one inflow
// and one outflow.
func XIRR(flows []CashFlow) (float64, error) {
	if len(flows) < 2 {
		return 0, fmt.Errorf("%w: need at least two cash flows", ErrNoConvergence)
	}

	sorted := slices.Clone(flows)
	slices.SortStableFunc(sorted, func(a, b CashFlow) int { return a.Date.Compare(b.Date) })

	var hasIn, hasOut bool
	years := make([]float64, len(sorted))
	amounts := make([]float64, len(sorted))
	for i, f := range sorted {
		years[i] = f.Date.Sub(sorted[0].Date).Hours() / 24 / 365
		amounts[i] = f.Amount.InexactFloat64()
		hasIn = hasIn || amounts[i] > 0
		hasOut = hasOut || amounts[i] < 0
	}
	if !hasIn || !hasOut {
		return 0, fmt.Errorf("%w: flows all have the same sign", ErrNoConvergence)
	}

	npv := func(rate float64) float64 {
		var total float64
		for i, amount := range amounts {
			total += amount / math.Pow(1+rate, years[i])
		}
		return total
	}

	low, high := xirrMinRate, 1.0
	fLow := npv(low)
	fHigh := npv(high)
	for math.Signbit(fLow) == math.Signbit(fHigh) {
		if high >= xirrMaxRate {
			return 0, fmt.Errorf("%w: no sign change up to rate %g", ErrNoConvergence, high)
		}
		high *= 10
		fHigh = npv(high)
	}

	for range xirrIterations {
		mid := (low + high) / 2
		fMid := npv(mid)
		if fMid == 0 || (high-low)/2 < xirrTolerance {
			return mid, nil
		}
		if math.Signbit(fMid) == math.Signbit(fLow) {
			low, fLow = mid, fMid
		} else {
			high = mid
		}
	}
	return (low + high) / 2, nil
}
