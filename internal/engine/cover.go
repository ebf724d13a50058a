package engine

import "math"

const defaultCoverMaxOffset = 12

// CoverCalculator computes fractional months of stock cover against a
// forward-looking consumption sequence.
type CoverCalculator struct {
	// MaxOffset caps the lookahead window. It doubles as the returned value
	// when no future month constrains the stock ("cover exceeds the window").
	MaxOffset int
}

// NewCoverCalculator creates a calculator with the given lookahead window.
func NewCoverCalculator(maxOffset int) CoverCalculator {
	if maxOffset <= 0 {
		maxOffset = defaultCoverMaxOffset
	}
	return CoverCalculator{MaxOffset: maxOffset}
}

// Calculate returns how many future months the stock level can satisfy,
// rounded to two decimals. Partial months are prorated against the month's
// true calendar length via a per-day consumption rate.
func (c CoverCalculator) Calculate(stock float64, forward []MonthDemand) float64 {
	if stock <= 0 {
		return 0
	}

	maxOffset := c.MaxOffset
	if maxOffset <= 0 {
		maxOffset = defaultCoverMaxOffset
	}

	// Months without positive consumption add no constraint.
	months := make([]MonthDemand, 0, len(forward))
	for _, m := range forward {
		if m.Offset > maxOffset {
			break
		}
		if m.Consumption > 0 {
			months = append(months, m)
		}
	}
	if len(months) == 0 {
		return float64(maxOffset)
	}

	// Running cumulative consumption in offset order.
	cumulative := make([]float64, len(months))
	var running float64
	for i, m := range months {
		running += m.Consumption
		cumulative[i] = running
	}

	// Last month fully covered by the stock; equality counts as covered.
	lastFull := -1
	for i := range months {
		if cumulative[i] <= stock {
			lastFull = i
		}
	}

	// Stock does not even cover the first constrained month: express it as a
	// fraction of that month using a per-day rate.
	if lastFull < 0 {
		return roundTo(partialMonthFraction(stock, months[0]), 2)
	}

	fullMonths := float64(months[lastFull].Offset)
	remainder := stock - cumulative[lastFull]
	if remainder <= 0 {
		return roundTo(fullMonths, 2)
	}

	// Partial credit only when the directly following month carries demand.
	next, ok := nextSequential(months, lastFull)
	if !ok {
		return roundTo(fullMonths, 2)
	}

	return roundTo(fullMonths+partialMonthFraction(remainder, next), 2)
}

// partialMonthFraction converts a stock remainder into the fraction of the
// month it covers: remainder -> days of cover at the month's daily rate,
// then days relative to the month's real length. Degenerate inputs resolve
// to zero instead of dividing by zero.
func partialMonthFraction(remainder float64, m MonthDemand) float64 {
	if m.Days <= 0 || m.Consumption <= 0 {
		return 0
	}
	dailyRate := m.Consumption / float64(m.Days)
	if dailyRate <= 0 {
		return 0
	}
	daysOfCover := remainder / dailyRate
	return daysOfCover / float64(m.Days)
}

// nextSequential finds the month at offset months[i].Offset+1, if it
// survived the zero-consumption filter.
func nextSequential(months []MonthDemand, i int) (MonthDemand, bool) {
	want := months[i].Offset + 1
	for _, m := range months[i+1:] {
		if m.Offset == want {
			return m, true
		}
		if m.Offset > want {
			break
		}
	}
	return MonthDemand{}, false
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
