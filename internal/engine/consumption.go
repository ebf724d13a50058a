package engine

import (
	"math"
	"time"

	"github.com/supplyplan/replenish-go/internal/domain"
)

// BuildConsumption produces the monthly consumption map for the horizon
// start+1..start+horizon. Each month resolves through a strict priority
// chain: demand forecast, then current-year budget, then last year's budget
// for the same calendar month. Exactly one source contributes per month;
// missing data degrades to zero rather than failing.
func BuildConsumption(
	forecasts []domain.ForecastRecord,
	budgets []domain.BudgetRecord,
	start YearMonth,
	horizon int,
	safetyMargin float64,
) ConsumptionMap {
	if safetyMargin <= 0 {
		safetyMargin = 1.0
	}

	// Aggregate forecasts by exact calendar month.
	forecastByMonth := make(map[YearMonth]float64, len(forecasts))
	for _, f := range forecasts {
		if f.Month.IsZero() {
			continue
		}
		forecastByMonth[YearMonthOf(f.Month)] += f.Quantity
	}

	// Aggregate budgets by (year, month).
	budgetByMonth := make(map[YearMonth]float64, len(budgets))
	for _, b := range budgets {
		if b.Month < 1 || b.Month > 12 {
			continue
		}
		key := YearMonth{Year: b.Year, Month: time.Month(b.Month)}
		budgetByMonth[key] += b.Quantity
	}

	cm := make(ConsumptionMap, horizon)
	for k := 1; k <= horizon; k++ {
		m := start.Add(k)

		var qty float64
		switch {
		case forecastByMonth[m] > 0:
			qty = forecastByMonth[m]
		case budgetByMonth[m] > 0:
			qty = budgetByMonth[m]
		default:
			qty = budgetByMonth[YearMonth{Year: m.Year - 1, Month: m.Month}]
		}
		if qty < 0 {
			qty = 0
		}

		// Partial units are never shipped.
		cm[m] = math.Ceil(qty * safetyMargin)
	}

	return cm
}

// Sequence renders the map as an ordered forward view of count months
// following from, with true calendar day counts per month. This is the input
// shape of the months-cover calculator.
func (cm ConsumptionMap) Sequence(from YearMonth, count int) []MonthDemand {
	if count <= 0 {
		return nil
	}
	seq := make([]MonthDemand, 0, count)
	for i := 1; i <= count; i++ {
		m := from.Add(i)
		seq = append(seq, MonthDemand{
			Offset:      i,
			Month:       m,
			Consumption: cm[m],
			Days:        m.Days(),
		})
	}
	return seq
}
