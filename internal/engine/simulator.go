package engine

import (
	"math"
	"time"
)

// SimulationParams carries everything one simulation run needs. The
// consumption map and write-off schedule are read-only; the manual inbound
// map is cloned before the fold so callers keep their original view.
type SimulationParams struct {
	Start              YearMonth
	Horizon            int
	BaseStock          float64
	ImmediateWriteOff  float64
	TargetCoverMonths  int
	Consumption        ConsumptionMap
	WriteOffs          map[YearMonth]float64
	ManualInbound      InboundMap
	ManualOrdersMaxYM  int
	AllowedOrderMonths map[time.Month]bool
	Cover              CoverCalculator
}

// Run folds over the horizon month by month. Each step applies inbound
// supply, scheduled write-off and consumption to the carried stock, then
// decides whether a system order is needed to keep the next
// TargetCoverMonths of demand covered. The fold is strictly sequential:
// every step depends on the previous closing stock and on orders already
// recorded into the inbound map.
func Run(params SimulationParams) SimulationResult {
	result := SimulationResult{}
	if params.Horizon <= 0 {
		return result
	}

	inbound := params.ManualInbound.Clone()
	if inbound == nil {
		inbound = make(InboundMap)
	}

	stock := params.BaseStock - params.ImmediateWriteOff
	if stock < 0 {
		stock = 0
	}

	result.Months = make([]MonthResult, 0, params.Horizon)
	for offset := 1; offset <= params.Horizon; offset++ {
		month := params.Start.Add(offset)
		monthInbound := inbound[month]
		consumption := params.Consumption[month]
		writeOff := params.WriteOffs[month]

		// 1. Apply supply, write-off loss and consumption, clamped so the
		// stock never goes negative.
		supply := stock + monthInbound
		loss := math.Min(supply, writeOff)
		available := supply - loss
		used := math.Min(available, consumption)
		closing := available - used

		// 2. Requirement window: demand over the next TargetCoverMonths
		// months against stock plus supply already known for those months.
		var required, futureInbound float64
		for j := 1; j <= params.TargetCoverMonths; j++ {
			future := month.Add(j)
			required += params.Consumption[future]
			futureInbound += inbound[future]
		}
		gap := required - (closing + futureInbound)

		// 3. Order gate: positive gap, strictly past the manual planning
		// horizon, and the calendar month must permit new orders.
		var order *SystemOrder
		if gap > 0 &&
			month.Index() > params.ManualOrdersMaxYM &&
			params.AllowedOrderMonths[month.Month] {
			qty := math.Ceil(gap)
			order = &SystemOrder{
				Offset:   offset,
				Year:     month.Year,
				Month:    int(month.Month),
				Quantity: qty,
				ISODate:  month.ISO(),
			}
			closing += qty
			// Later months' requirement windows see this order as supply.
			inbound[month] += qty
			result.Orders = append(result.Orders, *order)
		}

		result.Months = append(result.Months, MonthResult{
			Offset:       offset,
			Month:        month,
			Date:         month.Date(),
			OpeningStock: stock,
			Inbound:      monthInbound,
			WriteOff:     loss,
			Consumption:  used,
			ClosingStock: closing,
			Required:     required,
			Gap:          gap,
			Order:        order,
		})

		stock = closing
	}

	// Second pass: months-cover for month i depends on consumption in months
	// i+1..i+MaxOffset, which is safe to read here because the consumption
	// map is precomputed and immutable during the fold.
	cover := params.Cover
	if cover.MaxOffset <= 0 {
		cover = NewCoverCalculator(0)
	}
	for i := range result.Months {
		r := &result.Months[i]
		forward := params.Consumption.Sequence(r.Month, cover.MaxOffset)
		r.MonthsCover = cover.Calculate(r.ClosingStock, forward)
	}

	return result
}
