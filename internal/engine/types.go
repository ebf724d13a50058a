package engine

import "time"

// YearMonth identifies a calendar month. It is used as the map key across the
// engine so lookups never round-trip through formatted date strings.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf truncates a timestamp to its calendar month.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Index maps the month onto a single monotonically increasing axis so months
// can be ordered and compared with plain integer arithmetic.
func (ym YearMonth) Index() int {
	return ym.Year*12 + int(ym.Month)
}

// Add returns the month n months after (or before, for negative n) ym.
// time.Date normalizes out-of-range months, so year rollover is free.
func (ym YearMonth) Add(n int) YearMonth {
	t := time.Date(ym.Year, ym.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Date returns the first day of the month in UTC.
func (ym YearMonth) Date() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the true calendar length of the month (28-31).
func (ym YearMonth) Days() int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ISO formats the month as its first day, e.g. "2026-09-01".
func (ym YearMonth) ISO() string {
	return ym.Date().Format("2006-01-02")
}

// ConsumptionMap holds the safety-margin adjusted monthly consumption
// forecast. It is built once per run and never mutated afterwards.
type ConsumptionMap map[YearMonth]float64

// MonthDemand is one entry of a forward-looking consumption sequence.
type MonthDemand struct {
	Offset      int
	Month       YearMonth
	Consumption float64
	Days        int
}

// WriteOffSchedule splits near-expiry stock into a quantity that is already
// unsellable at the baseline and quantities that go unsellable during the
// simulated horizon.
type WriteOffSchedule struct {
	Immediate     float64
	FutureByMonth map[YearMonth]float64
}

// InboundMap tracks incoming supply per month. It starts from manually
// planned orders and is the only structure the simulator mutates: system
// orders are appended so later months see them as supply.
type InboundMap map[YearMonth]float64

// Clone copies the map so the caller's view stays untouched.
func (im InboundMap) Clone() InboundMap {
	out := make(InboundMap, len(im))
	for k, v := range im {
		out[k] = v
	}
	return out
}

// SystemOrder is a replenishment order proposed by the simulator.
type SystemOrder struct {
	Offset   int
	Year     int
	Month    int
	Quantity float64
	ISODate  string
}

// MonthResult is one row of the simulated monthly ledger.
type MonthResult struct {
	Offset       int
	Month        YearMonth
	Date         time.Time
	OpeningStock float64
	Inbound      float64
	WriteOff     float64
	Consumption  float64
	ClosingStock float64
	Required     float64
	Gap          float64
	Order        *SystemOrder
	MonthsCover  float64
}

// SimulationResult bundles the ledger with the orders placed along the way.
type SimulationResult struct {
	Months []MonthResult
	Orders []SystemOrder
}
