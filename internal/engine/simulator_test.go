package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var simStart = YearMonth{Year: 2026, Month: time.September}

func allMonthsAllowed() map[time.Month]bool {
	allowed := make(map[time.Month]bool, 12)
	for m := time.January; m <= time.December; m++ {
		allowed[m] = true
	}
	return allowed
}

func flatConsumption(start YearMonth, months int, qty float64) ConsumptionMap {
	cm := make(ConsumptionMap, months)
	for i := 1; i <= months; i++ {
		cm[start.Add(i)] = qty
	}
	return cm
}

func TestRun_StockContinuity(t *testing.T) {
	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            8,
		BaseStock:          500,
		TargetCoverMonths:  2,
		Consumption:        flatConsumption(simStart, 8, 100),
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	require.Len(t, result.Months, 8)
	for i := 1; i < len(result.Months); i++ {
		assert.Equal(t, result.Months[i-1].ClosingStock, result.Months[i].OpeningStock,
			"closing stock of month %d must equal opening stock of month %d", i, i+1)
	}
}

func TestRun_StockNeverNegative(t *testing.T) {
	writeOffs := map[YearMonth]float64{
		simStart.Add(1): 1000, // far above available supply
	}

	result := Run(SimulationParams{
		Start:             simStart,
		Horizon:           3,
		BaseStock:         150,
		TargetCoverMonths: 2,
		Consumption:       flatConsumption(simStart, 3, 100),
		WriteOffs:         writeOffs,
		Cover:             NewCoverCalculator(12),
	})

	first := result.Months[0]
	assert.Equal(t, 150.0, first.WriteOff, "loss is clamped to available supply")
	assert.Equal(t, 0.0, first.Consumption, "nothing left to consume")
	assert.Equal(t, 0.0, first.ClosingStock)

	for _, m := range result.Months {
		assert.GreaterOrEqual(t, m.ClosingStock, 0.0)
		assert.GreaterOrEqual(t, m.OpeningStock, 0.0)
	}
}

func TestRun_ImmediateWriteOffReducesBaseline(t *testing.T) {
	result := Run(SimulationParams{
		Start:             simStart,
		Horizon:           1,
		BaseStock:         100,
		ImmediateWriteOff: 40,
		TargetCoverMonths: 1,
		Consumption:       ConsumptionMap{},
		Cover:             NewCoverCalculator(12),
	})
	assert.Equal(t, 60.0, result.Months[0].OpeningStock)

	// An immediate write-off above the base stock cannot push it negative.
	result = Run(SimulationParams{
		Start:             simStart,
		Horizon:           1,
		BaseStock:         100,
		ImmediateWriteOff: 500,
		TargetCoverMonths: 1,
		Consumption:       ConsumptionMap{},
		Cover:             NewCoverCalculator(12),
	})
	assert.Equal(t, 0.0, result.Months[0].OpeningStock)
}

func TestRun_PlacesOrdersAndLaterMonthsSeeThem(t *testing.T) {
	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            4,
		BaseStock:          0,
		TargetCoverMonths:  2,
		Consumption:        flatConsumption(simStart, 4, 100),
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	require.Len(t, result.Orders, 2)

	// Month 1: nothing on hand, next two months need 200.
	first := result.Months[0]
	require.NotNil(t, first.Order)
	assert.Equal(t, 200.0, first.Order.Quantity)
	assert.Equal(t, 200.0, first.ClosingStock, "order lands in the closing stock")

	// Month 2: the first order covers part of the window, only the shortfall
	// is reordered.
	second := result.Months[1]
	require.NotNil(t, second.Order)
	assert.Equal(t, 100.0, second.Order.Quantity)

	// Months 3 and 4: the window is already covered by stock on hand.
	assert.Nil(t, result.Months[2].Order)
	assert.Nil(t, result.Months[3].Order)
}

func TestRun_OrderQuantityIsCeiled(t *testing.T) {
	cm := ConsumptionMap{simStart.Add(2): 100.5}

	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            2,
		BaseStock:          0,
		TargetCoverMonths:  1,
		Consumption:        cm,
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	require.NotNil(t, result.Months[0].Order)
	assert.Equal(t, 101.0, result.Months[0].Order.Quantity)
}

func TestRun_NeverOrdersBeforeManualHorizon(t *testing.T) {
	manualMax := simStart.Add(2).Index() // manual planning covers 2026-11

	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            4,
		BaseStock:          0,
		TargetCoverMonths:  2,
		Consumption:        flatConsumption(simStart, 4, 100),
		ManualOrdersMaxYM:  manualMax,
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	assert.Nil(t, result.Months[0].Order, "month inside the manual horizon")
	assert.Nil(t, result.Months[1].Order, "month at the manual horizon")
	require.NotNil(t, result.Months[2].Order, "first month strictly past the manual horizon")
	assert.Positive(t, result.Months[0].Gap, "the gap existed, only the gate blocked it")
}

func TestRun_NeverOrdersOutsideAllowedMonths(t *testing.T) {
	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            6,
		BaseStock:          0,
		TargetCoverMonths:  2,
		Consumption:        flatConsumption(simStart, 6, 100),
		AllowedOrderMonths: map[time.Month]bool{time.December: true},
		Cover:              NewCoverCalculator(12),
	})

	for _, m := range result.Months {
		if m.Order != nil {
			assert.Equal(t, time.December, m.Month.Month)
		}
	}
	require.Len(t, result.Orders, 1)
	assert.Equal(t, int(time.December), result.Orders[0].Month)
}

func TestRun_ZeroConsumptionDrivesNoOrders(t *testing.T) {
	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            6,
		BaseStock:          50,
		TargetCoverMonths:  3,
		Consumption:        flatConsumption(simStart, 6, 0),
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	assert.Empty(t, result.Orders)
}

func TestRun_ManualInboundCountsAsSupply(t *testing.T) {
	inbound := InboundMap{
		simStart.Add(1): 300,
	}

	result := Run(SimulationParams{
		Start:              simStart,
		Horizon:            2,
		BaseStock:          0,
		TargetCoverMonths:  1,
		Consumption:        flatConsumption(simStart, 2, 100),
		ManualInbound:      inbound,
		AllowedOrderMonths: allMonthsAllowed(),
		Cover:              NewCoverCalculator(12),
	})

	first := result.Months[0]
	assert.Equal(t, 300.0, first.Inbound)
	assert.Equal(t, 200.0, first.ClosingStock)
	assert.Nil(t, first.Order)

	// The caller's map is cloned, not mutated.
	assert.Len(t, inbound, 1)
	assert.Equal(t, 300.0, inbound[simStart.Add(1)])
}

func TestRun_AttachesMonthsCover(t *testing.T) {
	result := Run(SimulationParams{
		Start:             simStart,
		Horizon:           2,
		BaseStock:         250,
		TargetCoverMonths: 1,
		Consumption:       flatConsumption(simStart, 14, 100),
		Cover:             NewCoverCalculator(12),
	})

	// Month 1 closes at 150 against 100/month forward demand.
	assert.InDelta(t, 1.50, result.Months[0].MonthsCover, 1e-9)
	// Month 2 closes at 50: half of the following month.
	assert.InDelta(t, 0.50, result.Months[1].MonthsCover, 1e-9)
}

func TestRun_EmptyForNonPositiveHorizon(t *testing.T) {
	result := Run(SimulationParams{
		Start:   simStart,
		Horizon: 0,
		Cover:   NewCoverCalculator(12),
	})
	assert.Empty(t, result.Months)
	assert.Empty(t, result.Orders)

	result = Run(SimulationParams{Start: simStart, Horizon: -3})
	assert.Empty(t, result.Months)
}

func TestRun_ScheduledWriteOffAppliedInItsMonth(t *testing.T) {
	writeOffs := map[YearMonth]float64{
		simStart.Add(2): 30,
	}

	result := Run(SimulationParams{
		Start:             simStart,
		Horizon:           3,
		BaseStock:         200,
		TargetCoverMonths: 1,
		Consumption:       flatConsumption(simStart, 3, 50),
		WriteOffs:         writeOffs,
		Cover:             NewCoverCalculator(12),
	})

	assert.Equal(t, 0.0, result.Months[0].WriteOff)
	assert.Equal(t, 30.0, result.Months[1].WriteOff)
	// 200 - 50 = 150, then 150 - 30 - 50 = 70.
	assert.Equal(t, 70.0, result.Months[1].ClosingStock)
}
