package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplyplan/replenish-go/internal/config"
	"github.com/supplyplan/replenish-go/internal/domain"
)

type fakePlanningRepository struct {
	snapshot *domain.PlanningSnapshot
	fetchErr error
	writeErr error

	calls         []string
	writtenMonths []domain.FutureInventoryRecord
	writtenOrders []domain.OrderRecord
}

func (f *fakePlanningRepository) FetchAll(ctx context.Context, sku, country string) (*domain.PlanningSnapshot, error) {
	f.calls = append(f.calls, "fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakePlanningRepository) PurgeOldData(ctx context.Context, sku, country string) error {
	f.calls = append(f.calls, "purge")
	return nil
}

func (f *fakePlanningRepository) WriteResults(ctx context.Context, months []domain.FutureInventoryRecord, orders []domain.OrderRecord) error {
	f.calls = append(f.calls, "write")
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writtenMonths = months
	f.writtenOrders = orders
	return nil
}

func (f *fakePlanningRepository) LatestLedger(ctx context.Context, sku, country string) ([]domain.FutureInventoryRecord, error) {
	f.calls = append(f.calls, "ledger")
	return f.writtenMonths, nil
}

type capturingCache struct {
	stored *domain.RunSummary
}

func (c *capturingCache) Get(ctx context.Context, sku, country string) (*domain.RunSummary, bool, error) {
	if c.stored == nil {
		return nil, false, nil
	}
	return c.stored, true, nil
}

func (c *capturingCache) Set(ctx context.Context, summary *domain.RunSummary) error {
	c.stored = summary
	return nil
}

func (c *capturingCache) Invalidate(ctx context.Context, sku, country string) error {
	c.stored = nil
	return nil
}

func testPlanningConfig() config.PlanningConfig {
	return config.PlanningConfig{
		HorizonMonths:        6,
		WriteOffBufferMonths: 3,
		CoverMaxOffset:       12,
		DefaultTargetCover:   2,
		WriteBatchSize:       100,
	}
}

func testSnapshot() *domain.PlanningSnapshot {
	forecastMonth := func(year int, month time.Month) time.Time {
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	}

	return &domain.PlanningSnapshot{
		Meta: &domain.SKUMeta{SKU: "SKU-1", Country: "ID", TinsPerCarton: 12},
		Forecasts: []domain.ForecastRecord{
			{Month: forecastMonth(2026, time.October), Quantity: 100},
			{Month: forecastMonth(2026, time.November), Quantity: 100},
			{Month: forecastMonth(2026, time.December), Quantity: 100},
			{Month: forecastMonth(2027, time.January), Quantity: 100},
		},
		AllowedMonths: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
}

func testRequest() domain.RunRequest {
	return domain.RunRequest{
		SKU:                   "SKU-1",
		Country:               "ID",
		BaselineDate:          time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC),
		BaseStock:             0,
		TargetCoverMonths:     2,
		ProcurementSafeMargin: 1.0,
	}
}

func TestRun_WritesLedgerAndOrders(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, summary.OK)
	assert.Equal(t, 6, summary.Stats.MonthsProcessed)
	assert.Equal(t, 2, summary.Stats.SystemOrdersPlaced)
	assert.Equal(t, 0.0, summary.Stats.TotalWriteOff)

	require.Len(t, summary.SystemOrders, 2)
	assert.Equal(t, domain.PlacedOrder{YearMonth: "2026-10", Quantity: 200}, summary.SystemOrders[0])
	assert.Equal(t, domain.PlacedOrder{YearMonth: "2026-11", Quantity: 100}, summary.SystemOrders[1])

	require.Len(t, repo.writtenMonths, 6)
	require.Len(t, repo.writtenOrders, 2)
	for _, o := range repo.writtenOrders {
		assert.True(t, o.IsSystem)
		assert.Equal(t, "SKU-1", o.SKU)
		assert.Equal(t, "ID", o.Country)
	}

	first := repo.writtenMonths[0]
	assert.Equal(t, 2026, first.Year)
	assert.Equal(t, 10, first.Month)
	assert.Equal(t, 200.0, first.ClosingStock)
	assert.Equal(t, 200.0, first.SystemOrder)
	assert.InDelta(t, 200.0/12.0, first.Cartons, 1e-9)
}

func TestRun_AverageCoverSkipsSentinelMonths(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	// Covers per month: 2.00, 2.00, 1.00 then three depleted months at 0.
	assert.InDelta(t, 5.0/6.0, summary.Stats.AvgMonthsCover, 1e-9)
}

func TestRun_PurgesBeforeWriting(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	_, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch", "purge", "write"}, repo.calls)
}

func TestRun_Idempotent(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	first, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)
	firstOrders := repo.writtenOrders

	// A rerun sees its own previous output in the snapshot, exactly as a real
	// rerun would before the purge lands.
	for _, o := range firstOrders {
		repo.snapshot.Orders = append(repo.snapshot.Orders, o)
	}

	second, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, first.SystemOrders, second.SystemOrders)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, firstOrders, repo.writtenOrders)
}

func TestRun_ManualOrdersPushOutFirstSystemOrder(t *testing.T) {
	snap := testSnapshot()
	snap.Orders = []domain.OrderRecord{
		{SKU: "SKU-1", Country: "ID", Year: 2026, Month: 11, Quantity: 50},
	}
	repo := &fakePlanningRepository{snapshot: snap}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	// Manual planning covers through 2026-11, so the engine may only order
	// from December onward.
	require.NotEmpty(t, summary.SystemOrders)
	assert.Equal(t, "2026-12", summary.SystemOrders[0].YearMonth)
}

func TestRun_CachesSummary(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	summaryCache := &capturingCache{}
	svc := NewReplenishmentService(repo, summaryCache, testPlanningConfig())

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Same(t, summary, summaryCache.stored)

	cached, found, err := svc.LatestSummary(context.Background(), "SKU-1", "ID")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Same(t, summary, cached)
}

func TestRun_FetchErrorAborts(t *testing.T) {
	repo := &fakePlanningRepository{fetchErr: errors.New("connection refused")}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	_, err := svc.Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotContains(t, repo.calls, "purge")
	assert.NotContains(t, repo.calls, "write")
}

func TestRun_WriteErrorPropagates(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot(), writeErr: errors.New("deadlock detected")}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	_, err := svc.Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorContains(t, err, "deadlock detected")
}

func TestRun_DefaultsTargetCoverAndMargin(t *testing.T) {
	repo := &fakePlanningRepository{snapshot: testSnapshot()}
	svc := NewReplenishmentService(repo, nil, testPlanningConfig())

	req := testRequest()
	req.TargetCoverMonths = 0
	req.ProcurementSafeMargin = 0

	// The configured default target cover equals the explicit value used by
	// the other tests, so the run must produce the same orders.
	summary, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, summary.SystemOrders, 2)
	assert.Equal(t, 200.0, summary.SystemOrders[0].Quantity)
}
