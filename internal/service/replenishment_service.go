package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supplyplan/replenish-go/internal/cache"
	"github.com/supplyplan/replenish-go/internal/config"
	"github.com/supplyplan/replenish-go/internal/domain"
	"github.com/supplyplan/replenish-go/internal/engine"
	"github.com/supplyplan/replenish-go/internal/repository"
)

// ReplenishmentService orchestrates one forecasting run: fetch the planning
// snapshot, build the consumption map and write-off schedule, purge stale
// system output, simulate the horizon and write the new ledger back. A run
// either completes and is written in full, or is not written at all.
type ReplenishmentService struct {
	repo  repository.PlanningRepository
	cache cache.SummaryCache
	cfg   config.PlanningConfig
}

func NewReplenishmentService(repo repository.PlanningRepository, cacheImpl cache.SummaryCache, cfg config.PlanningConfig) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	return &ReplenishmentService{repo: repo, cache: cacheImpl, cfg: cfg}
}

func (s *ReplenishmentService) Run(ctx context.Context, req domain.RunRequest) (*domain.RunSummary, error) {
	started := time.Now()

	baseline := req.BaselineDate
	if baseline.IsZero() {
		baseline = started.UTC()
	}
	start := engine.YearMonthOf(baseline)

	margin := req.ProcurementSafeMargin
	if margin <= 0 {
		margin = 1.0
	}

	targetCover := req.TargetCoverMonths
	if targetCover <= 0 {
		targetCover = s.cfg.DefaultTargetCover
	}

	snap, err := s.repo.FetchAll(ctx, req.SKU, req.Country)
	if err != nil {
		return nil, fmt.Errorf("replenishment run: %w", err)
	}

	consumption := engine.BuildConsumption(snap.Forecasts, snap.Budgets, start, s.cfg.HorizonMonths, margin)
	schedule := engine.ProcessAging(snap.Aging, start, s.cfg.WriteOffBufferMonths)

	manualInbound, manualMaxYM := partitionOrders(snap.Orders)
	allowed := allowedMonthSet(snap.AllowedMonths)

	// Cleanup precedes write so reruns never accumulate duplicate system
	// orders or ledger rows.
	if err := s.repo.PurgeOldData(ctx, req.SKU, req.Country); err != nil {
		return nil, fmt.Errorf("replenishment run: %w", err)
	}

	result := engine.Run(engine.SimulationParams{
		Start:              start,
		Horizon:            s.cfg.HorizonMonths,
		BaseStock:          req.BaseStock,
		ImmediateWriteOff:  schedule.Immediate,
		TargetCoverMonths:  targetCover,
		Consumption:        consumption,
		WriteOffs:          schedule.FutureByMonth,
		ManualInbound:      manualInbound,
		ManualOrdersMaxYM:  manualMaxYM,
		AllowedOrderMonths: allowed,
		Cover:              engine.NewCoverCalculator(s.cfg.CoverMaxOffset),
	})

	tinsPerCarton := 0
	if snap.Meta != nil {
		tinsPerCarton = snap.Meta.TinsPerCarton
	}
	months, orders := toRecords(result, req.SKU, req.Country, tinsPerCarton)

	if err := s.repo.WriteResults(ctx, months, orders); err != nil {
		return nil, fmt.Errorf("replenishment run: %w", err)
	}

	summary := s.buildSummary(req, result, schedule.Immediate, started)

	if err := s.cache.Set(ctx, summary); err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Str("country", req.Country).
			Msg("replenishment: cache set summary failed")
	}

	log.Info().
		Str("sku", req.SKU).
		Str("country", req.Country).
		Int("months", summary.Stats.MonthsProcessed).
		Int("orders", summary.Stats.SystemOrdersPlaced).
		Int64("duration_ms", summary.DurationMs).
		Msg("replenishment run completed")

	return summary, nil
}

// LatestSummary returns the cached summary of the most recent run, if any.
func (s *ReplenishmentService) LatestSummary(ctx context.Context, sku, country string) (*domain.RunSummary, bool, error) {
	return s.cache.Get(ctx, sku, country)
}

// partitionOrders builds the manual inbound map and the manual planning
// horizon. System-generated rows are ignored here: they are purged before the
// new run writes its own.
func partitionOrders(orders []domain.OrderRecord) (engine.InboundMap, int) {
	inbound := make(engine.InboundMap)
	maxYM := 0
	for _, o := range orders {
		if o.IsSystem {
			continue
		}
		if o.Month < 1 || o.Month > 12 || o.Quantity <= 0 {
			continue
		}
		ym := engine.YearMonth{Year: o.Year, Month: time.Month(o.Month)}
		inbound[ym] += o.Quantity
		if ym.Index() > maxYM {
			maxYM = ym.Index()
		}
	}
	return inbound, maxYM
}

func allowedMonthSet(months []int) map[time.Month]bool {
	set := make(map[time.Month]bool, len(months))
	for _, m := range months {
		if m >= 1 && m <= 12 {
			set[time.Month(m)] = true
		}
	}
	return set
}

func toRecords(result engine.SimulationResult, sku, country string, tinsPerCarton int) ([]domain.FutureInventoryRecord, []domain.OrderRecord) {
	months := make([]domain.FutureInventoryRecord, 0, len(result.Months))
	for _, m := range result.Months {
		var cartons float64
		if tinsPerCarton > 0 {
			cartons = m.ClosingStock / float64(tinsPerCarton)
		}
		var orderQty float64
		if m.Order != nil {
			orderQty = m.Order.Quantity
		}
		months = append(months, domain.FutureInventoryRecord{
			SKU:          sku,
			Country:      country,
			Year:         m.Month.Year,
			Month:        int(m.Month.Month),
			OpeningStock: m.OpeningStock,
			Inbound:      m.Inbound,
			WriteOff:     m.WriteOff,
			Consumption:  m.Consumption,
			ClosingStock: m.ClosingStock,
			Cartons:      cartons,
			SystemOrder:  orderQty,
			MonthsCover:  m.MonthsCover,
		})
	}

	orders := make([]domain.OrderRecord, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, domain.OrderRecord{
			SKU:      sku,
			Country:  country,
			Year:     o.Year,
			Month:    o.Month,
			Quantity: o.Quantity,
			IsSystem: true,
		})
	}

	return months, orders
}

func (s *ReplenishmentService) buildSummary(req domain.RunRequest, result engine.SimulationResult, immediateWriteOff float64, started time.Time) *domain.RunSummary {
	// Immediate write-off can only remove stock that exists.
	totalWriteOff := immediateWriteOff
	if totalWriteOff > req.BaseStock {
		totalWriteOff = req.BaseStock
	}
	if totalWriteOff < 0 {
		totalWriteOff = 0
	}
	var coverSum float64
	coverCount := 0
	sentinel := float64(s.cfg.CoverMaxOffset)
	if sentinel <= 0 {
		sentinel = 12
	}
	for _, m := range result.Months {
		totalWriteOff += m.WriteOff
		// The sentinel means cover exceeds the lookahead window; those
		// months would skew the average and are excluded.
		if m.MonthsCover < sentinel {
			coverSum += m.MonthsCover
			coverCount++
		}
	}

	var avgCover float64
	if coverCount > 0 {
		avgCover = coverSum / float64(coverCount)
	}

	placed := make([]domain.PlacedOrder, 0, len(result.Orders))
	for _, o := range result.Orders {
		placed = append(placed, domain.PlacedOrder{
			YearMonth: o.ISODate[:7],
			Quantity:  o.Quantity,
		})
	}

	return &domain.RunSummary{
		OK:         true,
		SKU:        req.SKU,
		Country:    req.Country,
		DurationMs: time.Since(started).Milliseconds(),
		Stats: domain.RunStats{
			MonthsProcessed:    len(result.Months),
			SystemOrdersPlaced: len(result.Orders),
			TotalWriteOff:      totalWriteOff,
			AvgMonthsCover:     avgCover,
		},
		SystemOrders: placed,
		RanAt:        started.UTC(),
	}
}
