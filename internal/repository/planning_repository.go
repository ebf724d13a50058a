package repository

import (
	"context"

	"github.com/supplyplan/replenish-go/internal/domain"
)

// PlanningRepository is the data-store boundary of the replenishment engine.
// The engine treats the snapshot as already-materialized in-memory data; any
// fetch or write failure propagates unchanged to the orchestrator's caller.
type PlanningRepository interface {
	// FetchAll loads the full read-only input snapshot for a SKU/country.
	FetchAll(ctx context.Context, sku, country string) (*domain.PlanningSnapshot, error)

	// PurgeOldData removes previously system-generated order rows and
	// previously written future-inventory rows, so reruns never accumulate
	// duplicates.
	PurgeOldData(ctx context.Context, sku, country string) error

	// WriteResults persists one future-inventory row per simulated month and
	// one order row per placed system order.
	WriteResults(ctx context.Context, months []domain.FutureInventoryRecord, orders []domain.OrderRecord) error

	// LatestLedger returns the currently persisted future-inventory rows for
	// a SKU/country in month order.
	LatestLedger(ctx context.Context, sku, country string) ([]domain.FutureInventoryRecord, error)
}
