package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/supplyplan/replenish-go/internal/domain"
	"github.com/supplyplan/replenish-go/internal/repository"
)

const defaultWriteBatchSize = 100

type planningRepository struct {
	db        *DB
	batchSize int
}

// NewPlanningRepository builds the Postgres-backed planning store client.
// batchSize bounds how many rows each write-back statement carries.
func NewPlanningRepository(db *DB, batchSize int) repository.PlanningRepository {
	if batchSize <= 0 {
		batchSize = defaultWriteBatchSize
	}
	return &planningRepository{db: db, batchSize: batchSize}
}

// FetchAll issues the seven snapshot reads concurrently; they have no data
// dependency on each other and are joined before computation starts.
func (r *planningRepository) FetchAll(ctx context.Context, sku, country string) (*domain.PlanningSnapshot, error) {
	snap := &domain.PlanningSnapshot{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var meta domain.SKUMeta
		err := r.db.GetContext(gctx, &meta, `
			SELECT id, sku, country, description, tins_per_carton
			FROM sku_master
			WHERE sku = $1 AND country = $2`, sku, country)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error fetching sku meta: %w", err)
		}
		snap.Meta = &meta
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.Budgets, `
			SELECT sku, country, year, month, quantity
			FROM budgets
			WHERE sku = $1 AND country = $2`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching budgets: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.Forecasts, `
			SELECT sku, country, month, quantity
			FROM forecasts
			WHERE sku = $1 AND country = $2`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching forecasts: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.Orders, `
			SELECT id, sku, country, year, month, quantity, is_system
			FROM purchase_orders
			WHERE sku = $1 AND country = $2`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching orders: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.AllowedMonths, `
			SELECT month
			FROM allowed_order_months
			WHERE sku = $1 AND country = $2
			ORDER BY month`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching allowed order months: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.Aging, `
			SELECT sku, country, near_expiry_qty, expiry_date
			FROM stock_aging
			WHERE sku = $1 AND country = $2`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching stock aging: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.SelectContext(gctx, &snap.OldFutureInventory, `
			SELECT id, sku, country, year, month, opening_stock, inbound,
			       write_off, consumption, closing_stock, cartons,
			       system_order, months_cover, created_at
			FROM future_inventory
			WHERE sku = $1 AND country = $2
			ORDER BY year, month`, sku, country)
		if err != nil {
			return fmt.Errorf("error fetching future inventory: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}

// PurgeOldData deletes prior system-generated orders and the previous run's
// ledger in one transaction, so a rerun can never double-count its own
// output.
func (r *planningRepository) PurgeOldData(ctx context.Context, sku, country string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM purchase_orders
			WHERE sku = $1 AND country = $2 AND is_system = TRUE`, sku, country); err != nil {
			return fmt.Errorf("error purging system orders: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM future_inventory
			WHERE sku = $1 AND country = $2`, sku, country); err != nil {
			return fmt.Errorf("error purging future inventory: %w", err)
		}

		return nil
	})
}

// WriteResults persists the monthly ledger and the placed orders. Rows are
// inserted in batchSize chunks inside a single transaction: chunking keeps
// individual statements within transport limits, the transaction keeps the
// run all-or-nothing.
func (r *planningRepository) WriteResults(ctx context.Context, months []domain.FutureInventoryRecord, orders []domain.OrderRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, chunk := range chunkRecords(months, r.batchSize) {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO future_inventory (
					sku, country, year, month, opening_stock, inbound,
					write_off, consumption, closing_stock, cartons,
					system_order, months_cover
				) VALUES (
					:sku, :country, :year, :month, :opening_stock, :inbound,
					:write_off, :consumption, :closing_stock, :cartons,
					:system_order, :months_cover
				)`, chunk)
			if err != nil {
				return fmt.Errorf("error writing future inventory: %w", err)
			}
		}

		for _, chunk := range chunkRecords(orders, r.batchSize) {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO purchase_orders (
					sku, country, year, month, quantity, is_system
				) VALUES (
					:sku, :country, :year, :month, :quantity, :is_system
				)`, chunk)
			if err != nil {
				return fmt.Errorf("error writing system orders: %w", err)
			}
		}

		return nil
	})
}

func (r *planningRepository) LatestLedger(ctx context.Context, sku, country string) ([]domain.FutureInventoryRecord, error) {
	var rows []domain.FutureInventoryRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, sku, country, year, month, opening_stock, inbound,
		       write_off, consumption, closing_stock, cartons,
		       system_order, months_cover, created_at
		FROM future_inventory
		WHERE sku = $1 AND country = $2
		ORDER BY year, month`, sku, country)
	if err != nil {
		return nil, fmt.Errorf("error fetching ledger: %w", err)
	}
	return rows, nil
}

func chunkRecords[T any](rows []T, size int) [][]T {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{rows}
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
