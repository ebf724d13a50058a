package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/supplyplan/replenish-go/internal/cache"
	"github.com/supplyplan/replenish-go/internal/config"
	"github.com/supplyplan/replenish-go/internal/domain"
	"github.com/supplyplan/replenish-go/internal/repository/postgres"
	"github.com/supplyplan/replenish-go/internal/service"
	"github.com/supplyplan/replenish-go/internal/storage"
	"github.com/supplyplan/replenish-go/internal/types"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDBFromURL("pgx", c.String("db-url"))
	if err != nil {
		return err
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, types.DBKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(types.DBKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(types.DBKey).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func runReplenishment(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	cfg := config.Load()
	repo := postgres.NewPlanningRepository(db, cfg.Planning.WriteBatchSize)
	svc := service.NewReplenishmentService(repo, cache.NewNoopSummaryCache(), cfg.Planning)

	req := domain.RunRequest{
		SKU:                   c.String("sku"),
		Country:               c.String("country"),
		BaseStock:             c.Float64("base-stock"),
		TargetCoverMonths:     c.Int("target-cover"),
		ProcurementSafeMargin: c.Float64("margin"),
	}
	if baseline := c.String("baseline"); baseline != "" {
		parsed, err := time.Parse("2006-01-02", baseline)
		if err != nil {
			return fmt.Errorf("invalid baseline date %q, expected YYYY-MM-DD", baseline)
		}
		req.BaselineDate = parsed
	}

	summary, err := svc.Run(c.Context, req)
	if err != nil {
		return err
	}

	fmt.Printf("Run completed in %dms\n", summary.DurationMs)
	fmt.Printf("  months processed:  %d\n", summary.Stats.MonthsProcessed)
	fmt.Printf("  orders placed:     %d\n", summary.Stats.SystemOrdersPlaced)
	fmt.Printf("  total write-off:   %.2f\n", summary.Stats.TotalWriteOff)
	fmt.Printf("  avg months cover:  %.2f\n", summary.Stats.AvgMonthsCover)
	for _, o := range summary.SystemOrders {
		fmt.Printf("  order %s qty %.0f\n", o.YearMonth, o.Quantity)
	}

	return nil
}

func exportLedger(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	cfg := config.Load()
	repo := postgres.NewPlanningRepository(db, cfg.Planning.WriteBatchSize)

	sku := c.String("sku")
	country := c.String("country")

	rows, err := repo.LatestLedger(c.Context, sku, country)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no ledger found for %s/%s, run a simulation first", sku, country)
	}

	data, err := storage.RenderLedgerCSV(rows)
	if err != nil {
		return fmt.Errorf("failed to render ledger: %w", err)
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(rows), out)
	}

	// Upload when object storage is configured.
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			return err
		}
		key := storage.LedgerObjectKey(sku, country)
		if err := client.UploadObject(c.Context, key, data, "text/csv"); err != nil {
			return err
		}
		fmt.Printf("Uploaded ledger to %s\n", key)
	}

	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "replenish",
		Usage: "Run and export SKU replenishment forecasts",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a replenishment simulation for a SKU/country",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "sku",
						Usage:    "SKU code",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "country",
						Usage:    "Country code",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "base-stock",
						Usage:    "Current stock level at the baseline date",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "target-cover",
						Usage: "Target months of cover (0 uses the configured default)",
					},
					&cli.Float64Flag{
						Name:  "margin",
						Usage: "Procurement safety margin multiplier",
						Value: 1.0,
					},
					&cli.StringFlag{
						Name:  "baseline",
						Usage: "Baseline date (YYYY-MM-DD, defaults to today)",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runReplenishment,
			},
			{
				Name:  "export",
				Usage: "Export the latest simulated ledger as CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "sku",
						Usage:    "SKU code",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "country",
						Usage:    "Country code",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Local output path for the CSV",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: exportLedger,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
