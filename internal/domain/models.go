package domain

import "time"

// SKUMeta carries master data for a SKU in a given market.
type SKUMeta struct {
	ID            int64  `json:"id" db:"id"`
	SKU           string `json:"sku" db:"sku"`
	Country       string `json:"country" db:"country"`
	Description   string `json:"description" db:"description"`
	TinsPerCarton int    `json:"tins_per_carton" db:"tins_per_carton"`
}

// BudgetRecord is a planned consumption quantity for one budget month.
type BudgetRecord struct {
	SKU      string  `json:"sku" db:"sku"`
	Country  string  `json:"country" db:"country"`
	Year     int     `json:"year" db:"year"`
	Month    int     `json:"month" db:"month"`
	Quantity float64 `json:"quantity" db:"quantity"`
}

// ForecastRecord is a demand forecast row keyed by an exact calendar month.
type ForecastRecord struct {
	SKU      string    `json:"sku" db:"sku"`
	Country  string    `json:"country" db:"country"`
	Month    time.Time `json:"month" db:"month"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// OrderRecord is a purchase order, either entered by a planner or generated
// by a previous simulation run.
type OrderRecord struct {
	ID       int64   `json:"id" db:"id"`
	SKU      string  `json:"sku" db:"sku"`
	Country  string  `json:"country" db:"country"`
	Year     int     `json:"year" db:"year"`
	Month    int     `json:"month" db:"month"`
	Quantity float64 `json:"quantity" db:"quantity"`
	IsSystem bool    `json:"is_system" db:"is_system"`
}

// AgingRecord is a stock batch approaching its expiry date.
type AgingRecord struct {
	SKU           string    `json:"sku" db:"sku"`
	Country       string    `json:"country" db:"country"`
	NearExpiryQty float64   `json:"near_expiry_qty" db:"near_expiry_qty"`
	ExpiryDate    time.Time `json:"expiry_date" db:"expiry_date"`
}

// FutureInventoryRecord is one persisted row of the simulated monthly ledger.
type FutureInventoryRecord struct {
	ID           int64     `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Country      string    `json:"country" db:"country"`
	Year         int       `json:"year" db:"year"`
	Month        int       `json:"month" db:"month"`
	OpeningStock float64   `json:"opening_stock" db:"opening_stock"`
	Inbound      float64   `json:"inbound" db:"inbound"`
	WriteOff     float64   `json:"write_off" db:"write_off"`
	Consumption  float64   `json:"consumption" db:"consumption"`
	ClosingStock float64   `json:"closing_stock" db:"closing_stock"`
	Cartons      float64   `json:"cartons" db:"cartons"`
	SystemOrder  float64   `json:"system_order" db:"system_order"`
	MonthsCover  float64   `json:"months_cover" db:"months_cover"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PlanningSnapshot is the read-only input set for one simulation run.
type PlanningSnapshot struct {
	Meta               *SKUMeta
	Budgets            []BudgetRecord
	Forecasts          []ForecastRecord
	Orders             []OrderRecord
	AllowedMonths      []int
	Aging              []AgingRecord
	OldFutureInventory []FutureInventoryRecord
}

// RunRequest is the input of one replenishment run.
type RunRequest struct {
	SKU                   string    `json:"sku"`
	Country               string    `json:"country"`
	BaselineDate          time.Time `json:"baseline_date"`
	BaseStock             float64   `json:"base_stock"`
	TargetCoverMonths     int       `json:"target_cover_months"`
	ProcurementSafeMargin float64   `json:"procurement_safe_margin"`
}

// PlacedOrder is the compact order view returned to callers.
type PlacedOrder struct {
	YearMonth string  `json:"year_month"`
	Quantity  float64 `json:"quantity"`
}

// RunStats aggregates one run's outcome.
type RunStats struct {
	MonthsProcessed    int     `json:"months_processed"`
	SystemOrdersPlaced int     `json:"system_orders_placed"`
	TotalWriteOff      float64 `json:"total_write_off"`
	AvgMonthsCover     float64 `json:"avg_months_cover"`
}

// RunSummary is the full result surfaced by the orchestrator.
type RunSummary struct {
	OK           bool          `json:"ok"`
	SKU          string        `json:"sku"`
	Country      string        `json:"country"`
	DurationMs   int64         `json:"duration_ms"`
	Stats        RunStats      `json:"stats"`
	SystemOrders []PlacedOrder `json:"system_orders"`
	RanAt        time.Time     `json:"ran_at"`
}
