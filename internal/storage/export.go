package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/supplyplan/replenish-go/internal/domain"
)

// RenderLedgerCSV renders a persisted future-inventory ledger as CSV, one row
// per simulated month.
func RenderLedgerCSV(rows []domain.FutureInventoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"sku",
		"country",
		"year",
		"month",
		"opening_stock",
		"inbound",
		"write_off",
		"consumption",
		"closing_stock",
		"cartons",
		"system_order",
		"months_cover",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{
			r.SKU,
			r.Country,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			formatQty(r.OpeningStock),
			formatQty(r.Inbound),
			formatQty(r.WriteOff),
			formatQty(r.Consumption),
			formatQty(r.ClosingStock),
			formatQty(r.Cartons),
			formatQty(r.SystemOrder),
			formatQty(r.MonthsCover),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LedgerObjectKey builds the upload key for a SKU/country ledger export.
func LedgerObjectKey(sku, country string) string {
	return fmt.Sprintf("ledgers/%s/%s.csv", country, sku)
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
