package engine

import "github.com/supplyplan/replenish-go/internal/domain"

// ProcessAging converts aging-batch records into a write-off schedule. A
// batch stops being sellable bufferMonths before its expiry month (the
// non-sell month). Batches already past both dates at the baseline are
// written off immediately; batches expiring after the baseline are scheduled
// at their non-sell month so the simulator zeroes them out in that month.
//
// A record whose expiry is at or before the cutoff while its non-sell month
// is after it cannot occur for bufferMonths >= 0; such records are dropped
// rather than double-counted.
func ProcessAging(records []domain.AgingRecord, cutoff YearMonth, bufferMonths int) WriteOffSchedule {
	schedule := WriteOffSchedule{
		FutureByMonth: make(map[YearMonth]float64),
	}

	for _, rec := range records {
		// Malformed rows are skipped, never raised.
		if rec.ExpiryDate.IsZero() || rec.NearExpiryQty <= 0 {
			continue
		}

		expiry := YearMonthOf(rec.ExpiryDate)
		nonSell := expiry.Add(-bufferMonths)

		switch {
		case expiry.Index() <= cutoff.Index() && nonSell.Index() <= cutoff.Index():
			schedule.Immediate += rec.NearExpiryQty
		case expiry.Index() > cutoff.Index():
			schedule.FutureByMonth[nonSell] += rec.NearExpiryQty
		}
	}

	return schedule
}
