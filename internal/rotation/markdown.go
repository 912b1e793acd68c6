package rotation

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

const (
	minDiscountPct  = 10
	maxDiscountPct  = 50
	discountStepPct = 20
)

// productForecast indexes one product's daily forecasts by day.
type productForecast struct {
	demand   map[time.Time]float64
	variance map[time.Time]float64
}

// on returns the point demand and its variance for day; missing days forecast zero.
func (f *productForecast) on(day time.Time) (demand, variance float64) {
	if f == nil {
		return 0, 0
	}
	return f.demand[day], f.variance[day]
}

func indexForecasts(forecasts []domain.ForecastRecord) map[string]*productForecast {
	out := make(map[string]*productForecast)
	for _, f := range forecasts {
		pf, ok := out[f.Product]
		if !ok {
			pf = &productForecast{demand: make(map[time.Time]float64), variance: make(map[time.Time]float64)}
			out[f.Product] = pf
		}
		day := domain.Day(f.Date)
		pf.demand[day] += f.Predicted
		pf.variance[day] += f.StdDev * f.StdDev
	}
	return out
}

// projectUnsold runs a day-by-day FEFO simulation of one product from runDate through
// runDate+horizonDays. Each batch retired by expiry inside that window is reported with
// the units still on it, keyed by batchKey. Fractional daily demand is carried over so
// totals stay exact.
func projectUnsold(batches []domain.InventoryBatch, forecast *productForecast, runDate time.Time, horizonDays int) map[string]int {
	unsold := make(map[string]int)
	live := SortFEFO(batches)
	cum, sold := 0.0, 0

	for d := 0; d <= horizonDays; d++ {
		day := runDate.AddDate(0, 0, d)

		kept := make([]domain.InventoryBatch, 0, len(live))
		for _, b := range live {
			if b.IsExpired(day) {
				unsold[batchKey(b)] = b.Quantity
				continue
			}
			kept = append(kept, b)
		}

		demand, _ := forecast.on(day)
		cum += demand
		want := int(math.Round(cum)) - sold
		sold += want
		live, _ = Deplete(kept, want)
	}
	return unsold
}

// ComputeMarkdowns flags batches expected to go unsold: batches expiring within the
// horizon with projected leftovers get a markdown, already-expired batches are sent to
// donation or discard. Output is ordered by expiry, product and batch ID.
func ComputeMarkdowns(batches []domain.InventoryBatch, forecasts []domain.ForecastRecord, runDate time.Time, horizonDays int) ([]domain.BatchAction, error) {
	if horizonDays < 0 {
		return nil, domain.InvalidArgument("rotation: expiry horizon must be non-negative")
	}
	if err := validateBatches(batches); err != nil {
		return nil, err
	}
	runDate = domain.Day(runDate)
	demand := indexForecasts(forecasts)

	var actions []domain.BatchAction
	for product, group := range byProduct(batches) {
		var live []domain.InventoryBatch
		for _, b := range group {
			if b.Quantity == 0 {
				continue
			}
			if b.IsExpired(runDate) {
				actions = append(actions, domain.BatchAction{
					Batch:           b,
					Action:          domain.ActionDonateOrDiscard,
					ProjectedUnsold: b.Quantity,
					DaysUntilExpiry: b.DaysUntilExpiry(runDate),
				})
				continue
			}
			live = append(live, b)
		}

		unsold := projectUnsold(live, demand[product], runDate, horizonDays)
		for _, b := range live {
			left, ok := unsold[batchKey(b)]
			if !ok || left <= 0 {
				continue
			}
			days := b.DaysUntilExpiry(runDate)
			actions = append(actions, domain.BatchAction{
				Batch:           b,
				Action:          domain.ActionMarkdown,
				ProjectedUnsold: left,
				DaysUntilExpiry: days,
				DiscountPct:     discountPct(horizonDays, days),
			})
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i].Batch, actions[j].Batch
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return a.ID < b.ID
	})
	return actions, nil
}

// discountPct deepens the markdown as expiry approaches, 20 points per day, within 10..50.
func discountPct(horizonDays, daysUntilExpiry int) int {
	pct := (horizonDays - daysUntilExpiry + 1) * discountStepPct
	return min(maxDiscountPct, max(minDiscountPct, pct))
}
