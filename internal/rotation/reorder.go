package rotation

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// ceilEpsilon absorbs float noise before rounding a quantity up.
const ceilEpsilon = 1e-9

// reorderCalculator derives reorder quantities from on-hand batches and lead-time forecasts.
type reorderCalculator struct {
	params Params
}

func newReorderCalculator(params Params) *reorderCalculator {
	params.RunDate = domain.Day(params.RunDate)
	return &reorderCalculator{params: params}
}

// calculate computes the recommendation for one product.
func (rc *reorderCalculator) calculate(storeID, product string, batches []domain.InventoryBatch, forecast *productForecast) domain.ReorderRecommendation {
	p := rc.params
	rec := domain.ReorderRecommendation{StoreID: storeID, Product: product}

	// 1. On hand = batches still sellable on the run date
	var live []domain.InventoryBatch
	for _, b := range batches {
		if !b.IsExpired(p.RunDate) {
			rec.OnHand += b.Quantity
			live = append(live, b)
		}
	}

	// 2. Lead-time demand and its spread over [RunDate, RunDate+LeadTimeDays)
	var variance float64
	for d := 0; d < p.LeadTimeDays; d++ {
		day := p.RunDate.AddDate(0, 0, d)
		demand, v := forecast.on(day)
		rec.ForecastDemand += demand
		variance += v
	}

	// 3. Safety stock = factor × σ over the lead time
	rec.SafetyStock = p.SafetyStockFactor * math.Sqrt(variance)

	// 4. Reorder quantity, never negative
	need := rec.ForecastDemand + rec.SafetyStock - float64(rec.OnHand)
	rec.Quantity = int(math.Max(0, math.Ceil(need-ceilEpsilon)))

	// 5. Units projected to expire unsold within the horizon
	for _, left := range projectUnsold(live, forecast, p.RunDate, p.ExpiryHorizonDays) {
		rec.ExpiringUnits += left
	}

	// 6. Reason and urgency
	switch {
	case rec.Quantity > 0:
		rec.Reason = domain.ReasonStockoutRisk
		rec.Urgent = float64(rec.OnHand) < rec.ForecastDemand
	case rec.ExpiringUnits > 0:
		rec.Reason = domain.ReasonExpirySurplus
	default:
		rec.Reason = domain.ReasonSufficient
	}

	// 7. Cost of the order
	rec.EstimatedCost = decimal.Zero
	if prod, ok := p.Catalog[product]; ok {
		rec.EstimatedCost = prod.UnitCost.Mul(decimal.NewFromInt(int64(rec.Quantity)))
	}

	return rec
}

// ComputeRecommendations returns one recommendation per product found in the store's
// batches or forecasts, most urgent first and by product within equal urgency.
func ComputeRecommendations(storeID string, batches []domain.InventoryBatch, forecasts []domain.ForecastRecord, params Params) ([]domain.ReorderRecommendation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	batches = forStore(batches, storeID)
	if err := validateBatches(batches); err != nil {
		return nil, err
	}

	var storeForecasts []domain.ForecastRecord
	for _, f := range forecasts {
		if f.StoreID == "" || f.StoreID == storeID {
			storeForecasts = append(storeForecasts, f)
		}
	}
	demand := indexForecasts(storeForecasts)
	grouped := byProduct(batches)

	products := make(map[string]struct{}, len(grouped)+len(demand))
	for p := range grouped {
		products[p] = struct{}{}
	}
	for p := range demand {
		products[p] = struct{}{}
	}

	calc := newReorderCalculator(params)
	recs := make([]domain.ReorderRecommendation, 0, len(products))
	for product := range products {
		recs = append(recs, calc.calculate(storeID, product, grouped[product], demand[product]))
	}

	sort.Slice(recs, func(i, j int) bool {
		ri, rj := urgencyRank(recs[i]), urgencyRank(recs[j])
		if ri != rj {
			return ri < rj
		}
		return recs[i].Product < recs[j].Product
	})
	return recs, nil
}

func urgencyRank(r domain.ReorderRecommendation) int {
	switch {
	case r.Reason == domain.ReasonStockoutRisk && r.Urgent:
		return 0
	case r.Reason == domain.ReasonStockoutRisk:
		return 1
	case r.Reason == domain.ReasonExpirySurplus:
		return 2
	default:
		return 3
	}
}

func forStore(batches []domain.InventoryBatch, storeID string) []domain.InventoryBatch {
	out := make([]domain.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.StoreID == "" || b.StoreID == storeID {
			out = append(out, b)
		}
	}
	return out
}
