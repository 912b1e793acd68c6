package rotation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

var runDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func on(offset int) time.Time { return runDate.AddDate(0, 0, offset) }

func batch(id, product string, qty, receivedOffset, expiryOffset int) domain.InventoryBatch {
	return domain.InventoryBatch{
		ID:         id,
		StoreID:    "Store_A",
		Product:    product,
		Quantity:   qty,
		ReceivedAt: on(receivedOffset),
		ExpiresAt:  on(expiryOffset),
	}
}

func daily(product string, std float64, values ...float64) []domain.ForecastRecord {
	out := make([]domain.ForecastRecord, len(values))
	for i, v := range values {
		out[i] = domain.ForecastRecord{StoreID: "Store_A", Product: product, Date: on(i), Predicted: v, StdDev: std}
	}
	return out
}

func TestReorderForMilkScenario(t *testing.T) {
	batches := []domain.InventoryBatch{batch("M1", "Milk", 8, -2, 10)}
	params := DefaultParams(runDate)

	recs, err := ComputeRecommendations("Store_A", batches, daily("Milk", 0, 10, 12, 9), params)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, 23, r.Quantity)
	assert.Equal(t, 8, r.OnHand)
	assert.Equal(t, 31.0, r.ForecastDemand)
	assert.Equal(t, 0.0, r.SafetyStock)
	assert.Equal(t, domain.ReasonStockoutRisk, r.Reason)
	assert.True(t, r.Urgent)
	assert.Equal(t, 0, r.ExpiringUnits)
}

func TestReorderAddsSafetyStockFromForecastSpread(t *testing.T) {
	batches := []domain.InventoryBatch{batch("M1", "Milk", 8, -2, 10)}
	forecasts := daily("Milk", 0, 10, 12, 9)
	forecasts[0].StdDev = 1
	forecasts[1].StdDev = 2
	forecasts[2].StdDev = 2

	params := DefaultParams(runDate)
	params.Catalog = domain.Catalog{"Milk": {Name: "Milk", UnitCost: decimal.RequireFromString("1.25")}}

	recs, err := ComputeRecommendations("Store_A", batches, forecasts, params)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// sigma = sqrt(1+4+4) = 3, safety = 1.65 * 3 = 4.95
	assert.InDelta(t, 4.95, recs[0].SafetyStock, 1e-9)
	assert.Equal(t, 28, recs[0].Quantity)
	assert.True(t, recs[0].EstimatedCost.Equal(decimal.RequireFromString("35")), recs[0].EstimatedCost.String())
}

func TestReorderIgnoresExpiredStockAndOtherDays(t *testing.T) {
	batches := []domain.InventoryBatch{
		batch("M0", "Milk", 100, -10, 0), // expires on the run date
		batch("M1", "Milk", 8, -2, 10),
	}
	forecasts := append(daily("Milk", 0, 10, 12, 9, 50), domain.ForecastRecord{
		StoreID: "Store_B", Product: "Milk", Date: on(0), Predicted: 1000,
	})

	recs, err := ComputeRecommendations("Store_A", batches, forecasts, DefaultParams(runDate))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 8, recs[0].OnHand)
	assert.Equal(t, 31.0, recs[0].ForecastDemand)
	assert.Equal(t, 23, recs[0].Quantity)
}

func TestRecommendationOrdering(t *testing.T) {
	batches := []domain.InventoryBatch{
		batch("A1", "Apples", 30, -1, 20),
		batch("C1", "Cheese", 100, -1, 20),
		batch("E1", "Eggs", 40, -5, 1),
		batch("M1", "Milk", 8, -1, 10),
	}
	var forecasts []domain.ForecastRecord
	forecasts = append(forecasts, daily("Apples", 2, 10, 10, 10)...)
	forecasts = append(forecasts, daily("Bread", 0, 5, 5, 5)...)
	forecasts = append(forecasts, daily("Cheese", 0, 1, 1, 1)...)
	forecasts = append(forecasts, daily("Eggs", 0, 10, 10, 10)...)
	forecasts = append(forecasts, daily("Milk", 0, 10, 12, 9)...)

	recs, err := ComputeRecommendations("Store_A", batches, forecasts, DefaultParams(runDate))
	require.NoError(t, err)

	var order []string
	for _, r := range recs {
		order = append(order, r.Product)
	}
	assert.Equal(t, []string{"Bread", "Milk", "Apples", "Eggs", "Cheese"}, order)

	apples := recs[2]
	assert.Equal(t, domain.ReasonStockoutRisk, apples.Reason)
	assert.False(t, apples.Urgent)
	assert.Equal(t, 6, apples.Quantity)

	eggs := recs[3]
	assert.Equal(t, domain.ReasonExpirySurplus, eggs.Reason)
	assert.Equal(t, 0, eggs.Quantity)
	assert.Equal(t, 30, eggs.ExpiringUnits)

	cheese := recs[4]
	assert.Equal(t, domain.ReasonSufficient, cheese.Reason)
	assert.Equal(t, 0, cheese.Quantity)
	assert.True(t, cheese.EstimatedCost.IsZero())
}

func TestReorderNeverNegativeAndZeroWhenCovered(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := DefaultParams(runDate)
	for i := 0; i < 200; i++ {
		var batches []domain.InventoryBatch
		n := rng.Intn(4)
		for j := 0; j < n; j++ {
			received := -rng.Intn(5) - 1
			batches = append(batches, batch(string(rune('a'+j)), "Milk", rng.Intn(60), received, received+1+rng.Intn(12)))
		}
		forecasts := daily("Milk", rng.Float64()*3, rng.Float64()*20, rng.Float64()*20, rng.Float64()*20)

		recs, err := ComputeRecommendations("Store_A", batches, forecasts, params)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		r := recs[0]
		assert.GreaterOrEqual(t, r.Quantity, 0)
		if float64(r.OnHand) >= r.ForecastDemand+r.SafetyStock {
			assert.Equal(t, 0, r.Quantity)
		}
	}
}

func TestComputeRecommendationsValidates(t *testing.T) {
	bad := batch("X", "Milk", 5, 0, 0)
	_, err := ComputeRecommendations("Store_A", []domain.InventoryBatch{bad}, nil, DefaultParams(runDate))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	params := DefaultParams(runDate)
	params.LeadTimeDays = 0
	_, err = ComputeRecommendations("Store_A", nil, nil, params)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMarkdownAndDonateScenario(t *testing.T) {
	batches := []domain.InventoryBatch{
		batch("fresh", "Milk", 5, -5, 1),
		batch("stale", "Milk", 3, -9, -1),
		batch("later", "Milk", 20, -1, 6),
	}

	actions, err := ComputeMarkdowns(batches, daily("Milk", 0, 2, 2, 2), runDate, 2)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "stale", actions[0].Batch.ID)
	assert.Equal(t, domain.ActionDonateOrDiscard, actions[0].Action)
	assert.Equal(t, 3, actions[0].ProjectedUnsold)

	assert.Equal(t, "fresh", actions[1].Batch.ID)
	assert.Equal(t, domain.ActionMarkdown, actions[1].Action)
	assert.Equal(t, 3, actions[1].ProjectedUnsold)
	assert.Equal(t, 1, actions[1].DaysUntilExpiry)
	assert.Equal(t, 40, actions[1].DiscountPct)
}

func TestBatchIDsMustBeSetAndUnique(t *testing.T) {
	forecasts := daily("Milk", 0, 2, 2, 2)

	_, err := ComputeMarkdowns([]domain.InventoryBatch{batch("", "Milk", 5, -5, 1)}, forecasts, runDate, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	dup := []domain.InventoryBatch{batch("B1", "Milk", 5, -5, 1), batch("B1", "Milk", 7, -3, 1)}
	_, err = ComputeMarkdowns(dup, forecasts, runDate, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ComputeRecommendations("Store_A", dup, forecasts, DefaultParams(runDate))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	other := batch("B1", "Milk", 7, -3, 1)
	other.StoreID = "Store_B"
	actions, err := ComputeMarkdowns([]domain.InventoryBatch{dup[0], other}, nil, runDate, 2)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.ElementsMatch(t, []int{5, 7}, []int{actions[0].ProjectedUnsold, actions[1].ProjectedUnsold})
}

func TestNoMarkdownWhenForecastSellsThrough(t *testing.T) {
	batches := []domain.InventoryBatch{batch("fresh", "Milk", 5, -5, 2)}

	actions, err := ComputeMarkdowns(batches, daily("Milk", 0, 3, 3, 3), runDate, 2)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestMarkdownCarriesFractionalDemand(t *testing.T) {
	// 1.5 + 1.5 sells 3 units across two days.
	batches := []domain.InventoryBatch{batch("fresh", "Milk", 4, -5, 2)}

	actions, err := ComputeMarkdowns(batches, daily("Milk", 0, 1.5, 1.5), runDate, 2)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, 1, actions[0].ProjectedUnsold)
	assert.Equal(t, 20, actions[0].DiscountPct)
}

func TestSortFEFOAndDeplete(t *testing.T) {
	batches := []domain.InventoryBatch{
		batch("A", "Milk", 5, -1, 5),
		batch("B", "Milk", 3, -1, 2),
		batch("C", "Milk", 2, -3, 2),
		batch("D", "Milk", 1, -3, 2),
	}

	sorted := SortFEFO(batches)
	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID, sorted[3].ID}
	assert.Equal(t, []string{"C", "D", "B", "A"}, ids)
	assert.Equal(t, "A", batches[0].ID, "input is not reordered")

	left, unmet := Deplete(batches, 4)
	assert.Equal(t, 0, unmet)
	require.Len(t, left, 2)
	assert.Equal(t, "B", left[0].ID)
	assert.Equal(t, 2, left[0].Quantity)
	assert.Equal(t, 5, left[1].Quantity)
	assert.Equal(t, 5, batches[0].Quantity, "input quantities are untouched")

	left, unmet = Deplete(batches, 20)
	assert.Empty(t, left)
	assert.Equal(t, 9, unmet)
}

func TestDepleteNeverSkipsEarlierBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		var batches []domain.InventoryBatch
		for j := 0; j < 5; j++ {
			batches = append(batches, batch(string(rune('a'+j)), "Milk", rng.Intn(10)+1, -rng.Intn(3)-1, rng.Intn(6)+1))
		}
		left, _ := Deplete(batches, rng.Intn(30))

		remaining := make(map[string]int)
		for _, b := range left {
			remaining[b.ID] = b.Quantity
		}
		sorted := SortFEFO(batches)
		for k := 1; k < len(sorted); k++ {
			later := sorted[k]
			if remaining[later.ID] < later.Quantity {
				for _, earlier := range sorted[:k] {
					assert.Zero(t, remaining[earlier.ID], "batch %s touched before %s emptied", later.ID, earlier.ID)
				}
			}
		}
	}
}

func TestRotationPlan(t *testing.T) {
	batches := []domain.InventoryBatch{
		batch("N", "Milk", 4, -1, 10),
		batch("U", "Milk", 2, -5, 1),
		batch("H", "Milk", 3, -2, 3),
		batch("X", "Milk", 9, -9, 0),
		batch("B", "Bread", 6, -1, 2),
	}

	plan := RotationPlan(batches, runDate)
	require.Len(t, plan, 4)

	assert.Equal(t, "B", plan[0].Batch.ID)
	assert.Equal(t, PriorityHigh, plan[0].Priority)

	assert.Equal(t, "U", plan[1].Batch.ID)
	assert.Equal(t, PriorityUrgent, plan[1].Priority)
	assert.Equal(t, domain.PositionFront, plan[1].Position)
	assert.Equal(t, 1, plan[1].Sequence)

	assert.Equal(t, "H", plan[2].Batch.ID)
	assert.Equal(t, domain.PositionFront, plan[2].Position)

	assert.Equal(t, "N", plan[3].Batch.ID)
	assert.Equal(t, PriorityNormal, plan[3].Priority)
	assert.Equal(t, domain.PositionBack, plan[3].Position)
	assert.Equal(t, 3, plan[3].Sequence)
}
