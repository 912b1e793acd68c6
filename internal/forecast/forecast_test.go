package forecast

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

var histStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func syntheticHistory(days int) features.History {
	base := map[string]float64{"Store_A|Milk": 12, "Store_A|Bread": 30, "Store_B|Milk": 8, "Store_B|Bread": 20}
	var h features.History
	for _, store := range []string{"Store_A", "Store_B"} {
		for _, product := range []string{"Milk", "Bread"} {
			for d := 0; d < days; d++ {
				date := histStart.AddDate(0, 0, d)
				units := base[store+"|"+product] + float64(d%3)
				if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
					units += 6
				}
				h.Sales = append(h.Sales, features.SalesRecord{Date: date, StoreID: store, Product: product, UnitsSold: units})
			}
		}
	}
	h.Weather = []features.WeatherRecord{{Date: histStart, Temperature: 4, Humidity: 70, Condition: "Cloudy"}}
	h.Events = []features.EventRecord{{Date: histStart.AddDate(0, 0, 20), Name: "Festival", Impact: 1.5}}
	return h
}

func smallParams() Params {
	p := DefaultParams()
	p.NumTrees = 12
	return p
}

func TestTrainIsDeterministicAcrossWorkerCounts(t *testing.T) {
	h := syntheticHistory(40)

	p1 := smallParams()
	p1.Workers = 1
	m1, err := Train(context.Background(), h, p1)
	require.NoError(t, err)

	p4 := smallParams()
	p4.Workers = 4
	m4, err := Train(context.Background(), h, p4)
	require.NoError(t, err)

	assert.Equal(t, m1.trees, m4.trees)
	assert.Equal(t, m1.Metrics(), m4.Metrics())

	start := histStart.AddDate(0, 0, 40)
	a, err := Predict(m1, "Store_A", "Milk", 5, start)
	require.NoError(t, err)
	b, err := Predict(m4, "Store_A", "Milk", 5, start)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Predicted, b[i].Predicted)
		assert.Equal(t, a[i].Lower, b[i].Lower)
		assert.Equal(t, a[i].Upper, b[i].Upper)
	}

	again, err := Predict(m1, "Store_A", "Milk", 5, start)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestTrainRecordsHoldoutMetrics(t *testing.T) {
	m, err := Train(context.Background(), syntheticHistory(40), smallParams())
	require.NoError(t, err)

	metrics := m.Metrics()
	assert.Equal(t, 32, metrics.HoldoutSamples)
	assert.Equal(t, 128, metrics.TrainSamples)
	assert.GreaterOrEqual(t, metrics.RMSE, metrics.MAE)
	assert.Less(t, metrics.MAE, 10.0)
	assert.Equal(t, int64(42), m.Seed())
	assert.Equal(t, 12, m.NumTrees())
	assert.Equal(t, []string{"Store_A", "Store_B"}, m.Stores())
	assert.Equal(t, []string{"Bread", "Milk"}, m.Products())
}

func TestPredictProducesOrderedIntervals(t *testing.T) {
	m, err := Train(context.Background(), syntheticHistory(40), smallParams())
	require.NoError(t, err)

	start := histStart.AddDate(0, 0, 40)
	recs, err := Predict(m, "Store_B", "Bread", 7, start)
	require.NoError(t, err)
	require.Len(t, recs, 7)

	for i, r := range recs {
		assert.Equal(t, start.AddDate(0, 0, i), r.Date)
		assert.Equal(t, "Store_B", r.StoreID)
		assert.Equal(t, "Bread", r.Product)
		assert.Equal(t, m.Version(), r.ModelVersion)
		assert.GreaterOrEqual(t, r.Predicted, 0.0)
		assert.LessOrEqual(t, r.Lower, r.Predicted)
		assert.GreaterOrEqual(t, r.Upper, r.Predicted)
		assert.GreaterOrEqual(t, r.StdDev, 0.0)
	}
	// Bread at Store_B sells 20-28 a day; the forest should stay in range.
	assert.InDelta(t, 23, recs[0].Predicted, 6)
}

func TestPredictErrors(t *testing.T) {
	start := histStart.AddDate(0, 0, 40)

	_, err := Predict(nil, "Store_A", "Milk", 1, start)
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)

	_, err = Predict(&Model{}, "Store_A", "Milk", 1, start)
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)

	m, err := Train(context.Background(), syntheticHistory(20), smallParams())
	require.NoError(t, err)

	_, err = Predict(m, "Store_Z", "Milk", 1, start)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)

	_, err = Predict(m, "Store_A", "Caviar", 1, start)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)

	_, err = Predict(m, "Store_A", "Milk", 0, start)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTrainRejectsBadInput(t *testing.T) {
	_, err := Train(context.Background(), features.History{}, smallParams())
	assert.Error(t, err)

	p := smallParams()
	p.FeatureFraction = 1.5
	_, err = Train(context.Background(), syntheticHistory(10), p)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestModelJSONKeepsPredictions(t *testing.T) {
	m, err := Train(context.Background(), syntheticHistory(30), smallParams())
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Model
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.Version(), decoded.Version())

	start := histStart.AddDate(0, 0, 30)
	want, err := Predict(m, "Store_A", "Bread", 3, start)
	require.NoError(t, err)
	got, err := Predict(&decoded, "Store_A", "Bread", 3, start)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestModelJSONRejectsMalformedTree(t *testing.T) {
	raw := `{"trees":[{"nodes":[{"f":0,"t":1,"l":0,"r":5,"v":1}]}]}`
	var m Model
	assert.Error(t, json.Unmarshal([]byte(raw), &m))
}

func TestTreeSplitsCategoricalByEquality(t *testing.T) {
	// Store code 1 sells 50, codes 0 and 2 sell 5: an ordinal threshold cannot isolate code 1.
	var x [][]float64
	var y []float64
	for i := 0; i < 30; i++ {
		row := make([]float64, features.NumColumns)
		code := float64(i % 3)
		row[features.ColStoreCode] = code
		x = append(x, row)
		if code == 1 {
			y = append(y, 50)
		} else {
			y = append(y, 5)
		}
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}

	tree := fitTree(x, y, idx, Params{MaxDepth: 1, MinLeafSize: 1, FeatureFraction: 1}, rand.New(rand.NewSource(1)))
	require.Len(t, tree.Nodes, 3)
	root := tree.Nodes[0]
	assert.True(t, root.Categorical)
	assert.Equal(t, features.ColStoreCode, root.Feature)

	row := make([]float64, features.NumColumns)
	row[features.ColStoreCode] = 1
	assert.Equal(t, 50.0, tree.Predict(row))
	row[features.ColStoreCode] = 2
	assert.Equal(t, 5.0, tree.Predict(row))
}

func TestRegistrySwap(t *testing.T) {
	r := NewRegistry(nil)
	assert.Nil(t, r.Current())

	m := &Model{version: "v1"}
	assert.Nil(t, r.Swap(m))
	assert.Same(t, m, r.Current())

	next := &Model{version: "v2"}
	assert.Same(t, m, r.Swap(next))
	assert.Equal(t, "v2", r.Current().Version())
}
