package forecast

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

const (
	lowerQuantile = 0.05
	upperQuantile = 0.95
	// maxGapDays caps how far past the last observation the series is rolled forward.
	maxGapDays = 60
)

// Predict returns one forecast per day for [start, start+horizon), ascending by date.
// Days after the first use the previous day's point forecast as their lag input.
func Predict(m *Model, storeID, product string, horizon int, start time.Time) ([]domain.ForecastRecord, error) {
	if !m.Trained() {
		return nil, domain.ModelNotTrained()
	}
	if horizon < 1 {
		return nil, domain.InvalidArgument("horizon must be at least 1")
	}

	key := features.SeriesKey{StoreID: storeID, Product: product}
	b := features.NewBuilder(m.vocab, m.calendar)

	state, ok := m.series[key.String()]
	if !ok {
		// Known store and product that never sold together: start from the product average.
		state = SeriesState{Mean: m.productMeans[product]}
	}
	prev := append([]float64(nil), state.Recent...)
	start = domain.Day(start)

	if !state.LastDate.IsZero() {
		gap := domain.DaysBetween(state.LastDate, start) - 1
		if gap > maxGapDays {
			gap = maxGapDays
		}
		for d := gap; d > 0; d-- {
			p, err := m.pointAt(b, key, start.AddDate(0, 0, -d), prev, state.Mean)
			if err != nil {
				return nil, err
			}
			prev = append(prev, p)
		}
	}

	out := make([]domain.ForecastRecord, 0, horizon)
	preds := make([]float64, len(m.trees))
	for d := 0; d < horizon; d++ {
		date := start.AddDate(0, 0, d)
		v, err := b.Vector(key, date, prev, state.Mean, false)
		if err != nil {
			return nil, err
		}
		row := v.Values()
		for i, t := range m.trees {
			preds[i] = t.Predict(row)
		}

		rec := summarize(preds)
		rec.StoreID = storeID
		rec.Product = product
		rec.Date = date
		rec.ModelVersion = m.version
		out = append(out, rec)

		prev = append(prev, rec.Predicted)
	}
	return out, nil
}

func (m *Model) pointAt(b *features.Builder, key features.SeriesKey, date time.Time, prev []float64, mean float64) (float64, error) {
	v, err := b.Vector(key, date, prev, mean, false)
	if err != nil {
		return 0, err
	}
	row := v.Values()
	sum := 0.0
	for _, t := range m.trees {
		sum += t.Predict(row)
	}
	return math.Max(0, sum/float64(len(m.trees))), nil
}

// summarize reduces per-tree predictions to a point forecast and an empirical interval.
func summarize(preds []float64) domain.ForecastRecord {
	sorted := append([]float64(nil), preds...)
	sort.Float64s(sorted)

	mean := stat.Mean(preds, nil)
	std := 0.0
	if len(preds) > 1 {
		std = stat.StdDev(preds, nil)
	}
	lower := stat.Quantile(lowerQuantile, stat.Empirical, sorted, nil)
	upper := stat.Quantile(upperQuantile, stat.Empirical, sorted, nil)

	point := math.Max(0, mean)
	return domain.ForecastRecord{
		Predicted: point,
		Lower:     math.Min(math.Max(0, lower), point),
		Upper:     math.Max(math.Max(0, upper), point),
		StdDev:    std,
	}
}
