package features

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// SeriesKey identifies one (store, product) sales series.
type SeriesKey struct {
	StoreID string
	Product string
}

func (k SeriesKey) String() string { return k.StoreID + "|" + k.Product }

// Sample is one labelled training row.
type Sample struct {
	Key    SeriesKey
	Date   time.Time
	Vector Vector
	Label  float64
}

// Observation is one day of a sales series.
type Observation struct {
	Date      time.Time
	Units     float64
	Promotion bool
}

// Dataset is the feature builder output used for training.
type Dataset struct {
	Samples    []Sample
	Vocabulary Vocabulary
	Calendar   Calendar
	Series     map[SeriesKey][]Observation
}

// Builder turns raw rows into validated vectors against a fixed vocabulary.
type Builder struct {
	vocab Vocabulary
	cal   Calendar
}

// NewBuilder creates a builder for inference-time vectors.
func NewBuilder(vocab Vocabulary, cal Calendar) *Builder {
	return &Builder{vocab: vocab, cal: cal}
}

// Build assembles the training dataset: one sample per observed (store, product, date),
// ordered by store, product and date.
func Build(h History) (*Dataset, error) {
	if len(h.Sales) == 0 {
		return nil, errors.New("build features: no sales records")
	}

	series, err := groupSeries(h.Sales)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	stores := make([]string, 0, len(series))
	products := make([]string, 0, len(series))
	for k := range series {
		stores = append(stores, k.StoreID)
		products = append(products, k.Product)
	}
	conditions := make([]string, 0, len(h.Weather))
	for _, w := range h.Weather {
		conditions = append(conditions, w.Condition)
	}

	ds := &Dataset{
		Vocabulary: NewVocabulary(stores, products, conditions),
		Calendar:   NewCalendar(h.Weather, h.Events),
		Series:     series,
	}
	b := NewBuilder(ds.Vocabulary, ds.Calendar)

	keys := SortedKeys(series)
	for _, k := range keys {
		obs := series[k]
		units := Units(obs)
		mean := Mean(units)
		for i, o := range obs {
			v, err := b.Vector(k, o.Date, units[:i], mean, o.Promotion)
			if err != nil {
				return nil, fmt.Errorf("build features: %s on %s: %w", k, o.Date.Format(domain.DateLayout), err)
			}
			ds.Samples = append(ds.Samples, Sample{Key: k, Date: o.Date, Vector: v, Label: o.Units})
		}
	}

	return ds, nil
}

// Vector builds and validates the feature vector for one target date.
// prev holds the observed (or recursively forecast) units before date, oldest first.
func (b *Builder) Vector(key SeriesKey, date time.Time, prev []float64, mean float64, promotion bool) (Vector, error) {
	storeCode, ok := b.vocab.StoreCode(key.StoreID)
	if !ok {
		return Vector{}, domain.UnknownEntity("store", key.StoreID)
	}
	productCode, ok := b.vocab.ProductCode(key.Product)
	if !ok {
		return Vector{}, domain.UnknownEntity("product", key.Product)
	}

	day := domain.Day(date)
	weather := b.cal.WeatherOn(day)
	lag1, lag7, roll7 := lagFeatures(prev, mean)
	dow := (int(day.Weekday()) + 6) % 7

	v := Vector{
		DayOfWeek:     dow,
		Month:         int(day.Month()),
		DayOfMonth:    day.Day(),
		IsWeekend:     dow >= 5,
		Temperature:   weather.Temperature,
		Humidity:      weather.Humidity,
		Precipitation: weather.Precipitation,
		WeatherCode:   b.vocab.ConditionCode(weather.Condition),
		Promotion:     promotion,
		EventImpact:   b.cal.EventImpact(day),
		DaysToEvent:   b.cal.DaysToEvent(day),
		SalesLag1:     lag1,
		SalesLag7:     lag7,
		SalesRolling7: roll7,
		StoreCode:     storeCode,
		ProductCode:   productCode,
	}
	if err := v.Validate(); err != nil {
		return Vector{}, domain.InvalidArgument(fmt.Sprintf("invalid feature vector: %v", err))
	}
	return v, nil
}

// lagFeatures mirrors the notebook-era features: previous day, same day last week and
// the trailing weekly mean. Short histories fall back to the series mean.
func lagFeatures(prev []float64, mean float64) (lag1, lag7, roll7 float64) {
	lag1, lag7, roll7 = mean, mean, mean
	n := len(prev)
	if n >= 1 {
		lag1 = prev[n-1]
	}
	if n >= 7 {
		lag7 = prev[n-7]
		roll7 = Mean(prev[n-7:])
	}
	return lag1, lag7, roll7
}

func groupSeries(sales []SalesRecord) (map[SeriesKey][]Observation, error) {
	byKey := make(map[SeriesKey]map[time.Time]*Observation)
	for _, s := range sales {
		if s.StoreID == "" || s.Product == "" {
			return nil, errors.New("sales record without store or product")
		}
		if s.UnitsSold < 0 {
			return nil, fmt.Errorf("negative units sold for %s/%s on %s", s.StoreID, s.Product, s.Date.Format(domain.DateLayout))
		}
		k := SeriesKey{StoreID: s.StoreID, Product: s.Product}
		if byKey[k] == nil {
			byKey[k] = make(map[time.Time]*Observation)
		}
		day := domain.Day(s.Date)
		if o, ok := byKey[k][day]; ok {
			o.Units += s.UnitsSold
			o.Promotion = o.Promotion || s.Promotion
			continue
		}
		byKey[k][day] = &Observation{Date: day, Units: s.UnitsSold, Promotion: s.Promotion}
	}

	out := make(map[SeriesKey][]Observation, len(byKey))
	for k, days := range byKey {
		obs := make([]Observation, 0, len(days))
		for _, o := range days {
			obs = append(obs, *o)
		}
		sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
		out[k] = obs
	}
	return out, nil
}

// SortedKeys returns series keys ordered by store then product.
func SortedKeys[V any](m map[SeriesKey]V) []SeriesKey {
	keys := make([]SeriesKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StoreID != keys[j].StoreID {
			return keys[i].StoreID < keys[j].StoreID
		}
		return keys[i].Product < keys[j].Product
	})
	return keys
}

// Units extracts the unit counts of a series.
func Units(obs []Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Units
	}
	return out
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
