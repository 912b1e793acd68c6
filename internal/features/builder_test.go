package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildOrdersSamplesAndComputesLags(t *testing.T) {
	start := day(2026, 1, 5) // Monday
	var sales []SalesRecord
	for i := 0; i < 10; i++ {
		sales = append(sales, SalesRecord{Date: start.AddDate(0, 0, i), StoreID: "Store_B", Product: "Milk", UnitsSold: float64(10 + i)})
	}
	// out of order, separate series
	sales = append(sales,
		SalesRecord{Date: start.AddDate(0, 0, 1), StoreID: "Store_A", Product: "Bread", UnitsSold: 4},
		SalesRecord{Date: start, StoreID: "Store_A", Product: "Bread", UnitsSold: 2, Promotion: true},
	)

	ds, err := Build(History{
		Sales:   sales,
		Weather: []WeatherRecord{{Date: start, Temperature: 3, Humidity: 80, Precipitation: 2, Condition: "Rainy"}},
		Events:  []EventRecord{{Date: start.AddDate(0, 0, 3), Name: "Market Day", Impact: 1.4}},
	})
	require.NoError(t, err)
	require.Len(t, ds.Samples, 12)

	first := ds.Samples[0]
	assert.Equal(t, SeriesKey{StoreID: "Store_A", Product: "Bread"}, first.Key)
	assert.Equal(t, start, first.Date)
	assert.True(t, first.Vector.Promotion)
	assert.Equal(t, 0, first.Vector.DayOfWeek)
	assert.Equal(t, 3, first.Vector.DaysToEvent)
	assert.Equal(t, 3.0, first.Vector.SalesLag1, "first row falls back to the series mean")

	milk := ds.Samples[2:]
	assert.Equal(t, 3.0, milk[0].Vector.Temperature)
	assert.Equal(t, DefaultTemperature, milk[1].Vector.Temperature)
	assert.Equal(t, 1.4, milk[3].Vector.EventImpact)

	eighth := milk[7]
	assert.Equal(t, 16.0, eighth.Vector.SalesLag1)
	assert.Equal(t, 10.0, eighth.Vector.SalesLag7)
	assert.InDelta(t, 13.0, eighth.Vector.SalesRolling7, 1e-9)
	assert.Equal(t, 17.0, eighth.Label)
	assert.True(t, milk[5].Vector.IsWeekend)

	storeA, ok := ds.Vocabulary.StoreCode("Store_A")
	require.True(t, ok)
	assert.Equal(t, 0, storeA)
}

func TestBuildRejectsBadRows(t *testing.T) {
	_, err := Build(History{})
	assert.Error(t, err)

	_, err = Build(History{Sales: []SalesRecord{{Date: day(2026, 1, 1), StoreID: "S", Product: "Milk", UnitsSold: -1}}})
	assert.Error(t, err)
}

func TestVectorUnknownEntity(t *testing.T) {
	b := NewBuilder(NewVocabulary([]string{"Store_A"}, []string{"Milk"}, nil), NewCalendar(nil, nil))

	_, err := b.Vector(SeriesKey{StoreID: "Store_Z", Product: "Milk"}, day(2026, 1, 1), nil, 5, false)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)

	_, err = b.Vector(SeriesKey{StoreID: "Store_A", Product: "Caviar"}, day(2026, 1, 1), nil, 5, false)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)

	v, err := b.Vector(SeriesKey{StoreID: "Store_A", Product: "Milk"}, day(2026, 1, 1), nil, 5, false)
	require.NoError(t, err)
	assert.Len(t, v.Values(), int(NumColumns))
	assert.Equal(t, 1.0, v.EventImpact)
	assert.Equal(t, EventWindowDays, v.DaysToEvent)
}

func TestVectorValidate(t *testing.T) {
	v := Vector{DayOfWeek: 1, Month: 2, DayOfMonth: 3, Humidity: 50, EventImpact: 1}
	require.NoError(t, v.Validate())

	bad := v
	bad.Temperature = math.NaN()
	assert.Error(t, bad.Validate())

	bad = v
	bad.Month = 13
	assert.Error(t, bad.Validate())

	bad = v
	bad.EventImpact = 0
	assert.Error(t, bad.Validate())
}

func TestConditionCodeUnknownBucket(t *testing.T) {
	vocab := NewVocabulary(nil, nil, []string{"Rainy", "Cloudy"})
	assert.Equal(t, []string{"Cloudy", "Rainy", "Sunny"}, vocab.Conditions)
	assert.Equal(t, 3, vocab.ConditionCode("Snow"))
	assert.Equal(t, 2, vocab.ConditionCode("Sunny"))
}
