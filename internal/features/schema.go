package features

import (
	"fmt"
	"math"
)

// Kind tells the regressor how a column may be split.
type Kind int

const (
	// Numeric columns are split by threshold.
	Numeric Kind = iota
	// Categorical columns are split by equality with one code.
	Categorical
)

// Column describes one position of the feature vector.
type Column struct {
	Name string
	Kind Kind
}

// Column positions. The order is part of the trained model format.
const (
	ColDayOfWeek = iota
	ColMonth
	ColDayOfMonth
	ColIsWeekend
	ColTemperature
	ColHumidity
	ColPrecipitation
	ColWeatherCode
	ColPromotion
	ColEventImpact
	ColDaysToEvent
	ColSalesLag1
	ColSalesLag7
	ColSalesRolling7
	ColStoreCode
	ColProductCode

	NumColumns
)

// Schema lists every column in vector order.
var Schema = [NumColumns]Column{
	ColDayOfWeek:     {Name: "day_of_week", Kind: Numeric},
	ColMonth:         {Name: "month", Kind: Numeric},
	ColDayOfMonth:    {Name: "day", Kind: Numeric},
	ColIsWeekend:     {Name: "is_weekend", Kind: Numeric},
	ColTemperature:   {Name: "temperature", Kind: Numeric},
	ColHumidity:      {Name: "humidity", Kind: Numeric},
	ColPrecipitation: {Name: "precipitation", Kind: Numeric},
	ColWeatherCode:   {Name: "weather_condition", Kind: Categorical},
	ColPromotion:     {Name: "promotion", Kind: Numeric},
	ColEventImpact:   {Name: "event_impact", Kind: Numeric},
	ColDaysToEvent:   {Name: "days_to_event", Kind: Numeric},
	ColSalesLag1:     {Name: "sales_lag_1", Kind: Numeric},
	ColSalesLag7:     {Name: "sales_lag_7", Kind: Numeric},
	ColSalesRolling7: {Name: "sales_rolling_7", Kind: Numeric},
	ColStoreCode:     {Name: "store_id", Kind: Categorical},
	ColProductCode:   {Name: "product", Kind: Categorical},
}

// EventWindowDays caps the holiday proximity signal.
const EventWindowDays = 14

// Vector is the fixed, typed feature record for one (store, product, date).
type Vector struct {
	DayOfWeek     int
	Month         int
	DayOfMonth    int
	IsWeekend     bool
	Temperature   float64
	Humidity      float64
	Precipitation float64
	WeatherCode   int
	Promotion     bool
	EventImpact   float64
	DaysToEvent   int
	SalesLag1     float64
	SalesLag7     float64
	SalesRolling7 float64
	StoreCode     int
	ProductCode   int
}

// Values returns the vector in Schema order.
func (v Vector) Values() []float64 {
	out := make([]float64, NumColumns)
	out[ColDayOfWeek] = float64(v.DayOfWeek)
	out[ColMonth] = float64(v.Month)
	out[ColDayOfMonth] = float64(v.DayOfMonth)
	out[ColIsWeekend] = boolFloat(v.IsWeekend)
	out[ColTemperature] = v.Temperature
	out[ColHumidity] = v.Humidity
	out[ColPrecipitation] = v.Precipitation
	out[ColWeatherCode] = float64(v.WeatherCode)
	out[ColPromotion] = boolFloat(v.Promotion)
	out[ColEventImpact] = v.EventImpact
	out[ColDaysToEvent] = float64(v.DaysToEvent)
	out[ColSalesLag1] = v.SalesLag1
	out[ColSalesLag7] = v.SalesLag7
	out[ColSalesRolling7] = v.SalesRolling7
	out[ColStoreCode] = float64(v.StoreCode)
	out[ColProductCode] = float64(v.ProductCode)
	return out
}

// Validate rejects vectors that would silently corrupt training or inference.
func (v Vector) Validate() error {
	switch {
	case v.DayOfWeek < 0 || v.DayOfWeek > 6:
		return fmt.Errorf("day_of_week %d out of range", v.DayOfWeek)
	case v.Month < 1 || v.Month > 12:
		return fmt.Errorf("month %d out of range", v.Month)
	case v.DayOfMonth < 1 || v.DayOfMonth > 31:
		return fmt.Errorf("day %d out of range", v.DayOfMonth)
	case v.Humidity < 0 || v.Humidity > 100:
		return fmt.Errorf("humidity %.1f out of range", v.Humidity)
	case v.Precipitation < 0:
		return fmt.Errorf("precipitation %.1f is negative", v.Precipitation)
	case v.EventImpact <= 0:
		return fmt.Errorf("event_impact %.2f must be positive", v.EventImpact)
	case v.DaysToEvent < 0 || v.DaysToEvent > EventWindowDays:
		return fmt.Errorf("days_to_event %d out of range", v.DaysToEvent)
	case v.SalesLag1 < 0 || v.SalesLag7 < 0 || v.SalesRolling7 < 0:
		return fmt.Errorf("negative sales lag")
	case v.WeatherCode < 0 || v.StoreCode < 0 || v.ProductCode < 0:
		return fmt.Errorf("negative category code")
	}

	for i, x := range v.Values() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s is not finite", Schema[i].Name)
		}
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
