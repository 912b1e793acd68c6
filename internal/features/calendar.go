package features

import (
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// Defaults used when no weather observation exists for a date.
const (
	DefaultTemperature   = 20.0
	DefaultHumidity      = 60.0
	DefaultPrecipitation = 0.0
	DefaultCondition     = "Sunny"
)

// SalesRecord is one day of sales for a (store, product).
type SalesRecord struct {
	Date      time.Time `json:"date" db:"date"`
	StoreID   string    `json:"store_id" db:"store_id"`
	Product   string    `json:"product" db:"product"`
	UnitsSold float64   `json:"quantity_sold" db:"quantity_sold"`
	Promotion bool      `json:"promotion" db:"promotion"`
}

// WeatherRecord is the observed or forecast weather for a date.
type WeatherRecord struct {
	Date          time.Time `json:"date" db:"date"`
	Temperature   float64   `json:"temperature" db:"temperature"`
	Humidity      float64   `json:"humidity" db:"humidity"`
	Precipitation float64   `json:"precipitation" db:"precipitation"`
	Condition     string    `json:"weather_condition" db:"weather_condition"`
}

// EventRecord is a local event or holiday with its demand multiplier.
type EventRecord struct {
	Date   time.Time `json:"date" db:"date"`
	Name   string    `json:"event" db:"event"`
	Impact float64   `json:"impact" db:"impact"`
}

// History is the raw input of the feature builder.
type History struct {
	Sales   []SalesRecord
	Weather []WeatherRecord
	Events  []EventRecord
}

// Calendar holds date-keyed weather and events.
type Calendar struct {
	Weather map[string]WeatherRecord `json:"weather"`
	Events  map[string]EventRecord   `json:"events"`
}

// NewCalendar indexes weather and events by day. Later records win on duplicate dates.
func NewCalendar(weather []WeatherRecord, events []EventRecord) Calendar {
	c := Calendar{
		Weather: make(map[string]WeatherRecord, len(weather)),
		Events:  make(map[string]EventRecord, len(events)),
	}
	for _, w := range weather {
		c.Weather[dayKey(w.Date)] = w
	}
	for _, e := range events {
		c.Events[dayKey(e.Date)] = e
	}
	return c
}

// WeatherOn returns the weather for a date, falling back to mild defaults.
func (c Calendar) WeatherOn(date time.Time) WeatherRecord {
	if w, ok := c.Weather[dayKey(date)]; ok {
		if w.Condition == "" {
			w.Condition = DefaultCondition
		}
		return w
	}
	return WeatherRecord{
		Date:          domain.Day(date),
		Temperature:   DefaultTemperature,
		Humidity:      DefaultHumidity,
		Precipitation: DefaultPrecipitation,
		Condition:     DefaultCondition,
	}
}

// EventImpact returns the multiplier of an event on date, 1.0 when there is none.
func (c Calendar) EventImpact(date time.Time) float64 {
	if e, ok := c.Events[dayKey(date)]; ok && e.Impact > 0 {
		return e.Impact
	}
	return 1.0
}

// DaysToEvent returns days until the next event, capped at EventWindowDays.
func (c Calendar) DaysToEvent(date time.Time) int {
	for d := 0; d < EventWindowDays; d++ {
		if _, ok := c.Events[dayKey(date.AddDate(0, 0, d))]; ok {
			return d
		}
	}
	return EventWindowDays
}

func dayKey(t time.Time) string {
	return domain.Day(t).Format(domain.DateLayout)
}
