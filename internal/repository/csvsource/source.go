// Package csvsource reads historical and operational inputs from a directory of CSV files.
package csvsource

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

// File names inside the data directory.
const (
	SalesFile     = "sales.csv"
	WeatherFile   = "weather.csv"
	EventsFile    = "events.csv"
	StoresFile    = "stores.csv"
	VehiclesFile  = "vehicles.csv"
	InventoryFile = "inventory.csv"
	OrdersFile    = "orders.csv"
)

// Source implements the history, store, inventory and order ports on CSV files.
type Source struct {
	dir string
}

func New(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) LoadHistory(ctx context.Context, from, to time.Time) (features.History, error) {
	var h features.History
	inRange := func(d time.Time) bool {
		return (from.IsZero() || !d.Before(domain.Day(from))) && (to.IsZero() || !d.After(domain.Day(to)))
	}

	sales, err := readTable(s.dir, SalesFile, false)
	if err != nil {
		return h, err
	}
	err = sales.each(func(r *row) error {
		rec := features.SalesRecord{
			Date:      r.date("date"),
			StoreID:   r.required("store_id"),
			Product:   r.required("product"),
			UnitsSold: r.number("quantity_sold"),
			Promotion: r.boolean("promotion"),
		}
		if r.err == nil && inRange(rec.Date) {
			h.Sales = append(h.Sales, rec)
		}
		return nil
	})
	if err != nil {
		return h, err
	}

	weather, err := readTable(s.dir, WeatherFile, true)
	if err != nil {
		return h, err
	}
	err = weather.each(func(r *row) error {
		rec := features.WeatherRecord{
			Date:          r.date("date"),
			Temperature:   r.number("temperature"),
			Humidity:      r.number("humidity"),
			Precipitation: r.number("precipitation"),
			Condition:     r.str("weather_condition"),
		}
		if r.err == nil && inRange(rec.Date) {
			h.Weather = append(h.Weather, rec)
		}
		return nil
	})
	if err != nil {
		return h, err
	}

	events, err := readTable(s.dir, EventsFile, true)
	if err != nil {
		return h, err
	}
	err = events.each(func(r *row) error {
		rec := features.EventRecord{Date: r.date("date"), Name: r.str("event"), Impact: r.number("impact")}
		if r.err == nil && (from.IsZero() || !rec.Date.Before(domain.Day(from))) {
			h.Events = append(h.Events, rec)
		}
		return nil
	})
	return h, err
}

func (s *Source) ListStores(ctx context.Context) ([]domain.Store, error) {
	stores, err := readTable(s.dir, StoresFile, false)
	if err != nil {
		return nil, err
	}
	vehicles, err := readTable(s.dir, VehiclesFile, true)
	if err != nil {
		return nil, err
	}

	var out []domain.Store
	index := map[string]int{}
	err = stores.each(func(r *row) error {
		st := domain.Store{
			ID:       r.required("id"),
			Name:     r.str("name"),
			Location: domain.Coordinates{Lat: r.number("lat"), Lon: r.number("lon")},
			Vehicles: []domain.Vehicle{},
			Products: splitList(r.str("products")),
		}
		if r.err == nil {
			index[st.ID] = len(out)
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = vehicles.each(func(r *row) error {
		v := domain.Vehicle{
			ID:           r.required("id"),
			HomeStore:    r.required("home_store"),
			Capacity:     r.integer("capacity"),
			Refrigerated: r.boolean("refrigerated"),
		}
		if r.err != nil {
			return nil
		}
		i, ok := index[v.HomeStore]
		if !ok {
			return domain.InvalidArgument(fmt.Sprintf("%s line %d: unknown home store %q", VehiclesFile, r.line, v.HomeStore))
		}
		out[i].Vehicles = append(out[i].Vehicles, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Source) GetStore(ctx context.Context, storeID string) (domain.Store, error) {
	stores, err := s.ListStores(ctx)
	if err != nil {
		return domain.Store{}, err
	}
	for _, st := range stores {
		if st.ID == storeID {
			return st, nil
		}
	}
	return domain.Store{}, domain.UnknownEntity("store", storeID)
}

func (s *Source) ListBatches(ctx context.Context, storeID string) ([]domain.InventoryBatch, error) {
	all, err := s.AllBatches(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.InventoryBatch
	for _, b := range all {
		if b.StoreID == storeID {
			out = append(out, b)
		}
	}
	return out, nil
}

// AllBatches returns the batches of every store.
func (s *Source) AllBatches(ctx context.Context) ([]domain.InventoryBatch, error) {
	t, err := readTable(s.dir, InventoryFile, true)
	if err != nil {
		return nil, err
	}

	var out []domain.InventoryBatch
	err = t.each(func(r *row) error {
		b := domain.InventoryBatch{
			ID:         r.required("id"),
			StoreID:    r.required("store_id"),
			Product:    r.required("product"),
			Quantity:   r.integer("quantity"),
			ReceivedAt: r.date("received_at"),
			ExpiresAt:  r.date("expires_at"),
		}
		if r.err == nil {
			out = append(out, b)
		}
		return nil
	})
	return out, err
}

// ScheduledOrder is an order together with its delivery day.
type ScheduledOrder struct {
	Day   time.Time
	Order domain.Order
}

func (s *Source) PendingOrders(ctx context.Context, storeID string, day time.Time) ([]domain.Order, error) {
	all, err := s.AllOrders(ctx)
	if err != nil {
		return nil, err
	}

	day = domain.Day(day)
	var out []domain.Order
	for _, so := range all {
		if so.Order.StoreID == storeID && so.Day.Equal(day) {
			out = append(out, so.Order)
		}
	}
	return out, nil
}

// AllOrders returns every order of every store and day.
func (s *Source) AllOrders(ctx context.Context) ([]ScheduledOrder, error) {
	t, err := readTable(s.dir, OrdersFile, true)
	if err != nil {
		return nil, err
	}

	var out []ScheduledOrder
	err = t.each(func(r *row) error {
		o := domain.Order{
			ID:                    r.required("id"),
			StoreID:               r.required("store_id"),
			Destination:           domain.Coordinates{Lat: r.number("lat"), Lon: r.number("lon")},
			Deadline:              r.optionalTime("deadline"),
			Priority:              r.integer("priority"),
			RequiresRefrigeration: r.boolean("requires_refrigeration"),
		}
		delivery := r.date("delivery_date")
		lines, err := parseLines(r.str("lines"))
		if err != nil {
			r.fail("lines", err.Error())
		}
		o.Lines = lines
		if r.err == nil {
			out = append(out, ScheduledOrder{Day: delivery, Order: o})
		}
		return nil
	})
	return out, err
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseLines reads "Milk:4;Bread:2".
func parseLines(s string) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	for _, part := range splitList(s) {
		product, qty, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("line %q is not product:quantity", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %q has an invalid quantity", part)
		}
		lines = append(lines, domain.OrderLine{Product: strings.TrimSpace(product), Quantity: n})
	}
	return lines, nil
}
