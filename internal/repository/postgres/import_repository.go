package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

// DatedOrder is a pending order scheduled for delivery on Day.
type DatedOrder struct {
	Day   time.Time
	Order domain.Order
}

// Dataset is a full snapshot of operational inputs to load into the database.
type Dataset struct {
	Stores  []domain.Store
	Batches []domain.InventoryBatch
	Orders  []DatedOrder
	History features.History
}

// ImportCounts reports how many rows of each kind were upserted.
type ImportCounts struct {
	Stores   int
	Vehicles int
	Batches  int
	Orders   int
	Sales    int
	Weather  int
	Events   int
}

type importRepository struct {
	db *DB
}

func NewImportRepository(db *DB) *importRepository {
	return &importRepository{db: db}
}

// Import upserts the dataset in one transaction, stores first.
func (r *importRepository) Import(ctx context.Context, ds Dataset) (ImportCounts, error) {
	var counts ImportCounts
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			name string
			fn   func(context.Context, *sql.Tx, Dataset, *ImportCounts) error
		}{
			{"stores", importStores},
			{"inventory batches", importBatches},
			{"delivery orders", importOrders},
			{"history", importHistory},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx, ds, &counts); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportCounts{}, err
	}

	log.Info().
		Int("stores", counts.Stores).
		Int("vehicles", counts.Vehicles).
		Int("batches", counts.Batches).
		Int("orders", counts.Orders).
		Int("sales", counts.Sales).
		Msg("Dataset imported")
	return counts, nil
}

func importStores(ctx context.Context, tx *sql.Tx, ds Dataset, counts *ImportCounts) error {
	for _, s := range ds.Stores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stores (id, name, lat, lon) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, lat = EXCLUDED.lat, lon = EXCLUDED.lon`,
			s.ID, s.Name, s.Location.Lat, s.Location.Lon); err != nil {
			return fmt.Errorf("store %s: %w", s.ID, err)
		}
		counts.Stores++

		for _, v := range s.Vehicles {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO vehicles (id, home_store, capacity, refrigerated) VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET home_store = EXCLUDED.home_store,
					capacity = EXCLUDED.capacity, refrigerated = EXCLUDED.refrigerated`,
				v.ID, s.ID, v.Capacity, v.Refrigerated); err != nil {
				return fmt.Errorf("vehicle %s: %w", v.ID, err)
			}
			counts.Vehicles++
		}

		for _, p := range s.Products {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO store_products (store_id, product) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, s.ID, p); err != nil {
				return fmt.Errorf("store %s product %s: %w", s.ID, p, err)
			}
		}
	}
	return nil
}

func importBatches(ctx context.Context, tx *sql.Tx, ds Dataset, counts *ImportCounts) error {
	for _, b := range ds.Batches {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_batches (id, store_id, product, quantity, received_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity,
				received_at = EXCLUDED.received_at, expires_at = EXCLUDED.expires_at`,
			b.ID, b.StoreID, b.Product, b.Quantity, b.ReceivedAt, b.ExpiresAt); err != nil {
			return fmt.Errorf("batch %s: %w", b.ID, err)
		}
		counts.Batches++
	}
	return nil
}

func importOrders(ctx context.Context, tx *sql.Tx, ds Dataset, counts *ImportCounts) error {
	for _, d := range ds.Orders {
		o := d.Order
		var deadline sql.NullTime
		if !o.Deadline.IsZero() {
			deadline = sql.NullTime{Time: o.Deadline, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO delivery_orders (id, store_id, lat, lon, delivery_date, deadline, priority, requires_refrigeration)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET lat = EXCLUDED.lat, lon = EXCLUDED.lon,
				delivery_date = EXCLUDED.delivery_date, deadline = EXCLUDED.deadline,
				priority = EXCLUDED.priority, requires_refrigeration = EXCLUDED.requires_refrigeration`,
			o.ID, o.StoreID, o.Destination.Lat, o.Destination.Lon, domain.Day(d.Day), deadline,
			o.Priority, o.RequiresRefrigeration); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("order %s lines: %w", o.ID, err)
		}
		for i, l := range o.Lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_lines (order_id, line_no, product, quantity) VALUES ($1, $2, $3, $4)`,
				o.ID, i+1, l.Product, l.Quantity); err != nil {
				return fmt.Errorf("order %s line %d: %w", o.ID, i+1, err)
			}
		}
		counts.Orders++
	}
	return nil
}

func importHistory(ctx context.Context, tx *sql.Tx, ds Dataset, counts *ImportCounts) error {
	for _, s := range ds.History.Sales {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales_history (date, store_id, product, quantity_sold, promotion) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (date, store_id, product) DO UPDATE SET quantity_sold = EXCLUDED.quantity_sold,
				promotion = EXCLUDED.promotion`,
			domain.Day(s.Date), s.StoreID, s.Product, s.UnitsSold, s.Promotion); err != nil {
			return fmt.Errorf("sales %s/%s: %w", s.StoreID, s.Product, err)
		}
		counts.Sales++
	}
	for _, w := range ds.History.Weather {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO weather_history (date, temperature, humidity, precipitation, weather_condition)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (date) DO UPDATE SET temperature = EXCLUDED.temperature, humidity = EXCLUDED.humidity,
				precipitation = EXCLUDED.precipitation, weather_condition = EXCLUDED.weather_condition`,
			domain.Day(w.Date), w.Temperature, w.Humidity, w.Precipitation, w.Condition); err != nil {
			return fmt.Errorf("weather %s: %w", w.Date.Format(domain.DateLayout), err)
		}
		counts.Weather++
	}
	for _, e := range ds.History.Events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO local_events (date, event, impact) VALUES ($1, $2, $3)
			ON CONFLICT (date, event) DO UPDATE SET impact = EXCLUDED.impact`,
			domain.Day(e.Date), e.Name, e.Impact); err != nil {
			return fmt.Errorf("event %s: %w", e.Name, err)
		}
		counts.Events++
	}
	return nil
}
