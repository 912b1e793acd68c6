package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

type historyRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

// LoadHistory reads sales, weather and events dated within [from, to]. Zero bounds are open.
func (r *historyRepository) LoadHistory(ctx context.Context, from, to time.Time) (features.History, error) {
	lo, hi := dateBounds(from, to)
	var h features.History

	err := r.db.withSlot(ctx, func() error {
		if err := sqlx.SelectContext(ctx, r.db, &h.Sales, `
			SELECT date, store_id, product, quantity_sold, promotion
			FROM sales_history
			WHERE date BETWEEN $1 AND $2
			ORDER BY store_id, product, date
		`, lo, hi); err != nil {
			return fmt.Errorf("failed to get sales history: %w", err)
		}

		if err := sqlx.SelectContext(ctx, r.db, &h.Weather, `
			SELECT date, temperature, humidity, precipitation, weather_condition
			FROM weather_history
			WHERE date BETWEEN $1 AND $2
			ORDER BY date
		`, lo, hi); err != nil {
			return fmt.Errorf("failed to get weather history: %w", err)
		}

		// Events are kept past the sales range so forecasts can see upcoming ones.
		if err := sqlx.SelectContext(ctx, r.db, &h.Events, `
			SELECT date, event, impact
			FROM local_events
			WHERE date >= $1
			ORDER BY date, event
		`, lo); err != nil {
			return fmt.Errorf("failed to get local events: %w", err)
		}
		return nil
	})
	if err != nil {
		return features.History{}, err
	}
	return h, nil
}

func dateBounds(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return from, to
}
