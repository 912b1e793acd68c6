package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

type orderRow struct {
	ID                    string       `db:"id"`
	StoreID               string       `db:"store_id"`
	Lat                   float64      `db:"lat"`
	Lon                   float64      `db:"lon"`
	Deadline              sql.NullTime `db:"deadline"`
	Priority              int          `db:"priority"`
	RequiresRefrigeration bool         `db:"requires_refrigeration"`
}

type orderLineRow struct {
	OrderID  string `db:"order_id"`
	Product  string `db:"product"`
	Quantity int    `db:"quantity"`
}

type orderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) PendingOrders(ctx context.Context, storeID string, day time.Time) ([]domain.Order, error) {
	var (
		orders []orderRow
		lines  []orderLineRow
	)

	err := r.db.withSlot(ctx, func() error {
		if err := sqlx.SelectContext(ctx, r.db, &orders, `
			SELECT id, store_id, lat, lon, deadline, priority, requires_refrigeration
			FROM delivery_orders
			WHERE store_id = $1 AND delivery_date = $2 AND status = 'pending'
			ORDER BY id
		`, storeID, domain.Day(day)); err != nil {
			return fmt.Errorf("failed to get pending orders: %w", err)
		}
		if len(orders) == 0 {
			return nil
		}

		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		if err := sqlx.SelectContext(ctx, r.db, &lines, `
			SELECT order_id, product, quantity
			FROM order_lines
			WHERE order_id = ANY($1)
			ORDER BY order_id, line_no
		`, pq.Array(ids)); err != nil {
			return fmt.Errorf("failed to get order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assembleOrders(orders, lines), nil
}

func assembleOrders(rows []orderRow, lines []orderLineRow) []domain.Order {
	orders := make([]domain.Order, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		orders[i] = domain.Order{
			ID:                    row.ID,
			StoreID:               row.StoreID,
			Destination:           domain.Coordinates{Lat: row.Lat, Lon: row.Lon},
			Priority:              row.Priority,
			RequiresRefrigeration: row.RequiresRefrigeration,
		}
		if row.Deadline.Valid {
			orders[i].Deadline = row.Deadline.Time.UTC()
		}
		index[row.ID] = i
	}
	for _, l := range lines {
		if i, ok := index[l.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, domain.OrderLine{Product: l.Product, Quantity: l.Quantity})
		}
	}
	return orders
}
