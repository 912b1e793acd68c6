package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates every table the repositories read and write.
const Schema = `
CREATE TABLE IF NOT EXISTS stores (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lon        DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS vehicles (
	id           TEXT PRIMARY KEY,
	home_store   TEXT NOT NULL REFERENCES stores(id),
	capacity     INTEGER NOT NULL CHECK (capacity >= 0),
	refrigerated BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS store_products (
	store_id TEXT NOT NULL REFERENCES stores(id),
	product  TEXT NOT NULL,
	PRIMARY KEY (store_id, product)
);

CREATE TABLE IF NOT EXISTS inventory_batches (
	id          TEXT PRIMARY KEY,
	store_id    TEXT NOT NULL REFERENCES stores(id),
	product     TEXT NOT NULL,
	quantity    INTEGER NOT NULL CHECK (quantity >= 0),
	received_at TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	CHECK (expires_at > received_at)
);
CREATE INDEX IF NOT EXISTS idx_inventory_batches_store ON inventory_batches(store_id);

CREATE TABLE IF NOT EXISTS delivery_orders (
	id                     TEXT PRIMARY KEY,
	store_id               TEXT NOT NULL REFERENCES stores(id),
	lat                    DOUBLE PRECISION NOT NULL,
	lon                    DOUBLE PRECISION NOT NULL,
	delivery_date          DATE NOT NULL,
	deadline               TIMESTAMPTZ,
	priority               INTEGER NOT NULL DEFAULT 0,
	requires_refrigeration BOOLEAN NOT NULL DEFAULT FALSE,
	status                 TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS idx_delivery_orders_store_date ON delivery_orders(store_id, delivery_date);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id TEXT NOT NULL REFERENCES delivery_orders(id),
	line_no  INTEGER NOT NULL,
	product  TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	PRIMARY KEY (order_id, line_no)
);

CREATE TABLE IF NOT EXISTS sales_history (
	date          DATE NOT NULL,
	store_id      TEXT NOT NULL,
	product       TEXT NOT NULL,
	quantity_sold DOUBLE PRECISION NOT NULL,
	promotion     BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (date, store_id, product)
);

CREATE TABLE IF NOT EXISTS weather_history (
	date              DATE PRIMARY KEY,
	temperature       DOUBLE PRECISION NOT NULL,
	humidity          DOUBLE PRECISION NOT NULL,
	precipitation     DOUBLE PRECISION NOT NULL,
	weather_condition TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS local_events (
	date   DATE NOT NULL,
	event  TEXT NOT NULL,
	impact DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (date, event)
);

CREATE TABLE IF NOT EXISTS operation_runs (
	id            UUID PRIMARY KEY,
	store_id      TEXT NOT NULL,
	run_date      DATE NOT NULL,
	status        TEXT NOT NULL,
	stage         TEXT NOT NULL DEFAULT '',
	model_version TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ,
	error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_operation_runs_store_date ON operation_runs(store_id, run_date);

CREATE TABLE IF NOT EXISTS operation_reports (
	run_id     UUID PRIMARY KEY,
	store_id   TEXT NOT NULL,
	run_date   DATE NOT NULL,
	status     TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema in one transaction.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}
