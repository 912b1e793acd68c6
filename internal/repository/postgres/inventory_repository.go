package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) ListBatches(ctx context.Context, storeID string) ([]domain.InventoryBatch, error) {
	query := `
		SELECT id, store_id, product, quantity, received_at, expires_at
		FROM inventory_batches
		WHERE store_id = $1 AND quantity > 0
		ORDER BY expires_at, received_at, id
	`

	var batches []domain.InventoryBatch
	err := r.db.withSlot(ctx, func() error {
		return sqlx.SelectContext(ctx, r.db, &batches, query, storeID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory batches: %w", err)
	}
	return batches, nil
}
