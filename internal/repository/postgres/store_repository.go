package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

type storeRow struct {
	ID   string  `db:"id"`
	Name string  `db:"name"`
	Lat  float64 `db:"lat"`
	Lon  float64 `db:"lon"`
}

type storeProductRow struct {
	StoreID string `db:"store_id"`
	Product string `db:"product"`
}

type storeRepository struct {
	db *DB
}

func NewStoreRepository(db *DB) *storeRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) ListStores(ctx context.Context) ([]domain.Store, error) {
	return r.load(ctx, "")
}

func (r *storeRepository) GetStore(ctx context.Context, storeID string) (domain.Store, error) {
	stores, err := r.load(ctx, storeID)
	if err != nil {
		return domain.Store{}, err
	}
	if len(stores) == 0 {
		return domain.Store{}, domain.UnknownEntity("store", storeID)
	}
	return stores[0], nil
}

// load reads stores with their fleet and assortment; an empty storeID loads all.
func (r *storeRepository) load(ctx context.Context, storeID string) ([]domain.Store, error) {
	var (
		stores   []storeRow
		vehicles []domain.Vehicle
		products []storeProductRow
	)

	err := r.db.withSlot(ctx, func() error {
		if err := sqlx.SelectContext(ctx, r.db, &stores, `
			SELECT id, name, lat, lon
			FROM stores
			WHERE $1 = '' OR id = $1
			ORDER BY id
		`, storeID); err != nil {
			return fmt.Errorf("failed to get stores: %w", err)
		}

		if err := sqlx.SelectContext(ctx, r.db, &vehicles, `
			SELECT id, capacity, refrigerated, home_store
			FROM vehicles
			WHERE $1 = '' OR home_store = $1
			ORDER BY id
		`, storeID); err != nil {
			return fmt.Errorf("failed to get vehicles: %w", err)
		}

		if err := sqlx.SelectContext(ctx, r.db, &products, `
			SELECT store_id, product
			FROM store_products
			WHERE $1 = '' OR store_id = $1
			ORDER BY store_id, product
		`, storeID); err != nil {
			return fmt.Errorf("failed to get store products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assembleStores(stores, vehicles, products), nil
}

func assembleStores(rows []storeRow, vehicles []domain.Vehicle, products []storeProductRow) []domain.Store {
	stores := make([]domain.Store, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		stores[i] = domain.Store{
			ID:       row.ID,
			Name:     row.Name,
			Location: domain.Coordinates{Lat: row.Lat, Lon: row.Lon},
			Vehicles: []domain.Vehicle{},
			Products: []string{},
		}
		index[row.ID] = i
	}
	for _, v := range vehicles {
		if i, ok := index[v.HomeStore]; ok {
			stores[i].Vehicles = append(stores[i].Vehicles, v)
		}
	}
	for _, p := range products {
		if i, ok := index[p.StoreID]; ok {
			stores[i].Products = append(stores[i].Products, p.Product)
		}
	}
	return stores
}
