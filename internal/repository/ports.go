// backend-go/internal/repository/ports.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

// HistorySource provides the sales, weather and event history used for training.
// A zero from or to leaves that end of the range open.
type HistorySource interface {
	LoadHistory(ctx context.Context, from, to time.Time) (features.History, error)
}

// StoreSource provides store master data. GetStore returns an UnknownEntity error
// when the store does not exist.
type StoreSource interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, storeID string) (domain.Store, error)
}

// InventorySource provides the current expiry-dated stock of a store.
type InventorySource interface {
	ListBatches(ctx context.Context, storeID string) ([]domain.InventoryBatch, error)
}

// OrderSource provides the pending delivery orders of a store for a day.
type OrderSource interface {
	PendingOrders(ctx context.Context, storeID string, day time.Time) ([]domain.Order, error)
}

// RunTracker persists operation run status transitions.
type RunTracker interface {
	CreateRun(ctx context.Context, run *domain.OperationRun) error
	UpdateRun(ctx context.Context, run *domain.OperationRun) error
	GetRun(ctx context.Context, id string) (*domain.OperationRun, error)
}

type noopRunTracker struct{}

// NewNoopRunTracker returns a tracker that records nothing.
func NewNoopRunTracker() RunTracker {
	return noopRunTracker{}
}

func (noopRunTracker) CreateRun(ctx context.Context, run *domain.OperationRun) error { return nil }

func (noopRunTracker) UpdateRun(ctx context.Context, run *domain.OperationRun) error { return nil }

func (noopRunTracker) GetRun(ctx context.Context, id string) (*domain.OperationRun, error) {
	return nil, domain.UnknownEntity("run", id)
}
