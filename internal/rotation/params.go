package rotation

import (
	"fmt"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// Params configures one rotation pass.
type Params struct {
	RunDate           time.Time
	LeadTimeDays      int
	SafetyStockFactor float64
	ExpiryHorizonDays int
	// Catalog is optional; when set, recommendations carry an estimated cost.
	Catalog domain.Catalog
}

// DefaultParams returns the production settings for a run on runDate.
func DefaultParams(runDate time.Time) Params {
	return Params{
		RunDate:           domain.Day(runDate),
		LeadTimeDays:      3,
		SafetyStockFactor: 1.65,
		ExpiryHorizonDays: 2,
	}
}

func (p Params) Validate() error {
	switch {
	case p.RunDate.IsZero():
		return domain.InvalidArgument("rotation: run date is required")
	case p.LeadTimeDays < 1:
		return domain.InvalidArgument(fmt.Sprintf("rotation: lead time must be at least 1 day, got %d", p.LeadTimeDays))
	case p.SafetyStockFactor < 0:
		return domain.InvalidArgument(fmt.Sprintf("rotation: safety stock factor must be non-negative, got %g", p.SafetyStockFactor))
	case p.ExpiryHorizonDays < 0:
		return domain.InvalidArgument(fmt.Sprintf("rotation: expiry horizon must be non-negative, got %d", p.ExpiryHorizonDays))
	}
	return nil
}

// validateBatches checks each batch and that batch IDs are set and unique per store.
func validateBatches(batches []domain.InventoryBatch) error {
	seen := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			return err
		}
		if b.ID == "" {
			return domain.InvalidArgument(fmt.Sprintf("rotation: %s batch in store %s has no ID", b.Product, b.StoreID))
		}
		key := batchKey(b)
		if _, dup := seen[key]; dup {
			return domain.InvalidArgument(fmt.Sprintf("rotation: duplicate batch %s in store %s", b.ID, b.StoreID))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func batchKey(b domain.InventoryBatch) string { return b.StoreID + "/" + b.ID }
