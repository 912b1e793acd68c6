package rotation

import (
	"sort"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// SortFEFO returns a copy of batches in first-expired-first-out order:
// expiry ascending, then received ascending, then batch ID.
func SortFEFO(batches []domain.InventoryBatch) []domain.InventoryBatch {
	out := append([]domain.InventoryBatch(nil), batches...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Deplete takes demand units from batches in FEFO order. A later-expiring batch is
// only touched once every earlier one is empty. Emptied batches are dropped from the
// result; the second return value is the demand that could not be served.
func Deplete(batches []domain.InventoryBatch, demand int) ([]domain.InventoryBatch, int) {
	sorted := SortFEFO(batches)
	out := sorted[:0]
	for _, b := range sorted {
		if demand > 0 {
			take := min(b.Quantity, demand)
			b.Quantity -= take
			demand -= take
		}
		if b.Quantity > 0 {
			out = append(out, b)
		}
	}
	return out, demand
}

func byProduct(batches []domain.InventoryBatch) map[string][]domain.InventoryBatch {
	out := make(map[string][]domain.InventoryBatch)
	for _, b := range batches {
		out[b.Product] = append(out[b.Product], b)
	}
	return out
}
