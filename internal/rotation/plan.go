package rotation

import (
	"sort"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// Rotation priorities by days left before expiry.
const (
	PriorityUrgent = "URGENT"
	PriorityHigh   = "HIGH"
	PriorityNormal = "NORMAL"
)

func rotationPriority(daysUntilExpiry int) string {
	switch {
	case daysUntilExpiry <= 1:
		return PriorityUrgent
	case daysUntilExpiry <= 3:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// RotationPlan lists sellable batches per product in FEFO order and tells staff which
// ones belong at the front of the shelf. Products are listed alphabetically.
func RotationPlan(batches []domain.InventoryBatch, runDate time.Time) []domain.RotationEntry {
	runDate = domain.Day(runDate)
	grouped := byProduct(batches)

	products := make([]string, 0, len(grouped))
	for p := range grouped {
		products = append(products, p)
	}
	sort.Strings(products)

	var plan []domain.RotationEntry
	for _, product := range products {
		seq := 0
		for _, b := range SortFEFO(grouped[product]) {
			if b.Quantity == 0 || b.IsExpired(runDate) {
				continue
			}
			seq++
			days := b.DaysUntilExpiry(runDate)
			priority := rotationPriority(days)
			position := domain.PositionBack
			if priority != PriorityNormal {
				position = domain.PositionFront
			}
			plan = append(plan, domain.RotationEntry{
				Batch:           b,
				DaysUntilExpiry: days,
				Priority:        priority,
				Position:        position,
				Sequence:        seq,
			})
		}
	}
	return plan
}
