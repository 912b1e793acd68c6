// backend-go/internal/domain/models.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// Store represents a store location together with the fleet it owns.
type Store struct {
	ID       string      `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	Location Coordinates `json:"location"`
	Vehicles []Vehicle   `json:"vehicles"`
	Products []string    `json:"products"`
}

// Product is a stocked item. Name is the identifier used everywhere else.
type Product struct {
	Name                  string          `json:"name" db:"name"`
	Category              string          `json:"category" db:"category"`
	ShelfLifeDays         int             `json:"shelf_life_days" db:"shelf_life_days"`
	UnitCost              decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	UnitPrice             decimal.Decimal `json:"unit_price" db:"unit_price"`
	RequiresRefrigeration bool            `json:"requires_refrigeration" db:"requires_refrigeration"`
	Urgency               Urgency         `json:"urgency" db:"urgency"`
}

// InventoryBatch is a quantity of one product received together and sharing one expiry date.
type InventoryBatch struct {
	ID         string    `json:"id" db:"id"`
	StoreID    string    `json:"store_id" db:"store_id"`
	Product    string    `json:"product" db:"product"`
	Quantity   int       `json:"quantity" db:"quantity"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// Validate checks the batch invariants: expiry after receipt and a non-negative quantity.
func (b InventoryBatch) Validate() error {
	if b.Quantity < 0 {
		return InvalidArgument(fmt.Sprintf("batch %s: quantity %d is negative", b.ID, b.Quantity))
	}
	if !b.ExpiresAt.After(b.ReceivedAt) {
		return InvalidArgument(fmt.Sprintf("batch %s: expiry %s is not after receipt %s",
			b.ID, b.ExpiresAt.Format(DateLayout), b.ReceivedAt.Format(DateLayout)))
	}
	return nil
}

// IsExpired reports whether the batch can no longer be sold on day at.
// A batch reaching its expiry day counts as expired.
func (b InventoryBatch) IsExpired(at time.Time) bool {
	return !Day(b.ExpiresAt).After(Day(at))
}

// DaysUntilExpiry returns whole days from at until expiry; zero or negative means expired.
func (b InventoryBatch) DaysUntilExpiry(at time.Time) int {
	return DaysBetween(at, b.ExpiresAt)
}

// ForecastRecord is an immutable point forecast with its ensemble spread.
type ForecastRecord struct {
	StoreID      string    `json:"store_id"`
	Product      string    `json:"product"`
	Date         time.Time `json:"date"`
	Predicted    float64   `json:"predicted_demand"`
	Lower        float64   `json:"lower"`
	Upper        float64   `json:"upper"`
	StdDev       float64   `json:"std_dev"`
	ModelVersion string    `json:"model_version"`
}

// ReorderReason explains why a reorder recommendation was produced.
type ReorderReason string

const (
	ReasonStockoutRisk  ReorderReason = "stockout_risk"
	ReasonExpirySurplus ReorderReason = "expiry_surplus"
	ReasonSufficient    ReorderReason = "sufficient"
)

// ReorderRecommendation is derived per run and never persisted as mutable state.
type ReorderRecommendation struct {
	StoreID        string          `json:"store_id"`
	Product        string          `json:"product"`
	Quantity       int             `json:"recommended_order"`
	Urgent         bool            `json:"urgent"`
	Reason         ReorderReason   `json:"reason"`
	OnHand         int             `json:"current_stock"`
	ForecastDemand float64         `json:"forecast_demand"`
	SafetyStock    float64         `json:"safety_stock"`
	ExpiringUnits  int             `json:"expiring_units"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
}

// BatchActionKind is the action recommended for a batch close to or past expiry.
type BatchActionKind string

const (
	ActionMarkdown        BatchActionKind = "markdown"
	ActionDonateOrDiscard BatchActionKind = "donate_or_discard"
)

// BatchAction pairs a batch with its expiry-driven action.
type BatchAction struct {
	Batch           InventoryBatch  `json:"batch"`
	Action          BatchActionKind `json:"action"`
	ProjectedUnsold int             `json:"projected_unsold"`
	DaysUntilExpiry int             `json:"days_until_expiry"`
	DiscountPct     int             `json:"suggested_markdown_pct"`
}

// ShelfPosition tells staff where a batch should sit on the shelf.
type ShelfPosition string

const (
	PositionFront ShelfPosition = "FRONT"
	PositionBack  ShelfPosition = "BACK"
)

// RotationEntry is one line of a stock rotation plan.
type RotationEntry struct {
	Batch           InventoryBatch `json:"batch"`
	DaysUntilExpiry int            `json:"days_until_expiry"`
	Priority        string         `json:"rotation_priority"`
	Position        ShelfPosition  `json:"position"`
	Sequence        int            `json:"sequence"`
}

// OrderLine is a single product line of a delivery order.
type OrderLine struct {
	Product  string `json:"product" db:"product"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Order is a pending delivery owned by one operations run.
type Order struct {
	ID                    string      `json:"id" db:"id"`
	StoreID               string      `json:"store_id" db:"store_id"`
	Destination           Coordinates `json:"destination"`
	Lines                 []OrderLine `json:"lines"`
	Deadline              time.Time   `json:"deadline" db:"deadline"`
	Priority              int         `json:"priority" db:"priority"`
	RequiresRefrigeration bool        `json:"requires_refrigeration" db:"requires_refrigeration"`
}

// Size is the number of units the order occupies on a vehicle.
func (o Order) Size() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}

// Products returns the distinct products on the order in line order.
func (o Order) Products() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	out := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.Product]; ok {
			continue
		}
		seen[l.Product] = struct{}{}
		out = append(out, l.Product)
	}
	return out
}

// Vehicle is a delivery vehicle owned by a store.
type Vehicle struct {
	ID           string `json:"id" db:"id"`
	Capacity     int    `json:"capacity" db:"capacity"`
	Refrigerated bool   `json:"refrigerated" db:"refrigerated"`
	HomeStore    string `json:"home_store" db:"home_store"`
}

// CanCarry reports whether the vehicle is able to carry the order when empty.
func (v Vehicle) CanCarry(o Order) bool {
	if o.RequiresRefrigeration && !v.Refrigerated {
		return false
	}
	return o.Size() <= v.Capacity
}

// RouteStop is one delivery on a route.
type RouteStop struct {
	OrderID     string      `json:"order_id"`
	Destination Coordinates `json:"destination"`
	ArriveAt    time.Time   `json:"arrive_at"`
	Deadline    time.Time   `json:"deadline"`
	Late        bool        `json:"late"`
	LoadAfter   int         `json:"load_after"`
	Priority    int         `json:"priority"`
}

// Route is the ordered sequence of orders assigned to one vehicle.
type Route struct {
	VehicleID       string        `json:"vehicle_id"`
	DepartAt        time.Time     `json:"depart_at"`
	ReturnAt        time.Time     `json:"return_at"`
	Stops           []RouteStop   `json:"stops"`
	TotalDistanceKm float64       `json:"route_distance_km"`
	TotalDuration   time.Duration `json:"total_duration"`
	Load            int           `json:"route_load"`
	Capacity        int           `json:"capacity"`
	Feasible        bool          `json:"feasible"`
}
