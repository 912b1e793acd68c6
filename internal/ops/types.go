package ops

import (
	"context"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/rotation"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

// Stage is one step of an operations run.
type Stage string

const (
	StageFetchingInputs   Stage = "fetching_inputs"
	StageForecasting      Stage = "forecasting"
	StageInventoryActions Stage = "computing_inventory_actions"
	StagePlanningRoutes   Stage = "planning_routes"
	StageAggregating      Stage = "aggregating"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Status is the outcome of a run as seen by report consumers.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StageTiming records how one stage went.
type StageTiming struct {
	Stage     Stage         `json:"stage"`
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// InventorySummary holds the headline counts of a run.
type InventorySummary struct {
	TotalProducts          int `json:"total_products"`
	ItemsExpiringSoon      int `json:"items_expiring_soon"`
	ReorderRecommendations int `json:"reorder_recommendations"`
}

// Report is the aggregated result of one operations run. A failed report carries the
// failed stage and no partial results.
type Report struct {
	RunID        string    `json:"run_id"`
	StoreID      string    `json:"store_id"`
	RunDate      time.Time `json:"run_date"`
	Status       Status    `json:"status"`
	FailedStage  Stage     `json:"failed_stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	ModelVersion string    `json:"model_version,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`

	Stages   []StageTiming `json:"stages"`
	Warnings []string      `json:"warnings"`

	InventorySummary *InventorySummary              `json:"inventory_summary"`
	Forecasts        []domain.ForecastRecord        `json:"forecasts,omitempty"`
	Recommendations  []domain.ReorderRecommendation `json:"recommendations,omitempty"`
	Markdowns        []domain.BatchAction           `json:"markdown_actions,omitempty"`
	RotationPlan     []domain.RotationEntry         `json:"rotation_plan,omitempty"`
	RoutePlan        *routing.Plan                  `json:"route_plan,omitempty"`
	RouteSummary     *routing.Summary               `json:"route_summary"`
}

// Succeeded reports whether the run reached the done stage.
func (r *Report) Succeeded() bool { return r != nil && r.Status == StatusSuccess }

// ForecastArchive keeps the last fresh forecast per (store, product) as the
// last-known-good fallback.
type ForecastArchive interface {
	SaveForecast(ctx context.Context, storeID, product string, records []domain.ForecastRecord) error
	LastKnownGood(ctx context.Context, storeID, product string) ([]domain.ForecastRecord, bool, error)
}

// Sink receives every finished report.
type Sink interface {
	Write(ctx context.Context, r *Report) error
}

// Config holds the per-run settings. RunDate of Rotation and Depot/DepartAt of Routing
// are set for each run.
type Config struct {
	ForecastHorizonDays int
	MaxParallelStores   int
	DepartHour          int
	Rotation            rotation.Params
	Routing             routing.Options
	Catalog             domain.Catalog
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		ForecastHorizonDays: 7,
		MaxParallelStores:   4,
		DepartHour:          8,
		Rotation:            rotation.DefaultParams(time.Time{}),
		Routing:             routing.DefaultOptions(),
		Catalog:             domain.DefaultCatalog(),
	}
}

// horizon covers the lead time and the expiry window.
func (c Config) horizon() int {
	return max(1, c.ForecastHorizonDays, c.Rotation.LeadTimeDays, c.Rotation.ExpiryHorizonDays+1)
}
