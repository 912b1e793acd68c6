package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/cache"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

// Runner executes one operations run.
type Runner interface {
	Run(ctx context.Context, storeID string, runDate time.Time) (*ops.Report, error)
}

// ModelLoader reads the latest trained model handle.
type ModelLoader interface {
	Load(ctx context.Context) (*forecast.Model, error)
}

// Prediction is one day of a demand forecast as returned to clients.
type Prediction struct {
	StoreID            string     `json:"store_id"`
	Product            string     `json:"product"`
	Date               string     `json:"date"`
	PredictedDemand    float64    `json:"predicted_demand"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	ModelVersion       string     `json:"model_version"`
}

// OperationsSummary is the short form of a run.
type OperationsSummary struct {
	StoreID          string                `json:"store_id"`
	RunID            string                `json:"run_id"`
	RunDate          string                `json:"run_date"`
	Status           ops.Status            `json:"status"`
	FailedStage      ops.Stage             `json:"failed_stage,omitempty"`
	Error            string                `json:"error,omitempty"`
	Timestamp        time.Time             `json:"timestamp"`
	InventorySummary *ops.InventorySummary `json:"inventory_summary"`
	RouteSummary     *routing.Summary      `json:"route_summary"`
	Warnings         []string              `json:"warnings"`
}

// InventoryReport lists every inventory action of a run.
type InventoryReport struct {
	StoreID         string                         `json:"store_id"`
	RunID           string                         `json:"run_id"`
	RunDate         string                         `json:"run_date"`
	Summary         *ops.InventorySummary          `json:"summary"`
	Recommendations []domain.ReorderRecommendation `json:"reorder_suggestions"`
	Markdowns       []domain.BatchAction           `json:"expiring_items"`
	RotationPlan    []domain.RotationEntry         `json:"rotation_plan"`
}

// RouteReport lists the planned routes of a run.
type RouteReport struct {
	StoreID    string               `json:"store_id"`
	RunID      string               `json:"run_id"`
	RunDate    string               `json:"run_date"`
	Routes     []domain.Route       `json:"routes"`
	Unassigned []routing.Unassigned `json:"unassigned"`
	Summary    *routing.Summary     `json:"summary"`
}

// ModelInfo describes the serving model handle.
type ModelInfo struct {
	Trained   bool      `json:"trained"`
	Version   string    `json:"version,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Stores    []string  `json:"stores,omitempty"`
	Products  []string  `json:"products,omitempty"`
}

type OperationsService struct {
	models  *forecast.Registry
	runner  Runner
	loader  ModelLoader
	reports cache.ReportCache
	now     func() time.Time
}

func NewOperationsService(models *forecast.Registry, runner Runner, loader ModelLoader, reports cache.ReportCache) *OperationsService {
	if reports == nil {
		reports = cache.NewNoopReportCache()
	}
	return &OperationsService{
		models:  models,
		runner:  runner,
		loader:  loader,
		reports: reports,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, mostly for tests.
func (s *OperationsService) WithClock(now func() time.Time) *OperationsService {
	s.now = now
	return s
}

// Predict forecasts demand for horizon days starting tomorrow. A zero horizon means one day.
func (s *OperationsService) Predict(ctx context.Context, storeID, product string, horizon int) ([]Prediction, error) {
	storeID = strings.TrimSpace(storeID)
	product = strings.TrimSpace(product)
	if storeID == "" || product == "" {
		return nil, domain.InvalidArgument("store_id and product are required")
	}
	if horizon == 0 {
		horizon = 1
	}

	start := domain.Day(s.now()).AddDate(0, 0, 1)
	records, err := forecast.Predict(s.models.Current(), storeID, product, horizon, start)
	if err != nil {
		return nil, err
	}

	out := make([]Prediction, 0, len(records))
	for _, r := range records {
		out = append(out, Prediction{
			StoreID:            r.StoreID,
			Product:            r.Product,
			Date:               r.Date.Format(domain.DateLayout),
			PredictedDemand:    r.Predicted,
			ConfidenceInterval: [2]float64{r.Lower, r.Upper},
			ModelVersion:       r.ModelVersion,
		})
	}
	return out, nil
}

// RunOperations returns today's run for a store, running it when no cached report exists.
// A run that fails inside the pipeline comes back as a summary with status failed and
// the failed stage; only an unknown store or bad input is returned as an error.
func (s *OperationsService) RunOperations(ctx context.Context, storeID string) (*OperationsSummary, error) {
	report, err := s.report(ctx, storeID)
	if report == nil {
		return nil, err
	}
	return &OperationsSummary{
		StoreID:          report.StoreID,
		RunID:            report.RunID,
		RunDate:          report.RunDate.Format(domain.DateLayout),
		Status:           report.Status,
		FailedStage:      report.FailedStage,
		Error:            report.Error,
		Timestamp:        report.GeneratedAt,
		InventorySummary: report.InventorySummary,
		RouteSummary:     report.RouteSummary,
		Warnings:         report.Warnings,
	}, nil
}

func (s *OperationsService) InventoryReport(ctx context.Context, storeID string) (*InventoryReport, error) {
	report, err := s.report(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return &InventoryReport{
		StoreID:         report.StoreID,
		RunID:           report.RunID,
		RunDate:         report.RunDate.Format(domain.DateLayout),
		Summary:         report.InventorySummary,
		Recommendations: nonNil(report.Recommendations),
		Markdowns:       nonNil(report.Markdowns),
		RotationPlan:    nonNil(report.RotationPlan),
	}, nil
}

func (s *OperationsService) RoutePlan(ctx context.Context, storeID string) (*RouteReport, error) {
	report, err := s.report(ctx, storeID)
	if err != nil {
		return nil, err
	}
	out := &RouteReport{
		StoreID:    report.StoreID,
		RunID:      report.RunID,
		RunDate:    report.RunDate.Format(domain.DateLayout),
		Routes:     []domain.Route{},
		Unassigned: []routing.Unassigned{},
		Summary:    report.RouteSummary,
	}
	if report.RoutePlan != nil {
		out.Routes = nonNil(report.RoutePlan.Routes)
		out.Unassigned = nonNil(report.RoutePlan.Unassigned)
	}
	return out, nil
}

// ReloadModel swaps in the stored model handle and drops cached reports built on the old one.
func (s *OperationsService) ReloadModel(ctx context.Context) (*ModelInfo, error) {
	if s.loader == nil {
		return nil, domain.ModelNotTrained()
	}
	m, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	previous := s.models.Swap(m)

	if err := s.reports.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("operations: cache invalidate failed")
	}

	event := log.Info().Str("version", m.Version())
	if previous.Trained() {
		event = event.Str("previous_version", previous.Version())
	}
	event.Msg("Model reloaded")

	info := s.ModelInfo()
	return &info, nil
}

func (s *OperationsService) ModelInfo() ModelInfo {
	m := s.models.Current()
	if !m.Trained() {
		return ModelInfo{}
	}
	return ModelInfo{
		Trained:   true,
		Version:   m.Version(),
		TrainedAt: m.TrainedAt(),
		Stores:    m.Stores(),
		Products:  m.Products(),
	}
}

// report returns today's report for storeID. A failed run yields its report together
// with the run error; caller faults yield no report.
func (s *OperationsService) report(ctx context.Context, storeID string) (*ops.Report, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, domain.InvalidArgument("store_id is required")
	}
	day := domain.Day(s.now())

	if report, ok, err := s.reports.GetReport(ctx, storeID, day); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Msg("operations: cache get report failed")
	}

	report, err := s.runner.Run(ctx, storeID, day)
	if err != nil {
		if cause, ok := callerFault(err); ok {
			return nil, cause
		}
		return report, runError(err)
	}

	if err := s.reports.SetReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Msg("operations: cache set report failed")
	}
	return report, nil
}

// callerFault unwraps an unknown store or bad input found while fetching inputs.
func callerFault(err error) (*domain.Error, bool) {
	var sf *domain.StageFailure
	var de *domain.Error
	if !errors.As(err, &sf) || sf.Stage != string(ops.StageFetchingInputs) || !errors.As(sf.Err, &de) {
		return nil, false
	}
	return de, de.Kind == domain.KindUnknownEntity || de.Kind == domain.KindInvalidArgument
}

// runError is how a failed run surfaces to readers that need its results: a missing
// model with no fallback keeps its own kind, anything else is a stage failure.
func runError(err error) error {
	var sf *domain.StageFailure
	var de *domain.Error
	if errors.As(err, &sf) && sf.Stage == string(ops.StageForecasting) &&
		errors.As(sf.Err, &de) && de.Kind == domain.KindModelNotTrained {
		return de
	}
	return fmt.Errorf("operations run: %w", err)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
