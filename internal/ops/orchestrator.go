package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository"
	"github.com/andresuchdata/shelflife/backend-go/internal/rotation"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

// Sources bundles the operational inputs of a run.
type Sources struct {
	Stores    repository.StoreSource
	Inventory repository.InventorySource
	Orders    repository.OrderSource
}

// Orchestrator chains forecasting, inventory actions and route planning into one run
// per store.
type Orchestrator struct {
	models   *forecast.Registry
	src      Sources
	archive  ForecastArchive
	tracker  repository.RunTracker
	sink     Sink
	cfg      Config
	distance routing.DistanceFunc
	predict  PredictFunc
	now      func() time.Time
}

// PredictFunc forecasts horizon days of one product from start.
type PredictFunc func(m *forecast.Model, storeID, product string, horizon int, start time.Time) ([]domain.ForecastRecord, error)

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithArchive sets the last-known-good forecast archive.
func WithArchive(a ForecastArchive) Option { return func(o *Orchestrator) { o.archive = a } }

// WithTracker records run status transitions.
func WithTracker(t repository.RunTracker) Option { return func(o *Orchestrator) { o.tracker = t } }

// WithSink sends every finished report to s.
func WithSink(s Sink) Option { return func(o *Orchestrator) { o.sink = s } }

// WithDistance replaces the haversine distance used for routing.
func WithDistance(fn routing.DistanceFunc) Option { return func(o *Orchestrator) { o.distance = fn } }

// WithPredictor replaces forecast.Predict.
func WithPredictor(fn PredictFunc) Option { return func(o *Orchestrator) { o.predict = fn } }

// WithClock overrides time.Now for stage timings.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// NewOrchestrator creates a new Orchestrator reading the model from models.
func NewOrchestrator(models *forecast.Registry, src Sources, cfg Config, opts ...Option) *Orchestrator {
	if cfg.Catalog == nil {
		cfg.Catalog = domain.DefaultCatalog()
	}
	o := &Orchestrator{
		models:  models,
		src:     src,
		cfg:     cfg,
		archive: noopArchive{},
		tracker: repository.NewNoopRunTracker(),
		predict: forecast.Predict,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// inputs is the output of the fetching stage.
type inputs struct {
	store   domain.Store
	batches []domain.InventoryBatch
	orders  []domain.Order
}

// Run executes one operations run for storeID on runDate. A failed run returns a report
// with status failed together with a *domain.StageFailure.
func (o *Orchestrator) Run(ctx context.Context, storeID string, runDate time.Time) (*Report, error) {
	runDate = domain.Day(runDate)
	model := o.models.Current()

	report := &Report{
		RunID:    uuid.NewString(),
		StoreID:  storeID,
		RunDate:  runDate,
		Warnings: []string{},
	}
	if model.Trained() {
		report.ModelVersion = model.Version()
	}

	run := &domain.OperationRun{
		ID:           report.RunID,
		StoreID:      storeID,
		RunDate:      runDate,
		Status:       domain.RunPending,
		ModelVersion: report.ModelVersion,
		StartedAt:    o.now(),
	}
	if err := o.tracker.CreateRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to create operation run")
	}
	run.Status = domain.RunProcessing
	o.track(ctx, run)

	logger := log.With().Str("run_id", report.RunID).Str("store_id", storeID).Logger()
	logger.Info().Time("run_date", runDate).Msg("Starting operations run")

	var in inputs
	err := o.stage(report, StageFetchingInputs, func() error {
		var err error
		in, err = o.fetch(ctx, storeID, runDate)
		return err
	})
	if err != nil {
		return o.fail(ctx, run, report, StageFetchingInputs, err)
	}

	var forecasts []domain.ForecastRecord
	err = o.stage(report, StageForecasting, func() error {
		var err error
		forecasts, err = o.forecast(ctx, model, report, in, runDate)
		return err
	})
	if err != nil {
		return o.fail(ctx, run, report, StageForecasting, err)
	}

	var (
		recs      []domain.ReorderRecommendation
		markdowns []domain.BatchAction
		plan      []domain.RotationEntry
	)
	err = o.stage(report, StageInventoryActions, func() error {
		params := o.cfg.Rotation
		params.RunDate = runDate
		params.Catalog = o.cfg.Catalog

		var err error
		if recs, err = rotation.ComputeRecommendations(storeID, in.batches, forecasts, params); err != nil {
			return fmt.Errorf("compute recommendations: %w", err)
		}
		if markdowns, err = rotation.ComputeMarkdowns(in.batches, forecasts, runDate, params.ExpiryHorizonDays); err != nil {
			return fmt.Errorf("compute markdowns: %w", err)
		}
		plan = rotation.RotationPlan(in.batches, runDate)
		return nil
	})
	if err != nil {
		return o.fail(ctx, run, report, StageInventoryActions, err)
	}

	var routes *routing.Plan
	err = o.stage(report, StagePlanningRoutes, func() error {
		if len(in.orders) == 0 {
			return nil
		}
		orders := o.weightOrders(in.orders, recs)
		opts := o.cfg.Routing
		opts.Depot = in.store.Location
		opts.DepartAt = runDate.Add(time.Duration(o.cfg.DepartHour) * time.Hour)

		p, err := routing.PlanRoutes(ctx, orders, in.store.Vehicles, o.distance, opts)
		if err != nil {
			return err
		}
		for _, u := range p.Unassigned {
			report.Warnings = append(report.Warnings, fmt.Sprintf("order %s unassigned: %s", u.Order.ID, u.Reason))
		}
		routes = &p
		return nil
	})
	if err != nil {
		return o.fail(ctx, run, report, StagePlanningRoutes, err)
	}

	_ = o.stage(report, StageAggregating, func() error {
		report.InventorySummary = o.summarize(in.batches, recs, runDate)
		report.Forecasts = forecasts
		report.Recommendations = recs
		report.Markdowns = markdowns
		report.RotationPlan = plan
		if routes != nil {
			summary := routes.Summary()
			report.RoutePlan = routes
			report.RouteSummary = &summary
		}
		return nil
	})

	report.Status = StatusSuccess
	report.GeneratedAt = o.now()

	now := o.now()
	run.Status = domain.RunCompleted
	run.Stage = string(StageDone)
	run.CompletedAt = &now
	o.track(ctx, run)

	logger.Info().
		Int("recommendations", len(recs)).
		Int("markdowns", len(markdowns)).
		Int("warnings", len(report.Warnings)).
		Msg("Operations run completed")

	o.write(ctx, report)
	return report, nil
}

// RunAll runs every given store, or every known store when storeIDs is empty, with at most
// MaxParallelStores runs in flight. Reports come back in store order; failed runs are
// joined into the returned error.
func (o *Orchestrator) RunAll(ctx context.Context, storeIDs []string, runDate time.Time) ([]*Report, error) {
	if len(storeIDs) == 0 {
		stores, err := o.src.Stores.ListStores(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stores: %w", err)
		}
		for _, s := range stores {
			storeIDs = append(storeIDs, s.ID)
		}
	}

	reports := make([]*Report, len(storeIDs))
	errs := make([]error, len(storeIDs))

	var g errgroup.Group
	g.SetLimit(max(1, o.cfg.MaxParallelStores))
	for i, id := range storeIDs {
		g.Go(func() error {
			reports[i], errs[i] = o.Run(ctx, id, runDate)
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

func (o *Orchestrator) fetch(ctx context.Context, storeID string, runDate time.Time) (inputs, error) {
	store, err := o.src.Stores.GetStore(ctx, storeID)
	if err != nil {
		return inputs{}, fmt.Errorf("get store: %w", err)
	}
	batches, err := o.src.Inventory.ListBatches(ctx, storeID)
	if err != nil {
		return inputs{}, fmt.Errorf("list batches: %w", err)
	}
	orders, err := o.src.Orders.PendingOrders(ctx, storeID, runDate)
	if err != nil {
		return inputs{}, fmt.Errorf("pending orders: %w", err)
	}
	return inputs{store: store, batches: batches, orders: orders}, nil
}

// products lists every product the run has to decide on.
func (in inputs) products() []string {
	set := make(map[string]struct{})
	for _, p := range in.store.Products {
		set[p] = struct{}{}
	}
	for _, b := range in.batches {
		set[b.Product] = struct{}{}
	}
	for _, ord := range in.orders {
		for _, p := range ord.Products() {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// forecast predicts every product, falling back to the archived forecast per product.
func (o *Orchestrator) forecast(ctx context.Context, model *forecast.Model, report *Report, in inputs, runDate time.Time) ([]domain.ForecastRecord, error) {
	products := in.products()
	horizon := o.cfg.horizon()
	storeID := in.store.ID
	if storeID == "" {
		storeID = report.StoreID
	}

	if !model.Trained() {
		report.Warnings = append(report.Warnings,
			(&domain.StageFailure{Stage: string(StageForecasting), FallbackUsed: true, Err: domain.ModelNotTrained()}).Error())
	}

	var out []domain.ForecastRecord
	usable := 0
	for _, product := range products {
		var (
			recs []domain.ForecastRecord
			err  error
		)
		if model.Trained() {
			recs, err = o.predict(model, storeID, product, horizon, runDate)
		} else {
			err = domain.ModelNotTrained()
		}

		if err == nil {
			if saveErr := o.archive.SaveForecast(ctx, storeID, product, recs); saveErr != nil {
				log.Warn().Err(saveErr).Str("store_id", storeID).Str("product", product).Msg("Failed to archive forecast")
			}
		} else {
			recs = o.lastKnownGood(ctx, storeID, product, runDate, horizon)
			switch {
			case recs != nil:
				if !errors.Is(err, domain.ErrModelNotTrained) {
					report.Warnings = append(report.Warnings, fmt.Sprintf("product %s: last-known-good forecast used: %v", product, err))
				}
			case errors.Is(err, domain.ErrUnknownEntity) || errors.Is(err, domain.ErrModelNotTrained):
				report.Warnings = append(report.Warnings, fmt.Sprintf("product %s skipped: %v", product, err))
				continue
			default:
				return nil, fmt.Errorf("predict %s: %w", product, err)
			}
		}

		usable++
		out = append(out, recs...)
	}

	if len(products) > 0 && usable == 0 {
		if !model.Trained() {
			return nil, domain.ModelNotTrained()
		}
		return nil, fmt.Errorf("no usable forecast for any of %d products", len(products))
	}
	return out, nil
}

// lastKnownGood maps the archived forecast onto the run's horizon. Days the archive does
// not cover reuse the latest archived day before them, or the earliest one.
func (o *Orchestrator) lastKnownGood(ctx context.Context, storeID, product string, runDate time.Time, horizon int) []domain.ForecastRecord {
	archived, ok, err := o.archive.LastKnownGood(ctx, storeID, product)
	if err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Str("product", product).Msg("Failed to read last-known-good forecast")
		return nil
	}
	if !ok || len(archived) == 0 {
		return nil
	}

	sorted := append([]domain.ForecastRecord(nil), archived...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]domain.ForecastRecord, 0, horizon)
	for d := 0; d < horizon; d++ {
		day := runDate.AddDate(0, 0, d)
		pick := sorted[0]
		for _, r := range sorted {
			if domain.Day(r.Date).After(day) {
				break
			}
			pick = r
		}
		pick.StoreID = storeID
		pick.Product = product
		pick.Date = day
		out = append(out, pick)
	}
	return out
}

// weightOrders derives priorities from the catalog and boosts orders carrying a product
// whose lead-time demand exceeds stock on hand.
func (o *Orchestrator) weightOrders(orders []domain.Order, recs []domain.ReorderRecommendation) []domain.Order {
	short := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.Urgent {
			short[r.Product] = true
		}
	}

	out := make([]domain.Order, len(orders))
	for i, ord := range orders {
		weighted := o.cfg.Catalog.ApplyTo(ord)
		weighted.Priority = max(weighted.Priority, ord.Priority)
		for _, p := range ord.Products() {
			if short[p] {
				weighted.Priority++
				break
			}
		}
		out[i] = weighted
	}
	return out
}

func (o *Orchestrator) summarize(batches []domain.InventoryBatch, recs []domain.ReorderRecommendation, runDate time.Time) *InventorySummary {
	s := &InventorySummary{TotalProducts: len(recs)}
	for _, b := range batches {
		if b.Quantity > 0 && b.DaysUntilExpiry(runDate) <= o.cfg.Rotation.ExpiryHorizonDays {
			s.ItemsExpiringSoon++
		}
	}
	for _, r := range recs {
		if r.Quantity > 0 {
			s.ReorderRecommendations++
		}
	}
	return s
}

// stage times fn and records its outcome on the report.
func (o *Orchestrator) stage(report *Report, stage Stage, fn func() error) error {
	started := o.now()
	err := fn()
	status := "completed"
	if err != nil {
		status = "failed"
	}
	report.Stages = append(report.Stages, StageTiming{
		Stage:     stage,
		Status:    status,
		StartedAt: started,
		Duration:  o.now().Sub(started),
	})
	log.Debug().Str("run_id", report.RunID).Str("stage", string(stage)).Str("status", status).Msg("Stage finished")
	return err
}

func (o *Orchestrator) fail(ctx context.Context, run *domain.OperationRun, report *Report, stage Stage, err error) (*Report, error) {
	sf := &domain.StageFailure{Stage: string(stage), Err: err}

	*report = Report{
		RunID:        report.RunID,
		StoreID:      report.StoreID,
		RunDate:      report.RunDate,
		Status:       StatusFailed,
		FailedStage:  stage,
		Error:        sf.Error(),
		ModelVersion: report.ModelVersion,
		GeneratedAt:  o.now(),
		Stages:       report.Stages,
		Warnings:     report.Warnings,
	}

	now := o.now()
	run.Status = domain.RunFailed
	run.Stage = string(stage)
	run.ErrorMessage = sf.Error()
	run.CompletedAt = &now
	o.track(ctx, run)

	log.Error().Err(err).
		Str("run_id", report.RunID).
		Str("store_id", report.StoreID).
		Str("stage", string(stage)).
		Msg("Operations run failed")

	o.write(ctx, report)
	return report, sf
}

func (o *Orchestrator) track(ctx context.Context, run *domain.OperationRun) {
	if err := o.tracker.UpdateRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Failed to update operation run")
	}
}

func (o *Orchestrator) write(ctx context.Context, report *Report) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Write(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Failed to write report")
	}
}

type noopArchive struct{}

func (noopArchive) SaveForecast(context.Context, string, string, []domain.ForecastRecord) error {
	return nil
}

func (noopArchive) LastKnownGood(context.Context, string, string) ([]domain.ForecastRecord, bool, error) {
	return nil, false, nil
}
