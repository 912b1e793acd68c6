// Package export delivers finished operations reports to files and logs.
package export

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
)

// ReportSink receives finished operations reports.
type ReportSink interface {
	Write(ctx context.Context, report *ops.Report) error
}

// LogSink writes a one-line summary of each report.
type LogSink struct{}

func (LogSink) Write(ctx context.Context, r *ops.Report) error {
	event := log.Info()
	if !r.Succeeded() {
		event = log.Warn().Str("failed_stage", string(r.FailedStage)).Str("error", r.Error)
	}
	event = event.
		Str("run_id", r.RunID).
		Str("store_id", r.StoreID).
		Str("run_date", r.RunDate.Format("2006-01-02")).
		Str("status", string(r.Status)).
		Int("warnings", len(r.Warnings))
	if r.InventorySummary != nil {
		event = event.
			Int("total_products", r.InventorySummary.TotalProducts).
			Int("items_expiring_soon", r.InventorySummary.ItemsExpiringSoon).
			Int("reorder_recommendations", r.InventorySummary.ReorderRecommendations)
	}
	if r.RouteSummary != nil {
		event = event.
			Int("total_routes", r.RouteSummary.TotalRoutes).
			Float64("total_distance_km", r.RouteSummary.TotalDistanceKm)
	}
	event.Msg("Operations report")
	return nil
}

// MultiSink fans a report out to every sink and joins their errors.
type MultiSink []ReportSink

func (m MultiSink) Write(ctx context.Context, r *ops.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ops.Sink = LogSink{}
	_ ops.Sink = MultiSink{}
	_ ops.Sink = (*XLSXSink)(nil)
)
