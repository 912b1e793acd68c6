package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
)

const (
	sheetSummary         = "Summary"
	sheetRecommendations = "Recommendations"
	sheetMarkdowns       = "Markdowns"
	sheetRotation        = "Rotation"
	sheetRoutes          = "Routes"
	sheetUnassigned      = "Unassigned"
	sheetWarnings        = "Warnings"
)

// XLSXSink writes one workbook per report into a directory.
type XLSXSink struct {
	dir string
}

func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{dir: dir}
}

// Path returns the workbook path used for a report.
func (s *XLSXSink) Path(r *ops.Report) string {
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("operations_%s_%s_%s.xlsx", sanitize(r.StoreID), r.RunDate.Format(domain.DateLayout), id)
	return filepath.Join(s.dir, name)
}

func (s *XLSXSink) Write(ctx context.Context, r *ops.Report) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed creating report directory %s: %w", s.dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{sheetSummary, summaryRows(r)},
		{sheetRecommendations, recommendationRows(r.Recommendations)},
		{sheetMarkdowns, markdownRows(r.Markdowns)},
		{sheetRotation, rotationRows(r.RotationPlan)},
		{sheetRoutes, routeRows(r)},
		{sheetUnassigned, unassignedRows(r)},
		{sheetWarnings, warningRows(r.Warnings)},
	}
	for _, sh := range sheets {
		if sh.name != sheetSummary {
			if _, err := f.NewSheet(sh.name); err != nil {
				return fmt.Errorf("create sheet %s: %w", sh.name, err)
			}
		}
		if err := writeRows(f, sh.name, sh.rows); err != nil {
			return err
		}
	}

	path := s.Path(r)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(r *ops.Report) [][]any {
	rows := [][]any{
		{"Field", "Value"},
		{"run_id", r.RunID},
		{"store_id", r.StoreID},
		{"run_date", r.RunDate.Format(domain.DateLayout)},
		{"status", string(r.Status)},
		{"model_version", r.ModelVersion},
	}
	if r.FailedStage != "" {
		rows = append(rows, []any{"failed_stage", string(r.FailedStage)}, []any{"error", r.Error})
	}
	if s := r.InventorySummary; s != nil {
		rows = append(rows,
			[]any{"total_products", s.TotalProducts},
			[]any{"items_expiring_soon", s.ItemsExpiringSoon},
			[]any{"reorder_recommendations", s.ReorderRecommendations},
		)
	}
	if s := r.RouteSummary; s != nil {
		rows = append(rows,
			[]any{"total_routes", s.TotalRoutes},
			[]any{"total_distance_km", s.TotalDistanceKm},
			[]any{"total_deliveries", s.TotalDeliveries},
			[]any{"vehicle_utilization", s.VehicleUtilization},
			[]any{"route_compactness", s.RouteCompactness},
		)
	}
	for _, st := range r.Stages {
		rows = append(rows, []any{"stage_" + string(st.Stage), fmt.Sprintf("%s (%s)", st.Status, st.Duration)})
	}
	return rows
}

func recommendationRows(recs []domain.ReorderRecommendation) [][]any {
	rows := [][]any{{"product", "current_stock", "forecast_demand", "safety_stock", "recommended_order", "urgent", "reason", "expiring_units", "estimated_cost"}}
	for _, rec := range recs {
		rows = append(rows, []any{
			rec.Product, rec.OnHand, rec.ForecastDemand, rec.SafetyStock, rec.Quantity,
			rec.Urgent, string(rec.Reason), rec.ExpiringUnits, rec.EstimatedCost.StringFixed(2),
		})
	}
	return rows
}

func markdownRows(actions []domain.BatchAction) [][]any {
	rows := [][]any{{"batch_id", "product", "quantity", "expires_at", "days_until_expiry", "action", "projected_unsold", "markdown_pct"}}
	for _, a := range actions {
		rows = append(rows, []any{
			a.Batch.ID, a.Batch.Product, a.Batch.Quantity, a.Batch.ExpiresAt.Format(domain.DateLayout),
			a.DaysUntilExpiry, string(a.Action), a.ProjectedUnsold, a.DiscountPct,
		})
	}
	return rows
}

func rotationRows(plan []domain.RotationEntry) [][]any {
	rows := [][]any{{"sequence", "batch_id", "product", "quantity", "days_until_expiry", "priority", "position"}}
	for _, e := range plan {
		rows = append(rows, []any{
			e.Sequence, e.Batch.ID, e.Batch.Product, e.Batch.Quantity, e.DaysUntilExpiry, e.Priority, string(e.Position),
		})
	}
	return rows
}

func routeRows(r *ops.Report) [][]any {
	rows := [][]any{{"vehicle_id", "stop", "order_id", "arrive_at", "deadline", "late", "load_after", "priority"}}
	if r.RoutePlan == nil {
		return rows
	}
	for _, route := range r.RoutePlan.Routes {
		for i, st := range route.Stops {
			deadline := ""
			if !st.Deadline.IsZero() {
				deadline = st.Deadline.Format("2006-01-02 15:04")
			}
			rows = append(rows, []any{
				route.VehicleID, i + 1, st.OrderID, st.ArriveAt.Format("2006-01-02 15:04"), deadline, st.Late, st.LoadAfter, st.Priority,
			})
		}
	}
	return rows
}

func unassignedRows(r *ops.Report) [][]any {
	rows := [][]any{{"order_id", "reason", "error"}}
	if r.RoutePlan == nil {
		return rows
	}
	for _, u := range r.RoutePlan.Unassigned {
		rows = append(rows, []any{u.Order.ID, string(u.Reason), u.Error})
	}
	return rows
}

func warningRows(warnings []string) [][]any {
	rows := [][]any{{"warning"}}
	for _, w := range warnings {
		rows = append(rows, []any{w})
	}
	return rows
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
