package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

func sampleReport() *ops.Report {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	milk := domain.InventoryBatch{ID: "B1", StoreID: "S1", Product: "Milk", Quantity: 12, ReceivedAt: day.AddDate(0, 0, -3), ExpiresAt: day.AddDate(0, 0, 1)}
	return &ops.Report{
		RunID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		StoreID:      "Store A",
		RunDate:      day,
		Status:       ops.StatusSuccess,
		ModelVersion: "rf-42-1",
		Warnings:     []string{"order O9 unassigned: capacity_exceeded"},
		InventorySummary: &ops.InventorySummary{
			TotalProducts: 1, ItemsExpiringSoon: 1, ReorderRecommendations: 1,
		},
		Recommendations: []domain.ReorderRecommendation{{
			StoreID: "S1", Product: "Milk", Quantity: 30, Urgent: true, Reason: domain.ReasonStockoutRisk,
			OnHand: 12, ForecastDemand: 36, SafetyStock: 6, EstimatedCost: decimal.NewFromFloat(22.5),
		}},
		Markdowns:    []domain.BatchAction{{Batch: milk, Action: domain.ActionMarkdown, ProjectedUnsold: 4, DaysUntilExpiry: 1, DiscountPct: 40}},
		RotationPlan: []domain.RotationEntry{{Batch: milk, DaysUntilExpiry: 1, Priority: "HIGH", Position: domain.PositionFront, Sequence: 1}},
		RoutePlan: &routing.Plan{
			Routes: []domain.Route{{
				VehicleID: "V1",
				Stops: []domain.RouteStop{
					{OrderID: "O1", ArriveAt: day.Add(8*time.Hour + 20*time.Minute), LoadAfter: 4, Priority: 2},
					{OrderID: "O2", ArriveAt: day.Add(9 * time.Hour), Deadline: day.Add(10 * time.Hour), LoadAfter: 0, Priority: 1},
				},
			}},
			Unassigned: []routing.Unassigned{{Order: domain.Order{ID: "O9"}, Reason: routing.ReasonCapacityExceeded}},
		},
		RouteSummary: &routing.Summary{TotalRoutes: 1, TotalDistanceKm: 7.5, TotalDeliveries: 2},
	}
}

func TestXLSXSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewXLSXSink(dir)
	report := sampleReport()

	require.NoError(t, sink.Write(context.Background(), report))

	path := sink.Path(report)
	assert.Equal(t, "operations_Store_A_2026-02-10_0f8fad5b.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Recommendations", "Markdowns", "Rotation", "Routes", "Unassigned", "Warnings"}, f.GetSheetList())

	store, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Store A", store)

	recs, err := f.GetRows("Recommendations")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Milk", recs[1][0])
	assert.Equal(t, "30", recs[1][4])
	assert.Equal(t, "stockout_risk", recs[1][6])
	assert.Equal(t, "22.50", recs[1][8])

	marks, err := f.GetRows("Markdowns")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "B1", marks[1][0])
	assert.Equal(t, "2026-02-11", marks[1][3])
	assert.Equal(t, "40", marks[1][7])

	routes, err := f.GetRows("Routes")
	require.NoError(t, err)
	require.Len(t, routes, 3)
	assert.Equal(t, "O1", routes[1][2])
	assert.Equal(t, "2026-02-10 08:20", routes[1][3])
	assert.Equal(t, "2026-02-10 10:00", routes[2][4])

	unassigned, err := f.GetRows("Unassigned")
	require.NoError(t, err)
	require.Len(t, unassigned, 2)
	assert.Equal(t, "capacity_exceeded", unassigned[1][1])

	warnings, err := f.GetRows("Warnings")
	require.NoError(t, err)
	require.Len(t, warnings, 2)
}

func TestXLSXSink_FailedReport(t *testing.T) {
	dir := t.TempDir()
	sink := NewXLSXSink(dir)
	report := &ops.Report{
		RunID:       "r1",
		StoreID:     "S1",
		RunDate:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Status:      ops.StatusFailed,
		FailedStage: ops.StageForecasting,
		Error:       "model not trained",
	}

	require.NoError(t, sink.Write(context.Background(), report))

	f, err := excelize.OpenFile(sink.Path(report))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"failed_stage", "forecasting"})

	routes, err := f.GetRows("Routes")
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) Write(context.Context, *ops.Report) error {
	s.calls++
	return s.err
}

func TestMultiSink(t *testing.T) {
	ok := &stubSink{}
	bad := &stubSink{err: errors.New("disk full")}
	multi := MultiSink{ok, bad, LogSink{}}

	err := multi.Write(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	assert.NoError(t, MultiSink{ok}.Write(context.Background(), sampleReport()))
}

func TestXLSXSink_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := NewXLSXSink(filepath.Join(file, "reports")).Write(context.Background(), sampleReport())
	assert.Error(t, err)
}
