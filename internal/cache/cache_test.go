package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

func redisConfig(t *testing.T) (config.CacheConfig, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return config.CacheConfig{
		Enabled:            true,
		RedisURL:           "redis://" + mr.Addr(),
		ReportTTLSeconds:   60,
		ForecastTTLSeconds: 0,
	}, mr
}

func TestForecastArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, mr := redisConfig(t)
	archive, err := NewForecastArchive(cfg)
	require.NoError(t, err)

	_, ok, err := archive.LastKnownGood(ctx, "Store_A", "Milk")
	require.NoError(t, err)
	assert.False(t, ok)

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	records := []domain.ForecastRecord{
		{StoreID: "Store_A", Product: "Milk", Date: day, Predicted: 12.5, Lower: 10, Upper: 15, StdDev: 1.2, ModelVersion: "rf-42"},
		{StoreID: "Store_A", Product: "Milk", Date: day.AddDate(0, 0, 1), Predicted: 11, Lower: 9, Upper: 13, StdDev: 1.1, ModelVersion: "rf-42"},
	}
	require.NoError(t, archive.SaveForecast(ctx, "Store_A", "Milk", records))

	got, ok, err := archive.LastKnownGood(ctx, "Store_A", "Milk")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, got)
	assert.Equal(t, defaultForecastTTL, mr.TTL("forecast:lkg:Store_A:Milk"))

	require.NoError(t, archive.InvalidateAll(ctx))
	_, ok, err = archive.LastKnownGood(ctx, "Store_A", "Milk")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, mr := redisConfig(t)
	reports, err := NewReportCache(cfg)
	require.NoError(t, err)

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	report := &ops.Report{
		RunID:            "run-1",
		StoreID:          "Store_A",
		RunDate:          day,
		Status:           ops.StatusSuccess,
		Warnings:         []string{"product Kale skipped"},
		InventorySummary: &ops.InventorySummary{TotalProducts: 2, ItemsExpiringSoon: 1, ReorderRecommendations: 1},
		RouteSummary:     &routing.Summary{TotalRoutes: 1, TotalDistanceKm: 4.2},
	}
	require.NoError(t, reports.SetReport(ctx, report))
	assert.Equal(t, time.Minute, mr.TTL("operations:report:Store_A:2026-02-10"))

	got, ok, err := reports.GetReport(ctx, "Store_A", day.Add(13*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.InventorySummary, got.InventorySummary)
	assert.Equal(t, 4.2, got.RouteSummary.TotalDistanceKm)
	assert.True(t, got.RunDate.Equal(day))

	_, ok, err = reports.GetReport(ctx, "Store_A", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	mr.SetError("boom")
	_, _, err = reports.GetReport(ctx, "Store_A", day)
	assert.Error(t, err)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	archive, err := NewForecastArchive(config.CacheConfig{})
	require.NoError(t, err)
	require.NoError(t, archive.SaveForecast(ctx, "Store_A", "Milk", []domain.ForecastRecord{{Predicted: 1}}))
	_, ok, err := archive.LastKnownGood(ctx, "Store_A", "Milk")
	require.NoError(t, err)
	assert.False(t, ok)

	reports, err := NewReportCache(config.CacheConfig{})
	require.NoError(t, err)
	require.NoError(t, reports.SetReport(ctx, &ops.Report{StoreID: "Store_A"}))
	_, ok, err = reports.GetReport(ctx, "Store_A", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreachableRedisFails(t *testing.T) {
	_, err := NewReportCache(config.CacheConfig{Enabled: true, RedisURL: "not a url"})
	assert.Error(t, err)
}
