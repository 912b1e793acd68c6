package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/export"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Operations: config.OperationsConfig{
			LeadTimeDays:        4,
			SafetyStockFactor:   1.2,
			ExpiryHorizonDays:   3,
			ForecastHorizonDays: 5,
			MaxParallelStores:   2,
			ReportDir:           t.TempDir(),
			DataSource:          SourceCSV,
			DataDir:             t.TempDir(),
		},
		Routing: config.RoutingConfig{
			SpeedKmh:          30,
			ServiceMinutes:    4,
			PrepMinutes:       15,
			LatePenalty:       100,
			DropPenalty:       150,
			MaxIterations:     50,
			TimeBudgetSeconds: 2,
			DepartHour:        7,
		},
	}
}

func TestOpsConfig(t *testing.T) {
	c := OpsConfig(testConfig(t))

	assert.Equal(t, 5, c.ForecastHorizonDays)
	assert.Equal(t, 2, c.MaxParallelStores)
	assert.Equal(t, 7, c.DepartHour)
	assert.Equal(t, 4, c.Rotation.LeadTimeDays)
	assert.InDelta(t, 1.2, c.Rotation.SafetyStockFactor, 1e-9)
	assert.Equal(t, 3, c.Rotation.ExpiryHorizonDays)
	assert.NotNil(t, c.Rotation.Catalog)
	assert.Equal(t, 15*time.Minute, c.Routing.PrepTime)
	assert.Equal(t, 30.0, c.Routing.SpeedKmh)
}

func TestNewInputs(t *testing.T) {
	cfg := testConfig(t)

	in, err := NewInputs(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, in.History)
	assert.NotNil(t, in.Sources.Stores)
	assert.NotNil(t, in.Tracker)
	assert.Nil(t, in.Reports)

	cfg.Operations.DataSource = SourcePostgres
	_, err = NewInputs(cfg, nil)
	assert.Error(t, err)

	cfg.Operations.DataSource = "kafka"
	_, err = NewInputs(cfg, nil)
	assert.ErrorContains(t, err, "kafka")
}

func TestSink(t *testing.T) {
	cfg := testConfig(t)
	in, err := NewInputs(cfg, nil)
	require.NoError(t, err)

	sinks := Sink(cfg, in)
	require.Len(t, sinks, 2)
	assert.IsType(t, export.LogSink{}, sinks[0])
	assert.IsType(t, &export.XLSXSink{}, sinks[1])

	cfg.Operations.ReportDir = ""
	assert.Len(t, Sink(cfg, in), 1)

	assert.NotNil(t, NewOrchestrator(cfg, forecast.NewRegistry(nil), in, nil))
}
