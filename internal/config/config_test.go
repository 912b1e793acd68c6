package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "local", cfg.Model.Store)
	assert.Equal(t, 3, cfg.Operations.LeadTimeDays)
	assert.InDelta(t, 1.65, cfg.Operations.SafetyStockFactor, 1e-9)
	assert.Equal(t, 2, cfg.Operations.ExpiryHorizonDays)
	assert.Equal(t, 7, cfg.Operations.ForecastHorizonDays)
	assert.Equal(t, 500, cfg.Routing.MaxIterations)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("OPS_LEAD_TIME_DAYS", 5)
	v.Set("MODEL_NUM_TREES", 20)
	v.Set("ROUTING_PREP_MINUTES", 0)
	cfg := fromViper(v)

	params := cfg.Operations.ToRotationParams(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC), domain.DefaultCatalog())
	require.NoError(t, params.Validate())
	assert.Equal(t, 5, params.LeadTimeDays)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), params.RunDate)
	assert.NotNil(t, params.Catalog)

	fp := cfg.Model.ToForecastParams()
	require.NoError(t, fp.Validate())
	assert.Equal(t, 20, fp.NumTrees)
	assert.Equal(t, int64(42), fp.Seed)

	opts := cfg.Routing.ToRoutingOptions(domain.Coordinates{Lat: 1, Lon: 2}, time.Time{})
	assert.Equal(t, time.Duration(0), opts.PrepTime)
	assert.Equal(t, 5*time.Minute, opts.ServiceTime)
	assert.Equal(t, 5*time.Second, opts.TimeBudget)
	assert.Equal(t, 1.0, opts.Depot.Lat)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shelf", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shelf sslmode=disable", db.DSN())

	db.URL = "postgres://u:p@db/shelf"
	assert.Equal(t, "postgres://u:p@db/shelf", db.DSN())
}
