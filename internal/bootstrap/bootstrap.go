// Package bootstrap assembles the operations stack from configuration for the
// server and the ops command.
package bootstrap

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/export"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository/csvsource"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository/postgres"
)

const (
	SourcePostgres = "postgres"
	SourceCSV      = "csv"
)

// Inputs bundles the collaborator ports of one data source.
type Inputs struct {
	History repository.HistorySource
	Sources ops.Sources
	Tracker repository.RunTracker
	// Reports stores report payloads; nil for file-based sources.
	Reports ops.Sink
}

// NewInputs builds the ports for cfg.Operations.DataSource. db is required for postgres.
func NewInputs(cfg *config.Config, db *postgres.DB) (Inputs, error) {
	switch cfg.Operations.DataSource {
	case SourceCSV:
		src := csvsource.New(cfg.Operations.DataDir)
		log.Info().Str("dir", cfg.Operations.DataDir).Msg("Using CSV data source")
		return Inputs{
			History: src,
			Sources: ops.Sources{Stores: src, Inventory: src, Orders: src},
			Tracker: repository.NewNoopRunTracker(),
		}, nil
	case "", SourcePostgres:
		if db == nil {
			return Inputs{}, fmt.Errorf("postgres data source needs a database connection")
		}
		stores := postgres.NewStoreRepository(db)
		return Inputs{
			History: postgres.NewHistoryRepository(db),
			Sources: ops.Sources{
				Stores:    stores,
				Inventory: postgres.NewInventoryRepository(db),
				Orders:    postgres.NewOrderRepository(db),
			},
			Tracker: postgres.NewRunRepository(db),
			Reports: postgres.NewReportRepository(db),
		}, nil
	default:
		return Inputs{}, fmt.Errorf("unknown data source %q", cfg.Operations.DataSource)
	}
}

// OpsConfig converts the operations and routing sections into run settings.
func OpsConfig(cfg *config.Config) ops.Config {
	c := ops.DefaultConfig()
	if cfg.Operations.ForecastHorizonDays > 0 {
		c.ForecastHorizonDays = cfg.Operations.ForecastHorizonDays
	}
	if cfg.Operations.MaxParallelStores > 0 {
		c.MaxParallelStores = cfg.Operations.MaxParallelStores
	}
	if cfg.Routing.DepartHour >= 0 && cfg.Routing.DepartHour < 24 {
		c.DepartHour = cfg.Routing.DepartHour
	}
	c.Catalog = domain.DefaultCatalog()
	c.Rotation = cfg.Operations.ToRotationParams(c.Rotation.RunDate, c.Catalog)
	c.Routing = cfg.Routing.ToRoutingOptions(domain.Coordinates{}, c.Routing.DepartAt)
	return c
}

// Sink writes reports to the log, an XLSX workbook under ReportDir and, when
// present, the report store of the inputs.
func Sink(cfg *config.Config, in Inputs) export.MultiSink {
	sinks := export.MultiSink{export.LogSink{}}
	if cfg.Operations.ReportDir != "" {
		sinks = append(sinks, export.NewXLSXSink(cfg.Operations.ReportDir))
	}
	if in.Reports != nil {
		sinks = append(sinks, in.Reports)
	}
	return sinks
}

// NewOrchestrator wires an orchestrator for the given inputs.
func NewOrchestrator(cfg *config.Config, models *forecast.Registry, in Inputs, archive ops.ForecastArchive) *ops.Orchestrator {
	opts := []ops.Option{ops.WithSink(Sink(cfg, in))}
	if archive != nil {
		opts = append(opts, ops.WithArchive(archive))
	}
	if in.Tracker != nil {
		opts = append(opts, ops.WithTracker(in.Tracker))
	}
	return ops.NewOrchestrator(models, in.Sources, OpsConfig(cfg), opts...)
}
