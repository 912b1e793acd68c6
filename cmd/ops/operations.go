package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/bootstrap"
	"github.com/andresuchdata/shelflife/backend-go/internal/cache"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/export"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
	"github.com/andresuchdata/shelflife/backend-go/internal/storage"
)

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Forecast daily demand for one store and product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Required: true},
			&cli.StringFlag{Name: "product", Required: true},
			&cli.IntFlag{Name: "horizon", Value: 1},
			&cli.StringFlag{Name: "start", Usage: "First forecast day (YYYY-MM-DD), defaults to today"},
		},
		Before: setup,
		After:  teardown,
		Action: func(c *cli.Context) error {
			start, err := parseDay(c, "start")
			if err != nil {
				return err
			}
			model, err := loadModel(c)
			if err != nil {
				return err
			}
			records, err := forecast.Predict(model, c.String("store"), c.String("product"), c.Int("horizon"), start)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, records)
		},
	}
}

func operationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "operations",
		Usage: "Run the daily operations pipeline for one or more stores",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "store", Usage: "Store ID, repeatable; all stores when omitted"},
			&cli.StringFlag{Name: "date", Usage: "Run date (YYYY-MM-DD), defaults to today"},
		},
		Before: setup,
		After:  teardown,
		Action: func(c *cli.Context) error {
			day, err := parseDay(c, "date")
			if err != nil {
				return err
			}
			orchestrator, err := newOrchestrator(c, nil)
			if err != nil {
				return err
			}

			reports, runErr := orchestrator.RunAll(c.Context, c.StringSlice("store"), day)
			summaries := make([]map[string]any, 0, len(reports))
			for _, r := range reports {
				if r == nil {
					continue
				}
				summaries = append(summaries, map[string]any{
					"store_id":          r.StoreID,
					"run_id":            r.RunID,
					"status":            r.Status,
					"failed_stage":      r.FailedStage,
					"inventory_summary": r.InventorySummary,
					"route_summary":     r.RouteSummary,
					"warnings":          r.Warnings,
				})
			}
			if err := writeJSON(c.App.Writer, summaries); err != nil {
				return err
			}
			return runErr
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Run operations for one store and write the report workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Required: true},
			&cli.StringFlag{Name: "date", Usage: "Run date (YYYY-MM-DD), defaults to today"},
			&cli.StringFlag{Name: "out", Usage: "Output directory, defaults to OPS_REPORT_DIR"},
		},
		Before: setup,
		After:  teardown,
		Action: func(c *cli.Context) error {
			day, err := parseDay(c, "date")
			if err != nil {
				return err
			}
			dir := c.String("out")
			if dir == "" {
				dir = configFrom(c).Operations.ReportDir
			}
			xlsx := export.NewXLSXSink(dir)

			orchestrator, err := newOrchestrator(c, export.MultiSink{export.LogSink{}, xlsx})
			if err != nil {
				return err
			}
			report, err := orchestrator.Run(c.Context, c.String("store"), day)
			if report != nil {
				fmt.Fprintln(c.App.Writer, xlsx.Path(report))
			}
			return err
		},
	}
}

func loadModel(c *cli.Context) (*forecast.Model, error) {
	store, err := storage.NewModelStoreFromConfig(configFrom(c).Model)
	if err != nil {
		return nil, err
	}
	return store.Load(c.Context)
}

// newOrchestrator wires a run against the configured inputs. A nil sink uses the
// configured report sinks. A missing model leaves forecasting to last-known-good data.
func newOrchestrator(c *cli.Context, sink ops.Sink) (*ops.Orchestrator, error) {
	cfg := configFrom(c)

	in, err := bootstrap.NewInputs(cfg, dbFrom(c))
	if err != nil {
		return nil, err
	}

	registry := forecast.NewRegistry(nil)
	model, err := loadModel(c)
	switch domain.KindOf(err) {
	case "":
		registry.Swap(model)
	case domain.KindModelNotTrained:
		log.Warn().Msg("No trained model found; using last-known-good forecasts")
	default:
		return nil, err
	}

	archive, err := cache.NewForecastArchive(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Forecast archive unavailable, continuing without it")
		archive = cache.NewNoopForecastArchive()
	}

	if sink == nil {
		return bootstrap.NewOrchestrator(cfg, registry, in, archive), nil
	}
	opts := []ops.Option{ops.WithArchive(archive), ops.WithSink(sink)}
	if in.Tracker != nil {
		opts = append(opts, ops.WithTracker(in.Tracker))
	}
	return ops.NewOrchestrator(registry, in.Sources, bootstrap.OpsConfig(cfg), opts...), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
