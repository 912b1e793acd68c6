package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/bootstrap"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/storage"
)

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Train the demand forest on sales history and store the model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First history day (YYYY-MM-DD), open when empty"},
			&cli.StringFlag{Name: "to", Usage: "Last history day (YYYY-MM-DD), open when empty"},
			&cli.IntFlag{Name: "trees", Usage: "Number of trees, overrides MODEL_NUM_TREES"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed, overrides MODEL_SEED"},
		},
		Before: setup,
		After:  teardown,
		Action: runTrain,
	}
}

func runTrain(c *cli.Context) error {
	cfg := configFrom(c)

	var from, to time.Time
	var err error
	if c.String("from") != "" {
		if from, err = parseDay(c, "from"); err != nil {
			return err
		}
	}
	if c.String("to") != "" {
		if to, err = parseDay(c, "to"); err != nil {
			return err
		}
	}

	params := cfg.Model.ToForecastParams()
	if c.IsSet("trees") {
		params.NumTrees = c.Int("trees")
	}
	if c.IsSet("seed") {
		params.Seed = c.Int64("seed")
	}

	in, err := bootstrap.NewInputs(cfg, dbFrom(c))
	if err != nil {
		return err
	}
	history, err := in.History.LoadHistory(c.Context, from, to)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	started := time.Now()
	model, err := forecast.Train(c.Context, history, params)
	if err != nil {
		return fmt.Errorf("failed to train model: %w", err)
	}

	store, err := storage.NewModelStoreFromConfig(cfg.Model)
	if err != nil {
		return err
	}
	if err := store.Save(c.Context, model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	metrics := model.Metrics()
	log.Info().
		Str("version", model.Version()).
		Int("trees", model.NumTrees()).
		Int("train_samples", metrics.TrainSamples).
		Int("holdout_samples", metrics.HoldoutSamples).
		Float64("mae", metrics.MAE).
		Float64("rmse", metrics.RMSE).
		Dur("duration", time.Since(started)).
		Msg("Model trained")
	return nil
}
