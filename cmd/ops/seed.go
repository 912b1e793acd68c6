package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/repository/csvsource"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository/postgres"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the schema and load a CSV dataset into Postgres",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "seed-dir",
				Usage:   "Directory containing stores.csv, vehicles.csv, inventory.csv, orders.csv and history files",
				Value:   "./data/seeds",
				EnvVars: []string{"SEED_DATA_DIR"},
			},
		},
		Before: setup,
		After:  teardown,
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	db := dbFrom(c)
	if db == nil {
		return fmt.Errorf("database connection not found in context")
	}
	if err := db.Migrate(c.Context); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	ds, err := loadDataset(c, csvsource.New(c.String("seed-dir")))
	if err != nil {
		return err
	}

	counts, err := postgres.NewImportRepository(db).Import(c.Context, ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "seeded %d stores, %d vehicles, %d batches, %d orders, %d sales rows\n",
		counts.Stores, counts.Vehicles, counts.Batches, counts.Orders, counts.Sales)
	return nil
}

func loadDataset(c *cli.Context, src *csvsource.Source) (postgres.Dataset, error) {
	var (
		ds  postgres.Dataset
		err error
	)
	if ds.Stores, err = src.ListStores(c.Context); err != nil {
		return ds, fmt.Errorf("failed to read stores: %w", err)
	}
	if ds.Batches, err = src.AllBatches(c.Context); err != nil {
		return ds, fmt.Errorf("failed to read inventory: %w", err)
	}
	orders, err := src.AllOrders(c.Context)
	if err != nil {
		return ds, fmt.Errorf("failed to read orders: %w", err)
	}
	for _, o := range orders {
		ds.Orders = append(ds.Orders, postgres.DatedOrder{Day: o.Day, Order: o.Order})
	}
	if ds.History, err = src.LoadHistory(c.Context, time.Time{}, time.Time{}); err != nil {
		return ds, fmt.Errorf("failed to read history: %w", err)
	}
	return ds, nil
}
