package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shelflife/backend-go/internal/bootstrap"
	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/shelflife/backend-go/pkg/logger"
)

type ctxKey int

const (
	configKey ctxKey = iota
	dbKey
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{
			Name:    "data-source",
			Usage:   "Where inputs are read from: postgres or csv",
			EnvVars: []string{"OPS_DATA_SOURCE"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Directory of CSV inputs when --data-source=csv",
			EnvVars: []string{"OPS_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}
}

// setup loads the configuration and, for the postgres source, opens the database.
func setup(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(c.String("log-level"))

	if v := c.String("data-source"); v != "" {
		cfg.Operations.DataSource = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.Operations.DataDir = v
	}
	c.Context = context.WithValue(c.Context, configKey, cfg)

	if cfg.Operations.DataSource == bootstrap.SourceCSV && c.Command.Name != "seed" {
		return nil
	}

	db, err := openDB(c, cfg)
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func openDB(c *cli.Context, cfg *config.Config) (*postgres.DB, error) {
	url := c.String("db-url")
	if url == "" {
		return postgres.NewDB(&cfg.Database)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return postgres.Wrap(sqlx.NewDb(db, "pgx")), nil
}

func teardown(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.Context.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.Load()
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

// parseDay reads a YYYY-MM-DD flag, falling back to today.
func parseDay(c *cli.Context, name string) (time.Time, error) {
	v := c.String(name)
	if v == "" {
		return domain.Day(time.Now()), nil
	}
	d, err := time.Parse(domain.DateLayout, v)
	if err != nil {
		return time.Time{}, domain.InvalidArgument(fmt.Sprintf("--%s: %q is not YYYY-MM-DD", name, v))
	}
	return d, nil
}

func main() {
	app := &cli.App{
		Name:  "ops",
		Usage: "Train the demand model and run daily store operations",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			trainCommand(),
			predictCommand(),
			operationsCommand(),
			exportCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ops command failed")
	}
}
