// Command tabletalk-seed creates and fills the embedded demo warehouse
// so a fresh deployment has data to talk to.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/demo/seeder"
	"github.com/tabletalk/tabletalk/internal/observability"
	warehouseduckdb "github.com/tabletalk/tabletalk/internal/warehouse/duckdb"
)

func main() {
	defaults := seeder.DefaultConfig()
	seed := flag.Int64("seed", defaults.Seed, "random seed for generated volumes")
	months := flag.Int("months", defaults.Months, "number of months to generate")
	start := flag.String("start", defaults.Start.Format("2006-01-02"), "first month to generate (YYYY-MM-DD)")
	flag.Parse()

	cfg, err := config.LoadFromEnv("tabletalk-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	if cfg.Warehouse.Backend != "duckdb" {
		logger.Error("seeding targets the embedded duckdb backend only",
			slog.String("backend", cfg.Warehouse.Backend))
		os.Exit(1)
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Error("invalid -start date", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := warehouseduckdb.Open(warehouseduckdb.Config{Path: cfg.Warehouse.DSN})
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	s, err := seeder.New(db, logger)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}
	if err := s.Seed(context.Background(), seeder.Config{
		Seed:   *seed,
		Start:  startDate,
		Months: *months,
	}); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeding complete", slog.String("path", cfg.Warehouse.DSN))
}
