// Package seeder creates and fills the demo warehouse tables so the
// service can answer questions out of the box.
package seeder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	// Seed fixes the random sequence; the same seed always produces the
	// same dataset.
	Seed   int64
	Start  time.Time
	Months int
}

func DefaultConfig() Config {
	return Config{
		Seed:   42,
		Start:  time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC),
		Months: 24,
	}
}

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS product_hierarchy (
		model_id   VARCHAR NOT NULL,
		model_name VARCHAR,
		segment    VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sales_person_hierarchy (
		rsm_id    VARCHAR NOT NULL,
		rsm_name  VARCHAR,
		zone_name VARCHAR,
		area_name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS billing_data (
		date           DATE NOT NULL,
		model_id       VARCHAR NOT NULL,
		rsm_id         VARCHAR NOT NULL,
		open_booking   BIGINT,
		retail_volume  BIGINT,
		billing_volume BIGINT,
		test_drive     BIGINT
	)`,
}

type Seeder struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{db: db, logger: logger}, nil
}

// Seed creates the demo tables and replaces their contents.
func (s *Seeder) Seed(ctx context.Context, cfg Config) error {
	if cfg.Months <= 0 {
		return fmt.Errorf("months must be positive, got %d", cfg.Months)
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create demo table: %w", err)
		}
	}
	for _, table := range []string{"billing_data", "sales_person_hierarchy", "product_hierarchy"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range demoProducts() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO product_hierarchy (model_id, model_name, segment) VALUES (?, ?, ?)",
			p.ModelID, p.ModelName, p.Segment,
		); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ModelID, err)
		}
	}
	for _, sp := range demoSalesPersons() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sales_person_hierarchy (rsm_id, rsm_name, zone_name, area_name) VALUES (?, ?, ?, ?)",
			sp.RSMID, sp.RSMName, sp.ZoneName, sp.AreaName,
		); err != nil {
			return fmt.Errorf("insert sales person %s: %w", sp.RSMID, err)
		}
	}

	rows := newGenerator(cfg.Seed).billingRows(cfg.Start, cfg.Months)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO billing_data (date, model_id, rsm_id, open_booking, retail_volume, billing_volume, test_drive)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.Date, row.ModelID, row.RSMID, row.OpenBooking, row.RetailVolume, row.BillingVolume, row.TestDrive,
		); err != nil {
			return fmt.Errorf("insert billing row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	s.logger.Info("demo warehouse seeded",
		"products", len(demoProducts()),
		"sales_persons", len(demoSalesPersons()),
		"billing_rows", len(rows),
	)
	return nil
}
