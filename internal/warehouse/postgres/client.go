// Package postgres implements the warehouse client against a PostgreSQL
// warehouse over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tabletalk/tabletalk/internal/warehouse"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

type Client struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewClient(db *sql.DB, queryTimeout time.Duration) *Client {
	return &Client{db: db, queryTimeout: queryTimeout}
}

func (c *Client) RunQuery(ctx context.Context, sqlText string) (warehouse.ResultSet, error) {
	sqlText = warehouse.StripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return warehouse.ResultSet{}, &warehouse.QueryError{SQL: sqlText, Err: fmt.Errorf("sql is required")}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, sqlText)
	if err != nil {
		return warehouse.ResultSet{}, &warehouse.QueryError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	result, err := warehouse.CollectRows(rows)
	if err != nil {
		return warehouse.ResultSet{}, &warehouse.QueryError{SQL: sqlText, Err: err}
	}
	return result, nil
}

func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
		  AND table_type = 'BASE TABLE'
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, schema+"."+table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func (c *Client) DescribeTable(ctx context.Context, qualifiedName string) (warehouse.TableSchema, error) {
	schema, table := warehouse.SplitQualifiedName(qualifiedName)
	if schema == "" {
		schema = "public"
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return warehouse.TableSchema{}, fmt.Errorf("describe table %q: %w", qualifiedName, err)
	}
	defer func() { _ = rows.Close() }()

	result := warehouse.TableSchema{QualifiedName: qualifiedName}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return warehouse.TableSchema{}, fmt.Errorf("scan column: %w", err)
		}
		result.Columns = append(result.Columns, warehouse.Column{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return warehouse.TableSchema{}, fmt.Errorf("iterate columns: %w", err)
	}
	if len(result.Columns) == 0 {
		return warehouse.TableSchema{}, fmt.Errorf("table %q not found", qualifiedName)
	}
	return result, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}
