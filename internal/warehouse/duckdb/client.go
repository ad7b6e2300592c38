// Package duckdb implements the warehouse client on an embedded DuckDB
// database, used for demo deployments and tests.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/tabletalk/tabletalk/internal/warehouse"
)

type Config struct {
	// Path is the database file; empty means in-memory.
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
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
		schema = "main"
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
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
