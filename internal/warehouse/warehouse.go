// Package warehouse defines the client boundary to the SQL warehouse that
// generated queries run against, plus the row/metadata types shared by
// its backends.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column is one column of a warehouse table, as reported by the
// backend's metadata catalog.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// TableSchema describes one table. QualifiedName is "schema.table".
type TableSchema struct {
	QualifiedName string
	Columns       []Column
}

// ResultSet holds the rows produced by one query execution. Column
// order follows the statement's projection; row order follows the
// warehouse's result order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// QueryError reports a statement the warehouse rejected. The SQL is
// carried verbatim so callers can surface the failing query to the user.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Client is the warehouse access contract used by the engine and the
// schema catalog. Each call is a single blocking round trip; RunQuery
// executes exactly once with no retries.
type Client interface {
	RunQuery(ctx context.Context, sqlText string) (ResultSet, error)
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, qualifiedName string) (TableSchema, error)
	HealthCheck(ctx context.Context) error
}

// ApplyRowLimit wraps a statement so at most limit rows come back.
// Trailing semicolons are stripped first so the statement can be nested.
func ApplyRowLimit(sqlText string, limit int) string {
	trimmed := StripTrailingSemicolons(sqlText)
	if limit <= 0 {
		return trimmed
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", trimmed, limit)
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// CollectRows drains sql.Rows into a ResultSet, normalizing driver byte
// slices to strings.
func CollectRows(rows *sql.Rows) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("query columns: %w", err)
	}

	collected := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		collected = append(collected, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}

	return ResultSet{Columns: columns, Rows: collected}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// SplitQualifiedName splits "schema.table" into its parts. A bare table
// name comes back with an empty schema.
func SplitQualifiedName(qualifiedName string) (schema, table string) {
	idx := strings.Index(qualifiedName, ".")
	if idx < 0 {
		return "", qualifiedName
	}
	return qualifiedName[:idx], qualifiedName[idx+1:]
}
