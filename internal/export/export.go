// Package export encodes cached result sets for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/tabletalk/tabletalk/internal/present"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

// WriteCSV writes the result set with a header row. Cells use display
// formatting; NULLs become empty cells.
func WriteCSV(w io.Writer, result warehouse.ResultSet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(result.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteParquet writes the result set as a parquet file. Result columns
// are dynamic, so every column is encoded as an optional string;
// consumers that need typed columns should query the warehouse
// directly.
func WriteParquet(w io.Writer, result warehouse.ResultSet) error {
	if len(result.Columns) == 0 {
		return fmt.Errorf("result has no columns")
	}

	names := dedupeColumns(result.Columns)
	group := parquet.Group{}
	for _, name := range names {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	// Group fields are ordered by name; map each source column to its
	// leaf index so row values line up with the schema.
	leafIndex := make(map[string]int, len(names))
	for i, field := range schema.Fields() {
		leafIndex[field.Name()] = i
	}

	writer := parquet.NewGenericWriter[any](w, schema)
	rows := make([]parquet.Row, 0, len(result.Rows))
	for _, row := range result.Rows {
		values := make([]parquet.Value, len(names))
		for i, name := range names {
			idx := leafIndex[name]
			if i >= len(row) || row[i] == nil {
				values[idx] = parquet.ValueOf(nil).Level(0, 0, idx)
				continue
			}
			values[idx] = parquet.ValueOf(cellString(row[i])).Level(0, 1, idx)
		}
		rows = append(rows, parquet.Row(values))
	}
	if len(rows) > 0 {
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func cellString(cell any) string {
	if cell == nil {
		return ""
	}
	return fmt.Sprintf("%v", present.FormatValue(cell))
}

// dedupeColumns suffixes repeated column names so they stay distinct
// in the parquet schema.
func dedupeColumns(columns []string) []string {
	seen := make(map[string]int, len(columns))
	names := make([]string, len(columns))
	for i, name := range columns {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
			seen[name]++
		}
		names[i] = name
	}
	return names
}

// ContentType returns the MIME type for a download format.
func ContentType(format string) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv", nil
	case "parquet":
		return "application/vnd.apache.parquet", nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}
