// Package present prepares warehouse result sets for display:
// pagination for the data views and display formatting for numeric
// values.
package present

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tabletalk/tabletalk/internal/warehouse"
)

var ErrPageOutOfRange = errors.New("page out of range")

// Page is one window of a result set.
type Page struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalRows  int      `json:"total_rows"`
	TotalPages int      `json:"total_pages"`
}

// Paginate slices the result set into pages of pageSize rows. Pages are
// 1-based; requesting a page outside [1, totalPages] returns
// ErrPageOutOfRange. An empty result set has exactly one empty page.
func Paginate(result warehouse.ResultSet, page, pageSize int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	totalRows := len(result.Rows)
	totalPages := int(math.Ceil(float64(totalRows) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		return Page{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, totalPages)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > totalRows {
		end = totalRows
	}
	return Page{
		Columns:    result.Columns,
		Rows:       result.Rows[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalRows:  totalRows,
		TotalPages: totalPages,
	}, nil
}

// FormatNumber renders a float for display: integral values drop the
// fraction entirely, everything else keeps one decimal place.
func FormatNumber(value float64) string {
	if value == math.Trunc(value) && !math.IsInf(value, 0) {
		// FormatFloat keeps integral values exact even beyond int64 range.
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	return strconv.FormatFloat(value, 'f', 1, 64)
}

// FormatValue applies display formatting to a single cell. Floats go
// through FormatNumber; every other type is returned unchanged.
func FormatValue(value any) any {
	switch v := value.(type) {
	case float64:
		return FormatNumber(v)
	case float32:
		return FormatNumber(float64(v))
	default:
		return value
	}
}

// FormatResultSet returns a copy of the result set with display
// formatting applied to every cell.
func FormatResultSet(result warehouse.ResultSet) warehouse.ResultSet {
	formatted := warehouse.ResultSet{
		Columns: append([]string(nil), result.Columns...),
		Rows:    make([][]any, len(result.Rows)),
	}
	for i, row := range result.Rows {
		out := make([]any, len(row))
		for j, cell := range row {
			out[j] = FormatValue(cell)
		}
		formatted.Rows[i] = out
	}
	return formatted
}

// RenderPreview renders the first maxRows rows as pipe-separated text,
// suitable for embedding in a prompt.
func RenderPreview(result warehouse.ResultSet, maxRows int) string {
	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")

	rows := result.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", FormatValue(cell))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if len(result.Rows) > len(rows) {
		fmt.Fprintf(&b, "... %d more rows\n", len(result.Rows)-len(rows))
	}
	return b.String()
}
