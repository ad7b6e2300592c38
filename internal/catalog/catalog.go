// Package catalog renders warehouse schema metadata as prompt text,
// grouped by subject area. Metadata is fetched once at startup and
// cached for the process lifetime; a warehouse schema change requires a
// restart to become visible.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/internal/warehouse"
)

const tableHeaderPrefix = "Table Name:"

// Catalog holds the cached table schemas for every configured subject
// area. It is immutable after Load and safe for concurrent use.
type Catalog struct {
	subjects map[string][]string
	schemas  map[string]warehouse.TableSchema
}

// ParseSubjects parses the "Subject:tbl,tbl;Other:tbl" config form into
// a subject -> tables mapping.
func ParseSubjects(raw string) (map[string][]string, error) {
	subjects := make(map[string][]string)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, tables, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid subject entry %q: missing ':'", entry)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid subject entry %q: empty subject name", entry)
		}
		var parsed []string
		for _, table := range strings.Split(tables, ",") {
			table = strings.TrimSpace(table)
			if table == "" {
				continue
			}
			parsed = append(parsed, table)
		}
		if len(parsed) == 0 {
			return nil, fmt.Errorf("subject %q has no tables", name)
		}
		if _, exists := subjects[name]; exists {
			return nil, fmt.Errorf("subject %q configured twice", name)
		}
		subjects[name] = parsed
	}
	return subjects, nil
}

// Load fetches the schema of every configured table from the warehouse
// and builds the process-lifetime cache.
func Load(ctx context.Context, client warehouse.Client, subjects map[string][]string) (*Catalog, error) {
	cat := &Catalog{
		subjects: make(map[string][]string, len(subjects)),
		schemas:  make(map[string]warehouse.TableSchema),
	}
	for subject, tables := range subjects {
		cat.subjects[subject] = append([]string(nil), tables...)
		for _, table := range tables {
			if _, done := cat.schemas[table]; done {
				continue
			}
			schema, err := client.DescribeTable(ctx, table)
			if err != nil {
				return nil, fmt.Errorf("load schema for %q: %w", table, err)
			}
			cat.schemas[table] = schema
		}
	}
	return cat, nil
}

// Describe renders every table of the subject area as structured text:
// one "Table Name:" header per table with its columns nested under it.
// An unknown or empty subject area yields an empty description.
func (c *Catalog) Describe(subjectArea string) string {
	tables, ok := c.subjects[subjectArea]
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, table := range tables {
		schema, ok := c.schemas[table]
		if !ok {
			continue
		}
		b.WriteString(tableHeaderPrefix)
		b.WriteString(" ")
		b.WriteString(schema.QualifiedName)
		b.WriteString("\nColumns:\n")
		for _, col := range schema.Columns {
			nullability := "NOT NULLABLE"
			if col.Nullable {
				nullability = "NULLABLE"
			}
			fmt.Fprintf(&b, "  %s (%s) %s\n", col.Name, strings.ToUpper(col.Type), nullability)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Subjects returns the configured subject area names in no particular
// order.
func (c *Catalog) Subjects() []string {
	names := make([]string, 0, len(c.subjects))
	for name := range c.subjects {
		names = append(names, name)
	}
	return names
}

// ListTables returns the qualified table names of a subject area, in
// the same order Describe renders them.
func (c *Catalog) ListTables(subjectArea string) []string {
	tables, ok := c.subjects[subjectArea]
	if !ok {
		return nil
	}
	return append([]string(nil), tables...)
}

// HasTable reports whether the subject area contains the table. Used to
// filter hallucinated table names out of selector output.
func (c *Catalog) HasTable(subjectArea, qualifiedName string) bool {
	for _, table := range c.subjects[subjectArea] {
		if table == qualifiedName {
			return true
		}
	}
	return false
}

// Schema returns the cached schema for a table.
func (c *Catalog) Schema(qualifiedName string) (warehouse.TableSchema, bool) {
	schema, ok := c.schemas[qualifiedName]
	return schema, ok
}

// ParseTableNames recovers the table names from a Describe rendering.
// It is the inverse of Describe's headers and must agree with
// ListTables exactly.
func ParseTableNames(description string) []string {
	var names []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, tableHeaderPrefix); ok {
			name := strings.TrimSpace(rest)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
