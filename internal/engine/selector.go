package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/observability"
)

type tableSelection struct {
	Tables []struct {
		Name string `json:"name"`
	} `json:"tables"`
}

// selectTables asks the model which tables the question needs and
// filters the reply against the catalog, so a hallucinated name never
// reaches execution. An empty selection is a valid outcome, not an
// error.
func (e *Engine) selectTables(ctx context.Context, subject, question, schemaText string) ([]string, error) {
	prompt := fmt.Sprintf(selectPromptTemplate, schemaText, question)

	start := time.Now()
	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		observability.ObserveLLMRequest("select", "error", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrSelection, err)
	}
	observability.ObserveLLMRequest("select", "ok", time.Since(start))

	var selection tableSelection
	if err := json.Unmarshal([]byte(extractJSON(reply)), &selection); err != nil {
		return nil, fmt.Errorf("%w: parse selection %q: %w", ErrSelection, reply, err)
	}

	var tables []string
	seen := make(map[string]bool)
	for _, table := range selection.Tables {
		name := strings.TrimSpace(table.Name)
		if name == "" || seen[name] {
			continue
		}
		if !e.catalog.HasTable(subject, name) {
			e.logger.Warn("dropping table absent from catalog", "subject", subject, "table", name)
			continue
		}
		seen[name] = true
		tables = append(tables, name)
	}
	return tables, nil
}

// extractJSON trims markdown fences and any prose around the first
// top-level JSON object in a model reply.
func extractJSON(reply string) string {
	reply = strings.TrimSpace(reply)
	if start := strings.Index(reply, "{"); start >= 0 {
		if end := strings.LastIndex(reply, "}"); end > start {
			return reply[start : end+1]
		}
	}
	return reply
}
