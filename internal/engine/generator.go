package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/session"
)

func (e *Engine) generateSQL(ctx context.Context, question, schemaText string, selected []examples.Example, history []session.Message) (string, error) {
	prompt := buildGenerationPrompt(question, schemaText, selected, history)

	start := time.Now()
	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		observability.ObserveLLMRequest("generate", "error", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	observability.ObserveLLMRequest("generate", "ok", time.Since(start))

	sql := CleanSQL(reply)
	if sql == "" {
		return "", fmt.Errorf("%w: model returned no statement", ErrGeneration)
	}
	return sql, nil
}

// CleanSQL strips the decoration models wrap statements in: markdown
// code fences and the "SQL Query:" label. The label strip is required,
// not cosmetic; a labelled statement fails at execution.
func CleanSQL(raw string) string {
	sql := strings.TrimSpace(raw)
	if strings.HasPrefix(sql, "```") {
		sql = strings.TrimPrefix(sql, "```sql")
		sql = strings.TrimPrefix(sql, "```")
		sql = strings.TrimSuffix(strings.TrimSpace(sql), "```")
	}
	sql = strings.ReplaceAll(sql, "SQL Query:", "")
	return strings.TrimSpace(sql)
}
