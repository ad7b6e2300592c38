package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/present"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

// narrateResult turns the executed statement and a preview of its rows
// into the narrative answer shown in chat.
func (e *Engine) narrateResult(ctx context.Context, sql string, result warehouse.ResultSet) (string, error) {
	prompt := fmt.Sprintf(insightPromptTemplate, sql, present.RenderPreview(result, e.previewRows))

	start := time.Now()
	insight, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		observability.ObserveLLMRequest("insight", "error", time.Since(start))
		return "", fmt.Errorf("%w: narrate result: %w", ErrGeneration, err)
	}
	observability.ObserveLLMRequest("insight", "ok", time.Since(start))
	return insight, nil
}
