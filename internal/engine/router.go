package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/session"
)

// routeSentinel is the exact reply the routing prompt uses to signal
// that a fresh database query is required.
const routeSentinel = "database"

// route is the two-state intent decision for a turn: either the model
// answers from history (Answered carries the user-visible reply) or
// the turn proceeds to SQL generation.
type route struct {
	Answered bool
	Reply    string
}

func (e *Engine) route(ctx context.Context, question string, history []session.Message) (route, error) {
	prompt := fmt.Sprintf(routePromptTemplate, renderHistory(history), question)

	start := time.Now()
	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		observability.ObserveLLMRequest("route", "error", time.Since(start))
		return route{}, fmt.Errorf("%w: %w", ErrRouting, err)
	}
	observability.ObserveLLMRequest("route", "ok", time.Since(start))

	reply = strings.TrimSpace(reply)
	if strings.EqualFold(reply, routeSentinel) {
		return route{}, nil
	}
	return route{Answered: true, Reply: reply}, nil
}
