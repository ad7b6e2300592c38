// Package api exposes the conversational analytics service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/questionbank"
	"github.com/tabletalk/tabletalk/internal/session"
)

type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Engine            *engine.Engine
	Sessions          *session.Manager
	Catalog           *catalog.Catalog
	Questions         *questionbank.Bank
	PageSize          int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteSession(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/reset", func(w http.ResponseWriter, r *http.Request) {
		handleResetSession(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/messages", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/tables/{table}/data", func(w http.ResponseWriter, r *http.Request) {
		handleTableData(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/tables/{table}/columns", func(w http.ResponseWriter, r *http.Request) {
		handleTableColumns(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/tables/{table}/export", func(w http.ResponseWriter, r *http.Request) {
		handleTableExport(deps, w, r)
	})

	mux.HandleFunc("GET /v1/subjects", func(w http.ResponseWriter, r *http.Request) {
		handleListSubjects(deps, w, r)
	})
	mux.HandleFunc("GET /v1/subjects/{subject}/tables", func(w http.ResponseWriter, r *http.Request) {
		handleListSubjectTables(deps, w, r)
	})
	mux.HandleFunc("GET /v1/subjects/{subject}/questions", func(w http.ResponseWriter, r *http.Request) {
		handleListQuestions(deps, w, r)
	})
	mux.HandleFunc("POST /v1/subjects/{subject}/questions", func(w http.ResponseWriter, r *http.Request) {
		handleAddQuestion(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
