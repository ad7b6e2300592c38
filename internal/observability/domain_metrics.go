package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_turns_total",
			Help: "Total number of conversation turns by outcome.",
		},
		[]string{"outcome"},
	)
	turnDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletalk_turn_duration_seconds",
			Help:    "End-to-end turn latency including LLM and warehouse calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
		},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_llm_requests_total",
			Help: "Total number of LLM calls by kind (route, select, generate, insight, embed).",
		},
		[]string{"kind", "status"},
	)
	llmRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabletalk_llm_request_duration_seconds",
			Help:    "LLM call latency by kind.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_warehouse_queries_total",
			Help: "Total number of warehouse query executions by status.",
		},
		[]string{"status"},
	)
	warehouseQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletalk_warehouse_query_duration_seconds",
			Help:    "Warehouse query execution latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
	)
	exampleLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_example_lookups_total",
			Help: "Total number of few-shot example similarity lookups by status.",
		},
		[]string{"status"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabletalk_active_sessions",
			Help: "Current number of live conversation sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		turnDurationSeconds,
		llmRequestsTotal,
		llmRequestDurationSeconds,
		warehouseQueriesTotal,
		warehouseQueryDurationSeconds,
		exampleLookupsTotal,
		activeSessions,
	)
}

func ObserveTurn(outcome string, elapsed time.Duration) {
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveLLMRequest(kind, status string, elapsed time.Duration) {
	llmRequestsTotal.WithLabelValues(kind, status).Inc()
	llmRequestDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func ObserveWarehouseQuery(status string, elapsed time.Duration) {
	warehouseQueriesTotal.WithLabelValues(status).Inc()
	warehouseQueryDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveExampleLookup(status string) {
	exampleLookupsTotal.WithLabelValues(status).Inc()
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}
