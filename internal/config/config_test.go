package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("tabletalk-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("profile = %q, want dev", cfg.Profile)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("address = %q", cfg.HTTP.Address)
	}
	if cfg.Warehouse.Backend != "duckdb" {
		t.Fatalf("warehouse backend = %q", cfg.Warehouse.Backend)
	}
	if cfg.Engine.HistoryWindow != 10 {
		t.Fatalf("history window = %d, want 10", cfg.Engine.HistoryWindow)
	}
	if cfg.Engine.ExampleTopK != 1 {
		t.Fatalf("example top-k = %d, want 1", cfg.Engine.ExampleTopK)
	}
	if cfg.AI.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", cfg.AI.Temperature)
	}
	if !strings.Contains(cfg.Catalog.Subjects, "Demo:") {
		t.Fatalf("subjects = %q", cfg.Catalog.Subjects)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load("tabletalk-api", mapLookup(map[string]string{
		"TABLETALK_PROFILE":               "prod",
		"TABLETALK_HTTP_ADDR":             ":9090",
		"TABLETALK_WAREHOUSE_BACKEND":     "postgres",
		"TABLETALK_WAREHOUSE_DSN":         "postgres://warehouse:5432/sales",
		"TABLETALK_AI_CHAT_MODEL":         "gpt-4o",
		"TABLETALK_AI_TIMEOUT":            "45s",
		"TABLETALK_ENGINE_HISTORY_WINDOW": "6",
		"TABLETALK_LOG_LEVEL":             "warn",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("profile = %q", cfg.Profile)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("address = %q", cfg.HTTP.Address)
	}
	if cfg.Warehouse.Backend != "postgres" || cfg.Warehouse.DSN != "postgres://warehouse:5432/sales" {
		t.Fatalf("warehouse = %+v", cfg.Warehouse)
	}
	if cfg.AI.ChatModel != "gpt-4o" {
		t.Fatalf("chat model = %q", cfg.AI.ChatModel)
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Fatalf("ai timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Engine.HistoryWindow != 6 {
		t.Fatalf("history window = %d", cfg.Engine.HistoryWindow)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("log level = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad profile":   {"TABLETALK_PROFILE": "staging"},
		"bad backend":   {"TABLETALK_WAREHOUSE_BACKEND": "bigquery"},
		"bad duration":  {"TABLETALK_AI_TIMEOUT": "soon"},
		"bad int":       {"TABLETALK_ENGINE_ROW_LIMIT": "many"},
		"bad log level": {"TABLETALK_LOG_LEVEL": "verbose"},
		"zero window":   {"TABLETALK_ENGINE_HISTORY_WINDOW": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load("tabletalk-api", mapLookup(env)); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}
