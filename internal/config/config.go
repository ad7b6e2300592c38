package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Warehouse     WarehouseConfig
	Catalog       CatalogConfig
	AI            AIConfig
	Engine        EngineConfig
	QuestionBank  QuestionBankConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WarehouseConfig selects and configures the SQL backend that generated
// queries run against. Backend is "duckdb" (embedded, DSN is a database
// file path or empty for in-memory) or "postgres" (DSN is a connection
// string).
type WarehouseConfig struct {
	Backend         string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// CatalogConfig maps subject areas to the warehouse tables reachable from
// them. Subjects uses the form "Subject:schema.table,schema.table;Other:...".
type CatalogConfig struct {
	Subjects string
}

type AIConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	Timeout        time.Duration
}

type EngineConfig struct {
	HistoryWindow int
	ExampleTopK   int
	RowLimit      int
	PreviewRows   int
	ExamplesPath  string
}

type QuestionBankConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("TABLETALK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid TABLETALK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "TABLETALK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_WAREHOUSE_BACKEND", &cfg.Warehouse.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_WAREHOUSE_DSN", &cfg.Warehouse.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_WAREHOUSE_MAX_OPEN_CONNS", &cfg.Warehouse.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_WAREHOUSE_MAX_IDLE_CONNS", &cfg.Warehouse.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_WAREHOUSE_CONN_MAX_IDLE_TIME", &cfg.Warehouse.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_WAREHOUSE_CONN_MAX_LIFETIME", &cfg.Warehouse.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_WAREHOUSE_QUERY_TIMEOUT", &cfg.Warehouse.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_CATALOG_SUBJECTS", &cfg.Catalog.Subjects); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_AI_CHAT_MODEL", &cfg.AI.ChatModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_AI_EMBEDDING_MODEL", &cfg.AI.EmbeddingModel); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "TABLETALK_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "TABLETALK_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_ENGINE_HISTORY_WINDOW", &cfg.Engine.HistoryWindow); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_ENGINE_EXAMPLE_TOP_K", &cfg.Engine.ExampleTopK); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_ENGINE_ROW_LIMIT", &cfg.Engine.RowLimit); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TABLETALK_ENGINE_PREVIEW_ROWS", &cfg.Engine.PreviewRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_ENGINE_EXAMPLES_PATH", &cfg.Engine.ExamplesPath); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "TABLETALK_QUESTIONBANK_ENABLED", &cfg.QuestionBank.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_ENDPOINT", &cfg.QuestionBank.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_REGION", &cfg.QuestionBank.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_BUCKET", &cfg.QuestionBank.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_ACCESS_KEY", &cfg.QuestionBank.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_SECRET_KEY", &cfg.QuestionBank.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "TABLETALK_QUESTIONBANK_USE_SSL", &cfg.QuestionBank.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "TABLETALK_QUESTIONBANK_PREFIX", &cfg.QuestionBank.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "TABLETALK_QUESTIONBANK_AUTO_CREATE_BUCKET", &cfg.QuestionBank.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "TABLETALK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "TABLETALK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.Warehouse.Backend {
	case "duckdb", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid TABLETALK_WAREHOUSE_BACKEND: %q", cfg.Warehouse.Backend)
	}
	if cfg.Engine.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("engine history window must be positive")
	}
	if cfg.Engine.ExampleTopK <= 0 {
		return Config{}, fmt.Errorf("engine example top-k must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "tabletalk-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Warehouse: WarehouseConfig{
			Backend:         "duckdb",
			DSN:             "tabletalk.duckdb",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
		},
		Catalog: CatalogConfig{
			Subjects: "Demo:main.billing_data,main.product_hierarchy,main.sales_person_hierarchy",
		},
		AI: AIConfig{
			BaseURL:        "https://api.openai.com",
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0,
			Timeout:        30 * time.Second,
		},
		Engine: EngineConfig{
			HistoryWindow: 10,
			ExampleTopK:   1,
			RowLimit:      1000,
			PreviewRows:   5,
		},
		QuestionBank: QuestionBankConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "tabletalk",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "question-bank",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Warehouse.DSN = ""
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.QuestionBank.UseSSL = true
		cfg.QuestionBank.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
