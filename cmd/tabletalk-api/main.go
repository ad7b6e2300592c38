package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabletalk/tabletalk/internal/api"
	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/questionbank"
	"github.com/tabletalk/tabletalk/internal/session"
	s3store "github.com/tabletalk/tabletalk/internal/storage/s3"
	"github.com/tabletalk/tabletalk/internal/warehouse"
	warehouseduckdb "github.com/tabletalk/tabletalk/internal/warehouse/duckdb"
	warehousepostgres "github.com/tabletalk/tabletalk/internal/warehouse/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("tabletalk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	db, warehouseClient, err := openWarehouse(cfg)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	subjects, err := catalog.ParseSubjects(cfg.Catalog.Subjects)
	if err != nil {
		logger.Error("failed to parse subject areas", slog.Any("error", err))
		os.Exit(1)
	}
	cat, err := catalog.Load(ctx, warehouseClient, subjects)
	if err != nil {
		logger.Error("failed to load schema catalog", slog.Any("error", err))
		os.Exit(1)
	}

	aiClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:        cfg.AI.BaseURL,
		APIKey:         cfg.AI.APIKey,
		ChatModel:      cfg.AI.ChatModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Temperature:    cfg.AI.Temperature,
		Timeout:        cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize ai client", slog.Any("error", err))
		os.Exit(1)
	}

	corpus := examples.DefaultCorpus()
	if cfg.Engine.ExamplesPath != "" {
		corpus, err = examples.LoadFile(cfg.Engine.ExamplesPath)
		if err != nil {
			logger.Error("failed to load example corpus", slog.Any("error", err))
			os.Exit(1)
		}
	}
	store, err := examples.NewStore(ctx, aiClient, corpus)
	if err != nil {
		logger.Error("failed to embed example corpus", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("example corpus embedded", slog.Int("examples", store.Len()))

	eng, err := engine.New(aiClient, store, cat, warehouseClient, logger, engine.Options{
		HistoryWindow: cfg.Engine.HistoryWindow,
		ExampleTopK:   cfg.Engine.ExampleTopK,
		RowLimit:      cfg.Engine.RowLimit,
		PreviewRows:   cfg.Engine.PreviewRows,
	})
	if err != nil {
		logger.Error("failed to initialize engine", slog.Any("error", err))
		os.Exit(1)
	}

	var bank *questionbank.Bank
	if cfg.QuestionBank.Enabled {
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.QuestionBank.Endpoint,
			Region:           cfg.QuestionBank.Region,
			Bucket:           cfg.QuestionBank.Bucket,
			AccessKeyID:      cfg.QuestionBank.AccessKeyID,
			SecretAccessKey:  cfg.QuestionBank.SecretAccessKey,
			UseSSL:           cfg.QuestionBank.UseSSL,
			Prefix:           cfg.QuestionBank.Prefix,
			AutoCreateBucket: cfg.QuestionBank.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize question bank store", slog.Any("error", err))
			os.Exit(1)
		}
		bank, err = questionbank.New(objectStore)
		if err != nil {
			logger.Error("failed to initialize question bank", slog.Any("error", err))
			os.Exit(1)
		}
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Readiness:         warehouseClient.HealthCheck,
		DependencyTimeout: time.Second,
		Engine:            eng,
		Sessions:          session.NewManager(),
		Catalog:           cat,
		Questions:         bank,
		PageSize:          10,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-runCtx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openWarehouse(cfg config.Config) (*sql.DB, warehouse.Client, error) {
	switch cfg.Warehouse.Backend {
	case "postgres":
		db, err := warehousepostgres.Open(warehousepostgres.Config{
			DSN:             cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return db, warehousepostgres.NewClient(db, cfg.Warehouse.QueryTimeout), nil
	default:
		db, err := warehouseduckdb.Open(warehouseduckdb.Config{
			Path:            cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return db, warehouseduckdb.NewClient(db, cfg.Warehouse.QueryTimeout), nil
	}
}
