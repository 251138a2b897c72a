package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cagcore/engine/internal/api"
	"github.com/cagcore/engine/internal/cache"
	"github.com/cagcore/engine/internal/config"
	contextpkg "github.com/cagcore/engine/internal/context"
	"github.com/cagcore/engine/internal/engine"
	"github.com/cagcore/engine/internal/warmer"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/observability"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger("cag")

	var metrics observability.MetricsClient = observability.NewNoopMetricsClient()
	if cfg.Metrics.Enabled {
		metrics = observability.NewPrometheusMetricsClient(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	}

	client, cleanup, err := buildClient(cfg)
	if err != nil {
		log.Fatalf("failed to build knowledge client: %v", err)
	}
	defer cleanup()

	warmCache := cache.New(cfg.Cache.PriorityThreshold, cfg.Cache.MaxItems)
	registry := warmer.NewSessionRegistry()
	w := warmer.New(client, warmCache, registry, logger, warmer.AlwaysPredictRecognizer{})

	var ctxOpts []contextpkg.Option
	if cfg.Context.ProjectSummary != "" {
		ctxOpts = append(ctxOpts, contextpkg.WithProjectSummary(cfg.Context.ProjectSummary))
	}
	if direct, ok := client.(*knowledge.DirectStoreClient); ok {
		ctxOpts = append(ctxOpts, contextpkg.WithSessionHistory(direct.SessionHistory()))
	}
	manager := contextpkg.New(client, logger, cfg.Context.MaxContextTokens, ctxOpts...)

	eng := engine.New(client, warmCache, w, manager, logger, metrics)
	server := api.NewServer(eng)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("cag server listening", map[string]interface{}{"addr": cfg.Server.ListenAddress})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

// buildClient constructs the knowledge.Client for cfg.Mode and returns a
// cleanup function that releases its underlying connection.
func buildClient(cfg *config.CAGConfig) (knowledge.Client, func(), error) {
	switch cfg.Mode {
	case config.ModeDirect:
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			return nil, nil, err
		}
		sqlxDB := sqlx.NewDb(db, "postgres")
		client := knowledge.NewDirectStoreClient(sqlxDB, knowledge.DirectStoreConfig{
			RateLimitPerSecond:      cfg.Resilience.RateLimitPerSecond,
			RateLimitBurst:          cfg.Resilience.RateLimitBurst,
			MaxRetries:              cfg.Resilience.MaxRetries,
			BreakerFailureThreshold: cfg.Resilience.BreakerFailureThreshold,
		})
		return client, func() { _ = db.Close() }, nil

	case config.ModeTool:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Tool.Timeout)
		defer cancel()
		invoker, err := knowledge.DialMCPInvoker(ctx, cfg.Tool.Endpoint, cfg.Tool.Timeout)
		if err != nil {
			return nil, nil, err
		}
		client := knowledge.NewToolInvocationClient(invoker)
		return client, func() { _ = invoker.Close() }, nil

	default:
		return nil, nil, &config.ConfigError{Field: "mode", Reason: "must be direct or tool"}
	}
}
