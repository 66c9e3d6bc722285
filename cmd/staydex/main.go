package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/config"
	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/staydex/internal/db/redis"
	logpkg "github.com/kailas-cloud/staydex/internal/logger"
	"github.com/kailas-cloud/staydex/internal/metrics"
	"github.com/kailas-cloud/staydex/internal/repository/source/postgres"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
	chiTransport "github.com/kailas-cloud/staydex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/staydex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/staydex/internal/usecase/search"
	"github.com/kailas-cloud/staydex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env: env, Level: cfg.Logging.Level, Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting staydex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("source_configured", cfg.Source.DSN != ""),
	)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Index store not ready", zap.Error(err))
	}
	logger.Info("Connected to index store")

	// Register metrics explicitly (no init())
	metrics.Register()

	index := unitindex.New(store, unitindex.NewKeys(cfg.Storage.KeyPrefix))

	var source *postgres.Repo
	if cfg.Source.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Source.DSN, cfg.Source.MaxConns)
		if err != nil {
			logger.Fatal("Failed to connect to source database", zap.Error(err))
		}
		defer pool.Close()
		source = postgres.New(pool, logger)
		logger.Info("Connected to source database")
	} else {
		logger.Warn("No source database configured, running search-only")
	}

	searchSvc := searchuc.New(index, scheduleReader(source), logger).
		WithPolicy(cfg.Relaxation.Policy()).
		WithMinResults(cfg.Search.MinResults).
		WithTimeout(time.Duration(cfg.Search.TimeoutMs) * time.Millisecond).
		WithLoadBatch(cfg.Search.LoadBatchSize).
		WithConcurrency(cfg.Search.Concurrency)

	// Pass nil interfaces (not typed nil pointers) when the source is absent.
	var sourcePinger healthuc.Pinger
	if source != nil {
		sourcePinger = source
	}
	healthSvc := healthuc.New(store, sourcePinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger).
		WithPageSizes(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize).
		WithRebuildBatchSize(cfg.Indexing.RebuildBatchSize)
	if source != nil {
		indexingSvc := indexinguc.New(index, source, logger).
			WithHorizon(cfg.Indexing.ScheduleHorizonDays).
			WithConcurrency(cfg.Indexing.Concurrency)
		server.WithIndexer(indexingSvc)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// scheduleReader returns nil (not a typed nil pointer) when no source is configured.
func scheduleReader(source *postgres.Repo) searchuc.ScheduleReader {
	if source == nil {
		return nil
	}
	return source
}

// newStore opens the index store. Redis and Valkey speak the same protocol;
// the driver only selects which server the deployment expects. The memory
// driver keeps the index in process and loses it on exit.
func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	return store, nil
}
