package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edvin/triggerd/internal/api"
	"github.com/edvin/triggerd/internal/catalog"
	"github.com/edvin/triggerd/internal/config"
	"github.com/edvin/triggerd/internal/db"
	"github.com/edvin/triggerd/internal/engine"
	"github.com/edvin/triggerd/internal/logging"
	"github.com/edvin/triggerd/internal/metrics"
	"github.com/edvin/triggerd/internal/store"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load trigger catalog")
	}

	eventStore := store.NewEventStore(pool)

	// A crashed replica leaves its claims locked forever; reset them before
	// the loops start.
	unlocked, err := eventStore.UnlockAllLocked(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup unlock of stale event locks failed")
	}
	if unlocked > 0 {
		logger.Warn().Int("events", unlocked).Msg("recovered events locked by a previous instance")
	}

	generator := engine.NewGenerator(eventStore, cat, logger, cfg.GeneratorInterval)
	processor := engine.NewProcessor(eventStore, cat, &http.Client{}, logger, cfg.ProcessorInterval, cfg.ProcessorConcurrency)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		generator.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		processor.Run(ctx)
	}()

	apiServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      api.NewServer(logger, pool, eventStore),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting event API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("event API server failed")
		}
	}()

	metricsServer := metrics.NewServer(cfg.MetricsListenAddr)
	go func() {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	// Drain first so cancelled in-flight attempts cannot record outcomes,
	// then stop the loops and hand every held lock back to the queue.
	processor.BeginDrain()
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	processor.ReleaseLocked(shutdownCtx)
	apiServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)

	logger.Info().Msg("shutdown complete")
}
