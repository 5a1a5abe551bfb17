package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/domrep/internal/rep/common/clock"
	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/common/sched"
	"github.com/haukened/domrep/internal/rep/config"
	"github.com/haukened/domrep/internal/rep/gateways/httpapi"
	"github.com/haukened/domrep/internal/rep/gateways/source"
	"github.com/haukened/domrep/internal/rep/repos/codec"
	"github.com/haukened/domrep/internal/rep/repos/repcache"
	"github.com/haukened/domrep/internal/rep/repos/seed"
	"github.com/haukened/domrep/internal/rep/repos/storage"
	"github.com/haukened/domrep/internal/rep/repos/storage/bolt"
	"github.com/haukened/domrep/internal/rep/repos/store"
	"github.com/haukened/domrep/internal/rep/services/reputation"
	"github.com/haukened/domrep/internal/rep/services/updater"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "domrepd"

	defaultShutdownTimeout = 10 * time.Second
	// updateCheckPeriod is how often the scheduler pokes the update manager;
	// the manager itself enforces the configured eligibility interval.
	updateCheckPeriod = 1 * time.Hour
)

// Application holds all the components of the reputation daemon.
type Application struct {
	config  *config.AppConfig
	storage storage.Store
	service *reputation.Service
	api     *httpapi.Server
	sched   sched.Scheduler
	updater *updater.Updater
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"log_level":   cfg.LogLevel,
		"http_addr":   cfg.HTTPAddr,
		"db_path":     cfg.DBPath,
		"cache_size":  cfg.CacheSize,
		"compression": cfg.Compression,
		"tier":        cfg.Tier,
	}, "Starting domain reputation engine")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Engine failed")
	}

	log.Info(nil, "Domain reputation engine stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	storageCodec := codec.Select(cfg.Compression, logger)

	kv, err := bolt.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	recordStore := store.New(storageCodec, logger)

	resultCache, err := repcache.New(cfg.CacheSize, cfg.CacheTTL(), clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	log.Info(map[string]any{
		"size": cfg.CacheSize,
		"ttl":  cfg.CacheTTL().String(),
	}, "Result cache configured")

	// Remote updates are optional; without a URL the engine runs entirely
	// from the seeded / persisted dataset.
	var updateSource updater.UpdateSource
	if cfg.UpdateURL != "" {
		client, err := source.New(source.Options{
			ManifestURL: cfg.UpdateURL,
			Timeout:     cfg.FetchTimeout(),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create update source: %w", err)
		}
		updateSource = client
		log.Info(map[string]any{
			"url":      cfg.UpdateURL,
			"interval": cfg.UpdateInterval().String(),
		}, "Remote update source configured")
	}

	updateManager := updater.New(updater.Options{
		Store:      recordStore,
		Cache:      resultCache,
		Storage:    kv,
		Codec:      storageCodec,
		Source:     updateSource,
		Clock:      clk,
		Logger:     logger,
		Interval:   cfg.UpdateInterval(),
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay(),
		Multiplier: cfg.RetryMultiplier,
		Tier:       cfg.Tier,
	})

	service := reputation.New(reputation.Options{
		Store:   recordStore,
		Cache:   resultCache,
		Updater: updateManager,
		Clock:   clk,
		Logger:  logger,
	})

	api := httpapi.New(httpapi.Options{
		Addr:    cfg.HTTPAddr,
		Service: service,
		Logger:  logger,
	})

	return &Application{
		config:  cfg,
		storage: kv,
		service: service,
		api:     api,
		sched:   sched.New(logger),
		updater: updateManager,
	}, nil
}

// Run seeds the engine, starts the HTTP API and the update scheduler, and
// blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	seeds, err := seed.Load(app.config.SeedPath)
	if err != nil {
		return fmt.Errorf("failed to load seed dataset: %w", err)
	}
	if err := app.service.Initialize(ctx, seeds, seed.Version(app.config.SeedPath)); err != nil {
		return fmt.Errorf("failed to initialize reputation database: %w", err)
	}

	app.sched.RegisterPeriodic(ctx, updateCheckPeriod, func(ctx context.Context) {
		if err := app.updater.RunCycle(ctx); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Scheduled update cycle failed")
		}
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.api.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.api.Shutdown(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during HTTP shutdown")
	}
	if err := app.storage.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing storage")
	}

	log.Info(nil, "Graceful shutdown completed")
	return nil
}
