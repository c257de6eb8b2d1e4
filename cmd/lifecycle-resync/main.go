// Command lifecycle-resync reclassifies every person and writes drifted stages back.
// Run it after bulk imports or manual database edits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/repository"
	"github.com/noah-isme/sma-crm-api/internal/service"
	"github.com/noah-isme/sma-crm-api/pkg/cache"
	"github.com/noah-isme/sma-crm-api/pkg/config"
	"github.com/noah-isme/sma-crm-api/pkg/database"
	"github.com/noah-isme/sma-crm-api/pkg/logger"
	"github.com/noah-isme/sma-crm-api/pkg/storage"
)

func main() {
	workers := flag.Int("workers", 0, "resync workers (defaults to LIFECYCLE_RESYNC_WORKERS)")
	timeout := flag.Duration("timeout", 30*time.Minute, "abort the batch after this long")
	pruneExports := flag.Bool("prune-exports", false, "delete compliance exports older than EXPORTS_RETENTION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *workers > 0 {
		cfg.Lifecycle.ResyncWorkers = *workers
	}

	logr, err := logger.New(cfg, "lifecycle-resync")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	var cacheRepo *repository.CacheRepository
	if cfg.Lifecycle.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, summary cache will not be flushed", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	// The batch writes directly; the stale summary is flushed once at the end.
	lifecycle := service.NewLifecycleService(
		repository.NewPersonRepository(db),
		repository.NewCandidacyRepository(db),
		repository.NewEnrollmentRepository(db),
		nil,
		metrics,
		service.LifecycleServiceConfig{
			MaxAttempts:   cfg.Lifecycle.MaxResyncAttempts,
			ResyncWorkers: cfg.Lifecycle.ResyncWorkers,
			ResyncRetries: cfg.Lifecycle.ResyncRetries,
		},
		logr,
	)

	report, err := lifecycle.ResyncAll(ctx)
	if err != nil {
		logr.Fatal("lifecycle resync failed", zap.Error(err))
	}

	if cacheRepo != nil {
		if err := cacheRepo.DeleteByPattern(ctx, "lifecycle:*"); err != nil {
			logr.Warn("failed to flush lifecycle cache", zap.Error(err))
		}
	}

	if *pruneExports {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to open export storage", zap.Error(err))
		}
		removed, err := store.CleanupOlderThan(cfg.Exports.Retention)
		if err != nil {
			logr.Error("export cleanup failed", zap.Error(err))
		} else {
			logr.Info("expired compliance exports removed", zap.Int("count", len(removed)))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logr.Error("failed to print report", zap.Error(err))
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}
