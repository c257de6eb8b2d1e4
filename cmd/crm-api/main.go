package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-crm-api/api/swagger"
	"github.com/noah-isme/sma-crm-api/internal/handler"
	"github.com/noah-isme/sma-crm-api/internal/middleware"
	"github.com/noah-isme/sma-crm-api/internal/models"
	"github.com/noah-isme/sma-crm-api/internal/repository"
	"github.com/noah-isme/sma-crm-api/internal/service"
	"github.com/noah-isme/sma-crm-api/pkg/cache"
	"github.com/noah-isme/sma-crm-api/pkg/config"
	"github.com/noah-isme/sma-crm-api/pkg/database"
	"github.com/noah-isme/sma-crm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-crm-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-crm-api/pkg/storage"
)

// @title SMA CRM API
// @version 1.0.0
// @description Admissions CRM: person lifecycle, candidacies, document dossiers and compliance exports.
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "crm-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Lifecycle.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	router, err := buildRouter(cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to wire api", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildRouter(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*gin.Engine, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	persons := repository.NewPersonRepository(db)
	candidacies := repository.NewCandidacyRepository(db)
	documents := repository.NewDocumentRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	var cacheRepo service.CacheRepository
	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		cacheRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Lifecycle.SummaryCacheTTL, logr, cfg.Lifecycle.CacheEnabled)

	catalog := service.NewRequirementCatalog(models.ProgramTier(cfg.Lifecycle.DefaultProgramTier), logr)
	evaluator := service.NewDossierEvaluator(catalog, time.Now, logr)

	lifecycle := service.NewLifecycleService(persons, candidacies, enrollments, cacheSvc, metrics, service.LifecycleServiceConfig{
		MaxAttempts:     cfg.Lifecycle.MaxResyncAttempts,
		SummaryCacheTTL: cfg.Lifecycle.SummaryCacheTTL,
		ResyncWorkers:   cfg.Lifecycle.ResyncWorkers,
		ResyncRetries:   cfg.Lifecycle.ResyncRetries,
	}, logr)

	personSvc := service.NewPersonService(persons, lifecycle, cacheSvc, validate, logr)
	candidacySvc := service.NewCandidacyService(candidacies, persons, documents, catalog, evaluator, lifecycle, service.CandidacyServiceConfig{
		RequireCompliantDossier: cfg.Admissions.RequireCompliantDossier,
	}, validate, logr)
	documentSvc := service.NewDocumentService(documents, candidacies, lifecycle, validate, time.Now, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, candidacies, lifecycle, validate, logr)
	dossierSvc := service.NewDossierService(candidacies, enrollments, documents, evaluator, metrics)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	exportSvc := service.NewComplianceExportService(
		candidacies,
		enrollments,
		persons,
		documents,
		evaluator,
		exportStore,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		metrics,
		service.ComplianceExportConfig{
			Enabled:     cfg.Exports.Enabled,
			DownloadURL: cfg.APIPrefix + "/compliance/exports",
		},
		validate,
		logr,
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	health := handler.NewHealthHandler(metrics, checks)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Persons:     handler.NewPersonHandler(personSvc, candidacySvc),
		Lifecycle:   handler.NewLifecycleHandler(lifecycle),
		Candidacies: handler.NewCandidacyHandler(candidacySvc),
		Documents:   handler.NewDocumentHandler(documentSvc),
		Dossiers:    handler.NewDossierHandler(dossierSvc, catalog),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Compliance:  handler.NewComplianceHandler(exportSvc),
	})

	return r, nil
}
