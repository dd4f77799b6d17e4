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

	_ "github.com/noah-isme/sma-absence-alerts/api/swagger"
	"github.com/noah-isme/sma-absence-alerts/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-absence-alerts/internal/middleware"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/repository"
	"github.com/noah-isme/sma-absence-alerts/internal/service"
	"github.com/noah-isme/sma-absence-alerts/pkg/cache"
	"github.com/noah-isme/sma-absence-alerts/pkg/config"
	"github.com/noah-isme/sma-absence-alerts/pkg/database"
	"github.com/noah-isme/sma-absence-alerts/pkg/jobs"
	"github.com/noah-isme/sma-absence-alerts/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-absence-alerts/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-absence-alerts/pkg/middleware/requestid"
	"github.com/noah-isme/sma-absence-alerts/pkg/storage"
)

// @title SMA Absence Alerts API
// @version 1.0.0
// @description Detects prolonged student absence streaks and prepares parent notifications.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient redis.UniversalClient
	if cfg.Alerts.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, alert cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close() //nolint:errcheck
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Alerts.CacheTTL, logr, redisClient != nil)

	alertSvc := service.NewAlertService(
		repository.NewAttendanceRepository(db),
		repository.NewStudentRepository(db),
		cacheSvc,
		metricsSvc,
		validator.New(),
		logr,
		service.AlertServiceConfig{
			MinAbsentDays: cfg.Alerts.MinAbsentDays,
			Lookback:      cfg.Alerts.Lookback,
			CacheTTL:      cfg.Alerts.CacheTTL,
		},
	)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	var (
		exportQueue *jobs.Queue
		exportJobs  *service.ExportJobService
	)
	if cfg.Exports.Enabled {
		exportQueue, exportJobs, err = buildExports(ctx, cfg, db, alertSvc, metricsSvc, logr)
		if err != nil {
			logr.Fatal("failed to init exports", zap.Error(err))
		}
		defer exportQueue.Stop()
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokenSvc))
	secured.Use(internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher))

	alertHandler := handler.NewAlertHandler(alertSvc, cfg.Uploads.MaxBytes)
	alerts := secured.Group("/absence-alerts")
	alerts.GET("", alertHandler.List)
	alerts.POST("/evaluate", alertHandler.Evaluate)
	alerts.POST("/upload", alertHandler.Upload)
	alerts.DELETE("/cache", internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), alertHandler.InvalidateCache)

	if exportJobs != nil {
		exportHandler := handler.NewExportHandler(exportJobs)
		alerts.POST("/exports", exportHandler.Create)
		alerts.GET("/exports/:id", exportHandler.Status)
		api.GET("/export/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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

func buildExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, alerts *service.AlertService, metrics *service.MetricsService, logr *zap.Logger) (*jobs.Queue, *service.ExportJobService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(alerts, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	repo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(repo, exporter, metrics, logr)

	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("absence-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnExhausted: func(ctx context.Context, job jobs.Job, err error) {
			exportJobs.MarkExhausted(ctx, job, err)
		},
		Logger: logr,
	})
	exportJobs = service.NewExportJobService(repo, queue, exporter, metrics, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)
	return queue, exportJobs, nil
}
