package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/api/swagger"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/grading"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/handler"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/middleware"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/repository"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/service"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/cache"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/config"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/database"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/export"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/jobs"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/logger"
	corsmiddleware "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/middleware/requestid"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/storage"
)

// @title Gradebook API
// @version 1.0.0
// @description Grade computation, class analytics and gradebook export service.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportCleanupInterval = time.Hour

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

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	checks := map[string]handler.HealthCheck{"postgres": db.PingContext}

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Analytics.CacheEnabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			redisRepo := repository.NewCacheRepository(redisClient, logr)
			cacheRepo = redisRepo
			checks["redis"] = redisRepo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cacheEnabled)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	maintenance := jobs.NewQueue("maintenance",
		service.MaintenanceHandler(cacheSvc, exportStore, cfg.Exports.SignedURLTTL, logr),
		jobs.Config{Workers: 2, MaxRetries: 3, RetryDelay: 2 * time.Second, Logger: logr},
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	maintenance.Start(ctx)
	defer maintenance.Stop()
	invalidator := service.NewRetryingInvalidator(cacheSvc, maintenance, logr)

	courseRepo := repository.NewCourseRepository(db)
	recordRepo := repository.NewStudentRecordRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	gradebookRepo := repository.NewAnalyticsRepository(db)

	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr, gradingDefaults(cfg.Grading)).WithStatusRefresh(recordRepo, invalidator)
	courseSvc := service.NewCourseService(courseRepo, settingsSvc, invalidator, validate, logr)
	gradeSvc := service.NewGradeService(recordRepo, courseRepo, settingsSvc, invalidator, metricsSvc, validate, logr)
	analyticsSvc := service.NewAnalyticsService(gradebookRepo, settingsSvc, cacheSvc, metricsSvc, logr, service.AnalyticsServiceConfig{
		CacheTTL:        cfg.Analytics.CacheTTL,
		AtRiskThreshold: cfg.Grading.AtRiskThreshold,
		ZeroScorePolicy: grading.ParseZeroScorePolicy(cfg.Grading.ZeroScorePolicy),
	})
	pdf := export.NewPDFExporter()
	reportSvc := service.NewReportService(gradebookRepo, settingsSvc, pdf, metricsSvc, logr)
	exportSvc := service.NewExportService(gradebookRepo, settingsSvc, gradeSvc, exportStore, signer, metricsSvc, logr, service.ExportServiceConfig{
		DownloadBasePath: cfg.APIPrefix + "/export",
		MaxImportBytes:   cfg.Exports.MaxImportBytes,
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc.Handler(), checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Courses:   handler.NewCourseHandler(courseSvc),
		Records:   handler.NewStudentRecordHandler(gradeSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Reports:   handler.NewReportHandler(reportSvc),
		Exports:   handler.NewExportHandler(exportSvc, cfg.Exports.MaxImportBytes),
		Settings:  handler.NewSettingsHandler(settingsSvc),
	}, tokenSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	go scheduleExportCleanup(ctx, maintenance, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
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

func gradingDefaults(cfg config.GradingConfig) models.GradingSettings {
	return models.GradingSettings{
		DefaultWeights: models.WeightMap{
			Assignments: cfg.DefaultWeights[0],
			Quizzes:     cfg.DefaultWeights[1],
			Midterm:     cfg.DefaultWeights[2],
			Finals:      cfg.DefaultWeights[3],
		},
		PassThreshold: cfg.PassThreshold,
	}
}

func scheduleExportCleanup(ctx context.Context, queue *jobs.Queue, logr *zap.Logger) {
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := queue.Enqueue(jobs.Task{Kind: service.TaskCleanupExports}); err != nil {
				logr.Warn("export cleanup not scheduled", zap.Error(err))
			}
		}
	}
}
