package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/qaloader-api/api/swagger"
	"github.com/noah-isme/qaloader-api/internal/handler"
	"github.com/noah-isme/qaloader-api/internal/middleware"
	"github.com/noah-isme/qaloader-api/internal/repository"
	"github.com/noah-isme/qaloader-api/internal/service"
	"github.com/noah-isme/qaloader-api/pkg/cache"
	"github.com/noah-isme/qaloader-api/pkg/config"
	"github.com/noah-isme/qaloader-api/pkg/database"
	"github.com/noah-isme/qaloader-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/qaloader-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/qaloader-api/pkg/middleware/requestid"
)

// @title QA Loader API
// @version 0.1.0
// @description Bulk ingestion service loading markdown question banks into Postgres
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Duplicates.UseTrigramIndex {
		supported, probeErr := database.HasTrigramSupport(db)
		if probeErr != nil {
			logr.Sugar().Warnw("pg_trgm probe failed", "error", probeErr)
			supported = false
		}
		if !supported {
			logr.Sugar().Warnw("pg_trgm extension not installed; similarity scoring runs in-process")
			cfg.Duplicates.UseTrigramIndex = false
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable; corpus caching disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Duplicates.CorpusCacheTTL, logr, true)
	}

	questionRepo := repository.NewQuestionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	stagingRepo := repository.NewStagingRepository(db)

	validate := validator.New()
	idGen := service.NewIDGenerator(questionRepo, logr)
	duplicateSvc := service.NewDuplicateService(questionRepo, cacheSvc, metricsSvc, cfg.Duplicates, logr)
	uploadSvc := service.NewUploadService(questionRepo, idGen, duplicateSvc, activityRepo, metricsSvc, validate, logr)
	stagingSvc := service.NewStagingService(stagingRepo, questionRepo, idGen, duplicateSvc, activityRepo, metricsSvc, validate, logr)

	uploadHandler := handler.NewUploadHandler(uploadSvc, cfg.Upload)
	duplicateHandler := handler.NewDuplicateHandler(duplicateSvc)
	stagingHandler := handler.NewStagingHandler(stagingSvc, cfg.Upload)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if pingErr := db.PingContext(ctx); pingErr != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	api.Use(middleware.Metrics(metricsSvc))
	api.Use(middleware.WithResponseMeta())

	api.POST("/upload/validate", uploadHandler.Validate)
	api.POST("/upload", uploadHandler.Upload)
	api.POST("/upload/duplicates", uploadHandler.CheckDuplicates)

	api.GET("/duplicates/scan", duplicateHandler.Scan)
	api.POST("/duplicates/check", duplicateHandler.Check)

	if cfg.Staging.Enabled {
		staging := api.Group("/staging")
		staging.POST("/upload", stagingHandler.Upload)
		staging.GET("/batches", stagingHandler.ListBatches)
		staging.GET("/batches/:batchId", stagingHandler.GetBatch)
		staging.POST("/batches/:batchId/duplicates", stagingHandler.DetectDuplicates)
		staging.POST("/batches/:batchId/review", stagingHandler.Review)
		staging.POST("/batches/:batchId/import", stagingHandler.Import)
		staging.DELETE("/batches/:batchId", stagingHandler.Cancel)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "staging", cfg.Staging.Enabled)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
