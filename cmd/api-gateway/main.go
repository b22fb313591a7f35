package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduplat/timetable-api/api/swagger"
	"github.com/eduplat/timetable-api/internal/handler"
	"github.com/eduplat/timetable-api/internal/middleware"
	"github.com/eduplat/timetable-api/internal/repository"
	"github.com/eduplat/timetable-api/internal/service"
	"github.com/eduplat/timetable-api/pkg/cache"
	"github.com/eduplat/timetable-api/pkg/config"
	"github.com/eduplat/timetable-api/pkg/database"
	"github.com/eduplat/timetable-api/pkg/logger"
	corsmiddleware "github.com/eduplat/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduplat/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Lesson scheduling and conflict resolution engine
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connect failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable caching disabled", "error", err)
		redisClient = nil
	}

	lessonRepo := repository.NewLessonRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	detector := service.NewConflictDetector(lessonRepo, logr)
	lessonSvc := service.NewLessonService(lessonRepo, catalogRepo, calendarRepo, detector, cacheRepo, metricsSvc, logr)
	generatorSvc := service.NewGeneratorService(lessonRepo, calendarRepo, detector, cacheRepo, metricsSvc, logr)
	timetableSvc := service.NewTimetableService(lessonRepo, catalogRepo, cacheRepo, metricsSvc, service.TimetableConfig{
		CacheEnabled: cfg.Timetable.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Timetable.CacheTTL,
	}, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	validate := validator.New()
	lessonHandler := handler.NewLessonHandler(lessonSvc, validate)
	importHandler := handler.NewScheduleImportHandler(generatorSvc, validate)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	catalogHandler := handler.NewCatalogHandler(catalogRepo, calendarRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/lessons", lessonHandler.List)
		api.GET("/lessons/:id", lessonHandler.Get)
		api.GET("/timetable", timetableHandler.Get)
		api.GET("/timetable/export", timetableHandler.Export)

		api.GET("/subjects", catalogHandler.Subjects)
		api.GET("/classrooms", catalogHandler.Classrooms)
		api.GET("/groups", catalogHandler.Groups)
		api.GET("/teachers", catalogHandler.Teachers)
		api.GET("/academic-years", catalogHandler.AcademicYears)
		api.GET("/study-periods", catalogHandler.StudyPeriods)

		protected := api.Group("")
		protected.Use(middleware.JWT(tokenSvc))
		{
			protected.POST("/lessons", lessonHandler.Create)
			protected.PUT("/lessons/:id", lessonHandler.Update)
			protected.DELETE("/lessons/:id", lessonHandler.Delete)
			protected.POST("/schedules/import", importHandler.Import)
			protected.GET("/admin/metrics", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
