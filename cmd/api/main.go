package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/nmunozf/electivos-api/api/swagger"
	"github.com/nmunozf/electivos-api/internal/handler"
	"github.com/nmunozf/electivos-api/internal/middleware"
	"github.com/nmunozf/electivos-api/internal/models"
	"github.com/nmunozf/electivos-api/internal/repository"
	"github.com/nmunozf/electivos-api/internal/service"
	"github.com/nmunozf/electivos-api/pkg/cache"
	"github.com/nmunozf/electivos-api/pkg/config"
	"github.com/nmunozf/electivos-api/pkg/database"
	"github.com/nmunozf/electivos-api/pkg/logger"
	corsmiddleware "github.com/nmunozf/electivos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nmunozf/electivos-api/pkg/middleware/requestid"
)

// @title Electivos API
// @version 0.1.0
// @description Elective enrollment adjudication and seat-capacity service
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	requestRepo := repository.NewRequestRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	electiveRepo := repository.NewElectiveRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	periodSvc := service.NewPeriodService(periodRepo, cfg.Enrollment, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(requestRepo, quotaRepo, electiveRepo, studentRepo, periodSvc, metricsSvc, nil, logr)
	electiveSvc := service.NewElectiveService(electiveRepo, quotaRepo, requestRepo, periodSvc, cacheRepo, metricsSvc, nil, logr, cfg.Catalog.CacheTTL)

	requestHandler := handler.NewRequestHandler(enrollmentSvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	electiveHandler := handler.NewElectiveHandler(electiveSvc)
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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	electives := api.Group("/electives")
	{
		electives.GET("", electiveHandler.List)
		electives.GET("/:id", electiveHandler.Get)
		electives.POST("", middleware.RequireRoles(models.RoleProfessor, models.RoleHead), electiveHandler.Propose)
		electives.POST("/:id/review", middleware.RequireRoles(models.RoleHead), electiveHandler.Review)
		electives.GET("/:id/roster", middleware.RequireRoles(models.RoleProfessor, models.RoleHead), electiveHandler.Roster)
	}

	requests := api.Group("/requests")
	{
		requests.GET("", middleware.RequireRoles(models.RoleProfessor, models.RoleHead), requestHandler.List)
		requests.POST("", middleware.RequireRoles(models.RoleStudent, models.RoleHead), requestHandler.Submit)
		requests.POST("/:id/approve", middleware.RequireRoles(models.RoleHead), requestHandler.Approve)
		requests.POST("/:id/reject", middleware.RequireRoles(models.RoleHead), requestHandler.Reject)
		requests.POST("/:id/revert", middleware.RequireRoles(models.RoleHead), requestHandler.Revert)
	}

	periods := api.Group("/periods")
	{
		periods.PUT("", middleware.RequireRoles(models.RoleHead), periodHandler.Set)
		periods.GET("/:year/:term/status", periodHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
