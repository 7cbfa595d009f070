package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-ops/proctor-api/api/swagger"
	"github.com/campus-ops/proctor-api/internal/handler"
	"github.com/campus-ops/proctor-api/internal/middleware"
	"github.com/campus-ops/proctor-api/internal/models"
	"github.com/campus-ops/proctor-api/internal/repository"
	"github.com/campus-ops/proctor-api/internal/service"
	"github.com/campus-ops/proctor-api/pkg/cache"
	"github.com/campus-ops/proctor-api/pkg/config"
	"github.com/campus-ops/proctor-api/pkg/database"
	"github.com/campus-ops/proctor-api/pkg/logger"
	corsmiddleware "github.com/campus-ops/proctor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-ops/proctor-api/pkg/middleware/requestid"
)

// @title Proctor API
// @version 1.0.0
// @description Exam proctoring assignment engine
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
	} else {
		redisClient = client
	}

	examRepo := repository.NewExamRepository(db)
	assistantRepo := repository.NewAssistantRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	proctoringRepo := repository.NewProctoringRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, cfg.Assignment.RosterCacheTTL, logr)
	notificationService := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)
	notificationService.Start(context.Background())
	defer notificationService.Stop()

	eligibilityService := service.NewEligibilityService(assistantRepo, offeringRepo, examRepo, leaveRepo, proctoringRepo, logr)
	assignmentService := service.NewAssignmentService(db, examRepo, assistantRepo, proctoringRepo,
		eligibilityService, notificationService, cacheService, metricsService, validate, logr)
	responseService := service.NewResponseService(db, examRepo, assistantRepo, proctoringRepo,
		notificationService, cacheService, metricsService, validate, logr)
	rosterService := service.NewRosterService(proctoringRepo, examRepo, cacheService, logr)
	authService := service.NewAuthService(cfg.JWT)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, responseService, rosterService)
	responseHandler := handler.NewResponseHandler(responseService, rosterService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

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

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleDeansOffice, models.RoleInstructor)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleDeansOffice), string(models.RoleInstructor), "SELF")

	api.POST("/assignments", staff, assignmentHandler.Assign)
	api.POST("/exams/:examId/swap", staff, assignmentHandler.Swap)
	api.DELETE("/exams/:examId/assignments", staff, assignmentHandler.Cancel)
	api.GET("/exams/:examId/roster", staff, assignmentHandler.Roster)
	api.GET("/exams/:examId/roster/export", staff, assignmentHandler.Export)

	api.POST("/assignments/:id/response", middleware.RequireRoles(models.RoleAssistant), responseHandler.Respond)
	api.GET("/assistants/:assistantId/assignments", staffOrSelf, responseHandler.MyAssignments)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
