package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/attendance-api/api/swagger"
	"github.com/campushq/attendance-api/internal/handler"
	"github.com/campushq/attendance-api/internal/middleware"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/pkg/cache"
	"github.com/campushq/attendance-api/pkg/config"
	"github.com/campushq/attendance-api/pkg/database"
	"github.com/campushq/attendance-api/pkg/logger"
	corsmiddleware "github.com/campushq/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/attendance-api/pkg/middleware/requestid"
)

// @title Class Attendance API
// @version 1.0.0
// @description Class and attendance tracking service
// @BasePath /api
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

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && cacheRepo != nil)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	classSvc := service.NewClassService(classRepo, userRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, classRepo, cacheSvc, metricsSvc, validate, logr)
	statsSvc := service.NewStatsService(attendanceRepo, classRepo, cacheSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	classHandler := handler.NewClassHandler(classSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, statsSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	attendance := api.Group("/attendance", middleware.JWT(authSvc))
	attendance.GET("/classes", middleware.RequireRoles(models.RoleFaculty), classHandler.List)
	attendance.POST("/classes", middleware.RequireRoles(models.RoleFaculty), classHandler.Create)
	attendance.POST("/classes/:id/students", middleware.RequireRoles(models.RoleFaculty), classHandler.Enroll)
	attendance.GET("/classes/:id/students", classHandler.Roster)
	attendance.DELETE("/classes/:id/students/:sid", middleware.RequireRoles(models.RoleFaculty), classHandler.Unenroll)
	attendance.DELETE("/classes/:id", middleware.RequireRoles(models.RoleFaculty), classHandler.Delete)
	attendance.GET("/classes/:id/summary", attendanceHandler.ClassSummary)
	attendance.GET("/students", middleware.RequireRoles(models.RoleFaculty), classHandler.Students)
	attendance.POST("/mark", middleware.RequireRoles(models.RoleFaculty), attendanceHandler.Mark)
	attendance.GET("/class/:id/date/:date", attendanceHandler.ByClassAndDate)
	attendance.GET("/student/:id", attendanceHandler.ByStudent)
	attendance.GET("/student/:id/stats", attendanceHandler.StudentStats)
	attendance.GET("/student/:id/classes", classHandler.StudentClasses)
	attendance.GET("/student/:id/range", attendanceHandler.ByStudentRange)
	attendance.PUT("/attendance/:id", middleware.RequireRoles(models.RoleFaculty), attendanceHandler.Update)
	attendance.DELETE("/attendance/:id", middleware.RequireRoles(models.RoleFaculty), attendanceHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
