package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/trakfit-api/api/swagger"
	"github.com/noah-isme/trakfit-api/internal/handler"
	"github.com/noah-isme/trakfit-api/internal/middleware"
	"github.com/noah-isme/trakfit-api/internal/repository"
	"github.com/noah-isme/trakfit-api/internal/service"
	"github.com/noah-isme/trakfit-api/pkg/cache"
	"github.com/noah-isme/trakfit-api/pkg/config"
	"github.com/noah-isme/trakfit-api/pkg/database"
	"github.com/noah-isme/trakfit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/trakfit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/trakfit-api/pkg/middleware/requestid"
)

// @title TrakFit API
// @version 1.0.0
// @description School fitness tracking service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Dashboard.CacheEnabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
			cacheEnabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheEnabled)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	testRepo := repository.NewFitnessTestRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, studentRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	testSvc := service.NewFitnessTestService(testRepo, studentRepo, activityRepo, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(testRepo, studentRepo, activityRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	testHandler := handler.NewFitnessTestHandler(testSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

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
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/auth/register/pre-test", middleware.RequireStudent(), testHandler.RegistrationPreTest)

	me := authed.Group("/students/me", middleware.RequireStudent())
	me.GET("/dashboard", dashboardHandler.Student)
	me.GET("/history", dashboardHandler.History)
	me.GET("/profile", studentHandler.Profile)
	me.PUT("/profile", studentHandler.UpdateProfile)
	me.POST("/tests/pre", testHandler.SubmitPre)
	me.POST("/tests/post", testHandler.SubmitPost)
	me.PUT("/tests/:id", testHandler.Update)

	staff := authed.Group("", middleware.RequireStaff())
	staff.POST("/tests/remark", testHandler.Remark)
	staff.GET("/teacher/dashboard", dashboardHandler.Teacher)
	staff.GET("/teacher/students", studentHandler.List)
	staff.GET("/teacher/students/:studentNo", dashboardHandler.TeacherStudent)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
