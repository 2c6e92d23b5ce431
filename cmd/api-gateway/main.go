package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-enroll-api/api/swagger"
	"github.com/noah-isme/lms-enroll-api/internal/handler"
	"github.com/noah-isme/lms-enroll-api/internal/middleware"
	"github.com/noah-isme/lms-enroll-api/internal/models"
	"github.com/noah-isme/lms-enroll-api/internal/repository"
	"github.com/noah-isme/lms-enroll-api/internal/service"
	"github.com/noah-isme/lms-enroll-api/pkg/cache"
	"github.com/noah-isme/lms-enroll-api/pkg/config"
	"github.com/noah-isme/lms-enroll-api/pkg/database"
	"github.com/noah-isme/lms-enroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-enroll-api/pkg/middleware/requestid"
)

// @title LMS Enrollments API
// @version 1.0.0
// @description Course enrollment management: admission, listing, lifecycle and self-enrollment
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Roster.CacheTTL, logr, cfg.Roster.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lms-enroll-api",
	})

	resolver := service.NewRoleResolver(roleRepo, logr)
	authz := service.NewRBACAuthorizer(enrollmentRepo, userRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, resolver, authz, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewRosterExportService(enrollmentRepo, courseRepo, authz, nil, nil, logr, cfg.Roster.ExportEnabled)

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, exportSvc)
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

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
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

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		courses := protected.Group("/courses/:course_id")
		{
			courses.GET("/enrollments", enrollmentHandler.ListByCourse)
			courses.POST("/enrollments", enrollmentHandler.CreateInCourse)
			courses.DELETE("/enrollments/:id", enrollmentHandler.Transition)
			courses.GET("/enrollments/export", enrollmentHandler.ExportRoster)
		}

		sections := protected.Group("/sections/:section_id")
		{
			sections.GET("/enrollments", enrollmentHandler.ListBySection)
			sections.POST("/enrollments", enrollmentHandler.CreateInSection)
		}

		protected.GET("/users/:user_id/enrollments", enrollmentHandler.ListByUser)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
		{
			admin.GET("/metrics", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
