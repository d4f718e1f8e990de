package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-sales-api/api/swagger"
	"github.com/noah-isme/course-sales-api/internal/handler"
	"github.com/noah-isme/course-sales-api/internal/middleware"
	"github.com/noah-isme/course-sales-api/internal/repository"
	"github.com/noah-isme/course-sales-api/internal/service"
	"github.com/noah-isme/course-sales-api/pkg/cache"
	"github.com/noah-isme/course-sales-api/pkg/config"
	"github.com/noah-isme/course-sales-api/pkg/database"
	"github.com/noah-isme/course-sales-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-sales-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-sales-api/pkg/middleware/requestid"
)

// @title Course Sales API
// @version 1.0.0
// @description Course catalog, bonus-point purchases and group placement
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

	var cacheRepo service.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentStore := repository.NewEnrollmentStore(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cacheRepo != nil)
	tokenSvc := service.NewTokenService(cfg.Auth)
	userSvc := service.NewUserService(userRepo, balanceRepo, subscriptionRepo, cfg.Enrollment, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, metricsSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, subscriptionRepo, validate)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, nil, nil, metricsSvc, logr)
	assigner := service.NewGroupAssigner(cfg.Enrollment, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentStore, assigner, cfg.Enrollment, metricsSvc, logr)

	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	userHandler := handler.NewUserHandler(userSvc)
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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerAPIRoutes(r, cfg, apiHandlers{
		courses: courseHandler,
		lessons: lessonHandler,
		groups:  groupHandler,
		users:   userHandler,
		tokens:  tokenSvc,
		userSvc: userSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

type apiHandlers struct {
	courses *handler.CourseHandler
	lessons *handler.LessonHandler
	groups  *handler.GroupHandler
	users   *handler.UserHandler
	tokens  *service.TokenService
	userSvc *service.UserService
}

// registerAPIRoutes mounts the API surface under cfg.APIPrefix. Probes,
// metrics and docs are registered at the root by main.
func registerAPIRoutes(r *gin.Engine, cfg *config.Config, h apiHandlers) {
	api := r.Group(cfg.APIPrefix)

	catalog := api.Group("", middleware.OptionalJWT(h.tokens))
	catalog.GET("/courses", h.courses.List)
	catalog.GET("/courses/:id", h.courses.Get)

	authed := api.Group("", middleware.JWT(h.tokens), middleware.EnsureUser(h.userSvc))
	authed.POST("/courses/:id/pay", h.courses.Pay)
	authed.GET("/courses/:id/lessons", h.lessons.ListByCourse)
	authed.GET("/me", h.users.Me)
	authed.GET("/me/courses", h.users.MyCourses)

	staff := authed.Group("", middleware.RequireStaff())
	staff.POST("/courses", h.courses.Create)
	staff.PUT("/courses/:id", h.courses.Update)
	staff.DELETE("/courses/:id", h.courses.Delete)
	staff.POST("/courses/:id/lessons", h.lessons.Create)
	staff.PUT("/lessons/:id", h.lessons.Update)
	staff.DELETE("/lessons/:id", h.lessons.Delete)
	staff.GET("/courses/:id/groups", h.groups.ListByCourse)
	staff.GET("/groups/:id/roster", h.groups.Roster)
	if cfg.Exports.Enabled {
		staff.GET("/courses/:id/roster/export", h.groups.ExportRoster)
	}
}
