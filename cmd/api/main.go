package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studyhub-app/studyhub-api/api/swagger"
	"github.com/studyhub-app/studyhub-api/internal/handler"
	"github.com/studyhub-app/studyhub-api/internal/middleware"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	"github.com/studyhub-app/studyhub-api/internal/service"
	redisclient "github.com/studyhub-app/studyhub-api/pkg/cache"
	"github.com/studyhub-app/studyhub-api/pkg/config"
	"github.com/studyhub-app/studyhub-api/pkg/database"
	"github.com/studyhub-app/studyhub-api/pkg/jobs"
	"github.com/studyhub-app/studyhub-api/pkg/logger"
	corsmiddleware "github.com/studyhub-app/studyhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyhub-app/studyhub-api/pkg/middleware/requestid"
	"github.com/studyhub-app/studyhub-api/pkg/storage"
)

// @title StudyHub API
// @version 1.0.0
// @description Academic project management: projects, tasks, collaboration, study sessions and analytics
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

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	collabRepo := repository.NewCollaboratorRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	fileRepo := repository.NewFileRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Analytics.CacheEnabled {
		redisConn, err := redisclient.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisConn, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studyhub-api",
	})
	permissionSvc := service.NewPermissionService(projectRepo, collabRepo, logr)
	notificationSvc := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	var analyticsSvc *service.AnalyticsService
	if cacheRepo != nil {
		analyticsSvc = service.NewAnalyticsService(sessionRepo, projectRepo, cacheRepo, cfg.Analytics.CacheTTL, logr)
	} else {
		analyticsSvc = service.NewAnalyticsService(sessionRepo, projectRepo, nil, cfg.Analytics.CacheTTL, logr)
	}

	projectSvc := service.NewProjectService(projectRepo, courseRepo, permissionSvc, store, analyticsSvc, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, permissionSvc, validate, logr)
	collabSvc := service.NewCollaborationService(collabRepo, userRepo, permissionSvc, notificationSvc, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, permissionSvc, validate, logr)
	fileSvc := service.NewFileService(fileRepo, store, signer, permissionSvc, service.FileUploadPolicy{
		MaxSizeBytes:      cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}, logr)
	activitySvc := service.NewActivityService(activityRepo, permissionSvc, logr)
	sessionSvc := service.NewSessionService(sessionRepo, permissionSvc, analyticsSvc, validate, logr)
	searchSvc := service.NewSearchService(searchRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	collabHandler := handler.NewCollaborationHandler(collabSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	fileHandler := handler.NewFileHandler(fileSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, metricsSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)

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

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		protected.GET("/projects", projectHandler.List)
		protected.POST("/projects", projectHandler.Create)
		protected.GET("/projects/:id", projectHandler.Get)
		protected.PUT("/projects/:id", projectHandler.Update)
		protected.DELETE("/projects/:id", projectHandler.Delete)

		protected.GET("/projects/:id/tasks", taskHandler.List)
		protected.POST("/projects/:id/tasks", taskHandler.Create)
		protected.PUT("/tasks/:id", taskHandler.Update)
		protected.DELETE("/tasks/:id", taskHandler.Delete)

		protected.GET("/projects/:id/collaborators", collabHandler.List)
		protected.POST("/projects/:id/collaborators", collabHandler.Invite)
		protected.PUT("/projects/:id/collaborators/:userId", collabHandler.ChangeRole)
		protected.DELETE("/projects/:id/collaborators/:userId", collabHandler.Remove)
		protected.POST("/projects/:id/transfer-ownership", collabHandler.TransferOwnership)

		protected.GET("/projects/:id/comments", commentHandler.List)
		protected.POST("/projects/:id/comments", commentHandler.Create)

		protected.GET("/projects/:id/files", fileHandler.List)
		protected.POST("/projects/:id/files", fileHandler.Upload)
		protected.DELETE("/files/:id", fileHandler.Delete)
		protected.POST("/files/:id/download", fileHandler.DownloadGrant)

		protected.GET("/projects/:id/activity", activityHandler.List)

		protected.POST("/sessions", sessionHandler.Start)
		protected.GET("/sessions/current", sessionHandler.Current)
		protected.POST("/sessions/pause", sessionHandler.Pause)
		protected.POST("/sessions/resume", sessionHandler.Resume)
		protected.POST("/sessions/stop", sessionHandler.Stop)

		protected.GET("/analytics/study", analyticsHandler.Study)
		protected.GET("/analytics/study/export", analyticsHandler.Export)
		protected.GET("/analytics/dashboard", analyticsHandler.Dashboard)

		protected.GET("/search", searchHandler.Search)

		protected.GET("/courses", courseHandler.List)
		protected.POST("/courses", courseHandler.Create)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.PUT("/courses/:id", courseHandler.Update)
		protected.DELETE("/courses/:id", courseHandler.Delete)
	}

	// Signed token downloads skip the JWT guard; the token is the grant.
	api.GET("/files/download", fileHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
