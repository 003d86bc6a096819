package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sena-nova/nova-api/api/swagger"
	"github.com/sena-nova/nova-api/internal/handler"
	"github.com/sena-nova/nova-api/internal/middleware"
	"github.com/sena-nova/nova-api/internal/repository"
	"github.com/sena-nova/nova-api/internal/service"
	"github.com/sena-nova/nova-api/pkg/cache"
	"github.com/sena-nova/nova-api/pkg/config"
	"github.com/sena-nova/nova-api/pkg/database"
	"github.com/sena-nova/nova-api/pkg/export"
	"github.com/sena-nova/nova-api/pkg/jobs"
	"github.com/sena-nova/nova-api/pkg/logger"
	corsmiddleware "github.com/sena-nova/nova-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sena-nova/nova-api/pkg/middleware/requestid"
)

// @title Nova API
// @version 1.0.0
// @description API de evaluación de proyectos formativos
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	pdfExporter := export.NewPDFExporter()

	authSvc := service.NewAuthService(userRepo, historyRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, historyRepo, validate, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, historyRepo, cacheRepo, validate, logr, cfg.Dashboard.CacheTTL)
	gradeSvc := service.NewGradeService(gradeRepo, evaluationRepo, historyRepo, validate, logr)
	projectSvc := service.NewProjectService(projectRepo, userRepo, historyRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, userRepo, projectRepo, historyRepo, validate, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, evaluationRepo, userRepo, historyRepo, pdfExporter, service.CertificateConfig{
		Institution:     cfg.Certificates.Institution,
		DefaultValidity: cfg.Certificates.DefaultValidity,
	}, validate, logr)
	cohortSvc := service.NewCohortService(cohortRepo, userRepo, historyRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, time.Duration(cfg.Notifications.RetentionDays)*24*time.Hour, validate, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	})
	historySvc := service.NewHistoryService(historyRepo, time.Duration(cfg.History.RetentionDays)*24*time.Hour, logr)
	reportSvc := service.NewReportService(userRepo, projectRepo, evaluationRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Queue().Start(ctx)
	defer notificationSvc.Queue().Stop()

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

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Evaluations:   handler.NewEvaluationHandler(evaluationSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Projects:      handler.NewProjectHandler(projectSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Certificates:  handler.NewCertificateHandler(certificateSvc),
		Cohorts:       handler.NewCohortHandler(cohortSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		History:       handler.NewHistoryHandler(historySvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Metrics:       metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
