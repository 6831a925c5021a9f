package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/lab-assessment-api/api/swagger"
	"github.com/noah-isme/lab-assessment-api/internal/handler"
	"github.com/noah-isme/lab-assessment-api/internal/middleware"
	"github.com/noah-isme/lab-assessment-api/internal/repository"
	"github.com/noah-isme/lab-assessment-api/internal/router"
	"github.com/noah-isme/lab-assessment-api/internal/service"
	"github.com/noah-isme/lab-assessment-api/pkg/cache"
	"github.com/noah-isme/lab-assessment-api/pkg/config"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	"github.com/noah-isme/lab-assessment-api/pkg/jobs"
	"github.com/noah-isme/lab-assessment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-assessment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-assessment-api/pkg/middleware/requestid"
	"github.com/noah-isme/lab-assessment-api/pkg/storage"
)

// @title Lab Assessment API
// @version 1.0.0
// @description Laboratory batch, attendance and term-work assessment service
// @BasePath /api
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.NewMigrator(db, logr).Up(ctx); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and async imports disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	uploads, err := storage.NewUploadStore(cfg.Uploads.Dir, cfg.Uploads.MaxFileSizeBytes)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()
	txManager := database.NewTxManager(db)

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	accounts := service.NewAccountManager(userRepo, teacherRepo, studentRepo, bcrypt.DefaultCost)
	authSvc := service.NewAuthService(userRepo, teacherRepo, studentRepo, auditRepo, accounts, txManager, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	allocationSvc := service.NewAllocationService(allocationRepo, dashboardSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, allocationRepo, accounts, txManager, dashboardSvc, validate, logr, cfg.Imports.DefaultPassword)
	studentSvc := service.NewStudentService(studentRepo, userRepo, assessmentRepo, attendanceRepo, accounts, txManager, dashboardSvc, validate, logr, cfg.Imports.DefaultPassword)
	subjectSvc := service.NewSubjectService(subjectRepo, dashboardSvc, validate)
	batchSvc := service.NewBatchService(batchRepo, teacherRepo, studentRepo, allocationSvc, txManager, dashboardSvc, validate, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, studentRepo, batchRepo, validate, logr, cfg.TermWork.DefaultScale)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, batchRepo, txManager, validate, logr)
	exportSvc := service.NewExportService(attendanceRepo, batchRepo, studentRepo, assessmentRepo, logr, cfg.TermWork.DefaultScale)
	importSvc := service.NewImportService(service.ImportServiceParams{
		Users:           userRepo,
		Teachers:        teacherRepo,
		Students:        studentRepo,
		Accounts:        accounts,
		Tx:              txManager,
		Uploads:         uploads,
		Stats:           dashboardSvc,
		Metrics:         metricsSvc,
		Validator:       validate,
		Logger:          logr,
		DefaultPassword: cfg.Imports.DefaultPassword,
		ResultTTL:       cfg.Imports.ResultTTL,
	})

	importQueue := jobs.NewQueue("imports", importSvc.HandleJob, jobs.QueueConfig{
		Workers:     cfg.Imports.Workers,
		MaxAttempts: 1,
		Logger:      logr,
	})
	if redisClient != nil {
		importSvc.EnableAsync(importQueue, cacheRepo)
	}
	importQueue.Start(ctx)
	defer importQueue.Stop()

	go sweepUploads(ctx, uploads, cfg.Uploads.StaleAfter, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.ResponseMeta())

	router.Register(r, router.Options{
		APIPrefix:     cfg.APIPrefix,
		EnableDocs:    cfg.Env != config.EnvProduction,
		EnableMetrics: metricsSvc != nil,
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Batches:     handler.NewBatchHandler(batchSvc),
		Subjects:    handler.NewSubjectHandler(subjectSvc),
		Allocations: handler.NewAllocationHandler(allocationSvc),
		Assessments: handler.NewAssessmentHandler(assessmentSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Uploads:     handler.NewUploadHandler(importSvc),
		Exports:     handler.NewExportHandler(exportSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db),
	}, authSvc, auditRepo, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// sweepUploads removes staged files left behind by interrupted imports.
func sweepUploads(ctx context.Context, uploads *storage.UploadStore, staleAfter time.Duration, logr *zap.Logger) {
	if staleAfter <= 0 {
		return
	}
	ticker := time.NewTicker(staleAfter)
	defer ticker.Stop()
	for {
		removed, err := uploads.CleanupOlderThan(staleAfter)
		if err != nil {
			logr.Warn("upload sweep failed", zap.Error(err))
		} else if len(removed) > 0 {
			logr.Info("removed stale uploads", zap.Int("count", len(removed)))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
