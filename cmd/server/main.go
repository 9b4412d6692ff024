package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/database"
	"github.com/stemsi/eduportal-backend/internal/handler"
	"github.com/stemsi/eduportal-backend/internal/logger"
	"github.com/stemsi/eduportal-backend/internal/middleware"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/router"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
	"github.com/stemsi/eduportal-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting EduPortal Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	classRepo := repository.NewClassRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	blogRepo := repository.NewBlogRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	targetRepo := repository.NewExamTargetRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	sessionStore := repository.NewSessionStore(rdb)
	examCache := repository.NewExamCache(rdb)
	liveStore := repository.NewAttemptLiveStore(rdb)
	rateCounter := repository.NewRateCounter(rdb)

	membership := service.Membership{Classes: classRepo, Batches: batchRepo}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, sessionStore)
	studentService := service.NewStudentService(studentRepo, membership, authService)
	staffService := service.NewStaffService(staffRepo, authService)
	classService := service.NewClassService(classRepo)
	batchService := service.NewBatchService(batchRepo, classRepo)
	blogService := service.NewBlogService(blogRepo)
	questionService := service.NewQuestionService(questionRepo)
	examService := service.NewExamService(examRepo, targetRepo, questionRepo, membership, examCache, attemptRepo, log)
	attemptService := service.NewAttemptService(attemptRepo, studentRepo, examService, liveStore, service.AttemptConfig{
		Grace:            cfg.AttemptGrace,
		ResumeInProgress: cfg.ResumeInProgress,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, studentService, staffService),
		Class:       handler.NewClassHandler(classService, batchService),
		StudentMgmt: handler.NewStudentManagementHandler(studentService, staffService, authService),
		Blog:        handler.NewBlogHandler(blogService),
		Question:    handler.NewQuestionHandler(questionService, cfg.MaxImportBytes),
		Exam:        handler.NewExamHandler(examService, attemptService),
		Attempt:     handler.NewAttemptHandler(attemptService, examService, studentService),
		WS:          handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		Monitor:     handler.NewMonitorHandler(examService, attemptService, liveStore, log),
		System:      handler.NewSystemHandler(pool, liveStore, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	autosaveWorker := worker.NewAutosaveWorker(liveStore, attemptRepo, log)
	expiryWorker := worker.NewExpiryWorker(attemptService, cfg.ExpirySweepInterval, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		autosaveWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		expiryWorker.Start(workerCtx)
	}()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published exams into Redis BEFORE accepting traffic so the
	// first wave of students does not stampede PostgreSQL.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Guards{
		Tokens:      authService,
		Sessions:    authService,
		LoginLimit:  middleware.NewRateLimiter(rateCounter, "login", cfg.AuthRateLimit, time.Minute, log),
		RequestsLog: logger.Component(log, "http"),
	}, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the autosave queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
