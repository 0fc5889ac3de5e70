package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/classpoint/classpoint/internal/academics"
	"github.com/classpoint/classpoint/internal/admins"
	"github.com/classpoint/classpoint/internal/admissions"
	"github.com/classpoint/classpoint/internal/app"
	"github.com/classpoint/classpoint/internal/attendance"
	"github.com/classpoint/classpoint/internal/auth"
	"github.com/classpoint/classpoint/internal/exams"
	"github.com/classpoint/classpoint/internal/messaging"
	"github.com/classpoint/classpoint/internal/observability"
	"github.com/classpoint/classpoint/internal/platform/cache"
	"github.com/classpoint/classpoint/internal/platform/db"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/schools"
	"github.com/classpoint/classpoint/internal/shared"
	"github.com/classpoint/classpoint/internal/staff"
	"github.com/classpoint/classpoint/internal/students"
	"github.com/classpoint/classpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "classpoint_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewNotifier(queueClient, logger)

	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, notifier, cfg.ResetTokenTTL)

	grantRepo := rbac.NewRepository(pool)
	resolver := rbac.NewResolver(grantRepo)
	gate := rbac.NewGate(authRepo, resolver)
	gateMiddleware := rbac.Middleware{Gate: gate, Logger: logger}

	authHandler := auth.NewHandler(logger, authService, sessionManager, gateMiddleware)

	schoolsRepo := schools.NewRepository(pool)
	schoolsService := schools.NewService(schoolsRepo, notifier, auditLogger, logger)
	schoolsHandler := schools.NewHandler(logger, schoolsService, gateMiddleware)

	adminsRepo := admins.NewRepository(pool)
	adminsService := admins.NewService(adminsRepo, notifier, auditLogger, logger)
	adminsHandler := admins.NewHandler(logger, adminsService, gateMiddleware)

	studentsRepo := students.NewRepository(pool)
	studentsService := students.NewService(studentsRepo)
	studentsHandler := students.NewHandler(logger, studentsService, gateMiddleware)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo, notifier, logger)
	staffHandler := staff.NewHandler(logger, staffService, gateMiddleware)

	academicsRepo := academics.NewRepository(pool)
	academicsService := academics.NewService(academicsRepo)
	academicsHandler := academics.NewHandler(logger, academicsService, gateMiddleware)

	examsRepo := exams.NewRepository(pool)
	examsService := exams.NewService(examsRepo)
	examsHandler := exams.NewHandler(logger, examsService, gateMiddleware)

	attendanceRepo := attendance.NewRepository(pool)
	attendanceService := attendance.NewService(attendanceRepo)
	attendanceHandler := attendance.NewHandler(logger, attendanceService, gateMiddleware)

	messagingRepo := messaging.NewRepository(pool)
	messagingService := messaging.NewService(messagingRepo)
	messagingHandler := messaging.NewHandler(logger, messagingService, gateMiddleware)

	admissionsRepo := admissions.NewRepository(pool)
	admissionsService := admissions.NewService(admissionsRepo)
	admissionsHandler := admissions.NewHandler(logger, admissionsService, gateMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		SchoolsHandler:    schoolsHandler,
		AdminsHandler:     adminsHandler,
		StudentsHandler:   studentsHandler,
		StaffHandler:      staffHandler,
		AcademicsHandler:  academicsHandler,
		ExamsHandler:      examsHandler,
		AttendanceHandler: attendanceHandler,
		MessagingHandler:  messagingHandler,
		AdmissionsHandler: admissionsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
