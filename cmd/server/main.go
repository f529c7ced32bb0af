package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookkeeping-notifier/internal/app"
	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/domain/rules"
	"bookkeeping-notifier/internal/domain/schedule"
	"bookkeeping-notifier/internal/infra/config"
	"bookkeeping-notifier/internal/infra/database"
	"bookkeeping-notifier/internal/infra/email"
	"bookkeeping-notifier/internal/infra/httpapi"
	"bookkeeping-notifier/internal/infra/logger"
	"bookkeeping-notifier/internal/infra/push"
	"bookkeeping-notifier/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load application configuration: %v", err)
	}
	logger.Init(cfg)
	logger.Log.Info("Configuration loaded successfully.")

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Info("Database connection established successfully.")

	if err := database.RunMigrations(db); err != nil {
		logger.Log.Fatalf("Failed to run database migrations: %v", err)
	}
	logger.Log.Info("Database schema is up to date.")

	// Repositories
	userRepo := database.NewPostgresUserRepository(db)
	transactionRepo := database.NewPostgresTransactionRepository(db)
	templateRepo := database.NewPostgresTemplateRepository(db)
	notificationRepo := database.NewPostgresNotificationRepository(db)

	// Email backend
	var (
		emailSender delivery.EmailSender
		fileSender  *email.FileSender
	)
	switch cfg.EmailBackend {
	case config.EmailBackendAMQP:
		amqpSender, err := email.NewAMQPSender(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Log.Fatalf("Failed to initialize AMQP email backend: %v", err)
		}
		defer amqpSender.Close()
		emailSender = amqpSender
		logger.Log.Infof("Email backend: AMQP queue %q", cfg.AMQPQueue)
	default:
		fileSender, err = email.NewFileSender(cfg.SentEmailsDir)
		if err != nil {
			logger.Log.Fatalf("Failed to initialize file email backend: %v", err)
		}
		emailSender = fileSender
		logger.Log.Infof("Email backend: files in %s", cfg.SentEmailsDir)
	}

	composer, err := email.NewComposer(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize email composer: %v", err)
	}
	pushSender := push.NewLogSender(cfg.APNBundleID)

	// Services
	evaluator := rules.NewEvaluator(transactionRepo, userRepo)
	dispatchService := app.NewDispatchServiceImpl(notificationRepo, userRepo, composer, emailSender, pushSender, cfg.LinkURL)
	notificationService := app.NewNotificationServiceImpl(notificationRepo, templateRepo, userRepo, evaluator, dispatchService)

	// Scheduler backend
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	triggerURL := cfg.APIBaseURL + "/api/notifications/trigger"
	var scheduleClient schedule.Client
	switch cfg.SchedulerBackend {
	case config.SchedulerBackendCloud:
		cloudClient, err := scheduler.NewCloudClient(ctx, cfg, triggerURL)
		if err != nil {
			logger.Log.Fatalf("Failed to initialize cloud scheduler backend: %v", err)
		}
		scheduleClient = cloudClient
		logger.Log.Infof("Scheduler backend: Cloud Scheduler project %s", cfg.GCPProjectID)
	default:
		localClient, err := scheduler.NewLocalClient(cfg.SchedulerTimeZone, func(ctx context.Context, p schedule.Payload) {
			if _, err := notificationService.Trigger(ctx, p.Type, p.Channel); err != nil {
				logger.Log.Errorf("Scheduled trigger for type %s failed: %v", p.Type, err)
			}
		})
		if err != nil {
			logger.Log.Fatalf("Failed to initialize local scheduler backend: %v", err)
		}
		localClient.Start()
		defer localClient.Stop()
		scheduleClient = localClient
		logger.Log.Info("Scheduler backend: local in-process cron")
	}
	scheduleService := app.NewScheduleServiceImpl(scheduleClient)

	// HTTP server
	server := httpapi.NewServer(cfg, db, notificationService, dispatchService, scheduleService, templateRepo, fileSender)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Errorf("Server exited with error: %v", err)
		os.Exit(1)
	}
	logger.Log.Info("Server stopped gracefully.")
}
