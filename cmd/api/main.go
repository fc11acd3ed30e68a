package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sereno-care/practice-platform/cmd/mainconfig"
	"github.com/sereno-care/practice-platform/internal/api/router"
	"github.com/sereno-care/practice-platform/internal/billing"
	appconfig "github.com/sereno-care/practice-platform/internal/config"
	"github.com/sereno-care/practice-platform/internal/events"
	"github.com/sereno-care/practice-platform/internal/handoff"
	"github.com/sereno-care/practice-platform/internal/live"
	"github.com/sereno-care/practice-platform/internal/notes"
	"github.com/sereno-care/practice-platform/internal/notify"
	"github.com/sereno-care/practice-platform/internal/observability/metrics"
	"github.com/sereno-care/practice-platform/internal/orgs"
	"github.com/sereno-care/practice-platform/internal/patients"
	"github.com/sereno-care/practice-platform/internal/reporting"
	"github.com/sereno-care/practice-platform/internal/scheduling"
	"github.com/sereno-care/practice-platform/internal/sessions"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting practice-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)
	sessionMetrics := metrics.NewSessionMetrics(registry)

	bus := events.NewBus()

	// Scheduling
	schedStore := scheduling.NewRepository(pool)
	schedService := scheduling.NewService(schedStore, bus, schedulingMetrics, logger, cfg.MaxSeriesOccurrences)
	schedHandler := scheduling.NewHandler(schedService, logger, cfg.SlotHeightPx, cfg.MinVisibleSlots)

	// Patients and notes
	patientsRepo := patients.NewPostgresRepository(pool)
	patientsHandler := patients.NewHandler(patientsRepo, logger)
	notesRepo := notes.NewRepository(pool)
	notesHandler := notes.NewHandler(notesRepo, logger)

	// Session recording pipeline (upload side)
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	audio := sessions.NewAudioStore(s3.NewFromConfig(awsCfg), cfg.RecordingsBucket, logger.Logger)
	var queue sessions.Queue
	if cfg.UseMemoryQueue {
		queue = sessions.NewMemoryQueue(64)
	} else {
		queue = sessions.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SessionQueueURL)
	}
	jobStore := sessions.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionJobsTable, logger)
	sessionService := sessions.NewService(audio, queue, jobStore, jobStore, sessionMetrics, logger)
	sessionsHandler := sessions.NewHandler(sessionService, logger)

	// Orgs and billing
	orgsRepo := orgs.NewRepository(pool)
	orgsHandler := orgs.NewHandler(orgsRepo, logger)
	var billingHandler *billing.Handler
	if cfg.StripeSecretKey != "" {
		stripe := billing.NewStripeService(cfg.StripeSecretKey, cfg.StripePriceID, logger)
		billingHandler = billing.NewHandler(stripe, orgsRepo, logger)
	}
	processed := events.NewProcessedStore(pool)
	stripeWebhook := billing.NewWebhookHandler(cfg.StripeWebhookSecret, orgsRepo, processed, logger)

	// Date handoff
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	handoffHandler := handoff.NewHandler(handoff.NewStore(redisClient, cfg.HandoffTTL), logger)

	// Live calendar feed
	liveHandler := live.NewHandler(bus, schedService, logger)

	// Reporting reads through database/sql
	reportDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open reporting db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = reportDB.Close() }()
	reportingHandler := reporting.NewHandler(reporting.NewRepository(reportDB), registry, logger)

	// Reminder sweep
	emailSender := buildEmailSender(cfg, awsCfg, logger)
	if cfg.ReminderPollEnabled && emailSender != nil {
		reminders := notify.NewService(emailSender, schedService, patientsRepo, logger)
		go runReminderSweep(ctx, reminders, orgsRepo, cfg.ReminderLeadTime, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		SchedulingHandler:  schedHandler,
		PatientsHandler:    patientsHandler,
		NotesHandler:       notesHandler,
		SessionsHandler:    sessionsHandler,
		BillingHandler:     billingHandler,
		StripeWebhook:      stripeWebhook,
		HandoffHandler:     handoffHandler,
		LiveHandler:        liveHandler,
		OrgsHandler:        orgsHandler,
		ReportingHandler:   reportingHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookRateLimit:   10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	emailCfg := notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}
	if cfg.EmailProvider == "ses" {
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	if s := notify.NewSendGridSender(emailCfg, logger); s != nil {
		return s
	}
	return nil
}

func runReminderSweep(ctx context.Context, reminders *notify.Service, orgsRepo *orgs.Repository, leadTime time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			all, err := orgsRepo.List(ctx)
			if err != nil {
				logger.Error("reminder sweep: org list failed", "error", err)
				continue
			}
			for _, org := range all {
				if _, err := reminders.SendUpcoming(ctx, org.ID, leadTime); err != nil {
					logger.Warn("reminder sweep: partial failure", "org_id", org.ID, "error", err)
				}
			}
		}
	}
}
