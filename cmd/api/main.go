package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/turnofacil/turnofacil/cmd/mainconfig"
	"github.com/turnofacil/turnofacil/internal/api/router"
	"github.com/turnofacil/turnofacil/internal/appointments"
	appconfig "github.com/turnofacil/turnofacil/internal/config"
	"github.com/turnofacil/turnofacil/internal/conversation"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/events"
	"github.com/turnofacil/turnofacil/internal/http/handlers"
	"github.com/turnofacil/turnofacil/internal/messaging"
	"github.com/turnofacil/turnofacil/internal/notify"
	"github.com/turnofacil/turnofacil/internal/observability/metrics"
	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/internal/whitelist"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting turnofacil API server", "env", cfg.Env, "port", cfg.Port)
	if cfg.PublicBaseURL != "" {
		logger.Info("webhook endpoint", "url", cfg.PublicBaseURL+"/webhooks/whatsapp/{doctorPhone}")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	doctorRepo := doctors.NewRepository(pool)
	doctorSvc := doctors.NewService(doctorRepo, logger)
	patientRepo := patients.NewRepository(pool)
	whitelistRepo := whitelist.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	apptSvc := appointments.NewService(apptRepo, doctorSvc, logger,
		appointments.WithLookahead(cfg.SlotLookaheadDays, cfg.SlotListCap))

	sessions, redisClient := newSessionStore(cfg, logger)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	queue := newQueue(ctx, cfg, logger)
	publisher := conversation.NewPublisher(queue)
	processedStore := events.NewProcessedStore(pool)

	var messenger conversation.Messenger
	if cfg.WhatsAppAccessToken != "" {
		messenger = messaging.NewWhatsAppSender(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)
	} else {
		logger.Warn("no WhatsApp credentials configured, outbound messages will only be logged")
		messenger = messaging.NewLogMessenger(logger)
	}

	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	notifySvc := notify.NewService(emailSender, logger)

	flow := conversation.NewFlow(doctorSvc, patientRepo, apptSvc, whitelistRepo, sessions, messenger, logger,
		conversation.WithBookingObserver(notifySvc),
		conversation.WithFlowMetrics(bookingMetrics),
	)

	worker := conversation.NewWorker(flow, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithProcessedEventsStore(processedStore),
	)
	worker.Start(ctx)

	// Dedup rows only matter while the provider may still retry a delivery.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := processedStore.PurgeOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
				if err != nil {
					logger.Error("failed to purge processed events", "error", err)
					continue
				}
				logger.Info("purged processed events", "removed", removed)
			}
		}
	}()

	r := router.New(&router.Config{
		Logger: logger,
		WhatsAppWebhook: handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
			Publisher:   publisher,
			VerifyToken: cfg.WhatsAppWebhookSecret,
			Logger:      logger,
			Metrics:     bookingMetrics,
		}),
		AdminDoctors: handlers.NewAdminDoctorsHandler(handlers.AdminDoctorsConfig{
			Doctors: doctorSvc,
			Slots:   apptSvc,
			Logger:  logger,
		}),
		AdminPatients: handlers.NewAdminPatientsHandler(handlers.AdminPatientsConfig{
			Patients: patientRepo,
			Logger:   logger,
		}),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(handlers.AdminAppointmentsConfig{
			Appointments: apptSvc,
			Logger:       logger,
		}),
		AdminWhitelist: handlers.NewAdminWhitelistHandler(handlers.AdminWhitelistConfig{
			Whitelist: whitelistRepo,
			Logger:    logger,
		}),
		AdminJWTSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
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

	logger.Info("shutting down...")
	cancel()
	worker.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newSessionStore(cfg *appconfig.Config, logger *logging.Logger) (conversation.SessionStore, *redis.Client) {
	if cfg.RedisAddr == "" {
		logger.Warn("no Redis configured, sessions are in-memory and lost on restart")
		return conversation.NewMemorySessionStore(cfg.SessionTTL), nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	return conversation.NewRedisSessionStore(client, cfg.SessionTTL), client
}

func newQueue(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) conversation.Queue {
	if cfg.UseMemoryQueue || cfg.BookingQueueURL == "" {
		logger.Warn("using in-memory queue, messages are lost on restart")
		return conversation.NewMemoryQueue(256)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingQueueURL)
}
