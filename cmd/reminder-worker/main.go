package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turnofacil/turnofacil/internal/appointments"
	appconfig "github.com/turnofacil/turnofacil/internal/config"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/messaging"
	"github.com/turnofacil/turnofacil/internal/observability/metrics"
	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/internal/reminders"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting turnofacil reminder worker",
		"threshold_minutes", cfg.ReminderThresholdMinutes,
		"interval", cfg.ReminderSweepInterval,
	)

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

	doctorRepo := doctors.NewRepository(pool)
	doctorSvc := doctors.NewService(doctorRepo, logger)
	patientRepo := patients.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	apptSvc := appointments.NewService(apptRepo, doctorSvc, logger)

	var messenger reminders.Messenger
	if cfg.WhatsAppAccessToken != "" {
		messenger = messaging.NewWhatsAppSender(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)
	} else {
		logger.Warn("no WhatsApp credentials configured, reminders will only be logged")
		messenger = messaging.NewLogMessenger(logger)
	}

	registry := prometheus.NewRegistry()
	sweepMetrics := metrics.NewBookingMetrics(registry)
	worker := reminders.NewWorker(apptSvc, doctorSvc, patientRepo, messenger, cfg.ReminderThresholdMinutes, logger).
		WithMetrics(sweepMetrics)

	go worker.Start(ctx, cfg.ReminderSweepInterval)

	// Small sidecar server so the worker can be scraped and health checked.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down reminder worker")
	cancel()
	_ = srv.Close()
}
