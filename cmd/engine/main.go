package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/psd2hub/xs2a-engine/internal/adapters/bank"
	"github.com/psd2hub/xs2a-engine/internal/adapters/codec"
	"github.com/psd2hub/xs2a-engine/internal/adapters/events"
	"github.com/psd2hub/xs2a-engine/internal/adapters/postgres"
	"github.com/psd2hub/xs2a-engine/internal/adapters/redisstore"
	"github.com/psd2hub/xs2a-engine/internal/config"
	"github.com/psd2hub/xs2a-engine/internal/core/ports"
	"github.com/psd2hub/xs2a-engine/internal/core/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting xs2a engine",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	paymentRepo := postgres.NewPaymentRepository(db.Pool)
	consentRepo := postgres.NewConsentRepository(db.Pool)
	authRepo := postgres.NewAuthorisationRepository(db.Pool)

	continuations := redisstore.NewContinuationStore(redisClient, cfg.Redis.ContinuationTTL)

	var recorder ports.EventRecorder = events.NoopRecorder{}
	if cfg.Kafka.Enabled {
		kafkaRecorder := events.NewKafkaRecorder(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kafkaRecorder.Close()
		recorder = kafkaRecorder
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bankClient := bank.NewClient(cfg.BankClient.BaseURL, cfg.BankClient.ConnTimeout, bank.NewMetrics(registry))
	backend := bank.NewRetryClient(bankClient, cfg.Retry.BaseDelay, cfg.Retry.MaxRetries)

	resolver, err := service.NewApproachResolver(cfg.Sca.Approaches)
	if err != nil {
		logger.Error("invalid SCA configuration", "error", err)
		os.Exit(1)
	}
	settings := service.ScaSettings{
		ConfirmationMandated:             cfg.Sca.ConfirmationMandated,
		ConfirmationCodeCheckedByBackend: cfg.Sca.ConfirmationCodeCheckedByBackend,
		CancellationScaMandated:          cfg.Sca.CancellationScaMandated,
		RedirectURLTemplate:              cfg.Sca.RedirectURLTemplate,
	}

	idCodec := codec.New()

	authorisations := service.NewAuthorisationService(
		authRepo, paymentRepo, consentRepo,
		backend, continuations, recorder,
		resolver, settings, logger,
	)
	payments := service.NewPaymentService(
		paymentRepo, backend, authorisations,
		continuations, recorder, idCodec, settings, logger,
	)
	consents := service.NewConsentService(
		consentRepo, backend, authorisations,
		continuations, recorder, idCodec, logger,
	)
	authorisations.AttachParents(payments, consents)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
