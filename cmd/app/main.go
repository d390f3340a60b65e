package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/domain/ports/adapter"
	pg "jobboard-billing/internal/infra/db/postgres"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
	"jobboard-billing/internal/infra/notify"
	"jobboard-billing/internal/infra/payment"
	red "jobboard-billing/internal/infra/redis"
	"jobboard-billing/internal/infra/web"
	"jobboard-billing/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled, payment provider is stubbed")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	if err := pg.Migrate(cfg.Database.MigrationsDir, cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool)

	// ---- Redis (optional, rate limiting only) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set, rate limiting disabled")
	}

	// ---- Provider gateway ----
	var gateway adapter.ProviderGateway
	if cfg.Runtime.Dev && cfg.Stripe.SecretKey == "" {
		gateway = payment.NewNoopGateway()
	} else {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)
	}
	logger.Info().Str("gateway", gateway.Name()).Msg("payment gateway ready")

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Kafka.Enabled {
		kn := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kn.Close()
		notifier = kn
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	subscriptionRepo := pg.NewSubscriptionRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	shareRepo := pg.NewRevenueShareRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	jobRepo := pg.NewJobRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	shareUC := usecase.NewRevenueShareUseCase(shareRepo, logger)
	payUC := usecase.NewPaymentUseCase(paymentRepo, refundRepo, jobRepo, shareUC, gateway, notifier, tm, logger)
	subUC := usecase.NewSubscriptionUseCase(subscriptionRepo, userRepo, gateway, logger)
	refundUC := usecase.NewRefundUseCase(paymentRepo, refundRepo, gateway, tm, logger)
	webhookUC := usecase.NewWebhookUseCase(eventRepo, subscriptionRepo, invoiceRepo, paymentRepo, shareUC, payUC, gateway, notifier, tm, logger)

	// ---- HTTP server ----
	handler := web.NewServer(payUC, subUC, refundUC, webhookUC, limiter, cfg.Server.APIKey, cfg.Server.RateLimit, logger).Router()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
