package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audit-webhook-engine/config"
	httpHandler "audit-webhook-engine/internal/adapter/http/handler"
	pgStorage "audit-webhook-engine/internal/adapter/storage/postgres"
	redisStorage "audit-webhook-engine/internal/adapter/storage/redis"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/service"
	"audit-webhook-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Audit Webhook Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	webhookRepo := pgStorage.NewWebhookRepo(pool)
	deliveryRepo := pgStorage.NewDeliveryRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)

	// Initialize Redis stores
	subCache := redisStorage.NewSubscriptionCache(rdb)

	// Initialize services
	sigSvc := service.NewHMACSignatureService()
	enqueuer := service.NewEnqueueService(webhookRepo, deliveryRepo, subCache, logger.Component(log, "enqueuer"))
	webhookSvc := service.NewWebhookService(webhookRepo, subCache, logger.Component(log, "webhooks"))
	deliverySvc := service.NewDeliveryService(deliveryRepo, logger.Component(log, "deliveries"))
	eventSvc := service.NewEventService(eventRepo, enqueuer, logger.Component(log, "events"))

	// Delivery worker
	worker := service.NewDeliveryWorker(
		deliveryRepo,
		webhookRepo,
		sigSvc,
		cfg.Worker,
		nil,
		logger.Component(log, "worker"),
	)
	workerCtx, stopWorker := context.WithCancel(ctx)
	worker.Start(workerCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		EventSvc:       eventSvc,
		WebhookSvc:     webhookSvc,
		DeliverySvc:    deliverySvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	// Stop accepting new requests first, then drain the worker so in-flight
	// dispatches persist their outcome.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	worker.Stop()
	stopWorker()

	log.Info().Msg("Server exited")
}
