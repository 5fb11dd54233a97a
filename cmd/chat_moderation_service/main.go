package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	moderationapp "github.com/casafacile/golang_services/internal/moderation_service/app"
	moderationrepo "github.com/casafacile/golang_services/internal/moderation_service/repository/postgres"
	"github.com/casafacile/golang_services/internal/platform/config"
	"github.com/casafacile/golang_services/internal/platform/database"
	"github.com/casafacile/golang_services/internal/platform/logger"
	"github.com/casafacile/golang_services/internal/platform/messagebroker"
)

const serviceName = "chat_moderation_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, serviceName)
	appLogger.Info("Chat moderation service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS")

	flagRepo := moderationrepo.NewPgModerationFlagRepository(dbPool)
	processor := moderationapp.NewFlagProcessor(flagRepo, appLogger)
	consumer := moderationapp.NewMessageConsumer(natsClient, processor, appLogger)

	// Health and metrics endpoint for the otherwise headless worker.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Chat moderation service is healthy"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ModerationServicePort), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server failed to serve", "error", err)
		}
	}()

	appLogger.Info("Consuming chat message events", "queue_group", cfg.ModerationQueueGroup)
	if err := consumer.StartConsuming(ctx, cfg.ModerationQueueGroup); err != nil {
		appLogger.Error("Consumer stopped with error", "error", err)
	}

	appLogger.Info("Shutdown signal received, shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Metrics server shutdown failed", "error", err)
	}
	appLogger.Info("Chat moderation service shut down.")
}
