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

	geocodingapp "github.com/casafacile/golang_services/internal/geocoding_service/app"
	geocoderclient "github.com/casafacile/golang_services/internal/geocoding_service/client"
	"github.com/casafacile/golang_services/internal/platform/cache"
	"github.com/casafacile/golang_services/internal/platform/config"
	"github.com/casafacile/golang_services/internal/platform/database"
	"github.com/casafacile/golang_services/internal/platform/logger"
	trackingrepo "github.com/casafacile/golang_services/internal/tracking_service/repository/postgres"
)

const serviceName = "geocoding_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, serviceName)
	appLogger.Info("Geocoding service starting...", "poll_interval", cfg.GeocodingPollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	credential := geocoderclient.NewCredential(geocoderclient.StaticKey(cfg.GeocoderAPIKey), cfg.GeocoderKeyRefreshAfter)
	var geocoder geocoderclient.Geocoder = geocoderclient.NewClient(appLogger, cfg.GeocoderBaseURL, credential, nil)

	if redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr); err != nil {
		appLogger.Warn("Redis unavailable, geocoding without cache", "error", err)
	} else {
		defer redisClient.Close()
		geocoder = geocoderclient.NewCachedGeocoder(geocoder, redisClient, appLogger)
	}

	bookingRepo := trackingrepo.NewPgBookingLocationRepository(dbPool, appLogger)
	poller := geocodingapp.NewBackfillPoller(bookingRepo, geocoder, appLogger, geocodingapp.PollerConfig{
		PollInterval: cfg.GeocodingPollInterval,
		BatchSize:    cfg.GeocodingBatchSize,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Geocoding service is healthy"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.GeocodingServicePort), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server failed to serve", "error", err)
		}
	}()

	poller.Run(ctx)

	appLogger.Info("Shutdown signal received, shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Metrics server shutdown failed", "error", err)
	}
	appLogger.Info("Geocoding service shut down.")
}
