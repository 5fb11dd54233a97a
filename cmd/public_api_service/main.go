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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	chatapp "github.com/casafacile/golang_services/internal/chat_service/app"
	chatrepo "github.com/casafacile/golang_services/internal/chat_service/repository/postgres"
	geocoderclient "github.com/casafacile/golang_services/internal/geocoding_service/client"
	"github.com/casafacile/golang_services/internal/platform/cache"
	"github.com/casafacile/golang_services/internal/platform/config"
	"github.com/casafacile/golang_services/internal/platform/database"
	"github.com/casafacile/golang_services/internal/platform/logger"
	"github.com/casafacile/golang_services/internal/platform/messagebroker"
	"github.com/casafacile/golang_services/internal/public_api_service/middleware"
	"github.com/casafacile/golang_services/internal/public_api_service/realtime"
	httptransport "github.com/casafacile/golang_services/internal/public_api_service/transport/http"
	trackingapp "github.com/casafacile/golang_services/internal/tracking_service/app"
	trackingrepo "github.com/casafacile/golang_services/internal/tracking_service/repository/postgres"
)

const serviceName = "public_api_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, serviceName)
	appLogger.Info("Public API service starting...", "port", cfg.PublicAPIServicePort)

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

	// On-demand geocoding for check-ins against bookings whose address has
	// not been resolved yet. Redis is optional here: without it the client
	// hits the geocoder directly.
	credential := geocoderclient.NewCredential(geocoderclient.StaticKey(cfg.GeocoderAPIKey), cfg.GeocoderKeyRefreshAfter)
	var geocoder trackingapp.Geocoder = geocoderclient.NewClient(appLogger, cfg.GeocoderBaseURL, credential, nil)
	if redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr); err != nil {
		appLogger.Warn("Redis unavailable, geocoding without cache", "error", err)
	} else {
		defer redisClient.Close()
		geocoder = geocoderclient.NewCachedGeocoder(geocoder, redisClient, appLogger)
	}

	// Repositories
	messageRepo := chatrepo.NewPgMessageRepository(dbPool, appLogger)
	trackingRepo := trackingrepo.NewPgTrackingRepository(dbPool, appLogger)
	bookingRepo := trackingrepo.NewPgBookingLocationRepository(dbPool, appLogger)

	chatService := chatapp.NewMessageService(messageRepo, natsClient, appLogger)
	trackingService := trackingapp.NewTrackingService(
		trackingRepo, bookingRepo, geocoder, natsClient,
		trackingapp.ParseDuplicatePolicy(cfg.TrackingDuplicatePolicy), appLogger)

	validate := validator.New()
	messageHandler := httptransport.NewMessageHandler(chatService, validate, appLogger)
	trackingHandler := httptransport.NewTrackingHandler(trackingService, validate, cfg.PositionMaxAge, appLogger)

	hub := realtime.NewHub(natsClient, cfg.JWTAccessSecret, cfg.AllowedWSOrigins, appLogger)
	if err := hub.Start(ctx); err != nil {
		appLogger.Error("Failed to start realtime hub", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Public API service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	authMW := middleware.AuthMiddleware(cfg.JWTAccessSecret, appLogger)

	r.Route("/api/v1", func(v1Router chi.Router) {
		v1Router.Use(chimiddleware.Timeout(60 * time.Second))
		v1Router.Use(authMW)
		messageHandler.RegisterRoutes(v1Router)
		trackingHandler.RegisterRoutes(v1Router)
	})

	// WebSocket route: no Timeout middleware (long-lived), token in query.
	r.Get("/ws/conversations/{conversationID}", hub.ServeConversation)

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.PublicAPIServicePort), Handler: r}
	appLogger.Info(fmt.Sprintf("Public API server listening on port %d", cfg.PublicAPIServicePort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("Public API service shut down.")
}
