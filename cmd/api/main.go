// Package main is the entry point for the API server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/attachment"
	"github.com/hellas-direct/intake-assistant/internal/config"
	"github.com/hellas-direct/intake-assistant/internal/flow"
	"github.com/hellas-direct/intake-assistant/internal/garage"
	"github.com/hellas-direct/intake-assistant/internal/handler"
	"github.com/hellas-direct/intake-assistant/internal/llm"
	"github.com/hellas-direct/intake-assistant/internal/middleware"
	natsclient "github.com/hellas-direct/intake-assistant/internal/nats"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
	"github.com/hellas-direct/intake-assistant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var (
		log *logger.Logger
		err error
	)
	if cfg.Development() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting intake assistant")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "intake-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Storage
	var gw store.Gateway
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		if cfg.DBAutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				log.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		gw = pg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		gw = store.NewMemoryStore()
	}

	// Incident events are optional
	var (
		natsClient *natsclient.Client
		events     flow.EventPublisher
		feed       handler.EventSource
	)
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,

			MaxReconnects: cfg.NATSMaxReconnects,
			ReconnectWait: cfg.NATSReconnectWait,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		events = streamManager
		feed = streamManager
	} else {
		log.Info("NATS_URL not set, incident events disabled")
	}

	garages, err := garage.Load(cfg.GaragesFile, cfg.GarageCacheSize)
	if err != nil {
		log.Fatal("failed to load garage directory", zap.Error(err))
	}

	orchestrator := flow.New(gw, garages, events, log, flow.Options{
		GeolocationURL:     cfg.GeolocationURL,
		DeclarationBaseURL: cfg.DeclarationBaseURL,
	})

	// Vision model for damage photos
	analyzer, err := llm.NewClient(llm.Options{
		Provider:        llm.Provider(cfg.LLMProvider),
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AzureEndpoint:   cfg.AzureOpenAIEndpoint,
		AzureDeployment: cfg.AzureOpenAIDeployment,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Info("no vision provider configured, using basic image analysis")
	case err != nil:
		log.Warn("failed to create vision client, using basic image analysis", zap.Error(err))
	default:
		log.Info("vision provider ready", zap.String("provider", analyzer.Name()))
	}

	var uploads handler.Uploader
	if cfg.StorageEnabled() {
		s3, err := attachment.NewS3Store(attachment.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatal("failed to create object storage client", zap.Error(err))
		}
		uploads = s3
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(gw, natsClient)
	webhookHandler := handler.NewWebhookHandler(orchestrator, log)
	chatHandler := handler.NewChatHandler(orchestrator, log)
	imageHandler := handler.NewImageHandler(analyzer, cfg.VisionModel, uploads, gw, events, log)
	incidentHandler := handler.NewIncidentHandler(gw, log)
	liveHandler := handler.NewLiveHandler(feed, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(nil))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Dialogue service fulfillment
	r.Get("/webhook", webhookHandler.Banner)
	r.With(middleware.WebhookToken(cfg.WebhookToken)).Post("/webhook", webhookHandler.Handle)

	// Public web chat
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/api/chat", chatHandler.Send)
		r.Post("/api/analyze-image", imageHandler.Analyze)
	})

	// Operations dashboard
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.RequireScope(middleware.ScopeIncidentsRead))

		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", incidentHandler.List)
			r.Get("/live", liveHandler.Serve)
			r.Get("/{id}", incidentHandler.Get)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
