// Package main is the entry point for the conversation store service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/conversation-store/internal/config"
	"github.com/capitalize-ai/conversation-store/internal/handler"
	"github.com/capitalize-ai/conversation-store/internal/kvstore/natskv"
	"github.com/capitalize-ai/conversation-store/internal/middleware"
	"github.com/capitalize-ai/conversation-store/internal/repository"
	"github.com/capitalize-ai/conversation-store/pkg/logger"
	"github.com/capitalize-ai/conversation-store/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting conversation store")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conversation-store", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing")
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	kvCfg := natskv.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
		CredsDir: cfg.NATSCredsDir,
		Bucket:   cfg.KVBucket,
	}
	client, err := natskv.Connect(ctx, kvCfg, log)
	if err != nil {
		log.Error("failed to connect to NATS")
		os.Exit(1)
	}
	defer client.Close()

	// Ensure the KV bucket exists
	bucket, err := client.EnsureBucket(ctx, cfg.KVBucket)
	if err != nil {
		log.Error("failed to ensure KV bucket")
		os.Exit(1)
	}

	// Initialize repositories
	provider := natskv.NewProvider(bucket, kvCfg, log)
	bots := repository.NewBots(provider, log)
	conversations := repository.NewConversations(provider, bots, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(client)
	adminHandler := handler.NewAdminHandler(conversations, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Admin routes: the id-only secondary-index lookup, gated behind auth
	// and the admin scope.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireScope("admin"))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/conversations/{id}", adminHandler.GetConversation)
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
		log.Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error")
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown")
	}

	log.Info("server stopped")
}
