package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ba6-ai-server/internal/config"
	"ba6-ai-server/internal/handler"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wiring
	container := config.NewContainer(ctx)
	defer container.Close()
	cfg := container.Config

	// Handlers
	aiHandler := handler.NewAIHandler(container.Gateway, container.Logger)
	modelHandler := handler.NewModelHandler(container.ModelCatalog, container.Logger)
	configHandler := handler.NewConfigHandler(cfg.GetSupabaseURL(), cfg.GetSupabaseKey(), container.PlanResolver)
	webhookHandler := handler.NewWebhookHandler(container.BillingService, cfg.StripeWebhookSecret, container.Logger)
	authHandler := handler.NewAuthHandler(container.PlanResolver, container.Logger)
	adminHandler := handler.NewAdminHandler(container.ProfileRepo, cfg.AdminAPISecret, container.Logger)

	authMiddleware := handler.NewAuthMiddleware(
		container.AuthService,
		container.Logger,
	)

	// Router
	router := handler.NewRouter(handler.RouterConfig{
		AI:             aiHandler,
		Models:         modelHandler,
		Config:         configHandler,
		Webhook:        webhookHandler,
		Auth:           authHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware.Middleware,
		Logger:         container.Logger,
		Metrics:        container.Metrics,
		MetricsHandler: promhttp.HandlerFor(container.MetricsRegistry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// start server
	server := &http.Server{
		Addr:              ":" + cfg.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Generation calls can take as long as the upstream timeout
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr, "provider", cfg.InferenceProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	container.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown failed", err)
	}

	container.Logger.Info("Server exited")
}
