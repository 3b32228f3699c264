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

	campaignApp "github.com/paymitra/paymitra/internal/campaign_service/app"
	campaignPg "github.com/paymitra/paymitra/internal/campaign_service/repository/postgres"
	chatApp "github.com/paymitra/paymitra/internal/chat_service/app"
	"github.com/paymitra/paymitra/internal/chat_service/adapters/llm"
	chatPg "github.com/paymitra/paymitra/internal/chat_service/repository/postgres"
	"github.com/paymitra/paymitra/internal/campaign_api_service/middleware"
	httptransport "github.com/paymitra/paymitra/internal/campaign_api_service/transport/http"
	inboundApp "github.com/paymitra/paymitra/internal/inbound_processor_service/app"
	"github.com/paymitra/paymitra/internal/platform/config"
	"github.com/paymitra/paymitra/internal/platform/database"
	"github.com/paymitra/paymitra/internal/platform/logger"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

const serviceName = "campaign_api_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Campaign API service starting...", "port", cfg.CampaignAPIServicePort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
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

	// Repositories
	campaignRepo := campaignPg.NewPgCampaignRepository(dbPool)
	recipientRepo := campaignPg.NewPgRecipientRepository(dbPool)
	borrowerRepo := campaignPg.NewPgBorrowerRepository(dbPool)
	templateRepo := campaignPg.NewPgTemplateRepository(dbPool)
	sessionRepo := chatPg.NewPgSessionRepository(dbPool)
	messageRepo := chatPg.NewPgMessageRepository(dbPool)

	// Application services
	registry := campaignApp.NewRegistryService(campaignRepo, recipientRepo, borrowerRepo, templateRepo, natsClient, appLogger)
	sessionManager := chatApp.NewSessionManager(sessionRepo, recipientRepo, borrowerRepo, appLogger)
	generator := llm.NewClient(appLogger, cfg.LLMAPIBaseURL, cfg.LLMAPIKey, cfg.LLMModel, nil)
	responder := chatApp.NewResponder(generator, chatApp.NewKeywordClassifier(), 20*time.Second, appLogger)
	chatService := chatApp.NewChatService(messageRepo, responder, appLogger)

	validate := validator.New()
	campaignHandler := httptransport.NewCampaignHandler(registry, appLogger, validate)
	chatHandler := httptransport.NewChatHandler(sessionManager, chatService, appLogger, validate)
	webhookHandler := httptransport.NewWebhookHandler(natsClient, cfg.WhatsAppVerifyToken,
		inboundApp.NATSSubjectWhatsAppEvents, appLogger)
	authMW := middleware.AuthMiddleware(cfg.JWTSecret, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Campaign API service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Operator routes (protected)
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Group(func(protected chi.Router) {
			protected.Use(authMW)
			protected.Post("/campaigns/{campaignID}/setup", campaignHandler.SetupCampaign)
			protected.Post("/campaigns/{campaignID}/send", campaignHandler.SendCampaign)
			protected.Get("/campaigns/{campaignID}/analytics", campaignHandler.CampaignAnalytics)
			protected.Post("/templates", campaignHandler.RegisterTemplate)
		})

		// Borrower-facing chat routes, keyed by link/token instead of auth.
		v1.Post("/chat/{uniqueLink}/session", chatHandler.StartSession)
		v1.Post("/chat/message", chatHandler.PostMessage)
		v1.Get("/chat/{sessionToken}/history", chatHandler.History)
	})

	// Channel webhook, authenticated by the verify-token handshake.
	r.Get("/webhook", webhookHandler.Verify)
	r.Post("/webhook", webhookHandler.Receive)

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.CampaignAPIServicePort), Handler: r}
	appLogger.Info(fmt.Sprintf("Campaign API server listening on port %d", cfg.CampaignAPIServicePort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("Campaign API service shut down.")
}
