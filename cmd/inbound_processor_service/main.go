package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	campaignPg "github.com/paymitra/paymitra/internal/campaign_service/repository/postgres"
	chatApp "github.com/paymitra/paymitra/internal/chat_service/app"
	"github.com/paymitra/paymitra/internal/chat_service/adapters/llm"
	chatPg "github.com/paymitra/paymitra/internal/chat_service/repository/postgres"
	"github.com/paymitra/paymitra/internal/delivery_service/provider"
	"github.com/paymitra/paymitra/internal/inbound_processor_service/app"
	"github.com/paymitra/paymitra/internal/platform/config"
	"github.com/paymitra/paymitra/internal/platform/database"
	"github.com/paymitra/paymitra/internal/platform/logger"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

const (
	serviceName     = "inbound_processor_service"
	queueGroupName  = "inbound_processor_group"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Inbound processor service starting...")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(rootCtx, cfg.PostgresDSN)
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

	recipientRepo := campaignPg.NewPgRecipientRepository(dbPool)
	borrowerRepo := campaignPg.NewPgBorrowerRepository(dbPool)
	sessionRepo := chatPg.NewPgSessionRepository(dbPool)
	messageRepo := chatPg.NewPgMessageRepository(dbPool)

	sessionManager := chatApp.NewSessionManager(sessionRepo, recipientRepo, borrowerRepo, appLogger)
	generator := llm.NewClient(appLogger, cfg.LLMAPIBaseURL, cfg.LLMAPIKey, cfg.LLMModel, nil)
	responder := chatApp.NewResponder(generator, chatApp.NewKeywordClassifier(), 20*time.Second, appLogger)
	chatService := chatApp.NewChatService(messageRepo, responder, appLogger)

	whatsappSender := provider.NewWhatsAppProvider(appLogger, cfg.WhatsAppAPIBaseURL,
		cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID, cfg.DefaultCountryPrefix, nil)

	router := app.NewEventRouter(sessionManager, chatService, messageRepo, recipientRepo, whatsappSender, appLogger)
	consumer := app.NewEventConsumer(natsClient, router, 0, appLogger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.InboundProcessorServiceMetricsPort),
		Handler: promhttp.Handler(),
	}

	g, gCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "port", cfg.InboundProcessorServiceMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := consumer.StartConsuming(gCtx, app.NATSSubjectWhatsAppEvents, queueGroupName); err != nil {
			return err
		}
		<-gCtx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Inbound processor exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Inbound processor service shut down.")
}
