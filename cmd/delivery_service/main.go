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

	campaignApp "github.com/paymitra/paymitra/internal/campaign_service/app"
	campaignPg "github.com/paymitra/paymitra/internal/campaign_service/repository/postgres"
	"github.com/paymitra/paymitra/internal/delivery_service/app"
	"github.com/paymitra/paymitra/internal/delivery_service/provider"
	"github.com/paymitra/paymitra/internal/platform/config"
	"github.com/paymitra/paymitra/internal/platform/database"
	"github.com/paymitra/paymitra/internal/platform/logger"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

const (
	serviceName     = "delivery_service"
	queueGroupName  = "delivery_workers"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Delivery service starting...")

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

	campaignRepo := campaignPg.NewPgCampaignRepository(dbPool)
	recipientRepo := campaignPg.NewPgRecipientRepository(dbPool)
	borrowerRepo := campaignPg.NewPgBorrowerRepository(dbPool)
	templateRepo := campaignPg.NewPgTemplateRepository(dbPool)

	providers := map[string]provider.ChannelSender{
		app.ChannelWhatsApp: provider.NewWhatsAppProvider(appLogger, cfg.WhatsAppAPIBaseURL,
			cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID, cfg.DefaultCountryPrefix, nil),
		app.ChannelSMS: provider.NewSMSProvider(appLogger, cfg.SMSGatewayURL,
			cfg.SMSGatewayAPIKey, cfg.SMSSenderID, nil),
	}

	dispatcher := app.NewDispatcherService(campaignRepo, recipientRepo, borrowerRepo, templateRepo,
		providers, cfg.ChatBaseURL, 0, natsClient, appLogger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.DeliveryServiceMetricsPort),
		Handler: promhttp.Handler(),
	}

	g, gCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "port", cfg.DeliveryServiceMetricsPort)
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
		if err := dispatcher.StartConsumingJobs(gCtx, campaignApp.NATSSubjectCampaignSend, queueGroupName); err != nil {
			return err
		}
		<-gCtx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Delivery service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Delivery service shut down.")
}
