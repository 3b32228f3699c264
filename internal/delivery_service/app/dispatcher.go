package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	campaignRepo "github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
	"github.com/paymitra/paymitra/internal/delivery_service/provider"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

// ChannelWhatsApp and ChannelSMS key the provider map.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
)

// SendCampaignJob mirrors the payload published by the campaign API service.
type SendCampaignJob struct {
	CampaignID string `json:"campaign_id"`
}

// SendSummary reports one campaign send run.
type SendSummary struct {
	CampaignID string
	Attempted  int
	Sent       int
	Failed     int
}

// DispatcherService consumes campaign send jobs and pushes each pending
// recipient's message out through a channel provider.
type DispatcherService struct {
	campaigns   campaignRepo.CampaignRepository
	recipients  campaignRepo.RecipientRepository
	borrowers   campaignRepo.BorrowerRepository
	templates   campaignRepo.TemplateRepository
	providers   map[string]provider.ChannelSender
	chatBaseURL string
	sendTimeout time.Duration
	natsClient  *messagebroker.NatsClient
	logger      *slog.Logger
	natsSub     *nats.Subscription
}

func NewDispatcherService(
	campaigns campaignRepo.CampaignRepository,
	recipients campaignRepo.RecipientRepository,
	borrowers campaignRepo.BorrowerRepository,
	templates campaignRepo.TemplateRepository,
	providers map[string]provider.ChannelSender,
	chatBaseURL string,
	sendTimeout time.Duration,
	natsClient *messagebroker.NatsClient,
	logger *slog.Logger,
) *DispatcherService {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &DispatcherService{
		campaigns:   campaigns,
		recipients:  recipients,
		borrowers:   borrowers,
		templates:   templates,
		providers:   providers,
		chatBaseURL: chatBaseURL,
		sendTimeout: sendTimeout,
		natsClient:  natsClient,
		logger:      logger.With("service", "delivery_dispatcher"),
	}
}

// StartConsumingJobs subscribes to the NATS subject for campaign send jobs.
func (s *DispatcherService) StartConsumingJobs(ctx context.Context, subject, queueGroup string) error {
	if s.natsClient == nil {
		return errors.New("NATS client not initialized in DispatcherService")
	}
	s.logger.Info("Starting NATS job consumer", "subject", subject, "queue_group", queueGroup)

	msgHandler := func(msg *nats.Msg) {
		natsSendJobsReceivedCounter.WithLabelValues(msg.Subject).Inc()

		var job SendCampaignJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			s.logger.Error("Failed to unmarshal send job payload", "error", err, "data", string(msg.Data))
			return
		}

		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := s.ProcessCampaign(jobCtx, job.CampaignID); err != nil {
			s.logger.Error("Failed to process campaign send job", "error", err, "campaign_id", job.CampaignID)
		}
	}

	var err error
	s.natsSub, err = s.natsClient.Subscribe(ctx, subject, queueGroup, msgHandler)
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject %q: %w", subject, err)
	}
	return nil
}

// ProcessCampaign sends the campaign message to every recipient still pending.
// Each recipient is isolated: one failed send marks that row failed and moves
// on, never aborting the batch.
func (s *DispatcherService) ProcessCampaign(ctx context.Context, campaignID string) (*SendSummary, error) {
	campaignTimer := prometheus.NewTimer(campaignProcessingDurationHist.WithLabelValues())
	defer campaignTimer.ObserveDuration()

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.TemplateID == nil {
		return nil, fmt.Errorf("%w: campaign %s has no template", core_domain.ErrValidation, campaignID)
	}
	tmpl, err := s.templates.GetByID(ctx, *campaign.TemplateID)
	if err != nil {
		return nil, err
	}

	pending, err := s.recipients.ListByStatus(ctx, campaignID, core_domain.RecipientStatusPending)
	if err != nil {
		return nil, err
	}

	summary := &SendSummary{CampaignID: campaignID, Attempted: len(pending)}
	for _, rec := range pending {
		channel, err := s.sendToRecipient(ctx, tmpl, rec)
		if err != nil {
			summary.Failed++
			recipientsProcessedCounter.WithLabelValues(channel, "failed").Inc()
			s.logger.WarnContext(ctx, "Recipient send failed",
				"campaign_id", campaignID, "recipient_id", rec.ID, "channel", channel, "error", err)
			if markErr := s.recipients.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				s.logger.ErrorContext(ctx, "Failed to record send failure",
					"recipient_id", rec.ID, "error", markErr)
			}
			continue
		}
		summary.Sent++
		recipientsProcessedCounter.WithLabelValues(channel, "sent").Inc()
	}

	s.logger.InfoContext(ctx, "Campaign send run complete",
		"campaign_id", campaignID, "attempted", summary.Attempted,
		"sent", summary.Sent, "failed", summary.Failed)
	return summary, nil
}

// sendToRecipient renders, sends and persists the sent transition for a single
// recipient. It returns the channel used, for metrics, alongside any error.
func (s *DispatcherService) sendToRecipient(ctx context.Context, tmpl *core_domain.MessageTemplate, rec *core_domain.Recipient) (string, error) {
	borrower, err := s.borrowers.GetByID(ctx, rec.BorrowerID)
	if err != nil {
		return "", err
	}
	account, err := s.borrowers.GetDebtAccount(ctx, rec.DebtAccountID)
	if err != nil {
		return "", err
	}

	channel := ChannelSMS
	if borrower.Phone != "" {
		channel = ChannelWhatsApp
	}
	sender, ok := s.providers[channel]
	if !ok {
		return channel, fmt.Errorf("no provider configured for channel %s", channel)
	}

	content, err := tmpl.Render(map[string]string{
		"name":           borrower.Name,
		"amount":         "₹" + core_domain.FormatINR(account.OutstandingAmount),
		"due_date":       account.DueDate.Format("02/01/2006"),
		"account_number": account.AccountNumber,
		"chat_link":      fmt.Sprintf("%s/chat/%s", s.chatBaseURL, rec.UniqueLink),
	})
	if err != nil {
		return channel, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	providerTimer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(channel))
	resp, err := sender.Send(sendCtx, provider.SendRequestDetails{
		RecipientID: rec.ID,
		Phone:       borrower.Phone,
		Content:     content,
		Language:    tmpl.Language,
	})
	providerTimer.ObserveDuration()
	if err != nil {
		return channel, err
	}
	if !resp.IsSuccess {
		return channel, fmt.Errorf("provider rejected send: %s", resp.ErrorMessage)
	}

	if err := s.recipients.MarkSent(ctx, rec.ID, resp.ProviderMessageID, time.Now().UTC()); err != nil {
		return channel, err
	}
	return channel, nil
}
