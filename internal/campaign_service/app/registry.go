package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

// NATSSubjectCampaignSend carries send jobs from the API service to the delivery workers.
const NATSSubjectCampaignSend = "campaign.jobs.send"

// SendCampaignJob is the payload published on NATSSubjectCampaignSend.
type SendCampaignJob struct {
	CampaignID string `json:"campaign_id"`
}

// SetupResult summarizes a recipient registration run.
type SetupResult struct {
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
}

// CampaignAnalytics is the per-status breakdown of a campaign's recipients.
type CampaignAnalytics struct {
	CampaignID string `json:"campaign_id"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	Sent       int    `json:"sent"`
	Delivered  int    `json:"delivered"`
	Read       int    `json:"read"`
	Replied    int    `json:"replied"`
	Failed     int    `json:"failed"`
}

// RegistryService owns campaign setup: recipient registration, template
// registration, send triggering and analytics.
type RegistryService struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.RecipientRepository
	borrowerRepo  repository.BorrowerRepository
	templateRepo  repository.TemplateRepository
	publisher     messagebroker.Publisher
	logger        *slog.Logger
}

func NewRegistryService(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.RecipientRepository,
	borrowerRepo repository.BorrowerRepository,
	templateRepo repository.TemplateRepository,
	publisher messagebroker.Publisher,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		borrowerRepo:  borrowerRepo,
		templateRepo:  templateRepo,
		publisher:     publisher,
		logger:        logger.With("service", "campaign_registry"),
	}
}

// RegisterRecipients registers the given borrowers for the campaign, issuing each a
// fresh unique chat link. Borrowers already registered for the campaign are skipped,
// so re-posting the same list is safe.
func (s *RegistryService) RegisterRecipients(ctx context.Context, campaignID string, borrowerIDs []string) (*SetupResult, error) {
	if len(borrowerIDs) == 0 {
		return nil, fmt.Errorf("%w: borrower_ids must not be empty", core_domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(borrowerIDs))
	for _, id := range borrowerIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate borrower id %s", core_domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	borrowers, err := s.borrowerRepo.ListByIDs(ctx, borrowerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*core_domain.Borrower, len(borrowers))
	for _, b := range borrowers {
		byID[b.ID] = b
	}
	for _, id := range borrowerIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: borrower %s", core_domain.ErrNotFound, id)
		}
	}

	recipients := make([]*core_domain.Recipient, 0, len(borrowerIDs))
	for _, borrowerID := range borrowerIDs {
		account, err := s.borrowerRepo.GetOpenDebtAccountByBorrower(ctx, borrowerID)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, &core_domain.Recipient{
			ID:            uuid.NewString(),
			CampaignID:    campaign.ID,
			BorrowerID:    borrowerID,
			DebtAccountID: account.ID,
			UniqueLink:    newUniqueLink(campaign.ID, borrowerID),
			Status:        core_domain.RecipientStatusPending,
		})
	}

	inserted, err := s.recipientRepo.CreateBatch(ctx, recipients)
	if err != nil {
		return nil, err
	}

	result := &SetupResult{Registered: inserted, Skipped: len(recipients) - inserted}
	s.logger.InfoContext(ctx, "Recipients registered",
		"campaign_id", campaignID, "registered", result.Registered, "skipped", result.Skipped)
	return result, nil
}

// newUniqueLink builds the immutable link token a borrower uses to open a web chat.
func newUniqueLink(campaignID, borrowerID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", campaignID, borrowerID, suffix)
}

// TriggerSend validates that the campaign is sendable and enqueues one send job for
// the delivery workers. Only recipients still pending at consume time are sent, so
// re-triggering an in-flight campaign is harmless.
func (s *RegistryService) TriggerSend(ctx context.Context, campaignID string) error {
	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status == core_domain.CampaignStatusCompleted {
		return fmt.Errorf("%w: campaign %s is completed", core_domain.ErrInvalidState, campaignID)
	}
	if campaign.TemplateID == nil {
		return fmt.Errorf("%w: campaign %s has no template", core_domain.ErrValidation, campaignID)
	}
	tmpl, err := s.templateRepo.GetByID(ctx, *campaign.TemplateID)
	if err != nil {
		return err
	}
	if !tmpl.IsApproved {
		return fmt.Errorf("%w: template %s is not approved", core_domain.ErrInvalidState, tmpl.ID)
	}

	payload, err := json.Marshal(SendCampaignJob{CampaignID: campaignID})
	if err != nil {
		return fmt.Errorf("failed to marshal send job: %w", err)
	}
	if err := s.publisher.Publish(ctx, NATSSubjectCampaignSend, payload); err != nil {
		return fmt.Errorf("failed to enqueue send job for campaign %s: %w", campaignID, err)
	}

	if campaign.Status == core_domain.CampaignStatusDraft {
		if err := s.campaignRepo.UpdateStatus(ctx, campaignID, core_domain.CampaignStatusActive); err != nil {
			s.logger.WarnContext(ctx, "Failed to mark campaign active after enqueue",
				"campaign_id", campaignID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "Campaign send enqueued", "campaign_id", campaignID)
	return nil
}

// ResendFailed resets the campaign's failed recipients back to pending and enqueues
// a new send job. This is the only path by which a failed recipient is retried.
func (s *RegistryService) ResendFailed(ctx context.Context, campaignID string) (int, error) {
	counts, err := s.recipientRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	failed := counts[core_domain.RecipientStatusFailed]
	if failed == 0 {
		return 0, nil
	}

	// Reset row by row so a concurrent status change on one recipient does not
	// abort the rest.
	reset := 0
	rows, err := s.recipientRepo.ListByStatus(ctx, campaignID, core_domain.RecipientStatusFailed)
	if err != nil {
		return 0, err
	}
	for _, rec := range rows {
		if err := s.recipientRepo.ResetToPending(ctx, rec.ID); err != nil {
			s.logger.WarnContext(ctx, "Skipping recipient on resend reset",
				"recipient_id", rec.ID, "error", err)
			continue
		}
		reset++
	}
	if reset == 0 {
		return 0, nil
	}
	return reset, s.TriggerSend(ctx, campaignID)
}

// Analytics returns the per-status recipient breakdown for the campaign.
func (s *RegistryService) Analytics(ctx context.Context, campaignID string) (*CampaignAnalytics, error) {
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	counts, err := s.recipientRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	a := &CampaignAnalytics{
		CampaignID: campaignID,
		Pending:    counts[core_domain.RecipientStatusPending],
		Sent:       counts[core_domain.RecipientStatusSent],
		Delivered:  counts[core_domain.RecipientStatusDelivered],
		Read:       counts[core_domain.RecipientStatusRead],
		Replied:    counts[core_domain.RecipientStatusReplied],
		Failed:     counts[core_domain.RecipientStatusFailed],
	}
	a.Total = a.Pending + a.Sent + a.Delivered + a.Read + a.Replied + a.Failed
	return a, nil
}

// RegisterTemplate validates and stores a message template. Placeholder problems
// surface here, at registration, never at send time.
func (s *RegistryService) RegisterTemplate(ctx context.Context, tmpl *core_domain.MessageTemplate) error {
	if tmpl.Name == "" || tmpl.Content == "" {
		return fmt.Errorf("%w: template name and content are required", core_domain.ErrValidation)
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}
	return s.templateRepo.Create(ctx, tmpl)
}
