package repository

import (
	"context"
	"time"

	"github.com/paymitra/paymitra/internal/core_domain"
)

// CampaignRepository provides access to campaign rows.
type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*core_domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status core_domain.CampaignStatus) error
}

// RecipientRepository persists campaign recipients and their delivery lifecycle.
type RecipientRepository interface {
	// CreateBatch inserts the recipients, skipping borrowers already registered for
	// the campaign (unique (campaign_id, borrower_id)). Returns the number inserted.
	CreateBatch(ctx context.Context, recipients []*core_domain.Recipient) (int, error)
	GetByID(ctx context.Context, id string) (*core_domain.Recipient, error)
	GetByUniqueLink(ctx context.Context, link string) (*core_domain.Recipient, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Recipient, error)
	// LatestByBorrower returns the most recently created recipient for the borrower,
	// used to attribute an inbound channel message to its campaign.
	LatestByBorrower(ctx context.Context, borrowerID string) (*core_domain.Recipient, error)
	ListByStatus(ctx context.Context, campaignID string, status core_domain.RecipientStatus) ([]*core_domain.Recipient, error)

	// MarkSent transitions a pending recipient to sent, recording the provider's
	// message id. Returns core_domain.ErrInvalidState if the row is no longer pending.
	MarkSent(ctx context.Context, id string, providerMessageID string, sentAt time.Time) error
	// MarkFailed transitions a non-terminal recipient to failed with the send error.
	MarkFailed(ctx context.Context, id string, errorMessage string) error
	// AdvanceDeliveryStatus applies a forward-only delivered/read/replied transition.
	// Backward moves are ignored rather than rejected: a late "delivered" webhook
	// after "read" is valid provider behavior, not an error.
	AdvanceDeliveryStatus(ctx context.Context, id string, status core_domain.RecipientStatus, at time.Time) error
	// ResetToPending re-arms a failed recipient for an explicit resend.
	ResetToPending(ctx context.Context, id string) error

	CountByStatus(ctx context.Context, campaignID string) (map[core_domain.RecipientStatus]int, error)
}

// BorrowerRepository reads the externally managed borrower/debt-account store.
type BorrowerRepository interface {
	GetByID(ctx context.Context, id string) (*core_domain.Borrower, error)
	GetByPhone(ctx context.Context, phone string) (*core_domain.Borrower, error)
	ListByIDs(ctx context.Context, ids []string) ([]*core_domain.Borrower, error)
	GetDebtAccount(ctx context.Context, id string) (*core_domain.DebtAccount, error)
	// GetOpenDebtAccountByBorrower returns the borrower's open (active/overdue)
	// debt account with the earliest due date.
	GetOpenDebtAccountByBorrower(ctx context.Context, borrowerID string) (*core_domain.DebtAccount, error)
}

// TemplateRepository persists message templates.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *core_domain.MessageTemplate) error
	GetByID(ctx context.Context, id string) (*core_domain.MessageTemplate, error)
}
