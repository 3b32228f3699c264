package repository

import (
	"context"
	"errors"
	"time"

	"github.com/paymitra/paymitra/internal/core_domain"
)

// ErrDuplicateActiveSession is returned by Create when another active session
// already exists for the same (borrower, platform, campaign). The session
// manager treats it as a lost race and re-reads the winner.
var ErrDuplicateActiveSession = errors.New("active session already exists")

// SessionRepository persists conversation sessions. A partial unique index on
// active sessions enforces at-most-one per (borrower, platform, campaign)
// across processes.
type SessionRepository interface {
	Create(ctx context.Context, session *core_domain.Session) error
	GetByToken(ctx context.Context, token string) (*core_domain.Session, error)
	// GetActive looks up the active session for the exact (borrower, platform,
	// campaign) triple; campaignID nil matches sessions without a campaign.
	GetActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform, campaignID *string) (*core_domain.Session, error)
	// GetNewestActive returns the most recently started active session for the
	// borrower on the platform, regardless of campaign.
	GetNewestActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform) (*core_domain.Session, error)
	// UpdateStatus moves an active session to closed or transferred. Returns
	// core_domain.ErrInvalidState when the session is already terminal.
	UpdateStatus(ctx context.Context, id string, status core_domain.SessionStatus, endedAt time.Time) error
}

// MessageRepository persists the append-only conversation transcript.
type MessageRepository interface {
	Create(ctx context.Context, msg *core_domain.Message) error
	// ListBySession returns messages ordered by sent_at ascending.
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*core_domain.Message, error)
	// ListRecentBySession returns the newest n messages, oldest first.
	ListRecentBySession(ctx context.Context, sessionID string, n int) ([]*core_domain.Message, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Message, error)
	// SetProviderMessageID stamps the channel's id onto a stored outbound message
	// once the provider acknowledges it.
	SetProviderMessageID(ctx context.Context, id string, providerMessageID string) error
	// SetDeliveredAt / SetReadAt stamp delivery receipts onto an outbound
	// message, keyed by the provider's message id. Missing rows are ignored:
	// receipts for campaign messages have no transcript row.
	SetDeliveredAt(ctx context.Context, providerMessageID string, at time.Time) error
	SetReadAt(ctx context.Context, providerMessageID string, at time.Time) error
}
