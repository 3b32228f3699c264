package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	campaignRepo "github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

// keyedMutex serializes work per string key. Entries are reference counted and
// removed when the last holder unlocks, so the map does not grow unboundedly.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLockEntry
}

type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLockEntry)}
}

// Lock blocks until the key's lock is held and returns the unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// SessionContext bundles a resolved session with the borrower and debt account
// the conversation is about.
type SessionContext struct {
	Session  *core_domain.Session
	Borrower *core_domain.Borrower
	Account  *core_domain.DebtAccount
}

// SessionManager owns the conversation session lifecycle. Resolution is
// serialized per (borrower, platform) in-process by a keyed mutex, and across
// processes by the partial unique index on active sessions.
type SessionManager struct {
	sessions   repository.SessionRepository
	recipients campaignRepo.RecipientRepository
	borrowers  campaignRepo.BorrowerRepository
	locks      *keyedMutex
	logger     *slog.Logger
}

func NewSessionManager(
	sessions repository.SessionRepository,
	recipients campaignRepo.RecipientRepository,
	borrowers campaignRepo.BorrowerRepository,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		sessions:   sessions,
		recipients: recipients,
		borrowers:  borrowers,
		locks:      newKeyedMutex(),
		logger:     logger.With("service", "session_manager"),
	}
}

func resolveKey(borrowerID string, platform core_domain.SessionPlatform) string {
	return "resolve:" + borrowerID + ":" + string(platform)
}

func newSessionToken() string {
	return "sess_" + uuid.NewString()
}

// ResolveWebSession resolves the campaign recipient behind a unique chat link
// and returns its active web session, creating one if none exists. Repeated
// calls with the same link land on the same session. The recipient is advanced
// to read, since opening the link proves the message was seen.
func (m *SessionManager) ResolveWebSession(ctx context.Context, uniqueLink string) (*SessionContext, error) {
	rec, err := m.recipients.GetByUniqueLink(ctx, uniqueLink)
	if err != nil {
		return nil, err
	}
	borrower, err := m.borrowers.GetByID(ctx, rec.BorrowerID)
	if err != nil {
		return nil, err
	}
	account, err := m.borrowers.GetDebtAccount(ctx, rec.DebtAccountID)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(resolveKey(borrower.ID, core_domain.PlatformWeb))
	defer unlock()

	session, err := m.getOrCreate(ctx, borrower, core_domain.PlatformWeb, &rec.CampaignID, map[string]string{
		"unique_link": uniqueLink,
	})
	if err != nil {
		return nil, err
	}

	if err := m.recipients.AdvanceDeliveryStatus(ctx, rec.ID, core_domain.RecipientStatusRead, time.Now().UTC()); err != nil {
		m.logger.WarnContext(ctx, "Failed to advance recipient to read",
			"recipient_id", rec.ID, "error", err)
	}

	return &SessionContext{Session: session, Borrower: borrower, Account: account}, nil
}

// ResolveChannelSession resolves the session for an inbound channel message by
// the sender's phone number. When the borrower has a campaign recipient, the
// newest one is bound to the session and advanced to replied.
func (m *SessionManager) ResolveChannelSession(ctx context.Context, phone string, platform core_domain.SessionPlatform) (*SessionContext, error) {
	borrower, err := m.borrowers.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	account, err := m.borrowers.GetOpenDebtAccountByBorrower(ctx, borrower.ID)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(resolveKey(borrower.ID, platform))
	defer unlock()

	var campaignID *string
	rec, err := m.recipients.LatestByBorrower(ctx, borrower.ID)
	switch {
	case err == nil:
		campaignID = &rec.CampaignID
	case errors.Is(err, core_domain.ErrNotFound):
		// Inbound message outside any campaign; still gets a session.
	default:
		return nil, err
	}

	session, err := m.sessions.GetNewestActive(ctx, borrower.ID, platform)
	if errors.Is(err, core_domain.ErrNotFound) {
		session, err = m.getOrCreate(ctx, borrower, platform, campaignID, nil)
	}
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err := m.recipients.AdvanceDeliveryStatus(ctx, rec.ID, core_domain.RecipientStatusReplied, time.Now().UTC()); err != nil {
			m.logger.WarnContext(ctx, "Failed to advance recipient to replied",
				"recipient_id", rec.ID, "error", err)
		}
	}

	return &SessionContext{Session: session, Borrower: borrower, Account: account}, nil
}

// getOrCreate returns the active session for the exact (borrower, platform,
// campaign) triple, creating it when absent. A create that loses the unique
// index race re-reads the winning row instead of failing.
func (m *SessionManager) getOrCreate(ctx context.Context, borrower *core_domain.Borrower, platform core_domain.SessionPlatform, campaignID *string, metadata map[string]string) (*core_domain.Session, error) {
	session, err := m.sessions.GetActive(ctx, borrower.ID, platform, campaignID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, core_domain.ErrNotFound) {
		return nil, err
	}

	language := borrower.PreferredLanguage
	if language == "" {
		language = "en"
	}
	session = &core_domain.Session{
		ID:           uuid.NewString(),
		BorrowerID:   borrower.ID,
		CampaignID:   campaignID,
		SessionToken: newSessionToken(),
		Platform:     platform,
		Language:     language,
		Status:       core_domain.SessionStatusActive,
		Metadata:     metadata,
		StartedAt:    time.Now().UTC(),
	}
	err = m.sessions.Create(ctx, session)
	if errors.Is(err, repository.ErrDuplicateActiveSession) {
		return m.sessions.GetActive(ctx, borrower.ID, platform, campaignID)
	}
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "Session created",
		"session_id", session.ID, "borrower_id", borrower.ID, "platform", platform)
	return session, nil
}

// GetByToken loads a session together with its borrower and debt context.
func (m *SessionManager) GetByToken(ctx context.Context, token string) (*SessionContext, error) {
	session, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	borrower, err := m.borrowers.GetByID(ctx, session.BorrowerID)
	if err != nil {
		return nil, err
	}
	account, err := m.borrowers.GetOpenDebtAccountByBorrower(ctx, borrower.ID)
	if err != nil {
		return nil, err
	}
	return &SessionContext{Session: session, Borrower: borrower, Account: account}, nil
}

// CloseSession ends an active session. A second close, or closing a transferred
// session, returns ErrInvalidState.
func (m *SessionManager) CloseSession(ctx context.Context, token string) error {
	session, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return fmt.Errorf("%w: session %s is already %s", core_domain.ErrInvalidState, session.ID, session.Status)
	}
	return m.sessions.UpdateStatus(ctx, session.ID, core_domain.SessionStatusClosed, time.Now().UTC())
}

// TransferSession hands an active session over to a human agent.
func (m *SessionManager) TransferSession(ctx context.Context, token string) error {
	session, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return fmt.Errorf("%w: session %s is already %s", core_domain.ErrInvalidState, session.ID, session.Status)
	}
	return m.sessions.UpdateStatus(ctx, session.ID, core_domain.SessionStatusTransferred, time.Now().UTC())
}
