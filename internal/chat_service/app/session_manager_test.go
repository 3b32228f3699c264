package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

// --- Mocks ---

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *core_domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*core_domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform, campaignID *string) (*core_domain.Session, error) {
	args := m.Called(ctx, borrowerID, platform, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetNewestActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform) (*core_domain.Session, error) {
	args := m.Called(ctx, borrowerID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id string, status core_domain.SessionStatus, endedAt time.Time) error {
	args := m.Called(ctx, id, status, endedAt)
	return args.Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *core_domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*core_domain.Message, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListRecentBySession(ctx context.Context, sessionID string, n int) ([]*core_domain.Message, error) {
	args := m.Called(ctx, sessionID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.Message), args.Error(1)
}

func (m *MockMessageRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Message, error) {
	args := m.Called(ctx, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Message), args.Error(1)
}

func (m *MockMessageRepository) SetProviderMessageID(ctx context.Context, id string, providerMessageID string) error {
	args := m.Called(ctx, id, providerMessageID)
	return args.Error(0)
}

func (m *MockMessageRepository) SetDeliveredAt(ctx context.Context, providerMessageID string, at time.Time) error {
	args := m.Called(ctx, providerMessageID, at)
	return args.Error(0)
}

func (m *MockMessageRepository) SetReadAt(ctx context.Context, providerMessageID string, at time.Time) error {
	args := m.Called(ctx, providerMessageID, at)
	return args.Error(0)
}

type MockRecipientRepository struct {
	mock.Mock
}

func (m *MockRecipientRepository) CreateBatch(ctx context.Context, recipients []*core_domain.Recipient) (int, error) {
	args := m.Called(ctx, recipients)
	return args.Int(0), args.Error(1)
}

func (m *MockRecipientRepository) GetByID(ctx context.Context, id string) (*core_domain.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) GetByUniqueLink(ctx context.Context, link string) (*core_domain.Recipient, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Recipient, error) {
	args := m.Called(ctx, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) LatestByBorrower(ctx context.Context, borrowerID string) (*core_domain.Recipient, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) ListByStatus(ctx context.Context, campaignID string, status core_domain.RecipientStatus) ([]*core_domain.Recipient, error) {
	args := m.Called(ctx, campaignID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) MarkSent(ctx context.Context, id string, providerMessageID string, sentAt time.Time) error {
	args := m.Called(ctx, id, providerMessageID, sentAt)
	return args.Error(0)
}

func (m *MockRecipientRepository) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

func (m *MockRecipientRepository) AdvanceDeliveryStatus(ctx context.Context, id string, status core_domain.RecipientStatus, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockRecipientRepository) ResetToPending(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecipientRepository) CountByStatus(ctx context.Context, campaignID string) (map[core_domain.RecipientStatus]int, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[core_domain.RecipientStatus]int), args.Error(1)
}

type MockBorrowerRepository struct {
	mock.Mock
}

func (m *MockBorrowerRepository) GetByID(ctx context.Context, id string) (*core_domain.Borrower, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Borrower), args.Error(1)
}

func (m *MockBorrowerRepository) GetByPhone(ctx context.Context, phone string) (*core_domain.Borrower, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Borrower), args.Error(1)
}

func (m *MockBorrowerRepository) ListByIDs(ctx context.Context, ids []string) ([]*core_domain.Borrower, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.Borrower), args.Error(1)
}

func (m *MockBorrowerRepository) GetDebtAccount(ctx context.Context, id string) (*core_domain.DebtAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.DebtAccount), args.Error(1)
}

func (m *MockBorrowerRepository) GetOpenDebtAccountByBorrower(ctx context.Context, borrowerID string) (*core_domain.DebtAccount, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.DebtAccount), args.Error(1)
}

// fakeSessionRepo is an in-memory SessionRepository with the same uniqueness
// rule as the database: at most one active session per (borrower, platform,
// campaign). Used where the mock's fixed expectations cannot model a race.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []*core_domain.Session
}

func (f *fakeSessionRepo) Create(_ context.Context, session *core_domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == core_domain.SessionStatusActive &&
			s.BorrowerID == session.BorrowerID && s.Platform == session.Platform &&
			sameCampaign(s.CampaignID, session.CampaignID) {
			return repository.ErrDuplicateActiveSession
		}
	}
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessionRepo) GetByToken(_ context.Context, token string) (*core_domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.SessionToken == token {
			return s, nil
		}
	}
	return nil, core_domain.ErrNotFound
}

func (f *fakeSessionRepo) GetActive(_ context.Context, borrowerID string, platform core_domain.SessionPlatform, campaignID *string) (*core_domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == core_domain.SessionStatusActive &&
			s.BorrowerID == borrowerID && s.Platform == platform && sameCampaign(s.CampaignID, campaignID) {
			return s, nil
		}
	}
	return nil, core_domain.ErrNotFound
}

func (f *fakeSessionRepo) GetNewestActive(_ context.Context, borrowerID string, platform core_domain.SessionPlatform) (*core_domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *core_domain.Session
	for _, s := range f.sessions {
		if s.Status == core_domain.SessionStatusActive && s.BorrowerID == borrowerID && s.Platform == platform {
			if newest == nil || s.StartedAt.After(newest.StartedAt) {
				newest = s
			}
		}
	}
	if newest == nil {
		return nil, core_domain.ErrNotFound
	}
	return newest, nil
}

func (f *fakeSessionRepo) UpdateStatus(_ context.Context, id string, status core_domain.SessionStatus, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			if s.Status != core_domain.SessionStatusActive {
				return core_domain.ErrInvalidState
			}
			s.Status = status
			s.EndedAt = &endedAt
			return nil
		}
	}
	return core_domain.ErrNotFound
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func sameCampaign(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// --- Test Setup ---

type sessionManagerTestComponents struct {
	manager           *SessionManager
	mockSessionRepo   *MockSessionRepository
	mockRecipientRepo *MockRecipientRepository
	mockBorrowerRepo  *MockBorrowerRepository
}

func setupSessionManagerTest(t *testing.T) sessionManagerTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockSessionRepo := new(MockSessionRepository)
	mockRecipientRepo := new(MockRecipientRepository)
	mockBorrowerRepo := new(MockBorrowerRepository)
	manager := NewSessionManager(mockSessionRepo, mockRecipientRepo, mockBorrowerRepo, logger)
	return sessionManagerTestComponents{
		manager:           manager,
		mockSessionRepo:   mockSessionRepo,
		mockRecipientRepo: mockRecipientRepo,
		mockBorrowerRepo:  mockBorrowerRepo,
	}
}

type sessionFixture struct {
	borrower  *core_domain.Borrower
	account   *core_domain.DebtAccount
	recipient *core_domain.Recipient
}

func newSessionFixture() sessionFixture {
	borrowerID := uuid.NewString()
	accountID := uuid.NewString()
	campaignID := uuid.NewString()
	return sessionFixture{
		borrower: &core_domain.Borrower{
			ID: borrowerID, Name: "Priya Sharma", Phone: "+919876543210", PreferredLanguage: "hi",
		},
		account: &core_domain.DebtAccount{
			ID: accountID, BorrowerID: borrowerID, AccountNumber: "LN-0042",
			OutstandingAmount: 45000, Status: core_domain.DebtAccountStatusOverdue,
		},
		recipient: &core_domain.Recipient{
			ID: uuid.NewString(), CampaignID: campaignID, BorrowerID: borrowerID,
			DebtAccountID: accountID, UniqueLink: campaignID + "-" + borrowerID + "-deadbeef",
			Status: core_domain.RecipientStatusDelivered,
		},
	}
}

// --- Tests ---

func TestSessionManager_ResolveWebSession_CreatesSessionAndMarksRead(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()

	comps.mockRecipientRepo.On("GetByUniqueLink", ctx, f.recipient.UniqueLink).Return(f.recipient, nil).Once()
	comps.mockBorrowerRepo.On("GetByID", ctx, f.borrower.ID).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetDebtAccount", ctx, f.account.ID).Return(f.account, nil).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWeb, &f.recipient.CampaignID).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *core_domain.Session) bool {
		return s.BorrowerID == f.borrower.ID &&
			s.Platform == core_domain.PlatformWeb &&
			s.Language == "hi" &&
			s.Status == core_domain.SessionStatusActive &&
			s.Metadata["unique_link"] == f.recipient.UniqueLink &&
			len(s.SessionToken) > len("sess_") && s.SessionToken[:5] == "sess_"
	})).Return(nil).Once()
	comps.mockRecipientRepo.On("AdvanceDeliveryStatus", ctx, f.recipient.ID, core_domain.RecipientStatusRead, mock.Anything).
		Return(nil).Once()

	sctx, err := comps.manager.ResolveWebSession(ctx, f.recipient.UniqueLink)
	require.NoError(t, err)
	assert.Equal(t, f.borrower.ID, sctx.Session.BorrowerID)
	assert.Equal(t, f.account.ID, sctx.Account.ID)
	comps.mockSessionRepo.AssertExpectations(t)
	comps.mockRecipientRepo.AssertExpectations(t)
}

func TestSessionManager_ResolveWebSession_ReusesActiveSession(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()
	existing := &core_domain.Session{
		ID: uuid.NewString(), BorrowerID: f.borrower.ID, SessionToken: "sess_existing",
		Platform: core_domain.PlatformWeb, Status: core_domain.SessionStatusActive,
	}

	comps.mockRecipientRepo.On("GetByUniqueLink", ctx, f.recipient.UniqueLink).Return(f.recipient, nil).Once()
	comps.mockBorrowerRepo.On("GetByID", ctx, f.borrower.ID).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetDebtAccount", ctx, f.account.ID).Return(f.account, nil).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWeb, &f.recipient.CampaignID).
		Return(existing, nil).Once()
	comps.mockRecipientRepo.On("AdvanceDeliveryStatus", ctx, f.recipient.ID, core_domain.RecipientStatusRead, mock.Anything).
		Return(nil).Once()

	sctx, err := comps.manager.ResolveWebSession(ctx, f.recipient.UniqueLink)
	require.NoError(t, err)
	assert.Equal(t, "sess_existing", sctx.Session.SessionToken)
	comps.mockSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSessionManager_ResolveWebSession_LostCreateRaceReturnsWinner(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()
	winner := &core_domain.Session{
		ID: uuid.NewString(), BorrowerID: f.borrower.ID, SessionToken: "sess_winner",
		Platform: core_domain.PlatformWeb, Status: core_domain.SessionStatusActive,
	}

	comps.mockRecipientRepo.On("GetByUniqueLink", ctx, f.recipient.UniqueLink).Return(f.recipient, nil).Once()
	comps.mockBorrowerRepo.On("GetByID", ctx, f.borrower.ID).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetDebtAccount", ctx, f.account.ID).Return(f.account, nil).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWeb, &f.recipient.CampaignID).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateActiveSession).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWeb, &f.recipient.CampaignID).
		Return(winner, nil).Once()
	comps.mockRecipientRepo.On("AdvanceDeliveryStatus", ctx, f.recipient.ID, core_domain.RecipientStatusRead, mock.Anything).
		Return(nil).Once()

	sctx, err := comps.manager.ResolveWebSession(ctx, f.recipient.UniqueLink)
	require.NoError(t, err)
	assert.Equal(t, "sess_winner", sctx.Session.SessionToken)
}

func TestSessionManager_ResolveWebSession_ReadAdvanceFailureIsNotFatal(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()
	existing := &core_domain.Session{
		ID: uuid.NewString(), BorrowerID: f.borrower.ID,
		Platform: core_domain.PlatformWeb, Status: core_domain.SessionStatusActive,
	}

	comps.mockRecipientRepo.On("GetByUniqueLink", ctx, f.recipient.UniqueLink).Return(f.recipient, nil).Once()
	comps.mockBorrowerRepo.On("GetByID", ctx, f.borrower.ID).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetDebtAccount", ctx, f.account.ID).Return(f.account, nil).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWeb, &f.recipient.CampaignID).
		Return(existing, nil).Once()
	comps.mockRecipientRepo.On("AdvanceDeliveryStatus", ctx, f.recipient.ID, core_domain.RecipientStatusRead, mock.Anything).
		Return(core_domain.ErrInvalidState).Once()

	_, err := comps.manager.ResolveWebSession(ctx, f.recipient.UniqueLink)
	assert.NoError(t, err)
}

func TestSessionManager_ResolveWebSession_ConcurrentCallsShareOneSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRecipientRepo := new(MockRecipientRepository)
	mockBorrowerRepo := new(MockBorrowerRepository)
	sessions := &fakeSessionRepo{}
	manager := NewSessionManager(sessions, mockRecipientRepo, mockBorrowerRepo, logger)

	f := newSessionFixture()
	mockRecipientRepo.On("GetByUniqueLink", mock.Anything, f.recipient.UniqueLink).Return(f.recipient, nil)
	mockRecipientRepo.On("AdvanceDeliveryStatus", mock.Anything, f.recipient.ID, core_domain.RecipientStatusRead, mock.Anything).Return(nil)
	mockBorrowerRepo.On("GetByID", mock.Anything, f.borrower.ID).Return(f.borrower, nil)
	mockBorrowerRepo.On("GetDebtAccount", mock.Anything, f.account.ID).Return(f.account, nil)

	const n = 16
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sctx, err := manager.ResolveWebSession(context.Background(), f.recipient.UniqueLink)
			if assert.NoError(t, err) {
				tokens[i] = sctx.Session.SessionToken
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, sessions.count())
	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
}

func TestSessionManager_ResolveChannelSession_BindsNewestRecipient(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()

	comps.mockBorrowerRepo.On("GetByPhone", ctx, f.borrower.Phone).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetOpenDebtAccountByBorrower", ctx, f.borrower.ID).Return(f.account, nil).Once()
	comps.mockRecipientRepo.On("LatestByBorrower", ctx, f.borrower.ID).Return(f.recipient, nil).Once()
	comps.mockSessionRepo.On("GetNewestActive", ctx, f.borrower.ID, core_domain.PlatformWhatsApp).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWhatsApp, &f.recipient.CampaignID).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *core_domain.Session) bool {
		return s.Platform == core_domain.PlatformWhatsApp &&
			s.CampaignID != nil && *s.CampaignID == f.recipient.CampaignID
	})).Return(nil).Once()
	comps.mockRecipientRepo.On("AdvanceDeliveryStatus", ctx, f.recipient.ID, core_domain.RecipientStatusReplied, mock.Anything).
		Return(nil).Once()

	sctx, err := comps.manager.ResolveChannelSession(ctx, f.borrower.Phone, core_domain.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, f.recipient.CampaignID, *sctx.Session.CampaignID)
	comps.mockRecipientRepo.AssertExpectations(t)
}

func TestSessionManager_ResolveChannelSession_NoCampaignStillGetsSession(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	f := newSessionFixture()

	comps.mockBorrowerRepo.On("GetByPhone", ctx, f.borrower.Phone).Return(f.borrower, nil).Once()
	comps.mockBorrowerRepo.On("GetOpenDebtAccountByBorrower", ctx, f.borrower.ID).Return(f.account, nil).Once()
	comps.mockRecipientRepo.On("LatestByBorrower", ctx, f.borrower.ID).Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("GetNewestActive", ctx, f.borrower.ID, core_domain.PlatformWhatsApp).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("GetActive", ctx, f.borrower.ID, core_domain.PlatformWhatsApp, (*string)(nil)).
		Return(nil, core_domain.ErrNotFound).Once()
	comps.mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *core_domain.Session) bool {
		return s.CampaignID == nil
	})).Return(nil).Once()

	sctx, err := comps.manager.ResolveChannelSession(ctx, f.borrower.Phone, core_domain.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Nil(t, sctx.Session.CampaignID)
	comps.mockRecipientRepo.AssertNotCalled(t, "AdvanceDeliveryStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionManager_CloseSession_SecondCloseRejected(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	active := &core_domain.Session{
		ID: uuid.NewString(), SessionToken: "sess_x", Status: core_domain.SessionStatusActive,
	}

	comps.mockSessionRepo.On("GetByToken", ctx, "sess_x").Return(active, nil).Once()
	comps.mockSessionRepo.On("UpdateStatus", ctx, active.ID, core_domain.SessionStatusClosed, mock.Anything).Return(nil).Once()
	require.NoError(t, comps.manager.CloseSession(ctx, "sess_x"))

	closed := &core_domain.Session{ID: active.ID, SessionToken: "sess_x", Status: core_domain.SessionStatusClosed}
	comps.mockSessionRepo.On("GetByToken", ctx, "sess_x").Return(closed, nil).Once()
	err := comps.manager.CloseSession(ctx, "sess_x")
	assert.ErrorIs(t, err, core_domain.ErrInvalidState)
}

func TestSessionManager_TransferSession_TerminalRejected(t *testing.T) {
	comps := setupSessionManagerTest(t)
	ctx := context.Background()
	transferred := &core_domain.Session{
		ID: uuid.NewString(), SessionToken: "sess_y", Status: core_domain.SessionStatusTransferred,
	}
	comps.mockSessionRepo.On("GetByToken", ctx, "sess_y").Return(transferred, nil).Once()

	err := comps.manager.TransferSession(ctx, "sess_y")
	assert.ErrorIs(t, err, core_domain.ErrInvalidState)
}
