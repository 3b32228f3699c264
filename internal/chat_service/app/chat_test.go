package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paymitra/paymitra/internal/core_domain"
)

func setupChatTest(t *testing.T, gen *stubGenerator) (*ChatService, *MockMessageRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockMessageRepo := new(MockMessageRepository)
	responder := NewResponder(gen, NewKeywordClassifier(), 0, logger)
	return NewChatService(mockMessageRepo, responder, logger), mockMessageRepo
}

func activeSessionContext() *SessionContext {
	borrower, account := responderFixture()
	return &SessionContext{
		Session: &core_domain.Session{
			ID: uuid.NewString(), BorrowerID: borrower.ID, SessionToken: "sess_t",
			Platform: core_domain.PlatformWeb, Language: "hi",
			Status: core_domain.SessionStatusActive,
		},
		Borrower: borrower,
		Account:  account,
	}
}

func TestChatService_HandleUserMessage_StoresBothSidesOfTurn(t *testing.T) {
	gen := &stubGenerator{reply: "Here are your payment options."}
	svc, messages := setupChatTest(t, gen)
	ctx := context.Background()
	sctx := activeSessionContext()

	messages.On("ListRecentBySession", ctx, sctx.Session.ID, 20).
		Return([]*core_domain.Message{
			{Sender: core_domain.SenderUser, Content: "earlier question"},
			{Sender: core_domain.SenderBot, Content: "earlier answer"},
		}, nil).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *core_domain.Message) bool {
		return m.Sender == core_domain.SenderUser && m.Content == "What is the due amount?"
	})).Return(nil).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *core_domain.Message) bool {
		return m.Sender == core_domain.SenderBot &&
			m.Content == "Here are your payment options." &&
			m.Metadata["intent"] == IntentPaymentInquiry &&
			m.Metadata["confidence"] == "0.90"
	})).Return(nil).Once()

	result, err := svc.HandleUserMessage(ctx, sctx, "What is the due amount?")
	require.NoError(t, err)
	assert.Equal(t, "Here are your payment options.", result.Reply.Content)
	assert.Equal(t, result.BotMessage.SessionID, sctx.Session.ID)
	messages.AssertExpectations(t)

	// Prior transcript reached the responder as context.
	assert.Contains(t, gen.lastMessages[0].Content, "user: earlier question")
	assert.Contains(t, gen.lastMessages[0].Content, "bot: earlier answer")
}

func TestChatService_HandleUserMessage_EmptyTextRejected(t *testing.T) {
	svc, messages := setupChatTest(t, &stubGenerator{reply: "x"})
	_, err := svc.HandleUserMessage(context.Background(), activeSessionContext(), "")
	assert.ErrorIs(t, err, core_domain.ErrValidation)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_HandleUserMessage_TerminalSessionRejected(t *testing.T) {
	svc, messages := setupChatTest(t, &stubGenerator{reply: "x"})
	sctx := activeSessionContext()
	sctx.Session.Status = core_domain.SessionStatusClosed

	_, err := svc.HandleUserMessage(context.Background(), sctx, "hello")
	assert.ErrorIs(t, err, core_domain.ErrInvalidState)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_HandleUserMessage_ModelFailureStillCompletesTurn(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unreachable")}
	svc, messages := setupChatTest(t, gen)
	ctx := context.Background()
	sctx := activeSessionContext()

	messages.On("ListRecentBySession", ctx, sctx.Session.ID, 20).
		Return([]*core_domain.Message{}, nil).Once()
	messages.On("Create", ctx, mock.Anything).Return(nil).Twice()

	result, err := svc.HandleUserMessage(ctx, sctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Reply.Confidence)
	assert.Contains(t, result.BotMessage.Content, "Rajesh Kumar")
	messages.AssertExpectations(t)
}

func TestChatService_AppendBotMessage(t *testing.T) {
	svc, messages := setupChatTest(t, &stubGenerator{})
	ctx := context.Background()
	sessionID := uuid.NewString()
	providerID := "wamid.QR1"

	messages.On("Create", ctx, mock.MatchedBy(func(m *core_domain.Message) bool {
		return m.SessionID == sessionID && m.Sender == core_domain.SenderBot &&
			m.ProviderMessageID != nil && *m.ProviderMessageID == providerID
	})).Return(nil).Once()

	msg, err := svc.AppendBotMessage(ctx, sessionID, "EMI options below", &providerID)
	require.NoError(t, err)
	assert.Equal(t, "EMI options below", msg.Content)
	messages.AssertExpectations(t)
}

func TestChatService_History(t *testing.T) {
	svc, messages := setupChatTest(t, &stubGenerator{})
	ctx := context.Background()
	sessionID := uuid.NewString()
	stored := []*core_domain.Message{{ID: uuid.NewString()}, {ID: uuid.NewString()}}

	messages.On("ListBySession", ctx, sessionID, 50, 0).Return(stored, nil).Once()

	got, err := svc.History(ctx, sessionID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}
