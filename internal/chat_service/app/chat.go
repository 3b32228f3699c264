package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

// TurnResult is one completed conversation turn: the stored user message, the
// stored bot message and the full responder output.
type TurnResult struct {
	UserMessage *core_domain.Message
	BotMessage  *core_domain.Message
	Reply       *GeneratedReply
}

// ChatService runs conversation turns: append the user's message, generate the
// reply, append it. Turns are serialized per session, so the transcript order
// matches arrival order even when a borrower double-sends.
type ChatService struct {
	messages  repository.MessageRepository
	responder *Responder
	locks     *keyedMutex
	logger    *slog.Logger
}

func NewChatService(messages repository.MessageRepository, responder *Responder, logger *slog.Logger) *ChatService {
	return &ChatService{
		messages:  messages,
		responder: responder,
		locks:     newKeyedMutex(),
		logger:    logger.With("service", "chat"),
	}
}

// HandleUserMessage runs one turn for the resolved session. Terminal sessions
// are rejected with ErrInvalidState.
func (s *ChatService) HandleUserMessage(ctx context.Context, sctx *SessionContext, text string) (*TurnResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: message text must not be empty", core_domain.ErrValidation)
	}
	if sctx.Session.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: session %s is %s", core_domain.ErrInvalidState, sctx.Session.ID, sctx.Session.Status)
	}

	unlock := s.locks.Lock("turn:" + sctx.Session.ID)
	defer unlock()

	recent, err := s.messages.ListRecentBySession(ctx, sctx.Session.ID, 20)
	if err != nil {
		return nil, err
	}
	history := make([]string, 0, len(recent))
	for _, m := range recent {
		history = append(history, string(m.Sender)+": "+m.Content)
	}

	language := DetectLanguage(text)
	userMsg := &core_domain.Message{
		ID:               uuid.NewString(),
		SessionID:        sctx.Session.ID,
		Sender:           core_domain.SenderUser,
		Type:             core_domain.MessageTypeText,
		Content:          text,
		OriginalLanguage: &language,
		SentAt:           time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	reply := s.responder.GenerateReply(ctx, sctx.Borrower, sctx.Account, text, history)

	botMsg := &core_domain.Message{
		ID:               uuid.NewString(),
		SessionID:        sctx.Session.ID,
		Sender:           core_domain.SenderBot,
		Type:             core_domain.MessageTypeText,
		Content:          reply.Content,
		OriginalLanguage: &reply.Language,
		Metadata: map[string]string{
			"intent":     reply.Intent,
			"confidence": strconv.FormatFloat(reply.Confidence, 'f', 2, 64),
		},
		SentAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, botMsg); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Conversation turn completed",
		"session_id", sctx.Session.ID, "intent", reply.Intent, "confidence", reply.Confidence)
	return &TurnResult{UserMessage: userMsg, BotMessage: botMsg, Reply: reply}, nil
}

// AppendBotMessage stores an outbound bot message that bypassed the responder,
// such as a fixed quick-reply answer, optionally with the channel's message id.
func (s *ChatService) AppendBotMessage(ctx context.Context, sessionID, content string, providerMessageID *string) (*core_domain.Message, error) {
	msg := &core_domain.Message{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		Sender:            core_domain.SenderBot,
		Type:              core_domain.MessageTypeText,
		Content:           content,
		ProviderMessageID: providerMessageID,
		SentAt:            time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns the session transcript in send order.
func (s *ChatService) History(ctx context.Context, sessionID string, limit, offset int) ([]*core_domain.Message, error) {
	return s.messages.ListBySession(ctx, sessionID, limit, offset)
}
