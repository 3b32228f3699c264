package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	chatApp "github.com/paymitra/paymitra/internal/chat_service/app"
)

// ChatHandler serves the borrower-facing web chat: session bootstrap from a
// unique link, message turns and transcript history.
type ChatHandler struct {
	sessions *chatApp.SessionManager
	chat     *chatApp.ChatService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewChatHandler(sessions *chatApp.SessionManager, chat *chatApp.ChatService, logger *slog.Logger, validate *validator.Validate) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		chat:     chat,
		logger:   logger.With("component", "chat_handler"),
		validate: validate,
	}
}

func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	uniqueLink := chi.URLParam(r, "uniqueLink")

	sctx, err := h.sessions.ResolveWebSession(ctx, uniqueLink)
	if err != nil {
		logger.WarnContext(ctx, "Failed to resolve web session", "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, StartSessionResponse{
		SessionToken:      sctx.Session.SessionToken,
		Language:          sctx.Session.Language,
		BorrowerName:      sctx.Borrower.Name,
		AccountNumber:     sctx.Account.AccountNumber,
		OutstandingAmount: sctx.Account.OutstandingAmount,
		DueDate:           sctx.Account.DueDate.Format("2006-01-02"),
	})
}

func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var reqDTO ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "invalid request body"})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "validation failed", Details: err.Error()})
		return
	}

	sctx, err := h.sessions.GetByToken(ctx, reqDTO.SessionToken)
	if err != nil {
		logger.WarnContext(ctx, "Unknown session token", "error", err)
		respondError(w, err)
		return
	}

	turn, err := h.chat.HandleUserMessage(ctx, sctx, reqDTO.Message)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to handle chat message", "session_id", sctx.Session.ID, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ChatMessageResponse{
		Reply:            turn.Reply.Content,
		Language:         turn.Reply.Language,
		Intent:           turn.Reply.Intent,
		Confidence:       turn.Reply.Confidence,
		SuggestedActions: turn.Reply.SuggestedActions,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	token := chi.URLParam(r, "sessionToken")

	sctx, err := h.sessions.GetByToken(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "Unknown session token", "error", err)
		respondError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.chat.History(ctx, sctx.Session.ID, limit, offset)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load chat history", "session_id", sctx.Session.ID, "error", err)
		respondError(w, err)
		return
	}

	resp := ChatHistoryResponse{Messages: make([]ChatHistoryMessage, 0, len(messages))}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, ChatHistoryMessage{
			ID:      m.ID,
			Sender:  string(m.Sender),
			Type:    string(m.Type),
			Content: m.Content,
			SentAt:  m.SentAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
