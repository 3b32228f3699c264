package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/paymitra/paymitra/internal/inbound_processor_service/domain"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

// WebhookHandler terminates the WhatsApp webhook: the GET verification
// handshake and the POST event feed. Events are pushed to NATS entry by entry
// and the platform always gets a 200, so a slow consumer never causes webhook
// retries.
type WebhookHandler struct {
	natsClient  messagebroker.Publisher
	verifyToken string
	subject     string
	logger      *slog.Logger
}

func NewWebhookHandler(natsClient messagebroker.Publisher, verifyToken, subject string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		natsClient:  natsClient,
		verifyToken: verifyToken,
		subject:     subject,
		logger:      logger.With("component", "webhook_handler"),
	}
}

// Verify answers the hub.challenge handshake WhatsApp sends on subscription.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.InfoContext(r.Context(), "Webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	h.logger.WarnContext(r.Context(), "Webhook verification rejected", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
}

// Receive accepts a webhook payload and publishes each entry to NATS.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var payload domain.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "Failed to decode webhook payload", "error", err)
		// Still 200: the platform retries on errors and the payload will not
		// get better.
		w.WriteHeader(http.StatusOK)
		return
	}
	defer r.Body.Close()

	for _, entry := range payload.Entry {
		data, err := json.Marshal(entry)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to marshal webhook entry", "entry_id", entry.ID, "error", err)
			continue
		}
		if err := h.natsClient.Publish(ctx, h.subject, data); err != nil {
			logger.ErrorContext(ctx, "Failed to publish webhook entry", "entry_id", entry.ID, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}
