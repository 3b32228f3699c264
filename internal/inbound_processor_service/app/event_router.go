package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	campaignRepo "github.com/paymitra/paymitra/internal/campaign_service/repository"
	chatApp "github.com/paymitra/paymitra/internal/chat_service/app"
	chatRepo "github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
	"github.com/paymitra/paymitra/internal/delivery_service/provider"
	"github.com/paymitra/paymitra/internal/inbound_processor_service/domain"
)

// EventKind classifies a webhook entry.
type EventKind string

const (
	EventMessage          EventKind = "message"
	EventInteractiveReply EventKind = "interactive_reply"
	EventStatusUpdate     EventKind = "status_update"
	EventUnrecognized     EventKind = "unrecognized"
)

// quickReplies maps lowercased button titles to fixed responses, bypassing the
// responder for the canned EMI flow.
var quickReplies = map[string]string{
	"emi options": "हमारे पास आपके लिए विभिन्न EMI विकल्प उपलब्ध हैं:\n\n1. 6 महीने - ₹4,500/महीना\n2. 12 महीने - ₹2,300/महीना\n3. 18 महीने - ₹1,600/महीना\n\nकौन सा विकल्प आपको पसंद है?",
	"emi chahiye": "हमारे पास आपके लिए विभिन्न EMI विकल्प उपलब्ध हैं:\n\n1. 6 महीने - ₹4,500/महीना\n2. 12 महीने - ₹2,300/महीना\n3. 18 महीने - ₹1,600/महीना\n\nकौन सा विकल्प आपको पसंद है?",
	"more details": "EMI की अधिक जानकारी के लिए हमारे एजेंट से बात करें। कॉल बैक के लिए YES भेजें।",
}

const quickReplyDefault = "धन्यवाद! हमारा एजेंट जल्द ही आपसे संपर्क करेगा।"

// EventRouter dispatches classified webhook entries to their handlers. Each
// entry is handled independently; an error in one never fails the batch.
type EventRouter struct {
	sessions   *chatApp.SessionManager
	chat       *chatApp.ChatService
	messages   chatRepo.MessageRepository
	recipients campaignRepo.RecipientRepository
	sender     provider.ChannelSender
	logger     *slog.Logger
}

func NewEventRouter(
	sessions *chatApp.SessionManager,
	chat *chatApp.ChatService,
	messages chatRepo.MessageRepository,
	recipients campaignRepo.RecipientRepository,
	sender provider.ChannelSender,
	logger *slog.Logger,
) *EventRouter {
	return &EventRouter{
		sessions:   sessions,
		chat:       chat,
		messages:   messages,
		recipients: recipients,
		sender:     sender,
		logger:     logger.With("service", "event_router"),
	}
}

// Classify inspects a webhook entry and names the event it carries.
func Classify(entry domain.WebhookEntry) EventKind {
	for _, change := range entry.Changes {
		if len(change.Value.Statuses) > 0 {
			return EventStatusUpdate
		}
		for _, msg := range change.Value.Messages {
			if msg.Type == "interactive" && msg.Interactive != nil &&
				(msg.Interactive.ButtonReply != nil || msg.Interactive.ListReply != nil) {
				return EventInteractiveReply
			}
			return EventMessage
		}
	}
	return EventUnrecognized
}

// Route handles one webhook entry end to end.
func (r *EventRouter) Route(ctx context.Context, entry domain.WebhookEntry) {
	kind := Classify(entry)
	var err error
	switch kind {
	case EventMessage:
		err = r.handleMessage(ctx, firstMessage(entry))
	case EventInteractiveReply:
		err = r.handleInteractiveReply(ctx, firstMessage(entry))
	case EventStatusUpdate:
		err = r.handleStatusUpdate(ctx, firstStatus(entry))
	case EventUnrecognized:
		unrecognizedEventsCounter.Inc()
		r.logger.DebugContext(ctx, "Unrecognized webhook entry", "entry_id", entry.ID)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger.ErrorContext(ctx, "Failed to process webhook event",
			"kind", kind, "entry_id", entry.ID, "error", err)
	}
	eventsProcessedCounter.WithLabelValues(string(kind), outcome).Inc()
}

func firstMessage(entry domain.WebhookEntry) *domain.InboundMessage {
	for _, change := range entry.Changes {
		if len(change.Value.Messages) > 0 {
			return &change.Value.Messages[0]
		}
	}
	return nil
}

func firstStatus(entry domain.WebhookEntry) *domain.StatusUpdate {
	for _, change := range entry.Changes {
		if len(change.Value.Statuses) > 0 {
			return &change.Value.Statuses[0]
		}
	}
	return nil
}

// handleMessage runs the full conversational turn for an inbound user message:
// resolve session, append, generate, send, append the reply.
func (r *EventRouter) handleMessage(ctx context.Context, msg *domain.InboundMessage) error {
	if msg == nil {
		return nil
	}
	sctx, err := r.sessions.ResolveChannelSession(ctx, msg.From, core_domain.PlatformWhatsApp)
	if err != nil {
		return err
	}

	turn, err := r.chat.HandleUserMessage(ctx, sctx, messageContent(msg))
	if err != nil {
		return err
	}

	resp, err := r.sender.Send(ctx, provider.SendRequestDetails{
		Phone:    msg.From,
		Content:  turn.Reply.Content,
		Language: turn.Reply.Language,
	})
	if err != nil {
		return err
	}
	// Stamp the provider id so later receipts match this transcript row.
	if resp.ProviderMessageID != "" {
		if err := r.messages.SetProviderMessageID(ctx, turn.BotMessage.ID, resp.ProviderMessageID); err != nil {
			r.logger.WarnContext(ctx, "Failed to stamp provider message id",
				"message_id", turn.BotMessage.ID, "error", err)
		}
	}
	return nil
}

// messageContent flattens a typed inbound message into transcript text.
func messageContent(msg *domain.InboundMessage) string {
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			return msg.Text.Body
		}
	case "image":
		if msg.Image != nil {
			return mediaContent("image", msg.Image.Caption)
		}
	case "video":
		if msg.Video != nil {
			return mediaContent("video", msg.Video.Caption)
		}
	case "audio":
		return "[audio]"
	case "document":
		if msg.Document != nil {
			return mediaContent("document", msg.Document.Filename)
		}
	}
	return "[" + msg.Type + "]"
}

func mediaContent(kind, extra string) string {
	if extra == "" {
		return "[" + kind + "]"
	}
	return "[" + kind + "] " + extra
}

// handleInteractiveReply answers a quick-reply button with its fixed response.
func (r *EventRouter) handleInteractiveReply(ctx context.Context, msg *domain.InboundMessage) error {
	if msg == nil || msg.Interactive == nil {
		return nil
	}
	title := ""
	switch {
	case msg.Interactive.ButtonReply != nil:
		title = msg.Interactive.ButtonReply.Title
	case msg.Interactive.ListReply != nil:
		title = msg.Interactive.ListReply.Title
	}

	sctx, err := r.sessions.ResolveChannelSession(ctx, msg.From, core_domain.PlatformWhatsApp)
	if err != nil {
		return err
	}

	userMsg := &core_domain.Message{
		SessionID: sctx.Session.ID,
		Sender:    core_domain.SenderUser,
		Type:      core_domain.MessageTypeText,
		Content:   title,
		SentAt:    time.Now().UTC(),
	}
	if err := r.messages.Create(ctx, userMsg); err != nil {
		return err
	}

	response, ok := quickReplies[strings.ToLower(title)]
	if !ok {
		response = quickReplyDefault
	}

	resp, err := r.sender.Send(ctx, provider.SendRequestDetails{
		Phone:   msg.From,
		Content: response,
	})
	if err != nil {
		return err
	}
	var providerID *string
	if resp.ProviderMessageID != "" {
		providerID = &resp.ProviderMessageID
	}
	_, err = r.chat.AppendBotMessage(ctx, sctx.Session.ID, response, providerID)
	return err
}

// handleStatusUpdate applies a delivery receipt to the transcript message and
// the campaign recipient it belongs to. Receipts for unknown ids, and ones
// arriving after a later status, are silently ignored.
func (r *EventRouter) handleStatusUpdate(ctx context.Context, status *domain.StatusUpdate) error {
	if status == nil {
		return nil
	}
	at := statusTime(status.Timestamp)

	switch status.Status {
	case "delivered":
		if err := r.messages.SetDeliveredAt(ctx, status.ID, at); err != nil {
			return err
		}
	case "read":
		if err := r.messages.SetReadAt(ctx, status.ID, at); err != nil {
			return err
		}
	case "failed":
		// handled on the recipient below
	default:
		return nil
	}

	rec, err := r.recipients.GetByProviderMessageID(ctx, status.ID)
	if errors.Is(err, core_domain.ErrNotFound) {
		// Receipt for a conversational reply, not a campaign message.
		return nil
	}
	if err != nil {
		return err
	}

	if status.Status == "failed" {
		err := r.recipients.MarkFailed(ctx, rec.ID, "channel reported delivery failure")
		if errors.Is(err, core_domain.ErrInvalidState) {
			// Already replied or failed; late receipt, nothing to do.
			return nil
		}
		return err
	}

	target := core_domain.RecipientStatusDelivered
	if status.Status == "read" {
		target = core_domain.RecipientStatusRead
	}
	return r.recipients.AdvanceDeliveryStatus(ctx, rec.ID, target, at)
}

func statusTime(unixStr string) time.Time {
	if secs, err := strconv.ParseInt(unixStr, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Now().UTC()
}
