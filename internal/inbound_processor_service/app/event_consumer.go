package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/paymitra/paymitra/internal/inbound_processor_service/domain"
	"github.com/paymitra/paymitra/internal/platform/messagebroker"
)

// NATSSubjectWhatsAppEvents carries raw webhook entries from the API service.
const NATSSubjectWhatsAppEvents = "whatsapp.events.raw"

// EventConsumer pulls raw webhook entries off NATS and hands them to the
// router through a channel, keeping NATS's delivery goroutine unblocked.
type EventConsumer struct {
	natsClient *messagebroker.NatsClient
	router     *EventRouter
	events     chan domain.WebhookEntry
	logger     *slog.Logger
	natsSub    *nats.Subscription
}

func NewEventConsumer(natsClient *messagebroker.NatsClient, router *EventRouter, bufferSize int, logger *slog.Logger) *EventConsumer {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &EventConsumer{
		natsClient: natsClient,
		router:     router,
		events:     make(chan domain.WebhookEntry, bufferSize),
		logger:     logger.With("service", "event_consumer"),
	}
}

// StartConsuming subscribes to the subject and starts the routing worker. It
// returns once the subscription is in place; the worker runs until ctx ends.
func (c *EventConsumer) StartConsuming(ctx context.Context, subject, queueGroup string) error {
	msgHandler := func(msg *nats.Msg) {
		natsEventsReceivedCounter.WithLabelValues(subject).Inc()

		var entry domain.WebhookEntry
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			c.logger.Error("Failed to unmarshal webhook entry", "error", err, "data", string(msg.Data))
			return
		}

		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		select {
		case c.events <- entry:
		case <-sendCtx.Done():
			c.logger.Error("Timed out queueing webhook entry for processing", "entry_id", entry.ID)
		}
	}

	sub, err := c.natsClient.Subscribe(ctx, subject, queueGroup, msgHandler)
	if err != nil {
		return err
	}
	c.natsSub = sub

	go c.runWorker(ctx)
	return nil
}

func (c *EventConsumer) runWorker(ctx context.Context) {
	for {
		select {
		case entry := <-c.events:
			eventCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			c.router.Route(eventCtx, entry)
			cancel()
		case <-ctx.Done():
			c.logger.Info("Event worker stopping", "reason", ctx.Err())
			return
		}
	}
}
