package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the producing side of the broker. Services that only emit jobs
// depend on this interface so tests can swap in a recording fake.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NatsClient wraps a NATS connection used for job queues between the services.
type NatsClient struct {
	Conn   *nats.Conn
	logger *slog.Logger
}

// NewNatsClient connects to NATS.
// natsURL example: "nats://localhost:4222".
func NewNatsClient(natsURL string, appName string, logger *slog.Logger) (*NatsClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}

	return &NatsClient{Conn: nc, logger: logger.With("component", "nats_client")}, nil
}

// Publish sends data on the given subject.
func (c *NatsClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := c.Conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe creates a queue subscription on the given subject. Messages are dispatched
// to handler on NATS's delivery goroutine; handlers that block should hand off to a channel.
func (c *NatsClient) Subscribe(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.Conn.QueueSubscribe(subject, queueGroup, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject %s (queue %s): %w", subject, queueGroup, err)
	}
	c.logger.Info("Subscribed to NATS subject", "subject", subject, "queue_group", queueGroup)
	return sub, nil
}

// Close drains and closes the NATS connection.
func (c *NatsClient) Close() {
	if c.Conn != nil && !c.Conn.IsClosed() {
		if err := c.Conn.Drain(); err != nil {
			c.logger.Warn("Failed to drain NATS connection", "error", err)
		}
		c.Conn.Close()
	}
}
