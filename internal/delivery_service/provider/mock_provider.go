package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a test implementation of ChannelSender with controllable
// failures. FailPhones lets a test fail specific recipients while the rest of
// a batch succeeds.
type MockProvider struct {
	logger         *slog.Logger
	Name           string
	FailSend       bool
	FailPhones     map[string]bool
	SimulatedDelay time.Duration

	mu    sync.Mutex
	calls []SendRequestDetails
}

func NewMockProvider(logger *slog.Logger, name string) *MockProvider {
	return &MockProvider{logger: logger.With("provider", "mock"), Name: name}
}

func (p *MockProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	p.mu.Lock()
	p.calls = append(p.calls, details)
	p.mu.Unlock()

	if p.SimulatedDelay > 0 {
		select {
		case <-time.After(p.SimulatedDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.FailSend || p.FailPhones[details.Phone] {
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: "FAILED_MOCK",
			ErrorMessage:   "mock provider simulated send failure",
		}, errors.New("mock provider simulated send failure")
	}

	return &SendResponseDetails{
		ProviderMessageID: "mock-" + uuid.NewString(),
		IsSuccess:         true,
		ProviderStatus:    "SENT_MOCK_OK",
	}, nil
}

// Calls returns a copy of the requests seen so far.
func (p *MockProvider) Calls() []SendRequestDetails {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SendRequestDetails, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *MockProvider) GetName() string {
	if p.Name != "" {
		return p.Name
	}
	return "mock"
}
