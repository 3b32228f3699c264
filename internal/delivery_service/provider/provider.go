package provider

import "context"

// SendRequestDetails carries one outbound campaign message to a channel provider.
type SendRequestDetails struct {
	RecipientID string // internal campaign recipient id, for log correlation
	Phone       string // E.164 or national number; providers normalize as needed
	Content     string // fully rendered message text
	Language    string // BCP 47-ish tag, e.g. "en", "hi", "en-IN"
}

// SendResponseDetails is the provider's verdict on a send attempt.
type SendResponseDetails struct {
	ProviderMessageID string
	IsSuccess         bool
	ProviderStatus    string
	ErrorMessage      string
}

// ChannelSender sends one message on one delivery channel (WhatsApp, SMS).
type ChannelSender interface {
	Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error)
	GetName() string
}
