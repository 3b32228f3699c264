package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SMSProvider sends plain SMS through a generic JSON HTTP gateway. It is the
// fallback channel for borrowers without a WhatsApp-capable number.
type SMSProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
	senderID   string
}

func NewSMSProvider(logger *slog.Logger, apiURL, apiKey, senderID string, httpClient *http.Client) *SMSProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMSProvider{
		logger:     logger.With("provider", "sms"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		senderID:   senderID,
	}
}

type smsGatewayMessage struct {
	Sender     string   `json:"sender"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type smsGatewayRequest struct {
	Messages []smsGatewayMessage `json:"messages"`
}

type smsGatewayResponse struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Messages []struct {
		ID        int64  `json:"id"`
		Recipient string `json:"recipient"`
		Status    int    `json:"status"`
	} `json:"messages"`
}

func (p *SMSProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	reqBody := smsGatewayRequest{
		Messages: []smsGatewayMessage{
			{Sender: p.senderID, Body: details.Content, Recipients: []string{details.Phone}},
		},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SMS gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create SMS gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "SMS gateway request failed", "error", err, "recipient_id", details.RecipientID)
		return nil, fmt.Errorf("failed to call SMS gateway: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read SMS gateway response: %w", err)
	}

	var gwResp smsGatewayResponse
	if err := json.Unmarshal(respBytes, &gwResp); err != nil {
		return nil, fmt.Errorf("failed to decode SMS gateway response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode >= 400 || gwResp.Status != 0 || len(gwResp.Messages) == 0 {
		errMsg := gwResp.Message
		if errMsg == "" {
			errMsg = fmt.Sprintf("sms gateway status %d", httpResp.StatusCode)
		}
		p.logger.WarnContext(ctx, "SMS send rejected",
			"status_code", httpResp.StatusCode, "gateway_status", gwResp.Status, "recipient_id", details.RecipientID)
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: fmt.Sprintf("GW_ERROR_%d", gwResp.Status),
			ErrorMessage:   errMsg,
		}, fmt.Errorf("sms send failed: %s", errMsg)
	}

	providerMsgID := fmt.Sprintf("%d", gwResp.Messages[0].ID)
	p.logger.InfoContext(ctx, "SMS accepted by gateway",
		"recipient_id", details.RecipientID, "provider_msg_id", providerMsgID)
	return &SendResponseDetails{
		ProviderMessageID: providerMsgID,
		IsSuccess:         true,
		ProviderStatus:    "ACCEPTED",
	}, nil
}

func (p *SMSProvider) GetName() string {
	return "sms"
}
