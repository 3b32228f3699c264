package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WhatsAppProvider sends text messages through the WhatsApp Cloud (Graph) API.
type WhatsAppProvider struct {
	logger        *slog.Logger
	httpClient    *http.Client
	baseURL       string // e.g. "https://graph.facebook.com/v19.0"
	accessToken   string
	phoneNumberID string
	countryPrefix string // prepended to bare 10-digit national numbers
}

func NewWhatsAppProvider(logger *slog.Logger, baseURL, accessToken, phoneNumberID, countryPrefix string, httpClient *http.Client) *WhatsAppProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WhatsAppProvider{
		logger:        logger.With("provider", "whatsapp"),
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		countryPrefix: countryPrefix,
	}
}

type waTextObject struct {
	Body string `json:"body"`
}

type waSendRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *waTextObject `json:"text,omitempty"`
}

type waSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (p *WhatsAppProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	to := p.normalizePhone(details.Phone)
	reqBody := waSendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &waTextObject{Body: details.Content},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WhatsApp request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", p.baseURL, p.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.accessToken)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "WhatsApp request failed", "error", err, "recipient_id", details.RecipientID)
		return nil, fmt.Errorf("failed to call WhatsApp API: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read WhatsApp response: %w", err)
	}

	var waResp waSendResponse
	if err := json.Unmarshal(respBytes, &waResp); err != nil {
		return nil, fmt.Errorf("failed to decode WhatsApp response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode >= 400 || waResp.Error != nil {
		errMsg := fmt.Sprintf("whatsapp api status %d", httpResp.StatusCode)
		status := "HTTP_ERROR"
		if waResp.Error != nil {
			errMsg = waResp.Error.Message
			status = fmt.Sprintf("WA_ERROR_%d", waResp.Error.Code)
		}
		p.logger.WarnContext(ctx, "WhatsApp send rejected",
			"status_code", httpResp.StatusCode, "provider_status", status, "recipient_id", details.RecipientID)
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: status,
			ErrorMessage:   errMsg,
		}, fmt.Errorf("whatsapp send failed: %s", errMsg)
	}

	if len(waResp.Messages) == 0 {
		return nil, fmt.Errorf("whatsapp response contained no message id")
	}

	p.logger.InfoContext(ctx, "WhatsApp message accepted",
		"recipient_id", details.RecipientID, "provider_msg_id", waResp.Messages[0].ID)
	return &SendResponseDetails{
		ProviderMessageID: waResp.Messages[0].ID,
		IsSuccess:         true,
		ProviderStatus:    "ACCEPTED",
	}, nil
}

// normalizePhone strips formatting and prefixes bare national numbers with the
// configured country code, as the Graph API wants full international numbers
// without the plus sign.
func (p *WhatsAppProvider) normalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 10 && p.countryPrefix != "" {
		normalized = p.countryPrefix + normalized
	}
	return normalized
}

func (p *WhatsAppProvider) GetName() string {
	return "whatsapp"
}
