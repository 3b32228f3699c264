package llm

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

// ChatMessage is one turn in a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// TextGenerator produces a model completion for a conversation. The responder
// depends on this interface so tests can use a canned implementation.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, messages []ChatMessage) (string, error)
}

// Client is an HTTP chat-completions client (OpenAI-compatible wire format).
type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func NewClient(logger *slog.Logger, baseURL, apiKey, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		logger:      logger.With("adapter", "llm"),
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		maxTokens:   500,
	}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) GenerateText(ctx context.Context, system string, messages []ChatMessage) (string, error) {
	all := make([]ChatMessage, 0, len(messages)+1)
	if system != "" {
		all = append(all, ChatMessage{Role: "system", Content: system})
	}
	all = append(all, messages...)

	reqBytes, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    all,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var resp completionResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return "", fmt.Errorf("failed to decode completion response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode >= 400 || resp.Error != nil {
		msg := fmt.Sprintf("completion api status %d", httpResp.StatusCode)
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", fmt.Errorf("completion failed: %s", msg)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
