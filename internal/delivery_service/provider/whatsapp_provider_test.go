package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWhatsAppProvider_Send_Success(t *testing.T) {
	var gotReq waSendRequest
	var gotAuth, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"id":"wamid.ABC123"}]}`))
	}))
	defer server.Close()

	p := NewWhatsAppProvider(testLogger(), server.URL, "test-token", "1234567890", "91", server.Client())
	resp, err := p.Send(context.Background(), SendRequestDetails{
		RecipientID: "rec-1",
		Phone:       "+91 98765-43210",
		Content:     "Hello there",
	})

	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.Equal(t, "wamid.ABC123", resp.ProviderMessageID)
	assert.Equal(t, "ACCEPTED", resp.ProviderStatus)

	assert.Equal(t, "/1234567890/messages", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "whatsapp", gotReq.MessagingProduct)
	assert.Equal(t, "text", gotReq.Type)
	assert.Equal(t, "919876543210", gotReq.To)
	require.NotNil(t, gotReq.Text)
	assert.Equal(t, "Hello there", gotReq.Text.Body)
}

func TestWhatsAppProvider_Send_NationalNumberGetsCountryPrefix(t *testing.T) {
	var gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req waSendRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotTo = req.To
		w.Write([]byte(`{"messages":[{"id":"wamid.X"}]}`))
	}))
	defer server.Close()

	p := NewWhatsAppProvider(testLogger(), server.URL, "t", "pn", "91", server.Client())
	_, err := p.Send(context.Background(), SendRequestDetails{Phone: "9876543210", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "919876543210", gotTo)
}

func TestWhatsAppProvider_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid recipient","type":"OAuthException","code":131026}}`))
	}))
	defer server.Close()

	p := NewWhatsAppProvider(testLogger(), server.URL, "t", "pn", "91", server.Client())
	resp, err := p.Send(context.Background(), SendRequestDetails{Phone: "9876543210", Content: "hi"})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.IsSuccess)
	assert.Equal(t, "WA_ERROR_131026", resp.ProviderStatus)
	assert.Equal(t, "Invalid recipient", resp.ErrorMessage)
}

func TestWhatsAppProvider_Send_EmptyMessageList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	p := NewWhatsAppProvider(testLogger(), server.URL, "t", "pn", "91", server.Client())
	_, err := p.Send(context.Background(), SendRequestDetails{Phone: "9876543210", Content: "hi"})
	assert.Error(t, err)
}
