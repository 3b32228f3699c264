package http

import "time"

// SetupCampaignRequest registers borrowers as recipients of a campaign.
type SetupCampaignRequest struct {
	BorrowerIDs []string `json:"borrower_ids" validate:"required,min=1,dive,uuid4"`
}

// SetupCampaignResponse reports how many recipients were registered.
type SetupCampaignResponse struct {
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
}

// SendCampaignResponse acknowledges an enqueued send job.
type SendCampaignResponse struct {
	Message string `json:"message"`
}

// RegisterTemplateRequest creates a message template.
type RegisterTemplateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Language   string `json:"language" validate:"required"`
	Type       string `json:"type" validate:"required"`
	Content    string `json:"content" validate:"required"`
	IsApproved bool   `json:"is_approved"`
}

// RegisterTemplateResponse returns the stored template id.
type RegisterTemplateResponse struct {
	ID string `json:"id"`
}

// StartSessionResponse is returned when a borrower opens their chat link.
type StartSessionResponse struct {
	SessionToken      string  `json:"session_token"`
	Language          string  `json:"language"`
	BorrowerName      string  `json:"borrower_name"`
	AccountNumber     string  `json:"account_number"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	DueDate           string  `json:"due_date"`
}

// ChatMessageRequest is one user message in a web chat session.
type ChatMessageRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
	Message      string `json:"message" validate:"required,min=1,max=4000"`
}

// ChatMessageResponse carries the generated reply.
type ChatMessageResponse struct {
	Reply            string   `json:"reply"`
	Language         string   `json:"language"`
	Intent           string   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	SuggestedActions []string `json:"suggested_actions"`
}

// ChatHistoryMessage is one transcript entry.
type ChatHistoryMessage struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	Type    string    `json:"type"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// ChatHistoryResponse is the ordered session transcript.
type ChatHistoryResponse struct {
	Messages []ChatHistoryMessage `json:"messages"`
}

// GenericErrorResponse for API errors.
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
