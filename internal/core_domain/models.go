package core_domain

import "time"

// Borrower is a debtor reachable by the gateway. The borrower store is managed
// elsewhere; this service only reads it.
type Borrower struct {
	ID                string    `json:"id"` // UUID
	AccountNumber     string    `json:"account_number"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             *string   `json:"email,omitempty"`
	Address           *string   `json:"address,omitempty"`
	PreferredLanguage string    `json:"preferred_language"` // e.g. "hi", "en", "en-IN"
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DebtAccountStatus defines the possible states of a debt account.
type DebtAccountStatus string

const (
	DebtAccountStatusActive     DebtAccountStatus = "active"
	DebtAccountStatusOverdue    DebtAccountStatus = "overdue"
	DebtAccountStatusSettled    DebtAccountStatus = "settled"
	DebtAccountStatusLegal      DebtAccountStatus = "legal"
	DebtAccountStatusWrittenOff DebtAccountStatus = "written_off"
)

// DebtAccount is one outstanding debt owed by a borrower.
type DebtAccount struct {
	ID                string            `json:"id"` // UUID
	BorrowerID        string            `json:"borrower_id"`
	AccountNumber     string            `json:"account_number"`
	OriginalAmount    float64           `json:"original_amount"`
	OutstandingAmount float64           `json:"outstanding_amount"`
	DueDate           time.Time         `json:"due_date"`
	Status            DebtAccountStatus `json:"status"`
	InterestRate      *float64          `json:"interest_rate,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// CampaignType defines what kind of outreach a campaign performs.
type CampaignType string

const (
	CampaignTypePaymentReminder CampaignType = "payment_reminder"
	CampaignTypeEMIOffer        CampaignType = "emi_offer"
	CampaignTypeSettlement      CampaignType = "settlement"
	CampaignTypeFinalNotice     CampaignType = "final_notice"
)

// CampaignStatus defines the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign groups a message template with a set of recipients.
type Campaign struct {
	ID             string         `json:"id"` // UUID
	Name           string         `json:"name"`
	Description    *string        `json:"description,omitempty"`
	Type           CampaignType   `json:"type"`
	Status         CampaignStatus `json:"status"`
	TemplateID     *string        `json:"template_id,omitempty"`
	TargetLanguage *string        `json:"target_language,omitempty"`
	CreatedBy      *string        `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SessionPlatform is the channel a conversation takes place on.
type SessionPlatform string

const (
	PlatformWeb      SessionPlatform = "web"
	PlatformWhatsApp SessionPlatform = "whatsapp"
	PlatformSMS      SessionPlatform = "sms"
)

// SessionStatus defines the lifecycle states of a conversation session.
type SessionStatus string

const (
	SessionStatusActive      SessionStatus = "active"
	SessionStatusClosed      SessionStatus = "closed"
	SessionStatusTransferred SessionStatus = "transferred"
)

// IsTerminal reports whether no further transitions are allowed from this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusClosed || s == SessionStatusTransferred
}

// Session is one ongoing conversation with a borrower on one platform.
// The session token is the only handle exposed outside the service.
type Session struct {
	ID           string            `json:"id"` // UUID
	BorrowerID   string            `json:"borrower_id"`
	CampaignID   *string           `json:"campaign_id,omitempty"`
	SessionToken string            `json:"session_token"`
	Platform     SessionPlatform   `json:"platform"`
	Language     string            `json:"language"`
	Status       SessionStatus     `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
}

// MessageSender identifies who produced a conversation message.
type MessageSender string

const (
	SenderUser  MessageSender = "user"
	SenderBot   MessageSender = "bot"
	SenderAgent MessageSender = "agent"
)

// MessageType is the content type of a conversation message.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
)

// Message is one utterance within a session. Messages are append-only and ordered
// by SentAt; only DeliveredAt/ReadAt may be set after creation (from status webhooks).
type Message struct {
	ID                string            `json:"id"` // UUID
	SessionID         string            `json:"session_id"`
	Sender            MessageSender     `json:"sender"`
	Type              MessageType       `json:"type"`
	Content           string            `json:"content"`
	OriginalLanguage  *string           `json:"original_language,omitempty"`
	TranslatedContent *string           `json:"translated_content,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	ProviderMessageID *string           `json:"provider_message_id,omitempty"`
	SentAt            time.Time         `json:"sent_at"`
	DeliveredAt       *time.Time        `json:"delivered_at,omitempty"`
	ReadAt            *time.Time        `json:"read_at,omitempty"`
}
