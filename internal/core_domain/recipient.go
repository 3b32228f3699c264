package core_domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// RecipientStatus defines the delivery lifecycle of a campaign recipient.
type RecipientStatus string

const (
	RecipientStatusPending   RecipientStatus = "pending"
	RecipientStatusSent      RecipientStatus = "sent"
	RecipientStatusDelivered RecipientStatus = "delivered"
	RecipientStatusRead      RecipientStatus = "read"
	RecipientStatusReplied   RecipientStatus = "replied"
	RecipientStatusFailed    RecipientStatus = "failed"
)

// statusRank orders the forward-only delivery progression. "failed" sits outside
// the progression: it is reachable from any non-terminal state and terminal for
// the send attempt (a resend resets the same row to pending).
var statusRank = map[RecipientStatus]int{
	RecipientStatusPending:   0,
	RecipientStatusSent:      1,
	RecipientStatusDelivered: 2,
	RecipientStatusRead:      3,
	RecipientStatusReplied:   4,
}

// CanTransitionTo reports whether moving from s to next is valid forward progress.
// Backward moves (e.g. read -> sent) are rejected so a late delivery webhook can
// never undo a more terminal state.
func (s RecipientStatus) CanTransitionTo(next RecipientStatus) bool {
	if s == next {
		return false
	}
	if s == RecipientStatusFailed {
		return next == RecipientStatusPending
	}
	if next == RecipientStatusFailed {
		return true
	}
	curRank, ok := statusRank[s]
	if !ok {
		return false
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}
	return nextRank > curRank
}

// Value implements driver.Valuer for RecipientStatus.
func (s RecipientStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner for RecipientStatus.
func (s *RecipientStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan RecipientStatus: value is %T, not string or []byte", value)
		}
		strVal = string(bytesVal)
	}
	*s = RecipientStatus(strVal)
	switch *s {
	case RecipientStatusPending, RecipientStatusSent, RecipientStatusDelivered,
		RecipientStatusRead, RecipientStatusReplied, RecipientStatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown RecipientStatus value: %s", strVal)
	}
}

// Recipient is one borrower's participation in one campaign. The unique link is
// issued once at registration and never changes; it is the token that binds an
// inbound web visit back to this row.
type Recipient struct {
	ID            string          `json:"id"` // UUID
	CampaignID    string          `json:"campaign_id"`
	BorrowerID    string          `json:"borrower_id"`
	DebtAccountID string          `json:"debt_account_id"`
	UniqueLink    string          `json:"unique_link"`
	Status        RecipientStatus `json:"status"`
	// ProviderMessageID is the channel's id for the campaign message sent to this
	// recipient; delivery-status webhooks are matched back through it.
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	RepliedAt         *time.Time `json:"replied_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
