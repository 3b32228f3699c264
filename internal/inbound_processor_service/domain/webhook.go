package domain

// WebhookPayload is the envelope WhatsApp posts to the webhook endpoint.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one account-level entry inside a webhook payload. The API
// service publishes entries individually to NATS, so this is also the unit the
// inbound processor consumes.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string          `json:"messaging_product"`
	Metadata         WebhookMetadata `json:"metadata"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []StatusUpdate   `json:"statuses,omitempty"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// InboundMessage is one user message inside a webhook entry.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"` // unix seconds, as a string
	Type        string              `json:"type"`
	Text        *TextBody           `json:"text,omitempty"`
	Image       *MediaAttachment    `json:"image,omitempty"`
	Video       *MediaAttachment    `json:"video,omitempty"`
	Audio       *MediaAttachment    `json:"audio,omitempty"`
	Document    *MediaAttachment    `json:"document,omitempty"`
	Interactive *InteractiveMessage `json:"interactive,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type MediaAttachment struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// InteractiveMessage is a button click or list selection.
type InteractiveMessage struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// StatusUpdate is a delivery receipt for an outbound message.
type StatusUpdate struct {
	ID          string `json:"id"` // provider message id
	Status      string `json:"status"` // sent, delivered, read, failed
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}
