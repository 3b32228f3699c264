package core_domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TemplatePlaceholders is the fixed placeholder set message templates may reference.
var TemplatePlaceholders = []string{"name", "amount", "due_date", "account_number", "chat_link"}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// MessageTemplate is a typed outbound message template. Placeholders are declared
// up front and validated at registration, not discovered at send time.
type MessageTemplate struct {
	ID                 string    `json:"id"` // UUID
	Name               string    `json:"name"`
	Language           string    `json:"language"`
	Type               string    `json:"type"`
	Content            string    `json:"content"`
	IsApproved         bool      `json:"is_approved"`
	WhatsAppTemplateID *string   `json:"whatsapp_template_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks that the template content references only declared placeholders.
func (t *MessageTemplate) Validate() error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(t.Content, -1) {
		name := match[1]
		known := false
		for _, p := range TemplatePlaceholders {
			if name == p {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown placeholder {%s} in template %q", ErrTemplate, name, t.Name)
		}
	}
	return nil
}

// Render substitutes the placeholder values into the template content.
// Every placeholder referenced by the content must be present in values;
// a missing value is rejected rather than left verbatim, so a half-rendered
// message can never reach a borrower.
func (t *MessageTemplate) Render(values map[string]string) (string, error) {
	result := t.Content
	for _, match := range placeholderPattern.FindAllStringSubmatch(t.Content, -1) {
		name := match[1]
		value, ok := values[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: no value for placeholder {%s} in template %q", ErrTemplate, name, t.Name)
		}
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}
	return result, nil
}
