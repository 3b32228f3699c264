package core_domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTemplate_Validate(t *testing.T) {
	tmpl := &MessageTemplate{
		Name:    "payment_reminder_en",
		Content: "Dear {name}, your payment of {amount} is due on {due_date}. Chat: {chat_link}",
	}
	assert.NoError(t, tmpl.Validate())

	tmpl.Content = "Dear {name}, contact {agent_phone}"
	err := tmpl.Validate()
	assert.ErrorIs(t, err, ErrTemplate)
	assert.Contains(t, err.Error(), "agent_phone")
}

func TestMessageTemplate_Render(t *testing.T) {
	tmpl := &MessageTemplate{
		Name:    "payment_reminder_en",
		Content: "Dear {name}, {amount} is due on {due_date}.",
	}
	out, err := tmpl.Render(map[string]string{
		"name":     "Rajesh Kumar",
		"amount":   "₹45,000",
		"due_date": "15/09/2026",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Dear Rajesh Kumar, ₹45,000 is due on 15/09/2026.", out)
}

func TestMessageTemplate_Render_MissingValueRejected(t *testing.T) {
	tmpl := &MessageTemplate{
		Name:    "payment_reminder_en",
		Content: "Dear {name}, {amount} is due.",
	}
	_, err := tmpl.Render(map[string]string{"name": "Rajesh"})
	assert.ErrorIs(t, err, ErrTemplate)

	// Empty values are treated as missing.
	_, err = tmpl.Render(map[string]string{"name": "Rajesh", "amount": ""})
	assert.ErrorIs(t, err, ErrTemplate)
}

func TestMessageTemplate_Render_RepeatedPlaceholder(t *testing.T) {
	tmpl := &MessageTemplate{
		Name:    "nudge",
		Content: "{name}, this is for {name} only.",
	}
	out, err := tmpl.Render(map[string]string{"name": "Priya"})
	assert.NoError(t, err)
	assert.Equal(t, "Priya, this is for Priya only.", out)
}
