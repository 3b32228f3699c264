package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier_Intents(t *testing.T) {
	c := NewKeywordClassifier()
	ctx := context.Background()

	cases := []struct {
		message string
		want    string
	}{
		{"I will pay tomorrow", IntentPaymentPromise},
		{"What is my due amount?", IntentPaymentInquiry},
		{"This charge is wrong, not mine", IntentDispute},
		{"I lost my job, medical problem at home", IntentHardship},
		{"Can we settle with a discount?", IntentSettlement},
		{"Monthly installments would work for me", IntentEMIRequest},
		{"Hello, who is this?", IntentGeneralInquiry},
		{"भुगतान करूंगा अगले हफ्ते", IntentPaymentPromise},
		{"किस्त में दे सकता हूँ क्या", IntentEMIRequest},
	}
	for _, tc := range cases {
		intent, _ := c.Classify(ctx, tc.message, "en")
		assert.Equal(t, tc.want, intent, "message %q", tc.message)
	}
}

func TestKeywordClassifier_PromiseWinsOverInquiry(t *testing.T) {
	c := NewKeywordClassifier()
	// "will pay" mentions payment too; the promise must win.
	intent, _ := c.Classify(context.Background(), "I will pay the payment next week", "en")
	assert.Equal(t, IntentPaymentPromise, intent)
}

func TestKeywordClassifier_Entities(t *testing.T) {
	c := NewKeywordClassifier()
	_, entities := c.Classify(context.Background(),
		"I can pay ₹15,000 on 15/09/2026, call me at 9876543210", "en")

	assert.Contains(t, entities.Amounts, float64(15000))
	assert.Contains(t, entities.Dates, "15/09/2026")
	assert.NotEmpty(t, entities.PhoneNumbers)
}

func TestKeywordClassifier_EmptyEntities(t *testing.T) {
	c := NewKeywordClassifier()
	_, entities := c.Classify(context.Background(), "Hello there", "en")
	assert.Empty(t, entities.Amounts)
	assert.Empty(t, entities.Dates)
	assert.Empty(t, entities.PhoneNumbers)
}

func TestSuggestedActionsFor(t *testing.T) {
	assert.Equal(t, []string{"calculate_emi", "show_emi_options", "setup_autopay"}, SuggestedActionsFor(IntentEMIRequest))
	assert.Equal(t, []string{"general_assistance", "escalate_to_agent"}, SuggestedActionsFor(IntentGeneralInquiry))
	assert.Equal(t, []string{"general_assistance", "escalate_to_agent"}, SuggestedActionsFor("something_else"))
}
