package app

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Intent labels produced by the classifier.
const (
	IntentPaymentInquiry = "payment_inquiry"
	IntentPaymentPromise = "payment_promise"
	IntentDispute        = "dispute"
	IntentHardship       = "hardship"
	IntentSettlement     = "settlement"
	IntentEMIRequest     = "emi_request"
	IntentGeneralInquiry = "general_inquiry"
)

// Entities are the structured values pulled out of a borrower message.
type Entities struct {
	Amounts      []float64 `json:"amounts,omitempty"`
	Dates        []string  `json:"dates,omitempty"`
	PhoneNumbers []string  `json:"phone_numbers,omitempty"`
}

// IntentClassifier labels a borrower message with an intent and extracts
// entities. Implementations may be keyword-based or model-backed.
type IntentClassifier interface {
	Classify(ctx context.Context, message, language string) (intent string, entities Entities)
}

// intentKeywords is checked in order; the first intent with a keyword hit wins.
var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentPaymentPromise, []string{"will pay", "can pay", "tomorrow", "next week", "भुगतान करूंगा", "पैसे दूंगा"}},
	{IntentPaymentInquiry, []string{"payment", "pay", "amount", "due", "भुगतान", "पैसा", "रकम"}},
	{IntentDispute, []string{"wrong", "mistake", "not mine", "dispute", "गलत", "गलती"}},
	{IntentHardship, []string{"problem", "difficulty", "job loss", "medical", "समस्या", "परेशानी"}},
	{IntentSettlement, []string{"settle", "discount", "reduce", "समझौता", "कम"}},
	{IntentEMIRequest, []string{"installment", "emi", "monthly", "किस्त", "मासिक"}},
}

var (
	amountPattern = regexp.MustCompile(`₹?(\d+(?:,\d+)*(?:\.\d{2})?)`)
	datePattern   = regexp.MustCompile(`(?i)(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})|tomorrow|next week|अगले सप्ताह|कल`)
	phonePattern  = regexp.MustCompile(`(\+91|91)?[-\s]?[6-9]\d{9}`)
)

// KeywordClassifier is the default, dependency-free classifier: keyword tables
// for intent, regexes for entities.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(ctx context.Context, message, language string) (string, Entities) {
	return c.intentOf(message), c.entitiesOf(message)
}

func (c *KeywordClassifier) intentOf(message string) string {
	lower := strings.ToLower(message)
	for _, group := range intentKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return group.intent
			}
		}
	}
	return IntentGeneralInquiry
}

func (c *KeywordClassifier) entitiesOf(message string) Entities {
	var entities Entities

	for _, match := range amountPattern.FindAllStringSubmatch(message, -1) {
		raw := strings.ReplaceAll(match[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			entities.Amounts = append(entities.Amounts, v)
		}
	}
	entities.Dates = datePattern.FindAllString(message, -1)
	entities.PhoneNumbers = phonePattern.FindAllString(message, -1)

	return entities
}

// suggestedActions maps an intent to the follow-up actions offered to the
// operator UI alongside the generated reply.
var suggestedActions = map[string][]string{
	IntentPaymentInquiry: {"show_payment_options", "calculate_interest", "payment_history"},
	IntentPaymentPromise: {"schedule_followup", "send_payment_link", "confirm_amount"},
	IntentDispute:        {"escalate_to_agent", "request_documents", "schedule_call"},
	IntentHardship:       {"offer_emi_plan", "discuss_settlement", "financial_counseling"},
	IntentSettlement:     {"calculate_settlement", "get_approval", "generate_offer"},
	IntentEMIRequest:     {"calculate_emi", "show_emi_options", "setup_autopay"},
}

// SuggestedActionsFor returns the follow-up actions for an intent.
func SuggestedActionsFor(intent string) []string {
	if actions, ok := suggestedActions[intent]; ok {
		return actions
	}
	return []string{"general_assistance", "escalate_to_agent"}
}
