package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paymitra/paymitra/internal/chat_service/adapters/llm"
	"github.com/paymitra/paymitra/internal/core_domain"
)

// GeneratedReply is the responder's full output for one borrower message.
type GeneratedReply struct {
	Content          string   `json:"content"`
	Language         string   `json:"language"`
	Intent           string   `json:"intent"`
	Entities         Entities `json:"entities"`
	Confidence       float64  `json:"confidence"`
	SuggestedActions []string `json:"suggested_actions"`
}

// systemPrompts maps a language code to the responder's base system prompt.
// Lookups fall back to "en".
var systemPrompts = map[string]string{
	"hi": `आप एक पेशेवर और सहानुभूतिपूर्ण ऋण वसूली सहायक हैं।

महत्वपूर्ण दिशानिर्देश:
- हमेशा सम्मानजनक, पेशेवर और RBI दिशानिर्देशों का अनुपालन करें
- कभी भी आक्रामक, धमकी भरा या परेशान करने वाला न हों
- पारस्परिक रूप से लाभकारी समाधान खोजने पर ध्यान दें
- भुगतान योजना, EMI विकल्प और निपटान चर्चा की पेशकश करें
- भारतीय संदर्भ के लिए सांस्कृतिक रूप से संवेदनशील और उपयुक्त रहें`,

	"en": `You are a professional, empathetic debt collection assistant for India.

IMPORTANT GUIDELINES:
- Always be respectful, professional, and compliant with RBI guidelines
- Never be aggressive, threatening, or harassing
- Focus on finding mutually beneficial solutions
- Offer payment plans, EMI options, and settlement discussions
- Be culturally sensitive and appropriate for Indian context`,

	"en-IN": `Aap ek professional aur empathetic debt collection assistant hain India ke liye.

IMPORTANT GUIDELINES:
- Hamesha respectful, professional aur RBI guidelines ke compliant rahiye
- Kabhi bhi aggressive, threatening ya harassing na baniye
- Mutually beneficial solutions dhundne par focus kariye
- Payment plans, EMI options aur settlement discussions offer kariye
- Indian context ke liye culturally sensitive aur appropriate rahiye`,
}

// fallbackReplies is used verbatim when the model is unreachable. Keyed by the
// borrower's preferred language, falling back to "en".
var fallbackReplies = map[string]string{
	"hi":    "नमस्ते %s! मैं आपकी सहायता करने के लिए यहाँ हूँ। आपका बकाया राशि ₹%s है। कृपया बताएं कि मैं आपकी कैसे मदद कर सकता हूँ?",
	"en":    "Hello %s! I'm here to help you. Your outstanding amount is ₹%s. How can I assist you today?",
	"en-IN": "Hello %s! Main aapki help karne ke liye yahan hun. Aapka outstanding amount ₹%s hai. Kya main aapki koi help kar sakta hun?",
}

// Responder turns an inbound borrower message into a reply. Model failures
// never surface as errors; the caller always gets a usable reply, just with a
// lower confidence.
type Responder struct {
	generator  llm.TextGenerator
	classifier IntentClassifier
	timeout    time.Duration
	logger     *slog.Logger
}

func NewResponder(generator llm.TextGenerator, classifier IntentClassifier, timeout time.Duration, logger *slog.Logger) *Responder {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Responder{
		generator:  generator,
		classifier: classifier,
		timeout:    timeout,
		logger:     logger.With("service", "responder"),
	}
}

// GenerateReply produces the assistant's reply for one borrower message.
// history is the recent transcript, oldest first, as "sender: text" lines.
func (r *Responder) GenerateReply(ctx context.Context, borrower *core_domain.Borrower, account *core_domain.DebtAccount, message string, history []string) *GeneratedReply {
	language := DetectLanguage(message)
	intent, entities := r.classifier.Classify(ctx, message, language)

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	content, err := r.generator.GenerateText(genCtx, r.systemPrompt(language, borrower, account), []llm.ChatMessage{
		{Role: "system", Content: r.contextPrompt(history, borrower, account)},
		{Role: "user", Content: message},
	})
	if err != nil {
		r.logger.WarnContext(ctx, "Model generation failed, using fallback reply",
			"error", err, "borrower_id", borrower.ID, "language", language)
		return r.fallback(borrower, account)
	}

	return &GeneratedReply{
		Content:          content,
		Language:         language,
		Intent:           intent,
		Entities:         entities,
		Confidence:       0.9,
		SuggestedActions: SuggestedActionsFor(intent),
	}
}

func (r *Responder) systemPrompt(language string, borrower *core_domain.Borrower, account *core_domain.DebtAccount) string {
	base, ok := systemPrompts[language]
	if !ok {
		base = systemPrompts["en"]
	}
	return fmt.Sprintf(`%s

BORROWER INFORMATION:
- Name: %s
- Account: %s
- Outstanding Amount: ₹%s
- Due Date: %s
- Status: %s

COMPLIANCE REQUIREMENTS:
- Never threaten legal action unless specifically authorized
- Always offer reasonable payment options
- Respect if customer requests to stop communication
- Maintain professional tone throughout

Your goal is to recover debt while maintaining customer relationships and following all regulatory guidelines.`,
		base, borrower.Name, account.AccountNumber,
		core_domain.FormatINR(account.OutstandingAmount),
		account.DueDate.Format("02/01/2006"), account.Status)
}

func (r *Responder) contextPrompt(history []string, borrower *core_domain.Borrower, account *core_domain.DebtAccount) string {
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	return fmt.Sprintf(`CONVERSATION CONTEXT:
Borrower: %s
Outstanding Amount: ₹%s
Account Status: %s
Preferred Language: %s

RECENT CONVERSATION:
%s

Please respond appropriately based on the context and maintain consistency with previous interactions.`,
		borrower.Name, core_domain.FormatINR(account.OutstandingAmount),
		account.Status, borrower.PreferredLanguage, strings.Join(recent, "\n"))
}

// fallback is deterministic: same borrower and account always produce the same
// reply text.
func (r *Responder) fallback(borrower *core_domain.Borrower, account *core_domain.DebtAccount) *GeneratedReply {
	language := borrower.PreferredLanguage
	if language == "" {
		language = "en"
	}
	format, ok := fallbackReplies[language]
	if !ok {
		format = fallbackReplies["en"]
	}
	return &GeneratedReply{
		Content:          fmt.Sprintf(format, borrower.Name, core_domain.FormatINR(account.OutstandingAmount)),
		Language:         language,
		Intent:           IntentGeneralInquiry,
		Entities:         Entities{},
		Confidence:       0.5,
		SuggestedActions: []string{"general_assistance", "payment_options"},
	}
}
