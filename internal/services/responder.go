package services

import (
	"context"
	"strings"
)

// Responder produces the assistant reply to a customer chat message.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

const (
	ReplyEmergency = "I understand this is urgent. Let me get your information and we'll have a technician contact you within 15 minutes. What's your address?"
	ReplyBooking   = "I'd be happy to schedule an appointment for you. What type of service do you need? (AC repair, heating, maintenance, etc.)"
	ReplyPricing   = "Service call fees start at $89. The total cost depends on the specific repair needed. Would you like to schedule a diagnostic appointment?"
	ReplyFallback  = "I can help you with:\n• Schedule an appointment\n• Emergency service\n• Pricing information\n• Service history\n\nWhat would you like to do?"
)

type keywordRule struct {
	keywords []string
	reply    string
}

// KeywordResponder answers with a canned reply for the first matching category.
// Emergencies are checked first.
type KeywordResponder struct {
	rules    []keywordRule
	fallback string
}

func NewKeywordResponder() *KeywordResponder {
	return &KeywordResponder{
		rules: []keywordRule{
			{keywords: []string{"emergency", "urgent", "not working"}, reply: ReplyEmergency},
			{keywords: []string{"appointment", "schedule", "book"}, reply: ReplyBooking},
			{keywords: []string{"cost", "price", "how much"}, reply: ReplyPricing},
		},
		fallback: ReplyFallback,
	}
}

func (r *KeywordResponder) Respond(_ context.Context, text string) (string, error) {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply, nil
			}
		}
	}
	return r.fallback, nil
}
