package offer

import (
	"context"
	"sync"
	"testing"
)

func validForm() map[string]any {
	return map[string]any{
		"address":             "1420 Juniper Ave",
		"arv":                 "300000",
		"mortgage_balance":    210000.0,
		"monthly_payment":     "1,850",
		"arrears":             "6000",
		"closing_costs":       "",
		"condition":           6.0,
		"seller_name":         "Dana Ortiz",
		"motivation":          "8",
		"pain_point":          "Behind on payments after a job change",
		"timeline":            "30-60 days",
		"seller_cash_request": "15000",
		"priorities":          []any{"speed", "credit protection"},
		"max_offer_pct":       "70",
		"exit_strategy":       "rental",
		"offer_a_strategy":    "SubjectTo",
		"offer_a_weight":      80.0,
		"offer_b_strategy":    "AllCash",
		"offer_b_weight":      "20",
	}
}

func mustNormalize(t *testing.T, form map[string]any) OfferRequest {
	t.Helper()
	req, err := Normalize(form)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return req
}

const wellFormedReply = "```json\n" + `{
  "offers": [
    {
      "slot": "A",
      "strategy": "subject_to",
      "headline": "Keep your credit clean and walk away with cash",
      "terms": {
        "purchase_price": 300000,
        "cash_at_closing": 15000,
        "monthly_payment": 1850,
        "financing_structure": "Take over existing loan subject-to",
        "timeline_days": 21,
        "conditions": ["Clear title", "Loan statement verified"]
      },
      "seller_benefits": ["Arrears cured at closing", "Full cash request met", "No agent fees"],
      "presentation_script": [
        "Dana, I've put together an option that brings your loan current right away.",
        "You'd receive the full $15,000 you asked for at closing."
      ],
      "investor_notes": ["Confirm due-on-sale exposure with the title company", "Fallback: reduce cash to $12,000"]
    },
    {
      "slot": "B",
      "strategy": "AllCash",
      "headline": "Fast cash close",
      "terms": {
        "purchase_price": "210000",
        "cash_at_closing": 0,
        "monthly_payment": null,
        "financing_structure": "Cash purchase",
        "timeline_days": "14",
        "conditions": []
      },
      "seller_benefits": ["Closes in two weeks"],
      "presentation_script": "The second option is a straight cash purchase.\nIt closes in about two weeks.",
      "investor_notes": "Only viable if the payoff comes in lower than expected."
    }
  ],
  "comparison_intro": "I have two ways we can do this.",
  "closing_question": "Which of these fits your situation better?",
  "comparison_notes": ["Offer A nets more cash", "Offer B closes faster"]
}` + "\n```"

type fakeGenerator struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	prompt string
	model  string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, StageAttemptMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", StageAttemptMetrics{Attempts: 3}, f.err
	}
	return f.reply, StageAttemptMetrics{Attempts: 1}, nil
}

func (f *fakeGenerator) ModelName() string {
	if f.model == "" {
		return "fake-model"
	}
	return f.model
}
