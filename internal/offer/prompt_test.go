package offer

import (
	"strings"
	"testing"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

func TestComposePromptDeterministic(t *testing.T) {
	req := mustNormalize(t, validForm())
	a, b := strategy.MustLookup(req.StrategyA), strategy.MustLookup(req.StrategyB)

	first := ComposePrompt(req, a, b)
	for i := 0; i < 5; i++ {
		if got := ComposePrompt(req, a, b); got != first {
			t.Fatalf("prompt changed on call %d", i+2)
		}
	}
}

func TestComposePromptIncludesFactsWeightsAndGuidance(t *testing.T) {
	req := mustNormalize(t, validForm())
	a, b := strategy.MustLookup(req.StrategyA), strategy.MustLookup(req.StrategyB)
	prompt := ComposePrompt(req, a, b)

	for _, want := range []string{
		"- ARV (After Repair Value): $300,000",
		"- Current Mortgage: $210,000",
		"- Seller's Cash Request: $15,000",
		"- Priorities: speed, credit protection",
		"- Max Cash Offer: 70% of ARV",
		"Offer A: " + a.Name + " [key: subject_to] (Weight: 80% - MORE attractive)",
		"Offer B: " + b.Name + " [key: cash] (Weight: 20% - LESS attractive)",
		strings.ToUpper(a.Name),
		strings.ToUpper(b.Name),
		`"offers": [`,
		`"investor_notes"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Index(prompt, strings.ToUpper(a.Name)) > strings.Index(prompt, strings.ToUpper(b.Name)+" (") {
		t.Error("strategy guidance should follow slot order")
	}
	for _, other := range []strategy.Kind{strategy.LeaseOption, strategy.SellerFinancing, strategy.Hybrid} {
		name := strings.ToUpper(strategy.MustLookup(other).Name) + " ("
		if strings.Contains(prompt, name) {
			t.Errorf("guidance for %s should not be included", other)
		}
	}
}

func TestComposePromptDeduplicatesRepeatedStrategy(t *testing.T) {
	form := validForm()
	form["offer_a_strategy"] = "lease_option"
	form["offer_b_strategy"] = "LeaseOption"
	form["offer_a_weight"] = 50.0
	form["offer_b_weight"] = 50.0
	req := mustNormalize(t, form)
	def := strategy.MustLookup(strategy.LeaseOption)
	prompt := ComposePrompt(req, def, def)

	header := strings.ToUpper(def.Name) + " (" + def.Description + "):"
	if n := strings.Count(prompt, header); n != 1 {
		t.Fatalf("guidance block count=%d want=1", n)
	}
	if !strings.Contains(prompt, "EQUALLY attractive") {
		t.Error("expected equal-weight label")
	}
	if !strings.Contains(prompt, def.PairedVariantRule) {
		t.Error("expected paired variant rule for a repeated strategy")
	}
}
