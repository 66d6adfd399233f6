package offer

import (
	"fmt"
	"strings"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

const SystemPrompt = "You are an expert real estate investor and negotiation strategist. " +
	"Generate realistic, strategic offer scenarios. Respond with strict JSON only."

const weightingGuidance = `The weighting determines relative attractiveness to the seller:
- Higher weight (>50%) = more attractive terms for the seller: higher price, more cash, faster close, better terms.
- Lower weight (<50%) = less attractive but still legitimate: lower price, less cash, longer timeline.
- Equal weight (50/50) = both equally attractive with different benefits.
Scale the difference between the two offers in proportion to the gap between the weights.`

const scriptAccuracyRules = `PRESENTATION SCRIPT ACCURACY:
- Describe cash amounts exactly as they appear in the terms.
- Only say "more than your request" when total cash actually exceeds the seller's cash request.
- If total cash equals the request, emphasise timing, certainty or tax benefits instead.
- Never use "bonus" or "additional" language when offering less than the seller's request.
- When offering less than requested, state it plainly (e.g. "$5,400, which is 90% of your $6,000 request").`

const outputSchemaPrompt = `Required JSON schema (return exactly two entries in "offers", Offer A first):
{
  "offers": [
    {
      "slot": "A | B",
      "strategy": "strategy key given for this slot",
      "headline": "string",
      "terms": {
        "purchase_price": "number (whole dollars)",
        "cash_at_closing": "number (net to seller at closing, whole dollars)",
        "monthly_payment": "number or null (required for lease option and seller financing)",
        "financing_structure": "string",
        "timeline_days": "integer",
        "conditions": ["string"]
      },
      "seller_benefits": ["string (3-4 entries)"],
      "presentation_script": ["string (one spoken line per entry, in order)"],
      "investor_notes": ["string (negotiation tips and fallback positions)"]
    }
  ],
  "comparison_intro": "string (script for presenting both offers together)",
  "closing_question": "string (question to ask after presenting both offers)",
  "comparison_notes": ["string (how the two offers trade off)"]
}
Numbers must be plain JSON numbers without currency symbols or separators. Never omit a section.`

// ComposePrompt renders the request into the model instruction set. The
// output depends only on its arguments.
func ComposePrompt(req OfferRequest, a, b strategy.Definition) string {
	var sb strings.Builder
	sb.WriteString("You are creating two strategic offer scenarios for a motivated seller.\n\n")

	sb.WriteString("PROPERTY DETAILS:\n")
	if req.Property.Address != "" {
		fmt.Fprintf(&sb, "- Address: %s\n", req.Property.Address)
	}
	fmt.Fprintf(&sb, "- ARV (After Repair Value): %s\n", FormatMoney(req.Property.ARV))
	fmt.Fprintf(&sb, "- Current Mortgage: %s\n", FormatMoney(req.Property.MortgageBalance))
	fmt.Fprintf(&sb, "- Arrears/Back Payments: %s\n", FormatMoney(req.Property.Arrears))
	fmt.Fprintf(&sb, "- Monthly Payment (PITI): %s\n", FormatMoney(req.Property.MonthlyPayment))
	fmt.Fprintf(&sb, "- Estimated Closing Costs: %s\n", FormatMoney(req.Property.ClosingCosts))
	fmt.Fprintf(&sb, "- Property Condition: %d/10\n\n", req.Property.Condition)

	sb.WriteString("SELLER SITUATION:\n")
	fmt.Fprintf(&sb, "- Motivation Score: %d/10\n", req.Seller.Motivation)
	fmt.Fprintf(&sb, "- Primary Pain Point: %s\n", orNotProvided(req.Seller.PainPoint))
	fmt.Fprintf(&sb, "- Timeline: %s\n", orNotProvided(req.Seller.Timeline))
	fmt.Fprintf(&sb, "- Seller's Cash Request: %s\n", FormatMoney(req.Seller.CashRequest))
	fmt.Fprintf(&sb, "- Priorities: %s\n\n", orNotProvided(strings.Join(req.Seller.Priorities, ", ")))

	sb.WriteString("INVESTOR CRITERIA:\n")
	if req.Investor.MaxOfferPercent != nil {
		fmt.Fprintf(&sb, "- Max Cash Offer: %s of ARV (only applies to all-cash offers)\n", FormatPercent(*req.Investor.MaxOfferPercent))
	} else {
		sb.WriteString("- Max Cash Offer: not set\n")
	}
	fmt.Fprintf(&sb, "- Minimum Profit Target: %s\n", FormatMoney(req.Investor.MinProfit))
	fmt.Fprintf(&sb, "- Available Cash: %s\n", FormatMoney(req.Investor.AvailableCash))
	fmt.Fprintf(&sb, "- Exit Strategy: %s\n\n", req.Investor.ExitStrategy)

	sb.WriteString("CREATIVE FINANCING TERMS:\n")
	fmt.Fprintf(&sb, "- Option Term: %d months (for Lease Option)\n", req.Creative.OptionTermMonths)
	fmt.Fprintf(&sb, "- Additional Option Price: %s (for Lease Option)\n", FormatMoney(req.Creative.AdditionalOptionPrice))
	fmt.Fprintf(&sb, "- Monthly Payment Markup: %s (for Seller Financing Wrap)\n", FormatMoney(req.Creative.MonthlyPaymentMarkup))
	fmt.Fprintf(&sb, "- Additional Purchase Price: %s (for Seller Financing Wrap)\n\n", FormatMoney(req.Creative.AdditionalPurchasePrice))

	sb.WriteString("OFFER STRATEGIES:\n")
	fmt.Fprintf(&sb, "Offer A: %s [key: %s] (Weight: %s%% - %s)\n", a.Name, a.Key, FormatWeight(req.Weights.A), attractiveness(req.Weights.A))
	fmt.Fprintf(&sb, "Offer B: %s [key: %s] (Weight: %s%% - %s)\n\n", b.Name, b.Key, FormatWeight(req.Weights.B), attractiveness(req.Weights.B))

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("Generate TWO complete offer scenarios using EXACTLY the strategies specified above.\n")
	fmt.Fprintf(&sb, "- Offer A MUST use the strategy: %s\n", a.Name)
	fmt.Fprintf(&sb, "- Offer B MUST use the strategy: %s\n", b.Name)
	if a.Kind == b.Kind {
		fmt.Fprintf(&sb, "- Both offers use %s; differentiate them as described below.\n\n", a.Name)
	} else {
		sb.WriteString("- Do not produce variations of a single strategy.\n\n")
	}
	sb.WriteString(weightingGuidance)
	sb.WriteString("\n\n")

	sb.WriteString("STRATEGY GUIDANCE:\n")
	defs := []strategy.Definition{a}
	if b.Kind != a.Kind {
		defs = append(defs, b)
	}
	for _, d := range defs {
		writeStrategyGuidance(&sb, d, a.Kind == b.Kind)
	}

	sb.WriteString(scriptAccuracyRules)
	sb.WriteString("\n\n")
	sb.WriteString(outputSchemaPrompt)
	sb.WriteString("\n\nRespond with only valid JSON matching the schema.")
	return sb.String()
}

func writeStrategyGuidance(sb *strings.Builder, d strategy.Definition, paired bool) {
	fmt.Fprintf(sb, "%s (%s):\n", strings.ToUpper(d.Name), d.Description)
	fmt.Fprintf(sb, "- Use when: %s\n", d.WhenToUse)
	fmt.Fprintf(sb, "- Typical terms: %s\n", d.TermsTemplate)
	fmt.Fprintf(sb, "- Negotiation posture: %s\n", d.Posture)
	for _, rule := range d.CalculationRules {
		fmt.Fprintf(sb, "- %s\n", rule)
	}
	if paired {
		fmt.Fprintf(sb, "- %s\n", d.PairedVariantRule)
	}
	sb.WriteString("\n")
}

func attractiveness(weight float64) string {
	switch {
	case weight > 50:
		return "MORE attractive"
	case weight < 50:
		return "LESS attractive"
	default:
		return "EQUALLY attractive"
	}
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}
