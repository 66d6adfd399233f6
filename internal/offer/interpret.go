package offer

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

// closingCostEstimate is the share of the purchase price assumed for closing
// costs when checking an all-cash offer's viability.
var closingCostEstimate = decimal.NewFromFloat(0.02)

type replyPayload struct {
	Offers          []replyOffer    `json:"offers"`
	ComparisonIntro string          `json:"comparison_intro"`
	ClosingQuestion string          `json:"closing_question"`
	ComparisonNotes json.RawMessage `json:"comparison_notes"`
}

type replyOffer struct {
	Slot               string          `json:"slot"`
	Strategy           string          `json:"strategy"`
	Headline           string          `json:"headline"`
	Terms              *replyTerms     `json:"terms"`
	SellerBenefits     json.RawMessage `json:"seller_benefits"`
	PresentationScript json.RawMessage `json:"presentation_script"`
	InvestorNotes      json.RawMessage `json:"investor_notes"`
}

type replyTerms struct {
	PurchasePrice      json.RawMessage `json:"purchase_price"`
	CashAtClosing      json.RawMessage `json:"cash_at_closing"`
	MonthlyPayment     json.RawMessage `json:"monthly_payment"`
	FinancingStructure string          `json:"financing_structure"`
	TimelineDays       json.RawMessage `json:"timeline_days"`
	Conditions         json.RawMessage `json:"conditions"`
}

// Interpret turns a raw oracle reply into an OfferBundle. Any structural or
// numeric defect fails the whole reply with *MalformedOfferError; nothing is
// defaulted or invented. GenerationID, Model and GeneratedAt are left for the
// caller.
func Interpret(raw string, req OfferRequest) (OfferBundle, error) {
	clean := stripCodeFences(raw)
	if clean == "" {
		return OfferBundle{}, malformed("", "empty reply")
	}
	var payload replyPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return OfferBundle{}, malformed("", "reply is not valid JSON: %v", err)
	}
	if payload.Offers == nil {
		return OfferBundle{}, malformed("", "offers section is missing")
	}
	if len(payload.Offers) != 2 {
		return OfferBundle{}, malformed("", "expected exactly 2 offers, got %d", len(payload.Offers))
	}

	bundle := OfferBundle{
		Request:         req,
		ComparisonIntro: strings.TrimSpace(payload.ComparisonIntro),
		ClosingQuestion: strings.TrimSpace(payload.ClosingQuestion),
	}
	notes, err := lines(payload.ComparisonNotes)
	if err != nil {
		return OfferBundle{}, malformed("", "comparison_notes: %v", err)
	}
	bundle.ComparisonNotes = notes

	for i, ro := range payload.Offers {
		o, err := interpretOffer(i, ro, req)
		if err != nil {
			return OfferBundle{}, err
		}
		bundle.Offers[i] = o
	}
	return bundle, nil
}

func interpretOffer(i int, ro replyOffer, req OfferRequest) (GeneratedOffer, error) {
	label := slotLabel(i)
	kind, weight := req.Slot(i)

	if slot := strings.TrimSpace(ro.Slot); slot != "" && !strings.EqualFold(strings.TrimPrefix(strings.ToUpper(slot), "OFFER "), label) {
		return GeneratedOffer{}, malformed("offer "+label, "reply placed it in slot %q", slot)
	}
	if declared := strings.TrimSpace(ro.Strategy); declared != "" {
		got, err := strategy.Parse(declared)
		if err != nil {
			return GeneratedOffer{}, malformed("offer "+label, "unrecognized strategy %q", declared)
		}
		if got != kind {
			return GeneratedOffer{}, malformed("offer "+label, "strategy %s does not match requested %s", got, kind)
		}
	}
	if ro.Terms == nil {
		return GeneratedOffer{}, malformed("offer "+label, "terms section is missing")
	}
	terms, err := interpretTerms(*ro.Terms)
	if err != nil {
		return GeneratedOffer{}, malformed("offer "+label, "%v", err)
	}

	script, err := lines(ro.PresentationScript)
	if err != nil {
		return GeneratedOffer{}, malformed("offer "+label, "presentation_script: %v", err)
	}
	if len(script) == 0 {
		return GeneratedOffer{}, malformed("offer "+label, "presentation script is missing")
	}
	investorNotes, err := lines(ro.InvestorNotes)
	if err != nil {
		return GeneratedOffer{}, malformed("offer "+label, "investor_notes: %v", err)
	}
	if len(investorNotes) == 0 {
		return GeneratedOffer{}, malformed("offer "+label, "investor notes are missing")
	}
	benefits, err := lines(ro.SellerBenefits)
	if err != nil {
		return GeneratedOffer{}, malformed("offer "+label, "seller_benefits: %v", err)
	}

	o := GeneratedOffer{
		Strategy:           kind,
		Weight:             weight,
		Headline:           strings.TrimSpace(ro.Headline),
		Terms:              terms,
		SellerBenefits:     benefits,
		PresentationScript: script,
		InvestorNotes:      investorNotes,
	}
	if kind == strategy.AllCash {
		v := AssessCashViability(terms.PurchasePrice, req.Property)
		o.Viability = &v
	}
	return o, nil
}

func interpretTerms(rt replyTerms) (Terms, error) {
	var t Terms
	var err error
	if t.PurchasePrice, err = requiredAmount("purchase_price", rt.PurchasePrice); err != nil {
		return Terms{}, err
	}
	if !t.PurchasePrice.IsPositive() {
		return Terms{}, &fieldError{field: "purchase_price", reason: "must be greater than zero"}
	}
	if t.CashAtClosing, err = requiredAmount("cash_at_closing", rt.CashAtClosing); err != nil {
		return Terms{}, err
	}
	monthly, ok, err := amount("monthly_payment", rt.MonthlyPayment)
	if err != nil {
		return Terms{}, err
	}
	if ok {
		if monthly.IsNegative() {
			return Terms{}, &fieldError{field: "monthly_payment", reason: "must not be negative"}
		}
		t.MonthlyPayment = &monthly
	}
	days, err := requiredAmount("timeline_days", rt.TimelineDays)
	if err != nil {
		return Terms{}, err
	}
	if !days.Equal(days.Truncate(0)) || days.IsNegative() {
		return Terms{}, &fieldError{field: "timeline_days", reason: "must be a non-negative whole number"}
	}
	t.TimelineDays = int(days.IntPart())
	t.FinancingStructure = strings.TrimSpace(rt.FinancingStructure)
	if t.Conditions, err = lines(rt.Conditions); err != nil {
		return Terms{}, &fieldError{field: "conditions", reason: err.Error()}
	}
	return t, nil
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string { return e.field + " " + e.reason }

func requiredAmount(field string, raw json.RawMessage) (decimal.Decimal, error) {
	d, ok, err := amount(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, &fieldError{field: field, reason: "is missing"}
	}
	return d, nil
}

// amount accepts a JSON number or a string holding a bare number. Currency
// symbols and separators are rejected.
func amount(field string, raw json.RawMessage) (decimal.Decimal, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, false, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false, &fieldError{field: field, reason: "is not a number"}
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return decimal.Zero, false, nil
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false, &fieldError{field: field, reason: "is not a number: " + text}
	}
	if !InRange(d) {
		return decimal.Zero, false, &fieldError{field: field, reason: "is out of range: " + text}
	}
	return d, true, nil
}

// lines accepts an array of strings or one string split on line breaks.
// Blank entries are dropped.
func lines(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var parts []string
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		parts = strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	case '[':
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, &fieldError{field: "list", reason: "must hold only strings"}
		}
	default:
		return nil, &fieldError{field: "value", reason: "must be a string or a list of strings"}
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// AssessCashViability computes what the seller nets from an all-cash price
// after paying off the mortgage, the arrears and an estimated 2% in closing
// costs.
func AssessCashViability(price decimal.Decimal, p Property) Viability {
	net := price.Sub(p.MortgageBalance).Sub(p.Arrears).Sub(price.Mul(closingCostEstimate)).Round(0)
	if net.IsNegative() {
		return Viability{
			Flag:        NotViable,
			NetToSeller: net,
			Note:        "Seller would need to bring " + FormatMoney(net.Neg()) + " to closing to cover the mortgage shortfall",
		}
	}
	return Viability{
		Flag:        Viable,
		NetToSeller: net,
		Note:        "Seller receives " + FormatMoney(net) + " cash after all payoffs",
	}
}

func slotLabel(i int) string {
	if i == 0 {
		return "A"
	}
	return "B"
}

// ValidateBundle re-checks a bundle that came back from a client, e.g. for a
// PDF export of an earlier generation.
func ValidateBundle(b OfferBundle) error {
	if err := b.Request.Weights.Validate(); err != nil {
		return err
	}
	for i, o := range b.Offers {
		label := "offer " + slotLabel(i)
		kind, _ := b.Request.Slot(i)
		if !o.Strategy.Valid() {
			return invalid(label, "unknown strategy %q", o.Strategy)
		}
		if o.Strategy != kind {
			return invalid(label, "strategy %s does not match requested %s", o.Strategy, kind)
		}
		if len(o.PresentationScript) == 0 {
			return invalid(label, "presentation script is missing")
		}
		if len(o.InvestorNotes) == 0 {
			return invalid(label, "investor notes are missing")
		}
		if err := validateTerms(label, o); err != nil {
			return err
		}
	}
	return validateRequestAmounts(b.Request)
}

func validateTerms(label string, o GeneratedOffer) error {
	t := o.Terms
	if !InRange(t.PurchasePrice) || !t.PurchasePrice.IsPositive() {
		return invalid(label, "purchase price must be greater than zero and below 1,000,000,000,000")
	}
	if !InRange(t.CashAtClosing) {
		return invalid(label, "cash at closing is out of range")
	}
	if m := t.MonthlyPayment; m != nil && (!InRange(*m) || m.IsNegative()) {
		return invalid(label, "monthly payment is out of range")
	}
	if t.TimelineDays < 0 {
		return invalid(label, "timeline must not be negative")
	}
	if v := o.Viability; v != nil && !InRange(v.NetToSeller) {
		return invalid(label, "viability figure is out of range")
	}
	return nil
}

// validateRequestAmounts bounds the request figures a render prints.
func validateRequestAmounts(r OfferRequest) error {
	amounts := map[string]decimal.Decimal{
		"arv":                       r.Property.ARV,
		"mortgage_balance":          r.Property.MortgageBalance,
		"monthly_payment":           r.Property.MonthlyPayment,
		"arrears":                   r.Property.Arrears,
		"closing_costs":             r.Property.ClosingCosts,
		"seller_cash_request":       r.Seller.CashRequest,
		"min_profit":                r.Investor.MinProfit,
		"available_cash":            r.Investor.AvailableCash,
		"additional_option_price":   r.Creative.AdditionalOptionPrice,
		"monthly_payment_markup":    r.Creative.MonthlyPaymentMarkup,
		"additional_purchase_price": r.Creative.AdditionalPurchasePrice,
	}
	if p := r.Investor.MaxOfferPercent; p != nil {
		amounts["max_offer_pct"] = *p
	}
	for _, field := range slices.Sorted(maps.Keys(amounts)) {
		if !InRange(amounts[field]) {
			return invalid(field, "must be below 1,000,000,000,000")
		}
	}
	return nil
}

// LooksComplete reports whether raw decodes to a reply with two offers. It is
// a cheap pre-check for callers that keep replies, such as a cache; Interpret
// remains the authority.
func LooksComplete(raw string) bool {
	var payload struct {
		Offers []json.RawMessage `json:"offers"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return false
	}
	return len(payload.Offers) == 2
}
