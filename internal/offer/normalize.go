package offer

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

// Defaults applied when the form leaves a field blank.
var (
	defaultClosingCosts  = decimal.NewFromInt(3000)
	defaultMinProfit     = decimal.NewFromInt(20000)
	defaultAvailableCash = decimal.NewFromInt(10000)
)

const (
	defaultCondition        = 5
	defaultMotivation       = 5
	defaultOptionTermMonths = 36
	defaultExitStrategy     = "flip"
	maxOptionTermMonths     = 360
)

// Normalize validates raw form fields and returns the canonical request.
// Whitespace-only strings count as not provided.
func Normalize(raw map[string]any) (OfferRequest, error) {
	f := formFields(raw)
	var req OfferRequest

	var err error
	if req.StrategyA, err = f.strategy("offer_a_strategy"); err != nil {
		return OfferRequest{}, err
	}
	if req.StrategyB, err = f.strategy("offer_b_strategy"); err != nil {
		return OfferRequest{}, err
	}
	if req.Weights, err = f.weights(); err != nil {
		return OfferRequest{}, err
	}

	req.Property.Address = f.text("address")
	arv, ok, err := f.money("arv")
	if err != nil {
		return OfferRequest{}, err
	}
	if !ok || !arv.IsPositive() {
		return OfferRequest{}, invalid("arv", "after repair value is required and must be greater than zero")
	}
	req.Property.ARV = arv
	if req.Property.MortgageBalance, err = f.moneyOr("mortgage_balance", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	if req.Property.MonthlyPayment, err = f.moneyOr("monthly_payment", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	if req.Property.Arrears, err = f.moneyOr("arrears", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	if req.Property.ClosingCosts, err = f.moneyOr("closing_costs", defaultClosingCosts); err != nil {
		return OfferRequest{}, err
	}
	if req.Property.Condition, err = f.scale("condition", defaultCondition); err != nil {
		return OfferRequest{}, err
	}

	req.Seller.Name = f.text("seller_name")
	req.Seller.PainPoint = f.text("pain_point")
	req.Seller.Timeline = f.text("timeline")
	req.Seller.Priorities = f.list("priorities")
	if req.Seller.Motivation, err = f.scale("motivation", defaultMotivation); err != nil {
		return OfferRequest{}, err
	}
	if req.Seller.CashRequest, err = f.moneyOr("seller_cash_request", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}

	pct, ok, err := f.number("max_offer_pct")
	if err != nil {
		return OfferRequest{}, err
	}
	if ok {
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return OfferRequest{}, invalid("max_offer_pct", "must be between 0 and 100")
		}
		req.Investor.MaxOfferPercent = &pct
	}
	if req.Investor.MinProfit, err = f.moneyOr("min_profit", defaultMinProfit); err != nil {
		return OfferRequest{}, err
	}
	if req.Investor.AvailableCash, err = f.moneyOr("available_cash", defaultAvailableCash); err != nil {
		return OfferRequest{}, err
	}
	req.Investor.ExitStrategy = f.text("exit_strategy")
	if req.Investor.ExitStrategy == "" {
		req.Investor.ExitStrategy = defaultExitStrategy
	}

	months, ok, err := f.integer("option_term_months")
	if err != nil {
		return OfferRequest{}, err
	}
	if !ok {
		months = defaultOptionTermMonths
	}
	if months < 1 || months > maxOptionTermMonths {
		return OfferRequest{}, invalid("option_term_months", "must be between 1 and %d", maxOptionTermMonths)
	}
	req.Creative.OptionTermMonths = months
	if req.Creative.AdditionalOptionPrice, err = f.moneyOr("additional_option_price", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	if req.Creative.MonthlyPaymentMarkup, err = f.moneyOr("monthly_payment_markup", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	if req.Creative.AdditionalPurchasePrice, err = f.moneyOr("additional_purchase_price", decimal.Zero); err != nil {
		return OfferRequest{}, err
	}
	return req, nil
}

type formFields map[string]any

// text returns the trimmed string value, or "" when the field is absent,
// null, or whitespace only.
func (f formFields) text(key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return decimal.NewFromFloat(v).String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	return ""
}

func (f formFields) strategy(key string) (strategy.Kind, error) {
	v := f.text(key)
	if v == "" {
		return "", invalid(key, "a strategy is required")
	}
	k, err := strategy.Parse(v)
	if err != nil {
		return "", invalid(key, "%q is not one of AllCash, SubjectTo, LeaseOption, SellerFinancing, Hybrid", v)
	}
	return k, nil
}

func (f formFields) weights() (WeightSplit, error) {
	a, okA, err := f.number("offer_a_weight")
	if err != nil {
		return WeightSplit{}, err
	}
	b, okB, err := f.number("offer_b_weight")
	if err != nil {
		return WeightSplit{}, err
	}
	if !okA || !okB {
		return WeightSplit{}, invalid("weights", "both offer weights are required")
	}
	w := WeightSplit{A: a.InexactFloat64(), B: b.InexactFloat64()}
	if err := w.Validate(); err != nil {
		return WeightSplit{}, err
	}
	return w, nil
}

// Validate enforces the [0,100] range and the 100 ± WeightTolerance sum.
func (w WeightSplit) Validate() error {
	for _, v := range []float64{w.A, w.B} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("weights", "weights must be finite numbers")
		}
		if v < 0 || v > 100 {
			return invalid("weights", "each weight must be between 0 and 100, got %s", formatWeight(v))
		}
	}
	if math.Abs(w.A+w.B-100) > WeightTolerance {
		return invalid("weights", "weights must sum to 100, got %s", formatWeight(w.A+w.B))
	}
	return nil
}

// number parses a numeric field. ok is false when the field was not provided.
func (f formFields) number(key string) (decimal.Decimal, bool, error) {
	d, ok, err := f.parseNumber(key)
	if err != nil || !ok {
		return d, ok, err
	}
	if !InRange(d) {
		return decimal.Zero, false, invalid(key, "must be below 1,000,000,000,000")
	}
	return d, true, nil
}

func (f formFields) parseNumber(key string) (decimal.Decimal, bool, error) {
	switch v := f[key].(type) {
	case nil:
		return decimal.Zero, false, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false, invalid(key, "must be a finite number")
		}
		return decimal.NewFromFloat(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case json.Number:
		return plainNumber(key, v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, false, nil
		}
		// Form input may carry currency formatting.
		return plainNumber(key, strings.NewReplacer("$", "", ",", "", " ", "", "%", "").Replace(s))
	default:
		return decimal.Zero, false, invalid(key, "unsupported value type %T", v)
	}
}

// plainNumber rejects exponent notation before parsing.
func plainNumber(key, s string) (decimal.Decimal, bool, error) {
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, false, invalid(key, "%q is not a number", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, invalid(key, "%q is not a number", s)
	}
	return d, true, nil
}

func (f formFields) money(key string) (decimal.Decimal, bool, error) {
	d, ok, err := f.number(key)
	if err != nil || !ok {
		return d, ok, err
	}
	if d.IsNegative() {
		return decimal.Zero, false, invalid(key, "must not be negative")
	}
	return d, true, nil
}

func (f formFields) moneyOr(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	d, ok, err := f.money(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return fallback, nil
	}
	return d, nil
}

func (f formFields) integer(key string) (int, bool, error) {
	d, ok, err := f.number(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, false, invalid(key, "must be a whole number")
	}
	return int(d.IntPart()), true, nil
}

// scale reads a 1-10 rating.
func (f formFields) scale(key string, fallback int) (int, error) {
	v, ok, err := f.integer(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	if v < 1 || v > 10 {
		return 0, invalid(key, "must be between 1 and 10")
	}
	return v, nil
}

// list accepts a JSON array of strings or a comma-separated string.
func (f formFields) list(key string) []string {
	var parts []string
	switch v := f[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	case []string:
		parts = v
	case string:
		parts = strings.Split(v, ",")
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatWeight(v float64) string {
	return FormatWeight(math.Round(v*1000) / 1000)
}
