package offer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joelkehle/offerdraft/internal/strategy"
)

const Disclaimer = "These scenarios are drafts generated with the help of a language model. " +
	"Verify every figure against the loan statement and a title report before presenting an offer."

const WeightTolerance = 0.01

type Property struct {
	Address         string          `json:"address,omitempty"`
	ARV             decimal.Decimal `json:"arv"`
	MortgageBalance decimal.Decimal `json:"mortgage_balance"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
	Arrears         decimal.Decimal `json:"arrears"`
	ClosingCosts    decimal.Decimal `json:"closing_costs"`
	Condition       int             `json:"condition"`
}

type Seller struct {
	Name        string          `json:"name,omitempty"`
	Motivation  int             `json:"motivation"`
	PainPoint   string          `json:"pain_point,omitempty"`
	Timeline    string          `json:"timeline,omitempty"`
	CashRequest decimal.Decimal `json:"cash_request"`
	Priorities  []string        `json:"priorities,omitempty"`
}

type Investor struct {
	// MaxOfferPercent is nil when the user left it blank; it only constrains
	// all-cash offers.
	MaxOfferPercent *decimal.Decimal `json:"max_offer_percent,omitempty"`
	MinProfit       decimal.Decimal  `json:"min_profit"`
	AvailableCash   decimal.Decimal  `json:"available_cash"`
	ExitStrategy    string           `json:"exit_strategy"`
}

type CreativeTerms struct {
	OptionTermMonths        int             `json:"option_term_months"`
	AdditionalOptionPrice   decimal.Decimal `json:"additional_option_price"`
	MonthlyPaymentMarkup    decimal.Decimal `json:"monthly_payment_markup"`
	AdditionalPurchasePrice decimal.Decimal `json:"additional_purchase_price"`
}

type WeightSplit struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// OfferRequest is the validated, canonical form input. Build it with
// Normalize; the pipeline treats it as read-only.
type OfferRequest struct {
	Property  Property      `json:"property"`
	Seller    Seller        `json:"seller"`
	Investor  Investor      `json:"investor"`
	Creative  CreativeTerms `json:"creative_terms"`
	StrategyA strategy.Kind `json:"strategy_a"`
	StrategyB strategy.Kind `json:"strategy_b"`
	Weights   WeightSplit   `json:"weights"`
}

// Slot returns the strategy and weight for offer slot 0 (A) or 1 (B).
func (r OfferRequest) Slot(i int) (strategy.Kind, float64) {
	if i == 0 {
		return r.StrategyA, r.Weights.A
	}
	return r.StrategyB, r.Weights.B
}

type Terms struct {
	PurchasePrice      decimal.Decimal  `json:"purchase_price"`
	CashAtClosing      decimal.Decimal  `json:"cash_at_closing"`
	MonthlyPayment     *decimal.Decimal `json:"monthly_payment,omitempty"`
	FinancingStructure string           `json:"financing_structure"`
	TimelineDays       int              `json:"timeline_days"`
	Conditions         []string         `json:"conditions,omitempty"`
}

type ViabilityFlag string

const (
	Viable    ViabilityFlag = "VIABLE"
	NotViable ViabilityFlag = "NOT VIABLE"
)

// Viability is computed from the request facts for all-cash offers. It is an
// annotation next to the oracle's figures, never a replacement for them.
type Viability struct {
	Flag        ViabilityFlag   `json:"flag"`
	NetToSeller decimal.Decimal `json:"net_to_seller"`
	Note        string          `json:"note"`
}

type GeneratedOffer struct {
	Strategy           strategy.Kind `json:"strategy"`
	Weight             float64       `json:"weight"`
	Headline           string        `json:"headline"`
	Terms              Terms         `json:"terms"`
	SellerBenefits     []string      `json:"seller_benefits,omitempty"`
	PresentationScript []string      `json:"presentation_script"`
	InvestorNotes      []string      `json:"investor_notes"`
	Viability          *Viability    `json:"viability,omitempty"`
}

type OfferBundle struct {
	GenerationID    string            `json:"generation_id"`
	Request         OfferRequest      `json:"request"`
	Offers          [2]GeneratedOffer `json:"offers"`
	ComparisonIntro string            `json:"comparison_intro,omitempty"`
	ClosingQuestion string            `json:"closing_question,omitempty"`
	ComparisonNotes []string          `json:"comparison_notes,omitempty"`
	Model           string            `json:"model,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

type StageAttemptMetrics struct {
	Attempts int
	Elapsed  time.Duration
}
