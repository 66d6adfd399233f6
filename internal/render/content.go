package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

// TruncationMarker ends a presentation script that was cut to fit a page
// budget.
const TruncationMarker = "[continued in follow-up conversation]"

const (
	SectionProperty = "property"
	SectionOfferA   = "offer_a"
	SectionOfferB   = "offer_b"
	SectionNotes    = "notes"
)

// Limits bounds the presentation script per offer. Zero means unlimited.
type Limits struct {
	MaxScriptLines int `json:"max_script_lines" yaml:"max_script_lines"`
	MaxScriptChars int `json:"max_script_chars" yaml:"max_script_chars"`
}

// Degradation records content that was shortened to fit a target. It is a
// notice, not an error: the render still succeeds.
type Degradation struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

type Fact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type OfferContent struct {
	Label           string   `json:"label"`
	Strategy        string   `json:"strategy"`
	StrategyName    string   `json:"strategy_name"`
	Weight          string   `json:"weight"`
	Headline        string   `json:"headline,omitempty"`
	Terms           []Fact   `json:"terms"`
	Conditions      []string `json:"conditions,omitempty"`
	SellerBenefits  []string `json:"seller_benefits,omitempty"`
	Script          []string `json:"presentation_script"`
	ScriptTruncated bool     `json:"script_truncated,omitempty"`
	InvestorNotes   []string `json:"investor_notes"`
	ViabilityFlag   string   `json:"viability_flag,omitempty"`
	ViabilityNote   string   `json:"viability_note,omitempty"`
}

type NotesContent struct {
	Intro           string   `json:"intro,omitempty"`
	Notes           []string `json:"notes,omitempty"`
	ClosingQuestion string   `json:"closing_question,omitempty"`
}

type Section struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Facts []Fact        `json:"facts,omitempty"`
	Offer *OfferContent `json:"offer,omitempty"`
	Notes *NotesContent `json:"comparison,omitempty"`
}

// Content is the target-independent document every renderer projects.
type Content struct {
	GenerationID string    `json:"generation_id"`
	Title        string    `json:"title"`
	GeneratedAt  time.Time `json:"generated_at"`
	Sections     []Section `json:"sections"`
	Disclaimer   string    `json:"disclaimer"`
}

// SectionIDs lists section identifiers in emitted order.
func (c Content) SectionIDs() []string {
	ids := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		ids[i] = s.ID
	}
	return ids
}

// Assemble builds the shared content model. The section order is fixed:
// property summary, offer A, offer B, comparison notes.
func Assemble(b offer.OfferBundle, limits Limits) (Content, []Degradation) {
	c := Content{
		GenerationID: b.GenerationID,
		Title:        documentTitle(b.Request),
		GeneratedAt:  b.GeneratedAt,
		Disclaimer:   offer.Disclaimer,
	}
	c.Sections = append(c.Sections, propertySection(b.Request))

	var degraded []Degradation
	for i, o := range b.Offers {
		id, label := SectionOfferA, "Offer A"
		if i == 1 {
			id, label = SectionOfferB, "Offer B"
		}
		oc := offerContent(label, o)
		if script, cut := truncateScript(oc.Script, limits); cut {
			oc.Script = script
			oc.ScriptTruncated = true
			degraded = append(degraded, Degradation{
				Section: id,
				Reason:  fmt.Sprintf("%s presentation script shortened to fit the page budget", label),
			})
		}
		c.Sections = append(c.Sections, Section{
			ID:    id,
			Title: fmt.Sprintf("%s: %s (%s)", label, oc.StrategyName, oc.Weight),
			Offer: oc,
		})
	}

	c.Sections = append(c.Sections, Section{
		ID:    SectionNotes,
		Title: "Comparison Notes",
		Notes: &NotesContent{
			Intro:           b.ComparisonIntro,
			Notes:           append([]string(nil), b.ComparisonNotes...),
			ClosingQuestion: b.ClosingQuestion,
		},
	})
	return c, degraded
}

func documentTitle(req offer.OfferRequest) string {
	if req.Property.Address != "" {
		return "Offer Scenarios: " + req.Property.Address
	}
	return "Offer Scenarios"
}

func propertySection(req offer.OfferRequest) Section {
	facts := []Fact{}
	if req.Property.Address != "" {
		facts = append(facts, Fact{"Address", req.Property.Address})
	}
	if req.Seller.Name != "" {
		facts = append(facts, Fact{"Seller", req.Seller.Name})
	}
	facts = append(facts,
		Fact{"After repair value", offer.FormatMoney(req.Property.ARV)},
		Fact{"Mortgage balance", offer.FormatMoney(req.Property.MortgageBalance)},
		Fact{"Monthly payment", offer.FormatMoney(req.Property.MonthlyPayment)},
		Fact{"Arrears", offer.FormatMoney(req.Property.Arrears)},
		Fact{"Condition", strconv.Itoa(req.Property.Condition) + "/10"},
		Fact{"Seller motivation", strconv.Itoa(req.Seller.Motivation) + "/10"},
		Fact{"Seller cash request", offer.FormatMoney(req.Seller.CashRequest)},
	)
	if req.Seller.Timeline != "" {
		facts = append(facts, Fact{"Timeline", req.Seller.Timeline})
	}
	if req.Seller.PainPoint != "" {
		facts = append(facts, Fact{"Pain point", req.Seller.PainPoint})
	}
	return Section{ID: SectionProperty, Title: "Property Summary", Facts: facts}
}

func offerContent(label string, o offer.GeneratedOffer) *OfferContent {
	name := string(o.Strategy)
	if def, ok := strategy.Lookup(o.Strategy); ok {
		name = def.Name
	}
	terms := []Fact{
		{"Purchase price", offer.FormatMoney(o.Terms.PurchasePrice)},
		{"Cash at closing", offer.FormatMoney(o.Terms.CashAtClosing)},
	}
	if o.Terms.MonthlyPayment != nil {
		terms = append(terms, Fact{"Monthly payment", offer.FormatMoney(*o.Terms.MonthlyPayment)})
	}
	if o.Terms.FinancingStructure != "" {
		terms = append(terms, Fact{"Structure", o.Terms.FinancingStructure})
	}
	terms = append(terms, Fact{"Timeline", fmt.Sprintf("%d days", o.Terms.TimelineDays)})

	oc := &OfferContent{
		Label:          label,
		Strategy:       string(o.Strategy),
		StrategyName:   name,
		Weight:         offer.FormatWeight(o.Weight) + "%",
		Headline:       o.Headline,
		Terms:          terms,
		Conditions:     append([]string(nil), o.Terms.Conditions...),
		SellerBenefits: append([]string(nil), o.SellerBenefits...),
		Script:         append([]string(nil), o.PresentationScript...),
		InvestorNotes:  append([]string(nil), o.InvestorNotes...),
	}
	if o.Viability != nil {
		oc.ViabilityFlag = string(o.Viability.Flag)
		oc.ViabilityNote = o.Viability.Note
	}
	return oc
}

// truncateScript keeps whole lines while both budgets hold. A first line that
// alone exceeds the character budget is cut at a word boundary.
func truncateScript(script []string, limits Limits) ([]string, bool) {
	if limits.MaxScriptLines <= 0 && limits.MaxScriptChars <= 0 {
		return script, false
	}
	var kept []string
	chars := 0
	for i, line := range script {
		if limits.MaxScriptLines > 0 && i >= limits.MaxScriptLines {
			return append(kept, TruncationMarker), true
		}
		if limits.MaxScriptChars > 0 && chars+len(line) > limits.MaxScriptChars {
			if len(kept) == 0 {
				kept = append(kept, cutAtWord(line, limits.MaxScriptChars))
			}
			return append(kept, TruncationMarker), true
		}
		kept = append(kept, line)
		chars += len(line)
	}
	return script, false
}

func cutAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
