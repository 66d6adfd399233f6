package strategy

import (
	"fmt"
	"strings"
)

// Kind is one of the five supported offer structures. Adding a sixth is a
// schema change: the prompt contract, the table below and the web form all
// enumerate these values.
type Kind string

const (
	AllCash         Kind = "AllCash"
	SubjectTo       Kind = "SubjectTo"
	LeaseOption     Kind = "LeaseOption"
	SellerFinancing Kind = "SellerFinancing"
	Hybrid          Kind = "Hybrid"
)

// Kinds lists every strategy in display order.
var Kinds = []Kind{AllCash, SubjectTo, LeaseOption, SellerFinancing, Hybrid}

var aliases = map[string]Kind{
	"allcash":          AllCash,
	"all_cash":         AllCash,
	"cash":             AllCash,
	"subjectto":        SubjectTo,
	"subject_to":       SubjectTo,
	"leaseoption":      LeaseOption,
	"lease_option":     LeaseOption,
	"sellerfinancing":  SellerFinancing,
	"seller_financing": SellerFinancing,
	"hybrid":           Hybrid,
}

// Parse accepts canonical names, the snake_case form keys used by the web
// form and the display names, case-insensitively.
func Parse(v string) (Kind, error) {
	trimmed := strings.TrimSpace(v)
	key := strings.ToLower(trimmed)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if k, ok := aliases[key]; ok {
		return k, nil
	}
	for _, k := range Kinds {
		if strings.EqualFold(trimmed, table[k].Name) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", v)
}

// FormKey is the snake_case identifier used in prompts and form payloads.
func (k Kind) FormKey() string {
	switch k {
	case AllCash:
		return "cash"
	case SubjectTo:
		return "subject_to"
	case LeaseOption:
		return "lease_option"
	case SellerFinancing:
		return "seller_financing"
	case Hybrid:
		return "hybrid"
	}
	return ""
}

func (k Kind) Valid() bool {
	_, ok := table[k]
	return ok
}

type Definition struct {
	Kind              Kind     `json:"kind"`
	Key               string   `json:"key"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	WhenToUse         string   `json:"when_to_use"`
	Pros              []string `json:"pros"`
	Cons              []string `json:"cons"`
	TermsTemplate     string   `json:"terms_template"`
	Posture           string   `json:"negotiation_posture"`
	CalculationRules  []string `json:"calculation_rules"`
	PairedVariantRule string   `json:"paired_variant_rule"`
}

// Lookup returns a copy of the reference definition so callers cannot
// mutate the shared table.
func Lookup(k Kind) (Definition, bool) {
	d, ok := table[k]
	if !ok {
		return Definition{}, false
	}
	return d.clone(), true
}

// MustLookup panics on an unknown kind. Only use it with values that went
// through Parse or the Kinds list.
func MustLookup(k Kind) Definition {
	d, ok := Lookup(k)
	if !ok {
		panic(fmt.Sprintf("strategy: unknown kind %q", k))
	}
	return d
}

func All() []Definition {
	out := make([]Definition, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, MustLookup(k))
	}
	return out
}

func (d Definition) clone() Definition {
	d.Pros = append([]string(nil), d.Pros...)
	d.Cons = append([]string(nil), d.Cons...)
	d.CalculationRules = append([]string(nil), d.CalculationRules...)
	return d
}
