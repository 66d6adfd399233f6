package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

type fakePrinter struct {
	docs []string
	err  error
}

func (p *fakePrinter) Print(_ context.Context, htmlDoc string) ([]byte, error) {
	p.docs = append(p.docs, htmlDoc)
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

func sampleBundle() offer.OfferBundle {
	monthly := decimal.NewFromInt(1850)
	return offer.OfferBundle{
		GenerationID: "gen-1",
		Request: offer.OfferRequest{
			Property: offer.Property{
				Address:         "1420 Juniper Ave",
				ARV:             decimal.NewFromInt(300000),
				MortgageBalance: decimal.NewFromInt(210000),
				MonthlyPayment:  monthly,
				Arrears:         decimal.NewFromInt(6000),
				ClosingCosts:    decimal.NewFromInt(3000),
				Condition:       6,
			},
			Seller:    offer.Seller{Name: "Dana Ortiz", Motivation: 8, CashRequest: decimal.NewFromInt(15000)},
			StrategyA: strategy.SubjectTo,
			StrategyB: strategy.AllCash,
			Weights:   offer.WeightSplit{A: 80, B: 20},
		},
		Offers: [2]offer.GeneratedOffer{
			{
				Strategy: strategy.SubjectTo,
				Weight:   80,
				Headline: "Keep your credit clean",
				Terms: offer.Terms{
					PurchasePrice:  decimal.NewFromInt(300000),
					CashAtClosing:  decimal.NewFromInt(15000),
					MonthlyPayment: &monthly,
					TimelineDays:   21,
				},
				PresentationScript: []string{"Dana, here is the first option.", "You receive $15,000 at closing."},
				InvestorNotes:      []string{"Confirm the payoff letter."},
			},
			{
				Strategy: strategy.AllCash,
				Weight:   20,
				Terms: offer.Terms{
					PurchasePrice: decimal.NewFromInt(210000),
					TimelineDays:  14,
				},
				PresentationScript: []string{"The second option is cash."},
				InvestorNotes:      []string{"Only if the payoff drops."},
				Viability:          &offer.Viability{Flag: offer.NotViable, Note: "Seller would need to bring $10,200 to closing"},
			},
		},
		ComparisonIntro: "I have two ways we can do this.",
		ClosingQuestion: "Which fits better?",
		ComparisonNotes: []string{"A nets more cash", "B closes faster"},
		GeneratedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sectionOrder(t *testing.T, doc string) []string {
	t.Helper()
	var ids []string
	rest := doc
	for {
		i := strings.Index(rest, "data-section='")
		if i < 0 {
			return ids
		}
		rest = rest[i+len("data-section='"):]
		j := strings.IndexByte(rest, '\'')
		require.Positive(t, j)
		ids = append(ids, rest[:j])
		rest = rest[j:]
	}
}

func TestSectionOrderIdenticalAcrossTargets(t *testing.T) {
	printer := &fakePrinter{}
	e := NewEngine(printer, Config{PDFLimits: DefaultPDFLimits}, nil)
	want := []string{SectionProperty, SectionOfferA, SectionOfferB, SectionNotes}

	for _, target := range Targets {
		out, err := e.Render(context.Background(), sampleBundle(), target)
		require.NoError(t, err, target)
		assert.Equal(t, want, out.Sections, target)
		assert.Empty(t, out.Degraded, target)
	}
	require.Len(t, printer.docs, 2)
	for _, doc := range printer.docs {
		assert.Equal(t, want, sectionOrder(t, doc))
	}
}

func TestOnScreenViewModel(t *testing.T) {
	e := NewEngine(nil, Config{}, nil)
	out, err := e.Render(context.Background(), sampleBundle(), OnScreen)
	require.NoError(t, err)
	require.NotNil(t, out.View)
	assert.Equal(t, "application/json", out.ContentType)

	a := out.View.Sections[1].Offer
	require.NotNil(t, a)
	assert.Equal(t, "80%", a.Weight)
	assert.Equal(t, "$300,000", a.Terms[0].Value)
	b := out.View.Sections[2].Offer
	assert.Equal(t, "NOT VIABLE", b.ViabilityFlag)
	assert.Equal(t, "Which fits better?", out.View.Sections[3].Notes.ClosingQuestion)
}

func TestProPdfTruncatesLongScript(t *testing.T) {
	b := sampleBundle()
	var script []string
	for i := 0; i < 40; i++ {
		script = append(script, fmt.Sprintf("Line %d of a very long walkthrough for the seller.", i+1))
	}
	b.Offers[0].PresentationScript = script

	printer := &fakePrinter{}
	e := NewEngine(printer, Config{PDFLimits: DefaultPDFLimits}, nil)
	out, err := e.Render(context.Background(), b, ProPdf)
	require.NoError(t, err)

	require.Len(t, out.Degraded, 1)
	assert.Equal(t, SectionOfferA, out.Degraded[0].Section)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.NotEmpty(t, out.Document)
	require.Len(t, printer.docs, 1)
	assert.Contains(t, printer.docs[0], `<p class="truncation-marker"><em>`+TruncationMarker+`</em></p>`)
	assert.NotContains(t, printer.docs[0], "Line 40 of")

	screen, err := e.Render(context.Background(), b, OnScreen)
	require.NoError(t, err)
	assert.Empty(t, screen.Degraded, "screen has no page budget by default")
	assert.Len(t, screen.View.Sections[1].Offer.Script, 40)
}

func TestTruncateScript(t *testing.T) {
	script := []string{"one two three", "four five", "six"}

	got, cut := truncateScript(script, Limits{MaxScriptLines: 2})
	assert.True(t, cut)
	assert.Equal(t, []string{"one two three", "four five", TruncationMarker}, got)

	got, cut = truncateScript(script, Limits{MaxScriptChars: 8})
	assert.True(t, cut)
	assert.Equal(t, []string{"one two...", TruncationMarker}, got)

	got, cut = truncateScript(script, Limits{MaxScriptLines: 3, MaxScriptChars: 100})
	assert.False(t, cut)
	assert.Equal(t, script, got)
}

func TestBrandMarksOnlyOnBrandedDocument(t *testing.T) {
	printer := &fakePrinter{}
	e := NewEngine(printer, Config{Brand: Brand{CompanyName: "Summit Home Buyers", Tagline: "Local. Fast. Fair."}}, nil)

	_, err := e.Render(context.Background(), sampleBundle(), BrandedPdf)
	require.NoError(t, err)
	_, err = e.Render(context.Background(), sampleBundle(), ProPdf)
	require.NoError(t, err)

	branded, pro := printer.docs[0], printer.docs[1]
	assert.Contains(t, branded, "Summit Home Buyers")
	assert.Contains(t, branded, "brand-logo'>")
	assert.Contains(t, branded, "#2f5d34")
	assert.NotContains(t, pro, "Summit Home Buyers")
	assert.NotContains(t, pro, "brand-logo'>")

	// Section bodies are shared between both documents.
	bodyOf := func(doc string) string { return doc[strings.Index(doc, "<section"):] }
	assert.Equal(t, bodyOf(branded), bodyOf(pro))
}

func TestRenderPdfErrors(t *testing.T) {
	_, err := NewEngine(nil, Config{}, nil).Render(context.Background(), sampleBundle(), BrandedPdf)
	assert.ErrorIs(t, err, ErrNoPrinter)

	boom := errors.New("chrome not found")
	_, err = NewEngine(&fakePrinter{err: boom}, Config{}, nil).Render(context.Background(), sampleBundle(), ProPdf)
	assert.ErrorIs(t, err, boom)

	_, err = NewEngine(nil, Config{}, nil).Render(context.Background(), sampleBundle(), Target("fax"))
	assert.Error(t, err)
}

func TestMarkdownEscapesModelText(t *testing.T) {
	b := sampleBundle()
	b.Offers[0].Headline = "<script>alert(1)</script> # Big | deal"
	c, _ := Assemble(b, Limits{})
	md := SectionMarkdown(c.Sections[1])
	assert.NotContains(t, md, "<script>")
	assert.Contains(t, md, `\# Big \| deal`)
}

func TestParseTargetAndFilename(t *testing.T) {
	for in, want := range map[string]Target{"": OnScreen, "Screen": OnScreen, "branded": BrandedPdf, "PRO": ProPdf} {
		got, err := ParseTarget(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTarget("docx")
	assert.Error(t, err)

	assert.Equal(t, "offers-1420-juniper-ave.pdf", Filename(sampleBundle(), BrandedPdf))
	assert.Equal(t, "offers-1420-juniper-ave-pro.pdf", Filename(sampleBundle(), ProPdf))
}
