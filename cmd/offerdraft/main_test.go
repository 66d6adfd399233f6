package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joelkehle/offerdraft/internal/config"
	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/render"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

type stubPrinter struct{}

func (stubPrinter) Print(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func sampleBundle() offer.OfferBundle {
	return offer.OfferBundle{
		GenerationID: "gen-7",
		Request: offer.OfferRequest{
			Property:  offer.Property{Address: "88 Alder St", ARV: decimal.NewFromInt(250000)},
			StrategyA: strategy.LeaseOption,
			StrategyB: strategy.SellerFinancing,
			Weights:   offer.WeightSplit{A: 50, B: 50},
		},
		Offers: [2]offer.GeneratedOffer{
			{
				Strategy:           strategy.LeaseOption,
				Weight:             50,
				Terms:              offer.Terms{PurchasePrice: decimal.NewFromInt(240000), CashAtClosing: decimal.NewFromInt(5000), TimelineDays: 30},
				PresentationScript: []string{"Option one keeps you on title for now."},
				InvestorNotes:      []string{"Check the option fee against local law."},
			},
			{
				Strategy:           strategy.SellerFinancing,
				Weight:             50,
				Terms:              offer.Terms{PurchasePrice: decimal.NewFromInt(245000), CashAtClosing: decimal.NewFromInt(10000), TimelineDays: 21},
				PresentationScript: []string{"Option two pays you monthly."},
				InvestorNotes:      []string{"Balloon at year five."},
			},
		},
		GeneratedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func writeSampleBundle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := writeBundle(nil, path, sampleBundle()); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}

func TestBundleRoundTrip(t *testing.T) {
	path := writeSampleBundle(t)
	b, err := readBundle(path)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if b.GenerationID != "gen-7" || b.Offers[1].Strategy != strategy.SellerFinancing {
		t.Fatalf("unexpected bundle: %+v", b)
	}
	if !b.Offers[0].Terms.PurchasePrice.Equal(decimal.NewFromInt(240000)) {
		t.Fatalf("purchase price=%s", b.Offers[0].Terms.PurchasePrice)
	}
}

func TestReadBundleRejectsTampered(t *testing.T) {
	b := sampleBundle()
	b.Request.Weights = offer.WeightSplit{A: 70, B: 20}
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := writeBundle(nil, path, b); err != nil {
		t.Fatal(err)
	}
	if _, err := readBundle(path); err == nil {
		t.Fatal("expected weights error")
	}
}

func TestReadForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	if err := os.WriteFile(path, []byte(`{"arv":"300000","offer_a_strategy":"AllCash"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	form, err := readForm(path)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	if form["arv"] != "300000" {
		t.Fatalf("arv=%v", form["arv"])
	}

	if err := os.WriteFile(path, []byte(`[1,2]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readForm(path); err == nil {
		t.Fatal("expected decode error for a non-object form")
	}
}

func TestRenderTargets(t *testing.T) {
	all, err := renderTargets("ALL")
	if err != nil || len(all) != 3 {
		t.Fatalf("all: %v %v", all, err)
	}
	one, err := renderTargets("pro")
	if err != nil || len(one) != 1 || one[0] != render.ProPdf {
		t.Fatalf("pro: %v %v", one, err)
	}
	if _, err := renderTargets("docx"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRenderAllWritesEveryTarget(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	engine := render.NewEngine(stubPrinter{}, render.Config{PDFLimits: render.DefaultPDFLimits}, nil)

	paths, err := renderAll(context.Background(), engine, sampleBundle(), render.Targets, dir)
	if err != nil {
		t.Fatalf("render all: %v", err)
	}
	want := []string{"offers-88-alder-st.view.json", "offers-88-alder-st.pdf", "offers-88-alder-st-pro.pdf"}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Fatalf("path %d = %s, want %s", i, filepath.Base(p), want[i])
		}
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestPreviewPlain(t *testing.T) {
	cfg = config.DefaultConfig()
	bundlePath = writeSampleBundle(t)
	previewPlain = true
	defer func() { previewPlain = false }()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := runPreview(cmd, nil); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(out.String(), "88 Alder St") || !strings.Contains(out.String(), "Option two pays you monthly.") {
		t.Fatalf("preview missing content:\n%s", out.String())
	}
}

func TestStrategiesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := runStrategies(cmd, nil); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(strategy.Kinds) {
		t.Fatalf("expected %d lines, got %d", len(strategy.Kinds), len(lines))
	}
	if !strings.HasPrefix(lines[0], string(strategy.AllCash)) {
		t.Fatalf("first line %q", lines[0])
	}
}

func TestBuildLogger(t *testing.T) {
	l, err := buildLogger(config.LoggingConfig{Level: "warn"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}

	l, err = buildLogger(config.LoggingConfig{Level: "warn"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("verbose should enable debug")
	}

	if _, err := buildLogger(config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestBuildAppRequiresKey(t *testing.T) {
	c := config.DefaultConfig()
	if _, err := buildApp(context.Background(), c, zap.NewNop()); err == nil {
		t.Fatal("expected missing API key error")
	}
}
