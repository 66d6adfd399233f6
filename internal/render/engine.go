package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/offer"
)

type Target string

const (
	OnScreen   Target = "screen"
	BrandedPdf Target = "branded"
	ProPdf     Target = "pro"
)

var Targets = []Target{OnScreen, BrandedPdf, ProPdf}

func ParseTarget(v string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "screen", "onscreen", "html":
		return OnScreen, nil
	case "branded", "brandedpdf", "branded_pdf":
		return BrandedPdf, nil
	case "pro", "propdf", "pro_pdf":
		return ProPdf, nil
	}
	return "", fmt.Errorf("unknown render format %q (want screen, branded or pro)", v)
}

func (t Target) IsPDF() bool { return t == BrandedPdf || t == ProPdf }

// ErrNoPrinter is returned for PDF targets when no Printer is configured.
var ErrNoPrinter = errors.New("pdf rendering not configured")

// ViewModel is the on-screen projection, serialised as JSON for the web UI.
type ViewModel struct {
	Content
	Degraded []Degradation `json:"degraded,omitempty"`
}

type Output struct {
	Target      Target
	Sections    []string
	Degraded    []Degradation
	View        *ViewModel
	Document    []byte
	ContentType string
	Filename    string
}

type Config struct {
	Brand Brand
	// ScreenLimits and PDFLimits bound presentation scripts per target.
	ScreenLimits Limits
	PDFLimits    Limits
}

// DefaultPDFLimits keeps one offer's script within roughly a printed page.
var DefaultPDFLimits = Limits{MaxScriptLines: 14, MaxScriptChars: 2200}

type Engine struct {
	printer Printer
	cfg     Config
	logger  *zap.Logger
}

func NewEngine(printer Printer, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{printer: printer, cfg: cfg, logger: logger}
}

func (e *Engine) limits(t Target) Limits {
	if t.IsPDF() {
		return e.cfg.PDFLimits
	}
	return e.cfg.ScreenLimits
}

// Render projects one bundle onto a target. Truncation never fails the
// render; it is reported in Output.Degraded.
func (e *Engine) Render(ctx context.Context, b offer.OfferBundle, target Target) (Output, error) {
	content, degraded := Assemble(b, e.limits(target))
	out := Output{
		Target:   target,
		Sections: content.SectionIDs(),
		Degraded: degraded,
	}
	for _, d := range degraded {
		e.logger.Info("render degraded",
			zap.String("generation_id", b.GenerationID),
			zap.String("target", string(target)),
			zap.String("section", d.Section),
			zap.String("reason", d.Reason))
	}

	switch target {
	case OnScreen:
		out.View = &ViewModel{Content: content, Degraded: degraded}
		out.ContentType = "application/json"
		return out, nil
	case BrandedPdf, ProPdf:
		if e.printer == nil {
			return Output{}, ErrNoPrinter
		}
		doc, err := Document(content, target, e.cfg.Brand)
		if err != nil {
			return Output{}, err
		}
		pdf, err := e.printer.Print(ctx, doc)
		if err != nil {
			return Output{}, fmt.Errorf("print %s pdf: %w", target, err)
		}
		out.Document = pdf
		out.ContentType = "application/pdf"
		out.Filename = Filename(b, target)
		return out, nil
	}
	return Output{}, fmt.Errorf("unknown render target %q", target)
}

// Filename is the download name for a PDF export.
func Filename(b offer.OfferBundle, target Target) string {
	base := "offers"
	if addr := b.Request.Property.Address; addr != "" {
		base += "-" + strings.ToLower(addr)
	}
	if target == ProPdf {
		base += "-pro"
	}
	return sanitizeFilename(base) + ".pdf"
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "offers"
	}
	v = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
	for strings.Contains(v, "--") {
		v = strings.ReplaceAll(v, "--", "-")
	}
	return strings.Trim(v, "-")
}
