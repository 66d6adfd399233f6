package render

import (
	"embed"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed themes/*.css
var themeFS embed.FS

// Brand carries the company marks shown on branded documents.
type Brand struct {
	CompanyName string `yaml:"company_name" json:"company_name"`
	Tagline     string `yaml:"tagline" json:"tagline"`
	Contact     string `yaml:"contact" json:"contact"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Document builds the printable HTML for a PDF target. Both PDF targets share
// the section bodies; only the header and stylesheet differ.
func Document(c Content, target Target, brand Brand) (string, error) {
	css, err := themeCSS(target)
	if err != nil {
		return "", err
	}

	var body strings.Builder
	for _, s := range c.Sections {
		var out strings.Builder
		if err := markdown.Convert([]byte(SectionMarkdown(s)), &out); err != nil {
			return "", fmt.Errorf("markdown convert %s: %w", s.ID, err)
		}
		fmt.Fprintf(&body, "<section class='doc-section' data-section='%s'>%s</section>", s.ID, applyPrintLayoutHooks(out.String()))
	}

	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(c.Title) + "</title>" +
		"<style>" + css + "</style></head><body><div class='doc'>" +
		headerHTML(c, target, brand) +
		body.String() +
		"<p class='doc-disclaimer'>" + html.EscapeString(c.Disclaimer) + "</p>" +
		"</div></body></html>", nil
}

func themeCSS(target Target) (string, error) {
	var name string
	switch target {
	case BrandedPdf:
		name = "branded.css"
	case ProPdf:
		name = "pro.css"
	default:
		return "", fmt.Errorf("no document theme for target %q", target)
	}
	base, err := themeFS.ReadFile("themes/base.css")
	if err != nil {
		return "", fmt.Errorf("read base theme: %w", err)
	}
	theme, err := themeFS.ReadFile("themes/" + name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(base) + "\n" + string(theme), nil
}

func headerHTML(c Content, target Target, brand Brand) string {
	var out strings.Builder
	out.WriteString("<header class='doc-header'>")
	if target == BrandedPdf {
		out.WriteString("<div class='brand-logo'>LOGO</div>")
	}
	out.WriteString("<div>")
	if target == BrandedPdf && brand.CompanyName != "" {
		out.WriteString("<div class='brand-name'>" + html.EscapeString(brand.CompanyName) + "</div>")
	}
	out.WriteString("<h1>" + html.EscapeString(c.Title) + "</h1>")
	var meta []string
	if !c.GeneratedAt.IsZero() {
		meta = append(meta, "Prepared "+c.GeneratedAt.Format("January 2, 2006"))
	}
	if target == BrandedPdf {
		if brand.Tagline != "" {
			meta = append(meta, brand.Tagline)
		}
		if brand.Contact != "" {
			meta = append(meta, brand.Contact)
		}
	}
	if len(meta) > 0 {
		out.WriteString("<div class='doc-meta'>" + html.EscapeString(strings.Join(meta, " · ")) + "</div>")
	}
	out.WriteString("</div></header>")
	return out.String()
}

var reTruncationMarker = regexp.MustCompile(`<p><em>` + regexp.QuoteMeta(TruncationMarker) + `</em></p>`)

func applyPrintLayoutHooks(contentHTML string) string {
	return reTruncationMarker.ReplaceAllString(contentHTML, `<p class="truncation-marker"><em>`+TruncationMarker+`</em></p>`)
}
