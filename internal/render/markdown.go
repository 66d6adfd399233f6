package render

import (
	"fmt"
	"strings"
)

// Markdown renders the whole document. Sections are separated by rules and
// appear in content order.
func Markdown(c Content) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	if !c.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Prepared %s_\n\n", c.GeneratedAt.Format("January 2, 2006"))
	}
	for _, s := range c.Sections {
		b.WriteString(SectionMarkdown(s))
		b.WriteString("\n---\n\n")
	}
	fmt.Fprintf(&b, "_%s_\n", c.Disclaimer)
	return b.String()
}

func SectionMarkdown(s Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Title)
	switch {
	case s.Offer != nil:
		writeOfferMarkdown(&b, s.Offer)
	case s.Notes != nil:
		writeNotesMarkdown(&b, s.Notes)
	default:
		writeFactTable(&b, s.Facts)
	}
	return b.String()
}

func writeOfferMarkdown(b *strings.Builder, o *OfferContent) {
	if o.Headline != "" {
		fmt.Fprintf(b, "**%s**\n\n", escapeMarkdown(o.Headline))
	}
	writeFactTable(b, o.Terms)
	if o.ViabilityFlag != "" {
		fmt.Fprintf(b, "> **%s:** %s\n\n", o.ViabilityFlag, escapeMarkdown(o.ViabilityNote))
	}
	writeList(b, "Conditions", o.Conditions)
	writeList(b, "Seller Benefits", o.SellerBenefits)

	b.WriteString("### Presentation Script\n\n")
	for _, line := range o.Script {
		if line == TruncationMarker {
			fmt.Fprintf(b, "*%s*\n\n", line)
			continue
		}
		fmt.Fprintf(b, "%s\n\n", escapeMarkdown(line))
	}
	writeList(b, "Investor Notes", o.InvestorNotes)
}

func writeNotesMarkdown(b *strings.Builder, n *NotesContent) {
	if n.Intro != "" {
		fmt.Fprintf(b, "%s\n\n", escapeMarkdown(n.Intro))
	}
	for _, note := range n.Notes {
		fmt.Fprintf(b, "- %s\n", escapeMarkdown(note))
	}
	if len(n.Notes) > 0 {
		b.WriteString("\n")
	}
	if n.ClosingQuestion != "" {
		fmt.Fprintf(b, "**Closing question:** %s\n\n", escapeMarkdown(n.ClosingQuestion))
	}
}

func writeFactTable(b *strings.Builder, facts []Fact) {
	if len(facts) == 0 {
		return
	}
	b.WriteString("| | |\n|---|---|\n")
	for _, f := range facts {
		fmt.Fprintf(b, "| %s | %s |\n", f.Label, escapeCell(f.Value))
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", escapeMarkdown(item))
	}
	b.WriteString("\n")
}

// Model text is untrusted; keep it from opening headings, raw HTML or
// tables.
var markdownEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"|", "\\|",
	"#", "\\#",
	"*", "\\*",
	"_", "\\_",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "\n", " ")
}
