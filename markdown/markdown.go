// Package markdown renders markdown text and documents to ANSI-styled
// terminal output, using goldmark for parsing and lipgloss for styling.
package markdown

import (
	"strings"

	"github.com/prdlabs/prdgen"
)

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func Render(source string, width int, theme prdgen.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}

// RenderDocument renders a document for terminal display: the title, then
// every section under an uppercased heading. Sections render whatever
// body they have so far; sections not yet generated show a placeholder,
// and a failed section is marked below any partial content it produced.
func RenderDocument(doc *prdgen.Document, width int, theme prdgen.Theme) string {
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)

	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = doc.Framework.DisplayName()
	}
	b.WriteString(r.h1.Render(title))
	b.WriteString("\n\n")

	for _, sec := range doc.Sections {
		b.WriteString(r.h2.Render(strings.ToUpper(sec.Title)))
		b.WriteString("\n")

		if sec.Body != "" {
			b.WriteString(r.render([]byte(sec.Body), width))
			b.WriteString("\n")
		}
		switch sec.Status {
		case prdgen.SectionPending:
			b.WriteString(r.muted.Render("…"))
			b.WriteString("\n")
		case prdgen.SectionStreaming:
			if sec.Body == "" {
				b.WriteString(r.muted.Render("…"))
				b.WriteString("\n")
			}
		case prdgen.SectionFailed:
			b.WriteString(r.errMark.Render("✗ generation failed"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
