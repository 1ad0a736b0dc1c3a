package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/markdown"
)

var _ MessageBlock = (*DocumentBlock)(nil)

// DocumentBlock renders the document as it is generated. It owns a copy
// of the document and folds section events into it, so the view never
// reads session state the synthesis goroutine is writing.
type DocumentBlock struct {
	doc    prdgen.Document
	theme  prdgen.Theme
	styles Styles

	// outline collapses the view to section titles and status marks.
	outline bool

	rendered  string
	lastWidth int
	dirty     bool
}

// NewDocumentBlock creates a DocumentBlock showing the snapshot as is.
func NewDocumentBlock(doc prdgen.Document, theme prdgen.Theme, styles Styles) *DocumentBlock {
	return &DocumentBlock{doc: doc, theme: theme, styles: styles, dirty: true}
}

// Reset replaces the block's document copy at the start of a synthesis
// run. Sections a previous run left streaming or failed restart pending,
// matching what the run itself does.
func (b *DocumentBlock) Reset(doc prdgen.Document) {
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		if sec.Status == prdgen.SectionStreaming || sec.Status == prdgen.SectionFailed {
			sec.Status = prdgen.SectionPending
			sec.Body = ""
		}
	}
	doc.Completeness = ""
	b.doc = doc
	b.dirty = true
}

// Document returns a copy of the block's current document state.
func (b *DocumentBlock) Document() prdgen.Document {
	return b.doc.Clone()
}

// Apply folds one synthesis event into the document copy.
func (b *DocumentBlock) Apply(ev prdgen.SectionEvent) {
	switch e := ev.(type) {
	case prdgen.EventTitle:
		b.doc.Title = e.Title
	case prdgen.EventSectionBegin:
		if e.Index < len(b.doc.Sections) {
			b.doc.Sections[e.Index].Status = prdgen.SectionStreaming
		}
	case prdgen.EventSectionDelta:
		if e.Index < len(b.doc.Sections) {
			b.doc.Sections[e.Index].Body += e.Delta
		}
	case prdgen.EventSectionEnd:
		if e.Index < len(b.doc.Sections) {
			b.doc.Sections[e.Index] = e.Section
			b.doc.Sections[e.Index].Status = prdgen.SectionDone
		}
		b.doc.Usage = b.doc.Usage.Add(e.Usage)
	case prdgen.EventSectionFailed:
		if e.Index < len(b.doc.Sections) {
			b.doc.Sections[e.Index].Status = prdgen.SectionFailed
		}
	}
	b.dirty = true
}

// Progress returns done and total section counts.
func (b *DocumentBlock) Progress() (done, total int) {
	for _, sec := range b.doc.Sections {
		if sec.Status == prdgen.SectionDone {
			done++
		}
	}
	return done, len(b.doc.Sections)
}

func (b *DocumentBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.outline = !b.outline
		b.dirty = true
	}
	return b, nil
}

func (b *DocumentBlock) View(width int) string {
	if b.dirty || width != b.lastWidth {
		if b.outline {
			b.rendered = b.viewOutline(width)
		} else {
			b.rendered = markdown.RenderDocument(&b.doc, width, b.theme)
		}
		b.lastWidth = width
		b.dirty = false
	}
	return b.rendered
}

func (b *DocumentBlock) viewOutline(width int) string {
	wrap := lipgloss.NewStyle().Width(width)

	title := b.doc.Title
	if title == "" {
		title = b.doc.Framework.DisplayName()
	}
	lines := []string{b.styles.Accent.Render(wrap.Render("▶ " + title))}
	for _, sec := range b.doc.Sections {
		var mark string
		switch sec.Status {
		case prdgen.SectionDone:
			mark = b.styles.Success.Render("✓")
		case prdgen.SectionStreaming:
			mark = b.styles.Section.Render("…")
		case prdgen.SectionFailed:
			mark = b.styles.Error.Render("✗")
		default:
			mark = b.styles.Muted.Render("·")
		}
		lines = append(lines, "  "+mark+" "+sec.Title)
	}
	return strings.Join(lines, "\n")
}
