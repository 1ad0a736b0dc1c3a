package bubbletea

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/prdlabs/prdgen"
)

var _ MessageBlock = (*HistoryBlock)(nil)

// HistoryBlock lists the documents completed earlier in this process,
// newest first, with titles truncated to the viewport width.
type HistoryBlock struct {
	entries []prdgen.HistoryEntry
	styles  Styles
}

// NewHistoryBlock creates a HistoryBlock. entries is in recording order;
// the view reverses it.
func NewHistoryBlock(entries []prdgen.HistoryEntry, styles Styles) *HistoryBlock {
	return &HistoryBlock{entries: entries, styles: styles}
}

func (b *HistoryBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *HistoryBlock) View(width int) string {
	out := b.styles.Accent.Render("History")
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		title := e.Document.Title
		if title == "" {
			title = e.Document.Framework.DisplayName()
		}
		meta := fmt.Sprintf("%s · %s", title, e.CompletedAt.Format("2 Jan 2006 15:04"))
		if avail := width - 2; avail > 0 {
			meta = runewidth.Truncate(meta, avail, "…")
		}
		out += "\n" + b.styles.Success.Render("✓ ") + meta
	}
	return out
}
