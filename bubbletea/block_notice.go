package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a one-line milestone in the conversation flow, such
// as the chosen framework.
type NoticeBlock struct {
	text  string
	style lipgloss.Style
}

// NewNoticeBlock creates a NoticeBlock rendered with the given style.
func NewNoticeBlock(text string, style lipgloss.Style) *NoticeBlock {
	return &NoticeBlock{text: text, style: style}
}

func (b *NoticeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.style.Render(b.text))
}
