package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*AnswerBlock)(nil)

// AnswerBlock renders one user answer with a "> " prefix.
type AnswerBlock struct {
	text   string
	styles Styles
}

// NewAnswerBlock creates an AnswerBlock.
func NewAnswerBlock(text string, styles Styles) *AnswerBlock {
	return &AnswerBlock{text: text, styles: styles}
}

func (b *AnswerBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AnswerBlock) View(width int) string {
	content := b.styles.UserMsg.Render("> ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}
