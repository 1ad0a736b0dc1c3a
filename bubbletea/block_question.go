package bubbletea

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/markdown"
)

var _ MessageBlock = (*QuestionBlock)(nil)

// QuestionBlock renders one discovery question: a numbered header and the
// question text as markdown.
type QuestionBlock struct {
	number int
	text   string
	theme  prdgen.Theme
	styles Styles

	rendered  string
	lastWidth int
}

// NewQuestionBlock creates a QuestionBlock. number is 1-based display
// order within the session.
func NewQuestionBlock(number int, text string, theme prdgen.Theme, styles Styles) *QuestionBlock {
	return &QuestionBlock{number: number, text: text, theme: theme, styles: styles}
}

func (b *QuestionBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *QuestionBlock) View(width int) string {
	if b.rendered == "" || width != b.lastWidth {
		header := b.styles.Question.Render(fmt.Sprintf("Question %d", b.number))
		b.rendered = header + "\n" + markdown.Render(b.text, width, b.theme)
		b.lastWidth = width
	}
	return b.rendered
}
