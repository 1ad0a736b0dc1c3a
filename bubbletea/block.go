package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element in the conversation.
// Unlike tea.Model, View takes a width parameter so the root model
// controls layout and blocks are testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to switch between its full and
// outline views. Sent by the root model when the user presses the toggle
// key.
type ToggleMsg struct{}

// blockSeparator returns the spacing between two adjacent blocks.
// Consecutive notices sit on adjacent lines; everything else is separated
// by a blank line.
func blockSeparator(prev, curr MessageBlock) string {
	if _, ok := prev.(*NoticeBlock); ok {
		if _, ok := curr.(*NoticeBlock); ok {
			return "\n"
		}
	}
	return "\n\n"
}
