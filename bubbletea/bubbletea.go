// Package bubbletea provides the Bubble Tea front end for prdgen: the
// discovery conversation, the live document view during synthesis, and
// the retry, export and new-session commands.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prdlabs/prdgen"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. The context is used for graceful shutdown: when
// cancelled, the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamEventMsg wraps a synthesis event for delivery to the model.
type StreamEventMsg struct {
	Event prdgen.SectionEvent
}

// SubmitDoneMsg reports the outcome of submitting one discovery answer.
// Text is the submitted answer; a failed submission never reaches the
// transcript, so the text is restored to the input for resending.
type SubmitDoneMsg struct {
	Text     string
	Question string
	Done     bool
	Err      error
}

// FrameworkChosenMsg reports the framework classification outcome.
type FrameworkChosenMsg struct {
	Framework prdgen.Framework
	Err       error
}

// SynthesisDoneMsg signals that the synthesis event stream has ended.
// A nil Err covers both completed and failed documents; the session phase
// distinguishes them. A non-nil Err is a transport interruption and the
// session stays resumable.
type SynthesisDoneMsg struct {
	Err error
}

// ExportDoneMsg reports the outcome of exporting the document.
type ExportDoneMsg struct {
	Path string
	Err  error
}
