package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/export"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the prdgen TUI. It drives one session
// at a time through the Manager; a finished session can be exported and
// replaced with a fresh one without leaving the program.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model
	// ExportDir is the directory exports are written to. Defaults to the
	// working directory.
	ExportDir string

	mgr     *prdgen.Manager
	session *prdgen.Session
	theme   prdgen.Theme
	styles  Styles
	spin    spinner.Model

	blocks []MessageBlock
	// docBlock is the live document view; nil until a framework is
	// chosen. It also appears in blocks.
	docBlock *DocumentBlock

	running      bool
	runningLabel string
	cancel       context.CancelFunc
	eventCh      chan prdgen.SectionEvent
	doneCh       chan error
	err          error
	notice       string
	mouseEnabled bool
	ready        bool
}

// New creates a TUI Model driving the given session through the manager.
func New(mgr *prdgen.Manager, session *prdgen.Session, theme prdgen.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe your product idea..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		Input:     ti,
		ExportDir: ".",
		mgr:       mgr,
		session:   session,
		theme:     theme,
		styles:    NewStyles(theme),
		spin:      sp,
	}
}

// Running returns whether a manager operation is currently in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Session returns the session the model is currently driving.
func (m Model) Session() *prdgen.Session { return m.session }

// MouseEnabled returns whether mouse reporting is on.
func (m Model) MouseEnabled() bool { return m.mouseEnabled }

// SetRunning is a test helper that puts the model in a running state.
func SetRunning(m Model) (Model, tea.Cmd) {
	m.running = true
	return m, nil
}

// SetRunningWithCancel is a test helper that puts the model in a running
// state with a cancel function.
func SetRunningWithCancel(m Model, cancel func()) (Model, tea.Cmd) {
	m.running = true
	m.cancel = cancel
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StreamEventMsg:
		if m.docBlock != nil {
			m.docBlock.Apply(msg.Event)
			if e, ok := msg.Event.(prdgen.EventSectionBegin); ok {
				_, total := m.docBlock.Progress()
				m.runningLabel = fmt.Sprintf("Writing section %d of %d...", e.Index+1, total)
			}
		}
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case SubmitDoneMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.Err != nil {
			m.running = false
			if !errors.Is(msg.Err, context.Canceled) {
				m.err = msg.Err
			}
			// The session rejected the answer, so it comes back out of
			// the transcript and into the input for resending.
			if n := len(m.blocks); n > 0 {
				if _, ok := m.blocks[n-1].(*AnswerBlock); ok {
					m.blocks = m.blocks[:n-1]
				}
			}
			m.Viewport.SetContent(m.renderContent())
			m.Viewport.GotoBottom()
			m.Input.SetValue(msg.Text)
			cmds = append(cmds, m.Input.Focus())
			return m, tea.Batch(cmds...)
		}
		if msg.Done {
			return m.beginSelection()
		}
		m.running = false
		m.blocks = append(m.blocks, NewQuestionBlock(m.session.QuestionsAsked(), msg.Question, m.theme, m.styles))
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)

	case FrameworkChosenMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.Err != nil {
			m.running = false
			if !errors.Is(msg.Err, context.Canceled) {
				m.err = msg.Err
			}
			return m, nil
		}
		m.blocks = append(m.blocks, NewNoticeBlock("Framework: "+msg.Framework.DisplayName(), m.styles.Accent))
		return m.beginSynthesis()

	case SynthesisDoneMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.running = false
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.notice = "Saved " + msg.Path
		return m, nil
	}

	// Pass remaining messages to sub-components. The viewport always
	// receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputHeight := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputHeight - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderSession()
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running || !m.acceptingText() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitAnswer(text)

	case tea.KeyTab:
		if m.docBlock != nil {
			block, cmd := m.docBlock.Update(ToggleMsg{})
			if db, ok := block.(*DocumentBlock); ok {
				m.docBlock = db
			}
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil
	}

	if msg.String() == "alt+m" {
		m.mouseEnabled = !m.mouseEnabled
		if m.mouseEnabled {
			return m, tea.EnableMouseCellMotion
		}
		return m, tea.DisableMouse
	}

	// Single-letter commands are live only while the input is not
	// accepting text, so they can never swallow typing.
	if !m.running && !m.acceptingText() {
		switch msg.String() {
		case "r":
			return m.retry()
		case "e":
			return m.exportDocument()
		case "n":
			return m.resetSession()
		}
	}

	// When idle, pass keys to both the input (for typing) and the
	// viewport (for scrolling). Only forward non-character keys to the
	// viewport to avoid conflicts (e.g. 'j'/'k' are viewport scroll AND
	// text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		if m.acceptingText() {
			m.Input, cmd = m.Input.Update(msg)
			cmds = append(cmds, cmd)
		}

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// acceptingText reports whether the session is in a phase where typed
// answers are meaningful.
func (m Model) acceptingText() bool {
	switch m.session.Phase {
	case prdgen.PhaseIdle, prdgen.PhaseDiscovering:
		return true
	}
	return false
}

func (m Model) submitAnswer(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Placeholder = "Your answer..."
	m.err = nil
	m.notice = ""

	m.blocks = append(m.blocks, NewAnswerBlock(text, m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.runningLabel = "Thinking..."
	m.Input.Blur()

	return m, tea.Batch(runSubmit(ctx, m.mgr, m.session, text), m.spin.Tick)
}

// beginSelection starts framework classification. Reached from the final
// discovery submission (still running) or from a retry (idle), so the
// spinner loop is only restarted when it is not already ticking.
func (m Model) beginSelection() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{}
	if !m.running {
		cmds = append(cmds, m.spin.Tick)
	}
	m.running = true
	m.runningLabel = "Choosing a framework..."

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	cmds = append(cmds, runSelect(ctx, m.mgr, m.session))
	return m, tea.Batch(cmds...)
}

// beginSynthesis snapshots the document for the view and starts the
// stream pump. Used for both fresh runs and resumes.
func (m Model) beginSynthesis() (tea.Model, tea.Cmd) {
	snapshot := m.session.Document.Clone()
	if m.docBlock == nil {
		m.docBlock = NewDocumentBlock(snapshot, m.theme, m.styles)
		m.blocks = append(m.blocks, m.docBlock)
	}
	m.docBlock.Reset(snapshot)
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	cmds := []tea.Cmd{}
	if !m.running {
		cmds = append(cmds, m.spin.Tick)
	}
	m.running = true
	m.runningLabel = "Writing the document..."

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan prdgen.SectionEvent, 256)
	m.doneCh = make(chan error, 1)
	cmds = append(cmds,
		runSynthesis(ctx, m.mgr, m.session, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
	return m, tea.Batch(cmds...)
}

// retry re-enters the flow after a failure or an interrupted synthesis
// run. Discovery hands control back to the input (the failed answer was
// restored there); the other phases re-drive themselves.
func (m Model) retry() (tea.Model, tea.Cmd) {
	m.err = nil
	m.notice = ""

	switch m.session.Phase {
	case prdgen.PhaseError:
		if err := m.mgr.Retry(m.session); err != nil {
			m.err = err
			return m, nil
		}
	case prdgen.PhaseSynthesizing:
		// Interrupted synthesis; resumes without a recorded error.
	default:
		return m, nil
	}

	switch m.session.Phase {
	case prdgen.PhaseDiscovering:
		return m, m.Input.Focus()
	case prdgen.PhaseSelectingFramework:
		return m.beginSelection()
	case prdgen.PhaseSynthesizing:
		return m.beginSynthesis()
	}
	return m, nil
}

func (m Model) exportDocument() (tea.Model, tea.Cmd) {
	if m.docBlock == nil {
		return m, nil
	}
	m.err = nil
	return m, runExport(m.docBlock.Document(), m.ExportDir, time.Now())
}

// resetSession discards the current session and starts a fresh one.
// Completed documents stay in history and show up in the new session's
// opening view.
func (m Model) resetSession() (tea.Model, tea.Cmd) {
	m.session = m.mgr.NewSession()
	m.blocks = nil
	m.docBlock = nil
	m.err = nil
	m.notice = ""
	m.runningLabel = ""

	m = m.renderSession()
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Placeholder = "Describe your product idea..."
	return m, m.Input.Focus()
}

// renderSession creates blocks from existing session state.
func (m Model) renderSession() Model {
	if m.mgr.History().Len() > 0 {
		m.blocks = append(m.blocks, NewHistoryBlock(m.mgr.History().List(), m.styles))
	}
	if len(m.session.Messages) == 0 {
		m.blocks = append(m.blocks,
			NewNoticeBlock("prdgen", m.styles.Accent),
			NewNoticeBlock("Answer a few questions about your idea and get a structured PRD.", m.styles.Muted),
		)
	}

	questions := 0
	for _, msg := range m.session.Messages {
		switch msg.Role {
		case prdgen.RoleUser:
			m.blocks = append(m.blocks, NewAnswerBlock(msg.Text, m.styles))
		case prdgen.RoleAssistant:
			questions++
			m.blocks = append(m.blocks, NewQuestionBlock(questions, msg.Text, m.theme, m.styles))
		}
	}

	if m.session.Framework.Valid() {
		m.blocks = append(m.blocks, NewNoticeBlock("Framework: "+m.session.Framework.DisplayName(), m.styles.Accent))
	}
	if m.session.Document != nil {
		m.docBlock = NewDocumentBlock(m.session.Document.Clone(), m.theme, m.styles)
		m.blocks = append(m.blocks, m.docBlock)
	}
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.running {
		label := m.runningLabel
		if label == "" {
			label = "Working..."
		}
		return m.styles.Muted.Render(m.spin.View() + " " + label + "  Ctrl+C to cancel")
	}
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)) +
			m.styles.Muted.Render("  r to retry · Ctrl+C to quit")
	}
	if m.notice != "" {
		return m.styles.Success.Render(m.notice) +
			m.styles.Muted.Render("  n for a new session · Ctrl+C to quit")
	}

	switch m.session.Phase {
	case prdgen.PhaseError:
		if errors.Is(m.session.Err, context.Canceled) {
			return m.styles.Muted.Render("Canceled. r to retry · Ctrl+C to quit")
		}
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.session.Err)) +
			m.styles.Muted.Render("  r to retry · Ctrl+C to quit")
	case prdgen.PhaseComplete:
		return m.styles.Success.Render("Document complete.") +
			m.styles.Muted.Render("  e to export · n for a new session · Tab to fold · Ctrl+C to quit")
	case prdgen.PhaseSynthesizing:
		return m.styles.Muted.Render("Generation paused. r to resume · e to export · Ctrl+C to quit")
	case prdgen.PhaseSelectingFramework:
		return m.styles.Muted.Render("r to continue · Ctrl+C to quit")
	default:
		return m.styles.Muted.Render("Enter to send · Ctrl+C to quit")
	}
}

// runSubmit advances discovery by one exchange on a goroutine.
func runSubmit(ctx context.Context, mgr *prdgen.Manager, session *prdgen.Session, text string) tea.Cmd {
	return func() tea.Msg {
		question, done, err := mgr.Submit(ctx, session, text)
		return SubmitDoneMsg{Text: text, Question: question, Done: done, Err: err}
	}
}

// runSelect classifies the finished transcript on a goroutine.
func runSelect(ctx context.Context, mgr *prdgen.Manager, session *prdgen.Session) tea.Cmd {
	return func() tea.Msg {
		fw, err := mgr.SelectFramework(ctx, session)
		return FrameworkChosenMsg{Framework: fw, Err: err}
	}
}

// runSynthesis drives the section stream on a goroutine, forwarding each
// event through eventCh. The stream applies events to the session as they
// are pulled, so the session is mutated only here while the model renders
// from its own document copy.
func runSynthesis(ctx context.Context, mgr *prdgen.Manager, session *prdgen.Session, eventCh chan<- prdgen.SectionEvent, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		stream, err := mgr.Synthesize(ctx, session)
		if err != nil {
			close(eventCh)
			doneCh <- err
			return nil
		}
		defer stream.Close()
		for {
			ev, err := stream.Next()
			if err != nil {
				close(eventCh)
				if err == io.EOF {
					err = nil
				}
				doneCh <- err
				return nil
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
			}
		}
	}
}

// listenForEvent waits for the next event from the channel. When the
// channel closes, it reads the outcome from doneCh and returns
// SynthesisDoneMsg.
func listenForEvent(ch <-chan prdgen.SectionEvent, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			err := <-doneCh
			return SynthesisDoneMsg{Err: err}
		}
		return StreamEventMsg{Event: ev}
	}
}

// runExport writes the document as markdown and JSON under dated
// filenames. The reported path is the markdown file.
func runExport(doc prdgen.Document, dir string, now time.Time) tea.Cmd {
	return func() tea.Msg {
		mdPath := filepath.Join(dir, export.Filename(doc.Title, now, "md"))
		if err := export.Save(mdPath, []byte(export.Markdown(&doc))); err != nil {
			return ExportDoneMsg{Err: err}
		}
		data, err := export.JSON(&doc)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		jsonPath := filepath.Join(dir, export.Filename(doc.Title, now, "json"))
		if err := export.Save(jsonPath, data); err != nil {
			return ExportDoneMsg{Err: err}
		}
		return ExportDoneMsg{Path: mdPath}
	}
}
