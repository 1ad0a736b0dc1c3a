package prdgen

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager drives Sessions through the idea-to-document flow:
//
//	Idle → Discovering → SelectingFramework → Synthesizing → Complete
//
// with Error reachable from the three working phases. It is the only
// session mutator; the Questioner, Classifier and Synthesizer it
// coordinates read the session and return values, and the Manager applies
// their results. Every failure preserves the transcript and any partial
// document so the failed step can be retried without data loss.
type Manager struct {
	questioner  Questioner
	classifier  Classifier
	synthesizer Synthesizer
	history     *History
	logger      *zap.Logger
	now         func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock sets the time source used for message and session timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. Completed documents are recorded to
// history.
func NewManager(q Questioner, c Classifier, s Synthesizer, history *History, opts ...ManagerOption) *Manager {
	m := &Manager{
		questioner:  q,
		classifier:  c,
		synthesizer: s,
		history:     history,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.history == nil {
		m.history = NewHistory()
	}
	return m
}

// NewSession returns a fresh Idle session.
func (m *Manager) NewSession() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.logger.Debug("session created", zap.String("session", s.ID))
	return s
}

// Submit records the user's text and advances discovery by one exchange.
// Valid in Idle (the first message starts discovery) and Discovering.
//
// The questioner sees a candidate transcript that already includes the
// pending answer; the session itself is updated only after the questioner
// succeeds, so a failed generation leaves the transcript unchanged and the
// same text can be resubmitted after Retry.
//
// done=true means discovery finished: the user message was appended, no
// question was generated, and the session moved to SelectingFramework.
func (m *Manager) Submit(ctx context.Context, s *Session, text string) (reply string, done bool, err error) {
	switch s.Phase {
	case PhaseIdle, PhaseDiscovering:
	default:
		return "", false, fmt.Errorf("submit in phase %q: %w", s.Phase, ErrPhase)
	}

	user := Message{Role: RoleUser, Text: text, Index: len(s.Messages), Timestamp: m.now()}
	candidate := *s
	candidate.Phase = PhaseDiscovering
	candidate.Messages = make([]Message, 0, len(s.Messages)+1)
	candidate.Messages = append(candidate.Messages, s.Messages...)
	candidate.Messages = append(candidate.Messages, user)

	question, discoveryDone, err := m.questioner.NextQuestion(ctx, &candidate)
	if err != nil {
		m.fail(s, PhaseDiscovering, err)
		return "", false, err
	}

	s.Messages = candidate.Messages
	if discoveryDone {
		m.setPhase(s, PhaseSelectingFramework)
		return "", true, nil
	}
	s.Messages = append(s.Messages, Message{
		Role:      RoleAssistant,
		Text:      question,
		Index:     len(s.Messages),
		Timestamp: m.now(),
	})
	m.setPhase(s, PhaseDiscovering)
	return question, false, nil
}

// SelectFramework classifies the finished transcript, sets the session's
// framework, seeds the document from its template, and moves to
// Synthesizing. Valid only in SelectingFramework; runs once per session.
// Classification fallback never blocks the transition, so the only failure
// mode is a gateway error.
func (m *Manager) SelectFramework(ctx context.Context, s *Session) (Framework, error) {
	if s.Phase != PhaseSelectingFramework {
		return "", fmt.Errorf("select framework in phase %q: %w", s.Phase, ErrPhase)
	}

	fw, err := m.classifier.Classify(ctx, s)
	if err != nil {
		m.fail(s, PhaseSelectingFramework, err)
		return "", err
	}
	if !fw.Valid() {
		// The session never stores an unknown framework.
		fw = DefaultFramework
	}

	s.Framework = fw
	doc := NewDocument(fw)
	s.Document = &doc
	m.setPhase(s, PhaseSynthesizing)
	m.logger.Info("framework selected",
		zap.String("session", s.ID),
		zap.String("framework", string(fw)),
	)
	return fw, nil
}

// Synthesize starts or resumes document generation. Valid only in
// Synthesizing. The returned stream applies each event to the session's
// document as the caller pulls it: deltas append to section bodies, status
// flips follow the pending → streaming → done/failed lifecycle, and the
// terminal outcome sets the document's completeness, moves the phase to
// Complete or Error, and records completed documents to history.
//
// Sections left streaming or failed by an earlier run are reset to pending
// here; their partial bodies are discarded and they are generated afresh,
// while done sections are never redone.
func (m *Manager) Synthesize(ctx context.Context, s *Session) (SectionStream, error) {
	if s.Phase != PhaseSynthesizing {
		return nil, fmt.Errorf("synthesize in phase %q: %w", s.Phase, ErrPhase)
	}
	if s.Document == nil {
		return nil, fmt.Errorf("synthesize with no document: %w", ErrPhase)
	}

	for i := range s.Document.Sections {
		sec := &s.Document.Sections[i]
		if sec.Status == SectionStreaming || sec.Status == SectionFailed {
			sec.Status = SectionPending
			sec.Body = ""
		}
	}
	s.Document.Completeness = ""

	inner, err := m.synthesizer.Synthesize(ctx, s)
	if err != nil {
		m.fail(s, PhaseSynthesizing, err)
		return nil, err
	}
	return &managerStream{m: m, s: s, inner: inner}, nil
}

// Retry moves an Error session back to the working phase the failure came
// from and clears the recorded error. The caller then re-drives that
// phase's operation: resubmit the same answer, reselect the framework, or
// synthesize again (which resumes from the first unfinished section).
func (m *Manager) Retry(s *Session) error {
	if s.Phase != PhaseError {
		return fmt.Errorf("retry in phase %q: %w", s.Phase, ErrPhase)
	}
	target := s.retryPhase
	if !target.Working() {
		return fmt.Errorf("retry with no failed step recorded: %w", ErrPhase)
	}
	s.retryPhase = ""
	s.Err = nil
	m.setPhase(s, target)
	return nil
}

// History returns the store completed documents are recorded to.
func (m *Manager) History() *History {
	return m.history
}

func (m *Manager) setPhase(s *Session, p Phase) {
	if s.Phase != p {
		m.logger.Debug("phase transition",
			zap.String("session", s.ID),
			zap.String("from", string(s.Phase)),
			zap.String("to", string(p)),
		)
	}
	s.Phase = p
	s.UpdatedAt = m.now()
}

func (m *Manager) fail(s *Session, from Phase, err error) {
	s.retryPhase = from
	s.Err = err
	m.setPhase(s, PhaseError)
	m.logger.Warn("session failed",
		zap.String("session", s.ID),
		zap.String("failed_phase", string(from)),
		zap.Error(err),
	)
}

// managerStream applies synthesis events to the session's document as they
// are pulled, so the document's state always reflects everything the
// caller has seen and nothing more.
type managerStream struct {
	m         *Manager
	s         *Session
	inner     SectionStream
	finalized bool
}

func (st *managerStream) Next() (SectionEvent, error) {
	ev, err := st.inner.Next()
	if err == io.EOF {
		st.finalize()
		return nil, io.EOF
	}
	if err != nil {
		// Transport-level interruption (context cancellation). The
		// session stays in Synthesizing; a later Synthesize call
		// resumes from the interrupted section.
		return nil, err
	}
	st.apply(ev)
	return ev, nil
}

func (st *managerStream) Close() error {
	return st.inner.Close()
}

func (st *managerStream) apply(ev SectionEvent) {
	doc := st.s.Document
	switch e := ev.(type) {
	case EventTitle:
		doc.Title = e.Title
	case EventSectionBegin:
		if e.Index < len(doc.Sections) {
			doc.Sections[e.Index].Status = SectionStreaming
		}
	case EventSectionDelta:
		if e.Index < len(doc.Sections) {
			doc.Sections[e.Index].Body += e.Delta
		}
	case EventSectionEnd:
		if e.Index < len(doc.Sections) {
			doc.Sections[e.Index] = e.Section
			doc.Sections[e.Index].Status = SectionDone
		}
		doc.Usage = doc.Usage.Add(e.Usage)
	case EventSectionFailed:
		if e.Index < len(doc.Sections) {
			doc.Sections[e.Index].Status = SectionFailed
		}
		if doc.ResumeIndex() == 0 {
			doc.Completeness = DocumentFailed
		} else {
			doc.Completeness = DocumentPartial
		}
		st.finalized = true
		st.m.fail(st.s, PhaseSynthesizing, e.Err)
		return
	}
	st.s.UpdatedAt = st.m.now()
}

// finalize runs once, when the event sequence ends. A run that halted on
// EventSectionFailed was finalized at the event; a run that delivered
// every section completes the document and records it.
func (st *managerStream) finalize() {
	if st.finalized {
		return
	}
	st.finalized = true

	doc := st.s.Document
	if !doc.AllDone() {
		// The run ended without finishing (abandoned inner stream).
		// Leave the session in Synthesizing for a resuming call.
		return
	}
	doc.Completeness = DocumentComplete
	st.m.setPhase(st.s, PhaseComplete)
	st.m.history.Record(HistoryEntry{
		SessionID:   st.s.ID,
		Document:    *doc,
		CompletedAt: st.m.now(),
	})
	st.m.logger.Info("document complete",
		zap.String("session", st.s.ID),
		zap.String("framework", string(doc.Framework)),
		zap.String("title", doc.Title),
		zap.Int("sections", len(doc.Sections)),
	)
}
