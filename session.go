package prdgen

import "time"

// Phase identifies where a session is in the idea-to-document flow.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseDiscovering        Phase = "discovering"
	PhaseSelectingFramework Phase = "selecting_framework"
	PhaseSynthesizing       Phase = "synthesizing"
	PhaseComplete           Phase = "complete"
	PhaseError              Phase = "error"
)

// Working reports whether the phase is one of the three working phases an
// Error state can retreat from.
func (p Phase) Working() bool {
	switch p {
	case PhaseDiscovering, PhaseSelectingFramework, PhaseSynthesizing:
		return true
	}
	return false
}

// Session represents one idea-to-document conversation. A Session is
// mutated only through Manager operations; components read it and return
// values.
type Session struct {
	ID        string
	Phase     Phase
	Messages  []Message
	Framework Framework // zero value until selection
	Document  *Document // nil until synthesis begins
	Err       error     // failure that moved the session to PhaseError
	CreatedAt time.Time
	UpdatedAt time.Time

	// retryPhase is the working phase Retry() restores.
	retryPhase Phase
}

// QuestionsAsked returns how many discovery questions have been asked,
// derived from the transcript so a retried generation never double-counts.
func (s *Session) QuestionsAsked() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleAssistant {
			n++
		}
	}
	return n
}
