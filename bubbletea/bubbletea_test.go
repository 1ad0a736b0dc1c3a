package bubbletea_test

import (
	"context"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/bubbletea"
	"github.com/prdlabs/prdgen/mock"
)

// managerWith wires test doubles into a manager with a fresh history. Nil
// components are replaced with stubs that fail the test when called.
func managerWith(t *testing.T, q prdgen.Questioner, c prdgen.Classifier, s prdgen.Synthesizer) *prdgen.Manager {
	t.Helper()
	if q == nil {
		q = &mock.Questioner{NextQuestionFn: func(context.Context, *prdgen.Session) (string, bool, error) {
			t.Error("unexpected NextQuestion call")
			return "", false, nil
		}}
	}
	if c == nil {
		c = &mock.Classifier{ClassifyFn: func(context.Context, *prdgen.Session) (prdgen.Framework, error) {
			t.Error("unexpected Classify call")
			return "", nil
		}}
	}
	if s == nil {
		s = &mock.Synthesizer{SynthesizeFn: func(context.Context, *prdgen.Session) (prdgen.SectionStream, error) {
			t.Error("unexpected Synthesize call")
			return nil, nil
		}}
	}
	return prdgen.NewManager(q, c, s, prdgen.NewHistory())
}

// nopManager backs tests that never reach any component.
func nopManager(t *testing.T) *prdgen.Manager {
	t.Helper()
	return managerWith(t, nil, nil, nil)
}

// eventScript returns a section stream that replays the given events and
// then reports io.EOF.
func eventScript(events ...prdgen.SectionEvent) *mock.SectionStream {
	i := 0
	return &mock.SectionStream{
		NextFn: func() (prdgen.SectionEvent, error) {
			if i >= len(events) {
				return nil, io.EOF
			}
			ev := events[i]
			i++
			return ev, nil
		},
	}
}

// sectionScript builds the full event sequence generating every section of
// the framework with the given bodies.
func sectionScript(fw prdgen.Framework, title string, bodies []string) []prdgen.SectionEvent {
	titles := fw.Template()
	events := []prdgen.SectionEvent{prdgen.EventTitle{Title: title}}
	for i, body := range bodies {
		events = append(events,
			prdgen.EventSectionBegin{Index: i, Title: titles[i]},
			prdgen.EventSectionDelta{Index: i, Delta: body},
			prdgen.EventSectionEnd{Index: i, Section: prdgen.Section{
				Title:  titles[i],
				Body:   body,
				Status: prdgen.SectionDone,
			}},
		)
	}
	return events
}

func initModel(t *testing.T, mgr *prdgen.Manager) bubbletea.Model {
	t.Helper()
	return initModelWithSize(t, mgr, 80, 24)
}

func initModelWithSize(t *testing.T, mgr *prdgen.Manager, width, height int) bubbletea.Model {
	t.Helper()
	m := bubbletea.New(mgr, mgr.NewSession(), prdgen.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message through Update and asserts the concrete
// model type survives. Returned commands are dropped; tests that need a
// command's message run the component themselves and inject the result.
func updateModel(t *testing.T, m bubbletea.Model, msg tea.Msg) bubbletea.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(bubbletea.Model)
	if !ok {
		t.Fatalf("Update returned %T, want bubbletea.Model", updated)
	}
	return next
}

// typeString feeds text into the model one rune at a time.
func typeString(t *testing.T, m bubbletea.Model, s string) bubbletea.Model {
	t.Helper()
	for _, r := range s {
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// keyRune sends a single character key.
func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}
