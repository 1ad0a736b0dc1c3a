package prdgen_test

import (
	"errors"
	"testing"

	"github.com/prdlabs/prdgen"
	"github.com/stretchr/testify/assert"
)

func TestEventTitle_ImplementsSectionEvent(t *testing.T) {
	t.Parallel()
	var e prdgen.SectionEvent = prdgen.EventTitle{Title: "Dark Mode Toggle PRD"}
	assert.NotNil(t, e)
}

func TestEventSectionBegin_ImplementsSectionEvent(t *testing.T) {
	t.Parallel()
	var e prdgen.SectionEvent = prdgen.EventSectionBegin{Index: 0, Title: "Problem Statement"}
	assert.NotNil(t, e)
}

func TestEventSectionDelta_ImplementsSectionEvent(t *testing.T) {
	t.Parallel()
	var e prdgen.SectionEvent = prdgen.EventSectionDelta{Index: 0, Delta: "Users report"}
	assert.NotNil(t, e)
}

func TestEventSectionEnd_ImplementsSectionEvent(t *testing.T) {
	t.Parallel()
	var e prdgen.SectionEvent = prdgen.EventSectionEnd{
		Index:   0,
		Section: prdgen.Section{Title: "Problem Statement", Body: "done", Status: prdgen.SectionDone},
	}
	assert.NotNil(t, e)
}

func TestEventSectionFailed_ImplementsSectionEvent(t *testing.T) {
	t.Parallel()
	var e prdgen.SectionEvent = prdgen.EventSectionFailed{Index: 2, Err: errors.New("boom")}
	assert.NotNil(t, e)
}

func TestSectionEventTypeSwitch_Exhaustive(t *testing.T) {
	t.Parallel()
	events := []prdgen.SectionEvent{
		prdgen.EventTitle{Title: "t"},
		prdgen.EventSectionBegin{Index: 0, Title: "s"},
		prdgen.EventSectionDelta{Index: 0, Delta: "d"},
		prdgen.EventSectionEnd{Index: 0},
		prdgen.EventSectionFailed{Index: 0, Err: errors.New("x")},
	}
	assert.Len(t, events, 5, "update slice and switch when adding new SectionEvent types")
	for _, e := range events {
		switch e.(type) {
		case prdgen.EventTitle:
		case prdgen.EventSectionBegin:
		case prdgen.EventSectionDelta:
		case prdgen.EventSectionEnd:
		case prdgen.EventSectionFailed:
		default:
			t.Fatalf("unexpected event type: %T", e)
		}
	}
}
