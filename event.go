package prdgen

// SectionEvent is a sealed interface representing a document synthesis
// event. Events are purely semantic. Transport/protocol errors come from
// Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type SectionEvent interface {
	sectionEvent()
}

// EventTitle reports the document title. Emitted at most once, before any
// section work, and only on runs that start from the first section.
type EventTitle struct {
	Title string
}

func (EventTitle) sectionEvent() {}

// EventSectionBegin signals that generation of a section has begun.
type EventSectionBegin struct {
	Index int
	Title string
}

func (EventSectionBegin) sectionEvent() {}

// EventSectionDelta carries one streamed fragment of a section body.
type EventSectionDelta struct {
	Index int
	Delta string
}

func (EventSectionDelta) sectionEvent() {}

// EventSectionEnd signals that a section finished, carrying its final
// content and the usage of the call that produced it.
type EventSectionEnd struct {
	Index   int
	Section Section
	Usage   Usage
}

func (EventSectionEnd) sectionEvent() {}

// EventSectionFailed signals that generating a section failed and the run
// halted. It is always the last event of its run; the next Next() call
// returns io.EOF. Fragments delivered before the failure remain part of
// the section's partial body.
type EventSectionFailed struct {
	Index int
	Err   error
}

func (EventSectionFailed) sectionEvent() {}

// Interface compliance checks.
var (
	_ SectionEvent = EventTitle{}
	_ SectionEvent = EventSectionBegin{}
	_ SectionEvent = EventSectionDelta{}
	_ SectionEvent = EventSectionEnd{}
	_ SectionEvent = EventSectionFailed{}
)
