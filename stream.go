package prdgen

// StreamState indicates the current state of a TokenStream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving fragments.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// TokenStream is a pull-based iterator over generated text fragments.
// Cancellation flows through the context passed to Gateway.Stream().
//
// Next() returns the next fragment, io.EOF on normal completion, or the
// error that ended the stream. The sequence is finite and not restartable:
// regenerating requires a fresh Gateway call, and once a terminal state is
// reached every further Next() returns the terminal result.
//
// Text() returns everything received so far. After a failure it holds the
// partial output produced before the error, which callers keep per the
// timeout policy. Usage() is meaningful once the stream is terminal;
// backends that report no usage return the zero value.
type TokenStream interface {
	Next() (string, error)
	State() StreamState
	Text() string
	Usage() Usage
	Close() error
}

// SectionStream is a pull-based iterator over document synthesis events.
// Next() returns io.EOF when the run ends, whether the run completed every
// section or halted on an EventSectionFailed. Context cancellation
// surfaces as Next()'s error, not as an event. Like TokenStream, the
// sequence is finite and not restartable; resuming synthesis requires a
// fresh Synthesize call, which skips sections already done.
type SectionStream interface {
	Next() (SectionEvent, error)
	Close() error
}
