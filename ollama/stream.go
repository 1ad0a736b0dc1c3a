package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prdlabs/prdgen"
)

// stream implements [prdgen.TokenStream] by parsing newline-delimited JSON
// chunks from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	// callerCtx is the caller's context, consulted to distinguish caller
	// cancellation from watchdog cancellation of the request context.
	callerCtx context.Context
	cancel    context.CancelFunc

	state prdgen.StreamState
	buf   strings.Builder
	usage prdgen.Usage
	err   error // terminal error, if any

	// doneSeen is set when the final chunk carried trailing content that
	// still had to be delivered before reporting io.EOF.
	doneSeen bool

	timedOut   atomic.Bool
	firstTimer *time.Timer
	totalTimer *time.Timer
}

// Interface compliance check.
var _ prdgen.TokenStream = (*stream)(nil)

func newStream(callerCtx context.Context, cancel context.CancelFunc, body io.ReadCloser) *stream {
	return &stream{
		body:      body,
		scanner:   bufio.NewScanner(body),
		callerCtx: callerCtx,
		cancel:    cancel,
		state:     prdgen.StreamStateNew,
	}
}

// timeout is fired by the watchdog timers. It cancels the in-flight
// request, which unblocks the scanner; Next then reports the timeout.
func (s *stream) timeout() {
	s.timedOut.Store(true)
	s.cancel()
}

// Next returns the next text fragment. Returns io.EOF when the backend
// reports completion.
func (s *stream) Next() (string, error) {
	switch s.state {
	case prdgen.StreamStateComplete:
		return "", io.EOF
	case prdgen.StreamStateError:
		return "", s.err
	case prdgen.StreamStateClosed:
		return "", fmt.Errorf("ollama: %w", prdgen.ErrStreamClosed)
	}

	if s.doneSeen {
		s.complete()
		return "", io.EOF
	}

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.terminate(fmt.Errorf("ollama: reading stream: %v: %w", err, prdgen.ErrBackendUnavailable))
			} else {
				s.terminate(fmt.Errorf("ollama: unexpected end of stream: %w", prdgen.ErrBackendUnavailable))
			}
			return "", s.err
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk apiChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.terminate(fmt.Errorf("ollama: malformed chunk: %v: %w", err, prdgen.ErrBackendUnavailable))
			return "", s.err
		}
		if chunk.Error != "" {
			s.terminate(fmt.Errorf("ollama: %s: %w", chunk.Error, prdgen.ErrBackendUnavailable))
			return "", s.err
		}

		if s.state == prdgen.StreamStateNew && s.firstTimer != nil {
			s.firstTimer.Stop()
		}
		s.state = prdgen.StreamStateStreaming

		if chunk.Done {
			s.usage = prdgen.Usage{
				PromptTokens: chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
			}
			if chunk.Message.Content != "" {
				s.doneSeen = true
				s.buf.WriteString(chunk.Message.Content)
				return chunk.Message.Content, nil
			}
			s.complete()
			return "", io.EOF
		}

		if chunk.Message.Content == "" {
			continue
		}
		s.buf.WriteString(chunk.Message.Content)
		return chunk.Message.Content, nil
	}
}

// State returns the current stream state.
func (s *stream) State() prdgen.StreamState {
	return s.state
}

// Text returns everything received so far.
func (s *stream) Text() string {
	return s.buf.String()
}

// Usage returns the backend's token counters, populated from the final
// chunk. Zero until the stream completes.
func (s *stream) Usage() prdgen.Usage {
	return s.usage
}

// Close releases the request and the response body. Closing mid-stream
// moves the stream to the closed state; a terminal state reached earlier
// is kept.
func (s *stream) Close() error {
	s.stopTimers()
	s.cancel()
	if s.state != prdgen.StreamStateComplete && s.state != prdgen.StreamStateError {
		s.state = prdgen.StreamStateClosed
	}
	return s.body.Close()
}

func (s *stream) complete() {
	s.stopTimers()
	s.cancel()
	s.state = prdgen.StreamStateComplete
}

// terminate records a terminal error. Watchdog cancellation reports a
// generation timeout; caller cancellation passes the context error
// through; everything else surfaces as given.
func (s *stream) terminate(err error) {
	s.stopTimers()
	s.state = prdgen.StreamStateError
	switch {
	case s.timedOut.Load():
		s.err = fmt.Errorf("ollama: generation timed out: %w", prdgen.ErrGenerationTimeout)
	case s.callerCtx.Err() != nil:
		s.err = s.callerCtx.Err()
	default:
		s.err = err
	}
	s.cancel()
}

func (s *stream) stopTimers() {
	if s.firstTimer != nil {
		s.firstTimer.Stop()
	}
	if s.totalTimer != nil {
		s.totalTimer.Stop()
	}
}
