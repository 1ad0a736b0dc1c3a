package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prdlabs/prdgen"
)

// stream implements [prdgen.TokenStream] by parsing SSE "data:" lines from
// an HTTP response body.
type stream struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	callerCtx context.Context
	cancel    context.CancelFunc

	state prdgen.StreamState
	buf   strings.Builder
	usage prdgen.Usage
	err   error // terminal error, if any

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

func (s *stream) timeout() {
	s.timedOut.Store(true)
	s.cancel()
}

// Next returns the next text fragment. Returns io.EOF after the server's
// [DONE] marker.
func (s *stream) Next() (string, error) {
	switch s.state {
	case prdgen.StreamStateComplete:
		return "", io.EOF
	case prdgen.StreamStateError:
		return "", s.err
	case prdgen.StreamStateClosed:
		return "", fmt.Errorf("openai: %w", prdgen.ErrStreamClosed)
	}

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.terminate(fmt.Errorf("openai: reading stream: %v: %w", err, prdgen.ErrBackendUnavailable))
			} else {
				s.terminate(fmt.Errorf("openai: unexpected end of stream: %w", prdgen.ErrBackendUnavailable))
			}
			return "", s.err
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// event:/id: fields carry nothing for this API.
			continue
		}
		data = strings.TrimSpace(data)

		if data == doneMarker {
			s.complete()
			return "", io.EOF
		}

		var chunk apiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.terminate(fmt.Errorf("openai: malformed chunk: %v: %w", err, prdgen.ErrBackendUnavailable))
			return "", s.err
		}
		if chunk.Error != nil {
			s.terminate(fmt.Errorf("openai: %s: %w", chunk.Error.Message, prdgen.ErrBackendUnavailable))
			return "", s.err
		}

		if s.state == prdgen.StreamStateNew && s.firstTimer != nil {
			s.firstTimer.Stop()
		}
		s.state = prdgen.StreamStateStreaming

		if chunk.Usage != nil {
			s.usage = prdgen.Usage{
				PromptTokens: chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			// Usage-only chunk, sent after the final delta.
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		s.buf.WriteString(delta)
		return delta, nil
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

// Usage returns the token counters reported by the server's usage chunk,
// zero when the server never sent one.
func (s *stream) Usage() prdgen.Usage {
	return s.usage
}

// Close releases the request and the response body.
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

func (s *stream) terminate(err error) {
	s.stopTimers()
	s.state = prdgen.StreamStateError
	switch {
	case s.timedOut.Load():
		s.err = fmt.Errorf("openai: generation timed out: %w", prdgen.ErrGenerationTimeout)
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
