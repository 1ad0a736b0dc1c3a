package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
)

// Interface compliance check.
var _ prdgen.SectionStream = (*sectionStream)(nil)

// sectionStream walks the document's sections in order, driving one
// streaming gateway call per section. Each Next() advances the run by one
// event, so no generation happens faster than the caller consumes it.
type sectionStream struct {
	ctx       context.Context
	syn       *Synthesizer
	session   *prdgen.Session
	framework prdgen.Framework

	titles []string // section titles in template order
	bodies []string // finished bodies, prompt context for later sections

	idx       int
	needTitle bool
	begun     bool
	cur       prdgen.TokenStream

	done   bool
	closed bool
}

func (st *sectionStream) Next() (prdgen.SectionEvent, error) {
	if st.closed {
		return nil, fmt.Errorf("synthesis: %w", prdgen.ErrStreamClosed)
	}
	if st.done {
		return nil, io.EOF
	}
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}

	if st.needTitle {
		title, err := st.generateTitle()
		if err != nil {
			return nil, err
		}
		st.needTitle = false
		return prdgen.EventTitle{Title: title}, nil
	}

	if st.idx >= len(st.titles) {
		st.done = true
		return nil, io.EOF
	}

	if st.cur == nil {
		if !st.begun {
			st.begun = true
			return prdgen.EventSectionBegin{Index: st.idx, Title: st.titles[st.idx]}, nil
		}
		ts, err := st.syn.gateway.Stream(st.ctx, st.sectionRequest())
		if err != nil {
			return st.fail(err)
		}
		st.cur = ts
	}

	frag, err := st.cur.Next()
	switch {
	case err == nil:
		return prdgen.EventSectionDelta{Index: st.idx, Delta: frag}, nil

	case errors.Is(err, io.EOF):
		body := strings.TrimSpace(st.cur.Text())
		usage := st.cur.Usage()
		st.cur.Close()
		st.cur = nil
		st.bodies[st.idx] = body
		ev := prdgen.EventSectionEnd{
			Index:   st.idx,
			Section: prdgen.Section{Title: st.titles[st.idx], Body: body, Status: prdgen.SectionDone},
			Usage:   usage,
		}
		st.idx++
		st.begun = false
		return ev, nil

	default:
		// A canceled caller ends the run at the transport level; every
		// other failure is a semantic event for the section.
		if ctxErr := st.ctx.Err(); ctxErr != nil {
			st.cur.Close()
			st.cur = nil
			return nil, ctxErr
		}
		return st.fail(err)
	}
}

// fail emits the terminal failure event for the current section. The run
// is over afterwards; the next call returns io.EOF.
func (st *sectionStream) fail(err error) (prdgen.SectionEvent, error) {
	if st.cur != nil {
		st.cur.Close()
		st.cur = nil
	}
	st.done = true
	st.syn.logger.Warn("section generation failed",
		zap.String("session", st.session.ID),
		zap.Int("section", st.idx),
		zap.String("title", st.titles[st.idx]),
		zap.Error(err),
	)
	return prdgen.EventSectionFailed{Index: st.idx, Err: err}, nil
}

func (st *sectionStream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	if st.cur != nil {
		st.cur.Close()
		st.cur = nil
	}
	return nil
}

// generateTitle asks the model for a document title. Only caller
// cancellation is an error; any other failure falls back to a dated
// placeholder so the run continues.
func (st *sectionStream) generateTitle() (string, error) {
	temp := titleTemperature
	messages := append(transcriptCopy(st.session), prdgen.Message{
		Role: prdgen.RoleUser,
		Text: "Suggest a title for the requirements document this conversation describes.",
	})
	reply, err := st.syn.gateway.Complete(st.ctx, prdgen.Request{
		System:      titlePrompt,
		Messages:    messages,
		Temperature: &temp,
	})
	if err != nil {
		if ctxErr := st.ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		st.syn.logger.Warn("title generation failed, using fallback",
			zap.String("session", st.session.ID),
			zap.Error(err),
		)
		return fallbackTitle(st.syn.now()), nil
	}
	if title := cleanTitle(reply); title != "" {
		return title, nil
	}
	return fallbackTitle(st.syn.now()), nil
}

func (st *sectionStream) sectionRequest() prdgen.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Document framework: %s.\n", st.framework.DisplayName())

	if st.idx > 0 {
		b.WriteString("\nSections already written:\n")
		for i := 0; i < st.idx; i++ {
			fmt.Fprintf(&b, "\n## %s\n\n%s\n", st.titles[i], st.bodies[i])
		}
	}

	fmt.Fprintf(&b, "\nWrite the %q section next. Return only the section body in markdown. Do not repeat the section heading and do not write any other section.", st.titles[st.idx])

	temp := st.syn.temperature
	return prdgen.Request{
		System:      sectionPrompt,
		Messages:    append(transcriptCopy(st.session), prdgen.Message{Role: prdgen.RoleUser, Text: b.String()}),
		Temperature: &temp,
	}
}

// transcriptCopy returns the session transcript as a fresh slice so the
// per-call instruction message never lands in the session.
func transcriptCopy(s *prdgen.Session) []prdgen.Message {
	out := make([]prdgen.Message, 0, len(s.Messages)+1)
	return append(out, s.Messages...)
}

// cleanTitle reduces a model reply to a single plain-text line.
func cleanTitle(reply string) string {
	line := reply
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "\"'`")
	line = strings.TrimLeft(line, "# ")
	return strings.TrimSpace(line)
}
