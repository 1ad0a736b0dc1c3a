// Package synthesis generates a session's document one section at a time.
//
// Each section is a separate streaming gateway call whose prompt carries
// the discovery transcript plus every section already written, so later
// sections stay consistent with earlier ones. Sections are generated
// strictly in template order; a failed section halts the run and leaves
// everything after it untouched for a later resume.
package synthesis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
)

const (
	defaultTemperature = 0.7
	titleTemperature   = 0.3
)

const sectionPrompt = `You are an expert product manager writing a product requirements document section by section. Write clear, specific, skimmable prose. Use short paragraphs and markdown bullet lists where they help. Ground every claim in the conversation; when the conversation leaves a detail open, say so instead of inventing it.`

const titlePrompt = `You name product requirements documents. Reply with a concise document title only: no quotes, no markdown, at most eight words.`

// Interface compliance check.
var _ prdgen.Synthesizer = (*Synthesizer)(nil)

// Synthesizer implements [prdgen.Synthesizer] on top of a gateway.
type Synthesizer struct {
	gateway     prdgen.Gateway
	temperature float64
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a [Synthesizer].
type Option func(*Synthesizer)

// WithTemperature sets the sampling temperature for section generation.
func WithTemperature(t float64) Option {
	return func(s *Synthesizer) { s.temperature = t }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// WithClock sets the time source used for the fallback document title.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New creates a [Synthesizer].
func New(gateway prdgen.Gateway, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		gateway:     gateway,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Synthesize starts a generation run for the session's document. The run
// begins at the document's resume index, so sections completed by an
// earlier run are never redone. No gateway call happens until the first
// Next() on the returned stream.
func (s *Synthesizer) Synthesize(ctx context.Context, session *prdgen.Session) (prdgen.SectionStream, error) {
	doc := session.Document
	if doc == nil {
		return nil, fmt.Errorf("synthesis: session %s has no document", session.ID)
	}

	titles := make([]string, len(doc.Sections))
	bodies := make([]string, len(doc.Sections))
	for i, sec := range doc.Sections {
		titles[i] = sec.Title
		if sec.Status == prdgen.SectionDone {
			bodies[i] = sec.Body
		}
	}
	idx := doc.ResumeIndex()

	return &sectionStream{
		ctx:       ctx,
		syn:       s,
		session:   session,
		framework: doc.Framework,
		titles:    titles,
		bodies:    bodies,
		idx:       idx,
		needTitle: idx == 0 && doc.Title == "",
	}, nil
}

// fallbackTitle is used when the model fails to produce a usable title.
// Title generation never fails a run.
func fallbackTitle(now time.Time) string {
	return "PRD – " + now.Format("02 Jan 2006")
}
