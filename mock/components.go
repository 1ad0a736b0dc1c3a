package mock

import (
	"context"

	"github.com/prdlabs/prdgen"
)

// Interface compliance checks.
var (
	_ prdgen.Questioner  = (*Questioner)(nil)
	_ prdgen.Classifier  = (*Classifier)(nil)
	_ prdgen.Synthesizer = (*Synthesizer)(nil)
)

// Questioner is a test double for prdgen.Questioner.
type Questioner struct {
	NextQuestionFn func(ctx context.Context, s *prdgen.Session) (string, bool, error)
}

// NextQuestion delegates to NextQuestionFn.
func (q *Questioner) NextQuestion(ctx context.Context, s *prdgen.Session) (string, bool, error) {
	return q.NextQuestionFn(ctx, s)
}

// Classifier is a test double for prdgen.Classifier.
type Classifier struct {
	ClassifyFn func(ctx context.Context, s *prdgen.Session) (prdgen.Framework, error)
}

// Classify delegates to ClassifyFn.
func (c *Classifier) Classify(ctx context.Context, s *prdgen.Session) (prdgen.Framework, error) {
	return c.ClassifyFn(ctx, s)
}

// Synthesizer is a test double for prdgen.Synthesizer.
type Synthesizer struct {
	SynthesizeFn func(ctx context.Context, s *prdgen.Session) (prdgen.SectionStream, error)
}

// Synthesize delegates to SynthesizeFn.
func (s *Synthesizer) Synthesize(ctx context.Context, sess *prdgen.Session) (prdgen.SectionStream, error) {
	return s.SynthesizeFn(ctx, sess)
}
