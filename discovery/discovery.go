// Package discovery drives the question-asking phase of a session.
//
// The orchestrator prompts the model to ask exactly one sharp clarifying
// question per exchange, or to signal that it has gathered enough context.
// Discovery always terminates: a hard question ceiling caps the exchange
// regardless of model behavior, and a minimum guarantees at least one
// question is asked even when the model claims immediate sufficiency.
package discovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
)

const (
	defaultMaxQuestions = 5
	defaultMinQuestions = 1
	defaultTemperature  = 0.7

	// readyToken is the literal the model answers with once it has enough
	// context to generate the document.
	readyToken = "READY_TO_GENERATE"
)

const systemPrompt = `You are an expert product manager running a product discovery interview. The user brings a raw product idea; your job is to sharpen it until a requirements document can be written.

Cover these areas over the course of the interview:
1. The problem: what hurts today, and how is it handled now?
2. Target users: who exactly has this problem, and in what context?
3. Success: what outcome or metric would prove this worked?
4. Constraints: technical, business, or timeline boundaries.
5. Risks and non-goals: what could sink this, and what is explicitly out of scope?

Rules:
- Ask EXACTLY ONE question per reply. No preamble, no summaries, just the question.
- Never repeat ground the user already covered; ask about what is still unknown.
- When you have enough to write a solid document, reply with exactly ` + readyToken + ` and nothing else.`

// openingQuestion starts the interview when the model tries to skip
// discovery before the minimum number of questions.
const openingQuestion = "What problem are you trying to solve, and who has it today?"

// followupQuestion substitutes for an empty model reply mid-interview.
const followupQuestion = "What else should I know about constraints, risks, or how you will measure success?"

// Interface compliance check.
var _ prdgen.Questioner = (*Orchestrator)(nil)

// Orchestrator implements [prdgen.Questioner] on top of a gateway.
type Orchestrator struct {
	gateway      prdgen.Gateway
	maxQuestions int
	minQuestions int
	temperature  float64
	logger       *zap.Logger
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMaxQuestions sets the hard question ceiling. Discovery terminates
// when the ceiling is reached no matter what the model wants.
func WithMaxQuestions(n int) Option {
	return func(o *Orchestrator) { o.maxQuestions = n }
}

// WithMinQuestions sets how many questions must be asked before a
// sufficiency signal from the model is accepted.
func WithMinQuestions(n int) Option {
	return func(o *Orchestrator) { o.minQuestions = n }
}

// WithTemperature sets the sampling temperature for question generation.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an [Orchestrator].
func New(gateway prdgen.Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:      gateway,
		maxQuestions: defaultMaxQuestions,
		minQuestions: defaultMinQuestions,
		temperature:  defaultTemperature,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// NextQuestion produces the next discovery question from the transcript,
// or reports that discovery is finished. The question count is derived
// from the transcript's assistant messages, so a retried call after a
// failure never double-counts.
func (o *Orchestrator) NextQuestion(ctx context.Context, s *prdgen.Session) (string, bool, error) {
	asked := s.QuestionsAsked()
	if asked >= o.maxQuestions {
		o.logger.Info("question ceiling reached",
			zap.String("session", s.ID),
			zap.Int("asked", asked),
		)
		return "", true, nil
	}

	temp := o.temperature
	reply, err := o.gateway.Complete(ctx, prdgen.Request{
		System:      systemPrompt,
		Messages:    s.Messages,
		Temperature: &temp,
	})
	if err != nil {
		return "", false, err
	}

	question := strings.TrimSpace(reply)
	if strings.Contains(strings.ToUpper(question), readyToken) {
		if asked >= o.minQuestions {
			return "", true, nil
		}
		// The model may not skip discovery entirely.
		o.logger.Debug("premature sufficiency signal",
			zap.String("session", s.ID),
			zap.Int("asked", asked),
		)
		return openingQuestion, false, nil
	}
	if question == "" {
		if asked == 0 {
			return openingQuestion, false, nil
		}
		return followupQuestion, false, nil
	}
	return question, false, nil
}
