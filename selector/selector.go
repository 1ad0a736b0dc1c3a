// Package selector classifies a finished discovery transcript into one of
// the document frameworks.
//
// Classification is a single low-temperature completion followed by a
// tolerant parse of the reply. An unparseable or ambiguous reply falls
// back to the default framework rather than failing the session; only
// transport errors propagate.
package selector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
)

const defaultTemperature = 0.1

// Interface compliance check.
var _ prdgen.Classifier = (*Selector)(nil)

// Selector implements [prdgen.Classifier] on top of a gateway.
type Selector struct {
	gateway     prdgen.Gateway
	temperature float64
	logger      *zap.Logger
}

// Option configures a [Selector].
type Option func(*Selector)

// WithTemperature sets the sampling temperature for classification.
// Classification wants determinism, so the default is low.
func WithTemperature(t float64) Option {
	return func(s *Selector) { s.temperature = t }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// New creates a [Selector].
func New(gateway prdgen.Gateway, opts ...Option) *Selector {
	s := &Selector{
		gateway:     gateway,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Classify picks the framework that best fits the session's transcript.
// Replies the parser cannot pin to exactly one framework resolve to
// [prdgen.DefaultFramework] with a nil error.
func (s *Selector) Classify(ctx context.Context, session *prdgen.Session) (prdgen.Framework, error) {
	temp := s.temperature
	messages := make([]prdgen.Message, 0, len(session.Messages)+1)
	messages = append(messages, session.Messages...)
	messages = append(messages, prdgen.Message{
		Role: prdgen.RoleUser,
		Text: closingInstruction(),
	})

	reply, err := s.gateway.Complete(ctx, prdgen.Request{
		System:      classifierPrompt(),
		Messages:    messages,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}

	fw, ok := Parse(reply)
	if !ok {
		s.logger.Warn("unparseable framework reply, using default",
			zap.String("session", session.ID),
			zap.String("reply", strings.TrimSpace(reply)),
			zap.String("framework", string(fw)),
		)
	}
	return fw, nil
}

// Parse extracts a framework identifier from a model reply. It tolerates
// casing, punctuation, surrounding prose, and common informal names for
// the frameworks. The second return is false when the reply does not
// resolve to exactly one framework; the first return is then the default.
func Parse(reply string) (prdgen.Framework, bool) {
	norm := normalize(reply)

	var matched []prdgen.Framework
	add := func(fw prdgen.Framework) {
		for _, m := range matched {
			if m == fw {
				return
			}
		}
		matched = append(matched, fw)
	}

	if containsAny(norm, "scoped-feature", "lenny") {
		add(prdgen.FrameworkScopedFeature)
	}
	if containsAny(norm, "big-bet", "pr-faq", "prfaq", "amazon", "press-release") {
		add(prdgen.FrameworkBigBet)
	}
	if containsAny(norm, "lean-mvp", "lean", "mvp", "one-pager") {
		add(prdgen.FrameworkLeanMVP)
	}

	if len(matched) == 1 {
		return matched[0], true
	}
	return prdgen.DefaultFramework, false
}

// normalize lowercases the reply and folds every run of non-alphanumeric
// characters into a single dash, so "Big Bet (PR/FAQ)" and "big-bet"
// compare equal.
func normalize(reply string) string {
	var b strings.Builder
	b.Grow(len(reply))
	dash := false
	for _, r := range strings.ToLower(reply) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return b.String()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func classifierPrompt() string {
	var b strings.Builder
	b.WriteString("You are selecting the document framework that best fits a product discovery conversation.\n\nThe frameworks:\n")
	for _, fw := range prdgen.Frameworks() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", fw, fw.DisplayName(), fw.Criteria())
	}
	b.WriteString("\nRead the conversation and pick exactly one framework.")
	return b.String()
}

func closingInstruction() string {
	ids := make([]string, 0, len(prdgen.Frameworks()))
	for _, fw := range prdgen.Frameworks() {
		ids = append(ids, string(fw))
	}
	return fmt.Sprintf("Which framework fits this product best? Answer with exactly one of: %s. Reply with the identifier only.",
		strings.Join(ids, ", "))
}
