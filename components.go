package prdgen

import "context"

// Questioner drives the discovery phase. NextQuestion reads the session's
// transcript (including the answer the caller just collected) and produces
// the next discovery question, or reports that discovery is finished.
//
// done=true is a normal outcome, not an error: either the model signaled it
// has enough context or the question ceiling was reached. The question is
// empty when done. Implementations never mutate the session.
type Questioner interface {
	NextQuestion(ctx context.Context, s *Session) (question string, done bool, err error)
}

// Classifier picks the framework that best fits a finished discovery
// transcript. Unparseable or ambiguous model output resolves to
// DefaultFramework, never an error; the error return is reserved for
// gateway failures. Implementations never mutate the session.
type Classifier interface {
	Classify(ctx context.Context, s *Session) (Framework, error)
}

// Synthesizer generates a session's document section by section, reporting
// progress through the returned SectionStream. It reads s.Document to
// decide which section to start from and never mutates the session; the
// Manager applies events to the document as the caller pulls them.
type Synthesizer interface {
	Synthesize(ctx context.Context, s *Session) (SectionStream, error)
}
