package discovery_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/discovery"
	"github.com/prdlabs/prdgen/mock"
)

// sessionWithExchanges builds a discovery-phase session whose transcript
// holds n question/answer pairs plus one trailing unanswered user message.
func sessionWithExchanges(n int) *prdgen.Session {
	s := &prdgen.Session{ID: "sess-1", Phase: prdgen.PhaseDiscovering}
	s.Messages = append(s.Messages, prdgen.Message{Role: prdgen.RoleUser, Text: "I want to build a dark mode toggle.", Index: 0})
	for i := 0; i < n; i++ {
		s.Messages = append(s.Messages,
			prdgen.Message{Role: prdgen.RoleAssistant, Text: "Question?", Index: len(s.Messages)},
			prdgen.Message{Role: prdgen.RoleUser, Text: "Answer.", Index: len(s.Messages) + 1},
		)
	}
	return s
}

func TestOrchestrator_AsksQuestion(t *testing.T) {
	t.Parallel()

	var got prdgen.Request
	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			got = req
			return "  Who are the target users?  \n", nil
		},
	}
	o := discovery.New(gw)
	s := sessionWithExchanges(0)

	question, done, err := o.NextQuestion(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "Who are the target users?", question)

	// The request carries the interview instructions and the transcript.
	assert.Contains(t, got.System, "ONE question")
	assert.Contains(t, got.System, "READY_TO_GENERATE")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, prdgen.RoleUser, got.Messages[0].Role)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 0.001)
}

func TestOrchestrator_SufficiencySignal(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "READY_TO_GENERATE", nil
		},
	}
	o := discovery.New(gw)
	s := sessionWithExchanges(2)

	question, done, err := o.NextQuestion(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, question)
}

func TestOrchestrator_SufficiencyInsideProse(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "I have enough context now. READY_TO_GENERATE", nil
		},
	}
	o := discovery.New(gw)
	s := sessionWithExchanges(1)

	_, done, err := o.NextQuestion(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestOrchestrator_PrematureSufficiency(t *testing.T) {
	t.Parallel()

	// The model signals readiness before a single question was asked. The
	// orchestrator substitutes the opening question instead of finishing.
	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "READY_TO_GENERATE", nil
		},
	}
	o := discovery.New(gw)
	s := sessionWithExchanges(0)

	question, done, err := o.NextQuestion(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, question, "What problem")
}

func TestOrchestrator_MinQuestionsOption(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "READY_TO_GENERATE", nil
		},
	}
	o := discovery.New(gw, discovery.WithMinQuestions(3))

	// Two questions asked is still below the minimum of three.
	_, done, err := o.NextQuestion(context.Background(), sessionWithExchanges(2))
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = o.NextQuestion(context.Background(), sessionWithExchanges(3))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestOrchestrator_QuestionCeiling(t *testing.T) {
	t.Parallel()

	// At the ceiling the orchestrator finishes without consulting the
	// model at all.
	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			t.Fatal("gateway must not be called at the ceiling")
			return "", nil
		},
	}
	o := discovery.New(gw, discovery.WithMaxQuestions(2))
	s := sessionWithExchanges(2)

	question, done, err := o.NextQuestion(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, question)
}

func TestOrchestrator_EmptyReply(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "   \n", nil
		},
	}
	o := discovery.New(gw)

	question, done, err := o.NextQuestion(context.Background(), sessionWithExchanges(0))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, question, "What problem")

	question, done, err = o.NextQuestion(context.Background(), sessionWithExchanges(2))
	require.NoError(t, err)
	assert.False(t, done)
	assert.NotEmpty(t, question)
	assert.False(t, strings.Contains(question, "What problem"))
}

func TestOrchestrator_GatewayError(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "", prdgen.ErrBackendUnavailable
		},
	}
	o := discovery.New(gw)

	_, done, err := o.NextQuestion(context.Background(), sessionWithExchanges(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, prdgen.ErrBackendUnavailable))
	assert.False(t, done)
}

func TestOrchestrator_ContextCancellation(t *testing.T) {
	t.Parallel()

	gw := &mock.Gateway{
		CompleteFn: func(ctx context.Context, req prdgen.Request) (string, error) {
			return "", ctx.Err()
		},
	}
	o := discovery.New(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := o.NextQuestion(ctx, sessionWithExchanges(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, io.EOF))
}
