package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prdlabs/prdgen"
	"github.com/prdlabs/prdgen/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatLine(content string, done bool) string {
	resp := map[string]any{
		"model":   "llama3.1:8b",
		"message": map[string]string{"role": "assistant", "content": content},
		"done":    done,
	}
	if done {
		resp["done_reason"] = "stop"
		resp["prompt_eval_count"] = 12
		resp["eval_count"] = 7
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		fmt.Fprintln(w, chatLine("ok", true))
	}))
	defer srv.Close()

	temp := 0.7
	client := ollama.New(ollama.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), prdgen.Request{
		System: "You are a product manager.",
		Messages: []prdgen.Message{
			{Role: prdgen.RoleUser, Text: "an idea"},
			{Role: prdgen.RoleAssistant, Text: "a question"},
			{Role: prdgen.RoleUser, Text: "an answer"},
		},
		MaxTokens:   2048,
		Temperature: &temp,
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "llama3.1:8b", body["model"], "empty model falls back to the client default")
	assert.Equal(t, false, body["stream"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are a product manager.", first["content"])
	second := msgs[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "an idea", second["content"])
	last := msgs[3].(map[string]any)
	assert.Equal(t, "user", last["role"])

	opts := body["options"].(map[string]any)
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, float64(2048), opts["num_predict"])
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, chatLine("What problem does this solve?", true))
	}))
	defer srv.Close()

	client := ollama.New(ollama.WithBaseURL(srv.URL))
	got, err := client.Complete(context.Background(), prdgen.Request{
		Messages: []prdgen.Message{{Role: prdgen.RoleUser, Text: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "What problem does this solve?", got)
}

func TestClient_Complete_RetriesConnectionFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, `{"error":"loading model"}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, chatLine("recovered", true))
	}))
	defer srv.Close()

	client := ollama.New(
		ollama.WithBaseURL(srv.URL),
		ollama.WithMaxRetries(3),
		ollama.WithRetryBackoff(time.Millisecond),
	)
	got, err := client.Complete(context.Background(), prdgen.Request{
		Messages: []prdgen.Message{{Role: prdgen.RoleUser, Text: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Complete_RetriesExhausted(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"no models loaded"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ollama.New(
		ollama.WithBaseURL(srv.URL),
		ollama.WithMaxRetries(2),
		ollama.WithRetryBackoff(time.Millisecond),
	)
	_, err := client.Complete(context.Background(), prdgen.Request{
		Messages: []prdgen.Message{{Role: prdgen.RoleUser, Text: "hi"}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, prdgen.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "no models loaded")
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestClient_Complete_TimeoutNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	client := ollama.New(
		ollama.WithBaseURL(srv.URL),
		ollama.WithCompleteTimeout(50*time.Millisecond),
		ollama.WithRetryBackoff(time.Millisecond),
	)
	_, err := client.Complete(context.Background(), prdgen.Request{
		Messages: []prdgen.Message{{Role: prdgen.RoleUser, Text: "hi"}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, prdgen.ErrGenerationTimeout)
	assert.Equal(t, int32(1), calls.Load(), "timeouts are never retried")
}

func TestClient_Complete_ValidationError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	temp := 3.0
	client := ollama.New(ollama.WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), prdgen.Request{Temperature: &temp})

	require.Error(t, err)
	assert.ErrorIs(t, err, prdgen.ErrValidation)
	assert.Equal(t, int32(0), calls.Load(), "invalid requests never reach the backend")
}

func TestClient_ListModels(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b"},{"name":"mistral:7b"}]}`)
	}))
	defer srv.Close()

	client := ollama.New(ollama.WithBaseURL(srv.URL))
	models, err := client.ListModels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "mistral:7b"}, models)
}

func TestClient_ListModels_BackendDown(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(nil)
	srv.Close()

	client := ollama.New(ollama.WithBaseURL(srv.URL))
	_, err := client.ListModels(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, prdgen.ErrBackendUnavailable)
}
