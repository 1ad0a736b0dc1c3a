// Package ollama implements [prdgen.Gateway] for the local Ollama HTTP API.
//
// Generation goes through POST /api/chat; streaming responses arrive as
// newline-delimited JSON chunks that are surfaced one fragment at a time
// through the pull-based [prdgen.TokenStream] interface. Connection
// failures are retried with exponential backoff up to a fixed count;
// generation timeouts are never retried and preserve the fragments already
// received.
package ollama

import "time"

// DefaultModel is used when [WithModel] is not given. It matches the
// model the project documentation tells people to pull first.
const DefaultModel = "llama3.1:8b"

const (
	defaultBaseURL = "http://127.0.0.1:11434"
	chatPath       = "/api/chat"
	tagsPath       = "/api/tags"

	defaultMaxRetries        = 3
	defaultRetryBackoff      = 500 * time.Millisecond
	defaultFirstTokenTimeout = 30 * time.Second
	defaultCompleteTimeout   = 120 * time.Second
)

// apiRequest is the JSON body sent to /api/chat.
type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiOptions carries generation parameters. NumPredict is Ollama's name
// for the maximum number of output tokens.
type apiOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

// apiChatResponse is one line of a /api/chat response. A streaming call
// emits one line per fragment; the final line has Done set and carries the
// eval counters. A non-streaming call emits a single line with the full
// message.
type apiChatResponse struct {
	Model           string     `json:"model"`
	Message         apiMessage `json:"message"`
	Done            bool       `json:"done"`
	DoneReason      string     `json:"done_reason,omitempty"`
	PromptEvalCount int        `json:"prompt_eval_count,omitempty"`
	EvalCount       int        `json:"eval_count,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// apiTagsResponse is the body of GET /api/tags.
type apiTagsResponse struct {
	Models []apiModel `json:"models"`
}

type apiModel struct {
	Name string `json:"name"`
}

// apiErrorResponse is the JSON error body Ollama returns with non-2xx
// statuses.
type apiErrorResponse struct {
	Error string `json:"error"`
}
