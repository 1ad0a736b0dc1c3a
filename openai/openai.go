// Package openai implements [prdgen.Gateway] for OpenAI-compatible local
// servers such as llama.cpp, LM Studio and vLLM.
//
// Generation goes through POST /chat/completions; streaming responses
// arrive as SSE "data:" lines terminated by "data: [DONE]". The package
// exists to keep the gateway contract honest: any prompt-in/text-out
// backend must be able to satisfy it, not just Ollama. Retry and timeout
// policy matches the ollama package.
package openai

import "time"

// DefaultModel is used when [WithModel] is not given. Most local servers
// load a single model and ignore the name, so a placeholder works.
const DefaultModel = "local"

const (
	defaultBaseURL = "http://127.0.0.1:8080/v1"
	chatPath       = "/chat/completions"
	modelsPath     = "/models"

	defaultMaxRetries        = 3
	defaultRetryBackoff      = 500 * time.Millisecond
	defaultFirstTokenTimeout = 30 * time.Second
	defaultCompleteTimeout   = 120 * time.Second

	doneMarker = "[DONE]"
)

// apiRequest is the JSON body sent to /chat/completions.
type apiRequest struct {
	Model         string             `json:"model"`
	Messages      []apiMessage       `json:"messages"`
	Stream        bool               `json:"stream"`
	MaxTokens     int                `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StreamOptions *apiStreamOptions  `json:"stream_options,omitempty"`
}

type apiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse covers both non-streaming responses (Choices[].Message) and
// streaming chunks (Choices[].Delta).
type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiChoice struct {
	Message      apiMessage `json:"message"`
	Delta        apiDelta   `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type apiDelta struct {
	Content string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// apiModelsResponse is the JSON body returned by GET /models.
type apiModelsResponse struct {
	Data []apiModel `json:"data"`
}

type apiModel struct {
	ID string `json:"id"`
}
