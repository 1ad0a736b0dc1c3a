package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prdlabs/prdgen"
)

// Interface compliance checks.
var (
	_ prdgen.Gateway     = (*Client)(nil)
	_ prdgen.ModelLister = (*Client)(nil)
)

// Client implements [prdgen.Gateway] for an OpenAI-compatible server.
type Client struct {
	baseURL           string
	model             string
	apiKey            string
	httpClient        *http.Client
	maxRetries        int
	retryBackoff      time.Duration
	firstTokenTimeout time.Duration
	completeTimeout   time.Duration
	logger            *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server base URL including the /v1 prefix.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel sets the default model used when a request leaves Model empty.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithAPIKey sets the bearer token. Local servers usually accept any
// placeholder value; some refuse requests without one.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a failed connection is retried before
// the failure surfaces. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryBackoff sets the initial backoff between retries. The backoff
// doubles on each subsequent attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) { c.retryBackoff = d }
}

// WithFirstTokenTimeout bounds how long a streaming call waits for its
// first fragment.
func WithFirstTokenTimeout(d time.Duration) Option {
	return func(c *Client) { c.firstTokenTimeout = d }
}

// WithCompleteTimeout bounds a whole generation.
func WithCompleteTimeout(d time.Duration) Option {
	return func(c *Client) { c.completeTimeout = d }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new OpenAI-compatible [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:           defaultBaseURL,
		model:             DefaultModel,
		httpClient:        http.DefaultClient,
		maxRetries:        defaultMaxRetries,
		retryBackoff:      defaultRetryBackoff,
		firstTokenTimeout: defaultFirstTokenTimeout,
		completeTimeout:   defaultCompleteTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Complete sends a blocking generation request and returns the full reply.
func (c *Client) Complete(ctx context.Context, req prdgen.Request) (string, error) {
	body, err := c.buildRequestBody(req, false)
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, c.completeTimeout)
	defer cancel()

	resp, err := c.post(cctx, body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("openai: no response within %s: %w", c.completeTimeout, prdgen.ErrGenerationTimeout)
		}
		return "", err
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("openai: no response within %s: %w", c.completeTimeout, prdgen.ErrGenerationTimeout)
		}
		return "", fmt.Errorf("openai: decoding response: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("openai: %s: %w", apiResp.Error.Message, prdgen.ErrBackendUnavailable)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices: %w", prdgen.ErrBackendUnavailable)
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Stream sends a streaming generation request and returns a
// [prdgen.TokenStream] over the SSE deltas.
func (c *Client) Stream(ctx context.Context, req prdgen.Request) (prdgen.TokenStream, error) {
	body, err := c.buildRequestBody(req, true)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	resp, err := c.post(sctx, body)
	if err != nil {
		cancel()
		return nil, err
	}

	st := newStream(ctx, cancel, resp.Body)
	st.firstTimer = time.AfterFunc(c.firstTokenTimeout, st.timeout)
	st.totalTimer = time.AfterFunc(c.completeTimeout, st.timeout)
	return st, nil
}

// ListModels returns the IDs of the models the server exposes through
// GET /models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("openai: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp)
	}

	var models apiModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("openai: decoding models: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	names := make([]string, len(models.Data))
	for i, m := range models.Data {
		names[i] = m.ID
	}
	return names, nil
}

func (c *Client) buildRequestBody(req prdgen.Request, stream bool) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]apiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, apiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, apiMessage{Role: string(m.Role), Content: m.Text})
	}

	apiReq := apiRequest{
		Model:       model,
		Messages:    messages,
		Stream:      stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if stream {
		apiReq.StreamOptions = &apiStreamOptions{IncludeUsage: true}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, c.retryBackoff<<(attempt-1)); err != nil {
				return nil, lastErr
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("openai: %v: %w", err, prdgen.ErrBackendUnavailable)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = parseHTTPError(resp)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func parseHTTPError(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai: HTTP %d: %w", resp.StatusCode, prdgen.ErrBackendUnavailable)
	}
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil {
		return fmt.Errorf("openai: HTTP %d: %s: %w", resp.StatusCode, apiResp.Error.Message, prdgen.ErrBackendUnavailable)
	}
	return fmt.Errorf("openai: HTTP %d: %s: %w", resp.StatusCode, bytes.TrimSpace(body), prdgen.ErrBackendUnavailable)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
