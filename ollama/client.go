package ollama

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

// Client implements [prdgen.Gateway] for a local Ollama server.
type Client struct {
	baseURL           string
	model             string
	httpClient        *http.Client
	maxRetries        int
	retryBackoff      time.Duration
	firstTokenTimeout time.Duration
	completeTimeout   time.Duration
	logger            *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel sets the default model used when a request leaves Model empty.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
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

// WithCompleteTimeout bounds a whole generation: the full response of a
// Complete call, or the time from request to final fragment of a Stream
// call.
func WithCompleteTimeout(d time.Duration) Option {
	return func(c *Client) { c.completeTimeout = d }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Ollama [Client].
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
// The call is bounded by the complete timeout; exceeding it surfaces
// [prdgen.ErrGenerationTimeout] without retry.
func (c *Client) Complete(ctx context.Context, req prdgen.Request) (string, error) {
	body, err := c.buildRequestBody(req, false)
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, c.completeTimeout)
	defer cancel()

	resp, err := c.post(cctx, chatPath, body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("ollama: no response within %s: %w", c.completeTimeout, prdgen.ErrGenerationTimeout)
		}
		return "", err
	}
	defer resp.Body.Close()

	var chat apiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("ollama: no response within %s: %w", c.completeTimeout, prdgen.ErrGenerationTimeout)
		}
		return "", fmt.Errorf("ollama: decoding response: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	if chat.Error != "" {
		return "", fmt.Errorf("ollama: %s: %w", chat.Error, prdgen.ErrBackendUnavailable)
	}
	return chat.Message.Content, nil
}

// Stream sends a streaming generation request and returns a
// [prdgen.TokenStream] over the response fragments. A watchdog cancels the
// request if no fragment arrives within the first-token timeout, and a
// second one bounds the whole generation; both surface as
// [prdgen.ErrGenerationTimeout] with fragments received so far preserved.
func (c *Client) Stream(ctx context.Context, req prdgen.Request) (prdgen.TokenStream, error) {
	body, err := c.buildRequestBody(req, true)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	resp, err := c.post(sctx, chatPath, body)
	if err != nil {
		cancel()
		return nil, err
	}

	st := newStream(ctx, cancel, resp.Body)
	st.firstTimer = time.AfterFunc(c.firstTokenTimeout, st.timeout)
	st.totalTimer = time.AfterFunc(c.completeTimeout, st.timeout)
	return st, nil
}

// ListModels returns the names of the models the server has available.
// A single probe with no retry: callers use it to check connectivity, so a
// failure should surface immediately.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ollama: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp)
	}

	var tags apiTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("ollama: decoding tags: %v: %w", err, prdgen.ErrBackendUnavailable)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (c *Client) buildRequestBody(req prdgen.Request, stream bool) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	apiReq := apiRequest{
		Model:    model,
		Messages: convertMessages(req.System, req.Messages),
		Stream:   stream,
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		apiReq.Options = &apiOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return body, nil
}

// convertMessages maps the system prompt and transcript to the wire shape.
// Ollama carries the system prompt as a leading message with role "system".
func convertMessages(system string, msgs []prdgen.Message) []apiMessage {
	result := make([]apiMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, apiMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		result = append(result, apiMessage{Role: string(m.Role), Content: m.Text})
	}
	return result
}

// post issues the request, retrying connection failures and non-2xx
// statuses with doubling backoff. Context cancellation stops the retry
// loop; a cancellation while backing off returns the failure that was
// being retried rather than the bare context error.
func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, c.retryBackoff<<(attempt-1)); err != nil {
				return nil, lastErr
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("ollama: %v: %w", err, prdgen.ErrBackendUnavailable)
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
		return fmt.Errorf("ollama: HTTP %d: %w", resp.StatusCode, prdgen.ErrBackendUnavailable)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
		return fmt.Errorf("ollama: HTTP %d: %s: %w", resp.StatusCode, bytes.TrimSpace(body), prdgen.ErrBackendUnavailable)
	}
	return fmt.Errorf("ollama: HTTP %d: %s: %w", resp.StatusCode, apiErr.Error, prdgen.ErrBackendUnavailable)
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
