package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for engine client operations.
var (
	// ErrBaseURLRequired is returned when the runtime base URL is not provided.
	ErrBaseURLRequired = errors.New("engine: base URL is required")
	// ErrLoadFailed is returned when the runtime rejects a load request.
	ErrLoadFailed = errors.New("engine: model load failed")
	// ErrNoModelIDReturned is returned when the load response contains no model ID.
	ErrNoModelIDReturned = errors.New("engine: load failed: no model ID returned")
	// ErrGenerateFailed is returned when the runtime rejects a generate request.
	ErrGenerateFailed = errors.New("engine: generation failed")
	// ErrNoVideoReturned is returned when the generate response contains no video.
	ErrNoVideoReturned = errors.New("engine: generation returned no video")
	// ErrServerError is returned when the runtime returns a 5xx status code.
	ErrServerError = errors.New("engine: server error")
	// ErrRateLimited is returned when the runtime returns a 429 status code.
	ErrRateLimited = errors.New("engine: rate limited")
	// ErrRequestFailed is returned when a request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("engine: request failed")
)

// HTTPClient is the HTTP implementation of the Engine interface.
// It talks to the inference runtime sidecar that hosts the Wan 2.2 library.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// Compile-time check that HTTPClient implements Engine.
var _ Engine = (*HTTPClient)(nil)

// NewClient creates a new engine HTTP client pointed at the runtime base URL.
// Generation calls have no client-side timeout; a diffusion run can take
// minutes, so cancellation is left to the caller's context.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Load loads the checkpoint for a task and returns a Model handle bound to
// the runtime-assigned model ID.
func (c *HTTPClient) Load(ctx context.Context, req LoadRequest) (Model, error) {
	body := loadRequest{
		Task:              req.Task,
		CheckpointDir:     req.CheckpointDir,
		DeviceID:          req.DeviceID,
		T5CPU:             req.T5CPU,
		ConvertModelDtype: req.ConvertModelDtype,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal load request: %w", err)
	}

	var resp loadResponse
	if err := c.doRequestWithRetry(ctx, c.baseURL+"/load", bodyBytes, &resp); err != nil {
		return nil, err
	}

	if resp.ModelID == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrLoadFailed, resp.Error)
		}
		return nil, ErrNoModelIDReturned
	}

	return &httpModel{client: c, modelID: resp.ModelID}, nil
}

// httpModel is a Model handle bound to a loaded model on the runtime.
type httpModel struct {
	client  *HTTPClient
	modelID string
}

// Generate renders a video with the loaded model and returns the MP4 bytes.
func (m *httpModel) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	body := generateRequest{
		ModelID:      m.modelID,
		Prompt:       req.Prompt,
		Width:        req.Width,
		Height:       req.Height,
		MaxArea:      req.MaxArea,
		FrameNum:     req.FrameNum,
		Shift:        req.Shift,
		SampleSolver: req.SampleSolver,
		SampleSteps:  req.SampleSteps,
		GuideScale:   req.GuideScale,
		Seed:         req.Seed,
		FPS:          req.FPS,
		OffloadModel: req.OffloadModel,
	}
	if body.SampleSolver == "" {
		body.SampleSolver = DefaultSolver
	}
	if len(req.ImagePNG) > 0 {
		body.ImageBase64 = base64.StdEncoding.EncodeToString(req.ImagePNG)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal generate request: %w", err)
	}

	var resp generateResponse
	if err := m.client.doGenerate(ctx, m.client.baseURL+"/generate", bodyBytes, &resp); err != nil {
		return nil, err
	}

	if resp.VideoBase64 == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrGenerateFailed, resp.Error)
		}
		return nil, ErrNoVideoReturned
	}

	video, err := base64.StdEncoding.DecodeString(resp.VideoBase64)
	if err != nil {
		return nil, fmt.Errorf("engine: decode video: %w", err)
	}

	return video, nil
}

// doGenerate performs a generate call without retries. A generation run is
// not idempotent from a cost perspective: retrying a slow request would
// stack GPU work, so transient failures surface to the caller instead.
func (c *HTTPClient) doGenerate(ctx context.Context, url string, body []byte, result interface{}) error {
	return c.doRequest(ctx, url, body, result)
}

// doRequestWithRetry performs an HTTP request with exponential backoff
// on retryable failures (5xx, 429, transport errors).
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, url string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("engine: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := c.doRequest(ctx, url, body, result)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("engine: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP POST request.
func (c *HTTPClient) doRequest(ctx context.Context, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("engine: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("engine: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("engine: read response: %w", err)}
	}

	// Handle non-2xx status codes
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 5xx errors are retryable
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		// 429 (rate limit) is retryable
		if resp.StatusCode == 429 {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		// Other errors are not retryable
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("engine: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
