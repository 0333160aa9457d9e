package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

const apiKeyHeader = "X-Basalt-Key"

// Client performs HTTP round trips against the Basalt API. It attaches the
// project API key and, when a token source is set, the user's bearer token.
// Transient failures (429, 502, 503, 504 and network errors) are retried
// with exponential backoff; all other failures surface as *APIError.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     hclog.Logger
	userAgent  string

	retryMax      uint64
	retryInterval time.Duration
	retryMaxIvl   time.Duration

	mu        sync.RWMutex
	tokenFunc func() string
}

// Config holds configuration for the transport client.
type Config struct {
	BaseURL    string        // Base URL of the Basalt API (required)
	APIKey     string        // Project API key sent on every request
	HTTPClient *http.Client  // HTTP client (default: 30s timeout)
	Logger     hclog.Logger  // Logger (optional)
	UserAgent  string        // User-Agent header (default: basalt-go)
	RetryMax   int           // Max retries after the first attempt (default: 3, negative disables)
	RetryWait  time.Duration // Initial backoff interval (default: 250ms)
	RetryCap   time.Duration // Max backoff interval (default: 5s)
}

// New creates a new transport client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = hclog.NewNullLogger()
	}
	if config.UserAgent == "" {
		config.UserAgent = "basalt-go"
	}

	retryMax := uint64(3)
	switch {
	case config.RetryMax > 0:
		retryMax = uint64(config.RetryMax)
	case config.RetryMax < 0:
		retryMax = 0
	}
	if config.RetryWait == 0 {
		config.RetryWait = 250 * time.Millisecond
	}
	if config.RetryCap == 0 {
		config.RetryCap = 5 * time.Second
	}

	return &Client{
		baseURL:       strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:        config.APIKey,
		httpClient:    config.HTTPClient,
		logger:        config.Logger.Named("transport"),
		userAgent:     config.UserAgent,
		retryMax:      retryMax,
		retryInterval: config.RetryWait,
		retryMaxIvl:   config.RetryCap,
	}, nil
}

// SetTokenSource installs a function that supplies the current bearer token.
// An empty return value means no Authorization header is sent. Safe for
// concurrent use.
func (c *Client) SetTokenSource(fn func() string) {
	c.mu.Lock()
	c.tokenFunc = fn
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	fn := c.tokenFunc
	c.mu.RUnlock()
	if fn == nil {
		return ""
	}
	return fn()
}

// Do issues one JSON request and decodes the JSON response into out (which
// may be nil). body may be nil for requests without a payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	respBody, err := c.roundTrip(ctx, method, path, "application/json", payload)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// DoRaw issues a request with a raw (non-JSON) body, e.g. an object upload.
// The response is still decoded as JSON into out when out is non-nil.
func (c *Client) DoRaw(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	respBody, err := c.roundTrip(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// DoDownload issues a request and returns the raw response body, for
// endpoints that return object content instead of JSON.
func (c *Client) DoDownload(ctx context.Context, method, path string) ([]byte, error) {
	return c.roundTrip(ctx, method, path, "", nil)
}

func decode(respBody []byte, out any) error {
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// roundTrip performs the request with retry. The request body is marshaled
// once up front so every attempt sends identical bytes.
func (c *Client) roundTrip(ctx context.Context, method, path, contentType string, payload []byte) ([]byte, error) {
	u := c.baseURL + path

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = c.retryMaxIvl

	var respBody []byte
	attempt := 0
	op := func() error {
		attempt++
		var err error
		respBody, err = c.attempt(ctx, method, u, contentType, payload)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		// Honor a Retry-After hint before the next attempt, but only when
		// one will actually follow.
		if uint64(attempt) <= c.retryMax {
			if werr := waitRetryAfter(ctx, err); werr != nil {
				return backoff.Permanent(werr)
			}
		}
		c.logger.Debug("retrying request",
			"method", method,
			"path", path,
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.retryMax), ctx))
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// waitRetryAfter blocks for the server's Retry-After hint, if err carries
// one, giving up as soon as the context is cancelled.
func waitRetryAfter(ctx context.Context, err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return nil
	}

	timer := time.NewTimer(apiErr.RetryAfter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) attempt(ctx context.Context, method, u, contentType string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if contentType != "" && payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure. Context errors must not be retried.
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Code: "network_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request complete",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp, respBody)
	}
	return respBody, nil
}

// apiError builds an *APIError from a non-2xx response, preferring the
// backend's error envelope over the raw body.
func (c *Client) apiError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = truncate(string(body), 200)
	}

	// Record the Retry-After hint; the retry loop decides whether waiting
	// makes sense for this attempt.
	if apiErr.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 && secs <= 30 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
