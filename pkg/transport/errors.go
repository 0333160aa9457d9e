package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is the error returned for any non-2xx response from the Basalt
// API. It carries the HTTP status code plus the backend's error code and
// message when the response body contains the standard error envelope.
// RetryAfter holds the server's Retry-After hint on rate-limit responses;
// the retry loop waits it out before the next attempt.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("basalt: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("basalt: request failed (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether err represents a transient failure worth
// retrying. 500 is deliberately excluded: the backend treats it as a
// permanent failure for the request as sent.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return false
}

// errorEnvelope is the backend's standard error response body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
