// Package cache wraps the Basalt key-value cache endpoints. Values are
// JSON, so anything that survives a JSON round trip can be stored; numbers
// come back as float64 unless decoded into a typed destination.
package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Service wraps the cache endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a cache service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("cache")}
}

// Get fetches the value for key. A missing or expired key reports
// found=false without an error.
func (s *Service) Get(ctx context.Context, key string) (any, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}

	var out struct {
		Value any `json:"value"`
	}
	err := s.tc.Do(ctx, http.MethodGet, keyPath(key), nil, &out)
	if transport.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out.Value, true, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if ttl < 0 {
		return fmt.Errorf("ttl must not be negative")
	}

	body := map[string]any{"value": value}
	if ttl > 0 {
		body["ttl_seconds"] = int(ttl.Seconds())
	}
	return s.tc.Do(ctx, http.MethodPut, keyPath(key), body, nil)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	err := s.tc.Do(ctx, http.MethodDelete, keyPath(key), nil, nil)
	if transport.IsNotFound(err) {
		return nil
	}
	return err
}

// Increment atomically adds delta to the counter at key, creating it at
// zero when absent, and returns the new value.
func (s *Service) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("key is required")
	}

	body := map[string]int64{"delta": delta}
	var out struct {
		Value int64 `json:"value"`
	}
	if err := s.tc.Do(ctx, http.MethodPost, keyPath(key)+"/increment", body, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

func keyPath(key string) string {
	return "/v1/cache/" + url.PathEscape(key)
}
