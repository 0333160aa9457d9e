// Package queue wraps the Basalt message queue endpoints. Delivery is
// at-least-once: a received message that is neither acked nor nacked
// becomes visible again when its visibility timeout lapses.
package queue

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Message is a queued message. ReceiptHandle is set only on received
// messages and is what Ack and Nack operate on.
type Message struct {
	ID            string         `json:"id"`
	Body          map[string]any `json:"body"`
	Attempts      int            `json:"attempts"`
	EnqueuedAt    time.Time      `json:"enqueued_at"`
	ReceiptHandle string         `json:"receipt_handle,omitempty"`
}

// Service wraps the queue endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a queue service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("queue")}
}

// Publish enqueues a message and returns its id. The id is generated
// client-side so retried publishes can be deduplicated by the backend.
func (s *Service) Publish(ctx context.Context, queue string, body map[string]any) (string, error) {
	if queue == "" {
		return "", fmt.Errorf("queue name is required")
	}

	id := uuid.New().String()
	payload := map[string]any{"id": id, "body": body}
	if err := s.tc.Do(ctx, http.MethodPost, queuePath(queue)+"/messages", payload, nil); err != nil {
		return "", err
	}
	s.logger.Debug("published message", "queue", queue, "id", id)
	return id, nil
}

// Receive pulls up to max messages, hiding them from other consumers for
// the visibility window. It returns immediately with an empty slice when
// the queue is empty.
func (s *Service) Receive(ctx context.Context, queue string, max int, visibility time.Duration) ([]Message, error) {
	if queue == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if max < 1 {
		return nil, fmt.Errorf("max must be at least 1")
	}
	if visibility <= 0 {
		visibility = 30 * time.Second
	}

	body := map[string]any{
		"max":                max,
		"visibility_seconds": int(visibility.Seconds()),
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := s.tc.Do(ctx, http.MethodPost, queuePath(queue)+"/receive", body, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Ack deletes a received message using its receipt handle.
func (s *Service) Ack(ctx context.Context, queue, receiptHandle string) error {
	if receiptHandle == "" {
		return fmt.Errorf("receipt handle is required")
	}
	body := map[string]string{"receipt_handle": receiptHandle}
	return s.tc.Do(ctx, http.MethodPost, queuePath(queue)+"/ack", body, nil)
}

// Nack returns a received message to the queue immediately instead of
// waiting out its visibility timeout.
func (s *Service) Nack(ctx context.Context, queue, receiptHandle string) error {
	if receiptHandle == "" {
		return fmt.Errorf("receipt handle is required")
	}
	body := map[string]string{"receipt_handle": receiptHandle}
	return s.tc.Do(ctx, http.MethodPost, queuePath(queue)+"/nack", body, nil)
}

func queuePath(name string) string {
	return "/v1/queues/" + url.PathEscape(name)
}
