// Package analytics captures events into a client-side queue and ships
// them to the Basalt analytics endpoint in batches. Capture never blocks
// the caller: when the queue is full the event is dropped, counted and
// logged. Flush errors are held and handed back from the next Flush or
// Close call.
package analytics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

const batchPath = "/v1/analytics/batch"

// ErrClosed is returned by Capture and Flush after Close.
var ErrClosed = fmt.Errorf("analytics: service is closed")

// Event is one analytics event. ID and Timestamp are assigned client-side
// when left empty so the backend can deduplicate redelivered batches.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	UserID     string         `json:"user_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Config holds configuration for the analytics service.
type Config struct {
	MaxBatchSize  int           // Events per batch request (default: 50)
	FlushInterval time.Duration // Max time an event waits in the queue (default: 5s)
	QueueSize     int           // Capture queue capacity (default: 1024)
	SendTimeout   time.Duration // Per-batch request timeout (default: 10s)
	Logger        hclog.Logger  // Logger (optional)
}

// Service is the batching analytics client.
type Service struct {
	tc          *transport.Client
	logger      hclog.Logger
	maxBatch    int
	interval    time.Duration
	sendTimeout time.Duration

	events   chan Event
	flushReq chan chan error
	done     chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool

	errMu   sync.Mutex
	pending *multierror.Error

	dropped atomic.Int64
}

// NewService creates the analytics service and starts its flush worker.
// Callers must Close it to drain the queue.
func NewService(tc *transport.Client, config Config) *Service {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 50
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = hclog.NewNullLogger()
	}

	s := &Service{
		tc:          tc,
		logger:      config.Logger.Named("analytics"),
		maxBatch:    config.MaxBatchSize,
		interval:    config.FlushInterval,
		sendTimeout: config.SendTimeout,
		events:      make(chan Event, config.QueueSize),
		flushReq:    make(chan chan error),
		done:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Capture enqueues a named event. It never blocks: a full queue drops the
// event and bumps the dropped counter.
func (s *Service) Capture(name string, properties map[string]any) error {
	return s.CaptureEvent(Event{Name: name, Properties: properties})
}

// CaptureEvent enqueues a pre-built event, assigning ID and Timestamp when
// empty.
func (s *Service) CaptureEvent(ev Event) error {
	if ev.Name == "" {
		return fmt.Errorf("analytics: event name is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.events <- ev:
		return nil
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("event queue full, dropping event", "name", ev.Name, "dropped_total", n)
		return nil
	}
}

// Dropped returns the number of events dropped because the queue was full.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// Flush forces the worker to ship everything buffered so far and returns
// any send errors accumulated since the last Flush.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	reply := make(chan error, 1)
	select {
	case s.flushReq <- reply:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, drains the queue and returns any
// accumulated send errors. Safe to call once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.wg.Wait()
	return s.takePending()
}

func (s *Service) worker() {
	defer s.wg.Done()
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	buf := make([]Event, 0, s.maxBatch)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				// Closed: drain whatever is buffered and exit.
				s.send(buf)
				return
			}
			buf = append(buf, ev)
			if len(buf) >= s.maxBatch {
				buf = s.send(buf)
			}
		case <-ticker.C:
			buf = s.send(buf)
		case reply := <-s.flushReq:
			// Pull in everything already queued before shipping.
			buf = s.drainQueued(buf)
			buf = s.send(buf)
			reply <- s.takePending()
		}
	}
}

func (s *Service) drainQueued(buf []Event) []Event {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return buf
			}
			buf = append(buf, ev)
		default:
			return buf
		}
	}
}

// send ships one batch. Failed batches are not requeued; the error is held
// for the next Flush/Close and the loss is logged.
func (s *Service) send(buf []Event) []Event {
	if len(buf) == 0 {
		return buf
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	body := map[string]any{"events": buf}
	if err := s.tc.Do(ctx, http.MethodPost, batchPath, body, nil); err != nil {
		s.logger.Error("failed to send analytics batch", "count", len(buf), "error", err)
		s.errMu.Lock()
		s.pending = multierror.Append(s.pending, fmt.Errorf("batch of %d events: %w", len(buf), err))
		s.errMu.Unlock()
	} else {
		s.logger.Debug("sent analytics batch", "count", len(buf))
	}
	return buf[:0]
}

func (s *Service) takePending() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.pending.ErrorOrNil()
	s.pending = nil
	return err
}
