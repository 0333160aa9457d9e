package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]Event
	status  int
}

func (br *batchRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Events []Event `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		br.mu.Lock()
		br.batches = append(br.batches, body.Events)
		status := br.status
		br.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"code":"internal","message":"boom"}}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (br *batchRecorder) all() [][]Event {
	br.mu.Lock()
	defer br.mu.Unlock()
	out := make([][]Event, len(br.batches))
	copy(out, br.batches)
	return out
}

func newTestService(t *testing.T, url string, config Config) *Service {
	t.Helper()
	tc, err := transport.New(transport.Config{BaseURL: url, RetryMax: -1})
	require.NoError(t, err)
	return NewService(tc, config)
}

func TestFlushShipsQueuedEvents(t *testing.T) {
	rec := &batchRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL, Config{FlushInterval: time.Hour})
	defer svc.Close()

	require.NoError(t, svc.Capture("page_view", map[string]any{"path": "/"}))
	require.NoError(t, svc.Capture("click", nil))
	require.NoError(t, svc.Flush(context.Background()))

	batches := rec.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, "page_view", batches[0][0].Name)
	assert.Equal(t, "click", batches[0][1].Name)
	assert.NotEmpty(t, batches[0][0].ID)
	assert.False(t, batches[0][0].Timestamp.IsZero())
}

func TestBatchSizeTriggersSend(t *testing.T) {
	rec := &batchRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL, Config{MaxBatchSize: 3, FlushInterval: time.Hour})
	defer svc.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Capture("ev", nil))
	}

	// The size-triggered send happens in the worker; wait for it.
	assert.Eventually(t, func() bool {
		batches := rec.all()
		return len(batches) == 1 && len(batches[0]) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseDrainsQueue(t *testing.T) {
	rec := &batchRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL, Config{FlushInterval: time.Hour})
	require.NoError(t, svc.Capture("last_event", nil))
	require.NoError(t, svc.Close())

	batches := rec.all()
	require.Len(t, batches, 1)
	assert.Equal(t, "last_event", batches[0][0].Name)

	assert.ErrorIs(t, svc.CaptureEvent(Event{Name: "late"}), ErrClosed)
	assert.ErrorIs(t, svc.Flush(context.Background()), ErrClosed)
	assert.NoError(t, svc.Close())
}

func TestFlushReturnsSendErrors(t *testing.T) {
	rec := &batchRecorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL, Config{FlushInterval: time.Hour})
	defer svc.Close()

	require.NoError(t, svc.Capture("doomed", nil))

	err := svc.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "batch of 1 events")

	// Errors are handed over once, not replayed.
	assert.NoError(t, svc.Flush(context.Background()))
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	inSend := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(inSend) })
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	// Batch size one parks the worker in a send that won't return until we
	// release it, so the queue (capacity one) fills and overflows.
	svc := newTestService(t, srv.URL, Config{QueueSize: 1, MaxBatchSize: 1, FlushInterval: time.Hour})

	require.NoError(t, svc.Capture("first", nil))
	select {
	case <-inSend:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started sending")
	}

	// Worker is stuck; one event fills the queue, the rest must be dropped.
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Capture("burst", nil))
	}
	assert.GreaterOrEqual(t, svc.Dropped(), int64(9))

	close(release)
	require.NoError(t, svc.Close())
}

func TestEventNameRequired(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0", Config{FlushInterval: time.Hour})
	defer svc.Close()

	assert.Error(t, svc.CaptureEvent(Event{}))
}
