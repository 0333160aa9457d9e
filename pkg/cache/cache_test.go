package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

func newService(t *testing.T, url string) *Service {
	t.Helper()
	tc, err := transport.New(transport.Config{BaseURL: url})
	require.NoError(t, err)
	return NewService(tc, nil)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/v1/cache/greeting":
			w.Write([]byte(`{"value":"hello"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"not_found","message":"no such key"}}`))
		}
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)

	value, found, err := svc.Get(context.Background(), "greeting")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", value)

	value, found, err = svc.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/cache/session%2Fu1", r.URL.EscapedPath())

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["value"])
		assert.Equal(t, float64(300), body["ttl_seconds"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	require.NoError(t, svc.Set(context.Background(), "session/u1", "abc", 5*time.Minute))

	assert.Error(t, svc.Set(context.Background(), "", "x", 0))
	assert.Error(t, svc.Set(context.Background(), "k", "x", -time.Second))
}

func TestSetWithoutTTLOmitsField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "ttl_seconds")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	require.NoError(t, svc.Set(context.Background(), "forever", 42, 0))
}

func TestDeleteIgnoresMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"not_found","message":"no such key"}}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	assert.NoError(t, svc.Delete(context.Background(), "gone"))
}

func TestIncrement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cache/hits/increment", r.URL.Path)

		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(5), body["delta"])
		w.Write([]byte(`{"value":12}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	value, err := svc.Increment(context.Background(), "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), value)
}
