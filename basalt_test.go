package basalt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-io/basalt-go/pkg/auth"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid config")

	_, err = New(Config{BaseURL: "not a url", APIKey: "k"})
	require.Error(t, err)
}

func TestClientWiresServices(t *testing.T) {
	client, err := New(Config{BaseURL: "https://api.example.com", APIKey: "k"})
	require.NoError(t, err)
	defer client.Close()

	assert.NotNil(t, client.Auth())
	assert.NotNil(t, client.Query())
	assert.NotNil(t, client.Storage())
	assert.NotNil(t, client.Search())
	assert.NotNil(t, client.Analytics())
	assert.NotNil(t, client.Cache())
	assert.NotNil(t, client.Mail())
	assert.NotNil(t, client.Queue())
	assert.NotNil(t, client.Workflow())
	assert.NotNil(t, client.AI())
	assert.NotNil(t, client.Migrate())
	assert.NotNil(t, client.Table("users"))
}

func TestTableQueryRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/query", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-Basalt-Key"))

		var desc map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&desc))
		assert.Equal(t, "select", desc["type"])
		assert.Equal(t, "users", desc["table"])

		w.Write([]byte(`{"rows":[{"id":"u1","email":"a@example.com"}],"rowCount":1}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	defer client.Close()

	rows, err := client.Table("users").Where("status", "active").Get(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a@example.com", rows[0]["email"])
}

func TestAnalyticsConfigFlowsThrough(t *testing.T) {
	var batches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/batch", r.URL.Path)

		var body struct {
			Events []map[string]any `json:"events"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Events, 2)
		batches.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := New(Config{
		BaseURL:                srv.URL,
		APIKey:                 "k",
		AnalyticsBatchSize:     2,
		AnalyticsFlushInterval: time.Hour,
		AnalyticsQueueSize:     16,
		AnalyticsSendTimeout:   5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	// Two events fill one batch, so the send happens without a Flush.
	require.NoError(t, client.Analytics().Capture("first", nil))
	require.NoError(t, client.Analytics().Capture("second", nil))
	assert.Eventually(t, func() bool {
		return batches.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTableInsertRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/query", r.URL.Path)

		var desc map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&desc))
		assert.Equal(t, "insert", desc["type"])
		assert.Equal(t, "users", desc["table"])
		assert.Equal(t, map[string]any{"email": "a@example.com"}, desc["insertData"])

		w.Write([]byte(`{"rows":[{"id":"u1","email":"a@example.com"}],"rowCount":1}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	defer client.Close()

	rows, err := client.Table("users").
		Insert(map[string]any{"email": "a@example.com"}).
		Returning("id").
		Get(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0]["id"])
}

func TestSessionTokenFlowsToQueries(t *testing.T) {
	const token = "session-token"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token":
			w.Write([]byte(`{"access_token":"` + token + `","refresh_token":"r1"}`))
		case "/v1/query":
			assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
			w.Write([]byte(`{"rows":[],"rowCount":0}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.Auth().SignInWithPassword(ctx, auth.Credentials{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = client.Table("users").Get(ctx)
	require.NoError(t, err)
}
