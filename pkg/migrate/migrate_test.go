package migrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/migrations", r.URL.Path)
		w.Write([]byte(`{"migrations":[
			{"version":1,"name":"create_users","applied":true,"applied_at":"2026-08-01T00:00:00Z"},
			{"version":2,"name":"add_orders","applied":false}
		]}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	migrations, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.True(t, migrations[0].Applied)
	assert.NotNil(t, migrations[0].AppliedAt)
	assert.False(t, migrations[1].Applied)
	assert.Nil(t, migrations[1].AppliedAt)
}

func TestUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/migrations/up", r.URL.Path)
		w.Write([]byte(`{"applied":[{"version":2,"name":"add_orders","applied":true}]}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	result, err := svc.Up(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, int64(2), result.Applied[0].Version)
}

func TestDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/migrations/down", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body["steps"])

		w.Write([]byte(`{"reverted":[{"version":2,"name":"add_orders","applied":false}]}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	result, err := svc.Down(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result.Reverted, 1)

	_, err = svc.Down(context.Background(), 0)
	assert.Error(t, err)
}
