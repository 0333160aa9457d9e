package storage

import (
	"context"
	"encoding/json"
	"io"
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

func TestCreateBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/storage/buckets", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "avatars", body["name"])
		assert.Equal(t, true, body["public"])

		w.Write([]byte(`{"name":"avatars","public":true,"created_at":"2026-08-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	bucket, err := svc.CreateBucket(context.Background(), "avatars", true)
	require.NoError(t, err)
	assert.Equal(t, "avatars", bucket.Name)
	assert.True(t, bucket.Public)

	_, err = svc.CreateBucket(context.Background(), "", false)
	assert.Error(t, err)
}

func TestUploadAndDownload(t *testing.T) {
	content := []byte("hello, basalt")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "/v1/storage/buckets/avatars/objects/u1%2Fpic.png", r.URL.EscapedPath())
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, content, body)
			w.Write([]byte(`{"key":"u1/pic.png","size":13,"content_type":"image/png"}`))
		case http.MethodGet:
			w.Write(content)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)

	obj, err := svc.Upload(context.Background(), "avatars", "u1/pic.png", content, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "u1/pic.png", obj.Key)
	assert.Equal(t, int64(13), obj.Size)

	got, err := svc.Download(context.Background(), "avatars", "u1/pic.png")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestUploadDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"key":"blob"}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	_, err := svc.Upload(context.Background(), "b", "blob", []byte{1, 2, 3}, "")
	require.NoError(t, err)
}

func TestListWithPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/storage/buckets/avatars/objects", r.URL.Path)
		assert.Equal(t, "u1/", r.URL.Query().Get("prefix"))
		w.Write([]byte(`{"objects":[{"key":"u1/pic.png","size":13}]}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	objects, err := svc.List(context.Background(), "avatars", "u1/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "u1/pic.png", objects[0].Key)
}

func TestSignedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/storage/buckets/avatars/objects/pic.png/sign", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3600), body["expires_in_seconds"])

		w.Write([]byte(`{"url":"https://cdn.example.com/signed"}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	url, err := svc.SignedURL(context.Background(), "avatars", "pic.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/signed", url)

	_, err = svc.SignedURL(context.Background(), "avatars", "pic.png", 0)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	require.NoError(t, svc.Remove(context.Background(), "avatars", "old pic.png"))
	assert.Equal(t, "/v1/storage/buckets/avatars/objects/old%20pic.png", gotPath)
}
