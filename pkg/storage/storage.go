// Package storage wraps the Basalt object storage endpoints. Object bodies
// are byte slices; streaming uploads are out of scope for the SDK.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Bucket is a storage bucket.
type Bucket struct {
	Name      string    `json:"name"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Object is the metadata for one stored object.
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ETag        string    `json:"etag,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service wraps the storage endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a storage service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("storage")}
}

// CreateBucket creates a bucket.
func (s *Service) CreateBucket(ctx context.Context, name string, public bool) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	body := map[string]any{"name": name, "public": public}
	var bucket Bucket
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/storage/buckets", body, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// ListBuckets lists all buckets in the project.
func (s *Service) ListBuckets(ctx context.Context) ([]Bucket, error) {
	var out struct {
		Buckets []Bucket `json:"buckets"`
	}
	if err := s.tc.Do(ctx, http.MethodGet, "/v1/storage/buckets", nil, &out); err != nil {
		return nil, err
	}
	return out.Buckets, nil
}

// DeleteBucket deletes a bucket. The backend rejects non-empty buckets.
func (s *Service) DeleteBucket(ctx context.Context, name string) error {
	return s.tc.Do(ctx, http.MethodDelete, "/v1/storage/buckets/"+url.PathEscape(name), nil, nil)
}

// Upload stores data under key in the bucket, replacing any existing
// object.
func (s *Service) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (*Object, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var obj Object
	path := objectPath(bucket, key)
	if err := s.tc.DoRaw(ctx, http.MethodPut, path, contentType, data, &obj); err != nil {
		return nil, err
	}
	s.logger.Debug("uploaded object", "bucket", bucket, "key", key, "size", len(data))
	return &obj, nil
}

// Download returns the object's content.
func (s *Service) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.tc.DoDownload(ctx, http.MethodGet, objectPath(bucket, key))
}

// List returns metadata for objects whose keys start with prefix. An empty
// prefix lists the whole bucket.
func (s *Service) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	path := "/v1/storage/buckets/" + url.PathEscape(bucket) + "/objects"
	if prefix != "" {
		path += "?prefix=" + url.QueryEscape(prefix)
	}
	var out struct {
		Objects []Object `json:"objects"`
	}
	if err := s.tc.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Objects, nil
}

// Remove deletes one object.
func (s *Service) Remove(ctx context.Context, bucket, key string) error {
	return s.tc.Do(ctx, http.MethodDelete, objectPath(bucket, key), nil, nil)
}

// SignedURL asks the backend for a pre-signed download URL valid for
// expiresIn.
func (s *Service) SignedURL(ctx context.Context, bucket, key string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		return "", fmt.Errorf("expiresIn must be positive")
	}
	body := map[string]any{"expires_in_seconds": int(expiresIn.Seconds())}
	var out struct {
		URL string `json:"url"`
	}
	if err := s.tc.Do(ctx, http.MethodPost, objectPath(bucket, key)+"/sign", body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func objectPath(bucket, key string) string {
	return "/v1/storage/buckets/" + url.PathEscape(bucket) + "/objects/" + url.PathEscape(key)
}
