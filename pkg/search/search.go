// Package search wraps the Basalt full-text search endpoints.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Index is a search index.
type Index struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
}

// Request is one search request. Filters are backend-interpreted exact
// matches on document fields.
type Request struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// Result is the response to a search request.
type Result struct {
	Hits   []map[string]any `json:"hits"`
	Total  int64            `json:"total"`
	TookMS int64            `json:"took_ms"`
}

// Service wraps the search endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a search service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("search")}
}

// CreateIndex creates an index.
func (s *Service) CreateIndex(ctx context.Context, name string) (*Index, error) {
	if name == "" {
		return nil, fmt.Errorf("index name is required")
	}
	var idx Index
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/search/indexes", map[string]string{"name": name}, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// ListIndexes lists all indexes.
func (s *Service) ListIndexes(ctx context.Context) ([]Index, error) {
	var out struct {
		Indexes []Index `json:"indexes"`
	}
	if err := s.tc.Do(ctx, http.MethodGet, "/v1/search/indexes", nil, &out); err != nil {
		return nil, err
	}
	return out.Indexes, nil
}

// DeleteIndex deletes an index and its documents.
func (s *Service) DeleteIndex(ctx context.Context, name string) error {
	return s.tc.Do(ctx, http.MethodDelete, indexPath(name), nil, nil)
}

// IndexDocuments upserts documents into the index. Each document needs an
// "id" field; the backend replaces documents with matching ids.
func (s *Service) IndexDocuments(ctx context.Context, index string, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}
	body := map[string]any{"documents": docs}
	if err := s.tc.Do(ctx, http.MethodPost, indexPath(index)+"/documents", body, nil); err != nil {
		return err
	}
	s.logger.Debug("indexed documents", "index", index, "count", len(docs))
	return nil
}

// Search runs a query against the index.
func (s *Service) Search(ctx context.Context, index string, req Request) (*Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	var res Result
	if err := s.tc.Do(ctx, http.MethodPost, indexPath(index)+"/search", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func indexPath(name string) string {
	return "/v1/search/indexes/" + url.PathEscape(name)
}
