package query

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

const queryPath = "/v1/query"

// Service binds builders to the backend's generic query endpoint.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a query service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		tc:     tc,
		logger: logger.Named("query"),
	}
}

// Table starts a builder for the given table, bound to this service.
func (s *Service) Table(name string) *Builder {
	return NewWithExecutor(s).From(name)
}

// ExecuteQuery implements Executor with a single POST of the descriptor.
func (s *Service) ExecuteQuery(ctx context.Context, desc *Descriptor) (*Response, error) {
	s.logger.Debug("executing query",
		"type", desc.Type,
		"table", desc.Table,
	)
	var resp Response
	if err := s.tc.Do(ctx, http.MethodPost, queryPath, desc, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
