// Package migrate wraps the Basalt schema migration endpoints. Migrations
// are SQL files registered with the project; the backend applies them and
// tracks which versions have run.
package migrate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Migration is one registered migration and its applied state.
type Migration struct {
	Version   int64      `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Result reports what a migration run changed.
type Result struct {
	Applied  []Migration `json:"applied"`
	Reverted []Migration `json:"reverted"`
}

// Service wraps the migration endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a migration service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("migrate")}
}

// Status lists all registered migrations, applied and pending, ordered by
// version.
func (s *Service) Status(ctx context.Context) ([]Migration, error) {
	var out struct {
		Migrations []Migration `json:"migrations"`
	}
	if err := s.tc.Do(ctx, http.MethodGet, "/v1/migrations", nil, &out); err != nil {
		return nil, err
	}
	return out.Migrations, nil
}

// Up applies all pending migrations in version order and returns what ran.
func (s *Service) Up(ctx context.Context) (*Result, error) {
	var result Result
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/migrations/up", nil, &result); err != nil {
		return nil, err
	}
	s.logger.Info("applied migrations", "count", len(result.Applied))
	return &result, nil
}

// Down reverts the most recent applied migrations. steps must be positive;
// reverting past the first migration stops there.
func (s *Service) Down(ctx context.Context, steps int) (*Result, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1")
	}

	body := map[string]int{"steps": steps}
	var result Result
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/migrations/down", body, &result); err != nil {
		return nil, err
	}
	s.logger.Info("reverted migrations", "count", len(result.Reverted))
	return &result, nil
}
