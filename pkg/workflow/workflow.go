// Package workflow wraps the Basalt workflow endpoints. Workflows are
// defined server-side; the SDK triggers runs and tracks their lifecycle.
package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Done reports whether the run has reached a terminal state.
func (s RunStatus) Done() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Run is one execution of a workflow.
type Run struct {
	ID         string         `json:"id"`
	Workflow   string         `json:"workflow"`
	Status     RunStatus      `json:"status"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// ListOptions filter ListRuns. Zero values mean no filter and the backend's
// default page size.
type ListOptions struct {
	Status RunStatus
	Limit  int
}

// Service wraps the workflow endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a workflow service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("workflow")}
}

// Trigger starts a run of the named workflow with the given input and
// returns it without waiting for completion.
func (s *Service) Trigger(ctx context.Context, workflow string, input map[string]any) (*Run, error) {
	if workflow == "" {
		return nil, fmt.Errorf("workflow name is required")
	}

	body := map[string]any{"input": input}
	var run Run
	if err := s.tc.Do(ctx, http.MethodPost, workflowPath(workflow)+"/runs", body, &run); err != nil {
		return nil, err
	}
	s.logger.Debug("triggered run", "workflow", workflow, "run", run.ID)
	return &run, nil
}

// GetRun fetches a run by id.
func (s *Service) GetRun(ctx context.Context, workflow, runID string) (*Run, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	var run Run
	if err := s.tc.Do(ctx, http.MethodGet, runPath(workflow, runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists runs of the workflow, newest first.
func (s *Service) ListRuns(ctx context.Context, workflow string, opts ListOptions) ([]Run, error) {
	if workflow == "" {
		return nil, fmt.Errorf("workflow name is required")
	}

	path := workflowPath(workflow) + "/runs"
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", string(opts.Status))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out struct {
		Runs []Run `json:"runs"`
	}
	if err := s.tc.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// Cancel asks the backend to stop a pending or running run. Cancelling a
// finished run is a backend error.
func (s *Service) Cancel(ctx context.Context, workflow, runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	return s.tc.Do(ctx, http.MethodPost, runPath(workflow, runID)+"/cancel", nil, nil)
}

func workflowPath(name string) string {
	return "/v1/workflows/" + url.PathEscape(name)
}

func runPath(workflow, runID string) string {
	return workflowPath(workflow) + "/runs/" + url.PathEscape(runID)
}
