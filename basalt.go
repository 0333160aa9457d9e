package basalt

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/ai"
	"github.com/basalt-io/basalt-go/pkg/analytics"
	"github.com/basalt-io/basalt-go/pkg/auth"
	"github.com/basalt-io/basalt-go/pkg/cache"
	"github.com/basalt-io/basalt-go/pkg/mail"
	"github.com/basalt-io/basalt-go/pkg/migrate"
	"github.com/basalt-io/basalt-go/pkg/query"
	"github.com/basalt-io/basalt-go/pkg/queue"
	"github.com/basalt-io/basalt-go/pkg/search"
	"github.com/basalt-io/basalt-go/pkg/storage"
	"github.com/basalt-io/basalt-go/pkg/transport"
	"github.com/basalt-io/basalt-go/pkg/workflow"
)

// Client is the entry point to a Basalt project. All services share one
// transport, so a sign-in through Auth authenticates every subsequent
// request.
type Client struct {
	tc *transport.Client

	authSvc      *auth.Service
	querySvc     *query.Service
	storageSvc   *storage.Service
	searchSvc    *search.Service
	analyticsSvc *analytics.Service
	cacheSvc     *cache.Service
	mailSvc      *mail.Service
	queueSvc     *queue.Service
	workflowSvc  *workflow.Service
	aiSvc        *ai.Service
	migrateSvc   *migrate.Service
}

// New creates a client for the project at config.BaseURL.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("basalt")

	tc, err := transport.New(transport.Config{
		BaseURL:    config.BaseURL,
		APIKey:     config.APIKey,
		HTTPClient: config.HTTPClient,
		Logger:     logger,
		UserAgent:  config.UserAgent,
		RetryMax:   config.RetryMax,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		tc:           tc,
		authSvc:      auth.NewService(tc, logger),
		querySvc:     query.NewService(tc, logger),
		storageSvc:   storage.NewService(tc, logger),
		searchSvc:    search.NewService(tc, logger),
		cacheSvc:     cache.NewService(tc, logger),
		mailSvc:      mail.NewService(tc, logger),
		queueSvc:     queue.NewService(tc, logger),
		workflowSvc:  workflow.NewService(tc, logger),
		aiSvc:        ai.NewService(tc, logger),
		migrateSvc:   migrate.NewService(tc, logger),
		analyticsSvc: analytics.NewService(tc, analytics.Config{
			MaxBatchSize:  config.AnalyticsBatchSize,
			FlushInterval: config.AnalyticsFlushInterval,
			QueueSize:     config.AnalyticsQueueSize,
			SendTimeout:   config.AnalyticsSendTimeout,
			Logger:        logger,
		}),
	}

	// Signed-in sessions take over from the project API key.
	tc.SetTokenSource(c.authSvc.AccessToken)
	return c, nil
}

// Table starts a query builder against the named table.
func (c *Client) Table(name string) *query.Builder {
	return c.querySvc.Table(name)
}

// Auth returns the auth service.
func (c *Client) Auth() *auth.Service { return c.authSvc }

// Query returns the query service.
func (c *Client) Query() *query.Service { return c.querySvc }

// Storage returns the object storage service.
func (c *Client) Storage() *storage.Service { return c.storageSvc }

// Search returns the full-text search service.
func (c *Client) Search() *search.Service { return c.searchSvc }

// Analytics returns the event capture service.
func (c *Client) Analytics() *analytics.Service { return c.analyticsSvc }

// Cache returns the key-value cache service.
func (c *Client) Cache() *cache.Service { return c.cacheSvc }

// Mail returns the transactional email service.
func (c *Client) Mail() *mail.Service { return c.mailSvc }

// Queue returns the message queue service.
func (c *Client) Queue() *queue.Service { return c.queueSvc }

// Workflow returns the workflow service.
func (c *Client) Workflow() *workflow.Service { return c.workflowSvc }

// AI returns the model inference service.
func (c *Client) AI() *ai.Service { return c.aiSvc }

// Migrate returns the schema migration service.
func (c *Client) Migrate() *migrate.Service { return c.migrateSvc }

// Close flushes and stops the analytics worker. Call it when done with the
// client to avoid losing buffered events.
func (c *Client) Close() error {
	return c.analyticsSvc.Close()
}
