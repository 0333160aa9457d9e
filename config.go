package basalt

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"
)

// Config configures the client. BaseURL and APIKey identify the project;
// everything else has workable defaults.
type Config struct {
	// BaseURL is the project's API endpoint (required).
	BaseURL string

	// APIKey is the project API key sent on every request (required).
	APIKey string

	// HTTPClient overrides the default HTTP client (30s timeout).
	HTTPClient *http.Client

	// Logger receives structured client logs. Defaults to a no-op logger.
	Logger hclog.Logger

	// RetryMax is the number of retries after the first attempt for
	// retryable failures. Zero means the default of 3; negative disables
	// retries.
	RetryMax int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// AnalyticsBatchSize is the number of events per analytics batch
	// (default: 50).
	AnalyticsBatchSize int

	// AnalyticsFlushInterval is how long an event may wait in the
	// analytics queue before being shipped (default: 5s).
	AnalyticsFlushInterval time.Duration

	// AnalyticsQueueSize is the capture queue capacity; events beyond it
	// are dropped rather than blocking the caller (default: 1024).
	AnalyticsQueueSize int

	// AnalyticsSendTimeout bounds each analytics batch request
	// (default: 10s).
	AnalyticsSendTimeout time.Duration
}

// Validate checks the config before the client is built.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.APIKey, validation.Required),
	)
}
