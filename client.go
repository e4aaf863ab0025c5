package flense

import (
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type client struct {
	restyClient  *resty.Client
	streamClient *resty.Client
	apiKey       string
	baseURL      string
	timeout      time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

var _ Client = (*client)(nil)

type Option func(*client)

func WithAPIKey(apiKey string) Option {
	return func(c *client) {
		c.apiKey = apiKey
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPollInterval customizes the delay between status polls in WaitForJob.
func WithPollInterval(interval time.Duration) Option {
	return func(c *client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithRestyClient allows callers to provide a preconfigured API client.
func WithRestyClient(restyClient *resty.Client) Option {
	return func(c *client) {
		if restyClient != nil {
			c.restyClient = restyClient
		}
	}
}

// WithStreamClient overrides the client used for event-stream
// subscriptions and artifact downloads. It must not carry a request
// timeout: subscriptions stay open until the server closes them.
func WithStreamClient(stream *resty.Client) Option {
	return func(c *client) {
		if stream != nil {
			c.streamClient = stream
		}
	}
}

// WithLogger attaches a structured logger for debug-level request and
// stream lifecycle logging. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client. The API key is resolved from options first
// and the FLENSE_API_KEY environment variable second; a missing key is a
// construction error, never a deferred request failure.
func NewClient(opts ...Option) (Client, error) {
	c := &client{
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv(EnvAPIKey)
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.restyClient == nil {
		c.restyClient = newDefaultAPIClient()
	}
	if c.streamClient == nil {
		c.streamClient = newStreamClient()
	}

	authHeader := "Bearer " + c.apiKey
	c.restyClient.
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("Authorization", authHeader)
	c.streamClient.
		SetBaseURL(c.baseURL).
		SetHeader("Authorization", authHeader)

	return c, nil
}

// Name returns the service name.
func (c *client) Name() string {
	return ServiceName
}

// Version returns the API version.
func (c *client) Version() string {
	return APIVersion
}

func newDefaultAPIClient() *resty.Client {
	return resty.New().
		SetHeader("Content-Type", "application/json")
}

// newStreamClient builds the long-lived connection client. No timeout:
// the server bounds stream duration itself (five minutes, signalled via
// a timeout event).
func newStreamClient() *resty.Client {
	return resty.New()
}
