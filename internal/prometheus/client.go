package prometheus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
)

// Endpoints reported in FetchError and health checks.
const (
	EndpointTSDB    = "tsdb"
	EndpointTargets = "targets"
	EndpointSeries  = "series"
	EndpointQuery   = "query"
	EndpointConfig  = "config"
	EndpointRuntime = "runtime"
)

// FetchError wraps any failure talking to one Prometheus endpoint. Network,
// auth and CORS-style failures are not told apart.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Client struct {
	api     v1.API
	raw     api.Client
	timeout time.Duration
	logger  *slog.Logger
}

type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	// StatusLimit caps the entries per TSDB status ranking.
	StatusLimit uint64
}

func NewClient(cfg Config) (*Client, error) {
	apiCfg := api.Config{
		Address: cfg.URL,
	}

	if cfg.Username != "" && cfg.Password != "" {
		apiCfg.RoundTripper = &basicAuthTransport{
			username: cfg.Username,
			password: cfg.Password,
			next:     api.DefaultRoundTripper,
		}
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		api:     v1.NewAPI(client),
		raw:     client,
		timeout: cfg.Timeout,
		logger:  slog.Default().With("component", "prometheus", "url", cfg.URL),
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

type basicAuthTransport struct {
	username string
	password string
	next     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(req)
}
