// Package client provides the atSpoke API client: an authenticated GET
// fetcher and per-resource iteration on top of the pagination engine.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/logging"
	"github.com/Sternrassler/spoke-connector/pkg/pagination"
	"github.com/Sternrassler/spoke-connector/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for provider calls.
var (
	spokeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_requests_total",
		Help: "Total atSpoke API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	spokeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spoke_request_duration_seconds",
		Help:    "atSpoke API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	spokeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_errors_total",
		Help: "Total atSpoke API errors by class",
	}, []string{"class"})
)

// DefaultUserAgent identifies the connector to the provider.
const DefaultUserAgent = "spoke-connector (graph ingestion client)"

// Client talks to the atSpoke v1 API.
type Client struct {
	httpClient *http.Client
	pacer      *ratelimit.Pacer
	engine     *pagination.Engine
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is sent as the Api-Key header (REQUIRED).
	APIKey string

	// BaseURL is the API root, e.g. https://api.askspoke.com/api/v1.
	BaseURL string

	UserAgent string

	// Timeout bounds a single HTTP call.
	Timeout time.Duration

	// RequestsPerSecond paces calls; 0 disables pacing.
	RequestsPerSecond float64
}

// DefaultConfig returns a configuration for the public atSpoke API.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		BaseURL:           "https://api.askspoke.com/api/v1",
		UserAgent:         DefaultUserAgent,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
	}
}

// New creates an atSpoke client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("spoke-client")

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		pacer:  ratelimit.NewPacer(cfg.RequestsPerSecond, 1, logger),
		config: cfg,
		logger: logger,
	}
	c.engine = pagination.NewEngine(c, logger)

	logger.Debug().
		Str("base_url", cfg.BaseURL).
		Bool("paced", c.pacer.Enabled()).
		Float64("requests_per_second", cfg.RequestsPerSecond).
		Msg("Client created")

	return c, nil
}

// Get performs one authenticated GET against endpoint and returns the body.
// Anything but a 200, and every transport failure, becomes an
// *AuthenticationError. There are no retries.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	target := c.config.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	startTime := time.Now()
	defer func() {
		spokeRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.pacer.Wait(ctx); err != nil {
		spokeErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &AuthenticationError{Endpoint: target, StatusText: "request not sent", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &AuthenticationError{Endpoint: target, StatusText: "invalid request", Err: err}
	}
	req.Header.Set("Api-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		spokeErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		spokeRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &AuthenticationError{
			Endpoint:   target,
			StatusText: err.Error(),
			Err:        err,
		}
	}
	defer resp.Body.Close()

	spokeRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		spokeErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("atSpoke request error")
		return nil, &AuthenticationError{
			Endpoint:   target,
			Status:     resp.StatusCode,
			StatusText: fmt.Sprintf("Received HTTP status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		spokeErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &AuthenticationError{
			Endpoint:   target,
			Status:     resp.StatusCode,
			StatusText: "read response body",
			Err:        err,
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("bytes", len(body)).
		Msg("atSpoke request complete")

	return body, nil
}

// resultsEnvelope is the shape of every collection response.
type resultsEnvelope struct {
	Results *[]json.RawMessage `json:"results"`
}

// FetchPage implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, endpoint string, query url.Values) ([]json.RawMessage, error) {
	body, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	var env resultsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		spokeErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	if env.Results == nil {
		spokeErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, fmt.Errorf("%w: %s: missing results array", ErrMalformedResponse, endpoint)
	}

	return *env.Results, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
