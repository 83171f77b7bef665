// Package tariff is the Tariff Data Service: an HTTP client for the UK Trade
// Tariff API, the Fetch+Parse layer and the typed entity graph built over
// JSON:API responses.
package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// API hosts and defaults.
const (
	HostLocal      = "http://localhost:3002"
	HostProduction = "https://www.trade-tariff.service.gov.uk"
	DefaultVersion = "v2"

	DefaultTimeout           = 60 * time.Second
	DefaultMaxRetries        = 3
	DefaultRequestsPerMinute = 300
)

var (
	// ErrNotFound is returned when the API has no such resource.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidDocument is returned when a response fails envelope validation.
	ErrInvalidDocument = errors.New("invalid JSON:API document")
)

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	Host              string
	APIVersion        string
	Format            Format
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	ValidateSchema    bool
	Debug             bool
	Logger            *slog.Logger
	HTTPClient        *http.Client
}

// Client is an HTTP client for the Trade Tariff API.
type Client struct {
	baseURL    string
	version    string
	format     Format
	maxRetries int
	validate   bool
	debug      bool
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = HostLocal
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultVersion
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSONAPI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/"),
		version:    cfg.APIVersion,
		format:     cfg.Format,
		maxRetries: cfg.MaxRetries,
		validate:   cfg.ValidateSchema,
		debug:      cfg.Debug,
		httpClient: httpClient,
		limiter:    NewRateLimiter(cfg.RequestsPerMinute),
		logger:     cfg.Logger,
	}
}

// Format returns the configured output format.
func (c *Client) Format() Format { return c.format }

// APIVersion returns the API version segment of request paths.
func (c *Client) APIVersion() string { return c.version }

// URL returns the full URL of a resource path.
func (c *Client) URL(resource string) string {
	return c.baseURL + "/api/" + c.version + "/" + strings.TrimLeft(resource, "/")
}

// Limiter exposes the client's rate limiter.
func (c *Client) Limiter() *RateLimiter { return c.limiter }

// Get performs a GET request for resource and returns the response body.
// Network errors, 429 and 5xx responses are retried with backoff.
func (c *Client) Get(ctx context.Context, resource string) ([]byte, error) {
	url := c.URL(resource)

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return c.do(ctx, url)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("request failed, retrying", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.debug {
		c.logger.Debug("request", "method", req.Method, "url", url)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		c.logger.Debug("response",
			"url", url,
			"status", resp.StatusCode,
			"content_type", resp.Header.Get("Content-Type"),
			"bytes", len(body),
			"duration", time.Since(start),
		)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.Record429()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	case resp.StatusCode >= 400:
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: errResp.Error}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// isRetryable retries transport failures, throttling and server errors.
func isRetryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

// ErrorResponse matches the API's error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
