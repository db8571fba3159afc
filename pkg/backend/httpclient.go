package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ClientConfig configures the management-plane HTTP client embedded by
// concrete adapters.
type ClientConfig struct {
	// Adapter is the owning adapter's name, used in errors and logs.
	Adapter string

	// BaseURL is the management plane's base URL (no trailing slash
	// required).
	BaseURL string

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration

	// MaxRetries is the number of retries for transient failures
	// (network errors, 5xx). Zero disables retries; the config layer
	// defaults adapter retries to 2.
	MaxRetries int

	// VerifyTLS controls certificate verification. Appliance management
	// planes commonly run self-signed certificates; set false to accept
	// them.
	VerifyTLS bool

	// Headers are static headers (authentication) attached to every
	// request.
	Headers map[string]string

	// Connection pool tuning. Zero values take the defaults below.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Health is a snapshot of a client's view of its management plane.
type Health struct {
	// Healthy is false after ConsecutiveFailures reaches the circuit
	// threshold.
	Healthy bool

	// LastCheck is when health was last updated.
	LastCheck time.Time

	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int

	// LastError is the most recent failure, nil when healthy.
	LastError error

	// LastSuccess is when a request last succeeded.
	LastSuccess time.Time

	// TotalRequests and FailedRequests count lifetime traffic.
	TotalRequests  int64
	FailedRequests int64
}

// Consecutive failures before the client reports unhealthy.
const unhealthyThreshold = 3

// Client is the base HTTP client for adapter management-plane calls. It
// provides connection pooling, retry with exponential backoff, timeout
// handling, and health tracking. Concrete adapters embed or hold one Client
// per target.
type Client struct {
	config ClientConfig
	client *http.Client

	health   Health
	healthMu sync.RWMutex
}

// NewClient creates a management-plane client with connection pooling.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 20
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		health: Health{
			Healthy:     true, // start optimistic
			LastCheck:   time.Now(),
			LastSuccess: time.Now(),
		},
	}
}

// BaseURL returns the configured management-plane base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Healthy returns the current health verdict.
func (c *Client) Healthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.Healthy
}

// Health returns detailed health information.
func (c *Client) Health() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// updateHealth updates the health snapshot after a request or probe.
func (c *Client) updateHealth(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastCheck = time.Now()

	if success {
		c.health.Healthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		c.health.LastSuccess = time.Now()
		return
	}

	c.health.ConsecutiveFailures++
	c.health.LastError = err

	if c.health.ConsecutiveFailures >= unhealthyThreshold {
		c.health.Healthy = false
		slog.Warn("management plane marked unhealthy",
			"adapter", c.config.Adapter,
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// recordRequest counts a request outcome.
func (c *Client) recordRequest(success bool) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.TotalRequests++
	if !success {
		c.health.FailedRequests++
	}
}

// url joins the base URL and a request path.
func (c *Client) url(path string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Do performs an HTTP request against the management plane with retry and
// timeout handling. Transient failures (network errors, 5xx) are retried
// with exponential backoff; authentication and client errors are not.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error
	url := c.url(path)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying management plane request",
				"adapter", c.config.Adapter,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.Headers {
			req.Header.Set(key, value)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		slog.Debug("sending management plane request",
			"adapter", c.config.Adapter,
			"method", method,
			"url", url,
		)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.recordRequest(false)

			if ctx.Err() != nil {
				// Context cancelled or deadline passed, don't retry.
				return nil, &TimeoutError{
					Adapter: c.config.Adapter,
					Timeout: c.config.Timeout,
				}
			}

			slog.Warn("management plane request failed, will retry",
				"adapter", c.config.Adapter,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.recordRequest(true)
			c.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			// Credential problem, retrying won't help.
			c.recordRequest(false)
			c.updateHealth(false, fmt.Errorf("authentication failed"))
			return nil, &AuthError{
				Adapter: c.config.Adapter,
				Message: string(errorBody),
			}

		case http.StatusTooManyRequests:
			c.recordRequest(false)
			return nil, &RateLimitError{
				Adapter:    c.config.Adapter,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict,
			http.StatusUnprocessableEntity:
			// The management plane rejected the payload, don't retry.
			c.recordRequest(false)
			return nil, &AdapterError{
				Adapter:    c.config.Adapter,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &AdapterError{
				Adapter:    c.config.Adapter,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			c.recordRequest(false)

			slog.Warn("management plane returned error status, will retry",
				"adapter", c.config.Adapter,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	c.updateHealth(false, lastErr)
	return nil, lastErr
}

// DoJSON performs a JSON request and decodes the JSON response into
// respBody (which may be nil to discard the body).
func (c *Client) DoJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, path, bodyBytes, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Adapter: c.config.Adapter,
			Cause:   fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Adapter:     c.config.Adapter,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
