// Package client provides the HTTP client for the Skilly API with session
// cookies, backoff handling, reference data caching and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/skilly-client/pkg/cache"
	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/Sternrassler/skilly-client/pkg/ratelimit"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Prometheus metrics for Skilly client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skilly_requests_total",
		Help: "Total Skilly API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skilly_request_duration_seconds",
		Help:    "Skilly API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skilly_errors_total",
		Help: "Total Skilly API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of failed calls.
type ErrorClass string

const (
	// ErrorClassUnauthorized represents 401 responses (session lost).
	ErrorClassUnauthorized ErrorClass = "unauthorized"

	// ErrorClassRedirect represents 307 redirect instructions.
	ErrorClassRedirect ErrorClass = "redirect"

	// ErrorClassClient represents other 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and local backoff blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Client is the Skilly API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Skilly API, e.g. "https://api.skilly.example".
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// Jar stores the session cookie. An in-memory jar is used when nil.
	Jar http.CookieJar

	// Redis enables the reference data cache and shared backoff state.
	// Optional.
	Redis *redis.Client

	// Timeout bounds a single round trip.
	Timeout time.Duration

	// Retry settings for idempotent reference data requests. Listing
	// requests are never retried.
	MaxRetries     int
	InitialBackoff time.Duration

	// Tracing wraps the transport with OpenTelemetry instrumentation.
	Tracing bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new Skilly client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	jar := cfg.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	logger := logging.NewLogger("skilly-client")

	var store ratelimit.Store
	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		store = ratelimit.NewRedisStore(cfg.Redis)
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
			// 307 is an application level instruction, handled by the caller.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:     baseURL,
		rateLimiter: ratelimit.NewTracker(store, logger),
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs exactly one round trip. On success the response is returned
// with its body open. 307 responses become *RedirectError, every other
// non-2xx (except 304) becomes *APIError with the body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, wait, err := c.rateLimiter.Allow(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &APIError{
			StatusCode: http.StatusTooManyRequests,
			ErrorClass: ErrorClassRateLimit,
			Message:    fmt.Sprintf("backoff active for another %s", wait.Round(time.Second)),
			RetryAfter: wait,
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, ulid.Make().String())
	}
	requestID := req.Header.Get(HeaderRequestID)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", requestID).
		Msg("Executing Skilly request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: errClass,
			Message:    "request failed",
			Err:        err,
		}
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.rateLimiter.Observe(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	if resp.StatusCode < 300 || resp.StatusCode == http.StatusNotModified {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	errClass := c.classifyError(resp, nil)
	errorsTotal.WithLabelValues(string(errClass)).Inc()

	if errClass == ErrorClassRedirect {
		var payload struct {
			Redirect string `json:"redirect"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Redirect != "" {
			c.logger.Info().
				Str("endpoint", endpoint).
				Str("redirect", payload.Redirect).
				Msg("Skilly redirect instruction")
			return nil, &RedirectError{Path: payload.Redirect}
		}
		// a 307 without a target is just a broken response
		errClass = ErrorClassServer
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		Message:    resp.Status,
		Detail:     bodyMessage(body),
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("error_class", string(errClass)).
		Str("request_id", requestID).
		Msg("Skilly request error")

	return nil, apiErr
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		c.logger.Debug().Str("class", string(ErrorClassNetwork)).Msg("Error classified")
		return ErrorClassNetwork
	}

	var class ErrorClass
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		class = ErrorClassUnauthorized
	case resp.StatusCode == http.StatusTemporaryRedirect:
		class = ErrorClassRedirect
	case resp.StatusCode == http.StatusTooManyRequests:
		class = ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		class = ErrorClassClient
	case resp.StatusCode >= 500:
		class = ErrorClassServer
	default:
		// unexpected 3xx
		class = ErrorClassServer
	}
	c.logger.Debug().Str("class", string(class)).Msg("Error classified")
	return class
}

// newRequest builds a request against the configured base URL. A non-nil
// payload is JSON encoded.
func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON performs one round trip and decodes the response body into out
// when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// getReference fetches an idempotent GET endpoint through the Redis cache
// (when configured) with retry on transient failures.
func (c *Client) getReference(ctx context.Context, path, scope string) ([]byte, error) {
	key := cache.Key{Endpoint: path, Scope: scope}

	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Cache get error")
		}
		cached = entry
	}
	if cached != nil && !cached.IsExpired() {
		cache.CacheHits.WithLabelValues("fresh").Inc()
		c.logger.Debug().Str("endpoint", path).Dur("ttl", cached.TTL()).Msg("Cache hit")
		return cached.Data, nil
	}

	var data []byte
	err := retryWithBackoff(ctx, c.retryConfig, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		cache.AddConditionalHeaders(req, cached)

		resp, err := c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			if cached == nil {
				return &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: ErrorClassServer,
					Message:    "304 without a cached entry",
				}
			}
			cache.CacheHits.WithLabelValues("revalidated").Inc()
			c.logger.Debug().Str("endpoint", path).Msg("304 Not Modified - using cache")
			if err := c.cache.Refresh(ctx, key, cached, cache.FreshUntil(resp.Header, time.Now())); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
			data = cached.Data
			return nil
		}

		if c.cache == nil || !cache.Cacheable(resp.Header) {
			data, err = io.ReadAll(resp.Body)
			if err != nil {
				return &APIError{ErrorClass: ErrorClassNetwork, Message: "read response", Err: err}
			}
			return nil
		}

		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "read response", Err: err}
		}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().Str("endpoint", path).Dur("ttl", entry.TTL()).Msg("Cached response")
		}
		data = entry.Data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// retryConfig applies the client overrides to the per-class defaults.
func (c *Client) retryConfig(class ErrorClass) RetryConfig {
	cfg := RetryConfigForErrorClass(class)
	cfg.MaxAttempts = c.config.MaxRetries
	if c.config.InitialBackoff > 0 {
		cfg.InitialBackoff = c.config.InitialBackoff
		if cfg.MaxBackoff < cfg.InitialBackoff {
			cfg.MaxBackoff = cfg.InitialBackoff
		}
	}
	return cfg
}

// Close closes the client and releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing). The cookie jar and
// redirect policy of the replaced client are carried over when unset.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client.Jar == nil {
		client.Jar = c.httpClient.Jar
	}
	if client.CheckRedirect == nil {
		client.CheckRedirect = c.httpClient.CheckRedirect
	}
	c.httpClient = client
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// endpointLabel collapses per-user path segments so metric labels stay bounded.
func endpointLabel(path string) string {
	if rest, ok := strings.CutPrefix(path, "/v1/profile/picture/"); ok && rest != "" {
		return "/v1/profile/picture/{username}"
	}
	return path
}

// bodyMessage extracts the "message" field of an error body.
func bodyMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
