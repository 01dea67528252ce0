// Package fetch provides the HTTP fetch capability consumed by the
// pagination controller, with retry, caching, and error classification.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/rest-pager/pkg/cache"
	"github.com/Sternrassler/rest-pager/pkg/request"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_requests_total",
		Help: "Total requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pager_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// RawResponse is the raw result of one fetch. It is created per call and
// discarded after normalization.
type RawResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Fetcher performs the network call for a request descriptor.
// Implementations return *RemoteError for non-2xx responses and
// *NetworkError for connection-level failures.
type Fetcher interface {
	Fetch(ctx context.Context, d request.Descriptor) (*RawResponse, error)
}

// Config holds the HTTP fetcher configuration.
type Config struct {
	// User-Agent header sent with every request (REQUIRED).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout per request.
	Timeout time.Duration

	// Retry policy applied per request.
	Retry RetryConfig

	// Redis client for response caching (optional; nil disables caching).
	Redis *redis.Client

	// CacheTTL is the fallback TTL for cached responses when the endpoint
	// sends no Expires header.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  60 * time.Second,
	}
}

// HTTPFetcher is the default Fetcher backed by a resty HTTP client.
type HTTPFetcher struct {
	rest   *resty.Client
	cache  *cache.Manager
	config Config
	logger zerolog.Logger
}

// New creates a new HTTP fetcher.
func New(cfg Config) (*HTTPFetcher, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "fetcher").Logger()

	rest := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &HTTPFetcher{
		rest:   rest,
		cache:  cacheManager,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch performs a GET request for the descriptor with retry, caching,
// and error classification.
func (f *HTTPFetcher) Fetch(ctx context.Context, d request.Descriptor) (*RawResponse, error) {
	endpoint := endpointLabel(d)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache
	cacheKey := d.String()
	if f.cache != nil {
		entry, err := f.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil {
			f.logger.Debug().Str("endpoint", endpoint).Msg("Cache hit")
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return &RawResponse{
				StatusCode: entry.StatusCode,
				Body:       entry.Data,
				Header:     entry.Header,
			}, nil
		}
	}

	// Step 2: Execute request with retry logic
	f.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", d.URL()).
		Msg("Executing request")

	var raw *RawResponse
	retryErr := retryWithBackoff(ctx, f.config.Retry, func() error {
		resp, reqErr := f.rest.R().SetContext(ctx).Get(d.URL())

		// Handle network errors
		if reqErr != nil {
			f.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &NetworkError{Err: reqErr}
		}

		statusCode := resp.StatusCode()
		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Inc()

		// Handle HTTP errors
		if statusCode >= 400 {
			errClass := classify(statusCode, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			f.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", statusCode).
				Str("error_class", string(errClass)).
				Msg("Request error")

			return &RemoteError{
				StatusCode: statusCode,
				ErrorClass: errClass,
				Message:    resp.Status(),
			}
		}

		// Success
		raw = &RawResponse{
			StatusCode: statusCode,
			Body:       resp.Body(),
			Header:     resp.Header(),
		}
		return nil
	}, classifyForRetry)

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 3: Update cache on success
	if f.cache != nil && raw.StatusCode == http.StatusOK {
		entry := cache.EntryFromResponse(raw.StatusCode, raw.Header, raw.Body, f.config.CacheTTL)
		if err := f.cache.Set(ctx, cacheKey, entry); err != nil {
			f.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			f.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return raw, nil
}

// SetTransport sets a custom HTTP transport (for testing).
func (f *HTTPFetcher) SetTransport(rt http.RoundTripper) {
	f.rest.SetTransport(rt)
}

// classifyForRetry reports the error class of a fetch attempt failure
// so the retry loop can decide whether to try again.
func classifyForRetry(err error) ErrorClass {
	switch e := err.(type) {
	case *RemoteError:
		return e.ErrorClass
	case *NetworkError:
		return ErrorClassNetwork
	default:
		return ErrorClassNetwork
	}
}

// endpointLabel derives a bounded-cardinality metric label from a descriptor.
func endpointLabel(d request.Descriptor) string {
	u, err := url.Parse(d.URL())
	if err != nil {
		return d.BaseURL
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
