// Package places proxies place searches to SerpApi and normalizes the results.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/observability"

	"github.com/cenkalti/backoff/v5"
)

const (
	serviceName = "serpapi"

	// DefaultTimeout bounds a single SerpApi attempt.
	DefaultTimeout = 30 * time.Second
	maxAttempts    = 2
	// radiusKmCutoff: radius values below this are kilometers.
	radiusKmCutoff = 50
	maxBodyBytes   = 4 << 20
)

// ErrMissingKey is returned when no SerpApi key is configured.
var ErrMissingKey = models.NewValidationError("SerpApi key is required")

// SearchResult is the proxied response.
type SearchResult struct {
	Places           []Place        `json:"places"`
	SearchMetadata   map[string]any `json:"search_metadata"`
	SearchParameters map[string]any `json:"search_parameters"`
}

// Client calls the SerpApi search endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	retryDelay time.Duration
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryDelay sets the pause before the retry after a timeout.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient builds a client for baseURL. A non-positive timeout uses DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
		retryDelay: 500 * time.Millisecond,
		http:       &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// BuildParams turns the caller's query into SerpApi parameters. Any api_key
// from the caller is discarded in favor of the configured one.
func BuildParams(query url.Values, apiKey string) url.Values {
	params := url.Values{}
	for key, values := range query {
		if key == "api_key" || len(values) == 0 {
			continue
		}
		params.Set(key, values[0])
	}

	if params.Get("type") == "search" && params.Has("ll") {
		params.Set("engine", "google_local")
		params.Del("type")

		if raw := params.Get("radius"); raw != "" {
			if km, err := strconv.ParseFloat(raw, 64); err == nil && km < radiusKmCutoff {
				params.Set("radius", strconv.Itoa(int(km*1000)))
			}
		}
	}

	params.Set("api_key", apiKey)
	return params
}

// Search forwards query to SerpApi. Timeouts are retried once; any other
// failure is returned immediately.
func (c *Client) Search(ctx context.Context, query url.Values) (result *SearchResult, err error) {
	if !c.Configured() {
		return nil, ErrMissingKey
	}

	ctx, span := observability.StartClientSpan(ctx, serviceName, "search")
	defer func() { observability.EndSpan(span, err) }()

	params := BuildParams(query, c.apiKey)
	middleware.Logger.InfoContext(ctx, "serpapi request",
		slog.String("engine", params.Get("engine")),
		slog.String("q", params.Get("q")),
		slog.String("ll", params.Get("ll")),
	)

	attempt := 0
	body, err := backoff.Retry(ctx, func() (map[string]any, error) {
		attempt++
		body, err := c.fetch(ctx, params)
		if err != nil && !isTimeout(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			middleware.Logger.WarnContext(ctx, "serpapi attempt timed out, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
				slog.Duration("retry_in", next),
			)
		}),
	)
	if err != nil {
		if isTimeout(err) {
			observability.UpstreamRequests.WithLabelValues(serviceName, "timeout").Inc()
			return nil, models.NewTimeoutError("SerpApi", err)
		}
		observability.UpstreamRequests.WithLabelValues(serviceName, "error").Inc()
		return nil, models.NewUpstreamError("SerpApi", err)
	}
	observability.UpstreamRequests.WithLabelValues(serviceName, "ok").Inc()

	result = &SearchResult{
		Places:           Normalize(extractResults(body)),
		SearchMetadata:   asObject(body["search_metadata"]),
		SearchParameters: asObject(body["search_parameters"]),
	}
	middleware.Logger.InfoContext(ctx, "serpapi results", slog.Int("places", len(result.Places)))
	return result, nil
}

// fetch performs one attempt under its own deadline.
func (c *Client) fetch(ctx context.Context, params url.Values) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.UpstreamLatency.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		if isTimeout(err) {
			return nil, err
		}
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
