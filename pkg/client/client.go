// Package client provides the HTTP client for the blog REST API: the
// page-scoped post listing, the total post count and per-post comments,
// with rate limit gating, optional retries and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/Sternrassler/post-pager/pkg/posts"
	"github.com/Sternrassler/post-pager/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpager_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postpager_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpager_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// HeaderTotalCount carries the total number of items behind a listing.
const HeaderTotalCount = "X-Total-Count"

// Client is the blog API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	postsURL    *url.URL
	commentsURL *url.URL
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// PostsURL is the posts collection, e.g. https://jsonplaceholder.typicode.com/posts
	PostsURL string

	// CommentsURL is the comments collection filtered by postId.
	CommentsURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP round trip (0 disables it).
	Timeout time.Duration

	// Retry. MaxRetries 0 sends every request exactly once.
	MaxRetries     int
	InitialBackoff time.Duration

	// RateLimitStore holds the request budget state (nil keeps it in memory).
	RateLimitStore ratelimit.Store
}

// DefaultConfig returns the configuration for the public jsonplaceholder API.
func DefaultConfig() Config {
	return Config{
		PostsURL:       "https://jsonplaceholder.typicode.com/posts",
		CommentsURL:    "https://jsonplaceholder.typicode.com/comments",
		UserAgent:      "post-pager/0.1.0",
		Timeout:        30 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	postsURL, err := parseBaseURL(cfg.PostsURL)
	if err != nil {
		return nil, fmt.Errorf("posts url: %w", err)
	}

	commentsURL, err := parseBaseURL(cfg.CommentsURL)
	if err != nil {
		return nil, fmt.Errorf("comments url: %w", err)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	logger := logging.NewLogger("api-client")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.RateLimitStore, logger),
		postsURL:    postsURL,
		commentsURL: commentsURL,
		config:      cfg,
		logger:      logger,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

// Do performs an HTTP request with rate limit gating, retries and metrics.
// Only 2xx responses are returned; everything else becomes a *FetchError
// and the response body is closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	logger := logging.Ctx(ctx, c.logger)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing API request")

	retryConfig := DefaultRetryConfig()
	retryConfig.MaxAttempts = c.config.MaxRetries + 1
	if c.config.InitialBackoff > 0 {
		retryConfig.InitialBackoff = c.config.InitialBackoff
	}

	var resp *http.Response
	err = retryWithBackoff(ctx, retryConfig, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &FetchError{
				Class:   ErrorClassTransport,
				URL:     req.URL.String(),
				Message: "request failed",
				Err:     reqErr,
			}
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errClass := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			return &FetchError{
				Class:      errClass,
				StatusCode: resp.StatusCode,
				URL:        req.URL.String(),
				Message:    resp.Status,
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// classifyStatus maps a non-success HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// get sends a GET to base with the given query and returns the response.
func (c *Client) get(ctx context.Context, base *url.URL, query url.Values) (*http.Response, error) {
	u := *base
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// getJSON sends a GET and decodes the JSON body into dst.
func (c *Client) getJSON(ctx context.Context, base *url.URL, query url.Values, dst any) error {
	resp, err := c.get(ctx, base, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &FetchError{
			Class:      ErrorClassDecode,
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Message:    "decode response body",
			Err:        err,
		}
	}
	return nil
}

// ListPosts returns the posts of one page, sorted by id ascending.
func (c *Client) ListPosts(ctx context.Context, page, limit int) ([]posts.Summary, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w (page=%d, limit=%d)", ErrInvalidPage, page, limit)
	}

	query := url.Values{}
	query.Set("_limit", strconv.Itoa(limit))
	query.Set("_page", strconv.Itoa(page))
	query.Set("_sort", "id")
	query.Set("_order", "asc")

	var out []posts.Summary
	if err := c.getJSON(ctx, c.postsURL, query, &out); err != nil {
		return nil, fmt.Errorf("list posts page %d: %w", page, err)
	}

	c.logger.Debug().Int("page", page).Int("count", len(out)).Msg("Fetched post listing")
	return out, nil
}

// CountPosts returns the total number of posts reported by the API through
// the X-Total-Count header of a single-item range request.
func (c *Client) CountPosts(ctx context.Context) (int, error) {
	query := url.Values{}
	query.Set("_start", "0")
	query.Set("_end", "1")

	resp, err := c.get(ctx, c.postsURL, query)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	raw := resp.Header.Get(HeaderTotalCount)
	total, convErr := strconv.Atoi(raw)
	if raw == "" || convErr != nil || total < 0 {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return 0, fmt.Errorf("count posts: %w", &FetchError{
			Class:      ErrorClassDecode,
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Message:    fmt.Sprintf("%s=%q", HeaderTotalCount, raw),
			Err:        ErrMissingTotalCount,
		})
	}

	c.logger.Debug().Int("total", total).Msg("Fetched post count")
	return total, nil
}

// Comments returns all comments of a post in server order.
func (c *Client) Comments(ctx context.Context, postID int) ([]posts.Comment, error) {
	query := url.Values{}
	query.Set("postId", strconv.Itoa(postID))

	var out []posts.Comment
	if err := c.getJSON(ctx, c.commentsURL, query, &out); err != nil {
		return nil, fmt.Errorf("comments for post %d: %w", postID, err)
	}
	return out, nil
}

// RateLimitState returns the last known request budget.
func (c *Client) RateLimitState(ctx context.Context) (*ratelimit.RateLimitState, error) {
	return c.rateLimiter.GetState(ctx)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
