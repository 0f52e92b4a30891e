package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Response struct {
	StatusCode int
	Body       []byte
}

type Interface interface {
	Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	GetFunc    func(ctx context.Context, path string, opts ...RequestOption) (*Response, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// RateLimit is the sustained number of requests per second; zero disables limiting.
	RateLimit float64
}

// RequestOption customizes a single outgoing request.
type RequestOption func(*http.Request)

// WithQuery appends the given values to the request query string.
func WithQuery(values url.Values) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetries: opts.MaxRetries,
		limiter:    limiter,
	}
}

// Get issues a GET request. Transport errors and 5xx responses are retried
// with exponential backoff up to maxRetries attempts; other responses are
// returned to the caller as-is.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	if c.GetFunc != nil {
		return c.GetFunc(ctx, path, opts...)
	}

	var fullURL string
	if c.baseURL == "" {
		fullURL = path // If no base URL, treat path as full URL
	} else {
		fullURL = c.baseURL + path
	}

	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	var lastResp *Response
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.do(ctx, fullURL, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			log.Debug().Err(err).Str("url", fullURL).Int("attempt", attempt+1).Msg("HTTP request failed")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastResp = resp
			lastErr = nil
			log.Debug().Int("status", resp.StatusCode).Str("url", fullURL).Int("attempt", attempt+1).Msg("HTTP server error")
			continue
		}
		return resp, nil
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (c *Client) do(ctx context.Context, fullURL string, opts []RequestOption) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
