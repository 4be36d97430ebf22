// Package source fetches raw dashboard payloads from the upstream risk service.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default fetcher configuration constants.
const (
	DefaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

// Sentinel kinds for fetch failures.
var (
	ErrRequest = errors.New("upstream request failed")
	ErrStatus  = errors.New("upstream returned non-2xx status")
)

// Fetcher returns the raw body of one GET of a fixed endpoint.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// HTTPFetcher issues GET requests against one URL.
type HTTPFetcher struct {
	url     string
	client  *http.Client
	timeout time.Duration
	maxBody int64
}

// Option applies a configuration option to the HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded except by
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d >= 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// NewHTTPFetcher creates a fetcher for url.
func NewHTTPFetcher(url string, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		url:     url,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the polled endpoint.
func (f *HTTPFetcher) URL() string { return f.url }

// Fetch performs one GET and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequest, err)
	}
	return body, nil
}
