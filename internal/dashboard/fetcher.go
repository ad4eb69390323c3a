package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Path is the fixed endpoint the loader reads.
const Path = "/dashboard"

const defaultFetchTimeout = 30 * time.Second

// Fetcher retrieves one raw dashboard payload.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// HTTPFetcher issues GET <base>/dashboard with no headers, query or body.
type HTTPFetcher struct {
	endpoint    string
	client      *http.Client
	statusCheck bool
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		endpoint: strings.TrimRight(baseURL, "/") + Path,
		client:   &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Endpoint returns the full URL requested.
func (f *HTTPFetcher) Endpoint() string { return f.endpoint }

// Fetch performs the request and returns the body.
// The status code is ignored unless status checking is enabled.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if f.statusCheck && resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
