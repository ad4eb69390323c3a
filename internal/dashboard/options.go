package dashboard

import (
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/okian/mlgate/pkg/logger"
)

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithClock sets the clock used to time loads.
func WithClock(c clockwork.Clock) Option {
	return func(ld *Loader) {
		if c != nil {
			ld.clock = c
		}
	}
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithStatusCheck makes HTTP >= 400 responses fail instead of being parsed.
func WithStatusCheck(enabled bool) FetcherOption {
	return func(f *HTTPFetcher) {
		f.statusCheck = enabled
	}
}
