// Package site serves the dashboard page, rendered on the server for every request.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/okian/mlgate/internal/dashboard"
	"github.com/okian/mlgate/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("dashboard page render failed")
)

// RootHandler renders the dashboard page at / and serves static assets elsewhere.
type RootHandler struct {
	fetcher dashboard.Fetcher
	page    []byte
	files   http.Handler
	logger  logger.Logger
}

// NewRootHandler creates a root handler whose page loads read from f.
func NewRootHandler(f dashboard.Fetcher) (*RootHandler, error) {
	page, err := Page()
	if err != nil {
		return nil, errors.Join(ErrRender, err)
	}
	return &RootHandler{
		fetcher: f,
		page:    page,
		files:   http.FileServer(FS()),
		logger:  logger.Get().Named("site"),
	}, nil
}

// Register attaches the dashboard page and its assets to mux.
func Register(_ context.Context, mux *http.ServeMux, h *RootHandler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", h)
}

// ServeHTTP handles GET / by running one dashboard load into a fresh page.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.files.ServeHTTP(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	doc, err := dashboard.ParseDocument(bytes.NewReader(h.page))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Each request is its own page load, so each gets its own loader.
	loader := dashboard.NewLoader(h.fetcher, dashboard.WithLogger(h.logger))
	state, err := loader.Load(r.Context(), doc)
	if errors.Is(err, dashboard.ErrRegionNotFound) {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Dashboard-State", state.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *RootHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "dashboard page failed", logger.Error(err))
	http.Error(w, errors.Join(ErrRender, err).Error(), http.StatusInternalServerError)
}
