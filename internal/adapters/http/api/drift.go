package api

import (
	"context"
	"net/http"

	service "github.com/okian/mlgate/internal/app"
)

// DriftDependencies covers drift baseline and scoring.
type DriftDependencies interface {
	SetDriftBaseline(ctx context.Context, sample []float64) error
	ScoreDrift(ctx context.Context, sample []float64) (service.DriftResult, error)
}

type sampleRequest struct {
	Values []float64 `json:"values"`
}

// DriftHandler serves the drift routes.
type DriftHandler struct {
	deps DriftDependencies
}

// NewDriftHandler creates a new drift handler.
func NewDriftHandler(deps DriftDependencies) *DriftHandler {
	return &DriftHandler{deps: deps}
}

// HandleBaseline handles POST /drift/baseline requests.
func (h *DriftHandler) HandleBaseline(w http.ResponseWriter, r *http.Request) {
	const op = "api.drift_baseline"
	req, ok := decodeSample(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.SetDriftBaseline(r.Context(), req.Values); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "size": len(req.Values)})
}

// HandleScore handles POST /drift/score requests.
func (h *DriftHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.drift_score"
	req, ok := decodeSample(w, r, op)
	if !ok {
		return
	}
	res, err := h.deps.ScoreDrift(r.Context(), req.Values)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeSample(w http.ResponseWriter, r *http.Request, op string) (sampleRequest, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return sampleRequest{}, false
	}
	var req sampleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return sampleRequest{}, false
	}
	return req, true
}
