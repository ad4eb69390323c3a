package api

import (
	"context"
	"net/http"

	service "github.com/okian/mlgate/internal/app"
	"github.com/okian/mlgate/internal/domain/supplychain"
	"github.com/okian/mlgate/internal/domain/validation"
)

// GateDependencies covers the pre-deployment supply-chain and dataset checks.
type GateDependencies interface {
	ScanSBOM(ctx context.Context, components []supplychain.Component) (service.ScanResult, error)
	ValidateDataset(ctx context.Context, records []validation.Record) (validation.Result, error)
}

type scanRequest struct {
	Components []supplychain.Component `json:"components"`
}

type datasetRequest struct {
	Records []validation.Record `json:"records"`
}

// GatesHandler serves /scan_sbom and /validate_data.
type GatesHandler struct {
	deps GateDependencies
}

// NewGatesHandler creates a new gates handler.
func NewGatesHandler(deps GateDependencies) *GatesHandler {
	return &GatesHandler{deps: deps}
}

// HandleScanSBOM handles POST /scan_sbom requests.
func (h *GatesHandler) HandleScanSBOM(w http.ResponseWriter, r *http.Request) {
	const op = "api.scan_sbom"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.ScanSBOM(r.Context(), req.Components)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleValidateData handles POST /validate_data requests.
func (h *GatesHandler) HandleValidateData(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_data"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req datasetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.ValidateDataset(r.Context(), req.Records)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
