package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/mlgate/internal/app"
)

type runRequest struct {
	RunID string `json:"run_id"`
}

func (r runRequest) validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("missing run_id")
	}
	return nil
}

// ModelsHandler serves the registry lifecycle routes.
type ModelsHandler struct {
	deps ModelDependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelDependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// HandleRegister handles POST /models requests.
func (h *ModelsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_model"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req service.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.RegisterModel(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleApprove handles POST /approve_model requests.
func (h *ModelsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_model"
	req, ok := h.decodeRun(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Approve(r.Context(), req.RunID); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": true})
}

// HandleDeploy handles POST /deploy requests.
func (h *ModelsHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	const op = "api.deploy"
	req, ok := h.decodeRun(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Deploy(r.Context(), req.RunID); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deployed", "run_id": req.RunID})
}

// HandleRollback handles POST /rollback requests.
func (h *ModelsHandler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	const op = "api.rollback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rec, err := h.deps.Rollback(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rolled_back": true, "run_id": rec.RunID})
}

// HandleLatest handles GET /model/latest requests.
func (h *ModelsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest_model"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rec, err := h.deps.LatestModel(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleMetrics handles GET /metrics requests with the deployed model's evaluation metrics.
func (h *ModelsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.metrics"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	m, err := h.deps.DeployedMetrics(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ModelsHandler) decodeRun(w http.ResponseWriter, r *http.Request, op string) (runRequest, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return runRequest{}, false
	}
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return runRequest{}, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return runRequest{}, false
	}
	return req, true
}
