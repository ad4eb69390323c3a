package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/mlgate/internal/domain/model"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditDependencies exposes the audit trail.
type AuditDependencies interface {
	AuditTrail(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

// AuditHandler handles audit trail requests.
type AuditHandler struct {
	deps AuditDependencies
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(deps AuditDependencies) *AuditHandler {
	return &AuditHandler{deps: deps}
}

// HandleAudit handles GET /audit?limit=N requests.
func (h *AuditHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	const op = "api.audit"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, errors.New("limit must be between 1 and 1000")))
			return
		}
		limit = n
	}

	events, err := h.deps.AuditTrail(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
