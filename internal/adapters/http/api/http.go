// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/mlgate/internal/adapters/repository"
	service "github.com/okian/mlgate/internal/app"
	"github.com/okian/mlgate/internal/domain/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ModelDependencies
	DriftDependencies
	DashboardDependencies
	AuditDependencies
	GateDependencies
	StatsProvider
}

// ModelDependencies covers the registry lifecycle.
type ModelDependencies interface {
	RegisterModel(ctx context.Context, req service.RegisterRequest) (model.ModelRecord, error)
	Approve(ctx context.Context, runID string) error
	Deploy(ctx context.Context, runID string) error
	Rollback(ctx context.Context) (model.ModelRecord, error)
	LatestModel(ctx context.Context) (model.ModelRecord, error)
	DeployedMetrics(ctx context.Context) (map[string]any, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	modelsHandler    *ModelsHandler
	driftHandler     *DriftHandler
	dashboardHandler *DashboardHandler
	auditHandler     *AuditHandler
	gatesHandler     *GatesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		modelsHandler:    NewModelsHandler(deps),
		driftHandler:     NewDriftHandler(deps),
		dashboardHandler: NewDashboardHandler(deps),
		auditHandler:     NewAuditHandler(deps),
		gatesHandler:     NewGatesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/models", MetricsMiddleware(s.modelsHandler.HandleRegister, "models"))
	mux.HandleFunc("/approve_model", MetricsMiddleware(s.modelsHandler.HandleApprove, "approve_model"))
	mux.HandleFunc("/deploy", MetricsMiddleware(s.modelsHandler.HandleDeploy, "deploy"))
	mux.HandleFunc("/rollback", MetricsMiddleware(s.modelsHandler.HandleRollback, "rollback"))
	mux.HandleFunc("/model/latest", MetricsMiddleware(s.modelsHandler.HandleLatest, "model_latest"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.modelsHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/drift/baseline", MetricsMiddleware(s.driftHandler.HandleBaseline, "drift_baseline"))
	mux.HandleFunc("/drift/score", MetricsMiddleware(s.driftHandler.HandleScore, "drift_score"))
	mux.HandleFunc("/audit", MetricsMiddleware(s.auditHandler.HandleAudit, "audit"))
	mux.HandleFunc("/scan_sbom", MetricsMiddleware(s.gatesHandler.HandleScanSBOM, "scan_sbom"))
	mux.HandleFunc("/validate_data", MetricsMiddleware(s.gatesHandler.HandleValidateData, "validate_data"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps a service error onto an API kind.
func classify(err error) error {
	switch {
	case errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, service.ErrNoModels),
		errors.Is(err, service.ErrNoDeployedModel),
		errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, service.ErrNotApproved):
		return ErrForbidden
	case errors.Is(err, repository.ErrDuplicateRun):
		return ErrConflict
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrNotLatest),
		errors.Is(err, service.ErrSignatureInvalid),
		errors.Is(err, service.ErrNoRollbackTarget),
		errors.Is(err, repository.ErrInvalidRun):
		return ErrBadRequest
	default:
		return ErrInternal
	}
}

// writeServiceError writes err with the status of its kind.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	kind := classify(err)
	wrapped := WrapKind(op, kind, err)
	switch kind {
	case ErrNotFound:
		writeError(w, http.StatusNotFound, "not_found", wrapped)
	case ErrForbidden:
		writeError(w, http.StatusForbidden, "forbidden", wrapped)
	case ErrConflict:
		writeError(w, http.StatusConflict, "conflict", wrapped)
	case ErrBadRequest:
		writeError(w, http.StatusBadRequest, "bad_request", wrapped)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", wrapped)
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
