// Package service provides the governance service behind the HTTP API:
// model registry lifecycle, signature checks, drift scoring, supply-chain and
// dataset gates, and the audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"

	auditqueue "github.com/okian/mlgate/internal/adapters/mq/queue"
	auditworker "github.com/okian/mlgate/internal/adapters/mq/worker"
	"github.com/okian/mlgate/internal/adapters/repository"
	"github.com/okian/mlgate/internal/domain/compliance"
	"github.com/okian/mlgate/internal/domain/drift"
	"github.com/okian/mlgate/internal/domain/model"
	"github.com/okian/mlgate/internal/domain/signing"
	"github.com/okian/mlgate/pkg/logger"
	"github.com/okian/mlgate/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultAuditQueueSize = 10_000
	metricsMetadataKey    = "metrics"
)

// Registry is the persistence the service needs.
type Registry interface {
	repository.Store
	repository.AuditStore
}

// RegisterRequest describes a trained artifact to add to the registry.
type RegisterRequest struct {
	RunID    string             `json:"run_id"`
	Path     string             `json:"path"`
	Metrics  map[string]float64 `json:"metrics"`
	Metadata map[string]string  `json:"metadata"`
}

// DriftResult is the outcome of scoring one sample.
type DriftResult struct {
	Score     float64 `json:"drift_score"`
	Drifted   bool    `json:"drifted"`
	Threshold float64 `json:"threshold"`
}

// Service implements the API dependencies for the governance system.
type Service struct {
	mu sync.RWMutex

	store    Registry
	signer   *signing.Signer
	detector *drift.Detector
	clock    clockwork.Clock
	newID    func() string

	artifactDir string

	auditQueue     *auditqueue.InMemoryQueue
	auditPool      *auditworker.Pool
	auditQueueSize int
	auditWorkers   int

	started bool

	logger logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store Registry, opts ...Option) *Service {
	s := &Service{
		store:          store,
		signer:         signing.New(signing.DefaultKey),
		detector:       drift.NewDetector(),
		clock:          clockwork.NewRealClock(),
		newID:          uuid.NewString,
		auditQueueSize: defaultAuditQueueSize,
		auditWorkers:   runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the audit pipeline. Audit events raised before Start are written synchronously.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting governance service...")

	s.auditQueue = auditqueue.NewInMemoryQueue(auditqueue.WithCapacity(s.auditQueueSize))
	s.auditPool = auditworker.NewPool(s.auditWorkers, s.auditQueue, s.store)
	s.auditPool.Start(ctx)

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateRegistryModels(n)
	}

	s.started = true
	s.logger.Info(ctx, "governance service started",
		logger.Int("auditWorkers", s.auditWorkers),
		logger.Int("auditQueueSize", s.auditQueueSize),
	)
	return nil
}

// Stop drains the audit pipeline.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping governance service...")
	err := s.auditPool.Shutdown(ctx)
	s.started = false
	s.auditQueue = nil
	s.auditPool = nil
	s.logger.Info(ctx, "governance service stopped")
	return err
}

func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get()
}

// audit records a trail entry through the queue, or inline when the pipeline is not running.
func (s *Service) audit(ctx context.Context, category, action, details string) {
	ev := model.AuditEvent{
		ID:       s.newID(),
		Category: category,
		Action:   action,
		Details:  details,
		At:       s.clock.Now(),
	}

	s.mu.RLock()
	q := s.auditQueue
	s.mu.RUnlock()

	if q != nil {
		if !q.Enqueue(ctx, ev) {
			s.log().Warn(ctx, "audit event dropped",
				logger.String("category", category),
				logger.String("action", action),
			)
		}
		return
	}

	logger.Audit(ctx, category, action, details)
	if err := s.store.AppendAudit(ctx, ev); err != nil {
		metrics.RecordAuditPersistError()
		s.log().Error(ctx, "failed to persist audit event", logger.Error(err))
	}
}

// recordCompliance records a framework event on the audit trail.
func (s *Service) recordCompliance(ctx context.Context, domain, detail string) {
	ev := compliance.Record(domain, detail)
	s.audit(ctx, "compliance", ev.Domain, fmt.Sprintf("%s controls=%s", ev.Detail, strings.Join(ev.Controls, ",")))
}

// RegisterModel signs the artifact at req.Path and adds an unapproved record.
func (s *Service) RegisterModel(ctx context.Context, req RegisterRequest) (model.ModelRecord, error) {
	if strings.TrimSpace(req.Path) == "" {
		return model.ModelRecord{}, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = s.newID()
	}
	path := s.resolveArtifact(req.Path)

	signature, err := s.signer.SignFile(path)
	if err != nil {
		metrics.RecordRegistryOperation("register", "error")
		return model.ModelRecord{}, fmt.Errorf("%w: sign artifact: %w", ErrInvalidRequest, err)
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if _, ok := metadata[metricsMetadataKey]; !ok {
		encoded, err := json.Marshal(nonNil(req.Metrics))
		if err != nil {
			return model.ModelRecord{}, fmt.Errorf("encode metrics: %w", err)
		}
		metadata[metricsMetadataKey] = string(encoded)
	}

	rec := model.ModelRecord{
		RunID:     runID,
		Path:      path,
		Metrics:   nonNil(req.Metrics),
		Signature: signature,
		Metadata:  metadata,
	}
	if err := s.store.Register(ctx, rec); err != nil {
		metrics.RecordRegistryOperation("register", "error")
		return model.ModelRecord{}, err
	}
	metrics.RecordRegistryOperation("register", "ok")

	s.audit(ctx, "registry", "model_registered", "run_id="+runID)
	s.recordCompliance(ctx, compliance.NISTAIRMF, "Model registered")

	return s.store.Get(ctx, runID)
}

// resolveArtifact places bare file names inside the artifact directory.
func (s *Service) resolveArtifact(path string) string {
	if s.artifactDir == "" || filepath.Base(path) != path {
		return path
	}
	return filepath.Join(s.artifactDir, path)
}

// Approve marks a run as approved for deployment.
func (s *Service) Approve(ctx context.Context, runID string) error {
	if err := s.store.Approve(ctx, runID); err != nil {
		metrics.RecordRegistryOperation("approve", "error")
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	metrics.RecordRegistryOperation("approve", "ok")
	s.audit(ctx, "registry", "approved", "run_id="+runID)
	return nil
}

// Deploy activates runID. It must be the latest run, approved, and its artifact must verify.
func (s *Service) Deploy(ctx context.Context, runID string) error {
	latest, err := s.store.Latest(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err != nil || latest.RunID != runID {
		metrics.RecordRegistryOperation("deploy", "rejected")
		return ErrNotLatest
	}
	if !latest.Approved {
		metrics.RecordRegistryOperation("deploy", "rejected")
		return ErrNotApproved
	}
	if !s.verify(ctx, latest) {
		metrics.RecordRegistryOperation("deploy", "rejected")
		return ErrSignatureInvalid
	}
	if err := s.store.MarkDeployed(ctx, runID); err != nil {
		metrics.RecordRegistryOperation("deploy", "error")
		return fmt.Errorf("mark deployed: %w", err)
	}

	metrics.RecordRegistryOperation("deploy", "ok")
	metrics.RecordDeployment()
	s.audit(ctx, "registry", "deployed", "run_id="+runID)
	s.audit(ctx, "deploy", "initiated", "run_id="+runID)
	return nil
}

// Rollback deploys the newest approved, verified run registered before the latest one.
func (s *Service) Rollback(ctx context.Context) (model.ModelRecord, error) {
	models, err := s.store.List(ctx)
	if err != nil {
		return model.ModelRecord{}, err
	}
	if len(models) < 2 {
		s.log().Warn(ctx, "no previous model to rollback to")
		return model.ModelRecord{}, ErrNoRollbackTarget
	}

	history := slices.Clone(models[:len(models)-1])
	slices.Reverse(history)
	for _, candidate := range history {
		if !candidate.Approved || !s.verify(ctx, candidate) {
			continue
		}
		if err := s.store.MarkDeployed(ctx, candidate.RunID); err != nil {
			s.log().Error(ctx, "failed to mark rollback target as deployed",
				logger.String("run_id", candidate.RunID),
				logger.Error(err),
			)
			return model.ModelRecord{}, fmt.Errorf("mark deployed: %w", err)
		}
		metrics.RecordRollback()
		s.audit(ctx, "rollback", "initiated", "to="+candidate.RunID)
		return candidate, nil
	}

	s.log().Warn(ctx, "no approved historical model available for rollback")
	return model.ModelRecord{}, ErrNoRollbackTarget
}

// verify checks rec's artifact against its stored signature.
func (s *Service) verify(ctx context.Context, rec model.ModelRecord) bool {
	ok, err := s.signer.VerifyFile(rec.Path, rec.Signature)
	if err != nil {
		s.log().Error(ctx, "artifact verification failed",
			logger.String("run_id", rec.RunID),
			logger.String("path", rec.Path),
			logger.Error(err),
		)
		return false
	}
	return ok
}

// LatestModel returns the most recently registered run.
func (s *Service) LatestModel(ctx context.Context) (model.ModelRecord, error) {
	rec, err := s.store.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ModelRecord{}, ErrNoModels
	}
	return rec, err
}

// DeployedMetrics returns the evaluation metrics stored with the deployed run.
func (s *Service) DeployedMetrics(ctx context.Context) (map[string]any, error) {
	rec, err := s.store.Deployed(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoDeployedModel
	}
	if err != nil {
		return nil, err
	}
	return decodeMetrics(rec.Metadata)
}

func decodeMetrics(metadata map[string]string) (map[string]any, error) {
	raw, ok := metadata[metricsMetadataKey]
	if !ok || raw == "" {
		raw = "{}"
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode stored metrics: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// SetDriftBaseline replaces the reference distribution.
func (s *Service) SetDriftBaseline(ctx context.Context, sample []float64) error {
	if err := s.detector.SetBaseline(sample); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	s.audit(ctx, "drift", "baseline_set", "size="+strconv.Itoa(len(sample)))
	return nil
}

// ScoreDrift scores sample against the baseline and raises an alert when drifted.
func (s *Service) ScoreDrift(ctx context.Context, sample []float64) (DriftResult, error) {
	score, drifted, err := s.detector.Evaluate(sample)
	if err != nil {
		return DriftResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	metrics.UpdateDriftScore(score)
	if drifted {
		metrics.RecordDriftAlert()
		s.audit(ctx, "drift", "alert", "score="+strconv.FormatFloat(score, 'g', -1, 64))
	}
	return DriftResult{Score: score, Drifted: drifted, Threshold: s.detector.Threshold()}, nil
}

// Dashboard aggregates the registry, deployment and drift state.
func (s *Service) Dashboard(ctx context.Context) (model.DashboardState, error) {
	models, err := s.store.List(ctx)
	if err != nil {
		return model.DashboardState{}, err
	}

	approvals := make([]string, 0, len(models))
	for _, m := range models {
		if m.Approved {
			approvals = append(approvals, m.RunID)
		}
	}

	state := model.DashboardState{
		Registry:      models,
		LatestMetrics: map[string]any{},
		DriftScore:    s.detector.Last(),
		Approvals:     approvals,
	}

	deployed, err := s.store.Deployed(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return model.DashboardState{}, err
	default:
		id := deployed.RunID
		state.DeployedRunID = &id
		if state.LatestMetrics, err = decodeMetrics(deployed.Metadata); err != nil {
			return model.DashboardState{}, err
		}
	}

	return state, nil
}

// AuditTrail returns up to limit audit events, newest first.
func (s *Service) AuditTrail(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	return s.store.ListAudit(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"auditWorkers":    s.auditWorkers,
		"auditQueueSize":  s.auditQueueSize,
		"driftThreshold":  s.detector.Threshold(),
		"driftScore":      s.detector.Last(),
		"driftBaselineOn": s.detector.HasBaseline(),
	}

	if n, err := s.store.Count(ctx); err == nil {
		stats["models"] = n
		metrics.UpdateRegistryModels(n)
	}
	if s.started {
		stats["auditQueueLength"] = s.auditQueue.Len(ctx)
	}

	return stats
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
