package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/mlgate/internal/domain/compliance"
	"github.com/okian/mlgate/internal/domain/supplychain"
	"github.com/okian/mlgate/internal/domain/validation"
	"github.com/okian/mlgate/pkg/logger"
	"github.com/okian/mlgate/pkg/metrics"
)

const sbomDirName = "sbom"

// ScanResult is the outcome of an SBOM scan.
type ScanResult struct {
	BuildID string `json:"run_id"`
	SBOM    string `json:"sbom"`
	supplychain.PolicyResult
}

// ScanSBOM checks components against the container policy and writes a
// CycloneDX document for them under the artifact directory.
func (s *Service) ScanSBOM(ctx context.Context, components []supplychain.Component) (ScanResult, error) {
	buildID := s.newID()
	policy := supplychain.Check(components)

	path, err := s.writeSBOM(buildID, supplychain.NewSBOM(buildID, components))
	if err != nil {
		metrics.RecordErrorByComponent("supply_chain", "sbom_write")
		return ScanResult{}, err
	}
	s.audit(ctx, "sbom", "generated", "path="+path)

	result := metrics.ResultPassed
	if !policy.Passed() {
		result = metrics.ResultFailed
		s.log().Warn(ctx, "supply-chain policy violations",
			logger.String("run_id", buildID),
			logger.Int("issues", len(policy.Issues)),
		)
	}
	metrics.RecordSupplyChainScan(result)

	s.audit(ctx, "container", "build_ready", fmt.Sprintf("sbom=%s issues=%d warnings=%d",
		path, len(policy.Issues), len(policy.Warnings)))
	s.recordCompliance(ctx, compliance.ACSCE8, "SBOM scanned")

	return ScanResult{BuildID: buildID, SBOM: path, PolicyResult: policy}, nil
}

func (s *Service) writeSBOM(buildID string, bom supplychain.SBOM) (string, error) {
	dir := filepath.Join(s.artifactDir, sbomDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sbom dir: %w", err)
	}
	body, err := json.MarshalIndent(bom, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode sbom: %w", err)
	}
	path := filepath.Join(dir, "sbom_"+buildID+".json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write sbom: %w", err)
	}
	return path, nil
}

// ValidateDataset screens a training dataset. An invalid dataset is a result,
// not an error; only an empty one is rejected.
func (s *Service) ValidateDataset(ctx context.Context, records []validation.Record) (validation.Result, error) {
	res, err := validation.Validate(records)
	if errors.Is(err, validation.ErrNoRecords) {
		return validation.Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err != nil {
		return validation.Result{}, err
	}

	result := metrics.ResultPassed
	if !res.IsValid {
		result = metrics.ResultFailed
	}
	metrics.RecordDataValidation(result, res.DataQualityScore)

	s.audit(ctx, "data_validation", "completed", fmt.Sprintf("issues=%d quality=%.2f risk=%.2f rows=%d",
		len(res.Issues), res.DataQualityScore, res.RiskScore, len(records)))
	if len(res.PIIColumns) > 0 {
		s.recordCompliance(ctx, compliance.PrivacyActADM, "PII detected in columns "+strings.Join(res.PIIColumns, ","))
	}
	return res, nil
}
