package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/mlgate/internal/domain/drift"
	"github.com/okian/mlgate/internal/domain/signing"
	"github.com/okian/mlgate/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAuditQueueSize sets the capacity of the audit queue.
func WithAuditQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.auditQueueSize = size
		}
	}
}

// WithAuditWorkerCount sets the number of audit workers.
func WithAuditWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.auditWorkers = count
		}
	}
}

// WithSigner sets the artifact signer.
func WithSigner(signer *signing.Signer) Option {
	return func(s *Service) {
		if signer != nil {
			s.signer = signer
		}
	}
}

// WithDriftDetector sets the drift detector.
func WithDriftDetector(d *drift.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithClock sets the clock used for audit timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator sets the generator for run and audit ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithArtifactDir sets the directory bare artifact file names are resolved in.
func WithArtifactDir(dir string) Option {
	return func(s *Service) {
		s.artifactDir = dir
	}
}
