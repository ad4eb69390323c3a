// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net"
	"runtime"
)

const defaultAddr = ":9080"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text, json or console output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RegistryDSN is the SQLite data source for the model registry and audit trail.
	RegistryDSN string `koanf:"registry_dsn"`

	// ArtifactDir is where relative model artifact paths are resolved.
	ArtifactDir string `koanf:"artifact_dir"`

	// SigningKey is the shared secret used to sign model artifacts.
	SigningKey string `koanf:"signing_key"`

	// DriftThreshold is the PSI above which a sample counts as drifted.
	DriftThreshold float64 `koanf:"drift_threshold"`

	// DriftBins is the histogram bin count used for PSI.
	DriftBins int `koanf:"drift_bins"`

	// AuditQueueSize bounds the in-memory audit queue.
	AuditQueueSize int `koanf:"audit_queue_size"`

	// AuditWorkerCount sets the number of audit persistence workers.
	AuditWorkerCount int `koanf:"audit_worker_count"`

	// DashboardURL is the base URL the dashboard page loads its snapshot from.
	// Unset, it points at this process's own listen address.
	DashboardURL string `koanf:"dashboard_url"`

	// DashboardStatusCheck makes HTTP error statuses fail a dashboard load.
	DashboardStatusCheck bool `koanf:"dashboard_status_check"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             defaultAddr,
		RegistryDSN:      "file:models/registry.db?_pragma=busy_timeout(5000)",
		ArtifactDir:      "models",
		SigningKey:       "local-demo-key",
		DriftThreshold:   0.2,
		DriftBins:        10,
		AuditQueueSize:   10_000,
		AuditWorkerCount: runtime.NumCPU(),
		DashboardURL:     localURL(defaultAddr),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RegistryDSN == "":
		return fmt.Errorf("%w: registry_dsn must not be empty", ErrInvalidConfig)
	case c.DriftThreshold <= 0:
		return fmt.Errorf("%w: drift_threshold must be positive", ErrInvalidConfig)
	case c.DriftBins < 2:
		return fmt.Errorf("%w: drift_bins must be at least 2", ErrInvalidConfig)
	case c.DashboardURL == "":
		return fmt.Errorf("%w: dashboard_url must not be empty", ErrInvalidConfig)
	}
	return nil
}

// localURL turns a listen address into a loopback base URL.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
