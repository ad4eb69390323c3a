package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/okian/mlgate/internal/domain/model"
	"github.com/okian/mlgate/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pingTimeout     = 3 * time.Second
	deployedKey     = "deployed_run_id"
	modelColumns    = `run_id, path, metrics, signature, metadata, approved, created_at`
	schemaStatement = `
CREATE TABLE IF NOT EXISTS models(
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL UNIQUE,
	path       TEXT NOT NULL,
	metrics    TEXT NOT NULL,
	signature  TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	approved   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS registry_state(
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_events(
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL,
	category TEXT NOT NULL,
	action   TEXT NOT NULL,
	details  TEXT NOT NULL,
	at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_category ON audit_events(category);`
)

// SQLiteStore implements Store and AuditStore on a single SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

var (
	_ Store      = (*SQLiteStore)(nil)
	_ AuditStore = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the registry database at dsn.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping registry: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaStatement); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}

	s := &SQLiteStore{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ensureDir creates the parent directory of a file-backed DSN.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Register implements Store.
func (s *SQLiteStore) Register(ctx context.Context, rec model.ModelRecord) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return fmt.Errorf("%w: empty run id", ErrInvalidRun)
	}
	metricsJSON, err := json.Marshal(nonNilMetrics(rec.Metrics))
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	metadataJSON, err := json.Marshal(nonNilMetadata(rec.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM models WHERE run_id = ?`, rec.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, rec.RunID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO models(`+modelColumns+`) VALUES(?,?,?,?,?,?,?)`,
		rec.RunID, rec.Path, string(metricsJSON), rec.Signature, string(metadataJSON),
		boolToInt(rec.Approved), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}

	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateRegistryModels(n)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]model.ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]model.ModelRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context) (model.ModelRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY seq DESC LIMIT 1`)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ModelRecord{}, ErrNotFound
	}
	return rec, err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (model.ModelRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE run_id = ?`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ModelRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rec, err
}

// Approve implements Store.
func (s *SQLiteStore) Approve(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE models SET approved = 1 WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("approve run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// MarkDeployed implements Store.
func (s *SQLiteStore) MarkDeployed(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deploy: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var approved int
	err = tx.QueryRowContext(ctx, `SELECT approved FROM models WHERE run_id = ?`, runID).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return fmt.Errorf("lookup run: %w", err)
	}
	if approved == 0 {
		return fmt.Errorf("%w: %s", ErrNotApproved, runID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registry_state(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		deployedKey, runID,
	)
	if err != nil {
		return fmt.Errorf("mark deployed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deploy: %w", err)
	}
	return nil
}

// Deployed implements Store.
func (s *SQLiteStore) Deployed(ctx context.Context) (model.ModelRecord, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM registry_state WHERE key = ?`, deployedKey).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && runID == "") {
		return model.ModelRecord{}, ErrNotFound
	}
	if err != nil {
		return model.ModelRecord{}, fmt.Errorf("lookup deployment: %w", err)
	}
	return s.Get(ctx, runID)
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM models`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// AppendAudit implements AuditStore.
func (s *SQLiteStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events(id, category, action, details, at) VALUES(?,?,?,?,?)`,
		ev.ID, ev.Category, ev.Action, ev.Details, ev.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit implements AuditStore.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unbounded
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, action, details, at FROM audit_events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	out := make([]model.AuditEvent, 0)
	for rows.Next() {
		var (
			ev model.AuditEvent
			at int64
		)
		if err := rows.Scan(&ev.ID, &ev.Category, &ev.Action, &ev.Details, &at); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		ev.At = time.Unix(0, at).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.ModelRecord, error) {
	var (
		rec          model.ModelRecord
		metricsJSON  string
		metadataJSON string
		approved     int
		createdAt    int64
	)
	if err := row.Scan(&rec.RunID, &rec.Path, &metricsJSON, &rec.Signature, &metadataJSON, &approved, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
		return rec, fmt.Errorf("decode metrics of %s: %w", rec.RunID, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
		return rec, fmt.Errorf("decode metadata of %s: %w", rec.RunID, err)
	}
	rec.Approved = approved != 0
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}

func nonNilMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
