/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists per-client configuration documents, incentive rules and the
  transformation run audit trail for the HTTP server.

INTERFACES IMPLEMENTED:
  config.Source:     Client configuration and rule lookup
  store.ConfigStore: Configuration writes
  store.RunRecorder: Run audit trail

KEY TABLES:
  client_configs:  One JSON document per client (versioned)
  incentive_rules: Ordered rule documents per client
  transform_runs:  Append-only run audit

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; SQLite allows a single writer.

USAGE:
  st, err := sqlite.New("./data/flexpay.db")
  if err != nil {
      return err
  }
  defer st.Close()
  resolver := config.NewResolver(st, log)

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/store"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS client_configs (
		client_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS incentive_rules (
		id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		rule_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		PRIMARY KEY (client_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_incentive_rules_client
		ON incentive_rules(client_id, position);

	-- Run audit (append-only)
	CREATE TABLE IF NOT EXISTS transform_runs (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		input_rows INTEGER NOT NULL,
		output_rows INTEGER NOT NULL,
		rejected_rows INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transform_runs_client
		ON transform_runs(client_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT CONFIGS
// =============================================================================

// ClientConfig returns the client's document, or nil when absent.
func (s *Store) ClientConfig(ctx context.Context, clientID string) (*config.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec config.ClientRecord
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, config_json, version, updated_at
		FROM client_configs WHERE client_id = ?
	`, clientID).Scan(&rec.ClientID, &rec.ConfigJSON, &rec.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client config: %w", err)
	}
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &rec, nil
}

// SaveClientConfig upserts the client's document and bumps its version.
func (s *Store) SaveClientConfig(ctx context.Context, clientID, configJSON string) (config.ClientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_configs (client_id, config_json, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = client_configs.version + 1,
			updated_at = excluded.updated_at
	`, clientID, configJSON, now.Format(timeLayout))
	if err != nil {
		return config.ClientRecord{}, fmt.Errorf("failed to save client config: %w", err)
	}

	rec := config.ClientRecord{ClientID: clientID, ConfigJSON: configJSON, UpdatedAt: now}
	err = s.db.QueryRowContext(ctx, `SELECT version FROM client_configs WHERE client_id = ?`, clientID).Scan(&rec.Version)
	if err != nil {
		return config.ClientRecord{}, fmt.Errorf("failed to read client config version: %w", err)
	}
	return rec, nil
}

// =============================================================================
// INCENTIVE RULES
// =============================================================================

// IncentiveRules returns the client's rules in position order, inactive included.
func (s *Store) IncentiveRules(ctx context.Context, clientID string) ([]config.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, position, rule_json, active, created_at
		FROM incentive_rules WHERE client_id = ?
		ORDER BY position
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incentive rules: %w", err)
	}
	defer rows.Close()

	var out []config.RuleRecord
	for rows.Next() {
		var rr config.RuleRecord
		var active int
		var createdAt string
		if err := rows.Scan(&rr.ID, &rr.ClientID, &rr.Position, &rr.RuleJSON, &active, &createdAt); err != nil {
			return nil, err
		}
		rr.Active = active != 0
		rr.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ReplaceIncentiveRules swaps the client's rule set in one transaction.
// Positions are reassigned from the slice order; missing IDs get a UUID.
func (s *Store) ReplaceIncentiveRules(ctx context.Context, clientID string, rules []config.RuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incentive_rules WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("failed to clear incentive rules: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	for i, rr := range rules {
		id := strings.TrimSpace(rr.ID)
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO incentive_rules (id, client_id, position, rule_json, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, clientID, i, rr.RuleJSON, boolInt(rr.Active), now)
		if err != nil {
			return fmt.Errorf("failed to save incentive rule %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// RUN AUDIT
// =============================================================================

// RecordRun appends a run, assigning its ID and timestamp when unset.
func (s *Store) RecordRun(ctx context.Context, run store.RunRecord) (store.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transform_runs (id, client_id, kind, input_rows, output_rows, rejected_rows, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ClientID, string(run.Kind), run.InputRows, run.OutputRows, run.RejectedRows,
		string(run.Status), nullString(run.Error), run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return store.RunRecord{}, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, clientID string, limit int) ([]store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, client_id, kind, input_rows, output_rows, rejected_rows, status, error, created_at
		FROM transform_runs`
	args := []any{}
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []store.RunRecord
	for rows.Next() {
		var run store.RunRecord
		var kind, status, createdAt string
		var runErr sql.NullString
		if err := rows.Scan(&run.ID, &run.ClientID, &kind, &run.InputRows, &run.OutputRows,
			&run.RejectedRows, &status, &runErr, &createdAt); err != nil {
			return nil, err
		}
		run.Kind = store.RunKind(kind)
		run.Status = store.RunStatus(status)
		run.Error = runErr.String
		run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
