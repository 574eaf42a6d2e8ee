/*
Package store defines the persistence boundary.

PURPOSE:
  The transformation pipelines are pure; the only state the engine keeps is
  per-client configuration documents, incentive rules and an audit trail of
  transformation runs. Both backends implement the interfaces below.

IMPLEMENTATIONS:
  store/sqlite: durable, used by `flexpay serve`
  store/memory: process-local, used by tests and one-shot CLI runs

SEE ALSO:
  - config/resolver.go: consumes config.Source
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/warp/flexpay-engine/config"
)

// RunKind identifies which pipeline a run executed.
type RunKind string

const (
	RunPayroll RunKind = "payroll"
	RunInvoice RunKind = "invoice"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one audited transformation run.
type RunRecord struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	Kind         RunKind   `json:"kind"`
	InputRows    int       `json:"input_rows"`
	OutputRows   int       `json:"output_rows"`
	RejectedRows int       `json:"rejected_rows"`
	Status       RunStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// RunRecorder persists the run audit trail.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) (RunRecord, error)
	// ListRuns returns runs newest first. An empty clientID lists all clients.
	ListRuns(ctx context.Context, clientID string, limit int) ([]RunRecord, error)
}

// ConfigStore persists client configuration documents.
type ConfigStore interface {
	config.Source
	// SaveClientConfig upserts the document and bumps its version.
	SaveClientConfig(ctx context.Context, clientID, configJSON string) (config.ClientRecord, error)
	// ReplaceIncentiveRules swaps the client's rule set, in order.
	ReplaceIncentiveRules(ctx context.Context, clientID string, rules []config.RuleRecord) error
}

// Store is everything the HTTP server needs.
type Store interface {
	ConfigStore
	RunRecorder
	Close() error
}
