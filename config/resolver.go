/*
resolver.go - Per-client configuration lookup with default fallback

PURPOSE:
  The pipelines never talk to storage. Before a run, the caller resolves the
  client's configuration once and hands the typed result to the pipeline.

FAILURE POLICY:
  A missing record, a storage error or an unparseable document all resolve
  to the defaults. The failure is logged at warn level and the run proceeds.
  A single unparseable incentive rule is skipped; the others still apply.

SEE ALSO:
  - store/sqlite/sqlite.go, store/memory/memory.go: Source implementations
  - file_source.go: YAML-backed Source for CLI runs
*/
package config

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ClientRecord is a persisted client configuration document.
type ClientRecord struct {
	ClientID   string
	ConfigJSON string
	Version    int
	UpdatedAt  time.Time
}

// RuleRecord is a persisted incentive rule document.
type RuleRecord struct {
	ID        string
	ClientID  string
	Position  int
	RuleJSON  string
	Active    bool
	CreatedAt time.Time
}

// Source loads persisted configuration. ClientConfig returns (nil, nil) when
// the client has no record. IncentiveRules returns records in position order.
type Source interface {
	ClientConfig(ctx context.Context, clientID string) (*ClientRecord, error)
	IncentiveRules(ctx context.Context, clientID string) ([]RuleRecord, error)
}

// Resolved is the immutable configuration for one run.
type Resolved struct {
	ClientID string                   `json:"client_id"`
	Payroll  TransformerConfig        `json:"payroll"`
	Invoice  InvoiceTransformerConfig `json:"invoice"`
	Rules    []IncentiveRule          `json:"incentive_rules"`
	FieldMap map[string]string        `json:"field_map,omitempty"`
	// Defaulted is true when the client record was absent or unusable.
	Defaulted bool `json:"defaulted"`
}

// Defaults returns the fully defaulted configuration for a client.
func Defaults(clientID string) Resolved {
	return Resolved{
		ClientID:  clientID,
		Payroll:   DefaultTransformerConfig(),
		Invoice:   DefaultInvoiceConfig(),
		Rules:     []IncentiveRule{},
		Defaulted: true,
	}
}

// Resolver resolves configuration through a Source.
type Resolver struct {
	source  Source
	factory *Factory
	logger  *zap.Logger
}

// NewResolver creates a resolver. A nil source always resolves to defaults.
func NewResolver(source Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, factory: NewFactory(), logger: logger}
}

// Resolve returns the client's configuration. It never fails.
func (r *Resolver) Resolve(ctx context.Context, clientID string) Resolved {
	resolved := Defaults(clientID)
	if r.source == nil {
		return resolved
	}
	log := r.logger.With(zap.String("client_id", clientID))

	rec, err := r.source.ClientConfig(ctx, clientID)
	switch {
	case err != nil:
		log.Warn("client config lookup failed, using defaults", zap.Error(err))
	case rec == nil:
		log.Debug("no client config, using defaults")
	default:
		payroll, invoice, fieldMap, perr := r.factory.ParseClientConfig(rec.ConfigJSON)
		if perr != nil {
			log.Warn("client config unparseable, using defaults", zap.Error(perr), zap.Int("version", rec.Version))
			break
		}
		payroll.Version = rec.Version
		resolved.Payroll = payroll
		resolved.Invoice = invoice
		resolved.FieldMap = fieldMap
		resolved.Defaulted = false
	}

	records, err := r.source.IncentiveRules(ctx, clientID)
	if err != nil {
		log.Warn("incentive rule lookup failed, running without incentives", zap.Error(err))
		return resolved
	}
	for _, rr := range records {
		if !rr.Active {
			continue
		}
		rule, perr := r.factory.ParseIncentiveRule(rr.RuleJSON)
		if perr != nil {
			log.Warn("skipping unparseable incentive rule", zap.String("rule_id", rr.ID), zap.Error(perr))
			continue
		}
		if rr.ID != "" {
			rule.ID = rr.ID
		}
		if !rule.Active {
			continue
		}
		resolved.Rules = append(resolved.Rules, rule)
	}
	return resolved
}
