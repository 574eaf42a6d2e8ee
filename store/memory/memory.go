// Package memory provides an in-memory Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	configs map[string]config.ClientRecord
	rules   map[string][]config.RuleRecord
	runs    []store.RunRecord
	now     func() time.Time
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		configs: make(map[string]config.ClientRecord),
		rules:   make(map[string][]config.RuleRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) ClientConfig(_ context.Context, clientID string) (*config.ClientRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.configs[clientID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) SaveClientConfig(_ context.Context, clientID, configJSON string) (config.ClientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.configs[clientID]
	rec.ClientID = clientID
	rec.ConfigJSON = configJSON
	rec.Version++
	rec.UpdatedAt = m.now()
	m.configs[clientID] = rec
	return rec, nil
}

func (m *Memory) IncentiveRules(_ context.Context, clientID string) ([]config.RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]config.RuleRecord, len(m.rules[clientID]))
	copy(out, m.rules[clientID])
	return out, nil
}

// ReplaceIncentiveRules swaps the client's rule set. Positions follow slice order.
func (m *Memory) ReplaceIncentiveRules(_ context.Context, clientID string, rules []config.RuleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]config.RuleRecord, len(rules))
	for i, rr := range rules {
		rr.ID = strings.TrimSpace(rr.ID)
		if rr.ID == "" {
			rr.ID = uuid.New().String()
		}
		rr.ClientID = clientID
		rr.Position = i
		rr.CreatedAt = now
		out[i] = rr
	}
	m.rules[clientID] = out
	return nil
}

// RecordRun appends a run. Append-only.
func (m *Memory) RecordRun(_ context.Context, run store.RunRecord) (store.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = m.now()
	}
	m.runs = append(m.runs, run)
	return run, nil
}

// ListRuns returns runs newest first.
func (m *Memory) ListRuns(_ context.Context, clientID string, limit int) ([]store.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}

	var out []store.RunRecord
	for i := len(m.runs) - 1; i >= 0; i-- {
		if clientID == "" || m.runs[i].ClientID == clientID {
			out = append(out, m.runs[i])
		}
	}
	// Stable keeps append order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
