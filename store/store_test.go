package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/store"
	"github.com/warp/flexpay-engine/store/memory"
	"github.com/warp/flexpay-engine/store/sqlite"
	"go.uber.org/zap"
)

// backends runs each test against both implementations.
func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	sq, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]store.Store{
		"sqlite": sq,
		"memory": memory.New(),
	}
}

func TestClientConfig_SaveAndVersion(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// GIVEN: no record
			rec, err := st.ClientConfig(ctx, "uofl")
			require.NoError(t, err)
			assert.Nil(t, rec)

			// WHEN: saved twice
			first, err := st.SaveClientConfig(ctx, "uofl", `{"payroll":{"day_pay_rate":"60"}}`)
			require.NoError(t, err)
			second, err := st.SaveClientConfig(ctx, "uofl", `{"payroll":{"day_pay_rate":"61"}}`)
			require.NoError(t, err)

			// THEN: version bumps and the latest document wins
			assert.Equal(t, 1, first.Version)
			assert.Equal(t, 2, second.Version)
			rec, err = st.ClientConfig(ctx, "uofl")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, `{"payroll":{"day_pay_rate":"61"}}`, rec.ConfigJSON)
			assert.Equal(t, 2, rec.Version)
		})
	}
}

func TestIncentiveRules_Replace(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.ReplaceIncentiveRules(ctx, "uofl", []config.RuleRecord{
				{ID: "r1", RuleJSON: `{"a":1}`, Active: true},
				{RuleJSON: `{"b":2}`, Active: false},
			}))

			rules, err := st.IncentiveRules(ctx, "uofl")
			require.NoError(t, err)
			require.Len(t, rules, 2)
			assert.Equal(t, "r1", rules[0].ID)
			assert.Equal(t, 0, rules[0].Position)
			assert.True(t, rules[0].Active)
			assert.NotEmpty(t, rules[1].ID, "missing IDs are generated")
			assert.False(t, rules[1].Active)
			assert.Equal(t, "uofl", rules[1].ClientID)

			// WHEN: replaced with a single rule
			require.NoError(t, st.ReplaceIncentiveRules(ctx, "uofl", []config.RuleRecord{{ID: "r3", RuleJSON: `{}`, Active: true}}))
			rules, err = st.IncentiveRules(ctx, "uofl")
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.Equal(t, "r3", rules[0].ID)

			other, err := st.IncentiveRules(ctx, "other")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestRuns_RecordAndList(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, client := range []string{"a", "b", "a"} {
				run, err := st.RecordRun(ctx, store.RunRecord{
					ClientID:   client,
					Kind:       store.RunPayroll,
					InputRows:  10,
					OutputRows: 8 + i,
					Status:     store.RunSucceeded,
					CreatedAt:  base.Add(time.Duration(i) * time.Minute),
				})
				require.NoError(t, err)
				assert.NotEmpty(t, run.ID)
			}
			failed, err := st.RecordRun(ctx, store.RunRecord{ClientID: "a", Kind: store.RunInvoice, Status: store.RunFailed, Error: "boom"})
			require.NoError(t, err)
			assert.False(t, failed.CreatedAt.IsZero())

			all, err := st.ListRuns(ctx, "", 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)

			runs, err := st.ListRuns(ctx, "a", 10)
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, store.RunFailed, runs[0].Status, "newest first")
			assert.Equal(t, "boom", runs[0].Error)
			assert.Equal(t, 10, runs[1].OutputRows)
			assert.Equal(t, 8, runs[2].OutputRows)

			limited, err := st.ListRuns(ctx, "a", 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestStore_FeedsResolver(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// GIVEN: a stored override and one rule
			_, err := st.SaveClientConfig(ctx, "uofl", `{"payroll":{"night_pay_rate":"70"},"invoice":{"flex_fee_rate":"30"}}`)
			require.NoError(t, err)
			require.NoError(t, st.ReplaceIncentiveRules(ctx, "uofl", []config.RuleRecord{{
				ID:       "icu-night",
				RuleJSON: `{"company":"Main Hospital","cost_centers":["ICU"],"shift_type":"Night","amount":"2.0","description":"ICU Night"}`,
				Active:   true,
			}}))

			// WHEN
			resolved := config.NewResolver(st, zap.NewNop()).Resolve(ctx, "uofl")

			// THEN
			assert.False(t, resolved.Defaulted)
			assert.Equal(t, "70", resolved.Payroll.NightPayRate.String())
			assert.Equal(t, "58", resolved.Payroll.DayPayRate.String())
			assert.Equal(t, "30", resolved.Invoice.FeeRate().String())
			assert.Equal(t, 1, resolved.Payroll.Version)
			require.Len(t, resolved.Rules, 1)
			assert.Equal(t, "icu-night", resolved.Rules[0].ID)
		})
	}
}
