package incentive_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/incentive"
	"github.com/warp/flexpay-engine/timecard"
)

var runDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func icuNight() config.IncentiveRule {
	return config.IncentiveRule{
		ID:          "icu-night",
		Company:     "UofL",
		CostCenters: config.NewStringSet("ICU"),
		ShiftType:   config.ShiftNight,
		Amount:      decimal.RequireFromString("2.0"),
		Description: "ICU night",
		Active:      true,
	}
}

func enabled(rules ...config.IncentiveRule) *incentive.Engine {
	return incentive.New(rules, config.DefaultTransformerConfig())
}

func TestEvaluate_ICUNight_AnyClockIn(t *testing.T) {
	// GIVEN: the ICU night rule and Night punches at different clock-in times
	engine := enabled(icuNight())

	for _, inTime := range []string{"19:00", "03:15", "", "11:00"} {
		// WHEN: evaluating
		out := engine.Evaluate(incentive.Subject{
			Company: "UofL", CostCenter: "ICU", InTime: inTime, Shift: timecard.ShiftNight,
		}, runDate)

		// THEN: exactly 2.0 regardless of time
		assert.Equal(t, "2.00", out.Total.StringFixed(2), "in time %q", inTime)
		assert.Equal(t, []string{"icu-night"}, out.Matched)
	}
}

func TestEvaluate_ShiftMismatch(t *testing.T) {
	out := enabled(icuNight()).Evaluate(incentive.Subject{
		Company: "UofL", CostCenter: "ICU", Shift: timecard.ShiftDay,
	}, runDate)

	assert.True(t, out.Total.IsZero())
	assert.Empty(t, out.Matched)
}

func TestEvaluate_CompanyCaseInsensitive_CostCenterExact(t *testing.T) {
	engine := enabled(icuNight())

	out := engine.Evaluate(incentive.Subject{Company: " uofl ", CostCenter: "ICU", Shift: timecard.ShiftNight}, runDate)
	assert.Equal(t, "2", out.Total.String())

	out = engine.Evaluate(incentive.Subject{Company: "UofL", CostCenter: "icu", Shift: timecard.ShiftNight}, runDate)
	assert.True(t, out.Total.IsZero())
}

func TestEvaluate_SumsAllMatchingRules(t *testing.T) {
	weekend := config.IncentiveRule{
		ID:          "weekend",
		Company:     "UofL",
		CostCenters: config.NewStringSet("ICU", "ER"),
		DaysOfWeek:  map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
		Amount:      decimal.RequireFromString("1.25"),
		Description: "Weekend",
		Active:      true,
	}
	early := config.IncentiveRule{
		ID:          "early",
		Company:     "UofL",
		CostCenters: config.NewStringSet("ICU"),
		TimeRange:   &config.TimeRange{Start: 5 * 60, End: 7 * 60},
		Amount:      decimal.NewFromInt(1),
		Active:      true,
	}
	engine := enabled(icuNight(), weekend, early)

	// Saturday 2026-01-03, clock-in 19:30, Night
	out := engine.Evaluate(incentive.Subject{
		Company:    "UofL",
		CostCenter: "ICU",
		InDate:     time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		InTime:     "19:30",
		Shift:      timecard.ShiftNight,
	}, runDate)

	assert.Equal(t, "3.25", out.Total.StringFixed(2))
	assert.Equal(t, "ICU night; Weekend", out.Description())
	assert.Equal(t, []string{"icu-night", "weekend"}, out.Matched)
}

func TestEvaluate_UnconditionalRule(t *testing.T) {
	rule := config.IncentiveRule{
		ID: "all", Company: "UofL", CostCenters: config.NewStringSet("ER"),
		Amount: decimal.NewFromInt(3), Active: true,
	}

	out := enabled(rule).Evaluate(incentive.Subject{Company: "UofL", CostCenter: "ER"}, runDate)

	assert.Equal(t, "3", out.Total.String())
}

func TestEvaluate_WrappingTimeRange(t *testing.T) {
	rule := config.IncentiveRule{
		ID: "overnight", Company: "UofL", CostCenters: config.NewStringSet("ICU"),
		TimeRange: &config.TimeRange{Start: 22 * 60, End: 6 * 60},
		Amount:    decimal.NewFromInt(1), Active: true,
	}
	engine := enabled(rule)
	subject := func(in string) incentive.Subject {
		return incentive.Subject{Company: "UofL", CostCenter: "ICU", InTime: in}
	}

	assert.Equal(t, "1", engine.Evaluate(subject("23:00"), runDate).Total.String())
	assert.Equal(t, "1", engine.Evaluate(subject("02:00"), runDate).Total.String())
	assert.True(t, engine.Evaluate(subject("06:00"), runDate).Total.IsZero())
	assert.True(t, engine.Evaluate(subject(""), runDate).Total.IsZero(), "missing time fails the predicate")
}

func TestEvaluate_MissingDateFailsDayPredicate(t *testing.T) {
	rule := config.IncentiveRule{
		ID: "sun", Company: "UofL", CostCenters: config.NewStringSet("ICU"),
		DaysOfWeek: map[time.Weekday]bool{time.Sunday: true},
		Amount:     decimal.NewFromInt(1), Active: true,
	}

	out := enabled(rule).Evaluate(incentive.Subject{Company: "UofL", CostCenter: "ICU"}, runDate)

	assert.True(t, out.Total.IsZero())
}

func TestEvaluate_Gating(t *testing.T) {
	cfg := config.DefaultTransformerConfig()
	subject := incentive.Subject{Company: "UofL", CostCenter: "ICU", Shift: timecard.ShiftNight}

	// No rules
	assert.True(t, incentive.New(nil, cfg).Evaluate(subject, runDate).Total.IsZero())

	// Disabled
	cfg.IncentivesEnabled = false
	assert.True(t, incentive.New([]config.IncentiveRule{icuNight()}, cfg).Evaluate(subject, runDate).Total.IsZero())

	// Expired: valid through the day before the run
	cfg.IncentivesEnabled = true
	through := runDate.AddDate(0, 0, -1)
	cfg.IncentiveValidThrough = &through
	assert.True(t, incentive.New([]config.IncentiveRule{icuNight()}, cfg).Evaluate(subject, runDate).Total.IsZero())

	// Valid through the run date itself
	through = runDate
	assert.Equal(t, "2", incentive.New([]config.IncentiveRule{icuNight()}, cfg).Evaluate(subject, runDate).Total.String())

	// Inactive rule
	inactive := icuNight()
	inactive.Active = false
	assert.True(t, enabled(inactive).Evaluate(subject, runDate).Total.IsZero())
}

func TestActive_FollowsConfig(t *testing.T) {
	cfg := config.DefaultTransformerConfig()
	through := runDate
	cfg.IncentiveValidThrough = &through

	assert.Equal(t, cfg.IncentivesActiveOn(runDate), incentive.New(nil, cfg).Active(runDate))
	assert.False(t, incentive.New(nil, cfg).Active(runDate.AddDate(0, 0, 1)))

	var none *incentive.Engine
	assert.False(t, none.Active(runDate))
}
