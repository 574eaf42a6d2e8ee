/*
Package incentive evaluates configured incentive rules against punches.

PURPOSE:
  Clients pay flat, additive incentives for hard-to-fill shifts: ICU nights,
  weekend ER coverage, early-morning starts. Each rule is a set of
  predicates plus an amount. A punch earns the sum of the amounts of every
  rule whose predicates all hold.

RULE MATCHING:
  A rule matches a punch when all of the following hold:
    (a) rule company equals punch company (case-insensitive, trimmed)
    (b) punch cost center is in the rule's cost-center set (exact)
    (c) day-of-week set empty, or in-clock date weekday is a member
    (d) shift filter empty or Both, or equals the punch classification
    (e) no time range, or in-clock minute-of-day in [start, end)
  A predicate that needs a date or time fails when the punch lacks one.

GATING:
  Disabled incentives, or a run date after the valid-through date, yield a
  zero outcome without evaluating any rule.

EXAMPLE:
  engine := incentive.New(rules, cfg)
  out := engine.Evaluate(incentive.Subject{
      Company: "UofL", CostCenter: "ICU", Shift: timecard.ShiftNight,
  }, runDate)
  out.Total // 2.0

SEE ALSO:
  - config/types.go: IncentiveRule, TimeRange, ShiftFilter
  - payroll/stages.go: AnnotateIncentives
*/
package incentive

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/timecard"
)

// DescriptionSeparator joins matched rule descriptions for display.
const DescriptionSeparator = "; "

// Subject is the part of a classified punch the rules look at.
type Subject struct {
	Company    string
	CostCenter string
	InDate     time.Time
	// InTime is the in-clock time as "HH:MM"; "" when unknown.
	InTime string
	Shift  timecard.ShiftType
}

// Outcome is the result of evaluating all rules for one punch.
type Outcome struct {
	Total        decimal.Decimal
	Descriptions []string
	Matched      []string
}

// Description joins the matched rule descriptions.
func (o Outcome) Description() string {
	return strings.Join(o.Descriptions, DescriptionSeparator)
}

// Engine holds the rules for one run.
type Engine struct {
	Rules []config.IncentiveRule
	// Config supplies the enabled flag and the valid-through date.
	Config config.TransformerConfig
}

// New builds an engine from a client's rules and payroll configuration.
func New(rules []config.IncentiveRule, cfg config.TransformerConfig) *Engine {
	return &Engine{Rules: rules, Config: cfg}
}

// Active reports whether rules are evaluated for a run on runDate.
func (e *Engine) Active(runDate time.Time) bool {
	return e != nil && e.Config.IncentivesActiveOn(runDate)
}

// Evaluate sums the amounts of all rules matching s.
func (e *Engine) Evaluate(s Subject, runDate time.Time) Outcome {
	out := Outcome{Total: decimal.Zero}
	if !e.Active(runDate) {
		return out
	}
	for _, rule := range e.Rules {
		if !rule.Active || !Matches(rule, s) {
			continue
		}
		out.Total = out.Total.Add(rule.Amount)
		out.Matched = append(out.Matched, rule.ID)
		if rule.Description != "" {
			out.Descriptions = append(out.Descriptions, rule.Description)
		}
	}
	return out
}

// Matches reports whether every predicate of rule holds for s.
func Matches(rule config.IncentiveRule, s Subject) bool {
	if !strings.EqualFold(strings.TrimSpace(rule.Company), strings.TrimSpace(s.Company)) {
		return false
	}
	if !rule.CostCenters.Has(strings.TrimSpace(s.CostCenter)) {
		return false
	}
	if len(rule.DaysOfWeek) > 0 {
		if s.InDate.IsZero() || !rule.DaysOfWeek[s.InDate.Weekday()] {
			return false
		}
	}
	if !rule.ShiftType.Accepts(s.Shift) {
		return false
	}
	if rule.TimeRange != nil {
		minute, ok := timecard.MinuteOfDay(s.InTime)
		if !ok || !rule.TimeRange.Contains(minute) {
			return false
		}
	}
	return true
}
