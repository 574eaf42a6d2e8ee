/*
Package config turns persisted client configuration into typed, immutable
transformer configuration.

PURPOSE:
  Each client carries rates, pay codes, an approver, a lunch deduction,
  invoice fee settings and a list of incentive rules. They are stored as JSON
  (sqlite) or YAML (file) records. This package owns:
    - the typed structs the pipelines consume (types.go)
    - the JSON schema and its conversion (factory.go)
    - the resolver that loads records and falls back to defaults (resolver.go)

DEFAULTS:
  Every field has a default and defaults are applied in exactly one place,
  at the resolver boundary. Pipeline stages never see a missing value.

    Day rate 58, night rate 63, day code FXDY, night code FXNT,
    approver "Jennifer Devine", lunch deduction 0.5h, incentives enabled,
    flex fee 25.00

SEE ALSO:
  - payroll/pipeline.go: consumes TransformerConfig and IncentiveRule
  - invoice/pipeline.go: consumes InvoiceTransformerConfig
*/
package config

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/flexpay-engine/timecard"
)

// =============================================================================
// PAYROLL CONFIGURATION
// =============================================================================

// TransformerConfig drives the payroll pipeline.
type TransformerConfig struct {
	DayPayRate     decimal.Decimal `json:"day_pay_rate"`
	NightPayRate   decimal.Decimal `json:"night_pay_rate"`
	DayPayCode     string          `json:"day_pay_code"`
	NightPayCode   string          `json:"night_pay_code"`
	ApproverName   string          `json:"approver_name"`
	LunchTimeHours decimal.Decimal `json:"lunch_time_hours"`

	IncentivesEnabled bool `json:"incentives_enabled"`
	// IncentiveValidThrough is the last calendar day incentives apply; nil = no expiry.
	IncentiveValidThrough *time.Time `json:"incentive_valid_through,omitempty"`

	Version int `json:"version"`
}

// DefaultTransformerConfig returns the configuration used when a client has
// no persisted record.
func DefaultTransformerConfig() TransformerConfig {
	return TransformerConfig{
		DayPayRate:        decimal.NewFromInt(58),
		NightPayRate:      decimal.NewFromInt(63),
		DayPayCode:        "FXDY",
		NightPayCode:      "FXNT",
		ApproverName:      "Jennifer Devine",
		LunchTimeHours:    decimal.RequireFromString("0.5"),
		IncentivesEnabled: true,
	}
}

// RateFor returns the pay rate and pay code for a shift classification.
func (c TransformerConfig) RateFor(shift timecard.ShiftType) (decimal.Decimal, string) {
	if shift == timecard.ShiftNight {
		return c.NightPayRate, c.NightPayCode
	}
	return c.DayPayRate, c.DayPayCode
}

// IncentivesActiveOn reports whether incentives apply for a run on the given date.
func (c TransformerConfig) IncentivesActiveOn(runDate time.Time) bool {
	if !c.IncentivesEnabled {
		return false
	}
	if c.IncentiveValidThrough == nil {
		return true
	}
	return !timecard.LaterCalendarDate(runDate, *c.IncentiveValidThrough)
}

// =============================================================================
// INVOICE CONFIGURATION
// =============================================================================

// InvoiceTransformerConfig drives the invoice pipeline.
type InvoiceTransformerConfig struct {
	// FlexFeeRate is the client-specific per-hour fee; invalid = use default.
	FlexFeeRate        decimal.NullDecimal `json:"flex_fee_rate"`
	DefaultFlexFeeRate decimal.Decimal     `json:"default_flex_fee_rate"`

	InvoiceNumberPrefix      string `json:"invoice_number_prefix"`
	MicroInvoiceNumberPrefix string `json:"micro_invoice_number_prefix"`
	// NumberWidth zero-pads the invoice sequence.
	NumberWidth int `json:"number_width"`

	// MicroFacilities holds facility codes or labels flagged as micro-hospitals.
	MicroFacilities StringSet `json:"micro_facilities"`
}

// DefaultInvoiceConfig returns the invoice configuration used when a client
// has no persisted record.
func DefaultInvoiceConfig() InvoiceTransformerConfig {
	return InvoiceTransformerConfig{
		DefaultFlexFeeRate:       decimal.RequireFromString("25.00"),
		InvoiceNumberPrefix:      "INV-",
		MicroInvoiceNumberPrefix: "MINV-",
		NumberWidth:              4,
		MicroFacilities:          StringSet{},
	}
}

// FeeRate is the client fee rate when set, otherwise the default.
func (c InvoiceTransformerConfig) FeeRate() decimal.Decimal {
	if c.FlexFeeRate.Valid {
		return c.FlexFeeRate.Decimal
	}
	return c.DefaultFlexFeeRate
}

// IsMicro reports whether any of the given facility identifiers is flagged.
func (c InvoiceTransformerConfig) IsMicro(identifiers ...string) bool {
	for _, id := range identifiers {
		if id != "" && c.MicroFacilities.HasFold(id) {
			return true
		}
	}
	return false
}

// =============================================================================
// INCENTIVE RULES
// =============================================================================

// ShiftFilter restricts an incentive rule to a shift classification.
type ShiftFilter string

const (
	ShiftAny   ShiftFilter = ""
	ShiftDay   ShiftFilter = "Day"
	ShiftNight ShiftFilter = "Night"
	ShiftBoth  ShiftFilter = "Both"
)

// Accepts reports whether the filter admits the classification.
func (f ShiftFilter) Accepts(shift timecard.ShiftType) bool {
	switch f {
	case ShiftAny, ShiftBoth:
		return true
	default:
		return string(f) == string(shift)
	}
}

// TimeRange is a minute-of-day window [Start, End). End < Start wraps past
// midnight; Start == End admits nothing.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether minute falls inside the window.
func (r TimeRange) Contains(minute int) bool {
	if r.Start <= r.End {
		return minute >= r.Start && minute < r.End
	}
	return minute >= r.Start || minute < r.End
}

// IncentiveRule grants Amount when every set predicate holds for a punch.
// A rule with no day, shift or time predicate matches every punch in its
// company and cost-center scope.
type IncentiveRule struct {
	ID          string                `json:"id"`
	Company     string                `json:"company"`
	CostCenters StringSet             `json:"cost_centers"`
	DaysOfWeek  map[time.Weekday]bool `json:"days_of_week,omitempty"`
	ShiftType   ShiftFilter           `json:"shift_type,omitempty"`
	TimeRange   *TimeRange            `json:"time_range,omitempty"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description"`
	Active      bool                  `json:"active"`
}

// =============================================================================
// STRING SET
// =============================================================================

// StringSet is an unordered set of strings.
type StringSet map[string]struct{}

// NewStringSet builds a set, ignoring blank values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Has reports exact membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// HasFold reports case-insensitive membership.
func (s StringSet) HasFold(v string) bool {
	if s.Has(v) {
		return true
	}
	for k := range s {
		if strings.EqualFold(k, v) {
			return true
		}
	}
	return false
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON reads an array of strings.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
