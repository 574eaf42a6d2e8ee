/*
factory.go - Persisted JSON to typed configuration

PURPOSE:
  Client configuration is stored as JSON so operators can edit it without
  code changes. The factory converts those documents into the typed structs
  in types.go and fills every absent field with its default.

JSON SCHEMA:
  {
    "payroll": {
      "day_pay_rate": 58, "night_pay_rate": 63,
      "day_pay_code": "FXDY", "night_pay_code": "FXNT",
      "approver_name": "Jennifer Devine",
      "lunch_time_hours": 0.5,
      "incentives_enabled": true,
      "incentive_valid_through": "2026-03-31"
    },
    "invoice": {
      "flex_fee_rate": 27.5,
      "default_flex_fee_rate": 25,
      "invoice_number_prefix": "UOFL-",
      "micro_invoice_number_prefix": "UOFLM-",
      "number_width": 4,
      "micro_facilities": ["MH01", "South Micro Hospital"]
    },
    "field_map": {"EmployeeID": "Badge Number", "ClockGUID": "Clocking GUID"}
  }

  Incentive rule:
  {
    "id": "icu-nights", "company": "UofL", "cost_centers": ["ICU"],
    "days_of_week": [0, 6], "shift_type": "Night",
    "time_range": {"start": "19:00", "end": "07:00"},
    "amount": 2.0, "description": "ICU night differential", "active": true
  }
*/
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/flexpay-engine/timecard"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ClientConfigJSON is the persisted representation of a client's configuration.
type ClientConfigJSON struct {
	Payroll  *PayrollJSON      `json:"payroll,omitempty" yaml:"payroll,omitempty"`
	Invoice  *InvoiceJSON      `json:"invoice,omitempty" yaml:"invoice,omitempty"`
	FieldMap map[string]string `json:"field_map,omitempty" yaml:"field_map,omitempty"`
}

// PayrollJSON holds optional payroll overrides.
type PayrollJSON struct {
	DayPayRate            *decimal.Decimal `json:"day_pay_rate,omitempty" yaml:"day_pay_rate,omitempty"`
	NightPayRate          *decimal.Decimal `json:"night_pay_rate,omitempty" yaml:"night_pay_rate,omitempty"`
	DayPayCode            *string          `json:"day_pay_code,omitempty" yaml:"day_pay_code,omitempty"`
	NightPayCode          *string          `json:"night_pay_code,omitempty" yaml:"night_pay_code,omitempty"`
	ApproverName          *string          `json:"approver_name,omitempty" yaml:"approver_name,omitempty"`
	LunchTimeHours        *decimal.Decimal `json:"lunch_time_hours,omitempty" yaml:"lunch_time_hours,omitempty"`
	IncentivesEnabled     *bool            `json:"incentives_enabled,omitempty" yaml:"incentives_enabled,omitempty"`
	IncentiveValidThrough *string          `json:"incentive_valid_through,omitempty" yaml:"incentive_valid_through,omitempty"`
}

// InvoiceJSON holds optional invoice overrides.
type InvoiceJSON struct {
	FlexFeeRate              *decimal.Decimal `json:"flex_fee_rate,omitempty" yaml:"flex_fee_rate,omitempty"`
	DefaultFlexFeeRate       *decimal.Decimal `json:"default_flex_fee_rate,omitempty" yaml:"default_flex_fee_rate,omitempty"`
	InvoiceNumberPrefix      *string          `json:"invoice_number_prefix,omitempty" yaml:"invoice_number_prefix,omitempty"`
	MicroInvoiceNumberPrefix *string          `json:"micro_invoice_number_prefix,omitempty" yaml:"micro_invoice_number_prefix,omitempty"`
	NumberWidth              *int             `json:"number_width,omitempty" yaml:"number_width,omitempty"`
	MicroFacilities          []string         `json:"micro_facilities,omitempty" yaml:"micro_facilities,omitempty"`
}

// IncentiveRuleJSON is the persisted representation of one incentive rule.
type IncentiveRuleJSON struct {
	ID          string          `json:"id,omitempty" yaml:"id,omitempty"`
	Company     string          `json:"company" yaml:"company"`
	CostCenters []string        `json:"cost_centers" yaml:"cost_centers"`
	DaysOfWeek  []int           `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	ShiftType   string          `json:"shift_type,omitempty" yaml:"shift_type,omitempty"`
	TimeRange   *TimeRangeJSON  `json:"time_range,omitempty" yaml:"time_range,omitempty"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Active      *bool           `json:"active,omitempty" yaml:"active,omitempty"`
}

// TimeRangeJSON uses clock strings ("19:00") for readability.
type TimeRangeJSON struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON documents into typed configuration.
type Factory struct{}

// NewFactory creates a new configuration factory.
func NewFactory() *Factory {
	return &Factory{}
}

// ParseClientConfig parses a client document into payroll and invoice config.
func (f *Factory) ParseClientConfig(jsonStr string) (TransformerConfig, InvoiceTransformerConfig, map[string]string, error) {
	var cj ClientConfigJSON
	if strings.TrimSpace(jsonStr) != "" {
		if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
			return TransformerConfig{}, InvoiceTransformerConfig{}, nil, fmt.Errorf("failed to parse client config JSON: %w", err)
		}
	}
	return f.FromJSON(cj)
}

// FromJSON applies a decoded document on top of the defaults.
func (f *Factory) FromJSON(cj ClientConfigJSON) (TransformerConfig, InvoiceTransformerConfig, map[string]string, error) {
	payroll := DefaultTransformerConfig()
	invoice := DefaultInvoiceConfig()

	if err := checkNonNegative(cj); err != nil {
		return TransformerConfig{}, InvoiceTransformerConfig{}, nil, err
	}

	if p := cj.Payroll; p != nil {
		if p.DayPayRate != nil {
			payroll.DayPayRate = *p.DayPayRate
		}
		if p.NightPayRate != nil {
			payroll.NightPayRate = *p.NightPayRate
		}
		if p.DayPayCode != nil {
			payroll.DayPayCode = strings.TrimSpace(*p.DayPayCode)
		}
		if p.NightPayCode != nil {
			payroll.NightPayCode = strings.TrimSpace(*p.NightPayCode)
		}
		if p.ApproverName != nil {
			payroll.ApproverName = strings.TrimSpace(*p.ApproverName)
		}
		if p.LunchTimeHours != nil {
			payroll.LunchTimeHours = *p.LunchTimeHours
		}
		if p.IncentivesEnabled != nil {
			payroll.IncentivesEnabled = *p.IncentivesEnabled
		}
		if p.IncentiveValidThrough != nil && strings.TrimSpace(*p.IncentiveValidThrough) != "" {
			through := timecard.Date(*p.IncentiveValidThrough)
			if through.IsZero() {
				return TransformerConfig{}, InvoiceTransformerConfig{}, nil, fmt.Errorf("invalid incentive_valid_through %q", *p.IncentiveValidThrough)
			}
			payroll.IncentiveValidThrough = &through
		}
	}

	if inv := cj.Invoice; inv != nil {
		if inv.FlexFeeRate != nil {
			invoice.FlexFeeRate = decimal.NewNullDecimal(*inv.FlexFeeRate)
		}
		if inv.DefaultFlexFeeRate != nil {
			invoice.DefaultFlexFeeRate = *inv.DefaultFlexFeeRate
		}
		if inv.InvoiceNumberPrefix != nil {
			invoice.InvoiceNumberPrefix = *inv.InvoiceNumberPrefix
		}
		if inv.MicroInvoiceNumberPrefix != nil {
			invoice.MicroInvoiceNumberPrefix = *inv.MicroInvoiceNumberPrefix
		}
		if inv.NumberWidth != nil {
			if *inv.NumberWidth < 0 || *inv.NumberWidth > 12 {
				return TransformerConfig{}, InvoiceTransformerConfig{}, nil, fmt.Errorf("number_width out of range: %d", *inv.NumberWidth)
			}
			invoice.NumberWidth = *inv.NumberWidth
		}
		if len(inv.MicroFacilities) > 0 {
			invoice.MicroFacilities = NewStringSet(inv.MicroFacilities...)
		}
	}

	return payroll, invoice, cj.FieldMap, nil
}

// checkNonNegative rejects negative rates, fees and lunch hours.
func checkNonNegative(cj ClientConfigJSON) error {
	type field struct {
		name  string
		value *decimal.Decimal
	}
	var fields []field
	if p := cj.Payroll; p != nil {
		fields = append(fields,
			field{"day_pay_rate", p.DayPayRate},
			field{"night_pay_rate", p.NightPayRate},
			field{"lunch_time_hours", p.LunchTimeHours})
	}
	if inv := cj.Invoice; inv != nil {
		fields = append(fields,
			field{"flex_fee_rate", inv.FlexFeeRate},
			field{"default_flex_fee_rate", inv.DefaultFlexFeeRate})
	}
	for _, f := range fields {
		if f.value != nil && f.value.IsNegative() {
			return fmt.Errorf("%s must not be negative, got %s", f.name, f.value)
		}
	}
	return nil
}

// ParseIncentiveRule parses one persisted rule.
func (f *Factory) ParseIncentiveRule(jsonStr string) (IncentiveRule, error) {
	var rj IncentiveRuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return IncentiveRule{}, fmt.Errorf("failed to parse incentive rule JSON: %w", err)
	}
	return f.RuleFromJSON(rj)
}

// RuleFromJSON validates a decoded rule and converts it.
func (f *Factory) RuleFromJSON(rj IncentiveRuleJSON) (IncentiveRule, error) {
	rule := IncentiveRule{
		ID:          rj.ID,
		Company:     strings.TrimSpace(rj.Company),
		CostCenters: NewStringSet(rj.CostCenters...),
		Amount:      rj.Amount,
		Description: strings.TrimSpace(rj.Description),
		Active:      true,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rj.Active != nil {
		rule.Active = *rj.Active
	}
	if rule.Company == "" {
		return IncentiveRule{}, fmt.Errorf("incentive rule %s: company is required", rule.ID)
	}
	if len(rule.CostCenters) == 0 {
		return IncentiveRule{}, fmt.Errorf("incentive rule %s: at least one cost center is required", rule.ID)
	}

	if len(rj.DaysOfWeek) > 0 {
		rule.DaysOfWeek = make(map[time.Weekday]bool, len(rj.DaysOfWeek))
		for _, d := range rj.DaysOfWeek {
			if d < 0 || d > 6 {
				return IncentiveRule{}, fmt.Errorf("incentive rule %s: day of week %d out of range 0..6", rule.ID, d)
			}
			rule.DaysOfWeek[time.Weekday(d)] = true
		}
	}

	shift, err := parseShiftFilter(rj.ShiftType)
	if err != nil {
		return IncentiveRule{}, fmt.Errorf("incentive rule %s: %w", rule.ID, err)
	}
	rule.ShiftType = shift

	if rj.TimeRange != nil {
		start, okStart := timecard.MinuteOfDay(rj.TimeRange.Start)
		end, okEnd := timecard.MinuteOfDay(rj.TimeRange.End)
		if !okStart || !okEnd {
			return IncentiveRule{}, fmt.Errorf("incentive rule %s: invalid time range %q-%q", rule.ID, rj.TimeRange.Start, rj.TimeRange.End)
		}
		rule.TimeRange = &TimeRange{Start: start, End: end}
	}

	return rule, nil
}

// RuleToJSON is the inverse of RuleFromJSON, used when persisting rules.
func RuleToJSON(rule IncentiveRule) IncentiveRuleJSON {
	active := rule.Active
	rj := IncentiveRuleJSON{
		ID:          rule.ID,
		Company:     rule.Company,
		CostCenters: rule.CostCenters.Sorted(),
		ShiftType:   string(rule.ShiftType),
		Amount:      rule.Amount,
		Description: rule.Description,
		Active:      &active,
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if rule.DaysOfWeek[d] {
			rj.DaysOfWeek = append(rj.DaysOfWeek, int(d))
		}
	}
	if rule.TimeRange != nil {
		rj.TimeRange = &TimeRangeJSON{
			Start: fmt.Sprintf("%02d:%02d", rule.TimeRange.Start/60, rule.TimeRange.Start%60),
			End:   fmt.Sprintf("%02d:%02d", rule.TimeRange.End/60, rule.TimeRange.End%60),
		}
	}
	return rj
}

func parseShiftFilter(s string) (ShiftFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ShiftAny, nil
	case "day":
		return ShiftDay, nil
	case "night":
		return ShiftNight, nil
	case "both", "any":
		return ShiftBoth, nil
	default:
		return "", fmt.Errorf("unknown shift type %q", s)
	}
}
