/*
lenient.go - Best-effort coercion of raw cell values

PURPOSE:
  One bad cell must never abort a batch. Every conversion here returns a
  zero value instead of an error:
    - String:    nil -> "", numbers without trailing zeros, dates ISO
    - Decimal:   "1,234.50", "$12", 12.5 -> decimal; garbage -> 0
    - Date:      ISO, US, spreadsheet serials, time.Time -> calendar date;
                 garbage -> zero time
    - ClockTime: "7:05", "07:05:30", "7:05 PM", "0705", 0.2951 -> "HH:MM";
                 garbage -> ""

SPREADSHEET SERIALS:
  XLSX cells read raw carry dates as serial numbers (days since 1899-12-30)
  and times as day fractions. excelize converts the serials.
*/
package timecard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// String renders any raw value as trimmed text.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	case decimal.Decimal:
		return t.String()
	default:
		return ""
	}
}

// Verbatim renders a raw value as text without trimming strings. Used for
// identifiers that must pass through unchanged.
func Verbatim(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return String(v)
}

// Decimal parses a numeric cell; returns decimal.Zero when it cannot.
func Decimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case string:
		s := strings.TrimSpace(t)
		s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
		if s == "" {
			return decimal.Zero
		}
		// Accounting negatives: (12.50)
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			s = "-" + strings.Trim(s, "()")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"1-2-2006",
	"2006/1/2",
	"20060102",
	"Jan 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
}

// Date parses a date cell and returns the calendar date at midnight UTC.
// The zero time means "unparseable".
func Date(v any) time.Time {
	switch t := v.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		if t.IsZero() {
			return t
		}
		return calendarDate(t)
	case float64:
		return serialDate(t)
	case int:
		return serialDate(float64(t))
	case int64:
		return serialDate(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return calendarDate(parsed)
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f)
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// serialDate converts a spreadsheet serial; values outside the plausible
// range (roughly years 1900-9999) are rejected.
func serialDate(f float64) time.Time {
	if f < 1 || f > 2958465 {
		return time.Time{}
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}
	}
	return calendarDate(t)
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LaterCalendarDate reports a > b by calendar date; zero dates never compare later.
func LaterCalendarDate(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return calendarDate(a).After(calendarDate(b))
}

var (
	clockRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?\s*([AaPp]\.?[Mm]\.?)?`)
	militaryRe = regexp.MustCompile(`^(\d{1,2})(\d{2})$`)
)

// ClockTime normalizes a time-of-day cell to 24-hour "HH:MM".
// Seconds are truncated. Returns "" when the value is not a time.
func ClockTime(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("15:04")
	case float64:
		return fractionClock(t)
	case float32:
		return fractionClock(float64(t))
	case int, int64:
		return ""
	case string:
		return parseClockString(strings.TrimSpace(t))
	default:
		return ""
	}
}

func parseClockString(s string) string {
	if s == "" {
		return ""
	}
	if m := clockRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if suffix := strings.ToUpper(strings.ReplaceAll(m[4], ".", "")); suffix != "" {
			if hour < 1 || hour > 12 {
				return ""
			}
			if suffix == "AM" && hour == 12 {
				hour = 0
			} else if suffix == "PM" && hour != 12 {
				hour += 12
			}
		}
		return formatClock(hour, minute)
	}
	if m := militaryRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return formatClock(hour, minute)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		return fractionClock(f)
	}
	return ""
}

// fractionClock reads the time part of a spreadsheet value (fraction of a day).
func fractionClock(f float64) string {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	_, frac := math.Modf(f)
	minutes := int(math.Round(frac * 24 * 60))
	if minutes == 24*60 {
		minutes = 0
	}
	return formatClock(minutes/60, minutes%60)
}

func formatClock(hour, minute int) string {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// MinuteOfDay converts "HH:MM" (or anything ClockTime accepts) to minutes
// since midnight.
func MinuteOfDay(v any) (int, bool) {
	hhmm := ClockTime(v)
	if hhmm == "" {
		return 0, false
	}
	hour, _ := strconv.Atoi(hhmm[:2])
	minute, _ := strconv.Atoi(hhmm[3:])
	return hour*60 + minute, true
}

// Round2 rounds to two decimals, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
