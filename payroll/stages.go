/*
stages.go - Payroll pipeline stages

PURPOSE:
  Each stage is a named function over a slice of Lines that returns a new
  slice. Stages never mutate their input. Filtering stages also return the
  rejections for the rows they drop.

ORDER (fixed; later stages read fields set by earlier ones):
   1. Stack                  timecards then manual adds
   2. AttachInternalIDs      crosswalk lookup
   3. DropMissingInternalID
   4. DropMissingClockGUID
   5. LunchDeduction         "yes" -> configured hours
   6. PayHours               round2(raw - lunch), not clamped
   7. Classify               Night iff out date > in date
   8. AssignTimecardIDs      clock GUID verbatim
   9. FormatTimes            HH:MM
  10. StampApprover
      AnnotateIncentives
  11. FormatOutput           sanitized IDs, blanks
*/
package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/incentive"
	"github.com/warp/flexpay-engine/timecard"
)

// Stage names used in rejections and logs.
const (
	StageStack                 = "stack"
	StageAttachInternalIDs     = "attach_internal_ids"
	StageDropMissingInternalID = "drop_missing_internal_id"
	StageDropMissingClockGUID  = "drop_missing_clock_guid"
	StageLunchDeduction        = "lunch_deduction"
	StagePayHours              = "pay_hours"
	StageClassify              = "classify"
	StageAssignTimecardIDs     = "assign_timecard_ids"
	StageFormatTimes           = "format_times"
	StageStampApprover         = "stamp_approver"
	StageAnnotateIncentives    = "annotate_incentives"
	StageFormatOutput          = "format_output"
)

// Line is a punch moving through the pipeline together with the fields the
// stages compute.
type Line struct {
	timecard.Punch

	LunchDeduction decimal.Decimal
	PayHours       decimal.Decimal
	Shift          timecard.ShiftType
	PayRate        decimal.Decimal
	PayCode        string
	TimecardID     string
	InTime         string
	OutTime        string
	Approver       string
	Incentive      incentive.Outcome
}

func mapLines(lines []Line, fn func(Line) Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = fn(l)
	}
	return out
}

func reject(l Line, stage string, reason timecard.RejectReason) timecard.Rejection {
	return timecard.Rejection{
		Stage:      stage,
		Reason:     reason,
		Source:     l.Source,
		RowNumber:  l.RowNumber,
		EmployeeID: l.ExternalEmployeeID,
		ClockGUID:  l.ClockGUID,
	}
}

// Stack concatenates timecards and manual adds, preserving order. No dedup.
func Stack(timecards, manualAdds []timecard.Punch) []Line {
	out := make([]Line, 0, len(timecards)+len(manualAdds))
	for _, p := range timecards {
		out = append(out, Line{Punch: p})
	}
	for _, p := range manualAdds {
		out = append(out, Line{Punch: p})
	}
	return out
}

// AttachInternalIDs resolves each external ID; misses keep an empty ID.
func AttachInternalIDs(lines []Line, table *crosswalk.Table) []Line {
	return mapLines(lines, func(l Line) Line {
		id, _ := table.Resolve(l.ExternalEmployeeID)
		l.InternalEmployeeID = id
		return l
	})
}

// DropMissingInternalID removes rows without an internal employee ID.
func DropMissingInternalID(lines []Line) ([]Line, []timecard.Rejection) {
	var kept []Line
	var rejected []timecard.Rejection
	for _, l := range lines {
		if strings.TrimSpace(l.InternalEmployeeID) == "" {
			rejected = append(rejected, reject(l, StageDropMissingInternalID, timecard.RejectNoInternalID))
			continue
		}
		kept = append(kept, l)
	}
	return kept, rejected
}

// DropMissingClockGUID removes rows without a clocking identifier.
func DropMissingClockGUID(lines []Line) ([]Line, []timecard.Rejection) {
	var kept []Line
	var rejected []timecard.Rejection
	for _, l := range lines {
		if strings.TrimSpace(l.ClockGUID) == "" {
			rejected = append(rejected, reject(l, StageDropMissingClockGUID, timecard.RejectNoClockGUID))
			continue
		}
		kept = append(kept, l)
	}
	return kept, rejected
}

// LunchTaken reports whether a lunch-taken indicator means "yes".
func LunchTaken(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "yes")
}

// LunchDeduction sets the deduction to hours when lunch was taken, else 0.
func LunchDeduction(lines []Line, hours decimal.Decimal) []Line {
	return mapLines(lines, func(l Line) Line {
		if LunchTaken(l.LunchTaken) {
			l.LunchDeduction = hours
		} else {
			l.LunchDeduction = decimal.Zero
		}
		return l
	})
}

// PayHours computes round2(raw - lunch). Negative results are kept.
func PayHours(lines []Line) []Line {
	return mapLines(lines, func(l Line) Line {
		l.PayHours = timecard.Round2(l.RawHours.Sub(l.LunchDeduction))
		return l
	})
}

// ClassifyShift is Night iff the out date is a later calendar date than the
// in date. Clock times play no part.
func ClassifyShift(inDate, outDate time.Time) timecard.ShiftType {
	if timecard.LaterCalendarDate(outDate, inDate) {
		return timecard.ShiftNight
	}
	return timecard.ShiftDay
}

// Classify assigns shift, pay rate and pay code.
func Classify(lines []Line, cfg config.TransformerConfig) []Line {
	return mapLines(lines, func(l Line) Line {
		l.Shift = ClassifyShift(l.InDate, l.OutDate)
		l.PayRate, l.PayCode = cfg.RateFor(l.Shift)
		return l
	})
}

// AssignTimecardIDs copies the clock GUID verbatim.
func AssignTimecardIDs(lines []Line) []Line {
	return mapLines(lines, func(l Line) Line {
		l.TimecardID = l.ClockGUID
		return l
	})
}

// FormatTimes normalizes in and out times to HH:MM.
func FormatTimes(lines []Line) []Line {
	return mapLines(lines, func(l Line) Line {
		l.InTime = timecard.ClockTime(l.Punch.InTime)
		l.OutTime = timecard.ClockTime(l.Punch.OutTime)
		return l
	})
}

// StampApprover sets the approver on every line.
func StampApprover(lines []Line, approver string) []Line {
	return mapLines(lines, func(l Line) Line {
		l.Approver = approver
		return l
	})
}

// AnnotateIncentives evaluates the incentive rules for every line.
func AnnotateIncentives(lines []Line, engine *incentive.Engine, runDate time.Time) []Line {
	return mapLines(lines, func(l Line) Line {
		l.Incentive = engine.Evaluate(incentive.Subject{
			Company:    l.Company,
			CostCenter: l.CostCenter,
			InDate:     l.InDate,
			InTime:     l.InTime,
			Shift:      l.Shift,
		}, runDate)
		return l
	})
}

// FormatOutput renders the final payroll records.
func FormatOutput(lines []Line) []Record {
	out := make([]Record, 0, len(lines))
	for _, l := range lines {
		total := l.Incentive.Total
		out = append(out, Record{
			EmployeeID:           SanitizeEmployeeID(l.InternalEmployeeID),
			PayCode:              l.PayCode,
			PayHours:             l.PayHours.StringFixed(2),
			PayRate:              l.PayRate.StringFixed(2),
			TimecardID:           l.TimecardID,
			PersonName:           orBlank(l.PersonName()),
			InDate:               FormatDate(l.InDate),
			InTime:               l.InTime,
			OutDate:              FormatDate(l.OutDate),
			OutTime:              l.OutTime,
			Approver:             l.Approver,
			Company:              orBlank(l.Company),
			CostCenter:           orBlank(l.CostCenter),
			Department:           orBlank(l.Department),
			ShiftType:            string(l.Shift),
			IncentiveAmount:      total.StringFixed(2),
			IncentiveDescription: orBlank(l.Incentive.Description()),
			JobCode:              Blank,
			Comments:             Blank,
		})
	}
	return out
}
