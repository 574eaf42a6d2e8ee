/*
Package payroll turns client timekeeping extracts into payroll lines.

PURPOSE:
  Transform runs the stages in stages.go over one in-memory batch: the
  client's timecard punches plus manual-add corrections, matched to internal
  employees through the crosswalk and priced with the client's rates.

FAILURE SEMANTICS:
  - Bad cells never fail the run; they coerce to zero values
  - Rows without a crosswalk match or clock GUID are dropped and reported
    in Result.Rejections (the output rows are the same either way)
  - A missing timecard extract or crosswalk is structural and returns a
    *timecard.TransformError

EXAMPLE:
  res, err := payroll.Transform(payroll.Input{
      Timecards: timecardRows,
      ManualAdds: manualRows,
      Crosswalk: crosswalk.New(entries),
  }, resolved.Payroll, resolved.Rules, payroll.Options{Logger: log})

  csvText, _ := output.PayrollCSV(res.Records)
*/
package payroll

import (
	"time"

	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/incentive"
	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

// Input is one batch of canonical rows. Timecards is required; a nil slice
// means the extract was not supplied. ManualAdds may be nil.
type Input struct {
	Timecards  []timecard.Row
	ManualAdds []timecard.Row
	Crosswalk  *crosswalk.Table
}

// Options tune a single run.
type Options struct {
	// RunDate gates incentive validity; zero means today.
	RunDate time.Time
	Logger  *zap.Logger
}

// Stats summarizes a run.
type Stats struct {
	TimecardRows   int `json:"timecard_rows"`
	ManualAddRows  int `json:"manual_add_rows"`
	OutputRows     int `json:"output_rows"`
	RejectedRows   int `json:"rejected_rows"`
	NightShifts    int `json:"night_shifts"`
	IncentiveLines int `json:"incentive_lines"`
	NegativeHours  int `json:"negative_hours"`

	// BlankEmployeeIDs counts rows whose internal ID was only role tokens.
	BlankEmployeeIDs int `json:"blank_employee_ids"`
}

// Result is the output of a payroll run.
type Result struct {
	Records    []Record             `json:"records"`
	Rejections []timecard.Rejection `json:"rejections"`
	Stats      Stats                `json:"stats"`
}

// Transform runs the payroll pipeline.
func Transform(in Input, cfg config.TransformerConfig, rules []config.IncentiveRule, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if in.Timecards == nil {
		return nil, timecard.Fail(StageStack, "timecard extract is required", timecard.ErrMissingInput)
	}
	if in.Crosswalk == nil {
		return nil, timecard.Fail(StageAttachInternalIDs, "employee crosswalk is required", timecard.ErrMissingCrosswalk)
	}
	runDate := opts.RunDate
	if runDate.IsZero() {
		runDate = time.Now()
	}

	res := &Result{Rejections: []timecard.Rejection{}}
	res.Stats.TimecardRows = len(in.Timecards)
	res.Stats.ManualAddRows = len(in.ManualAdds)

	stageDone := func(stage string, lines []Line) []Line {
		log.Debug("stage complete", zap.String("stage", stage), zap.Int("rows", len(lines)))
		return lines
	}

	lines := stageDone(StageStack, Stack(
		timecard.PunchesFromRows(in.Timecards, timecard.SourceTimecard),
		timecard.PunchesFromRows(in.ManualAdds, timecard.SourceManualAdd),
	))
	lines = stageDone(StageAttachInternalIDs, AttachInternalIDs(lines, in.Crosswalk))

	var dropped []timecard.Rejection
	lines, dropped = DropMissingInternalID(lines)
	res.Rejections = append(res.Rejections, dropped...)
	lines = stageDone(StageDropMissingInternalID, lines)
	lines, dropped = DropMissingClockGUID(lines)
	res.Rejections = append(res.Rejections, dropped...)
	lines = stageDone(StageDropMissingClockGUID, lines)

	lines = stageDone(StageLunchDeduction, LunchDeduction(lines, cfg.LunchTimeHours))
	lines = stageDone(StagePayHours, PayHours(lines))
	lines = stageDone(StageClassify, Classify(lines, cfg))
	lines = stageDone(StageAssignTimecardIDs, AssignTimecardIDs(lines))
	lines = stageDone(StageFormatTimes, FormatTimes(lines))
	lines = stageDone(StageStampApprover, StampApprover(lines, cfg.ApproverName))
	lines = stageDone(StageAnnotateIncentives, AnnotateIncentives(lines, incentive.New(rules, cfg), runDate))

	for _, l := range lines {
		if l.PayHours.IsNegative() {
			res.Stats.NegativeHours++
			log.Warn("negative pay hours",
				zap.String("timecard_id", l.TimecardID),
				zap.String("pay_hours", l.PayHours.StringFixed(2)))
		}
		if l.Shift == timecard.ShiftNight {
			res.Stats.NightShifts++
		}
		if !l.Incentive.Total.IsZero() {
			res.Stats.IncentiveLines++
		}
	}

	res.Records = FormatOutput(lines)
	for _, r := range res.Records {
		if r.EmployeeID == "" {
			res.Stats.BlankEmployeeIDs++
			log.Warn("employee ID empty after sanitizing",
				zap.String("timecard_id", r.TimecardID))
		}
	}
	log.Debug("stage complete", zap.String("stage", StageFormatOutput), zap.Int("rows", len(res.Records)))
	res.Stats.OutputRows = len(res.Records)
	res.Stats.RejectedRows = len(res.Rejections)

	if len(res.Rejections) > 0 {
		counts := timecard.CountByReason(res.Rejections)
		log.Info("payroll rows rejected",
			zap.Int("no_internal_id", counts[timecard.RejectNoInternalID]),
			zap.Int("no_clock_guid", counts[timecard.RejectNoClockGUID]))
	}
	log.Info("payroll transform complete",
		zap.Int("input_rows", res.Stats.TimecardRows+res.Stats.ManualAddRows),
		zap.Int("output_rows", res.Stats.OutputRows))

	return res, nil
}
