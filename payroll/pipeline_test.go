/*
pipeline_test.go - Tests for the payroll pipeline

Tests for:
- Pay hours and lunch deduction
- Night classification across midnight
- Crosswalk and clock GUID filtering with rejections
- Timecard ID passthrough and ID sanitizing
- Incentive annotation
- Structural errors
*/
package payroll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/output"
	"github.com/warp/flexpay-engine/payroll"
	"github.com/warp/flexpay-engine/timecard"
)

var runDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func punchRow(empID, guid string) timecard.Row {
	return timecard.Row{
		timecard.FieldEmployeeID: empID,
		timecard.FieldFirstName:  "Jane",
		timecard.FieldLastName:   "Doe",
		timecard.FieldInDate:     "2025-12-30",
		timecard.FieldInTime:     "7:00",
		timecard.FieldOutDate:    "2025-12-30",
		timecard.FieldOutTime:    "19:30:00",
		timecard.FieldHours:      "12.5",
		timecard.FieldCompany:    "UofL",
		timecard.FieldCostCenter: "ICU",
		timecard.FieldDepartment: "Nursing",
		timecard.FieldLunchTaken: "No",
		timecard.FieldClockGUID:  guid,
	}
}

func xwalk() *crosswalk.Table {
	return crosswalk.New([]crosswalk.Entry{
		{ClientEmployeeID: "1001", InternalEmployeeID: "E1001NU"},
		{ClientEmployeeID: "1002", InternalEmployeeID: "E1002HS"},
		{ClientEmployeeID: "1003", InternalEmployeeID: "E1003"},
	})
}

func run(t *testing.T, in payroll.Input, rules ...config.IncentiveRule) *payroll.Result {
	t.Helper()
	if in.Crosswalk == nil {
		in.Crosswalk = xwalk()
	}
	res, err := payroll.Transform(in, config.DefaultTransformerConfig(), rules, payroll.Options{RunDate: runDate})
	require.NoError(t, err)
	return res
}

func TestTransform_LunchDeduction_Scenario(t *testing.T) {
	// GIVEN: 12.5 raw hours with lunch taken "Yes"
	row := punchRow("1001", "guid-1")
	row[timecard.FieldLunchTaken] = "Yes"

	// WHEN: transforming with the default 0.5h deduction
	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	// THEN: pay hours are 12.00
	require.Len(t, res.Records, 1)
	assert.Equal(t, "12.00", res.Records[0].PayHours)
}

func TestTransform_LunchFlagVariants(t *testing.T) {
	cases := map[string]string{
		" yes ": "12.00",
		"YES":   "12.00",
		"Y":     "12.50",
		"":      "12.50",
		"No":    "12.50",
	}
	for flag, want := range cases {
		row := punchRow("1001", "g")
		row[timecard.FieldLunchTaken] = flag
		res := run(t, payroll.Input{Timecards: []timecard.Row{row}})
		assert.Equal(t, want, res.Records[0].PayHours, "flag %q", flag)
	}
}

func TestTransform_PayHoursRounding(t *testing.T) {
	row := punchRow("1001", "g")
	row[timecard.FieldHours] = "7.125"

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	assert.Equal(t, "7.13", res.Records[0].PayHours)
}

func TestTransform_NegativeHoursNotClamped(t *testing.T) {
	row := punchRow("1001", "g")
	row[timecard.FieldHours] = "0.25"
	row[timecard.FieldLunchTaken] = "yes"

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	assert.Equal(t, "-0.25", res.Records[0].PayHours)
	assert.Equal(t, 1, res.Stats.NegativeHours)
}

func TestTransform_NightAcrossMidnight_Scenario(t *testing.T) {
	// GIVEN: a punch from 2025-12-31 to 2026-01-01
	row := punchRow("1001", "g")
	row[timecard.FieldInDate] = "2025-12-31"
	row[timecard.FieldInTime] = "19:00"
	row[timecard.FieldOutDate] = "2026-01-01"
	row[timecard.FieldOutTime] = "07:30"

	// WHEN
	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	// THEN: Night, FXNT, rate 63
	r := res.Records[0]
	assert.Equal(t, "Night", r.ShiftType)
	assert.Equal(t, "FXNT", r.PayCode)
	assert.Equal(t, "63.00", r.PayRate)
	assert.Equal(t, "12/31/2025", r.InDate)
	assert.Equal(t, "01/01/2026", r.OutDate)
}

func TestTransform_ClassificationIgnoresClockTimes(t *testing.T) {
	// A late evening punch that ends before midnight is still Day.
	row := punchRow("1001", "g")
	row[timecard.FieldInTime] = "18:00"
	row[timecard.FieldOutTime] = "23:59"

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	assert.Equal(t, "Day", res.Records[0].ShiftType)
	assert.Equal(t, "FXDY", res.Records[0].PayCode)
	assert.Equal(t, "58.00", res.Records[0].PayRate)
}

func TestTransform_MissingDateIsDay(t *testing.T) {
	row := punchRow("1001", "g")
	row[timecard.FieldInDate] = "garbage"
	row[timecard.FieldOutDate] = "2026-01-01"

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "Day", res.Records[0].ShiftType)
	assert.Equal(t, "", res.Records[0].InDate)
}

func TestTransform_ClassificationIsIdempotent(t *testing.T) {
	row := punchRow("1001", "g")
	row[timecard.FieldOutDate] = "2025-12-31"
	in := payroll.Input{Timecards: []timecard.Row{row}}

	first := run(t, in)
	second := run(t, in)

	assert.Equal(t, first.Records, second.Records)
}

func TestTransform_CrosswalkMiss_Scenario(t *testing.T) {
	// GIVEN: one employee absent from the crosswalk
	rows := []timecard.Row{punchRow("1001", "g1"), punchRow("9999", "g2"), punchRow("1003", "g3")}

	// WHEN
	res := run(t, payroll.Input{Timecards: rows})

	// THEN: the unmatched row is excluded and reported
	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.NotEqual(t, "g2", r.TimecardID)
	}
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, timecard.RejectNoInternalID, res.Rejections[0].Reason)
	assert.Equal(t, "9999", res.Rejections[0].EmployeeID)
	assert.Equal(t, 2, res.Rejections[0].RowNumber)
}

func TestTransform_MissingGUIDDropped(t *testing.T) {
	rows := []timecard.Row{punchRow("1001", ""), punchRow("1002", "  "), punchRow("1003", "g3")}

	res := run(t, payroll.Input{Timecards: rows})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "g3", res.Records[0].TimecardID)
	assert.Equal(t, 2, timecard.CountByReason(res.Rejections)[timecard.RejectNoClockGUID])
	assert.Equal(t, 2, res.Stats.RejectedRows)
}

func TestTransform_OutputNeverExceedsEligible(t *testing.T) {
	rows := []timecard.Row{
		punchRow("1001", "a"), punchRow("1001", ""), punchRow("nope", "b"),
		punchRow("1002", "c"), punchRow("", "d"),
	}
	eligible := 2

	res := run(t, payroll.Input{Timecards: rows})

	assert.LessOrEqual(t, len(res.Records), eligible)
	assert.Equal(t, len(rows), len(res.Records)+len(res.Rejections))
}

func TestTransform_TimecardIDIsGUIDVerbatim(t *testing.T) {
	guid := " {8F2A-11aa-XX} "
	row := punchRow("1001", guid)

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	// Surrounding spaces are part of the GUID.
	require.Len(t, res.Records, 1)
	assert.Equal(t, guid, res.Records[0].TimecardID)

	text, err := output.PayrollCSV(res.Records)
	require.NoError(t, err)
	back, err := output.ParsePayrollCSV(text)
	require.NoError(t, err)
	assert.Equal(t, guid, back[0].TimecardID)
}

func TestTransform_StacksManualAddsAfterTimecards(t *testing.T) {
	res := run(t, payroll.Input{
		Timecards:  []timecard.Row{punchRow("1001", "t1"), punchRow("1002", "t2")},
		ManualAdds: []timecard.Row{punchRow("1003", "m1"), punchRow("1001", "t1")},
	})

	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.TimecardID)
	}
	assert.Equal(t, []string{"t1", "t2", "m1", "t1"}, ids, "no dedup while stacking")
}

func TestTransform_FormatsOutput(t *testing.T) {
	row := punchRow("1002", "g")
	row[timecard.FieldDepartment] = ""

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	r := res.Records[0]
	assert.Equal(t, "E1002", r.EmployeeID, "HS stripped")
	assert.Equal(t, "Doe, Jane", r.PersonName)
	assert.Equal(t, "07:00", r.InTime)
	assert.Equal(t, "19:30", r.OutTime)
	assert.Equal(t, "Jennifer Devine", r.Approver)
	assert.Equal(t, payroll.Blank, r.Department)
	assert.Equal(t, payroll.Blank, r.JobCode)
	assert.Equal(t, payroll.Blank, r.Comments)
	assert.Equal(t, payroll.Blank, r.IncentiveDescription)
	assert.Equal(t, "0.00", r.IncentiveAmount)
}

func TestTransform_RoleTokenOnlyIDKeptAndCounted(t *testing.T) {
	// GIVEN: an internal ID made only of role tokens
	table := crosswalk.New([]crosswalk.Entry{{ClientEmployeeID: "1001", InternalEmployeeID: "NUHS"}})

	// WHEN
	res := run(t, payroll.Input{Timecards: []timecard.Row{punchRow("1001", "g1")}, Crosswalk: table})

	// THEN: the row is still emitted, with the blank ID counted
	require.Len(t, res.Records, 1)
	assert.Equal(t, "", res.Records[0].EmployeeID)
	assert.Equal(t, 1, res.Stats.BlankEmployeeIDs)
	assert.Empty(t, res.Rejections)
}

func TestSanitizeEmployeeID(t *testing.T) {
	assert.Equal(t, "E1001", payroll.SanitizeEmployeeID("E1001NU"))
	assert.Equal(t, "E1001", payroll.SanitizeEmployeeID("NUE1001HS"))
	assert.Equal(t, "E1001", payroll.SanitizeEmployeeID("E1001"))
}

func TestTransform_BadCellsDoNotAbort(t *testing.T) {
	row := punchRow("1001", "g")
	row[timecard.FieldHours] = "twelve"
	row[timecard.FieldInTime] = "soon"

	res := run(t, payroll.Input{Timecards: []timecard.Row{row}})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "0.00", res.Records[0].PayHours)
	assert.Equal(t, "", res.Records[0].InTime)
}

func TestTransform_IncentiveAnnotation(t *testing.T) {
	rule := config.IncentiveRule{
		ID:          "icu-night",
		Company:     "UofL",
		CostCenters: config.NewStringSet("ICU"),
		ShiftType:   config.ShiftNight,
		Amount:      decimal.RequireFromString("2.0"),
		Description: "ICU night",
		Active:      true,
	}
	night := punchRow("1001", "n")
	night[timecard.FieldOutDate] = "2025-12-31"
	day := punchRow("1003", "d")

	res := run(t, payroll.Input{Timecards: []timecard.Row{night, day}}, rule)

	assert.Equal(t, "2.00", res.Records[0].IncentiveAmount)
	assert.Equal(t, "ICU night", res.Records[0].IncentiveDescription)
	assert.Equal(t, "0.00", res.Records[1].IncentiveAmount)
	assert.Equal(t, 1, res.Stats.IncentiveLines)
	assert.Equal(t, 1, res.Stats.NightShifts)
}

func TestTransform_ConfigOverrides(t *testing.T) {
	cfg := config.DefaultTransformerConfig()
	cfg.NightPayRate = decimal.RequireFromString("70.5")
	cfg.NightPayCode = "NGT"
	cfg.ApproverName = "Pat Lee"
	cfg.LunchTimeHours = decimal.NewFromInt(1)
	row := punchRow("1001", "g")
	row[timecard.FieldOutDate] = "2025-12-31"
	row[timecard.FieldLunchTaken] = "yes"

	res, err := payroll.Transform(payroll.Input{Timecards: []timecard.Row{row}, Crosswalk: xwalk()}, cfg, nil, payroll.Options{})
	require.NoError(t, err)

	r := res.Records[0]
	assert.Equal(t, "70.50", r.PayRate)
	assert.Equal(t, "NGT", r.PayCode)
	assert.Equal(t, "Pat Lee", r.Approver)
	assert.Equal(t, "11.50", r.PayHours)
}

func TestTransform_StructuralErrors(t *testing.T) {
	cfg := config.DefaultTransformerConfig()

	_, err := payroll.Transform(payroll.Input{Crosswalk: xwalk()}, cfg, nil, payroll.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, timecard.ErrMissingInput))

	_, err = payroll.Transform(payroll.Input{Timecards: []timecard.Row{}}, cfg, nil, payroll.Options{})
	require.Error(t, err)
	var te *timecard.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, payroll.StageAttachInternalIDs, te.Stage)
	assert.True(t, errors.Is(err, timecard.ErrMissingCrosswalk))

	res, err := payroll.Transform(payroll.Input{Timecards: []timecard.Row{}, Crosswalk: xwalk()}, cfg, nil, payroll.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}
