package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/flexpay-engine/output"
	"github.com/warp/flexpay-engine/payroll"
)

func sampleRecords() []payroll.Record {
	return []payroll.Record{
		{
			EmployeeID: "E1001", PayCode: "FXNT", PayHours: "12.00", PayRate: "63.00",
			TimecardID: "guid-1", PersonName: "Doe, Jane", InDate: "12/31/2025", InTime: "19:00",
			OutDate: "01/01/2026", OutTime: "07:30", Approver: "Jennifer Devine",
			Company: "UofL", CostCenter: "ICU", Department: payroll.Blank, ShiftType: "Night",
			IncentiveAmount: "2.00", IncentiveDescription: `ICU "night"; weekend`,
			JobCode: payroll.Blank, Comments: payroll.Blank,
		},
		{
			EmployeeID: "E1002", PayCode: "FXDY", PayHours: "-0.25", PayRate: "58.00",
			TimecardID: "guid,2", PersonName: "O'Neil, Sam", InDate: "", InTime: "",
			OutDate: "", OutTime: "", Approver: "Jennifer Devine",
			Company: "UofL, North", CostCenter: "ER", Department: "Nursing", ShiftType: "Day",
			IncentiveAmount: "0.00", IncentiveDescription: payroll.Blank,
			JobCode: payroll.Blank, Comments: "line1\nline2",
		},
	}
}

func TestPayrollCSV_RoundTrip(t *testing.T) {
	// GIVEN: records with commas, quotes, blanks and empty strings
	records := sampleRecords()

	// WHEN: formatting and parsing back
	text, err := output.PayrollCSV(records)
	require.NoError(t, err)
	parsed, err := output.ParsePayrollCSV(text)
	require.NoError(t, err)

	// THEN: every field is unchanged
	assert.Equal(t, records, parsed)
}

func TestPayrollCSV_HeaderAndQuoting(t *testing.T) {
	text, err := output.PayrollCSV(sampleRecords())
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	assert.Equal(t, strings.Join(payroll.Columns, ","), lines[0])
	assert.Contains(t, text, `"ICU ""night""; weekend"`)
	assert.Contains(t, text, `"UofL, North"`)
	assert.Contains(t, text, `"guid,2"`)
}

func TestPayrollCSV_Empty(t *testing.T) {
	text, err := output.PayrollCSV(nil)
	require.NoError(t, err)

	assert.Equal(t, strings.Join(payroll.Columns, ",")+"\n", text)

	parsed, err := output.ParsePayrollCSV(text)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestWrite_MatchesMarshal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, sampleRecords()))

	text, err := output.Marshal(sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, text, buf.String())
}

func TestParsePayrollCSV_StripsBOM(t *testing.T) {
	text, err := output.PayrollCSV(sampleRecords()[:1])
	require.NoError(t, err)

	parsed, err := output.ParsePayrollCSV("\ufeff" + text)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "E1001", parsed[0].EmployeeID)
}
