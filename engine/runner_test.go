package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/engine"
	"github.com/warp/flexpay-engine/store"
	"github.com/warp/flexpay-engine/store/memory"
	"github.com/warp/flexpay-engine/timecard"
)

const timecardsCSV = "Badge,First Name,Last Name,In Date,In Time,Out Date,Out Time,Hours,Company,Cost Center,Lunch,Punch ID\n" +
	"1001,Jane,Doe,12/30/2025,07:00,12/30/2025,19:30,12.5,UofL,ICU,Yes,g-1\n" +
	"9999,Ghost,Worker,12/30/2025,07:00,12/30/2025,19:30,12.5,UofL,ICU,No,g-2\n"

const crosswalkCSV = "Client Employee ID,Internal Employee ID\n1001,E1001NU\n"

func file(name, body string) *engine.File {
	return &engine.File{Name: name, Body: strings.NewReader(body)}
}

func newRunner(t *testing.T) (*engine.Runner, *memory.Memory) {
	t.Helper()
	st := memory.New()
	_, err := st.SaveClientConfig(context.Background(), "uofl", `{"field_map":{"ClockGUID":"Punch ID"}}`)
	require.NoError(t, err)
	return engine.NewRunner(config.NewResolver(st, nil), st, nil), st
}

func TestRunner_Payroll(t *testing.T) {
	// GIVEN: a client whose clock GUID column is mapped by stored config
	runner, st := newRunner(t)
	ctx := context.Background()

	// WHEN
	run, err := runner.Payroll(ctx, engine.PayrollRequest{
		ClientID:  "uofl",
		Timecards: file("timecards.csv", timecardsCSV),
		Crosswalk: file("crosswalk.csv", crosswalkCSV),
		RunDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})

	// THEN: one row out, one rejected, run audited
	require.NoError(t, err)
	require.Len(t, run.Result.Records, 1)
	rec := run.Result.Records[0]
	assert.Equal(t, "E1001", rec.EmployeeID)
	assert.Equal(t, "12.00", rec.PayHours)
	assert.Equal(t, "g-1", rec.TimecardID)
	assert.Equal(t, "12/30/2025", rec.InDate)
	require.Len(t, run.Result.Rejections, 1)
	assert.Equal(t, timecard.RejectNoInternalID, run.Result.Rejections[0].Reason)
	assert.Contains(t, run.CSV, "Employee ID,")
	assert.False(t, run.Config.Defaulted)

	runs, err := st.ListRuns(ctx, "uofl", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].ID)
	assert.Equal(t, store.RunSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].InputRows)
	assert.Equal(t, 1, runs[0].OutputRows)
	assert.Equal(t, 1, runs[0].RejectedRows)
}

func TestRunner_Payroll_MissingTimecards(t *testing.T) {
	runner, st := newRunner(t)
	ctx := context.Background()

	_, err := runner.Payroll(ctx, engine.PayrollRequest{
		ClientID:  "uofl",
		Crosswalk: file("crosswalk.csv", crosswalkCSV),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, timecard.ErrMissingInput))
	runs, err := st.ListRuns(ctx, "uofl", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunner_Payroll_MissingCrosswalk(t *testing.T) {
	runner, _ := newRunner(t)

	_, err := runner.Payroll(context.Background(), engine.PayrollRequest{
		ClientID:  "uofl",
		Timecards: file("timecards.csv", timecardsCSV),
	})

	assert.True(t, errors.Is(err, timecard.ErrMissingCrosswalk))
}

func TestRunner_PayrollThenInvoice(t *testing.T) {
	// GIVEN: the payroll output of one run fed into the invoice run
	runner, st := newRunner(t)
	ctx := context.Background()
	pay, err := runner.Payroll(ctx, engine.PayrollRequest{
		ClientID:  "uofl",
		Timecards: file("timecards.csv", timecardsCSV),
		Crosswalk: file("crosswalk.csv", crosswalkCSV),
	})
	require.NoError(t, err)

	req := engine.InvoiceRequest{
		ClientID:   "uofl",
		Current:    file("current.csv", pay.CSV),
		Facilities: file("facilities.csv", "Company Code,Facility Name\nUofL,UofL Main Hospital\n"),
		IssuedAt:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	req.Details[0] = file("detail1.csv", "Employee ID,Shift Date,Billable Hours,Facility Code,Period End\nE1001,12/30/2025,,,01/03/2026\n")

	// WHEN
	inv, err := runner.Invoice(ctx, req)

	// THEN: 12 billable hours at the default 25.00 rate
	require.NoError(t, err)
	require.Len(t, inv.Result.MainInvoiceDetail, 1)
	line := inv.Result.MainInvoiceDetail[0]
	assert.Equal(t, "12.00", line.BillableHours)
	assert.Equal(t, "300.00", line.FlexFee)
	assert.Equal(t, "UofL Main Hospital", line.Facility)
	assert.Equal(t, "INV-0001", inv.Result.InvoiceNumber)
	assert.False(t, inv.Result.HasMicrohospitals)

	runs, err := st.ListRuns(ctx, "uofl", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, store.RunInvoice, runs[0].Kind)
	assert.Equal(t, 1, runs[0].OutputRows)
}

func TestRunner_Invoice_MissingCurrent(t *testing.T) {
	runner := engine.NewRunner(nil, nil, nil)

	_, err := runner.Invoice(context.Background(), engine.InvoiceRequest{ClientID: "x"})

	var te *timecard.TransformError
	require.True(t, errors.As(err, &te))
	assert.True(t, errors.Is(err, timecard.ErrMissingInput))
}
