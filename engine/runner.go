/*
runner.go - One transformation run, from uploaded files to audited result

PURPOSE:
  The HTTP handlers and the CLI both execute the same sequence:
    1. resolve the client's configuration (defaults on failure)
    2. read every supplied extract (CSV or XLSX)
    3. apply the client's field map to punch extracts
    4. build the crosswalks and run the pipeline
    5. append a row to the run audit trail
  Runner owns that sequence so both front ends stay thin.

ERRORS:
  Structural failures come back as *timecard.TransformError. Failed runs are
  still recorded, with status "failed" and the error summary.

SEE ALSO:
  - payroll/pipeline.go, invoice/pipeline.go: the pure pipelines
  - api/handlers.go, cli/payroll.go, cli/invoice.go: callers
*/
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/ingest"
	"github.com/warp/flexpay-engine/invoice"
	"github.com/warp/flexpay-engine/logging"
	"github.com/warp/flexpay-engine/output"
	"github.com/warp/flexpay-engine/payroll"
	"github.com/warp/flexpay-engine/store"
	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

// StageInput names failures to supply a required file.
const StageInput = "input"

// File is an uploaded or on-disk extract.
type File struct {
	Name string
	Body io.Reader
}

// PayrollRequest carries the files for a payroll run.
type PayrollRequest struct {
	ClientID   string
	Timecards  *File
	ManualAdds *File
	Crosswalk  *File
	// FieldMap overlays the client's stored field map.
	FieldMap ingest.FieldMap
	RunDate  time.Time
}

// PayrollRun is a completed payroll run.
type PayrollRun struct {
	RunID  string
	Config config.Resolved
	Result *payroll.Result
	CSV    string
}

// InvoiceRequest carries the files for an invoice run.
type InvoiceRequest struct {
	ClientID      string
	Previous      *File
	Current       *File
	Details       [invoice.DetailPeriods]*File
	Facilities    *File
	StartSequence int
	IssuedAt      time.Time
}

// InvoiceRun is a completed invoice run.
type InvoiceRun struct {
	RunID  string
	Config config.Resolved
	Result *invoice.Result
}

// Runner executes transformation runs.
type Runner struct {
	resolver *config.Resolver
	recorder store.RunRecorder
	reader   *ingest.Reader
	logger   *zap.Logger
}

// NewRunner creates a runner. A nil recorder skips the audit trail.
func NewRunner(resolver *config.Resolver, recorder store.RunRecorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = config.NewResolver(nil, logger)
	}
	return &Runner{
		resolver: resolver,
		recorder: recorder,
		reader:   ingest.NewReader(logger),
		logger:   logger,
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// Payroll runs the payroll pipeline for one client.
func (r *Runner) Payroll(ctx context.Context, req PayrollRequest) (*PayrollRun, error) {
	log := logging.WithClient(r.logger, req.ClientID)
	resolved := r.resolver.Resolve(ctx, req.ClientID)
	run := &PayrollRun{Config: resolved}

	result, err := r.payroll(req, resolved, log)
	rec := store.RunRecord{ClientID: req.ClientID, Kind: store.RunPayroll}
	if result != nil {
		rec.InputRows = result.Stats.TimecardRows + result.Stats.ManualAddRows
		rec.OutputRows = result.Stats.OutputRows
		rec.RejectedRows = result.Stats.RejectedRows
		run.Result = result
		if err == nil {
			run.CSV, err = output.PayrollCSV(result.Records)
			if err != nil {
				err = timecard.Fail(payroll.StageFormatOutput, "failed to render payroll CSV", err)
			}
		}
	}
	run.RunID = r.record(ctx, rec, err, log)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *Runner) payroll(req PayrollRequest, resolved config.Resolved, log *zap.Logger) (*payroll.Result, error) {
	if req.Timecards == nil {
		return nil, timecard.Fail(StageInput, "timecard extract is required", timecard.ErrMissingInput)
	}
	if req.Crosswalk == nil {
		return nil, timecard.Fail(StageInput, "employee crosswalk is required", timecard.ErrMissingCrosswalk)
	}

	fieldMap := ingest.FieldMap(resolved.FieldMap).Merge(req.FieldMap)
	timecards, err := r.readOptional(req.Timecards)
	if err != nil {
		return nil, err
	}
	manualAdds, err := r.readOptional(req.ManualAdds)
	if err != nil {
		return nil, err
	}
	xwRows, err := r.readOptional(req.Crosswalk)
	if err != nil {
		return nil, err
	}

	xw := crosswalk.New(crosswalk.FromRows(xwRows, crosswalk.DefaultKeyField, crosswalk.DefaultValueField))
	if xw.Len() == 0 {
		log.Warn("employee crosswalk has no usable entries", zap.String("file", req.Crosswalk.Name))
	}
	if xw.Duplicates() > 0 {
		log.Warn("duplicate crosswalk keys ignored", zap.Int("duplicates", xw.Duplicates()))
	}

	return payroll.Transform(payroll.Input{
		Timecards:  fieldMap.Apply(timecards),
		ManualAdds: fieldMap.Apply(manualAdds),
		Crosswalk:  xw,
	}, resolved.Payroll, resolved.Rules, payroll.Options{RunDate: req.RunDate, Logger: log})
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice runs the invoice pipeline for one client.
func (r *Runner) Invoice(ctx context.Context, req InvoiceRequest) (*InvoiceRun, error) {
	log := logging.WithClient(r.logger, req.ClientID)
	resolved := r.resolver.Resolve(ctx, req.ClientID)
	run := &InvoiceRun{Config: resolved}

	in, err := r.invoiceInput(req)
	rec := store.RunRecord{ClientID: req.ClientID, Kind: store.RunInvoice}
	if err == nil {
		rec.InputRows = len(in.Current) + len(in.Previous)
		run.Result, err = invoice.Transform(in, resolved.Invoice, invoice.Options{
			StartSequence: req.StartSequence,
			IssuedAt:      req.IssuedAt,
			Logger:        log,
		})
	}
	if run.Result != nil {
		rec.OutputRows = len(run.Result.MainInvoiceDetail) + len(run.Result.MicroInvoiceDetail)
		rec.RejectedRows = len(run.Result.Rejections)
	}
	run.RunID = r.record(ctx, rec, err, log)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *Runner) invoiceInput(req InvoiceRequest) (invoice.Input, error) {
	var in invoice.Input
	if req.Current == nil {
		return in, timecard.Fail(StageInput, "current payroll extract is required", timecard.ErrMissingInput)
	}
	var err error
	if in.Current, err = r.readOptional(req.Current); err != nil {
		return in, err
	}
	if in.Previous, err = r.readOptional(req.Previous); err != nil {
		return in, err
	}
	for i, f := range req.Details {
		if in.Details[i], err = r.readOptional(f); err != nil {
			return in, err
		}
	}
	facilityRows, err := r.readOptional(req.Facilities)
	if err != nil {
		return in, err
	}
	if facilityRows != nil {
		in.Facilities = crosswalk.NewFacilities(crosswalk.FacilitiesFromRows(
			facilityRows, crosswalk.DefaultFacilityKey, crosswalk.DefaultFacilityValue))
	}
	return in, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// readOptional reads f, returning nil rows when f is absent.
func (r *Runner) readOptional(f *File) ([]timecard.Row, error) {
	if f == nil {
		return nil, nil
	}
	return r.reader.Read(f.Name, f.Body)
}

// record appends the run to the audit trail and returns its ID. Audit
// failures are logged; they never fail the run.
func (r *Runner) record(ctx context.Context, rec store.RunRecord, runErr error, log *zap.Logger) string {
	rec.Status = store.RunSucceeded
	if runErr != nil {
		rec.Status = store.RunFailed
		rec.Error = runErr.Error()
		log.Warn("transform run failed", zap.String("kind", string(rec.Kind)), zap.Error(runErr))
	}
	if r.recorder == nil {
		return ""
	}
	saved, err := r.recorder.RecordRun(ctx, rec)
	if err != nil {
		log.Error("failed to record run", zap.Error(fmt.Errorf("%s run: %w", rec.Kind, err)))
		return ""
	}
	return saved.ID
}
