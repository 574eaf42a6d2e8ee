/*
Package invoice reconciles payroll output against invoice-detail extracts and
produces billable invoice lines.

PURPOSE:
  A client is invoiced for the shifts it confirmed in its invoice-detail
  extracts. Transform matches the previous and current payroll files against
  those extracts, prices each confirmed shift with the flex fee, and splits
  the result into a main invoice and a micro-hospital invoice.

PIPELINE:
  1. Candidates: current payroll lines, then previous; dedupe by Timecard ID
  2. Details: the four extracts merged into one lookup, employee|date
  3. Billable iff a detail entry exists; others are rejected
  4. Hours: detail Billable Hours when positive, else payroll hours
  5. Fee: round2(hours x fee rate)
  6. Facility: detail Facility Code or payroll company, through the
     facility crosswalk; micro when flagged in configuration
  7. Numbers: one per facility, separate main and micro sequences

SEE ALSO:
  - number.go: invoice number templates
  - payroll/record.go: payroll file columns read here
*/
package invoice

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/output"
	"github.com/warp/flexpay-engine/payroll"
	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

// Stage names used in rejections and errors.
const (
	StageCandidates = "candidates"
	StageMatch      = "match_detail"
	StageNumbering  = "numbering"
	StageRender     = "render"
)

// Input holds the extracts for one invoice run. Current is required.
type Input struct {
	Previous []timecard.Row
	Current  []timecard.Row
	// Details holds up to four period-indexed extracts; period = index + 1.
	Details    [DetailPeriods][]timecard.Row
	Facilities *crosswalk.Facilities
}

// Options tune a single run.
type Options struct {
	// StartSequence is the first invoice sequence number; <= 0 means 1.
	StartSequence int
	// IssuedAt fills date tokens in number prefixes; zero means now.
	IssuedAt time.Time
	Logger   *zap.Logger
}

// Result is the output of an invoice run.
type Result struct {
	MainInvoiceDetail    []Line               `json:"main_invoice_detail"`
	MicroInvoiceDetail   []Line               `json:"micro_invoice_detail"`
	MainInvoiceCSV       string               `json:"main_invoice_csv"`
	MicroInvoiceCSV      string               `json:"micro_invoice_csv"`
	MainProductivityCSV  string               `json:"main_productivity_csv"`
	MicroProductivityCSV string               `json:"micro_productivity_csv"`
	HasMicrohospitals    bool                 `json:"has_microhospitals"`
	InvoiceNumber        string               `json:"invoice_number"`
	Rejections           []timecard.Rejection `json:"rejections"`

	// UnmappedFacilities lists company codes missing from a supplied
	// facility crosswalk, sorted. Those lines fall back to the raw code.
	UnmappedFacilities []string `json:"unmapped_facilities,omitempty"`
}

type candidate struct {
	employeeID string
	personName string
	timecardID string
	shiftDate  time.Time
	hours      decimal.Decimal
	company    string
	costCenter string
	department string
	source     timecard.Source
	rowNumber  int
}

type detail struct {
	hours        decimal.Decimal
	facilityCode string
	period       int
	periodEnd    time.Time
}

// Transform runs the invoice pipeline.
func Transform(in Input, cfg config.InvoiceTransformerConfig, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if in.Current == nil {
		return nil, timecard.Fail(StageCandidates, "current payroll extract is required", timecard.ErrMissingInput)
	}
	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	res := &Result{Rejections: []timecard.Rejection{}}

	candidates, dupes := collectCandidates(in.Current, in.Previous)
	res.Rejections = append(res.Rejections, dupes...)
	details := mergeDetails(in.Details)
	log.Debug("invoice inputs merged", zap.Int("candidates", len(candidates)), zap.Int("details", len(details)))

	rate := cfg.FeeRate()
	mainSeq := newSequencer(cfg.InvoiceNumberPrefix, cfg.NumberWidth, opts.StartSequence, issuedAt)
	microSeq := newSequencer(cfg.MicroInvoiceNumberPrefix, cfg.NumberWidth, opts.StartSequence, issuedAt)

	unmapped := map[string]bool{}
	for _, c := range candidates {
		d, ok := details[DetailKey(c.employeeID, c.shiftDate)]
		if !ok {
			res.Rejections = append(res.Rejections, timecard.Rejection{
				Stage:      StageMatch,
				Reason:     timecard.RejectNoInvoiceDetail,
				Source:     c.source,
				RowNumber:  c.rowNumber,
				EmployeeID: c.employeeID,
				ClockGUID:  c.timecardID,
			})
			continue
		}

		hours := c.hours
		if d.hours.IsPositive() {
			hours = d.hours
		}
		fee := timecard.Round2(hours.Mul(rate))

		code := d.facilityCode
		if code == "" {
			code = c.company
		}
		facility := in.Facilities.ResolveFacility(code, c.costCenter, c.department)
		if in.Facilities != nil && code != "" && !in.Facilities.Mapped(code) {
			unmapped[code] = true
		}

		class, seq := ClassMain, mainSeq
		if cfg.IsMicro(code, facility) {
			class, seq = ClassMicro, microSeq
		}
		number, err := seq.numberFor(facility)
		if err != nil {
			return nil, timecard.Fail(StageNumbering, "invalid invoice number prefix", err)
		}

		line := Line{
			InvoiceNumber: number,
			EmployeeID:    c.employeeID,
			PersonName:    c.personName,
			TimecardID:    c.timecardID,
			ShiftDate:     payroll.FormatDate(c.shiftDate),
			Facility:      facility,
			FacilityClass: class,
			BillableHours: hours.StringFixed(2),
			FeeRate:       rate.StringFixed(2),
			FlexFee:       fee.StringFixed(2),
			Period:        strconv.Itoa(d.period),
			PeriodEnd:     payroll.FormatDate(d.periodEnd),
		}
		if class == ClassMicro {
			res.MicroInvoiceDetail = append(res.MicroInvoiceDetail, line)
		} else {
			res.MainInvoiceDetail = append(res.MainInvoiceDetail, line)
		}
	}

	res.HasMicrohospitals = len(res.MicroInvoiceDetail) > 0
	res.InvoiceNumber = mainSeq.first
	if res.InvoiceNumber == "" {
		res.InvoiceNumber = microSeq.first
	}

	for code := range unmapped {
		res.UnmappedFacilities = append(res.UnmappedFacilities, code)
	}
	if len(res.UnmappedFacilities) > 0 {
		sort.Strings(res.UnmappedFacilities)
		log.Warn("company codes missing from facility crosswalk", zap.Strings("codes", res.UnmappedFacilities))
	}

	var err error
	if res.MainInvoiceCSV, err = output.Marshal(res.MainInvoiceDetail); err != nil {
		return nil, timecard.Fail(StageRender, "failed to render main invoice", err)
	}
	if res.MicroInvoiceCSV, err = output.Marshal(res.MicroInvoiceDetail); err != nil {
		return nil, timecard.Fail(StageRender, "failed to render micro invoice", err)
	}
	if res.MainProductivityCSV, err = output.Marshal(Productivity(res.MainInvoiceDetail)); err != nil {
		return nil, timecard.Fail(StageRender, "failed to render main productivity", err)
	}
	if res.MicroProductivityCSV, err = output.Marshal(Productivity(res.MicroInvoiceDetail)); err != nil {
		return nil, timecard.Fail(StageRender, "failed to render micro productivity", err)
	}

	log.Info("invoice transform complete",
		zap.Int("main_lines", len(res.MainInvoiceDetail)),
		zap.Int("micro_lines", len(res.MicroInvoiceDetail)),
		zap.Int("rejected", len(res.Rejections)),
		zap.String("invoice_number", res.InvoiceNumber))
	return res, nil
}

// collectCandidates reads payroll file rows, current first, and drops repeated
// Timecard IDs. Lines without a Timecard ID are never deduplicated.
func collectCandidates(current, previous []timecard.Row) ([]candidate, []timecard.Rejection) {
	seen := make(map[string]bool)
	var out []candidate
	var dupes []timecard.Rejection

	add := func(rows []timecard.Row, source timecard.Source) {
		for i, row := range rows {
			c := candidate{
				employeeID: timecard.String(row.Get(payroll.ColEmployeeID)),
				personName: timecard.String(row.Get(payroll.ColPersonName)),
				timecardID: timecard.Verbatim(row.Get(payroll.ColTimecardID)),
				shiftDate:  timecard.Date(row.Get(payroll.ColInDate)),
				hours:      timecard.Decimal(row.Get(payroll.ColPayHours)),
				company:    timecard.String(row.Get(payroll.ColCompany)),
				costCenter: timecard.String(row.Get(payroll.ColCostCenter)),
				department: timecard.String(row.Get(payroll.ColDepartment)),
				source:     source,
				rowNumber:  i + 1,
			}
			if c.timecardID != "" {
				if seen[c.timecardID] {
					dupes = append(dupes, timecard.Rejection{
						Stage:      StageCandidates,
						Reason:     timecard.RejectDuplicate,
						Source:     source,
						RowNumber:  c.rowNumber,
						EmployeeID: c.employeeID,
						ClockGUID:  c.timecardID,
					})
					continue
				}
				seen[c.timecardID] = true
			}
			out = append(out, c)
		}
	}
	add(current, timecard.SourceCurrentPayroll)
	add(previous, timecard.SourcePreviousPayroll)
	return out, dupes
}

// DetailKey is the invoice-detail lookup key for an employee and date.
func DetailKey(employeeID string, date time.Time) string {
	day := ""
	if !date.IsZero() {
		day = date.Format("2006-01-02")
	}
	return strings.TrimSpace(employeeID) + "|" + day
}

// mergeDetails builds one lookup from the period extracts; the first entry
// for a key wins. Rows without an employee or a date are ignored.
func mergeDetails(periods [DetailPeriods][]timecard.Row) map[string]detail {
	out := make(map[string]detail)
	for i, rows := range periods {
		for _, row := range rows {
			emp := timecard.String(row.Get(DetailEmployeeID))
			date := timecard.Date(row.Get(DetailShiftDate))
			if emp == "" || date.IsZero() {
				continue
			}
			key := DetailKey(emp, date)
			if _, exists := out[key]; exists {
				continue
			}
			out[key] = detail{
				hours:        timecard.Decimal(row.Get(DetailBillableHours)),
				facilityCode: timecard.String(row.Get(DetailFacilityCode)),
				period:       i + 1,
				periodEnd:    timecard.Date(row.Get(DetailPeriodEnd)),
			}
		}
	}
	return out
}

// Productivity aggregates lines per invoice number and employee, in order of
// first appearance.
func Productivity(lines []Line) []ProductivityRow {
	type agg struct {
		row    ProductivityRow
		shifts int
		hours  decimal.Decimal
		fee    decimal.Decimal
	}
	index := make(map[string]int)
	var aggs []*agg
	for _, l := range lines {
		key := l.InvoiceNumber + "|" + l.EmployeeID
		i, ok := index[key]
		if !ok {
			i = len(aggs)
			index[key] = i
			aggs = append(aggs, &agg{
				row: ProductivityRow{
					InvoiceNumber: l.InvoiceNumber,
					EmployeeID:    l.EmployeeID,
					PersonName:    l.PersonName,
					Facility:      l.Facility,
				},
				hours: decimal.Zero,
				fee:   decimal.Zero,
			})
		}
		a := aggs[i]
		a.shifts++
		a.hours = a.hours.Add(timecard.Decimal(l.BillableHours))
		a.fee = a.fee.Add(timecard.Decimal(l.FlexFee))
	}

	out := make([]ProductivityRow, 0, len(aggs))
	for _, a := range aggs {
		row := a.row
		row.Shifts = strconv.Itoa(a.shifts)
		row.Hours = a.hours.StringFixed(2)
		row.FlexFee = a.fee.StringFixed(2)
		out = append(out, row)
	}
	return out
}
