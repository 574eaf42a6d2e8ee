package invoice

// Facility classes.
const (
	ClassMain  = "main"
	ClassMicro = "micro"
)

// Invoice-detail extract columns.
const (
	DetailEmployeeID    = "Employee ID"
	DetailShiftDate     = "Shift Date"
	DetailBillableHours = "Billable Hours"
	DetailFacilityCode  = "Facility Code"
	DetailPeriodEnd     = "Period End"
)

// DetailPeriods is the number of period-indexed invoice-detail extracts.
const DetailPeriods = 4

// Line is one billable invoice line.
type Line struct {
	InvoiceNumber string `csv:"Invoice Number" json:"invoice_number"`
	EmployeeID    string `csv:"Employee ID" json:"employee_id"`
	PersonName    string `csv:"Person Name" json:"person_name"`
	TimecardID    string `csv:"Timecard ID" json:"timecard_id"`
	ShiftDate     string `csv:"Shift Date" json:"shift_date"`
	Facility      string `csv:"Facility" json:"facility"`
	FacilityClass string `csv:"Facility Class" json:"facility_class"`
	BillableHours string `csv:"Billable Hours" json:"billable_hours"`
	FeeRate       string `csv:"Fee Rate" json:"fee_rate"`
	FlexFee       string `csv:"Flex Fee" json:"flex_fee"`
	Period        string `csv:"Period" json:"period"`
	PeriodEnd     string `csv:"Period End" json:"period_end"`
}

// ProductivityRow aggregates billed work per employee and facility.
type ProductivityRow struct {
	InvoiceNumber string `csv:"Invoice Number" json:"invoice_number"`
	EmployeeID    string `csv:"Employee ID" json:"employee_id"`
	PersonName    string `csv:"Person Name" json:"person_name"`
	Facility      string `csv:"Facility" json:"facility"`
	Shifts        string `csv:"Shifts" json:"shifts"`
	Hours         string `csv:"Hours" json:"hours"`
	FlexFee       string `csv:"Flex Fee" json:"flex_fee"`
}
