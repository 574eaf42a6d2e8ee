package payroll

import (
	"strings"
	"time"
)

// Payroll file columns, in output order.
const (
	ColEmployeeID           = "Employee ID"
	ColPayCode              = "Pay Code"
	ColPayHours             = "Pay Hours"
	ColPayRate              = "Pay Rate"
	ColTimecardID           = "Timecard ID"
	ColPersonName           = "Person Name"
	ColInDate               = "In Date"
	ColInTime               = "In Time"
	ColOutDate              = "Out Date"
	ColOutTime              = "Out Time"
	ColApprover             = "Approver"
	ColCompany              = "Company"
	ColCostCenter           = "Cost Center"
	ColDepartment           = "Department"
	ColShiftType            = "Shift Type"
	ColIncentiveAmount      = "Incentive Amount"
	ColIncentiveDescription = "Incentive Description"
	ColJobCode              = "Job Code"
	ColComments             = "Comments"
)

// Columns lists the payroll file header.
var Columns = []string{
	ColEmployeeID, ColPayCode, ColPayHours, ColPayRate, ColTimecardID,
	ColPersonName, ColInDate, ColInTime, ColOutDate, ColOutTime, ColApprover,
	ColCompany, ColCostCenter, ColDepartment, ColShiftType,
	ColIncentiveAmount, ColIncentiveDescription, ColJobCode, ColComments,
}

// Blank fills unused and empty optional columns; the downstream payroll
// import rejects empty cells in these positions.
const Blank = " "

// DateLayout is the payroll file date format.
const DateLayout = "01/02/2006"

// Record is one payroll line. Every field is already formatted text, so a
// CSV round trip reproduces it exactly.
type Record struct {
	EmployeeID           string `csv:"Employee ID" json:"employee_id"`
	PayCode              string `csv:"Pay Code" json:"pay_code"`
	PayHours             string `csv:"Pay Hours" json:"pay_hours"`
	PayRate              string `csv:"Pay Rate" json:"pay_rate"`
	TimecardID           string `csv:"Timecard ID" json:"timecard_id"`
	PersonName           string `csv:"Person Name" json:"person_name"`
	InDate               string `csv:"In Date" json:"in_date"`
	InTime               string `csv:"In Time" json:"in_time"`
	OutDate              string `csv:"Out Date" json:"out_date"`
	OutTime              string `csv:"Out Time" json:"out_time"`
	Approver             string `csv:"Approver" json:"approver"`
	Company              string `csv:"Company" json:"company"`
	CostCenter           string `csv:"Cost Center" json:"cost_center"`
	Department           string `csv:"Department" json:"department"`
	ShiftType            string `csv:"Shift Type" json:"shift_type"`
	IncentiveAmount      string `csv:"Incentive Amount" json:"incentive_amount"`
	IncentiveDescription string `csv:"Incentive Description" json:"incentive_description"`
	JobCode              string `csv:"Job Code" json:"job_code"`
	Comments             string `csv:"Comments" json:"comments"`
}

// SanitizeEmployeeID strips the legacy role-suffix tokens NU and HS.
func SanitizeEmployeeID(id string) string {
	id = strings.ReplaceAll(id, "NU", "")
	id = strings.ReplaceAll(id, "HS", "")
	return strings.TrimSpace(id)
}

// FormatDate renders a calendar date as MM/DD/YYYY; "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func orBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return Blank
	}
	return s
}
