/*
Package timecard provides the shared types of the transformation engine.

PURPOSE:
  Every client extract is parsed into loosely typed rows (header -> cell
  value). This package defines those rows, the canonical field names the
  core understands, and the statically typed Punch that every pipeline stage
  operates on. Client-specific header names never travel past the ingestion
  boundary; see ingest.FieldMap.

KEY CONCEPTS IN THIS FILE (types.go):
  - Row: one parsed file row, header -> value
  - Field*: canonical field names
  - Punch: one clock-in/clock-out event in canonical shape
  - ShiftType: Day or Night classification

DESIGN PRINCIPLES:
  1. Immutability: a Punch read from a file is never mutated in place;
     stages copy it and return a new slice
  2. Precision: hours use decimal.Decimal
  3. Leniency: conversion from Row to Punch never fails (see lenient.go)

SEE ALSO:
  - lenient.go: best-effort coercion used at every stage boundary
  - errors.go: structural errors and row rejections
*/
package timecard

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW - untyped file row
// =============================================================================

// Row is a single parsed row: column name -> raw cell value.
// Values are string, float64, int, time.Time or nil.
type Row map[string]any

// Get returns the raw value stored under field, or nil.
func (r Row) Get(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

// =============================================================================
// CANONICAL FIELDS
// =============================================================================

const (
	FieldEmployeeID   = "EmployeeID"
	FieldFirstName    = "FirstName"
	FieldLastName     = "LastName"
	FieldEmployeeName = "EmployeeName"
	FieldInDate       = "InDate"
	FieldInTime       = "InTime"
	FieldOutDate      = "OutDate"
	FieldOutTime      = "OutTime"
	FieldHours        = "Hours"
	FieldPayCode      = "PayCode"
	FieldCompany      = "Company"
	FieldCostCenter   = "CostCenter"
	FieldDepartment   = "Department"
	FieldLunchTaken   = "LunchTaken"
	FieldClockGUID    = "ClockGUID"
)

// CanonicalFields lists every canonical punch field in display order.
var CanonicalFields = []string{
	FieldEmployeeID, FieldFirstName, FieldLastName, FieldEmployeeName,
	FieldInDate, FieldInTime, FieldOutDate, FieldOutTime,
	FieldHours, FieldPayCode, FieldCompany, FieldCostCenter, FieldDepartment,
	FieldLunchTaken, FieldClockGUID,
}

// =============================================================================
// PUNCH
// =============================================================================

// Source identifies which extract a punch came from.
type Source string

const (
	SourceTimecard        Source = "timecard"
	SourceManualAdd       Source = "manual_add"
	SourcePreviousPayroll Source = "previous_payroll"
	SourceCurrentPayroll  Source = "current_payroll"
)

// ShiftType is the Day/Night classification of a punch.
type ShiftType string

const (
	ShiftDay   ShiftType = "Day"
	ShiftNight ShiftType = "Night"
)

// Punch is one timekeeping event in canonical shape.
type Punch struct {
	ExternalEmployeeID string
	InternalEmployeeID string

	FirstName    string
	LastName     string
	EmployeeName string

	// InDate and OutDate carry the calendar date only; zero when unparseable.
	InDate  time.Time
	OutDate time.Time
	// InTime and OutTime are kept raw; formatting happens late in the pipeline.
	InTime  string
	OutTime string

	RawHours   decimal.Decimal
	PayCode    string
	Company    string
	CostCenter string
	Department string
	LunchTaken string
	ClockGUID  string

	Source    Source
	RowNumber int
}

// PunchFromRow converts a canonical row into a Punch. It never fails:
// unparseable numbers become zero and unparseable dates the zero time.
func PunchFromRow(row Row, source Source, rowNumber int) Punch {
	return Punch{
		ExternalEmployeeID: String(row.Get(FieldEmployeeID)),
		FirstName:          String(row.Get(FieldFirstName)),
		LastName:           String(row.Get(FieldLastName)),
		EmployeeName:       String(row.Get(FieldEmployeeName)),
		InDate:             Date(row.Get(FieldInDate)),
		OutDate:            Date(row.Get(FieldOutDate)),
		InTime:             rawTime(row.Get(FieldInTime)),
		OutTime:            rawTime(row.Get(FieldOutTime)),
		RawHours:           Decimal(row.Get(FieldHours)),
		PayCode:            String(row.Get(FieldPayCode)),
		Company:            String(row.Get(FieldCompany)),
		CostCenter:         String(row.Get(FieldCostCenter)),
		Department:         String(row.Get(FieldDepartment)),
		LunchTaken:         String(row.Get(FieldLunchTaken)),
		ClockGUID:          Verbatim(row.Get(FieldClockGUID)),
		Source:             source,
		RowNumber:          rowNumber,
	}
}

// PunchesFromRows converts rows in order, numbering them from 1.
func PunchesFromRows(rows []Row, source Source) []Punch {
	out := make([]Punch, 0, len(rows))
	for i, row := range rows {
		out = append(out, PunchFromRow(row, source, i+1))
	}
	return out
}

// rawTime keeps spreadsheet times (day fractions, time.Time) in a form that
// ClockTime understands later.
func rawTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("15:04:05")
	case float64, float32, int, int64:
		return ClockTime(t)
	default:
		return String(v)
	}
}

// ShiftDate is the calendar date a punch is attributed to (the in-clock date).
func (p Punch) ShiftDate() time.Time { return p.InDate }

// PersonName formats the display name: "Last, First" when both parts exist,
// otherwise whatever name information the extract carried.
func (p Punch) PersonName() string {
	switch {
	case p.LastName != "" && p.FirstName != "":
		return p.LastName + ", " + p.FirstName
	case p.LastName != "":
		return p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.EmployeeName
	}
}
