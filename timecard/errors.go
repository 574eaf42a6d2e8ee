/*
errors.go - Error types for the transformation engine

ERROR CATEGORIES:
  1. Row-level data defects     - never errors; see lenient.go
  2. Row-level eligibility      - Rejection records, not errors
  3. Configuration-load failure - recovered by config.Resolver (defaults)
  4. Structural failures        - TransformError, aborts the run

USAGE:
  if errors.Is(err, timecard.ErrMissingInput) {
      // required file absent
  }

  var te *timecard.TransformError
  if errors.As(err, &te) {
      resp := ErrorResponse{Error: te.Message, Details: te.Details()}
  }
*/
package timecard

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingInput is returned when a required extract was not supplied.
	ErrMissingInput = errors.New("required input missing")

	// ErrUnsupportedFormat is returned when a file is neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("file is empty")

	// ErrMissingCrosswalk is returned when no employee crosswalk is available.
	ErrMissingCrosswalk = errors.New("employee crosswalk missing")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// TransformError is a fatal, run-level failure. Message is the human-readable
// summary shown to the user; Cause carries the underlying error.
type TransformError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *TransformError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// Details returns the underlying cause as text, or "" when there is none.
func (e *TransformError) Details() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// Fail builds a TransformError for the given stage.
func Fail(stage, message string, cause error) *TransformError {
	return &TransformError{Stage: stage, Message: message, Cause: cause}
}

// =============================================================================
// REJECTIONS - rows dropped from output
// =============================================================================

// RejectReason says why a row never reached the output.
type RejectReason string

const (
	RejectNoInternalID    RejectReason = "no_internal_id"
	RejectNoClockGUID     RejectReason = "no_clock_guid"
	RejectNoInvoiceDetail RejectReason = "no_invoice_detail"
	RejectDuplicate       RejectReason = "duplicate_timecard"
)

// Rejection records one dropped row. Rejections are reported alongside the
// output and never change which rows are emitted.
type Rejection struct {
	Stage      string       `csv:"Stage" json:"stage"`
	Reason     RejectReason `csv:"Reason" json:"reason"`
	Source     Source       `csv:"Source" json:"source"`
	RowNumber  int          `csv:"Row" json:"row_number"`
	EmployeeID string       `csv:"Employee ID" json:"employee_id"`
	ClockGUID  string       `csv:"Clock GUID" json:"clock_guid,omitempty"`
}

// CountByReason tallies rejections per reason.
func CountByReason(rejections []Rejection) map[RejectReason]int {
	counts := make(map[RejectReason]int)
	for _, r := range rejections {
		counts[r.Reason]++
	}
	return counts
}
