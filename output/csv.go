/*
Package output renders typed records as CSV text.

PURPOSE:
  Payroll and invoice records are structs with `csv` tags; gocsv turns a
  slice of them into a header row plus one line per record, and back.
  Quoting follows encoding/csv: fields containing a comma, a double quote,
  a line break or a leading space are quoted, and embedded quotes doubled.
  All record fields are strings, so a round trip reproduces every value
  exactly.

SEE ALSO:
  - payroll/record.go: Record
  - invoice/types.go: Line, ProductivityRow
*/
package output

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/warp/flexpay-engine/payroll"
)

// Marshal renders records (a slice of csv-tagged structs) as CSV text.
func Marshal[T any](records []T) (string, error) {
	if records == nil {
		records = []T{}
	}
	s, err := gocsv.MarshalString(&records)
	if err != nil {
		return "", fmt.Errorf("failed to render CSV: %w", err)
	}
	return s, nil
}

// Write streams records as CSV to w.
func Write[T any](w io.Writer, records []T) error {
	if records == nil {
		records = []T{}
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// Unmarshal parses CSV text into records. Columns are matched by header name.
func Unmarshal[T any](text string) ([]T, error) {
	var out []T
	if err := gocsv.UnmarshalBytes(bytes.TrimPrefix([]byte(text), []byte("\ufeff")), &out); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return out, nil
}

// PayrollCSV renders the payroll file.
func PayrollCSV(records []payroll.Record) (string, error) {
	return Marshal(records)
}

// ParsePayrollCSV reads a payroll file produced by PayrollCSV.
func ParsePayrollCSV(text string) ([]payroll.Record, error) {
	return Unmarshal[payroll.Record](text)
}
