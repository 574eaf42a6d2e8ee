/*
Package ingest turns uploaded extracts into rows.

PURPOSE:
  Clients send CSV exports from their time clocks and spreadsheets from
  their HR systems. This package owns everything byte-level:
    - format detection (CSV vs XLSX) by extension and magic bytes
    - text encoding detection (BOM, UTF-16, Windows-1252)
    - header normalization (trim, NFKC)
    - mapping client columns to canonical field names (fieldmap.go)
  The transformation core only ever sees []timecard.Row.

ERRORS:
  A file that cannot be read is a structural failure of the run; Read
  returns a *timecard.TransformError naming the file. Individual unreadable
  CSV lines are skipped and logged.

EXAMPLE:
  r := ingest.NewReader(log)
  rows, err := r.ReadFile("timecards.csv")
  rows = fieldMap.Apply(rows)
*/
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// StageIngest names ingestion failures.
const StageIngest = "ingest"

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the format from the file name, then the content.
func DetectFormat(name string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt", "":
		if bytes.HasPrefix(head, zipMagic) {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	default:
		if bytes.HasPrefix(head, zipMagic) {
			return FormatXLSX, nil
		}
		return "", fmt.Errorf("%w: %s", timecard.ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Reader reads extracts into rows.
type Reader struct {
	// Sheet selects the XLSX worksheet; "" means the active sheet.
	Sheet  string
	logger *zap.Logger
}

// NewReader creates a reader. A nil logger discards output.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadFile reads an extract from disk.
func (r *Reader) ReadFile(path string) ([]timecard.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, timecard.Fail(StageIngest, fmt.Sprintf("failed to open %s", filepath.Base(path)), err)
	}
	defer f.Close()
	return r.Read(filepath.Base(path), f)
}

// Read reads an extract named name from src.
func (r *Reader) Read(name string, src io.Reader) ([]timecard.Row, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, timecard.Fail(StageIngest, fmt.Sprintf("failed to read %s", name), err)
	}
	rows, format, err := r.parse(name, data)
	if err != nil {
		return nil, timecard.Fail(StageIngest, fmt.Sprintf("failed to parse %s", name), err)
	}
	r.logger.Debug("extract read",
		zap.String("file", name),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func (r *Reader) parse(name string, data []byte) ([]timecard.Row, Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", timecard.ErrEmptyFile
	}
	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, "", err
	}
	if format == FormatXLSX {
		rows, err := parseXLSX(bytes.NewReader(data), r.Sheet)
		return rows, format, err
	}

	decoded, encoding, err := Decode(data)
	if err != nil {
		return nil, format, err
	}
	if encoding != "utf-8" {
		r.logger.Debug("decoded extract", zap.String("file", name), zap.String("encoding", encoding))
	}
	rows, err := parseCSV(decoded, r.logger.With(zap.String("file", name)))
	return rows, format, err
}
