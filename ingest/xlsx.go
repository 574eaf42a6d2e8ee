package ingest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/warp/flexpay-engine/timecard"
	"github.com/xuri/excelize/v2"
)

// parseXLSX reads one worksheet. Cells are read raw so dates arrive as
// serial numbers and times as day fractions; numeric cells become float64
// and text cells stay strings, which keeps leading zeros in IDs.
func parseXLSX(r io.Reader, sheet string) ([]timecard.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, timecard.ErrEmptyFile
		}
		sheet = list[0]
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, timecard.ErrEmptyFile
	}
	headers := normalizeHeaders(raw[0])

	rows := []timecard.Row{}
	for ri, record := range raw[1:] {
		cells := make([]any, len(record))
		for ci, v := range record {
			cells[ci] = cellValue(f, sheet, ci+1, ri+2, v)
		}
		if row, ok := buildRow(headers, cells); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func cellValue(f *excelize.File, sheet string, col, row int, v string) any {
	if v == "" {
		return v
	}
	num, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return v
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return v
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		return num
	default:
		return v
	}
}
