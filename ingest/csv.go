package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// parseCSV reads decoded CSV text into rows keyed by header.
// Ragged rows are padded or truncated to the header; rows with no
// non-blank cell are skipped.
func parseCSV(data []byte, log *zap.Logger) ([]timecard.Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, timecard.ErrEmptyFile
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	headers := normalizeHeaders(header)

	rows := []timecard.Row{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn("skipping unreadable CSV row", zap.Int("line", line), zap.Error(err))
			continue
		}
		cells := make([]any, len(record))
		for i, c := range record {
			cells[i] = c
		}
		if row, ok := buildRow(headers, cells); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// normalizeHeaders trims and NFKC-normalizes header names. Blank and
// repeated headers become "" and are ignored when building rows.
func normalizeHeaders(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(norm.NFKC.String(strings.TrimPrefix(h, "\ufeff")))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out[i] = h
	}
	return out
}

func buildRow(headers []string, cells []any) (timecard.Row, bool) {
	row := make(timecard.Row, len(headers))
	nonBlank := false
	for i, h := range headers {
		if h == "" {
			continue
		}
		var v any = ""
		if i < len(cells) && cells[i] != nil {
			v = cells[i]
		}
		if s, ok := v.(string); !ok || strings.TrimSpace(s) != "" {
			nonBlank = true
		}
		row[h] = v
	}
	return row, nonBlank
}
