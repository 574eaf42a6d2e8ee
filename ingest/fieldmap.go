package ingest

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/warp/flexpay-engine/timecard"
	"gopkg.in/yaml.v3"
)

// FieldMap maps canonical field names to a client's source column names:
//
//	EmployeeID: Badge Number
//	ClockGUID: Unique Clocking ID
//	LunchTaken: Out Clocking Answer
//
// Canonical fields that are not mapped fall back to the known header
// aliases, then to a column already named like the canonical field.
type FieldMap map[string]string

// LoadFieldMap reads a YAML field map.
func LoadFieldMap(path string) (FieldMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field map: %w", err)
	}
	return ParseFieldMap(data)
}

// ParseFieldMap parses a YAML field map and rejects unknown canonical names.
func ParseFieldMap(data []byte) (FieldMap, error) {
	var m FieldMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse field map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every key is a canonical field.
func (m FieldMap) Validate() error {
	known := make(map[string]bool, len(timecard.CanonicalFields))
	for _, f := range timecard.CanonicalFields {
		known[f] = true
	}
	for k := range m {
		if !known[k] {
			return fmt.Errorf("unknown canonical field %q in field map", k)
		}
	}
	return nil
}

// Merge returns m overlaid with other; other wins on conflicts.
func (m FieldMap) Merge(other FieldMap) FieldMap {
	out := make(FieldMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Apply returns copies of rows with every canonical field populated from
// its source column. Source columns are kept.
func (m FieldMap) Apply(rows []timecard.Row) []timecard.Row {
	out := make([]timecard.Row, len(rows))
	for i, row := range rows {
		out[i] = m.applyRow(row)
	}
	return out
}

func (m FieldMap) applyRow(row timecard.Row) timecard.Row {
	out := make(timecard.Row, len(row)+len(timecard.CanonicalFields))
	for k, v := range row {
		out[k] = v
	}

	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}
	sort.Strings(headers)
	aliased := make(map[string]string)
	for _, header := range headers {
		if canonical, ok := headerAliases[aliasKey(header)]; ok {
			if _, taken := aliased[canonical]; !taken {
				aliased[canonical] = header
			}
		}
	}

	for _, canonical := range timecard.CanonicalFields {
		if src, ok := m[canonical]; ok {
			if v, present := row[src]; present {
				out[canonical] = v
				continue
			}
		}
		if _, present := row[canonical]; present {
			continue
		}
		if src, ok := aliased[canonical]; ok {
			out[canonical] = row[src]
		}
	}
	return out
}

// aliasKey lowercases a header and drops everything but letters and digits.
func aliasKey(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// headerAliases maps alias keys of common time-clock headers to canonical fields.
var headerAliases = map[string]string{
	// Employee
	"employeeid":       timecard.FieldEmployeeID,
	"empid":            timecard.FieldEmployeeID,
	"employeenumber":   timecard.FieldEmployeeID,
	"badge":            timecard.FieldEmployeeID,
	"badgenumber":      timecard.FieldEmployeeID,
	"personnumber":     timecard.FieldEmployeeID,
	"clientemployeeid": timecard.FieldEmployeeID,
	"firstname":        timecard.FieldFirstName,
	"givenname":        timecard.FieldFirstName,
	"lastname":         timecard.FieldLastName,
	"surname":          timecard.FieldLastName,
	"employeename":     timecard.FieldEmployeeName,
	"fullname":         timecard.FieldEmployeeName,
	"personname":       timecard.FieldEmployeeName,
	"name":             timecard.FieldEmployeeName,

	// Clocking
	"indate":            timecard.FieldInDate,
	"inclockingdate":    timecard.FieldInDate,
	"clockindate":       timecard.FieldInDate,
	"punchindate":       timecard.FieldInDate,
	"intime":            timecard.FieldInTime,
	"inclockingtime":    timecard.FieldInTime,
	"clockintime":       timecard.FieldInTime,
	"punchintime":       timecard.FieldInTime,
	"outdate":           timecard.FieldOutDate,
	"outclockingdate":   timecard.FieldOutDate,
	"clockoutdate":      timecard.FieldOutDate,
	"punchoutdate":      timecard.FieldOutDate,
	"outtime":           timecard.FieldOutTime,
	"outclockingtime":   timecard.FieldOutTime,
	"clockouttime":      timecard.FieldOutTime,
	"punchouttime":      timecard.FieldOutTime,
	"hours":             timecard.FieldHours,
	"totalhours":        timecard.FieldHours,
	"rawhours":          timecard.FieldHours,
	"workedhours":       timecard.FieldHours,
	"paycode":           timecard.FieldPayCode,
	"lunchtaken":        timecard.FieldLunchTaken,
	"lunch":             timecard.FieldLunchTaken,
	"outclockinganswer": timecard.FieldLunchTaken,
	"clockguid":         timecard.FieldClockGUID,
	"clockingguid":      timecard.FieldClockGUID,
	"uniqueclockingid":  timecard.FieldClockGUID,
	"clockingid":        timecard.FieldClockGUID,
	"guid":              timecard.FieldClockGUID,

	// Organization
	"company":     timecard.FieldCompany,
	"companycode": timecard.FieldCompany,
	"costcenter":  timecard.FieldCostCenter,
	"costcentre":  timecard.FieldCostCenter,
	"department":  timecard.FieldDepartment,
	"dept":        timecard.FieldDepartment,
}
