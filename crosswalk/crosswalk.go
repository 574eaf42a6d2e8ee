/*
Package crosswalk resolves client identifiers to internal identifiers.

PURPOSE:
  Clients identify employees by their own badge or payroll numbers. The
  crosswalk extract maps those to the internal employee ID that payroll and
  invoicing use. A second, optional table maps company codes to facility
  names.

MATCHING:
  Keys are compared by exact string equality after trimming surrounding
  whitespace. When several rows carry the same key, the first one wins.

SEE ALSO:
  - payroll/stages.go: AttachInternalIDs
  - invoice/pipeline.go: facility resolution
*/
package crosswalk

import (
	"strings"

	"github.com/warp/flexpay-engine/timecard"
)

// Default crosswalk extract columns.
const (
	DefaultKeyField      = "Client Employee ID"
	DefaultValueField    = "Internal Employee ID"
	DefaultFacilityKey   = "Company Code"
	DefaultFacilityValue = "Facility Name"
)

// Entry maps one client employee ID to an internal employee ID.
type Entry struct {
	ClientEmployeeID   string `json:"client_employee_id"`
	InternalEmployeeID string `json:"internal_employee_id"`
}

// Table is an employee crosswalk lookup. The zero value resolves nothing.
type Table struct {
	byKey      map[string]string
	duplicates int
}

// New builds a lookup from entries. Entries with a blank key are ignored.
func New(entries []Entry) *Table {
	t := &Table{byKey: make(map[string]string, len(entries))}
	for _, e := range entries {
		key := strings.TrimSpace(e.ClientEmployeeID)
		if key == "" {
			continue
		}
		if _, exists := t.byKey[key]; exists {
			t.duplicates++
			continue
		}
		t.byKey[key] = strings.TrimSpace(e.InternalEmployeeID)
	}
	return t
}

// FromRows builds entries from crosswalk extract rows. Empty field names
// select the default columns.
func FromRows(rows []timecard.Row, keyField, valueField string) []Entry {
	if keyField == "" {
		keyField = DefaultKeyField
	}
	if valueField == "" {
		valueField = DefaultValueField
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ClientEmployeeID:   timecard.String(row.Get(keyField)),
			InternalEmployeeID: timecard.String(row.Get(valueField)),
		})
	}
	return entries
}

// Resolve returns the internal ID for externalID. A mapping to a blank
// internal ID counts as absent.
func (t *Table) Resolve(externalID string) (string, bool) {
	if t == nil || t.byKey == nil {
		return "", false
	}
	id, ok := t.byKey[strings.TrimSpace(externalID)]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Len is the number of distinct keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}

// Duplicates is the number of entries ignored because their key repeated.
func (t *Table) Duplicates() int {
	if t == nil {
		return 0
	}
	return t.duplicates
}

// =============================================================================
// FACILITIES
// =============================================================================

// FacilityEntry maps a company code to a facility name.
type FacilityEntry struct {
	CompanyCode  string `json:"company_code"`
	FacilityName string `json:"facility_name"`
}

// Facilities resolves facility labels. A nil *Facilities still applies the
// fallback chain.
type Facilities struct {
	byCode map[string]string
}

// NewFacilities builds a facility lookup; first entry per code wins.
func NewFacilities(entries []FacilityEntry) *Facilities {
	f := &Facilities{byCode: make(map[string]string, len(entries))}
	for _, e := range entries {
		code := strings.TrimSpace(e.CompanyCode)
		name := strings.TrimSpace(e.FacilityName)
		if code == "" || name == "" {
			continue
		}
		if _, exists := f.byCode[code]; !exists {
			f.byCode[code] = name
		}
	}
	return f
}

// FacilitiesFromRows builds entries from a facility crosswalk extract.
func FacilitiesFromRows(rows []timecard.Row, keyField, valueField string) []FacilityEntry {
	if keyField == "" {
		keyField = DefaultFacilityKey
	}
	if valueField == "" {
		valueField = DefaultFacilityValue
	}
	entries := make([]FacilityEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, FacilityEntry{
			CompanyCode:  timecard.String(row.Get(keyField)),
			FacilityName: timecard.String(row.Get(valueField)),
		})
	}
	return entries
}

// ResolveFacility returns the mapped facility name for companyCode, falling
// back to the company code, then the cost center, then the department.
func (f *Facilities) ResolveFacility(companyCode, costCenter, department string) string {
	companyCode = strings.TrimSpace(companyCode)
	if f != nil && companyCode != "" {
		if name, ok := f.byCode[companyCode]; ok {
			return name
		}
	}
	for _, candidate := range []string{companyCode, costCenter, department} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}

// Mapped reports whether companyCode has an explicit mapping.
func (f *Facilities) Mapped(companyCode string) bool {
	if f == nil {
		return false
	}
	_, ok := f.byCode[strings.TrimSpace(companyCode)]
	return ok
}
