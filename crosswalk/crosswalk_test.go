package crosswalk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/flexpay-engine/crosswalk"
	"github.com/warp/flexpay-engine/timecard"
)

func TestResolve_ExactMatchAfterTrim(t *testing.T) {
	table := crosswalk.New([]crosswalk.Entry{
		{ClientEmployeeID: " 1042 ", InternalEmployeeID: "E1042NU"},
		{ClientEmployeeID: "abc", InternalEmployeeID: "E7"},
	})

	id, ok := table.Resolve("1042")
	assert.True(t, ok)
	assert.Equal(t, "E1042NU", id)

	_, ok = table.Resolve("ABC")
	assert.False(t, ok, "matching is case-sensitive")

	_, ok = table.Resolve("9999")
	assert.False(t, ok)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	table := crosswalk.New([]crosswalk.Entry{
		{ClientEmployeeID: "1", InternalEmployeeID: "FIRST"},
		{ClientEmployeeID: "1", InternalEmployeeID: "SECOND"},
	})

	id, _ := table.Resolve("1")
	assert.Equal(t, "FIRST", id)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Duplicates())
}

func TestResolve_BlankInternalIDIsAbsent(t *testing.T) {
	table := crosswalk.New([]crosswalk.Entry{{ClientEmployeeID: "1", InternalEmployeeID: "  "}})

	_, ok := table.Resolve("1")
	assert.False(t, ok)
}

func TestResolve_NilTable(t *testing.T) {
	var table *crosswalk.Table
	_, ok := table.Resolve("1")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}

func TestFromRows_DefaultColumns(t *testing.T) {
	rows := []timecard.Row{
		{"Client Employee ID": 1042.0, "Internal Employee ID": "E1042"},
		{"Client Employee ID": "77", "Internal Employee ID": "E77HS"},
	}

	table := crosswalk.New(crosswalk.FromRows(rows, "", ""))

	id, ok := table.Resolve("1042")
	assert.True(t, ok)
	assert.Equal(t, "E1042", id)
	id, _ = table.Resolve("77")
	assert.Equal(t, "E77HS", id)
}

func TestResolveFacility_FallbackChain(t *testing.T) {
	f := crosswalk.NewFacilities([]crosswalk.FacilityEntry{
		{CompanyCode: "UL01", FacilityName: "UofL Hospital"},
	})

	assert.Equal(t, "UofL Hospital", f.ResolveFacility("UL01", "ICU", "Nursing"))
	assert.Equal(t, "UL02", f.ResolveFacility("UL02", "ICU", "Nursing"))
	assert.Equal(t, "ICU", f.ResolveFacility(" ", "ICU", "Nursing"))
	assert.Equal(t, "Nursing", f.ResolveFacility("", "", "Nursing"))
	assert.Equal(t, "", f.ResolveFacility("", "", ""))
	assert.True(t, f.Mapped("UL01"))
	assert.False(t, f.Mapped("UL02"))

	var none *crosswalk.Facilities
	assert.Equal(t, "UL01", none.ResolveFacility("UL01", "ICU", ""))
}

func TestFacilitiesFromRows(t *testing.T) {
	rows := []timecard.Row{
		{"Company Code": "UL01", "Facility Name": "UofL Hospital"},
		{"Company Code": "UL01", "Facility Name": "Duplicate"},
	}

	f := crosswalk.NewFacilities(crosswalk.FacilitiesFromRows(rows, "", ""))

	assert.Equal(t, "UofL Hospital", f.ResolveFacility("UL01", "", ""))
}
