package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundou-sig/deliblist/internal/columns"
)

type fakeRecord struct {
	row    int
	id     string
	values map[columns.CanonicalField]string
}

func (f fakeRecord) SourceRow() int                            { return f.row }
func (f fakeRecord) Identifier() string                        { return f.id }
func (f fakeRecord) Value(field columns.CanonicalField) string { return f.values[field] }

func TestValidate_MultiLineCells(t *testing.T) {
	records := []fakeRecord{{
		row: 4,
		id:  "NIC001",
		values: map[columns.CanonicalField]string{
			columns.Sex:       "F\n-\nX",
			columns.BirthDate: "1980-01-01\n12/05/1975\nhier",
			columns.Phone:     "+221 77 000 00 01\nabc",
			columns.Area:      "1,5",
		},
	}}

	warnings := Validate(records)
	require.Len(t, warnings, 3)

	assert.Equal(t, "sex_vocabulary", warnings[0].Rule)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, "X", warnings[0].Value)
	assert.Equal(t, 4, warnings[0].Row)
	assert.Equal(t, "NIC001", warnings[0].ParcelID)

	assert.Equal(t, "date", warnings[1].Rule)
	assert.Equal(t, "hier", warnings[1].Value)

	assert.Equal(t, "phone_characters", warnings[2].Rule)
	assert.Equal(t, 2, warnings[2].Line)
	assert.Equal(t, SeverityWarning, warnings[2].Severity)
}

func TestValidate_SkipsAbsentAndMissing(t *testing.T) {
	warnings := Validate([]fakeRecord{{values: map[columns.CanonicalField]string{
		columns.Sex:  "-",
		columns.Area: "",
	}}})
	assert.Empty(t, warnings)
}

func TestValidator_CustomRule(t *testing.T) {
	v := NewValidator(Rule{
		Name:     "nicad_prefix",
		Field:    columns.LandTitleID,
		Severity: SeverityError,
		Check: func(value string) string {
			if len(value) < 3 || value[:3] != "NIC" {
				return "nicad must start with NIC"
			}
			return ""
		},
	})

	warnings := v.ValidateRecord(fakeRecord{values: map[columns.CanonicalField]string{columns.LandTitleID: "123"}})
	require.Len(t, warnings, 1)
	assert.Equal(t, SeverityError, warnings[0].Severity)
	assert.Contains(t, warnings[0].Error(), "[ERROR]")
}

func TestFieldValidators(t *testing.T) {
	assert.Empty(t, validateSex("Féminin"))
	assert.Empty(t, validateSex("homme"))
	assert.NotEmpty(t, validateSex("?"))

	assert.Empty(t, validateDate("1990"))
	assert.Empty(t, validateDate("31/12/1990"))
	assert.NotEmpty(t, validateDate("31/31/1990"))

	assert.Empty(t, validatePhone("77 000 00 01"))
	assert.NotEmpty(t, validatePhone("+ -"))

	f, ok := ParseDecimal("1 500,25")
	require.True(t, ok)
	assert.InDelta(t, 1500.25, f, 1e-9)
	_, ok = ParseDecimal("abc")
	assert.False(t, ok)
}

func TestFormatAndCount(t *testing.T) {
	assert.Equal(t, "No validation warnings.", FormatWarnings(nil))

	warnings := []Warning{{Rule: "date"}, {Rule: "sex_vocabulary"}, {Rule: "date"}}
	assert.Contains(t, FormatWarnings(warnings), "3 warning(s)")
	assert.Equal(t, []RuleCount{{"date", 2}, {"sex_vocabulary", 1}}, CountByRule(warnings))
}
