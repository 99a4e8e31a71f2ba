// =============================================================================
// Deliberation List Generator - Records
// =============================================================================
//
// Two kinds of output rows leave the engine:
//   - ClaimantRecord: one claimant per row (individual submissions)
//   - ParcelRecord:   one parcel per row with every claimant attached
//                     (collective submissions)
//
// Both are read through the Record interface so that the export, validation
// and statistics code does not care which mode produced them.
//
// =============================================================================

package deliberation

import (
	"strings"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
)

// Record is a produced deliberation row.
type Record interface {
	// SourceRow is the spreadsheet row number the record came from
	// (the header row is row 1).
	SourceRow() int

	// Identifier is the parcel id used in messages: nicad, else the parcel
	// number, else "unknown".
	Identifier() string

	// Value returns the output value of a field. "" means the field is not
	// applicable to this dataset, "-" means recognized but empty.
	Value(field columns.CanonicalField) string
}

// ClaimantRecord is one row of an individual submission.
type ClaimantRecord struct {
	Row    int
	Fields map[columns.CanonicalField]string
}

func (r ClaimantRecord) SourceRow() int { return r.Row }

func (r ClaimantRecord) Identifier() string {
	return identifier(r.Fields[columns.LandTitleID], r.Fields[columns.ParcelNumber])
}

func (r ClaimantRecord) Value(field columns.CanonicalField) string {
	return r.Fields[field]
}

// Claimant is a person attached to a collective parcel. It only lives while
// a row is being merged.
type Claimant struct {
	FirstName        string
	LastName         string
	Sex              string
	IDDocumentNumber string
	Phone            string
	BirthDate        string
	Residence        string
}

// field returns the claimant value for a claimant-level field.
func (c Claimant) field(field columns.CanonicalField) string {
	switch field {
	case columns.FirstName:
		return c.FirstName
	case columns.LastName:
		return c.LastName
	case columns.Sex:
		return c.Sex
	case columns.IDDocumentNumber:
		return c.IDDocumentNumber
	case columns.Phone:
		return c.Phone
	case columns.BirthDate:
		return c.BirthDate
	case columns.Residence:
		return c.Residence
	}
	return ""
}

// sameName compares names ignoring case and accents.
func (c Claimant) sameName(other Claimant) bool {
	return normalize.FoldHeader(c.FirstName) == normalize.FoldHeader(other.FirstName) &&
		normalize.FoldHeader(c.LastName) == normalize.FoldHeader(other.LastName)
}

// ParcelRecord is one merged row of a collective submission. The six
// multi-valued fields hold one line per claimant, in the same claimant
// order.
type ParcelRecord struct {
	Row int

	Village         string
	LandTitleID     string
	ParcelNumber    string
	Area            string
	LandUseVocation string
	LandUseType     string
	Residence       string

	FirstNames        string
	LastNames         string
	Sexes             string
	IDDocumentNumbers string
	Phones            string
	BirthDates        string

	Claimants int
}

func (r ParcelRecord) SourceRow() int { return r.Row }

func (r ParcelRecord) Identifier() string {
	return identifier(r.LandTitleID, r.ParcelNumber)
}

func (r ParcelRecord) Value(field columns.CanonicalField) string {
	switch field {
	case columns.Village:
		return r.Village
	case columns.LandTitleID:
		return r.LandTitleID
	case columns.ParcelNumber:
		return r.ParcelNumber
	case columns.FirstName:
		return r.FirstNames
	case columns.LastName:
		return r.LastNames
	case columns.Sex:
		return r.Sexes
	case columns.IDDocumentNumber:
		return r.IDDocumentNumbers
	case columns.Phone:
		return r.Phones
	case columns.BirthDate:
		return r.BirthDates
	case columns.Residence:
		return r.Residence
	case columns.Area:
		return r.Area
	case columns.LandUseVocation:
		return r.LandUseVocation
	case columns.LandUseType:
		return r.LandUseType
	}
	return ""
}

// Lines splits a multi-valued field into one value per claimant.
func (r ParcelRecord) Lines(field columns.CanonicalField) []string {
	return strings.Split(r.Value(field), MultiValueSeparator)
}

// MultiValueSeparator joins per-claimant values inside one cell.
const MultiValueSeparator = "\n"

// MultiValuedFields are the claimant fields concatenated per parcel.
var MultiValuedFields = []columns.CanonicalField{
	columns.FirstName,
	columns.LastName,
	columns.Sex,
	columns.IDDocumentNumber,
	columns.Phone,
	columns.BirthDate,
}

const unknownParcel = "unknown"

func identifier(titleID, parcelNumber string) string {
	if !normalize.IsMissing(titleID) {
		return titleID
	}
	if !normalize.IsMissing(parcelNumber) {
		return parcelNumber
	}
	return unknownParcel
}
