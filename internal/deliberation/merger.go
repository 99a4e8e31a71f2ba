// =============================================================================
// Deliberation List Generator - Multi-Claimant Parcel Merger
// =============================================================================
//
// Each row of a collective sheet describes one parcel and every person who
// claims it. The merger turns that row into a single ParcelRecord.
//
// PER-ROW STEPS:
//   A. Read the representative from its reserved columns.
//   B. Read every claimant slot discovered by ClassifyHeaders.
//   C. Keep slots with a first and a last name, in slot order, skipping any
//      slot that repeats the representative's name.
//   D. Reject the parcel when fewer than MinClaimants remain.
//   E. Join each claimant field with "\n", one line per claimant.
//   F. Copy the parcel metadata through the column resolver.
//
// A rejected row never aborts the batch; it is reported and skipped.
//
// =============================================================================

package deliberation

import (
	"fmt"
	"strings"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
	"github.com/boundou-sig/deliblist/internal/types"
)

// MinClaimants is the occupancy invariant of a collective parcel.
const MinClaimants = 2

// parcelFields are resolved directly from the header row in collective mode.
var parcelFields = []columns.CanonicalField{
	columns.Village,
	columns.LandTitleID,
	columns.ParcelNumber,
	columns.Area,
	columns.LandUseVocation,
	columns.LandUseType,
}

// Rejection explains why a source row produced no record.
type Rejection struct {
	Row       int    `json:"row"`
	ParcelID  string `json:"parcel_id"`
	Claimants int    `json:"claimants,omitempty"`
	Reason    string `json:"reason"`
}

// String formats the rejection for reports and logs.
func (r Rejection) String() string {
	return fmt.Sprintf("row %d: parcel %s: %s", r.Row, r.ParcelID, r.Reason)
}

// merger holds what is computed once per file.
type merger struct {
	mapping columns.Mapping
	layout  Layout
	rule    IdentificationRule
}

// MergeCollective merges every row of a collective sheet. Records and
// rejections are returned in row order.
func MergeCollective(headers []string, rows []types.Row, opts Options) ([]ParcelRecord, []Rejection) {
	m := newMerger(headers, opts)

	records := make([]ParcelRecord, 0, len(rows))
	var rejections []Rejection

	for i, row := range rows {
		record, rejection, ok := m.mergeRow(row, sourceRow(i))
		if !ok {
			rejections = append(rejections, rejection)
			continue
		}
		records = append(records, record)
	}

	return records, rejections
}

func newMerger(headers []string, opts Options) *merger {
	synonyms := opts.synonyms().Subset(parcelFields...)
	return &merger{
		mapping: columns.Resolve(headers, synonyms),
		layout:  ClassifyHeaders(headers),
		rule:    opts.identification(types.Collective),
	}
}

// mergeRow applies steps A to F to one row.
func (m *merger) mergeRow(row types.Row, rowNumber int) (ParcelRecord, Rejection, bool) {
	record := m.parcelMetadata(row)
	record.Row = rowNumber

	claimants := m.claimants(row)
	if len(claimants) < MinClaimants {
		return ParcelRecord{}, Rejection{
			Row:       rowNumber,
			ParcelID:  record.Identifier(),
			Claimants: len(claimants),
			Reason:    fmt.Sprintf("found %d claimant(s), at least %d required", len(claimants), MinClaimants),
		}, false
	}

	if reason, ok := m.rule.check(record.LandTitleID, record.ParcelNumber); !ok {
		return ParcelRecord{}, Rejection{
			Row:       rowNumber,
			ParcelID:  record.Identifier(),
			Claimants: len(claimants),
			Reason:    reason,
		}, false
	}

	// Step E: one line per claimant, same order in every field.
	joined := make(map[columns.CanonicalField]string, len(MultiValuedFields))
	for _, field := range MultiValuedFields {
		values := make([]string, len(claimants))
		for i, c := range claimants {
			values[i] = c.field(field)
		}
		joined[field] = strings.Join(values, MultiValueSeparator)
	}

	record.FirstNames = joined[columns.FirstName]
	record.LastNames = joined[columns.LastName]
	record.Sexes = joined[columns.Sex]
	record.IDDocumentNumbers = joined[columns.IDDocumentNumber]
	record.Phones = joined[columns.Phone]
	record.BirthDates = joined[columns.BirthDate]
	record.Claimants = len(claimants)

	if m.layout.HasField(columns.Residence) {
		record.Residence = claimants[0].Residence
	}

	return record, Rejection{}, true
}

// claimants runs steps A to C and returns the retained claimants,
// representative first.
func (m *merger) claimants(row types.Row) []Claimant {
	var out []Claimant

	rep, hasRep := m.representative(row)
	if hasRep {
		out = append(out, rep)
	}

	for _, id := range m.layout.GroupIDs {
		group := m.layout.Groups[id]
		c := Claimant{}
		for _, field := range ClaimantFields {
			c.set(field, orMissing(columns.CellValue(row, group.index(field))))
		}
		if !c.named() {
			continue
		}
		if hasRep && c.sameName(rep) {
			continue
		}
		out = append(out, c)
	}

	return out
}

// representative reads the reserved columns. Each field takes the first
// column of its chain that holds a value.
func (m *merger) representative(row types.Row) (Claimant, bool) {
	c := Claimant{}
	for _, field := range ClaimantFields {
		value := normalize.Missing
		for _, idx := range m.layout.Representative[field] {
			if v := columns.CellValue(row, idx); !normalize.IsMissing(v) {
				value = v
				break
			}
		}
		c.set(field, value)
	}
	return c, c.named()
}

// parcelMetadata is step F. Absent columns stay "".
func (m *merger) parcelMetadata(row types.Row) ParcelRecord {
	record := ParcelRecord{
		Village:         m.mapping.Value(row, columns.Village),
		LandTitleID:     m.mapping.Value(row, columns.LandTitleID),
		ParcelNumber:    m.mapping.Value(row, columns.ParcelNumber),
		Area:            m.mapping.Value(row, columns.Area),
		LandUseVocation: m.mapping.Value(row, columns.LandUseVocation),
		LandUseType:     m.mapping.Value(row, columns.LandUseType),
	}
	if !m.mapping.Found(columns.LandTitleID) {
		record.LandTitleID = record.ParcelNumber
	}
	return record
}

func (c *Claimant) set(field columns.CanonicalField, value string) {
	switch field {
	case columns.FirstName:
		c.FirstName = value
	case columns.LastName:
		c.LastName = value
	case columns.Sex:
		c.Sex = value
	case columns.IDDocumentNumber:
		c.IDDocumentNumber = value
	case columns.Phone:
		c.Phone = value
	case columns.BirthDate:
		c.BirthDate = value
	case columns.Residence:
		c.Residence = value
	}
}

// named reports whether both names carry a value.
func (c Claimant) named() bool {
	return !normalize.IsMissing(c.FirstName) && !normalize.IsMissing(c.LastName)
}

func orMissing(v string) string {
	if v == "" {
		return normalize.Missing
	}
	return v
}

// sourceRow converts a data row index to its spreadsheet row number.
func sourceRow(i int) int {
	return i + 2
}
