// =============================================================================
// Deliberation List Generator - Single-Claimant Extractor
// =============================================================================
//
// Individual sheets carry one claimant per row. Every row becomes one
// ClaimantRecord holding the allowlisted fields, unless it cannot be
// identified (no nicad by default).
//
// =============================================================================

package deliberation

import (
	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/types"
)

// IndividualFields is the allowlist of an individual deliberation list, in
// output order.
var IndividualFields = []columns.CanonicalField{
	columns.Village,
	columns.LandTitleID,
	columns.ParcelNumber,
	columns.FirstName,
	columns.LastName,
	columns.BirthDate,
	columns.Area,
	columns.IDDocumentNumber,
	columns.Phone,
	columns.LandUseVocation,
	columns.LandUseType,
	columns.Sex,
}

// ExtractIndividual maps each row to a ClaimantRecord. Rows that fail the
// identification rule are returned as rejections. Order is preserved.
func ExtractIndividual(headers []string, rows []types.Row, opts Options) ([]ClaimantRecord, []Rejection) {
	mapping := columns.Resolve(headers, opts.synonyms().Subset(IndividualFields...))
	rule := opts.identification(types.Individual)

	records := make([]ClaimantRecord, 0, len(rows))
	var rejections []Rejection

	for i, row := range rows {
		record := ClaimantRecord{
			Row:    sourceRow(i),
			Fields: make(map[columns.CanonicalField]string, len(IndividualFields)),
		}
		for _, field := range IndividualFields {
			record.Fields[field] = mapping.Value(row, field)
		}

		if reason, ok := rule.check(record.Fields[columns.LandTitleID], record.Fields[columns.ParcelNumber]); !ok {
			rejections = append(rejections, Rejection{
				Row:      record.Row,
				ParcelID: record.Identifier(),
				Reason:   reason,
			})
			continue
		}

		records = append(records, record)
	}

	return records, rejections
}
