// =============================================================================
// Deliberation List Generator - Shared Types
// =============================================================================
//
// This package contains types shared by the readers, the deliberation engine
// and the exporters, kept here to avoid import cycles:
//   - xlsxparser / csvparser produce a Sheet
//   - deliberation consumes a Sheet
//   - converter / server select a SubmissionType
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SHEET
// =============================================================================

// Row is one data row, positionally aligned with Sheet.Headers.
// Cells hold whatever the reader produced: strings from excelize and
// encoding/csv, but numbers, booleans and nil are accepted as well.
type Row []any

// Sheet is the fully materialized first sheet of an uploaded file.
// It is read once and never mutated by the engine.
type Sheet struct {
	// Headers is the first row of the sheet. Names are not necessarily
	// unique and may be blank.
	Headers []string

	// Rows holds every data row after the header row.
	Rows []Row

	// SourceName is the original file name, used in logs and reports.
	SourceName string
}

// StringRows builds rows from string cells, the shape returned by both
// excelize and encoding/csv.
func StringRows(records [][]string) []Row {
	rows := make([]Row, len(records))
	for i, record := range records {
		row := make(Row, len(record))
		for j, cell := range record {
			row[j] = cell
		}
		rows[i] = row
	}
	return rows
}

// =============================================================================
// SUBMISSION TYPES
// =============================================================================

// SubmissionType selects the extraction strategy for a file.
type SubmissionType string

const (
	// Individual submissions describe one claimant per row.
	Individual SubmissionType = "individual"

	// Collective submissions describe one parcel per row with several
	// claimants spread over repeated column groups.
	Collective SubmissionType = "collective"
)

// ErrUnknownSubmissionType is returned when a submission type cannot be parsed.
var ErrUnknownSubmissionType = errors.New("unknown submission type")

// ParseSubmissionType accepts the English names plus the French labels used
// by the field teams ("individuel", "collectif").
func ParseSubmissionType(s string) (SubmissionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "individuel", "individuelle", "ind":
		return Individual, nil
	case "collective", "collectif", "col":
		return Collective, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSubmissionType, s)
	}
}
