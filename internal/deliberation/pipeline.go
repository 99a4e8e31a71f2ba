// =============================================================================
// Deliberation List Generator - Pipeline
// =============================================================================
//
// One entry point per submission type. Each takes a fully read sheet and
// returns a Result; nothing is kept between calls.
//
// FAILURE MODES:
//   - File level (empty sheet, blank header row): an error, no Result.
//   - Row level (occupancy, identification): a Rejection in the Result.
//
// =============================================================================

package deliberation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/internal/validation"
)

var (
	// ErrEmptySheet is returned for a sheet with no data rows.
	ErrEmptySheet = errors.New("sheet has no data rows")

	// ErrNoHeaders is returned when the header row is missing or blank.
	ErrNoHeaders = errors.New("sheet has no header row")
)

// Result is the outcome of one processing pass.
type Result struct {
	// RunID is assigned by the Session that owns the result.
	RunID string `json:"run_id,omitempty"`

	Type   types.SubmissionType `json:"type"`
	Source string               `json:"source,omitempty"`

	Individuals []ClaimantRecord `json:"-"`
	Parcels     []ParcelRecord   `json:"-"`
	Rejections  []Rejection      `json:"rejections"`

	Report Report `json:"report"`
}

// Records returns the produced records in row order.
func (r *Result) Records() []Record {
	switch r.Type {
	case types.Collective:
		out := make([]Record, len(r.Parcels))
		for i, p := range r.Parcels {
			out[i] = p
		}
		return out
	default:
		out := make([]Record, len(r.Individuals))
		for i, c := range r.Individuals {
			out[i] = c
		}
		return out
	}
}

// Len is the number of produced records.
func (r *Result) Len() int {
	if r.Type == types.Collective {
		return len(r.Parcels)
	}
	return len(r.Individuals)
}

// Preview returns at most n records from the start of the result.
func (r *Result) Preview(n int) []Record {
	records := r.Records()
	if n < 0 || n >= len(records) {
		return records
	}
	return records[:n]
}

// Process dispatches on the submission type.
func Process(sheet *types.Sheet, t types.SubmissionType, opts Options) (*Result, error) {
	switch t {
	case types.Individual:
		return ProcessIndividual(sheet, opts)
	case types.Collective:
		return ProcessCollective(sheet, opts)
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownSubmissionType, t)
}

// ProcessIndividual extracts one record per claimant row.
func ProcessIndividual(sheet *types.Sheet, opts Options) (*Result, error) {
	if err := checkSheet(sheet); err != nil {
		return nil, err
	}

	records, rejections := ExtractIndividual(sheet.Headers, sheet.Rows, opts)

	result := &Result{
		Type:        types.Individual,
		Source:      sheet.SourceName,
		Individuals: records,
		Rejections:  rejections,
		Report:      BuildReport(len(sheet.Rows), len(records), reasons(rejections)),
	}
	result.Report.Columns = AnalyzeIndividual(sheet.Headers, opts)
	result.Report.Warnings = validation.Validate(records)

	return result, nil
}

// ProcessCollective merges one parcel per row.
func ProcessCollective(sheet *types.Sheet, opts Options) (*Result, error) {
	if err := checkSheet(sheet); err != nil {
		return nil, err
	}

	records, rejections := MergeCollective(sheet.Headers, sheet.Rows, opts)

	result := &Result{
		Type:       types.Collective,
		Source:     sheet.SourceName,
		Parcels:    records,
		Rejections: rejections,
		Report:     BuildReport(len(sheet.Rows), len(records), reasons(rejections)),
	}
	result.Report.Columns = AnalyzeCollective(sheet.Headers, opts)
	result.Report.Warnings = validation.Validate(records)

	return result, nil
}

// checkSheet rejects input that cannot be processed at all.
func checkSheet(sheet *types.Sheet) error {
	if sheet == nil || (len(sheet.Headers) == 0 && len(sheet.Rows) == 0) {
		return ErrEmptySheet
	}

	blank := true
	for _, h := range sheet.Headers {
		if strings.TrimSpace(h) != "" {
			blank = false
			break
		}
	}
	if blank {
		return ErrNoHeaders
	}

	if len(sheet.Rows) == 0 {
		return ErrEmptySheet
	}
	return nil
}
