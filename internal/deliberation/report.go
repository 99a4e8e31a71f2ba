// =============================================================================
// Deliberation List Generator - Diagnostics
// =============================================================================
//
// The report is what the user sees after a run: how many rows came in, how
// many records went out, and why every other row was dropped. It is built
// once per pass and never modified afterwards.
//
// COUNT INVARIANT:
//   rejected_count + valid_output_count == total_input_rows
//
// Every dropped row must produce a rejection. Check reports a mismatch as
// ErrCountMismatch; the report is still returned so nothing is hidden.
//
// =============================================================================

package deliberation

import (
	"errors"
	"fmt"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/validation"
)

// ErrCountMismatch means some rows were dropped without a rejection reason.
var ErrCountMismatch = errors.New("rejected and valid counts do not add up to the input rows")

// Report summarizes one processing pass.
type Report struct {
	TotalInputRows   int      `json:"total_input_rows"`
	ValidOutputCount int      `json:"valid_output_count"`
	RejectedCount    int      `json:"rejected_count"`
	RejectionReasons []string `json:"rejection_reasons"`

	Columns  *ColumnAnalysis      `json:"columns,omitempty"`
	Warnings []validation.Warning `json:"warnings,omitempty"`
}

// BuildReport aggregates the counts of a pass. It has no side effects.
func BuildReport(totalRows, validRecords int, rejectionReasons []string) Report {
	reasons := make([]string, len(rejectionReasons))
	copy(reasons, rejectionReasons)
	return Report{
		TotalInputRows:   totalRows,
		ValidOutputCount: validRecords,
		RejectedCount:    len(reasons),
		RejectionReasons: reasons,
	}
}

// Check verifies the count invariant.
func (r Report) Check() error {
	if r.RejectedCount+r.ValidOutputCount != r.TotalInputRows {
		return fmt.Errorf("%w: %d rejected + %d valid != %d rows",
			ErrCountMismatch, r.RejectedCount, r.ValidOutputCount, r.TotalInputRows)
	}
	return nil
}

// reasons formats rejections for the report.
func reasons(rejections []Rejection) []string {
	out := make([]string, len(rejections))
	for i, r := range rejections {
		out[i] = r.String()
	}
	return out
}

// =============================================================================
// COLUMN ANALYSIS
// =============================================================================

// ResolvedColumn is a field and the header that carries it.
type ResolvedColumn struct {
	Field  columns.CanonicalField `json:"field"`
	Header string                 `json:"header"`
	Index  int                    `json:"index"`
}

// GroupSummary describes one discovered claimant slot.
type GroupSummary struct {
	ID      string           `json:"id"`
	Columns []ResolvedColumn `json:"columns"`
}

// ColumnAnalysis tells which columns of the file were understood.
type ColumnAnalysis struct {
	Resolved       []ResolvedColumn         `json:"resolved"`
	Missing        []columns.CanonicalField `json:"missing"`
	Representative []ResolvedColumn         `json:"representative,omitempty"`
	Groups         []GroupSummary           `json:"groups,omitempty"`
	Unused         []string                 `json:"unused"`
}

// AnalyzeIndividual describes how an individual header row is read.
func AnalyzeIndividual(headers []string, opts Options) *ColumnAnalysis {
	mapping := columns.Resolve(headers, opts.synonyms().Subset(IndividualFields...))
	analysis := &ColumnAnalysis{}
	used := make(map[int]bool)

	for _, field := range IndividualFields {
		analysis.addMapped(mapping, field, headers, used)
	}

	analysis.Unused = unused(headers, used)
	return analysis
}

// AnalyzeCollective describes how a collective header row is read, claimant
// slots included.
func AnalyzeCollective(headers []string, opts Options) *ColumnAnalysis {
	mapping := columns.Resolve(headers, opts.synonyms().Subset(parcelFields...))
	layout := ClassifyHeaders(headers)
	analysis := &ColumnAnalysis{}
	used := make(map[int]bool)

	for _, field := range parcelFields {
		analysis.addMapped(mapping, field, headers, used)
	}

	for _, field := range ClaimantFields {
		for _, idx := range layout.Representative[field] {
			analysis.Representative = append(analysis.Representative, ResolvedColumn{
				Field: field, Header: headers[idx], Index: idx,
			})
			used[idx] = true
		}
	}

	for _, id := range layout.GroupIDs {
		group := layout.Groups[id]
		summary := GroupSummary{ID: id}
		for _, field := range ClaimantFields {
			if idx, ok := group[field]; ok {
				summary.Columns = append(summary.Columns, ResolvedColumn{
					Field: field, Header: headers[idx], Index: idx,
				})
				used[idx] = true
			}
		}
		analysis.Groups = append(analysis.Groups, summary)
	}

	for _, field := range ClaimantFields {
		if !layout.HasField(field) {
			analysis.Missing = append(analysis.Missing, field)
		}
	}

	analysis.Unused = unused(headers, used)
	return analysis
}

func (a *ColumnAnalysis) addMapped(mapping columns.Mapping, field columns.CanonicalField, headers []string, used map[int]bool) {
	if !mapping.Found(field) {
		a.Missing = append(a.Missing, field)
		return
	}
	idx := mapping.Index(field)
	a.Resolved = append(a.Resolved, ResolvedColumn{Field: field, Header: headers[idx], Index: idx})
	used[idx] = true
}

func unused(headers []string, used map[int]bool) []string {
	var out []string
	for i, h := range headers {
		if !used[i] && h != "" {
			out = append(out, h)
		}
	}
	return out
}
