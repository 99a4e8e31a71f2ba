// =============================================================================
// Deliberation List Generator - Export Assembler
// =============================================================================
//
// Records become a Table: an ordered list of columns with a type hint each,
// and one string row per record. The writers (XLSX, CSV) only see the Table.
//
// COLUMN RULES:
//   - The order is fixed per submission type (see individualLayout and
//     collectiveLayout).
//   - A column is kept only if at least one record has a value for it.
//   - Identifier columns are typed as text so that leading zeros and long
//     digit strings survive the round trip through a spreadsheet.
//
// =============================================================================

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/pkg/utils"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// =============================================================================
// COLUMNS
// =============================================================================

// ColumnType is the type hint handed to the writers.
type ColumnType string

const (
	// TypeDefault lets the writer store numbers as numbers.
	TypeDefault ColumnType = "default"

	// TypeText forces a text cell.
	TypeText ColumnType = "text"
)

// Column is one output column.
type Column struct {
	Header string                 `json:"header"`
	Field  columns.CanonicalField `json:"field"`
	Type   ColumnType             `json:"type"`
}

func text(header string, field columns.CanonicalField) Column {
	return Column{Header: header, Field: field, Type: TypeText}
}

func plain(header string, field columns.CanonicalField) Column {
	return Column{Header: header, Field: field, Type: TypeDefault}
}

// individualLayout is the column order of an individual deliberation list.
var individualLayout = []Column{
	plain("Village", columns.Village),
	text("nicad", columns.LandTitleID),
	text("Num_parcel_2", columns.ParcelNumber),
	plain("Prenom", columns.FirstName),
	plain("Nom", columns.LastName),
	plain("Date_naiss", columns.BirthDate),
	plain("superficie", columns.Area),
	text("Num_piece", columns.IDDocumentNumber),
	text("Telephone", columns.Phone),
	plain("Vocation", columns.LandUseVocation),
	plain("type_usag", columns.LandUseType),
	plain("Sexe", columns.Sex),
}

// collectiveLayout is the column order of a collective deliberation list.
// Claimant columns hold one line per claimant.
var collectiveLayout = []Column{
	plain("Village", columns.Village),
	text("nicad", columns.LandTitleID),
	text("Num_parcel_2", columns.ParcelNumber),
	plain("Prenom", columns.FirstName),
	plain("Nom", columns.LastName),
	plain("Sexe", columns.Sex),
	text("Numero_piece", columns.IDDocumentNumber),
	text("Telephone", columns.Phone),
	text("Date_naissance", columns.BirthDate),
	plain("Residence", columns.Residence),
	plain("superficie", columns.Area),
	plain("Vocation_1", columns.LandUseVocation),
	plain("type_usa", columns.LandUseType),
}

// Layout returns the full column order of a submission type.
func Layout(mode types.SubmissionType) []Column {
	var layout []Column
	if mode == types.Collective {
		layout = collectiveLayout
	} else {
		layout = individualLayout
	}
	return append([]Column(nil), layout...)
}

// =============================================================================
// TABLE
// =============================================================================

// Table is the writer-independent form of a deliberation list.
type Table struct {
	Mode    types.SubmissionType `json:"mode"`
	Columns []Column             `json:"columns"`
	Rows    [][]string           `json:"rows"`
}

// BuildTable orders the record values per the layout of mode, dropping
// columns that no record fills.
func BuildTable(mode types.SubmissionType, records []deliberation.Record) Table {
	table := Table{Mode: mode}

	for _, column := range Layout(mode) {
		for _, record := range records {
			if record.Value(column.Field) != "" {
				table.Columns = append(table.Columns, column)
				break
			}
		}
	}

	table.Rows = make([][]string, len(records))
	for i, record := range records {
		row := make([]string, len(table.Columns))
		for j, column := range table.Columns {
			row[j] = record.Value(column.Field)
		}
		table.Rows[i] = row
	}

	return table
}

// FromResult builds the table of a processing result.
func FromResult(result *deliberation.Result) Table {
	return BuildTable(result.Type, result.Records())
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Head returns a table with the first n rows and the same columns.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Mode: t.Mode, Columns: t.Columns, Rows: t.Rows[:n]}
}

// Clone returns a deep copy, safe to transform in place.
func (t Table) Clone() Table {
	out := Table{
		Mode:    t.Mode,
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Maps returns one header-keyed map per row, the shape served as JSON.
func (t Table) Maps() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			m[c.Header] = row[j]
		}
		out[i] = m
	}
	return out
}

// =============================================================================
// FORMATS AND FILE NAMES
// =============================================================================

// Format is an output file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// DefaultFileNameFormat is used when the configuration sets none.
const DefaultFileNameFormat = "liste_deliberation_{mode}_{date}"

// FileName builds the output file name of a list. The name always carries
// the mode tag and a date stamp, even when pattern omits them.
func FileName(pattern string, mode types.SubmissionType, format Format, source string, now time.Time) string {
	if pattern == "" {
		pattern = DefaultFileNameFormat
	}
	switch strings.ToLower(filepath.Ext(pattern)) {
	case ".xlsx", ".csv":
		pattern = strings.TrimSuffix(pattern, filepath.Ext(pattern))
	}
	if !strings.Contains(pattern, "{mode}") {
		pattern += "_{mode}"
	}
	if !strings.Contains(pattern, "{date}") && !strings.Contains(pattern, "{timestamp}") {
		pattern += "_{date}"
	}

	original := ""
	if source != "" {
		base := filepath.Base(source)
		original = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return utils.GenerateOutputFileName(pattern, map[string]string{
		"mode":     string(mode),
		"original": original,
	}, "."+string(format), now)
}
