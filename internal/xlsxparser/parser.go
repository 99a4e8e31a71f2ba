// =============================================================================
// Deliberation List Generator - XLSX Reader
// =============================================================================
//
// Reads an uploaded workbook into a types.Sheet:
//   - Only one sheet is read (the first by default)
//   - The first row is the header row, every following row is data
//   - Cells are the formatted strings excelize displays, so dates and
//     numbers look the way the field team typed them
//
// ROW NUMBERING:
//   Blank rows in the middle of the sheet are kept so that row numbers in
//   rejection messages match the spreadsheet. Trailing blank rows (left
//   over from formatting) are dropped.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/boundou-sig/deliblist/internal/types"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// =============================================================================
// OPTIONS
// =============================================================================

// Options select what is read from the workbook.
type Options struct {
	// Sheet is the worksheet name. Empty means the first sheet.
	Sheet string

	// RawValues returns the stored cell values instead of the displayed
	// ones (dates become serial numbers).
	RawValues bool

	// Password opens an encrypted workbook.
	Password string
}

// ParseWithOptions reads a workbook file.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - opts: Sheet selection and value mode.
//
// RETURNS:
//   - The sheet, with SourceName set to the file name.
//   - An error if the file cannot be opened or the sheet does not exist.
func ParseWithOptions(path string, opts Options) (*types.Sheet, error) {
	f, err := excelize.OpenFile(path, excelize.Options{Password: opts.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readSheet(f, filepath.Base(path), opts)
}

// Read reads a workbook from r, typically an HTTP upload.
func Read(r io.Reader, name string, opts Options) (*types.Sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{Password: opts.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readSheet(f, name, opts)
}

// SheetNames lists the worksheets of a workbook file. Only the password of
// opts is used.
func SheetNames(path string, opts Options) ([]string, error) {
	f, err := excelize.OpenFile(path, excelize.Options{Password: opts.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

func readSheet(f *excelize.File, name string, opts Options) (*types.Sheet, error) {
	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrNoSheets
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: opts.RawValues})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	return FromRecords(rows, name), nil
}

// FromRecords builds a sheet from string records: the first record is the
// header row.
func FromRecords(records [][]string, name string) *types.Sheet {
	sheet := &types.Sheet{SourceName: name}

	records = trimTrailingBlank(records)
	if len(records) == 0 {
		return sheet
	}

	sheet.Headers = cleanHeaders(records[0])
	sheet.Rows = types.StringRows(records[1:])
	return sheet
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims header names. Blank headers stay blank: the column
// resolver skips them.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}
	return cleaned
}

func trimTrailingBlank(records [][]string) [][]string {
	end := len(records)
	for end > 0 && IsRowEmpty(records[end-1]) {
		end--
	}
	return records[:end]
}

// IsRowEmpty checks if a row contains only empty cells.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
