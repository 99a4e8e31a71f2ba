package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet of an exported list.
const SheetName = "Deliberation"

const (
	// numFmtText is the built-in "@" number format.
	numFmtText = 49

	minColWidth = 10
	maxColWidth = 50
)

// WriteXLSX writes the table as a one-sheet workbook.
//
// Text columns get the "@" number format and string cells. Other columns
// store numbers as numbers when the value is a single line that converts
// back to the same string. Every cell wraps so multi-line claimant cells
// stay readable.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{
		NumFmt:    numFmtText,
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create text style: %w", err)
	}

	defaultStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	widths := make([]int, len(t.Columns))

	for j, column := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, cell, column.Header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", column.Header, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return err
		}
		widths[j] = longestLine(column.Header)
	}

	for i, row := range t.Rows {
		for j, column := range t.Columns {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			value := row[j]

			style := defaultStyle
			if column.Type == TypeText {
				style = textStyle
				err = f.SetCellStr(SheetName, cell, value)
			} else if n, ok := exactNumber(value); ok {
				err = f.SetCellFloat(SheetName, cell, n, -1, 64)
			} else {
				err = f.SetCellStr(SheetName, cell, value)
			}
			if err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
				return err
			}

			if l := longestLine(value); l > widths[j] {
				widths[j] = l
			}
		}
	}

	for j, width := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		width = max(minColWidth, min(maxColWidth, width+2))
		if err := f.SetColWidth(SheetName, col, col, float64(width)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// exactNumber parses single-line values whose numeric form prints back
// identically, so "0012" and "1e3" stay text.
func exactNumber(value string) (float64, bool) {
	if value == "" || strings.ContainsAny(value, "\n ") {
		return 0, false
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatFloat(n, 'f', -1, 64) != value {
		return 0, false
	}
	return n, true
}

func longestLine(s string) int {
	longest := 0
	for _, line := range strings.Split(s, "\n") {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	return longest
}
