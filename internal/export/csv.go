package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVOptions control the CSV writer.
type CSVOptions struct {
	// Delimiter defaults to ','.
	Delimiter rune

	// BOM prefixes the output with a UTF-8 byte order mark, which spreadsheet
	// tools need to detect the encoding of accented names.
	BOM bool
}

const utf8BOM = "\ufeff"

// WriteCSV writes the table as CSV. Multi-line cells are quoted by the
// encoder; type hints do not apply.
func WriteCSV(w io.Writer, t Table, opts CSVOptions) error {
	if opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	if err := writer.Write(t.Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Write dispatches on format.
func Write(w io.Writer, t Table, format Format, csvOpts CSVOptions) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatCSV:
		return WriteCSV(w, t, csvOpts)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
