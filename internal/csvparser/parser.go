// =============================================================================
// Deliberation List Generator - CSV Reader
// =============================================================================
//
// Reads a CSV export of a submission sheet into a types.Sheet. Field teams
// export from several tools, so the reader is lenient:
//   - Delimiters: comma, semicolon (French Excel), tab, pipe, or "auto"
//   - Encodings: UTF-8 (BOM stripped), Windows-1252, ISO-8859-1, ISO-8859-15
//   - Variable field counts and stray quotes are accepted
//
// The first record is the header row. As with workbooks, blank records in
// the middle are kept so that row numbers match the file, and trailing
// blank records are dropped.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/boundou-sig/deliblist/internal/config"
	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/internal/xlsxparser"
)

// ErrUnknownEncoding is returned for an encoding name the reader cannot decode.
var ErrUnknownEncoding = errors.New("unknown encoding")

// candidateDelimiters are tried, in order, by delimiter detection.
var candidateDelimiters = []rune{';', ',', '\t', '|'}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// Parse reads a CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter and encoding from the configuration.
//
// RETURNS:
//   - The sheet, with SourceName set to the file name.
//   - An error if the file cannot be read or decoded.
func Parse(filePath string, settings config.CSVSettings) (*types.Sheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file, filepath.Base(filePath), settings)
}

// Read reads CSV data from r.
//
// PARSING PROCESS:
//  1. Wrap r in a decoder for the configured encoding
//  2. Detect the delimiter from the header line when set to "auto"
//  3. Read every record leniently
//  4. Build the sheet (first record = headers)
func Read(r io.Reader, name string, settings config.CSVSettings) (*types.Sheet, error) {
	enc, err := Decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(transform.NewReader(r, enc.NewDecoder()))

	comma, err := delimiter(reader, settings.Delimiter)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, comma)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return xlsxparser.FromRecords(records, name), nil
}

// configureReader applies the lenient settings shared by every read.
func configureReader(reader *csv.Reader, comma rune) {
	reader.Comma = comma

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true
}

// =============================================================================
// DELIMITERS
// =============================================================================

// ParseDelimiter maps a configured delimiter name to its rune. Zero means
// the delimiter must be detected.
func ParseDelimiter(name string) (rune, error) {
	switch strings.ToLower(name) {
	case "", ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\\t", "\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	case "auto":
		return 0, nil
	}

	runes := []rune(name)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", name)
	}
	return runes[0], nil
}

// delimiter resolves the delimiter, peeking at the header line for "auto".
func delimiter(reader *bufio.Reader, name string) (rune, error) {
	comma, err := ParseDelimiter(name)
	if err != nil || comma != 0 {
		return comma, err
	}

	// Peek returns what it has along with an error when the input is short.
	head, _ := reader.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	return DetectDelimiter(string(head)), nil
}

// DetectDelimiter returns the candidate occurring most often outside quotes
// in the header line. Ties go to the earlier candidate; no candidate at all
// means a one-column file, read with a comma.
func DetectDelimiter(line string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	quoted := false
	for _, r := range line {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, c := range candidateDelimiters {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// =============================================================================
// ENCODINGS
// =============================================================================

// Decoder returns the encoding for a configured name. UTF-8 input has its
// byte order mark removed.
func Decoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.UTF8BOM, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "ISO-8859-15", "LATIN9", "LATIN-9":
		return charmap.ISO8859_15, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}
