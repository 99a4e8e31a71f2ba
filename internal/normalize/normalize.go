// =============================================================================
// Deliberation List Generator - Value Normalizer
// =============================================================================
//
// Spreadsheet cells arrive in many shapes: strings from excelize, strings from
// a CSV export made by another spreadsheet tool, sometimes native numbers or
// dates. Clean turns any of them into the canonical display string used by
// the rest of the engine.
//
// CLEANING RULES:
//   - nil, "", "NaN" and "nan"          -> "-"
//   - "12345.0"                         -> "12345"
//   - "2020-01-01T00:00:00.000"         -> "2020-01-01"
//   - "2020-01-01 00:00:00"             -> "2020-01-01"
//   - leading/trailing whitespace       -> trimmed
//
// =============================================================================

package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Missing is the sentinel for a recognized but empty value.
const Missing = "-"

// midnightSuffixes are stripped from date-like strings, longest first so
// that "T00:00:00.000" is not left as ".000".
var midnightSuffixes = []string{
	"T00:00:00.000Z",
	"T00:00:00.000",
	"T00:00:00Z",
	"T00:00:00",
	" 00:00:00",
}

// Clean converts a raw cell into its canonical display string.
// It never panics and Clean(Clean(v)) == Clean(v) for every input.
func Clean(value any) string {
	s, ok := toString(value)
	if !ok {
		return Missing
	}

	// Each rule can expose another one ("1.0 " -> "1.0" -> "1"), so apply
	// them until the value is stable.
	for {
		next := cleanOnce(s)
		if next == s {
			break
		}
		s = next
	}

	if isNullLike(s) {
		return Missing
	}
	return s
}

// cleanOnce applies every rule a single time.
func cleanOnce(s string) string {
	s = strings.TrimSpace(s)
	if isNullLike(s) {
		return Missing
	}

	// Only a trailing marker after a date is a midnight suffix; offsets such
	// as "T00:00:00+01:00" and a bare "T00:00:00" are kept.
	for _, suffix := range midnightSuffixes {
		if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}

	s = strings.TrimSuffix(s, ".0")
	return strings.TrimSpace(s)
}

// isNullLike reports whether s is one of the null sentinels produced by
// spreadsheet exports.
func isNullLike(s string) bool {
	return s == "" || strings.EqualFold(s, "nan")
}

// toString coerces a cell to a string. The boolean is false for nil.
func toString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case float64:
		return formatFloat(v, 64), true
	case float32:
		return formatFloat(float64(v), 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02"), true
		}
		return v.Format("2006-01-02 15:04:05"), true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// formatFloat prints integral floats without a fractional part, which is
// what a user sees in the spreadsheet.
func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// =============================================================================
// HEADER FOLDING
// =============================================================================

// FoldHeader returns the comparison key of a header name: trimmed, lower
// case and without diacritics, so "Prénom " and "PRENOM" compare equal.
func FoldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// IsMissing reports whether a cleaned value carries no information.
func IsMissing(s string) bool {
	return s == "" || s == Missing
}
