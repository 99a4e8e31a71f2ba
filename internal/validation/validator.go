// =============================================================================
// Deliberation List Generator - Validation Engine
// =============================================================================
//
// Records that pass the merge are still checked field by field so that data
// entry problems can be fixed upstream. Every finding is a warning: a record
// is never removed because of it.
//
// CHECKS:
//   - sex:        value in a known vocabulary (M, F, Homme, Femme, ...)
//   - birth_date: parseable with one of the common date layouts
//   - phone:      digits, spaces, "+", "-", "." and parentheses only
//   - area:       a decimal number (comma or dot separator)
//
// Multi-line cells are checked line by line; the line number is reported so
// the warning points at one claimant.
//
// =============================================================================

package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
)

// =============================================================================
// WARNING TYPES
// =============================================================================

// Severity levels. Only warnings are produced today; errors are reserved for
// custom rules registered by callers.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Warning is a single field finding.
type Warning struct {
	Severity string `json:"severity"`

	// Row is the spreadsheet row of the record.
	Row int `json:"row"`

	// ParcelID is the record identifier (nicad, parcel number or "unknown").
	ParcelID string `json:"parcel_id"`

	Field columns.CanonicalField `json:"field"`

	// Line is the 1-based claimant line inside a multi-line cell.
	Line int `json:"line"`

	Value   string `json:"value"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (w Warning) Error() string {
	return fmt.Sprintf("[%s] row %d, parcel %s, field '%s' line %d: %s (value: '%s')",
		strings.ToUpper(w.Severity),
		w.Row,
		w.ParcelID,
		w.Field,
		w.Line,
		w.Message,
		w.Value,
	)
}

// Record is what the validator reads. Deliberation records satisfy it.
type Record interface {
	SourceRow() int
	Identifier() string
	Value(field columns.CanonicalField) string
}

// =============================================================================
// RULES
// =============================================================================

// Rule checks one value and returns a message when it is not acceptable.
type Rule struct {
	Name     string
	Field    columns.CanonicalField
	Severity string
	Check    func(value string) string
}

// DefaultRules returns the built-in checks.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "sex_vocabulary", Field: columns.Sex, Severity: SeverityWarning, Check: validateSex},
		{Name: "date", Field: columns.BirthDate, Severity: SeverityWarning, Check: validateDate},
		{Name: "phone_characters", Field: columns.Phone, Severity: SeverityWarning, Check: validatePhone},
		{Name: "decimal", Field: columns.Area, Severity: SeverityWarning, Check: validateDecimal},
	}
}

// Validator runs rules over records.
type Validator struct {
	rules []Rule
}

// NewValidator creates a Validator with the default rules plus any extra
// rules given.
func NewValidator(extra ...Rule) *Validator {
	return &Validator{rules: append(DefaultRules(), extra...)}
}

// Validate runs the default rules.
func Validate[R Record](records []R) []Warning {
	return NewValidator().ValidateAll(toRecords(records))
}

func toRecords[R Record](records []R) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

// ValidateAll checks every record and returns the findings in record order.
func (v *Validator) ValidateAll(records []Record) []Warning {
	var warnings []Warning
	for _, record := range records {
		warnings = append(warnings, v.ValidateRecord(record)...)
	}
	return warnings
}

// ValidateRecord checks one record.
func (v *Validator) ValidateRecord(record Record) []Warning {
	var warnings []Warning

	for _, rule := range v.rules {
		cell := record.Value(rule.Field)
		if cell == "" {
			continue
		}

		for i, line := range strings.Split(cell, "\n") {
			line = strings.TrimSpace(line)
			if normalize.IsMissing(line) {
				continue
			}
			msg := rule.Check(line)
			if msg == "" {
				continue
			}
			severity := rule.Severity
			if severity == "" {
				severity = SeverityWarning
			}
			warnings = append(warnings, Warning{
				Severity: severity,
				Row:      record.SourceRow(),
				ParcelID: record.Identifier(),
				Field:    rule.Field,
				Line:     i + 1,
				Value:    line,
				Rule:     rule.Name,
				Message:  msg,
			})
		}
	}

	return warnings
}

// =============================================================================
// FIELD VALIDATORS
// =============================================================================

// sexValues is the accepted vocabulary, folded.
var sexValues = map[string]bool{
	"m": true, "f": true, "h": true,
	"homme": true, "femme": true,
	"masculin": true, "feminin": true,
	"male": true, "female": true,
}

func validateSex(value string) string {
	if !sexValues[normalize.FoldHeader(value)] {
		return fmt.Sprintf("Value '%s' is not a recognized sex", value)
	}
	return ""
}

// dateLayouts are the birth date layouts seen in field exports, day first
// before month first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"01/02/2006",
	"20060102",
	"2006",
}

func validateDate(value string) string {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("Value '%s' is not a valid date", value)
}

// ParseDate parses a value with the accepted layouts.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validatePhone(value string) string {
	digits := 0
	for _, r := range value {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '.' || r == '(' || r == ')' || r == '/':
		default:
			return fmt.Sprintf("Value '%s' contains characters not allowed in a phone number", value)
		}
	}
	if digits == 0 {
		return fmt.Sprintf("Value '%s' contains no digits", value)
	}
	return ""
}

func validateDecimal(value string) string {
	if _, ok := ParseDecimal(value); !ok {
		return fmt.Sprintf("Value '%s' is not a valid decimal number", value)
	}
	return ""
}

// ParseDecimal accepts "1.5", "1,5" and "1 500".
func ParseDecimal(value string) (float64, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatWarnings formats warnings for display or logging.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return "No validation warnings."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d warning(s):\n\n", len(warnings)))
	for i, w := range warnings {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, w.Error()))
	}
	return builder.String()
}

// CountByRule summarizes warnings per rule, sorted by rule name.
func CountByRule(warnings []Warning) []RuleCount {
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[w.Rule]++
	}
	out := make([]RuleCount, 0, len(counts))
	for rule, n := range counts {
		out = append(out, RuleCount{Rule: rule, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rule < out[j].Rule })
	return out
}

// RuleCount is the number of warnings raised by one rule.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}
