// =============================================================================
// Deliberation List Generator - Transformation Engine
// =============================================================================
//
// Applies the configured transformation rules to the columns of an export
// table just before it is written. Typical uses:
//   - Zero-padding identity document numbers
//   - Normalizing phone numbers (extract_digits)
//   - Reformatting birth dates
//   - Mapping land-use codes to labels (lookup)
//
// MULTI-LINE CELLS:
//   Collective lists hold one line per claimant in the claimant columns.
//   Actions apply to each line on its own and never add or remove lines,
//   so the n-th line of every claimant column still describes the same
//   person.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/config"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/normalize"
	"github.com/boundou-sig/deliblist/internal/validation"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer handles column value transformations.
type Transformer struct {
	rules   []config.TransformationRule
	regexes map[string]*regexp.Regexp
}

// NewTransformer checks the rules and compiles their regular expressions.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:   rules,
		regexes: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !config.IsActionType(action.Type) {
				return nil, fmt.Errorf("column %s: unknown transformation type: %s", rule.Column, action.Type)
			}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("column %s: invalid regex pattern: %w", rule.Column, err)
				}
				t.regexes[action.Find] = re
			}
		}
	}

	return t, nil
}

// Empty reports whether there is nothing to apply.
func (t *Transformer) Empty() bool {
	return len(t.rules) == 0
}

// TransformTable returns a transformed copy of table. The input is left
// untouched.
func (t *Transformer) TransformTable(table export.Table) (export.Table, error) {
	if t.Empty() {
		return table, nil
	}

	out := table.Clone()
	for _, rule := range t.rules {
		col := columnIndex(out.Columns, rule.Column)
		if col < 0 {
			continue
		}
		for i := range out.Rows {
			value, err := t.TransformCell(out.Rows[i][col], rule.Actions)
			if err != nil {
				return table, fmt.Errorf("row %d, column %s: %w", i+1, out.Columns[col].Header, err)
			}
			out.Rows[i][col] = value
		}
	}
	return out, nil
}

// Unmatched lists the rule columns that are not part of table.
func (t *Transformer) Unmatched(table export.Table) []string {
	var missing []string
	for _, rule := range t.rules {
		if columnIndex(table.Columns, rule.Column) < 0 {
			missing = append(missing, rule.Column)
		}
	}
	return missing
}

// TransformCell applies actions to every line of a cell. Cells the record
// does not have ("") are left alone.
func (t *Transformer) TransformCell(cell string, actions []config.TransformationAction) (string, error) {
	if cell == "" {
		return cell, nil
	}

	lines := strings.Split(cell, deliberation.MultiValueSeparator)
	for i, line := range lines {
		for _, action := range actions {
			var err error
			line, err = t.apply(line, action)
			if err != nil {
				return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
			}
		}
		// A line break inside a value would shift the claimant lines.
		lines[i] = strings.ReplaceAll(line, deliberation.MultiValueSeparator, " ")
	}
	return strings.Join(lines, deliberation.MultiValueSeparator), nil
}

// columnIndex finds a column by output header or canonical field name.
func columnIndex(cols []export.Column, name string) int {
	folded := normalize.FoldHeader(name)
	for i, c := range cols {
		if normalize.FoldHeader(c.Header) == folded {
			return i
		}
	}
	if field, err := columns.ParseField(name); err == nil {
		for i, c := range cols {
			if c.Field == field {
				return i
			}
		}
	}
	return -1
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

func (t *Transformer) apply(value string, action config.TransformationAction) (string, error) {
	if action.Type == "regex_replace" && action.Find != "" {
		return t.regexes[action.Find].ReplaceAllString(value, action.Value), nil
	}
	return ApplyTransformation(value, action)
}

// ApplyTransformation applies a single transformation action to one value.
//
// Missing values ("-") only react to if_empty_use_default; every other
// action leaves them as they are.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	if action.Type == "if_empty_use_default" {
		// Use a default value if the field is empty.
		//
		// EXAMPLE:
		//   Input: "-"
		//   Action: if_empty_use_default with value "Non renseigne"
		//   Output: "Non renseigne"
		if normalize.IsMissing(value) {
			return action.Value, nil
		}
		return value, nil
	}
	if normalize.IsMissing(value) {
		return value, nil
	}

	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "title_case":
		// "aminata NDIAYE" becomes "Aminata Ndiaye".
		return cases.Title(language.French).String(value), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		// Replace a substring with another.
		//
		// EXAMPLE:
		//   Input: "Agri."
		//   Action: replace with find "Agri." and value "Agricole"
		//   Output: "Agricole"
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " ")), nil

	case "extract_digits":
		// "+221 77-000-00-01" becomes "221770000001".
		return strings.Join(digitsPattern.FindAllString(value, -1), ""), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// Pad with leading zeros to a specific length.
		//
		// EXAMPLE:
		//   Input: "12345"
		//   Action: pad_zeros_to_length with value "9"
		//   Output: "000012345"
		targetLength, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil || targetLength <= 0 {
			return value, nil
		}
		return PadLeft(value, targetLength, '0'), nil

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case "format_date":
		// Convert a date to another layout.
		//
		// VALUE FORMAT: "input_layout|output_layout" or just "output_layout".
		// Without an input layout the usual field layouts are tried.
		//
		// EXAMPLE:
		//   Input: "1980-01-15"
		//   Action: format_date with value "02/01/2006"
		//   Output: "15/01/1980"
		inputLayout, outputLayout, found := strings.Cut(action.Value, "|")
		if !found {
			inputLayout, outputLayout = "", inputLayout
		}
		inputLayout, outputLayout = strings.TrimSpace(inputLayout), strings.TrimSpace(outputLayout)
		if outputLayout == "" {
			return value, nil
		}

		if inputLayout != "" {
			parsed, err := time.Parse(inputLayout, value)
			if err != nil {
				return value, nil
			}
			return parsed.Format(outputLayout), nil
		}
		parsed, ok := validation.ParseDate(value)
		if !ok {
			return value, nil
		}
		return parsed.Format(outputLayout), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// Replace a value using a lookup table. Unknown values are kept.
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length in characters.
func PadLeft(s string, length int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
