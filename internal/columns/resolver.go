// =============================================================================
// Deliberation List Generator - Column Resolver
// =============================================================================
//
// Uploaded files name the same column in many ways: "Num_piece",
// "NUMERO_PIECE_ID", "Numéro pièce". The resolver finds, for every canonical
// field, the header index that best matches it.
//
// MATCHING ORDER:
//   1. Exact match (case and accent insensitive) against the candidate names,
//      in priority order.
//   2. Fuzzy fallback: the first non-blank, unclaimed header that contains the field's
//      primary name or, for headers of four characters or more, is
//      contained in it.
//   3. The same containment test against every candidate name.
//   4. Otherwise the field is absent (NotFound).
//
// Absence is a normal outcome. Callers read cells through CellValue, which
// returns "" for absent columns and "-" for recognized but empty cells.
//
// =============================================================================

package columns

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/boundou-sig/deliblist/internal/normalize"
	"github.com/boundou-sig/deliblist/internal/types"
)

// NotFound is the index of a field with no matching header.
const NotFound = -1

// minReverseMatch is the shortest header accepted when the header is found
// inside a candidate name rather than the other way round.
const minReverseMatch = 4

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// Mapping maps canonical fields to header indices. It is computed once per
// file and only ever holds indices valid for that file's header row.
type Mapping struct {
	indices map[CanonicalField]int
	headers []string
}

// Index returns the column index of a field, or NotFound.
func (m Mapping) Index(field CanonicalField) int {
	if idx, ok := m.indices[field]; ok {
		return idx
	}
	return NotFound
}

// Found reports whether a header was resolved for the field.
func (m Mapping) Found(field CanonicalField) bool {
	return m.Index(field) != NotFound
}

// Header returns the header name resolved for a field, or "".
func (m Mapping) Header(field CanonicalField) string {
	idx := m.Index(field)
	if idx == NotFound || idx >= len(m.headers) {
		return ""
	}
	return m.headers[idx]
}

// Fields returns the resolved fields in canonical order.
func (m Mapping) Fields() []CanonicalField {
	fields := make([]CanonicalField, 0, len(m.indices))
	for field := range m.indices {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		return fieldOrder(fields[i]) < fieldOrder(fields[j])
	})
	return fields
}

// Value reads a field's cell from a row. See CellValue.
func (m Mapping) Value(row types.Row, field CanonicalField) string {
	return CellValue(row, m.Index(field))
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve finds the best header index for every field in synonyms.
//
// Exact matches are settled for all fields before any fuzzy matching, and a
// header taken by one field is not offered to another field's fuzzy
// fallback. Without that, a sheet missing "Nom" would hand "Prenom" to the
// last name.
func Resolve(headers []string, synonyms Synonyms) Mapping {
	folded := foldAll(headers)

	m := Mapping{
		indices: make(map[CanonicalField]int, len(synonyms)),
		headers: headers,
	}

	fields := make([]CanonicalField, 0, len(synonyms))
	for field := range synonyms {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		if oi, oj := fieldOrder(fields[i]), fieldOrder(fields[j]); oi != oj {
			return oi < oj
		}
		return fields[i] < fields[j]
	})

	claimed := make(map[int]bool)
	for _, field := range fields {
		if idx := exactMatch(folded, synonyms[field]); idx != NotFound {
			m.indices[field] = idx
			claimed[idx] = true
		}
	}

	for _, field := range fields {
		if _, ok := m.indices[field]; ok {
			continue
		}
		if idx := fuzzyMatch(folded, field, synonyms[field], claimed); idx != NotFound {
			m.indices[field] = idx
			claimed[idx] = true
		}
	}

	return m
}

// ResolveField runs the matching order for a single field.
func ResolveField(headers []string, field CanonicalField, candidates []string) int {
	folded := foldAll(headers)
	if idx := exactMatch(folded, candidates); idx != NotFound {
		return idx
	}
	return fuzzyMatch(folded, field, candidates, nil)
}

func foldAll(headers []string) []string {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = normalize.FoldHeader(h)
	}
	return folded
}

// exactMatch tries candidates in priority order, then headers in order.
func exactMatch(folded []string, candidates []string) int {
	for _, candidate := range candidates {
		key := normalize.FoldHeader(candidate)
		if key == "" {
			continue
		}
		for i, h := range folded {
			if h == key {
				return i
			}
		}
	}
	return NotFound
}

// fuzzyMatch runs the containment fallback on the primary name, then on
// every candidate. Claimed headers are skipped.
func fuzzyMatch(folded []string, field CanonicalField, candidates []string, claimed map[int]bool) int {
	keys := make([]string, 0, len(candidates)+1)
	if primary := PrimaryName(field); primary != "" {
		keys = append(keys, normalize.FoldHeader(primary))
	}
	for _, candidate := range candidates {
		keys = append(keys, normalize.FoldHeader(candidate))
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		for i, h := range folded {
			if h == "" || claimed[i] {
				continue
			}
			if strings.Contains(h, key) {
				return i
			}
			// Very short headers ("Nom", "Tel") are contained in too many
			// names to be trusted in this direction.
			if utf8.RuneCountInString(h) >= minReverseMatch && strings.Contains(key, h) {
				return i
			}
		}
	}

	return NotFound
}

// CellValue returns the cleaned cell at idx, or "" when idx is NotFound or
// out of range for this row (short rows are common in CSV exports).
func CellValue(row types.Row, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return normalize.Clean(row[idx])
}
