// =============================================================================
// Deliberation List Generator - Claimant Column Groups
// =============================================================================
//
// A collective sheet repeats the claimant columns once per claimant slot:
//
//   Prenom_M  Nom_M  Sexe_M  ...   <- representative (mandataire)
//   Prenom_1  Nom_1  Sexe_1  ...   <- slot 1
//   Prenom_2  Nom_2  Telephon4 ... <- slot 2
//
// The naming is irregular, so slots are discovered in two phases:
//   1. A declarative rule table maps a header to (field, group id).
//   2. One classification pass over the header row builds
//      group id -> field -> column index.
//
// The representative is not a slot. Its columns have fixed names with their
// own fallback chains (see representativeColumns), extended with every header
// the slot rules read with a reserved suffix.
//
// =============================================================================

package deliberation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
)

// PhoneReservedSlots is the number of "TelephonN" columns reserved for the
// representative. Slot N reads its phone from Telephon(N+PhoneReservedSlots).
const PhoneReservedSlots = 2

// DefaultGroupID is the slot of bare, unsuffixed claimant headers ("Prenom").
const DefaultGroupID = "1"

// ClaimantFields are the per-claimant fields of a collective sheet.
var ClaimantFields = []columns.CanonicalField{
	columns.FirstName,
	columns.LastName,
	columns.Sex,
	columns.IDDocumentNumber,
	columns.Phone,
	columns.BirthDate,
	columns.Residence,
}

// =============================================================================
// REPRESENTATIVE COLUMNS
// =============================================================================

// representativeColumns lists the preferred headers of the representative,
// tried in order until one holds a value. Any other header that a slot rule
// recognizes with a reserved suffix is appended to the chain in header order.
var representativeColumns = map[columns.CanonicalField][]string{
	columns.FirstName:        {"Prenom_M"},
	columns.LastName:         {"Nom_M"},
	columns.Sex:              {"Sexe_M", "Sexe_Mandataire", "Sexe_mand"},
	columns.IDDocumentNumber: {"Num_piece_M", "Numero_piece_M"},
	columns.Phone:            {"Telephone_M", "Telephon1", "Telephon2"},
	columns.BirthDate:        {"Date_nais_M", "Date_naiss_M"},
	columns.Residence:        {"Residence_M"},
}

// reservedSuffixes mark representative columns; they never form a slot.
var reservedSuffixes = map[string]bool{
	"m":          true,
	"mandataire": true,
}

// =============================================================================
// SLOT RULES
// =============================================================================

// slotRule recognizes the headers of one claimant field.
type slotRule struct {
	field   columns.CanonicalField
	pattern *regexp.Regexp

	// offset is subtracted from numeric suffixes. Results below 1 belong to
	// the representative and are ignored.
	offset int
}

// slotSuffix accepts "", "_1", "1", "_01", "_a" and the reserved "_m" /
// "_mandataire". Longer words ("Nom_village") are not claimant columns.
const slotSuffix = `(?:_?(\d+)|_([a-z]\d*|mandataire))?`

func newSlotRule(field columns.CanonicalField, prefix string, offset int) slotRule {
	return slotRule{
		field:   field,
		pattern: regexp.MustCompile(`^(?:` + prefix + `)` + slotSuffix + `$`),
		offset:  offset,
	}
}

// slotRules is evaluated in order against folded headers; the first match
// wins.
var slotRules = []slotRule{
	newSlotRule(columns.FirstName, `prenoms?`, 0),
	newSlotRule(columns.LastName, `nom`, 0),
	newSlotRule(columns.Sex, `sexe`, 0),
	newSlotRule(columns.IDDocumentNumber, `num(?:ero)?_piece`, 0),
	newSlotRule(columns.Phone, `telephone`, 0),
	{
		field:   columns.Phone,
		pattern: regexp.MustCompile(`^telephon(\d+)$`),
		offset:  PhoneReservedSlots,
	},
	newSlotRule(columns.BirthDate, `date?_naiss?(?:ance)?`, 0),
	newSlotRule(columns.Residence, `residence`, 0),
}

// match finds the slot rule of a folded header and returns its raw suffix.
func match(header string) (slotRule, string, bool) {
	folded := normalize.FoldHeader(header)
	if folded == "" {
		return slotRule{}, "", false
	}

	for _, rule := range slotRules {
		m := rule.pattern.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		for _, sub := range m[1:] {
			if sub != "" {
				return rule, sub, true
			}
		}
		return rule, "", true
	}

	return slotRule{}, "", false
}

// classify maps one header to its claimant field and group id.
// Representative headers are not slots and report false.
func classify(header string) (columns.CanonicalField, string, bool) {
	rule, suffix, ok := match(header)
	if !ok || reservedSuffixes[suffix] {
		return "", "", false
	}

	if rule.offset > 0 {
		n, err := strconv.Atoi(suffix)
		if err != nil || n-rule.offset < 1 {
			return "", "", false
		}
		suffix = strconv.Itoa(n - rule.offset)
	}

	return rule.field, NormalizeGroupID(suffix), true
}

// representativeField maps a header carrying a reserved suffix
// ("Prenoms_M", "Nom_Mandataire") to its claimant field.
func representativeField(header string) (columns.CanonicalField, bool) {
	rule, suffix, ok := match(header)
	if !ok || !reservedSuffixes[suffix] {
		return "", false
	}
	return rule.field, true
}

// NormalizeGroupID makes "01", "001" and "1" the same slot. Empty ids and
// ids made only of zeros become DefaultGroupID.
func NormalizeGroupID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return DefaultGroupID
	}
	if isDigits(id) {
		id = strings.TrimLeft(id, "0")
		if id == "" {
			return DefaultGroupID
		}
	}
	return id
}

// LessGroupID orders group ids numerically; non-numeric ids sort after every
// numeric id, ties broken by string order.
func LessGroupID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// =============================================================================
// LAYOUT
// =============================================================================

// GroupColumns maps a claimant field to its column index within one slot.
type GroupColumns map[columns.CanonicalField]int

// index returns the column of a field, or columns.NotFound.
func (g GroupColumns) index(field columns.CanonicalField) int {
	if idx, ok := g[field]; ok {
		return idx
	}
	return columns.NotFound
}

// Layout is the claimant structure of a collective header row. It is
// computed once per file.
type Layout struct {
	// Representative holds the reserved columns, one chain per field, with
	// only the headers present in the file.
	Representative map[columns.CanonicalField][]int

	// GroupIDs are the discovered slots in comparator order.
	GroupIDs []string

	// Groups maps a slot to its columns.
	Groups map[string]GroupColumns
}

// ClassifyHeaders builds the claimant layout of a header row. When two
// headers name the same (field, slot), the later one wins.
func ClassifyHeaders(headers []string) Layout {
	layout := Layout{
		Representative: make(map[columns.CanonicalField][]int),
		Groups:         make(map[string]GroupColumns),
	}

	claimed := make(map[int]bool)
	for _, field := range ClaimantFields {
		for _, name := range representativeColumns[field] {
			if idx := exactIndex(headers, name); idx != columns.NotFound && !claimed[idx] {
				layout.Representative[field] = append(layout.Representative[field], idx)
				claimed[idx] = true
			}
		}
	}
	for idx, header := range headers {
		if claimed[idx] {
			continue
		}
		if field, ok := representativeField(header); ok {
			layout.Representative[field] = append(layout.Representative[field], idx)
		}
	}

	for idx, header := range headers {
		field, id, ok := classify(header)
		if !ok {
			continue
		}
		group, exists := layout.Groups[id]
		if !exists {
			group = make(GroupColumns)
			layout.Groups[id] = group
			layout.GroupIDs = append(layout.GroupIDs, id)
		}
		group[field] = idx
	}

	sort.Slice(layout.GroupIDs, func(i, j int) bool {
		return LessGroupID(layout.GroupIDs[i], layout.GroupIDs[j])
	})

	return layout
}

// HasField reports whether any claimant column of the layout carries field.
func (l Layout) HasField(field columns.CanonicalField) bool {
	if len(l.Representative[field]) > 0 {
		return true
	}
	for _, group := range l.Groups {
		if _, ok := group[field]; ok {
			return true
		}
	}
	return false
}

// exactIndex finds a header by folded equality.
func exactIndex(headers []string, name string) int {
	key := normalize.FoldHeader(name)
	for i, h := range headers {
		if normalize.FoldHeader(h) == key {
			return i
		}
	}
	return columns.NotFound
}
