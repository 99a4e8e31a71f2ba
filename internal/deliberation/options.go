package deliberation

import (
	"fmt"
	"strings"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
	"github.com/boundou-sig/deliblist/internal/types"
)

// IdentificationRule decides which identifiers a record needs to be kept.
type IdentificationRule string

const (
	// RequireTitle keeps only records with a land title id (nicad).
	RequireTitle IdentificationRule = "title"

	// RequireTitleOrParcel accepts the parcel number when nicad is missing.
	RequireTitleOrParcel IdentificationRule = "title_or_parcel"
)

// ParseIdentificationRule validates a rule name from configuration.
func ParseIdentificationRule(s string) (IdentificationRule, error) {
	switch IdentificationRule(strings.ToLower(strings.TrimSpace(s))) {
	case RequireTitle:
		return RequireTitle, nil
	case RequireTitleOrParcel:
		return RequireTitleOrParcel, nil
	}
	return "", fmt.Errorf("unknown identification rule %q (expected %q or %q)", s, RequireTitle, RequireTitleOrParcel)
}

// check returns a rejection reason when the identifiers do not satisfy the
// rule.
func (r IdentificationRule) check(titleID, parcelNumber string) (string, bool) {
	hasTitle := !normalize.IsMissing(titleID)
	hasParcel := !normalize.IsMissing(parcelNumber)

	switch r {
	case RequireTitleOrParcel:
		if !hasTitle && !hasParcel {
			return "missing land title id (nicad) and parcel number", false
		}
	default:
		if !hasTitle {
			return "missing land title id (nicad)", false
		}
	}
	return "", true
}

// Options tune a processing pass. The zero value uses the built-in synonyms
// and the default identification rule of each submission type.
type Options struct {
	// Synonyms overrides the header names tried for each field.
	Synonyms columns.Synonyms

	// Individual and Collective override the identification rule per type.
	Individual IdentificationRule
	Collective IdentificationRule
}

func (o Options) synonyms() columns.Synonyms {
	if o.Synonyms == nil {
		return columns.DefaultSynonyms()
	}
	return o.Synonyms
}

func (o Options) identification(t types.SubmissionType) IdentificationRule {
	switch t {
	case types.Collective:
		if o.Collective != "" {
			return o.Collective
		}
		return RequireTitleOrParcel
	default:
		if o.Individual != "" {
			return o.Individual
		}
		return RequireTitle
	}
}
