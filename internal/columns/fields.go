package columns

import (
	"fmt"
	"strings"
)

// CanonicalField is a field of a deliberation record, independent of how a
// given upload names its column.
type CanonicalField string

const (
	Village          CanonicalField = "village"
	LandTitleID      CanonicalField = "land_title_id"
	ParcelNumber     CanonicalField = "parcel_number"
	FirstName        CanonicalField = "first_name"
	LastName         CanonicalField = "last_name"
	Sex              CanonicalField = "sex"
	IDDocumentNumber CanonicalField = "id_document_number"
	Phone            CanonicalField = "phone"
	BirthDate        CanonicalField = "birth_date"
	Residence        CanonicalField = "residence"
	Area             CanonicalField = "area"
	LandUseVocation  CanonicalField = "land_use_vocation"
	LandUseType      CanonicalField = "land_use_type"
)

// All lists every canonical field in output order.
var All = []CanonicalField{
	Village, LandTitleID, ParcelNumber, FirstName, LastName, Sex,
	IDDocumentNumber, Phone, BirthDate, Residence, Area,
	LandUseVocation, LandUseType,
}

// primaryNames are the canonical headers of the collective deliberation list.
// They double as the fuzzy-match key of each field.
var primaryNames = map[CanonicalField]string{
	Village:          "Village",
	LandTitleID:      "nicad",
	ParcelNumber:     "Num_parcel_2",
	FirstName:        "Prenom",
	LastName:         "Nom",
	Sex:              "Sexe",
	IDDocumentNumber: "Numero_piece",
	Phone:            "Telephone",
	BirthDate:        "Date_naissance",
	Residence:        "Residence",
	Area:             "superficie",
	LandUseVocation:  "Vocation_1",
	LandUseType:      "type_usa",
}

// PrimaryName returns the canonical header of a field.
func PrimaryName(field CanonicalField) string {
	return primaryNames[field]
}

// ParseField accepts either the canonical field name or its primary header.
func ParseField(s string) (CanonicalField, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, field := range All {
		if string(field) == key || strings.ToLower(primaryNames[field]) == key {
			return field, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

func fieldOrder(field CanonicalField) int {
	for i, f := range All {
		if f == field {
			return i
		}
	}
	return len(All)
}

// =============================================================================
// SYNONYMS
// =============================================================================

// Synonyms maps each field to its candidate header names, highest priority
// first.
type Synonyms map[CanonicalField][]string

// DefaultSynonyms returns the header names seen in the field teams' exports.
// A fresh map is returned on every call.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		Village:          {"Village", "Nom_village", "Localite"},
		LandTitleID:      {"nicad", "Num_nicad", "NICAD_parcelle"},
		ParcelNumber:     {"Num_parcel_2", "Num_parcel", "Numero_parcelle", "num_parcelle"},
		FirstName:        {"Prenom", "Prenoms", "first_name"},
		LastName:         {"Nom", "nom_famille", "last_name"},
		Sex:              {"Sexe", "Sex", "Genre"},
		IDDocumentNumber: {"Num_piece", "Numero_piece", "NIN", "CNI"},
		Phone:            {"Telephone", "Tel", "Phone", "Contact"},
		BirthDate:        {"Date_naiss", "Date_naissance", "Date_nais"},
		Residence:        {"Residence", "Lieu_residence"},
		Area:             {"superficie", "Superficie_ha", "Surface"},
		LandUseVocation:  {"Vocation_1", "Vocation", "vocation_terre"},
		LandUseType:      {"type_usa", "type_usag", "type_usage"},
	}
}

// Subset keeps only the given fields.
func (s Synonyms) Subset(fields ...CanonicalField) Synonyms {
	out := make(Synonyms, len(fields))
	for _, field := range fields {
		if candidates, ok := s[field]; ok {
			out[field] = candidates
		}
	}
	return out
}

// With returns a copy where the given header name is tried first for field.
func (s Synonyms) With(field CanonicalField, name string) Synonyms {
	out := s.Clone()
	out[field] = append([]string{name}, out[field]...)
	return out
}

// Extend appends extra candidates, typically from the configuration file.
// Unknown field keys are reported as an error.
func (s Synonyms) Extend(extra map[string][]string) (Synonyms, error) {
	out := s.Clone()
	for key, names := range extra {
		field, err := ParseField(key)
		if err != nil {
			return nil, err
		}
		out[field] = append(out[field], names...)
	}
	return out, nil
}

// Clone returns a deep copy.
func (s Synonyms) Clone() Synonyms {
	out := make(Synonyms, len(s))
	for field, candidates := range s {
		out[field] = append([]string(nil), candidates...)
	}
	return out
}
