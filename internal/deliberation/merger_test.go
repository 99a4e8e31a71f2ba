package deliberation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/types"
)

var scenarioHeaders = []string{"Village", "nicad", "Num_parcel_2", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1", "Sexe_1"}

func row(cells ...any) types.Row { return types.Row(cells) }

func TestMergeCollective_EndToEnd(t *testing.T) {
	records, rejections := MergeCollective(scenarioHeaders, []types.Row{
		row("Koulare", "NIC001", "P001", "Awa", "Diallo", "Moussa", "Sow", "M"),
	}, Options{})

	require.Empty(t, rejections)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Awa\nMoussa", r.FirstNames)
	assert.Equal(t, "Diallo\nSow", r.LastNames)
	assert.Equal(t, "-\nM", r.Sexes)
	assert.Equal(t, "Koulare", r.Village)
	assert.Equal(t, "NIC001", r.LandTitleID)
	assert.Equal(t, "P001", r.ParcelNumber)
	assert.Equal(t, 2, r.Claimants)
	assert.Equal(t, 2, r.Row)

	// Columns that do not exist in the file stay empty.
	assert.Equal(t, "", r.Area)
	assert.Equal(t, "", r.Residence)
}

func TestMergeCollective_EndToEndRejection(t *testing.T) {
	records, rejections := MergeCollective(scenarioHeaders, []types.Row{
		row("Koulare", "NIC002", "P002", "Awa", "Diallo", "", "", ""),
	}, Options{})

	assert.Empty(t, records)
	require.Len(t, rejections, 1)
	assert.Equal(t, "NIC002", rejections[0].ParcelID)
	assert.Equal(t, 1, rejections[0].Claimants)
	assert.Contains(t, rejections[0].String(), "NIC002")
	assert.Contains(t, rejections[0].String(), "found 1 claimant(s)")
}

func TestMergeCollective_ClaimantOrderConsistency(t *testing.T) {
	headers := []string{
		"nicad",
		"Prenom_M", "Nom_M", "Sexe_M", "Num_piece_M", "Telephone_M", "Date_nais_M",
		"Prenom_1", "Nom_1", "Sexe_1", "Num_piece_1", "Telephon3", "Date_nais1",
		"Prenom_2", "Nom_2", "Sexe_2", "Num_piece_2", "Telephon4", "Date_nais2",
	}
	records, rejections := MergeCollective(headers, []types.Row{
		row("NIC010",
			"Awa", "Diallo", "F", "1001", "770000001", "1980-01-01",
			"Moussa", "Sow", "M", "1002", "770000002", "1985-02-02",
			"Fatou", "", "F", "1003", "770000003", "1990-03-03"),
	}, Options{})

	require.Empty(t, rejections)
	require.Len(t, records, 1)
	r := records[0]

	for _, field := range MultiValuedFields {
		assert.Len(t, r.Lines(field), 2, field)
	}

	rep := []string{"Awa", "Diallo", "F", "1001", "770000001", "1980-01-01"}
	g1 := []string{"Moussa", "Sow", "M", "1002", "770000002", "1985-02-02"}
	for i, field := range MultiValuedFields {
		lines := r.Lines(field)
		assert.Equal(t, rep[i], lines[0], field)
		assert.Equal(t, g1[i], lines[1], field)
	}
}

func TestMergeCollective_DuplicateRepresentativeSuppressed(t *testing.T) {
	headers := []string{"nicad", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1", "Prenom_2", "Nom_2"}

	records, rejections := MergeCollective(headers, []types.Row{
		row("NIC020", "Awa", "Diallo", "Awa", "Diallo", "Moussa", "Sow"),
		row("NIC021", "Awa", "Diallo", "AWA", "Diallo", "", ""),
	}, Options{})

	require.Len(t, records, 1)
	assert.Equal(t, "Awa\nMoussa", records[0].FirstNames)
	assert.Equal(t, 2, records[0].Claimants)

	require.Len(t, rejections, 1)
	assert.Equal(t, "NIC021", rejections[0].ParcelID)
	assert.Equal(t, 1, rejections[0].Claimants)
}

func TestMergeCollective_RepresentativeFallbackChains(t *testing.T) {
	headers := []string{
		"nicad", "Prenom_M", "Nom_M", "Sexe_M", "Sexe_Mandataire", "Sexe_mand",
		"Telephone_M", "Telephon1", "Telephon2", "Prenom_1", "Nom_1",
	}
	records, _ := MergeCollective(headers, []types.Row{
		row("NIC030", "Awa", "Diallo", "", "", "F", "", "", "770000009", "Moussa", "Sow"),
		row("NIC031", "Awa", "Diallo", "", "", "", "", "", "", "Moussa", "Sow"),
	}, Options{})

	require.Len(t, records, 2)
	assert.Equal(t, "F\n-", records[0].Sexes)
	assert.Equal(t, "770000009\n-", records[0].Phones)
	assert.Equal(t, "-\n-", records[1].Sexes)
	assert.Equal(t, "-\n-", records[1].Phones)
}

func TestMergeCollective_RepresentativeSuffixVariants(t *testing.T) {
	headers := []string{"nicad", "Prenom_Mandataire", "Nom_Mandataire", "Date_naissance_M", "Prenoms_M", "Prenom_1", "Nom_1"}
	records, rejections := MergeCollective(headers, []types.Row{
		row("NIC9", "Awa", "Diallo", "1980-01-01", "x", "Moussa", "Sow"),
	}, Options{})

	require.Empty(t, rejections)
	require.Len(t, records, 1)
	assert.Equal(t, "Awa\nMoussa", records[0].FirstNames)
	assert.Equal(t, "Diallo\nSow", records[0].LastNames)
	assert.Equal(t, "1980-01-01\n-", records[0].BirthDates)
	assert.Equal(t, 2, records[0].Claimants)

	analysis := AnalyzeCollective(headers, Options{})
	assert.Empty(t, analysis.Unused)
}

func TestMergeCollective_RepresentativeNameMatchIgnoresCaseAndAccents(t *testing.T) {
	headers := []string{"nicad", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1", "Prenom_2", "Nom_2"}
	records, rejections := MergeCollective(headers, []types.Row{
		row("NIC050", "Awa", "DIALLO", "awa", "Diallo", "Moussa", "Sow"),
		row("NIC051", "Aïssatou", "Ndiaye", "AISSATOU", "NDIAYE", "Fatou", "Ba"),
		row("NIC052", "Awa", "Diallo", "Awa", "Diallo-Sow", "", ""),
	}, Options{})

	require.Len(t, records, 3)
	assert.Equal(t, "Awa\nMoussa", records[0].FirstNames)
	assert.Equal(t, "DIALLO\nSow", records[0].LastNames)
	assert.Equal(t, "Aïssatou\nFatou", records[1].FirstNames)
	assert.Equal(t, "Awa\nAwa", records[2].FirstNames)
	assert.Empty(t, rejections)
}

func TestMergeCollective_GroupsWithoutRepresentative(t *testing.T) {
	headers := []string{"nicad", "Prenom_2", "Nom_2", "Residence_2", "Prenom_01", "Nom_01", "Residence_1"}
	records, rejections := MergeCollective(headers, []types.Row{
		row("NIC040", "Fatou", "Ba", "Dakar", "Moussa", "Sow", "Thies"),
	}, Options{})

	require.Empty(t, rejections)
	require.Len(t, records, 1)
	assert.Equal(t, "Moussa\nFatou", records[0].FirstNames)
	assert.Equal(t, "Thies", records[0].Residence)
}

func TestMergeCollective_ResidenceFromRepresentative(t *testing.T) {
	headers := []string{"nicad", "Prenom_M", "Nom_M", "Residence_M", "Prenom_1", "Nom_1", "Residence_1"}
	records, _ := MergeCollective(headers, []types.Row{
		row("NIC041", "Awa", "Diallo", "", "Moussa", "Sow", "Thies"),
	}, Options{})

	require.Len(t, records, 1)
	assert.Equal(t, "-", records[0].Residence)
}

func TestMergeCollective_EmptyRowRejectedAsUnknown(t *testing.T) {
	records, rejections := MergeCollective(scenarioHeaders, []types.Row{
		row("", "", "", "", "", "", "", ""),
		row(),
	}, Options{})

	assert.Empty(t, records)
	require.Len(t, rejections, 2)
	assert.Equal(t, "unknown", rejections[0].ParcelID)
	assert.Equal(t, 0, rejections[0].Claimants)
	assert.Equal(t, 3, rejections[1].Row)
}

func TestMergeCollective_IdentifierFallsBackToParcelNumber(t *testing.T) {
	headers := []string{"Num_parcel_2", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1"}
	records, rejections := MergeCollective(headers, []types.Row{
		row("P050", "Awa", "Diallo", "Moussa", "Sow"),
		row("P051", "Awa", "Diallo", "", ""),
	}, Options{})

	require.Len(t, records, 1)
	assert.Equal(t, "P050", records[0].LandTitleID)
	require.Len(t, rejections, 1)
	assert.Equal(t, "P051", rejections[0].ParcelID)
}

// The identification policy is configurable because the field exports
// disagree on whether the parcel number alone identifies a parcel.
func TestMergeCollective_IdentificationRule(t *testing.T) {
	headers := []string{"nicad", "Num_parcel_2", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1"}
	rows := []types.Row{row("", "P060", "Awa", "Diallo", "Moussa", "Sow")}

	records, rejections := MergeCollective(headers, rows, Options{})
	assert.Len(t, records, 1)
	assert.Empty(t, rejections)

	records, rejections = MergeCollective(headers, rows, Options{Collective: RequireTitle})
	assert.Empty(t, records)
	require.Len(t, rejections, 1)
	assert.Contains(t, rejections[0].Reason, "nicad")
	assert.Equal(t, "P060", rejections[0].ParcelID)

	rows = []types.Row{row("", "", "Awa", "Diallo", "Moussa", "Sow")}
	records, rejections = MergeCollective(headers, rows, Options{})
	assert.Empty(t, records)
	require.Len(t, rejections, 1)
	assert.Equal(t, "unknown", rejections[0].ParcelID)
}

func TestMergeCollective_NonStringCells(t *testing.T) {
	headers := []string{"nicad", "superficie", "Prenom_M", "Nom_M", "Telephone_M", "Prenom_1", "Nom_1", "Telephone_1"}
	records, _ := MergeCollective(headers, []types.Row{
		row(12345.0, 1.5, "Awa", "Diallo", 770000001, "Moussa", "Sow", nil),
	}, Options{})

	require.Len(t, records, 1)
	assert.Equal(t, "12345", records[0].LandTitleID)
	assert.Equal(t, "1.5", records[0].Area)
	assert.Equal(t, "770000001\n-", records[0].Phones)
}

func TestMergeCollective_DoesNotMutateInput(t *testing.T) {
	rows := []types.Row{row("Koulare", "NIC001", "P001", " Awa ", "Diallo", "Moussa", "Sow", "M")}
	headers := append([]string(nil), scenarioHeaders...)

	MergeCollective(headers, rows, Options{})

	assert.Equal(t, " Awa ", rows[0][3])
	assert.Equal(t, scenarioHeaders, headers)
}

func TestMergeCollective_MetadataColumns(t *testing.T) {
	headers := []string{"Village", "nicad", "Num_parcel_2", "superficie", "Vocation_1", "type_usa", "Prenom_M", "Nom_M", "Prenom_1", "Nom_1"}
	records, _ := MergeCollective(headers, []types.Row{
		row("Koulare", "NIC070", "P070", "", "Agricole", "Culture", "Awa", "Diallo", "Moussa", "Sow"),
	}, Options{})

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "-", r.Area)
	assert.Equal(t, "Agricole", r.Value(columns.LandUseVocation))
	assert.Equal(t, "Culture", r.Value(columns.LandUseType))
	assert.False(t, strings.Contains(r.Village, "\n"))
}
