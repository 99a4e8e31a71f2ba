package deliberation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/types"
)

func TestProcess_MalformedInput(t *testing.T) {
	_, err := ProcessCollective(nil, Options{})
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = ProcessCollective(&types.Sheet{}, Options{})
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = ProcessIndividual(&types.Sheet{Headers: []string{"", " "}, Rows: []types.Row{row("x")}}, Options{})
	assert.ErrorIs(t, err, ErrNoHeaders)

	_, err = ProcessIndividual(&types.Sheet{Headers: []string{"nicad"}}, Options{})
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = Process(&types.Sheet{Headers: []string{"nicad"}, Rows: []types.Row{row("x")}}, "mixed", Options{})
	assert.ErrorIs(t, err, types.ErrUnknownSubmissionType)
}

func TestProcessCollective_Report(t *testing.T) {
	sheet := &types.Sheet{
		Headers:    scenarioHeaders,
		SourceName: "collectif_koulare.xlsx",
		Rows: []types.Row{
			row("Koulare", "NIC001", "P001", "Awa", "Diallo", "Moussa", "Sow", "M"),
			row("Koulare", "NIC002", "P002", "Awa", "Diallo", "", "", ""),
			row("Koulare", "NIC003", "P003", "Fatou", "Ba", "Ibrahima", "Fall", "X"),
		},
	}

	result, err := ProcessCollective(sheet, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.Collective, result.Type)
	assert.Equal(t, "collectif_koulare.xlsx", result.Source)
	assert.Equal(t, 3, result.Report.TotalInputRows)
	assert.Equal(t, 2, result.Report.ValidOutputCount)
	assert.Equal(t, 1, result.Report.RejectedCount)
	require.Len(t, result.Report.RejectionReasons, 1)
	assert.Contains(t, result.Report.RejectionReasons[0], "NIC002")
	assert.NoError(t, result.Report.Check())

	require.NotNil(t, result.Report.Columns)
	require.Len(t, result.Report.Warnings, 1)
	assert.Equal(t, "NIC003", result.Report.Warnings[0].ParcelID)
	assert.Equal(t, 2, result.Report.Warnings[0].Line)

	assert.Equal(t, 2, result.Len())
	assert.Len(t, result.Preview(1), 1)
	assert.Len(t, result.Preview(10), 2)
}

func TestProcessIndividual_Report(t *testing.T) {
	sheet := &types.Sheet{
		Headers: individualHeaders,
		Rows: []types.Row{
			row("Koulare", "NIC001", "P001", "Awa", "Diallo"),
			row("Koulare", "", "P002", "Moussa", "Sow"),
		},
	}

	result, err := Process(sheet, types.Individual, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.ValidOutputCount)
	assert.Equal(t, 1, result.Report.RejectedCount)
	assert.NoError(t, result.Report.Check())
	require.Len(t, result.Records(), 1)
	assert.Equal(t, "NIC001", result.Records()[0].Identifier())
}

// fakeCollectiveSheet builds a collective sheet whose rows carry a random
// number of claimants, some of them incomplete or repeating the
// representative.
func fakeCollectiveSheet(faker *gofakeit.Faker, rows, slots int) *types.Sheet {
	headers := []string{"Village", "nicad", "Num_parcel_2", "superficie",
		"Prenom_M", "Nom_M", "Sexe_M", "Num_piece_M", "Telephone_M", "Date_nais_M"}
	for s := 1; s <= slots; s++ {
		headers = append(headers,
			fmt.Sprintf("Prenom_%d", s),
			fmt.Sprintf("Nom_%d", s),
			fmt.Sprintf("Sexe_%d", s),
			fmt.Sprintf("Num_piece_%d", s),
			fmt.Sprintf("Telephon%d", s+PhoneReservedSlots),
			fmt.Sprintf("Date_nais%d", s),
		)
	}

	sheet := &types.Sheet{Headers: headers}
	for i := 0; i < rows; i++ {
		rep := []any{faker.FirstName(), faker.LastName(), faker.RandomString([]string{"M", "F"}),
			faker.Numerify("##########"), faker.Numerify("77#######"), faker.Date().Format("2006-01-02")}
		if faker.Number(0, 4) == 0 {
			rep[0] = ""
		}

		r := row(faker.City(), faker.Numerify("NIC#####"), faker.Numerify("P####"), faker.Float64Range(0.1, 5))
		r = append(r, rep...)

		for s := 1; s <= slots; s++ {
			first, last := faker.FirstName(), faker.LastName()
			switch faker.Number(0, 5) {
			case 0:
				last = ""
			case 1:
				first, last = rep[0].(string), rep[1].(string)
			case 2:
				first, last = "nan", ""
			}
			r = append(r, first, last, faker.RandomString([]string{"M", "F", ""}),
				faker.Numerify("##########"), faker.Numerify("78#######"), "")
		}
		sheet.Rows = append(sheet.Rows, r)
	}
	return sheet
}

func TestProcessCollective_GeneratedSheetsKeepInvariants(t *testing.T) {
	faker := gofakeit.New(42)

	for run := 0; run < 20; run++ {
		sheet := fakeCollectiveSheet(faker, 50, faker.Number(0, 4))

		result, err := ProcessCollective(sheet, Options{})
		require.NoError(t, err)

		report := result.Report
		assert.Equal(t, len(sheet.Rows), report.RejectedCount+report.ValidOutputCount)
		assert.NoError(t, report.Check())

		for _, p := range result.Parcels {
			assert.GreaterOrEqual(t, p.Claimants, MinClaimants)
			for _, field := range MultiValuedFields {
				assert.Len(t, p.Lines(field), p.Claimants, "%s of %s", field, p.Identifier())
			}
			for _, name := range p.Lines(columns.FirstName) {
				assert.NotEqual(t, "-", name)
			}
			assert.False(t, strings.Contains(p.Village, "\n"))
		}

		for _, r := range result.Rejections {
			assert.Less(t, r.Claimants, MinClaimants)
		}
	}
}

func TestProcessCollective_IsRepeatable(t *testing.T) {
	sheet := fakeCollectiveSheet(gofakeit.New(7), 30, 3)

	first, err := ProcessCollective(sheet, Options{})
	require.NoError(t, err)
	second, err := ProcessCollective(sheet, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Parcels, second.Parcels)
	assert.Equal(t, first.Report, second.Report)
}
