package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/types"
)

func parcel() deliberation.ParcelRecord {
	return deliberation.ParcelRecord{
		Row:               2,
		Village:           "Koulare",
		LandTitleID:       "0071234",
		ParcelNumber:      "007",
		Area:              "12.5",
		LandUseVocation:   "Agricole",
		LandUseType:       "Culture",
		FirstNames:        "Awa\nMoussa",
		LastNames:         "Diallo\nSow",
		Sexes:             "F\nM",
		IDDocumentNumbers: "00123\n-",
		Phones:            "-\n770000000",
		BirthDates:        "1980-01-01\n-",
		Claimants:         2,
	}
}

func TestBuildTable_CollectiveDropsUnfilledColumns(t *testing.T) {
	table := BuildTable(types.Collective, []deliberation.Record{parcel()})

	assert.Equal(t, []string{
		"Village", "nicad", "Num_parcel_2", "Prenom", "Nom", "Sexe",
		"Numero_piece", "Telephone", "Date_naissance",
		"superficie", "Vocation_1", "type_usa",
	}, table.Headers())
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Awa\nMoussa", table.Rows[0][3])
}

func TestBuildTable_IndividualOrder(t *testing.T) {
	records := []deliberation.Record{
		deliberation.ClaimantRecord{Row: 2, Fields: map[columns.CanonicalField]string{
			columns.Sex:         "F",
			columns.LandTitleID: "NIC1",
			columns.FirstName:   "Awa",
		}},
		deliberation.ClaimantRecord{Row: 3, Fields: map[columns.CanonicalField]string{
			columns.LandTitleID: "NIC2",
			columns.Village:     "-",
		}},
	}

	table := BuildTable(types.Individual, records)
	assert.Equal(t, []string{"Village", "nicad", "Prenom", "Sexe"}, table.Headers())
	assert.Equal(t, []string{"", "NIC1", "Awa", "F"}, table.Rows[0])
	assert.Equal(t, []string{"-", "NIC2", "", ""}, table.Rows[1])
}

func TestBuildTable_Empty(t *testing.T) {
	table := BuildTable(types.Collective, nil)
	assert.Empty(t, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestTable_HeadAndClone(t *testing.T) {
	p1, p2 := parcel(), parcel()
	p2.Village = "Bama"
	table := BuildTable(types.Collective, []deliberation.Record{p1, p2})

	head := table.Head(1)
	assert.Len(t, head.Rows, 1)
	assert.Equal(t, table.Columns, head.Columns)
	assert.Len(t, table.Head(10).Rows, 2)

	clone := table.Clone()
	clone.Rows[0][0] = "changed"
	assert.Equal(t, "Koulare", table.Rows[0][0])

	maps := table.Maps()
	assert.Equal(t, "Bama", maps[1]["Village"])
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	table := BuildTable(types.Collective, []deliberation.Record{parcel()})

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, table))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetName, f.GetSheetName(0))

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, table.Headers(), rows[0])

	// Text columns keep their leading zeros.
	assert.Equal(t, "0071234", rows[1][1])
	assert.Equal(t, "007", rows[1][2])
	assert.Equal(t, "00123\n-", rows[1][6])

	assert.Equal(t, "Awa\nMoussa", rows[1][3])
	assert.Equal(t, "12.5", rows[1][9])

	styleID, err := f.GetCellStyle(SheetName, "B2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, numFmtText, style.NumFmt)
}

func TestExactNumber(t *testing.T) {
	n, ok := exactNumber("12.5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	for _, s := range []string{"", "0012", "1e3", "1 500", "12\n13", "abc", "-"} {
		_, ok := exactNumber(s)
		assert.False(t, ok, s)
	}
}

func TestWriteCSV(t *testing.T) {
	table := BuildTable(types.Collective, []deliberation.Record{parcel()})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, CSVOptions{Delimiter: ';', BOM: true}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufeffVillage;nicad;"))
	assert.Contains(t, out, "\"Awa\nMoussa\"")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Table{}, Format("pdf"), CSVOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"xlsx": FormatXLSX, ".XLSX": FormatXLSX, "excel": FormatXLSX, " csv ": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "liste_deliberation_collective_20240115.xlsx",
		FileName("", types.Collective, FormatXLSX, "", now))

	assert.Equal(t, "deliberation_individual_20240115.csv",
		FileName("deliberation.xlsx", types.Individual, FormatCSV, "", now))

	assert.Equal(t, "koulare_collective_20240115_103000.xlsx",
		FileName("{original}_{mode}_{timestamp}", types.Collective, FormatXLSX, "/in/koulare.xlsx", now))
}
