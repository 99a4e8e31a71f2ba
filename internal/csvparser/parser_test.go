package csvparser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/boundou-sig/deliblist/internal/config"
)

func TestRead_SemicolonAutoDetected(t *testing.T) {
	data := "\ufeffVillage;nicad;Prenom_1;Nom_1\n" +
		"Koulare;NIC001;Awa;\"Diallo; Sow\"\n" +
		";;;\n" +
		"Bama;NIC002;Moussa\n" +
		"\n"

	sheet, err := Read(strings.NewReader(data), "koulare.csv", config.CSVSettings{Delimiter: "auto"})
	require.NoError(t, err)

	assert.Equal(t, "koulare.csv", sheet.SourceName)
	assert.Equal(t, []string{"Village", "nicad", "Prenom_1", "Nom_1"}, sheet.Headers)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Diallo; Sow", sheet.Rows[0][3])
	assert.Len(t, sheet.Rows[2], 3)
}

func TestRead_Windows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("Prénom,Résidence\nAïssatou,Kédougou\n")
	require.NoError(t, err)

	sheet, err := Read(bytes.NewReader([]byte(encoded)), "x.csv", config.CSVSettings{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Prénom", "Résidence"}, sheet.Headers)
	assert.Equal(t, "Kédougou", sheet.Rows[0][1])
}

func TestRead_UnknownEncoding(t *testing.T) {
	_, err := Read(strings.NewReader("a\n"), "x.csv", config.CSVSettings{Encoding: "EBCDIC"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestParse_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "individuel.csv")
	require.NoError(t, os.WriteFile(path, []byte("nicad\tPrenom\nNIC1\tAwa\n"), 0644))

	sheet, err := Parse(path, config.CSVSettings{Delimiter: "tab"})
	require.NoError(t, err)
	assert.Equal(t, "individuel.csv", sheet.SourceName)
	assert.Equal(t, "Awa", sheet.Rows[0][1])
}

func TestParseDelimiter(t *testing.T) {
	for name, want := range map[string]rune{"": ',', "comma": ',', ";": ';', "TAB": '\t', "\\t": '\t', "pipe": '|', "auto": 0, "#": '#'} {
		got, err := ParseDelimiter(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseDelimiter("ab")
	assert.Error(t, err)
	_, err = ParseDelimiter(`"`)
	assert.Error(t, err)
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("Village;nicad;Nom"))
	assert.Equal(t, ',', DetectDelimiter(`"Nom; Prenom",nicad,Village`))
	assert.Equal(t, '\t', DetectDelimiter("a\tb\tc"))
	assert.Equal(t, ',', DetectDelimiter("Village"))
}
