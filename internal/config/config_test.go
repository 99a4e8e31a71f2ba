package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/types"
)

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, export.DefaultFileNameFormat, cfg.OutputFileFormat)
	assert.Equal(t, export.FormatXLSX, cfg.Format())
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "auto", cfg.CSVSettings.Delimiter)
	assert.Equal(t, "UTF-8", cfg.CSVSettings.Encoding)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 3, cfg.Server.PreviewRows)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
input_dir: ./depot
output_format: csv
log_level: debug
csv_settings:
  output_delimiter: ";"
  output_bom: true
xlsx:
  raw_values: true
  password: secret
submission_patterns:
  - pattern: "*COLLECTIF*"
    type: collectif
  - pattern: "*indiv*"
    type: individual
identification:
  individual: title_or_parcel
columns:
  synonyms:
    land_title_id: ["NICAD_PARCEL"]
transformation_rules:
  - column: Telephone
    actions:
      - type: extract_digits
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "./depot", cfg.InputDir)
	assert.Equal(t, export.FormatCSV, cfg.Format())
	assert.Equal(t, export.CSVOptions{Delimiter: ';', BOM: true}, cfg.CSVOutput())
	require.Len(t, cfg.TransformationRules, 1)
	assert.Equal(t, XLSXSettings{RawValues: true, Password: "secret"}, cfg.XLSX)

	mode, ok := cfg.SubmissionTypeFor("/data/Liste_Collectif_Koulare.xlsx")
	assert.True(t, ok)
	assert.Equal(t, types.Collective, mode)

	mode, ok = cfg.SubmissionTypeFor("indiv_bama.csv")
	assert.True(t, ok)
	assert.Equal(t, types.Individual, mode)

	_, ok = cfg.SubmissionTypeFor("parcelles.xlsx")
	assert.False(t, ok)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, deliberation.RequireTitleOrParcel, opts.Individual)
	assert.Equal(t, deliberation.RequireTitleOrParcel, opts.Collective)
	assert.Contains(t, opts.Synonyms[columns.LandTitleID], "NICAD_PARCEL")
	assert.Equal(t, "nicad", opts.Synonyms[columns.LandTitleID][0])
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("ouput_dir: ./out\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ouput_dir")
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	data := []byte(`
log_level: loud
output_format: pdf
archive_retention_days: -1
submission_patterns:
  - pattern: "[x"
    type: group
identification:
  collective: anything
columns:
  synonyms:
    owner: ["Proprietaire"]
transformation_rules:
  - column: ""
    actions:
      - type: shout
`)

	_, err := Parse(data)
	require.ErrorIs(t, err, ErrInvalidConfig)

	for _, key := range []string{
		"log_level", "output_format", "archive_retention_days",
		"submission_patterns[0]: invalid pattern", "identification.collective",
		"columns.synonyms", "transformation_rules[0]: column is required",
		`unknown transformation type "shout"`,
	} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadOrDefault(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(missing, true)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(missing, []byte("max_concurrency: 1\n"), 0644))
	cfg, err = LoadOrDefault(missing, true)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxConcurrency)
}

func TestIsActionType(t *testing.T) {
	assert.True(t, IsActionType("pad_zeros_to_length"))
	assert.False(t, IsActionType("PAD"))
}
