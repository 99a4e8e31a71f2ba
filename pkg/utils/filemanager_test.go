package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 15, 10, 30, 5, 0, time.UTC)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("liste_{mode}_{date}_{time}", map[string]string{"mode": "collective"}, ".xlsx", fixedNow)
	assert.Equal(t, "liste_collective_20240115_103005.xlsx", name)

	name = GenerateOutputFileName("{timestamp}.csv", nil, ".csv", fixedNow)
	assert.Equal(t, "20240115_103005.csv", name)

	name = GenerateOutputFileName("{original}", map[string]string{"original": "a/b:c"}, ".xlsx", fixedNow)
	assert.Equal(t, "a_b_c.xlsx", name)
}

func TestGenerateOutputFileName_UUID(t *testing.T) {
	name := GenerateOutputFileName("{uuid}", nil, ".xlsx", fixedNow)
	_, err := uuid.Parse(name[:len(name)-len(".xlsx")])
	assert.NoError(t, err)
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b_collectif.xlsx"))
	touch(t, filepath.Join(dir, "a_individuel.CSV"))
	touch(t, filepath.Join(dir, "~$b_collectif.xlsx"))
	touch(t, filepath.Join(dir, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0755))

	fm := NewFileManager(dir, "", "")
	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_individuel.CSV"),
		filepath.Join(dir, "b_collectif.xlsx"),
	}, files)
}

func TestArchiveInputFile(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "in"), filepath.Join(root, "out"), filepath.Join(root, "archive"))
	fm.UseDateSubdirs = true
	require.NoError(t, fm.EnsureDirectories())

	input := filepath.Join(fm.InputDir, "koulare.xlsx")
	touch(t, input)

	archived, err := fm.ArchiveInputFile(input, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ArchiveDir, "2024", "01", "15", "koulare.xlsx"), archived)
	assert.True(t, FileExists(archived))
	assert.False(t, FileExists(input))
}

func TestArchiveInputFile_Disabled(t *testing.T) {
	fm := &FileManager{ArchiveDir: t.TempDir()}
	path, err := fm.ArchiveInputFile("/nowhere/file.xlsx", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "/nowhere/file.xlsx", path)
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "2023", "old.xlsx")
	recent := filepath.Join(dir, "recent.xlsx")
	touch(t, old)
	touch(t, recent)
	require.NoError(t, os.Chtimes(old, fixedNow.AddDate(0, 0, -40), fixedNow.AddDate(0, 0, -40)))
	require.NoError(t, os.Chtimes(recent, fixedNow, fixedNow))

	removed, err := CleanOldArchives(dir, 30*24*time.Hour, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(old))
	assert.True(t, FileExists(recent))
}

func TestWriteRejectionLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteRejectionLog(nil, dir, "in/koulare.xlsx", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteRejectionLog([]RejectionLogEntry{
		{Row: 3, ParcelID: "NIC001", Reason: "found 1 claimant(s), at least 2 required"},
	}, dir, "in/koulare.xlsx", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rejets_koulare_20240115_103005.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rejected:  1")
	assert.Contains(t, string(data), "NIC001")
	assert.Contains(t, string(data), "at least 2 required")
}

func TestSummary(t *testing.T) {
	summary := ProcessingSummary{
		StartTime:       fixedNow,
		EndTime:         fixedNow.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRows:       10,
		ValidRecords:    8,
		RejectedRows:    2,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.xlsx", OutputFile: "out.xlsx", Mode: "collective", Rows: 10, Valid: 8, Rejected: 2}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.csv", ErrorMessage: "sheet has no data rows"}},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatSummary(&buf, summary))
	assert.Contains(t, buf.String(), "Duration:       2s")
	assert.Contains(t, buf.String(), "Rows:         10 (valid 8, rejected 2)")
	assert.Contains(t, buf.String(), "sheet has no data rows")

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "processing_summary_20240115_103007.txt", filepath.Base(path))
}
