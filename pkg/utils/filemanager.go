// =============================================================================
// Deliberation List Generator - File Manager Utility
// =============================================================================
//
// File handling around a processing run:
//   - Input discovery (spreadsheets and CSV exports in the input directory)
//   - Archival of processed inputs
//   - Rejection logs and run summaries written next to the outputs
//   - Output file naming with placeholders
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the archive directory after a successful run
//   - Failed files stay where they are so they can be fixed and retried
//   - Old archives can be pruned with a retention period
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a run.
type FileManager struct {
	// InputDir is where uploaded spreadsheets are dropped.
	InputDir string

	// OutputDir receives the deliberation lists and logs.
	OutputDir string

	// ArchiveDir receives processed inputs.
	ArchiveDir string

	// UseDateSubdirs files archives under year/month/day.
	// Example: archive/2024/01/15/collectif_koulare.xlsx
	UseDateSubdirs bool

	// ArchiveOnSuccess moves inputs once their list has been written.
	ArchiveOnSuccess bool
}

// NewFileManager creates a FileManager that archives on success.
func NewFileManager(inputDir, outputDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		ArchiveDir:       archiveDir,
		ArchiveOnSuccess: true,
	}
}

// EnsureDirectories creates every configured directory.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// SpreadsheetExtensions are the inputs the readers understand.
var SpreadsheetExtensions = []string{".xlsx", ".xlsm", ".csv"}

// DiscoverInputFiles lists the files of the input directory with one of the
// given extensions (case-insensitive), sorted by name. Office lock files
// ("~$name.xlsx") are skipped.
func (fm *FileManager) DiscoverInputFiles(extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = SpreadsheetExtensions
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		if HasExtension(entry.Name(), extensions...) {
			files = append(files, filepath.Join(fm.InputDir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// HasExtension reports whether name ends with one of extensions.
func HasExtension(name string, extensions ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed input to the archive directory and
// returns its new path.
func (fm *FileManager) ArchiveInputFile(filePath string, now time.Time) (string, error) {
	if !fm.ArchiveOnSuccess || fm.ArchiveDir == "" {
		return filePath, nil
	}

	archivePath := fm.archivePath(filePath, now)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)
	if fm.UseDateSubdirs {
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}
	return filepath.Join(fm.ArchiveDir, fileName)
}

// CleanOldArchives removes archived files older than maxAge and returns how
// many were removed.
func CleanOldArchives(archiveDir string, maxAge time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName fills the placeholders of format and appends ext
// when the name does not already end with it.
//
// PLACEHOLDERS:
//   {uuid}      - a random UUID
//   {timestamp} - 20060102_150405
//   {date}      - 20060102
//   {time}      - 150405
//   {key}       - any key of params ({mode}, {original}, ...)
//
// EXAMPLE:
//   format: "liste_deliberation_{mode}_{date}"
//   params: {"mode": "collective"}
//   output: "liste_deliberation_collective_20240115.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string, now time.Time) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	if strings.Contains(result, "{uuid}") {
		result = strings.ReplaceAll(result, "{uuid}", uuid.New().String())
	}
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	result = SanitizeFileName(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// SanitizeFileName replaces path separators and characters rejected by
// common file systems.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// =============================================================================
// REJECTION LOG
// =============================================================================

// RejectionLogEntry is one dropped row.
type RejectionLogEntry struct {
	Row      int
	ParcelID string
	Reason   string
}

// WriteRejectionLog writes the rejected rows of one input next to the
// outputs. Nothing is written when there are no entries.
func WriteRejectionLog(entries []RejectionLogEntry, outputDir, source string, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	logPath := filepath.Join(outputDir, SanitizeFileName(fmt.Sprintf("rejets_%s_%s.txt", base, now.Format("20060102_150405"))))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create rejection log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Deliberation List Generator - Rejected Rows\n"+
		"Source:    %s\n"+
		"Generated: %s\n"+
		"Rejected:  %d\n"+
		"================================================================================\n\n",
		source, now.Format("2006-01-02 15:04:05"), len(entries))

	for _, entry := range entries {
		fmt.Fprintf(writer, "  Row %-6d Parcel %-20s %s\n", entry.Row, entry.ParcelID, entry.Reason)
	}

	writer.WriteString("\n================================================================================\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush rejection log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes a whole run over several inputs.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRows       int
	ValidRecords    int
	RejectedRows    int
	Warnings        int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes one successful input.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	Mode        string
	Rows        int
	Valid       int
	Rejected    int
	ProcessTime time.Duration
}

// FailedFileInfo describes one failed input.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to the output directory.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := FormatSummary(file, summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

// FormatSummary writes the human-readable summary to w.
func FormatSummary(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "Deliberation List Generator - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Rows:     %d\n"+
		"  Valid Records:  %d\n"+
		"  Rejected Rows:  %d\n"+
		"  Warnings:       %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.ValidRecords,
		summary.RejectedRows,
		summary.Warnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			fmt.Fprintf(writer, "  Mode:         %s\n", pf.Mode)
			fmt.Fprintf(writer, "  Rows:         %d (valid %d, rejected %d)\n", pf.Rows, pf.Valid, pf.Rejected)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
