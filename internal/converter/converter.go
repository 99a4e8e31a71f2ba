// =============================================================================
// Deliberation List Generator - Converter Module
// =============================================================================
//
// This module orchestrates the processing of submission files, from reading
// the spreadsheet to writing the deliberation list.
//
// PROCESSING PIPELINE (per file):
//   1. Read the sheet (xlsx or csv)
//   2. Decide the submission type (flag, file name pattern, headers)
//   3. Run the deliberation engine
//   4. Check the count invariant and log validation warnings
//   5. Build the export table and apply transformation rules
//   6. Write the list and the rejection log
//   7. Archive the input
//
// CONCURRENCY:
//   RunBatch processes files on a bounded pool of goroutines. A Converter
//   holds no per-file state, so one instance serves the whole batch.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/boundou-sig/deliblist/internal/config"
	"github.com/boundou-sig/deliblist/internal/csvparser"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/internal/validation"
	"github.com/boundou-sig/deliblist/internal/xlsxparser"
	"github.com/boundou-sig/deliblist/pkg/utils"
)

// ErrUnsupportedInput is returned for files that are neither workbooks nor CSV.
var ErrUnsupportedInput = errors.New("unsupported input file type")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Type is the submission type the file was processed as.
	Type types.SubmissionType

	// OutputFile is the path to the written list. Empty on failure and on
	// dry runs.
	OutputFile string

	// RejectionLog is the path to the rejection log, if one was written.
	RejectionLog string

	// ArchivedTo is where the input was moved.
	ArchivedTo string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Deliberation is the engine result, kept for reporting.
	Deliberation *deliberation.Result

	// Table is the transformed table that was (or would be) written.
	Table export.Table

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of data rows in the sheet.
	RowsRead int

	// RecordsWritten is the number of rows in the list.
	RecordsWritten int

	// RowsRejected is the number of rows dropped with a reason.
	RowsRejected int

	// Warnings is the number of validation warnings.
	Warnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface used by the converter. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Converter processes submission files according to the configuration.
type Converter struct {
	cfg         *config.MainConfig
	opts        deliberation.Options
	transformer *Transformer
	files       *utils.FileManager
	logger      Logger

	// now is replaced in tests.
	now func() time.Time

	// claimed holds output paths handed out during this run so that two
	// files of one batch never share a name.
	mu      sync.Mutex
	claimed map[string]bool
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - logger: Where progress and warnings go.
//
// RETURNS:
//   - A Converter, or an error if the engine options or transformation
//     rules in cfg are invalid.
func New(cfg *config.MainConfig, logger Logger) (*Converter, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}

	transformer, err := NewTransformer(cfg.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("invalid transformation rules: %w", err)
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir)
	files.UseDateSubdirs = cfg.ArchiveByDate

	return &Converter{
		cfg:         cfg,
		opts:        opts,
		transformer: transformer,
		files:       files,
		logger:      logger,
		now:         time.Now,
		claimed:     make(map[string]bool),
	}, nil
}

// Options returns the engine options derived from the configuration.
func (c *Converter) Options() deliberation.Options {
	return c.opts
}

// Files returns the file manager of the configured directories.
func (c *Converter) Files() *utils.FileManager {
	return c.files
}

// =============================================================================
// READING
// =============================================================================

// XLSXOptions are the workbook reader options of the configuration.
func (c *Converter) XLSXOptions() xlsxparser.Options {
	return xlsxparser.Options{
		Sheet:     c.cfg.Sheet,
		RawValues: c.cfg.XLSX.RawValues,
		Password:  c.cfg.XLSX.Password,
	}
}

// ReadFile reads a workbook or CSV file into a sheet.
func (c *Converter) ReadFile(path string) (*types.Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.Parse(path, c.cfg.CSVSettings)
	case ".xlsx", ".xlsm":
		return xlsxparser.ParseWithOptions(path, c.XLSXOptions())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(path))
}

// ReadUpload reads an uploaded file; the name selects the reader.
func (c *Converter) ReadUpload(r io.Reader, name string) (*types.Sheet, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return csvparser.Read(r, name, c.cfg.CSVSettings)
	case ".xlsx", ".xlsm":
		return xlsxparser.Read(r, name, c.XLSXOptions())
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedInput, filepath.Ext(name))
}

// DetectType decides the submission type of a file. An explicit type wins,
// then the configured file name patterns, then the headers: a sheet with
// representative columns or several claimant slots is collective.
func (c *Converter) DetectType(path string, sheet *types.Sheet, explicit types.SubmissionType) types.SubmissionType {
	if explicit != "" {
		return explicit
	}
	if t, ok := c.cfg.SubmissionTypeFor(path); ok {
		return t
	}
	if sheet != nil {
		layout := deliberation.ClassifyHeaders(sheet.Headers)
		if len(layout.Representative) > 0 || len(layout.GroupIDs) > 1 {
			return types.Collective
		}
	}
	return types.Individual
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Process runs the engine on a sheet and builds the transformed table.
// Nothing is written.
func (c *Converter) Process(sheet *types.Sheet, mode types.SubmissionType) (*deliberation.Result, export.Table, error) {
	result, err := deliberation.Process(sheet, mode, c.opts)
	if err != nil {
		return nil, export.Table{}, err
	}

	if err := result.Report.Check(); err != nil {
		// The report is still usable; the mismatch is a bug worth seeing.
		c.logger.Error("count invariant violated", "source", sheet.SourceName, "error", err)
	}

	table, err := c.BuildTable(result)
	if err != nil {
		return nil, export.Table{}, err
	}
	return result, table, nil
}

// BuildTable builds the export table of a result with the configured
// transformations applied.
func (c *Converter) BuildTable(result *deliberation.Result) (export.Table, error) {
	table := export.FromResult(result)

	if missing := c.transformer.Unmatched(table); len(missing) > 0 {
		c.logger.Debug("transformation rules without a matching column", "columns", strings.Join(missing, ", "))
	}

	transformed, err := c.transformer.TransformTable(table)
	if err != nil {
		return export.Table{}, fmt.Errorf("failed to apply transformations: %w", err)
	}
	return transformed, nil
}

// Run executes the pipeline for one file.
//
// PARAMETERS:
//   - path: The input file.
//   - mode: The submission type, or "" to detect it.
//   - dryRun: Process and report without writing or archiving anything.
func (c *Converter) Run(path string, mode types.SubmissionType, dryRun bool) Result {
	startTime := c.now()
	result := Result{FilePath: path}

	// =========================================================================
	// STEP 1: READ THE SHEET
	// =========================================================================

	c.logger.Info("processing file", "file", path)

	sheet, err := c.ReadFile(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		return result
	}

	// =========================================================================
	// STEP 2: SUBMISSION TYPE
	// =========================================================================

	result.Type = c.DetectType(path, sheet, mode)
	c.logger.Debug("submission type", "file", path, "type", result.Type, "rows", len(sheet.Rows))

	// =========================================================================
	// STEP 3-5: ENGINE, CHECKS, TABLE
	// =========================================================================

	delib, table, err := c.Process(sheet, result.Type)
	if err != nil {
		result.Error = fmt.Errorf("failed to process %s: %w", filepath.Base(path), err)
		return result
	}
	result.Deliberation = delib
	result.Table = table

	report := delib.Report
	result.Stats.RowsRead = report.TotalInputRows
	result.Stats.RecordsWritten = report.ValidOutputCount
	result.Stats.RowsRejected = report.RejectedCount
	result.Stats.Warnings = len(report.Warnings)

	for _, reason := range report.RejectionReasons {
		c.logger.Debug("row rejected", "file", path, "reason", reason)
	}
	if len(report.Warnings) > 0 {
		c.logger.Warn("validation warnings", "file", path, "count", len(report.Warnings),
			"details", validation.FormatWarnings(report.Warnings))
	}

	if dryRun {
		result.Success = true
		result.Stats.ProcessingTime = c.now().Sub(startTime)
		return result
	}

	// =========================================================================
	// STEP 6: WRITE OUTPUTS
	// =========================================================================

	outputPath, err := c.writeOutput(table, result.Type, path)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	c.logger.Info("wrote deliberation list", "file", path, "output", outputPath,
		"records", report.ValidOutputCount, "rejected", report.RejectedCount)

	if !c.cfg.SkipRejectionLog {
		logPath, err := utils.WriteRejectionLog(rejectionEntries(delib.Rejections), c.cfg.OutputDir, path, startTime)
		if err != nil {
			c.logger.Warn("failed to write rejection log", "file", path, "error", err)
		}
		result.RejectionLog = logPath
	}

	// =========================================================================
	// STEP 7: ARCHIVE
	// =========================================================================

	archived, err := c.files.ArchiveInputFile(path, startTime)
	if err != nil {
		// Log the error but don't fail the processing.
		c.logger.Warn("failed to archive input", "file", path, "error", err)
	} else {
		result.ArchivedTo = archived
	}

	result.Success = true
	result.Stats.ProcessingTime = c.now().Sub(startTime)
	return result
}

// RunBatch processes files concurrently, at most MaxConcurrency at a time.
// Results come back in input order. With StopOnError set, files not yet
// started when a failure occurs are skipped.
func (c *Converter) RunBatch(ctx context.Context, paths []string, mode types.SubmissionType, dryRun bool) ([]Result, utils.ProcessingSummary) {
	summary := utils.ProcessingSummary{StartTime: c.now(), TotalFiles: len(paths)}
	results := make([]Result, len(paths))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := max(1, c.cfg.MaxConcurrency)
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = Result{FilePath: paths[i], Error: fmt.Errorf("skipped: %w", err)}
					continue
				}
				results[i] = c.Run(paths[i], mode, dryRun)
				if !results[i].Success && c.cfg.StopOnError {
					cancel()
				}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		if r.Success {
			summary.SuccessfulFiles++
			summary.TotalRows += r.Stats.RowsRead
			summary.ValidRecords += r.Stats.RecordsWritten
			summary.RejectedRows += r.Stats.RowsRejected
			summary.Warnings += r.Stats.Warnings
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   r.FilePath,
				OutputFile:  r.OutputFile,
				Mode:        string(r.Type),
				Rows:        r.Stats.RowsRead,
				Valid:       r.Stats.RecordsWritten,
				Rejected:    r.Stats.RowsRejected,
				ProcessTime: r.Stats.ProcessingTime,
			})
			continue
		}
		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    r.FilePath,
			ErrorMessage: r.Error.Error(),
		})
	}
	summary.EndTime = c.now()

	return results, summary
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutput writes the table to the output directory.
//
// FILE NAMING:
//   The name comes from OutputFileFormat (see export.FileName). When a file
//   of that name already exists, or was written earlier in the batch, a
//   counter is appended: liste_deliberation_collective_20240115_2.xlsx.
func (c *Converter) writeOutput(table export.Table, mode types.SubmissionType, inputPath string) (string, error) {
	format := c.cfg.Format()
	name := export.FileName(c.cfg.OutputFileFormat, mode, format, inputPath, c.now())

	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := c.claimPath(filepath.Join(c.cfg.OutputDir, name))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := export.Write(file, table, format, c.cfg.CSVOutput()); err != nil {
		file.Close()
		os.Remove(outputPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return outputPath, nil
}

func (c *Converter) claimPath(path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 2; c.claimed[candidate] || utils.FileExists(candidate); n++ {
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	c.claimed[candidate] = true
	return candidate
}

func rejectionEntries(rejections []deliberation.Rejection) []utils.RejectionLogEntry {
	entries := make([]utils.RejectionLogEntry, len(rejections))
	for i, r := range rejections {
		entries[i] = utils.RejectionLogEntry{Row: r.Row, ParcelID: r.ParcelID, Reason: r.Reason}
	}
	return entries
}
