// =============================================================================
// Deliberation List Generator - Process Command
// =============================================================================
//
// The 'process' command builds deliberation lists from submission files.
//
// COMMAND USAGE:
//   deliblist process [flags]
//
// FLAGS:
//   --file        : Process a single file instead of the input directory
//   --type        : individual or collective (default: detected per file)
//   --format      : xlsx or csv (default: output_format from the config)
//   --output-dir  : Override output_dir from the config
//   --dry-run     : Process and report without writing or archiving
//
// PROCESSING PIPELINE:
//   1. Load the configuration
//   2. Discover the input files (or take --file)
//   3. Run the files on the converter's worker pool
//   4. Print per-file results and statistics
//   5. Write the run summary and prune old archives
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/boundou-sig/deliblist/internal/converter"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/internal/validation"
	"github.com/boundou-sig/deliblist/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun       bool
	filePath     string
	submission   string
	outputFormat string
	outputDir    string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build deliberation lists from submission spreadsheets",
	Long: `The process command reads every spreadsheet (.xlsx, .xlsm, .csv) of the
input directory, or the file given with --file, and writes one deliberation
list per input.

The submission type comes from --type, else from the submission_patterns of
the configuration, else from the headers of the file.

On success:
  - The list is written to the output directory
  - Rejected rows are listed in a rejets_*.txt log next to it
  - The input is moved to the archive directory

On error:
  - The input stays where it is
  - Other files are still processed unless stop_on_error is set`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Process and report without writing or archiving")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process a single file")
	processCmd.Flags().StringVar(&submission, "type", "", "Submission type: individual or collective")
	processCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: xlsx or csv")
	processCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: CONFIGURATION
	// =========================================================================

	cfg, logger, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	var mode types.SubmissionType
	if submission != "" {
		if mode, err = types.ParseSubmissionType(submission); err != nil {
			return err
		}
	}
	if outputFormat != "" {
		format, err := export.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg.OutputFormat = string(format)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	conv, err := converter.New(cfg, logger)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: INPUT FILES
	// =========================================================================

	if !dryRun {
		if err := conv.Files().EnsureDirectories(); err != nil {
			return err
		}
	}

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = conv.Files().DiscoverInputFiles()
		if err != nil {
			return err
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintf(out, "No spreadsheet found in %s\n", cfg.InputDir)
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS
	// =========================================================================

	results, summary := conv.RunBatch(cmd.Context(), inputFiles, mode, dryRun)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	for _, result := range results {
		printResult(out, result)
	}

	fmt.Fprintln(out)
	if err := utils.FormatSummary(out, summary); err != nil {
		return err
	}

	// =========================================================================
	// STEP 5: SUMMARY LOG AND ARCHIVE RETENTION
	// =========================================================================

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
			logger.Warn("failed to write summary log", "error", err)
		} else {
			logger.Info("wrote summary log", "path", path)
		}

		if cfg.ArchiveRetentionDays > 0 && cfg.InputArchiveDir != "" && utils.FileExists(cfg.InputArchiveDir) {
			maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
			removed, err := utils.CleanOldArchives(cfg.InputArchiveDir, maxAge, time.Now())
			if err != nil {
				logger.Warn("failed to clean archives", "error", err)
			} else if removed > 0 {
				logger.Info("removed old archives", "count", removed)
			}
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// printResult prints one file's outcome and, on success, its statistics.
func printResult(w io.Writer, result converter.Result) {
	name := filepath.Base(result.FilePath)
	if !result.Success {
		fmt.Fprintf(w, "  ✗ %s: %v\n", name, result.Error)
		return
	}

	target := result.OutputFile
	if target == "" {
		target = "(dry run)"
	}
	fmt.Fprintf(w, "  ✓ %s -> %s\n", name, target)
	fmt.Fprintf(w, "      %s: %d row(s), %d kept, %d rejected, %d warning(s)\n",
		result.Type, result.Stats.RowsRead, result.Stats.RecordsWritten,
		result.Stats.RowsRejected, result.Stats.Warnings)

	if result.Deliberation == nil {
		return
	}
	printStats(w, deliberation.Summarize(result.Deliberation))
	printWarnings(w, result.Deliberation.Report.Warnings)
}

// printWarnings prints the warning count of each validation rule.
func printWarnings(w io.Writer, warnings []validation.Warning) {
	for _, rc := range validation.CountByRule(warnings) {
		fmt.Fprintf(w, "      warning %-20s %d\n", rc.Rule, rc.Count)
	}
}

func printStats(w io.Writer, stats deliberation.Stats) {
	fmt.Fprintf(w, "      claimants: %d", stats.Claimants)
	if stats.AreaCells > 0 {
		fmt.Fprintf(w, ", total area: %.4g (%d parcel(s) with an area)", stats.TotalArea, stats.AreaCells)
	}
	fmt.Fprintln(w)

	for _, v := range stats.Villages {
		fmt.Fprintf(w, "      village %-20s %d\n", v.Label, v.Count)
	}
	for _, u := range stats.LandUseTypes {
		fmt.Fprintf(w, "      usage   %-20s %d\n", u.Label, u.Count)
	}
}
