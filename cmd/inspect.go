package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boundou-sig/deliblist/internal/converter"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/types"
	"github.com/boundou-sig/deliblist/internal/xlsxparser"
	"github.com/boundou-sig/deliblist/pkg/utils"
)

var (
	inspectFile string
	inspectType string
	inspectJSON bool
)

// inspectCmd shows how the columns of a file are understood, without
// producing a list.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the column analysis of a submission file",
	Long: `Inspect reads one file and prints which header carries each field, the
claimant slots found in a collective sheet and the columns that are ignored.
Use it to check a new export before processing it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "File to inspect (required)")
	inspectCmd.Flags().StringVar(&inspectType, "type", "", "Submission type: individual or collective")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the analysis as JSON")
	inspectCmd.MarkFlagRequired("file")
}

func runInspect(cmd *cobra.Command) error {
	cfg, logger, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	var mode types.SubmissionType
	if inspectType != "" {
		if mode, err = types.ParseSubmissionType(inspectType); err != nil {
			return err
		}
	}

	conv, err := converter.New(cfg, logger)
	if err != nil {
		return err
	}

	sheet, err := conv.ReadFile(inspectFile)
	if err != nil {
		return err
	}
	mode = conv.DetectType(inspectFile, sheet, mode)

	var analysis *deliberation.ColumnAnalysis
	if mode == types.Collective {
		analysis = deliberation.AnalyzeCollective(sheet.Headers, conv.Options())
	} else {
		analysis = deliberation.AnalyzeIndividual(sheet.Headers, conv.Options())
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"file":     sheet.SourceName,
			"type":     mode,
			"rows":     len(sheet.Rows),
			"analysis": analysis,
		})
	}

	fmt.Fprintf(out, "File:  %s\n", sheet.SourceName)
	fmt.Fprintf(out, "Type:  %s\n", mode)
	fmt.Fprintf(out, "Rows:  %d\n", len(sheet.Rows))
	if utils.HasExtension(inspectFile, ".xlsx", ".xlsm") {
		if names, err := xlsxparser.SheetNames(inspectFile, conv.XLSXOptions()); err == nil {
			fmt.Fprintf(out, "Sheets: %s\n", strings.Join(names, ", "))
		}
	}
	fmt.Fprintln(out)

	return printAnalysis(out, analysis)
}

func printAnalysis(w io.Writer, a *deliberation.ColumnAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FIELD\tHEADER\tCOLUMN")
	for _, c := range a.Resolved {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Field, c.Header, c.Index+1)
	}
	for _, c := range a.Representative {
		fmt.Fprintf(tw, "%s (representative)\t%s\t%d\n", c.Field, c.Header, c.Index+1)
	}
	for _, g := range a.Groups {
		for _, c := range g.Columns {
			fmt.Fprintf(tw, "%s (claimant %s)\t%s\t%d\n", c.Field, g.ID, c.Header, c.Index+1)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(a.Missing) > 0 {
		missing := make([]string, len(a.Missing))
		for i, f := range a.Missing {
			missing[i] = string(f)
		}
		fmt.Fprintf(w, "\nMissing: %s\n", strings.Join(missing, ", "))
	}
	if len(a.Unused) > 0 {
		fmt.Fprintf(w, "Ignored: %s\n", strings.Join(a.Unused, ", "))
	}
	return nil
}
