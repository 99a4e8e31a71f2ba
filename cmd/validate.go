package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boundou-sig/deliblist/internal/converter"
	"github.com/boundou-sig/deliblist/internal/csvparser"
	"github.com/boundou-sig/deliblist/pkg/utils"
)

// validateCmd checks the configuration without processing anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate loads the configuration, reports every invalid setting at once and
checks that the CSV settings and transformation rules can be used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var problems int
		check := func(name string, err error) {
			if err != nil {
				problems++
				fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
				return
			}
			fmt.Fprintf(out, "  ✓ %s\n", name)
		}

		fmt.Fprintf(out, "Configuration: %s\n", cfgFile)

		_, err = csvparser.ParseDelimiter(cfg.CSVSettings.Delimiter)
		check("csv_settings.delimiter", err)

		_, err = csvparser.Decoder(cfg.CSVSettings.Encoding)
		check("csv_settings.encoding", err)

		_, err = converter.NewTransformer(cfg.TransformationRules)
		check(fmt.Sprintf("transformation_rules (%d)", len(cfg.TransformationRules)), err)

		_, err = cfg.EngineOptions()
		check("identification and columns", err)

		for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir} {
			if dir != "" && !utils.FileExists(dir) {
				fmt.Fprintf(out, "  ! %s does not exist yet; process will create it\n", dir)
			}
		}

		if problems > 0 {
			return fmt.Errorf("%d configuration problem(s)", problems)
		}
		fmt.Fprintln(out, "Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
