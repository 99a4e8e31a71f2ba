// =============================================================================
// Deliberation List Generator - Root Command
// =============================================================================
//
// This file defines the root command of the CLI. Every other command is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (deliblist)
//   ├── processCmd  (deliblist process)
//   ├── inspectCmd  (deliblist inspect)
//   ├── serveCmd    (deliblist serve)
//   ├── validateCmd (deliblist validate)
//   └── versionCmd  (deliblist version)
//
// The root command owns the global flags (--config, --verbose) and the
// shared setup: configuration loading and logger construction.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boundou-sig/deliblist/internal/config"
	"github.com/boundou-sig/deliblist/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "deliblist",
	Short: "Deliberation List Generator - build land deliberation lists from field spreadsheets",
	Long: `deliblist turns the spreadsheets exported by land registration field teams
into deliberation lists ready for the municipal council.

Two submission types are supported:
  - individual: one claimant per row
  - collective: one parcel per row, claimants spread over repeated column
    groups (Prenom_1, Nom_1, ...) plus an optional representative (_M)

Each run reports how many rows were kept and why the others were rejected.

Example Usage:
  deliblist process                          # Every spreadsheet in the input directory
  deliblist process --file koulare.xlsx      # A single file, type detected
  deliblist inspect --file koulare.xlsx      # Show how the columns are understood
  deliblist serve                            # Local HTTP API
  deliblist validate                         # Check the configuration`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads the configuration. The default path may be missing; a
// path given with --config may not.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.LoadOrDefault(cfgFile, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger. The returned closer
// releases the log file.
func setup(cmd *cobra.Command) (*config.MainConfig, *slog.Logger, io.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	logger, closer, err := logging.New(level, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, logger, closer, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigPath,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
