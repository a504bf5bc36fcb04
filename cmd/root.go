// =============================================================================
// Changesheet Preview - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (changesheet)
//   ├── previewCmd (changesheet preview)
//   ├── processCmd (changesheet process)
//   ├── serveCmd   (changesheet serve)
//   └── versionCmd (changesheet version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration file before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/changesheet-preview/internal/config"
	"github.com/ginjaninja78/changesheet-preview/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and logger are set by loadConfig before any subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     logging.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "changesheet",
	Short: "Changesheet Preview - Turn metadata changesheets into draft update payloads",
	Long: `Changesheet Preview reads tabular changesheets (id, action, attribute, value),
fills in blank ids and actions from the rows above, and renders the draft
update payload a metadata store would receive.

Key Features:
  - Comma, tab, pipe and semicolon delimited text, and .xlsx workbooks
  - Raw, normalized and payload views side by side
  - Batch processing of an input directory
  - An HTTP preview API

Example Usage:
  changesheet preview sheet.tsv            # Show all three views
  changesheet preview - --view payload     # Read stdin, print the payload only
  changesheet process                      # Convert every file in the input directory
  changesheet serve --addr :9000           # Start the preview API`,

	SilenceUsage: true,

	// Execute prints the error once.
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			// Syncing stderr fails on some terminals; nothing useful can be done about it.
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and builds the logger.
// A missing configuration file means every default applies.
func loadConfig() error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	l, err := logging.New(level, map[string]any{"service": "changesheet"})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	mainConfig, logger = cfg, l
	return nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
