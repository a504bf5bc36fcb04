// =============================================================================
// Changesheet Preview - Preview Command
// =============================================================================
//
// COMMAND USAGE:
//   changesheet preview [file|-] [flags]
//
// FLAGS:
//   --view       : raw, normalized, payload or all (default all)
//   --no-header  : Treat the first line as data
//   --delimiter  : Field separator (auto, comma, tab, pipe, semicolon)
//   --sheet      : Worksheet to read from an .xlsx file
//   --json       : Print the whole view as JSON
//
// With no file, or "-", the changesheet is read from standard input.
// The command exits non-zero when no payload could be produced.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/config"
	"github.com/ginjaninja78/changesheet-preview/internal/converter"
	"github.com/ginjaninja78/changesheet-preview/internal/preview"
)

var (
	previewView      string
	previewNoHeader  bool
	previewDelimiter string
	previewSheet     string
	previewJSON      bool
)

// previewCmd represents the 'preview' command.
var previewCmd = &cobra.Command{
	Use:   "preview [file|-]",
	Short: "Show the raw, normalized and payload views of a changesheet",
	Long: `The preview command parses one changesheet and shows it in three stages:

  Raw         the table as written
  Normalized  blank ids and actions filled in from the rows above
  Payload     the draft update operations, as JSON

A stage that fails shows its error instead; earlier stages are still shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		return runPreview(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewView, "view", string(preview.SectionAll), "Which view to print: raw, normalized, payload or all")
	previewCmd.Flags().BoolVar(&previewNoHeader, "no-header", false, "Treat the first line as data (columns are id, action, attribute, value)")
	previewCmd.Flags().StringVar(&previewDelimiter, "delimiter", "", "Field separator: auto, comma, tab, pipe or semicolon")
	previewCmd.Flags().StringVar(&previewSheet, "sheet", "", "Worksheet to read from an .xlsx file")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Print the view as JSON")
}

func runPreview(cmd *cobra.Command, path string) error {
	section, err := preview.ParseSection(previewView)
	if err != nil {
		return err
	}

	settings := previewSettings(cmd)

	var sheet *changesheet.Changesheet
	if path == "-" {
		opts, err := settings.Options()
		if err != nil {
			return err
		}
		sheet, err = changesheet.ParseReader(cmd.InOrStdin(), opts)
		if err != nil {
			return err
		}
	} else {
		sheet, err = converter.LoadChangesheet(path, settings)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	logger.Debug("previewing changesheet", map[string]any{
		"source": path,
		"rows":   len(sheet.Rows),
		"errors": len(sheet.Errors),
	})

	view := preview.Build(sheet, mainConfig.Translator())
	out := cmd.OutOrStdout()

	if previewJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else if err := preview.Render(out, view, section); err != nil {
		return err
	}

	if err := view.Err(); err != nil {
		return fmt.Errorf("no payload: %w", err)
	}
	return nil
}

// previewSettings applies the command flags over the configured parser settings.
func previewSettings(cmd *cobra.Command) config.ParserSettings {
	settings := mainConfig.Parser
	if cmd.Flags().Changed("no-header") {
		header := !previewNoHeader
		settings.Header = &header
	}
	if previewDelimiter != "" {
		settings.Delimiter = previewDelimiter
	}
	if previewSheet != "" {
		settings.Sheet = previewSheet
	}
	return settings
}
