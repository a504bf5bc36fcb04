// =============================================================================
// Changesheet Preview - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every changesheet
// in the input directory to a draft payload file.
//
// COMMAND USAGE:
//   changesheet process [flags]
//
// FLAGS:
//   --dry-run : Parse and translate without writing or archiving anything
//   --file    : Process a single file instead of the input directory
//
// PROCESSING PIPELINE:
//   1. Discover changesheets in the input directory
//   2. Convert each file (up to max_concurrency at once):
//      a. Parse the changesheet
//      b. Normalize and translate the rows
//      c. Write the draft payload
//      d. Archive the changesheet and the draft
//   3. Print the summary and write it, with an error log, to the output directory
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/changesheet-preview/internal/config"
	"github.com/ginjaninja78/changesheet-preview/internal/converter"
	"github.com/ginjaninja78/changesheet-preview/internal/logging"
	"github.com/ginjaninja78/changesheet-preview/internal/preview"
	"github.com/ginjaninja78/changesheet-preview/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun parses and translates without writing output files.
var dryRun bool

// filePath restricts processing to one file.
var filePath string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert changesheets in the input directory to draft payloads",
	Long: `The process command scans the input directory for changesheets (.csv, .tsv,
.txt and .xlsx) and converts each one to a draft update payload.

Files are processed concurrently, up to max_concurrency at once.

On success:
  - The draft payload is written to the output directory
  - The changesheet is moved to the input archive
  - The draft is copied to the output archive

On error:
  - The changesheet stays in the input directory
  - The error is written to an error log in the output directory
  - Other files are still processed unless continue_on_error is false`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse and translate without writing or archiving files",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Process only this changesheet",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess converts the changesheets and reports the outcome.
func runProcess(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		discovered, err := files.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
		inputFiles = discovered
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No changesheets found in the input directory.")
		return nil
	}

	fmt.Fprintf(out, "Found %d changesheet(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 2: PROCESS FILES CONCURRENTLY
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: time.Now(), TotalFiles: len(inputFiles)}
	results, runErr := processFiles(ctx, inputFiles, mainConfig, logger, dryRun)
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	var errorEntries []utils.ErrorLogEntry

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		summary.TotalRows += result.Stats.RowsParsed
		summary.ParseErrors += result.Stats.ParseErrors

		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalOperations += result.Stats.OperationsCreated
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				Rows:        result.Stats.RowsParsed,
				Operations:  result.Stats.OperationsCreated,
				ProcessTime: result.Stats.ProcessingTime,
			})
			if result.OutputFile != "" {
				fmt.Fprintf(out, "  ✓ %s -> %s\n", name, result.OutputFile)
			} else {
				fmt.Fprintf(out, "  ✓ %s (%d operations)\n", name, result.Stats.OperationsCreated)
			}
			continue
		}

		summary.FailedFiles++
		described := preview.DescribeError(result.Error)
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: result.Error.Error(),
			ErrorKind:    described.Kind,
		})
		errorEntries = append(errorEntries, errorLogEntry(name, described))
		fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	fmt.Fprintln(out)
	if err := utils.WriteSummary(out, summary); err != nil {
		return err
	}

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Error("failed to write summary log", err, nil)
		} else {
			logger.Debug("wrote summary log", map[string]any{"path": path})
		}
		if path, err := utils.WriteErrorLog(errorEntries, mainConfig.OutputDir); err != nil {
			logger.Error("failed to write error log", err, nil)
		} else if path != "" {
			fmt.Fprintf(out, "\nErrors have been logged to %s\n", path)
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d changesheet(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFiles converts files with at most cfg.MaxConcurrency running at once.
// Results are returned in input order. When continue_on_error is off, the
// first failure stops files that have not started yet; they are left out of
// the results.
func processFiles(ctx context.Context, paths []string, cfg *config.MainConfig, logger logging.Logger, dryRun bool) ([]converter.Result, error) {
	translator := cfg.Translator()
	results := make([]converter.Result, len(paths))
	started := make([]bool, len(paths))

	egp, ctx := errgroup.WithContext(ctx)
	egp.SetLimit(cfg.MaxConcurrency)

	for i, path := range paths {
		egp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true

			conv := converter.New(path, cfg, translator, logger)
			conv.DryRun = dryRun
			results[i] = conv.Run()

			if !results[i].Success {
				logger.Error("changesheet failed", results[i].Error, map[string]any{"file": path})
				if !cfg.ShouldContinueOnError() {
					return fmt.Errorf("stopped after %s failed: %w", filepath.Base(path), results[i].Error)
				}
			}
			return nil
		})
	}

	err := egp.Wait()

	var done []converter.Result
	for i, result := range results {
		if started[i] {
			done = append(done, result)
		}
	}
	return done, err
}

func errorLogEntry(fileName string, described *preview.StageError) utils.ErrorLogEntry {
	entry := utils.ErrorLogEntry{
		Timestamp:    time.Now(),
		FileName:     fileName,
		ErrorKind:    described.Kind,
		ErrorMessage: described.Message,
		RowIndex:     -1,
		Field:        described.Field,
		Action:       described.Action,
	}
	if described.Row != nil {
		entry.RowIndex = *described.Row
	}
	return entry
}
