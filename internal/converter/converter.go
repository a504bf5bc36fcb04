// =============================================================================
// Changesheet Preview - Converter Module
// =============================================================================
//
// This module contains the batch conversion pipeline for a single
// changesheet file, from reading the file to writing the draft payload.
//
// CONVERSION PIPELINE:
//   1. Read and parse the changesheet (delimited text or .xlsx)
//   2. Normalize and translate the rows
//   3. Write the draft payload file
//   4. Archive the changesheet and the draft
//
// CONCURRENCY:
//   A Converter handles one file. The process command runs several
//   Converters at once; they share the translator and logger, which hold
//   no per-call state.
//
// =============================================================================

package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/config"
	"github.com/ginjaninja78/changesheet-preview/internal/logging"
	"github.com/ginjaninja78/changesheet-preview/internal/payload"
	"github.com/ginjaninja78/changesheet-preview/internal/preview"
	"github.com/ginjaninja78/changesheet-preview/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the changesheet that was processed.
	FilePath string

	// OutputFile is the path to the draft payload file.
	// Empty if processing failed or on a dry run.
	OutputFile string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// View is the staged view, when the file could be parsed.
	View *preview.View

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsParsed is the number of data rows read from the changesheet.
	RowsParsed int

	// ParseErrors is the number of structural problems reported by the parser.
	// They are logged but do not stop the conversion.
	ParseErrors int

	// OperationsCreated is the number of change operations in the draft.
	OperationsCreated int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single changesheet to a draft payload.
type Converter struct {
	path       string
	mainConfig *config.MainConfig
	translator *payload.Translator
	files      *utils.FileManager
	logger     logging.Logger

	// DryRun skips writing and archiving.
	DryRun bool
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - path: The changesheet file.
//   - mainConfig: The main application configuration.
//   - translator: Shared payload translator. Nil uses mainConfig.Translator().
//   - logger: Shared logger. Nil discards log output.
func New(path string, mainConfig *config.MainConfig, translator *payload.Translator, logger logging.Logger) *Converter {
	if translator == nil {
		translator = mainConfig.Translator()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	files.ArchiveOnSuccess = mainConfig.ShouldArchive()

	return &Converter{
		path:       path,
		mainConfig: mainConfig,
		translator: translator,
		files:      files,
		logger:     logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
func (c *Converter) Run() (result Result) {
	startTime := time.Now()
	result = Result{FilePath: c.path}
	tags := map[string]any{"file": c.path}

	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	c.logger.Info("processing changesheet", tags)

	// =========================================================================
	// STEP 1: PARSE
	// =========================================================================

	sheet, err := LoadChangesheet(c.path, c.mainConfig.Parser)
	if err != nil {
		result.Error = fmt.Errorf("failed to parse changesheet: %w", err)
		return result
	}

	result.Stats.RowsParsed = len(sheet.Rows)
	result.Stats.ParseErrors = len(sheet.Errors)

	for _, pe := range sheet.Errors {
		c.logger.Warn("changesheet structure problem", map[string]any{
			"file": c.path,
			"row":  pe.Row,
			"code": pe.Code,
		})
	}
	if missing := sheet.MissingColumns(); len(missing) > 0 {
		c.logger.Warn("changesheet is missing columns", map[string]any{"file": c.path, "columns": missing})
	}

	c.logger.Debug("parsed changesheet", map[string]any{
		"file":      c.path,
		"rows":      len(sheet.Rows),
		"delimiter": string(sheet.Delimiter),
	})

	// =========================================================================
	// STEP 2: NORMALIZE AND TRANSLATE
	// =========================================================================

	view := preview.Build(sheet, c.translator)
	result.View = view

	if err := view.Err(); err != nil {
		result.Error = fmt.Errorf("failed to build payload: %w", err)
		return result
	}

	result.Stats.OperationsCreated = len(view.Normalized)

	if c.DryRun {
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(view.Payload)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.OutputFile = outputPath
	c.logger.Info("wrote draft payload", map[string]any{"file": c.path, "output": outputPath})

	// =========================================================================
	// STEP 4: ARCHIVE FILES
	// =========================================================================

	if err := c.archiveFiles(outputPath); err != nil {
		// The draft is already written; archival failures are only logged.
		c.logger.Error("failed to archive files", err, tags)
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// LoadChangesheet reads a changesheet file. Files ending in ".xlsx" are read
// as spreadsheets; everything else as delimited text.
func LoadChangesheet(path string, settings config.ParserSettings) (*changesheet.Changesheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return changesheet.ParseXLSX(file, settings.Sheet)
	}

	opts, err := settings.Options()
	if err != nil {
		return nil, err
	}
	return changesheet.ParseReader(file, opts)
}

// writeOutput writes the draft payload to the output directory.
func (c *Converter) writeOutput(text string) (string, error) {
	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, c.path)
	outputPath := filepath.Join(c.mainConfig.OutputDir, fileName)

	if err := os.WriteFile(outputPath, []byte(text+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return outputPath, nil
}

// archiveFiles moves the changesheet to the input archive and copies the
// draft to the output archive.
func (c *Converter) archiveFiles(outputPath string) error {
	if _, err := c.files.ArchiveInputFile(c.path); err != nil {
		return fmt.Errorf("failed to archive input file: %w", err)
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return fmt.Errorf("failed to archive output file: %w", err)
	}
	return nil
}
