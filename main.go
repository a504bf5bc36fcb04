// =============================================================================
// Changesheet Preview - Main Entry Point
// =============================================================================
//
// USAGE:
//   changesheet preview [file|-]  - Show the raw, normalized and payload views
//   changesheet process           - Convert every changesheet in the input directory
//   changesheet serve             - Start the HTTP preview API
//   changesheet version           - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Parsing, normalization, translation and the preview surfaces
//   - pkg/       : Shared file handling utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/changesheet-preview/cmd"
)

func main() {
	cmd.Execute()
}
