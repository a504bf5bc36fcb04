// =============================================================================
// Changesheet Preview - Spreadsheet Reader
// =============================================================================
//
// Changesheets are often authored in a spreadsheet and dropped in as an
// .xlsx workbook instead of pasted text. This file reads one sheet of such a
// workbook into the same Changesheet structure the text parser produces.
//
// SHEET LAYOUT:
//   The first non-blank row is the header. Blank rows are skipped. Cell
//   values are read as displayed text.
//
// =============================================================================

package changesheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads a changesheet from an XLSX workbook.
//
// PARAMETERS:
//   - r: The workbook content.
//   - sheet: The sheet to read. Empty selects the first sheet.
//
// RETURNS:
//   - The parsed changesheet with a zero Delimiter.
//   - An error if the workbook or sheet cannot be read.
func ParseXLSX(r io.Reader, sheet string) (*Changesheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var (
		records [][]string
		lines   []int
	)
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, row)
		lines = append(lines, i+1)
	}

	return build(records, lines, true, false), nil
}

// isEmptyRow checks if a sheet row contains only empty cells.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
