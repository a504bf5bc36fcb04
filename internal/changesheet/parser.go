// =============================================================================
// Changesheet Preview - Delimited-Text Parser
// =============================================================================
//
// This module turns pasted or uploaded changesheet text into an ordered
// sequence of rows. Tokenization (quoting, line endings) is delegated to
// encoding/csv; this file adds what a changesheet needs on top of it:
//   - Delimiter detection (comma, tab, pipe, semicolon)
//   - Header row handling
//   - Skipping blank lines
//   - Reporting ragged rows and malformed quotes instead of failing on them
//   - Renaming repeated header names
//
// BLANK LINES:
//   A line holding nothing but whitespace is skipped like an empty one,
//   as long as it has no delimiter. A line such as "\t\t" is a row of
//   empty cells and is kept.
//
// CELL VALUES:
//   Cells are kept verbatim. Nothing is trimmed or coerced, so an attribute
//   or value read back from a Row is exactly the text in the source.
//
// =============================================================================

package changesheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
)

// =============================================================================
// CHANGESHEET STRUCTURE
// =============================================================================

// Changesheet is the result of parsing one changesheet.
type Changesheet struct {
	// Rows contains the typed rows in source order.
	Rows []Row

	// Records contains each data row keyed by header name.
	// Columns other than the four known ones are only visible here.
	Records []map[string]string

	// Fields contains the header names in column order.
	Fields []string

	// Delimiter is the separator used to split the text.
	// Zero for spreadsheet input.
	Delimiter rune

	// Errors contains structural problems found while parsing.
	Errors []ParseError
}

// Err returns a *ParseStructureError if any structural errors were reported.
func (c *Changesheet) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return &ParseStructureError{Errors: c.Errors}
}

// MissingColumns returns the required columns absent from the header.
func (c *Changesheet) MissingColumns() []string {
	return lo.Filter(Columns, func(column string, _ int) bool {
		return !lo.Contains(c.Fields, column)
	})
}

// =============================================================================
// PARSE OPTIONS
// =============================================================================

// ParseOptions controls how changesheet text is read.
type ParseOptions struct {
	// Header treats the first non-blank line as column names.
	// When false, columns are assigned positionally as id, action, attribute, value.
	Header bool

	// Delimiter is the field separator. Zero means detect it.
	Delimiter rune
}

// DefaultParseOptions returns the options used for pasted changesheets.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Header: true}
}

// delimiterCandidates are tried in order by DetectDelimiter.
var delimiterCandidates = []rune{',', '\t', '|', ';'}

// detectionLines is how many non-blank lines DetectDelimiter samples.
const detectionLines = 10

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads changesheet text.
//
// PARAMETERS:
//   - text: The raw changesheet content.
//   - opts: Header and delimiter settings.
//
// RETURNS:
//   - The parsed changesheet. Ragged rows and malformed quotes are kept
//     and listed in Errors.
//   - An error only if the text cannot be tokenized at all.
func Parse(text string, opts ParseOptions) (*Changesheet, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(text)
	}

	reader := newReader(strings.NewReader(text), delimiter)

	var (
		records [][]string
		lines   []int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read changesheet: %w", err)
		}

		if isBlankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}

	sheet := build(records, lines, opts.Header, true)
	sheet.Delimiter = delimiter
	sheet.Errors = append(quoteErrors(text, delimiter, lines, opts.Header), sheet.Errors...)

	return sheet, nil
}

// ParseReader reads all of r and parses it as changesheet text.
func ParseReader(r io.Reader, opts ParseOptions) (*Changesheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read changesheet: %w", err)
	}
	return Parse(string(data), opts)
}

// DetectDelimiter guesses the field separator of changesheet text.
//
// Each candidate is used to split the first few non-blank lines. The winner
// is the candidate whose field counts vary least from line to line while
// still producing more than one field per line on average. Comma is returned
// when nothing qualifies.
func DetectDelimiter(text string) rune {
	sample := sampleLines(text, detectionLines)
	if sample == "" {
		return ','
	}

	best := ','
	bestDelta := -1
	bestAvg := 0.0

	for _, candidate := range delimiterCandidates {
		reader := newReader(strings.NewReader(sample), candidate)

		var counts []int
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				continue
			}
			counts = append(counts, len(record))
		}
		if len(counts) == 0 {
			continue
		}

		total, delta := 0, 0
		for i, n := range counts {
			total += n
			if i > 0 {
				delta += abs(n - counts[i-1])
			}
		}
		avg := float64(total) / float64(len(counts))
		if avg < 2 {
			continue
		}

		if bestDelta < 0 || delta < bestDelta || (delta == bestDelta && avg > bestAvg) {
			best, bestDelta, bestAvg = candidate, delta, avg
		}
	}

	return best
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newReader configures a csv.Reader for changesheet text.
func newReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter

	// Ragged rows are reported by build, not by the reader.
	reader.FieldsPerRecord = -1

	// A stray quote inside an unquoted cell is kept as text. Malformed
	// quoted cells are reported by quoteErrors.
	reader.LazyQuotes = true
	return reader
}

// quoteErrors re-reads text with strict quoting and reports every malformed
// quoted cell. The lenient reader accepts these silently; an unterminated
// quote, for one, folds every following line into a single cell.
//
// PARAMETERS:
//   - text: The changesheet content, without byte order mark.
//   - delimiter: The field separator used for the lenient read.
//   - lines: Source line of each record from the lenient read.
//   - header: Whether the first record holds the column names.
func quoteErrors(text string, delimiter rune, lines []int, header bool) []ParseError {
	reader := newReader(strings.NewReader(text), delimiter)
	reader.LazyQuotes = false

	var errs []ParseError
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}

		var pe *csv.ParseError
		if !errors.As(err, &pe) {
			continue
		}
		if !errors.Is(pe.Err, csv.ErrQuote) {
			continue
		}

		// The record that starts on the failing line, counted among the
		// records the lenient read kept.
		before := 0
		for _, line := range lines {
			if line < pe.StartLine {
				before++
			}
		}
		errs = append(errs, ParseError{
			Row:     dataIndex(before, header),
			Code:    CodeInvalidQuotes,
			Message: fmt.Sprintf("line %d: %s", pe.StartLine, quoteProblem(pe)),
		})
	}
	return errs
}

func quoteProblem(pe *csv.ParseError) string {
	if pe.Line > pe.StartLine || pe.Column == 0 {
		return "quoted field is not terminated"
	}
	return pe.Err.Error()
}

// build turns tokenized records into a Changesheet.
//
// PARAMETERS:
//   - records: Non-blank records in source order.
//   - lines: Source line of each record.
//   - header: Whether the first record holds the column names.
//   - strict: Whether short rows are reported. Spreadsheet readers drop
//     trailing empty cells, so they pass false.
func build(records [][]string, lines []int, header, strict bool) *Changesheet {
	sheet := &Changesheet{
		Rows:    []Row{},
		Records: []map[string]string{},
	}

	if header {
		if len(records) == 0 {
			return sheet
		}
		sheet.Fields = cleanHeaders(records[0])
		records, lines = records[1:], lines[1:]
	} else {
		sheet.Fields = append([]string(nil), Columns...)
	}

	for i, cells := range records {
		expected := len(sheet.Fields)
		switch {
		case len(cells) < expected && strict:
			sheet.Errors = append(sheet.Errors, ParseError{
				Row:     i,
				Code:    CodeTooFewFields,
				Message: fmt.Sprintf("too few fields: expected %d fields but parsed %d", expected, len(cells)),
			})
		case len(cells) > expected:
			sheet.Errors = append(sheet.Errors, ParseError{
				Row:     i,
				Code:    CodeTooManyFields,
				Message: fmt.Sprintf("too many fields: expected %d fields but parsed %d", expected, len(cells)),
			})
		}

		record := make(map[string]string, expected)
		for col, name := range sheet.Fields {
			if col < len(cells) {
				record[name] = cells[col]
			} else {
				record[name] = ""
			}
		}

		sheet.Records = append(sheet.Records, record)
		sheet.Rows = append(sheet.Rows, rowFromRecord(record, lines[i]))
	}

	return sheet
}

// cleanHeaders trims header names and names empty ones by position.
// A repeated name gets a numeric suffix (value, value_1, value_2) so that
// no column is hidden behind another in the record map.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		name := header
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", header, n)
		}
		seen[name] = true
		cleaned[i] = name
	}
	return cleaned
}

// isBlankRecord reports whether a record came from a whitespace-only line.
func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// sampleLines returns up to n non-blank lines of text joined by newlines.
func sampleLines(text string, n int) string {
	var picked []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		picked = append(picked, line)
		if len(picked) == n {
			break
		}
	}
	return strings.Join(picked, "\n")
}

// dataIndex converts a count of records read so far into a data row index.
func dataIndex(recordsRead int, header bool) int {
	if header && recordsRead > 0 {
		return recordsRead - 1
	}
	return recordsRead
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
