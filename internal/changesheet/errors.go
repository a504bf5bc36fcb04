package changesheet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrParseStructure    = errors.New("changesheet has structural errors")
	ErrMissingAntecedent = errors.New("no preceding value to carry forward")
)

// Parse error codes.
const (
	CodeTooFewFields  = "TooFewFields"
	CodeTooManyFields = "TooManyFields"
	CodeInvalidQuotes = "InvalidQuotes"
)

// ParseError describes one structural problem found while parsing.
type ParseError struct {
	// Row is the 0-based index of the data row the error refers to.
	Row int `json:"row"`

	// Code is one of the Code* constants.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Code, e.Message)
}

// ParseStructureError collects the structural errors reported for a changesheet.
type ParseStructureError struct {
	Errors []ParseError
}

func (e *ParseStructureError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		msgs[i] = pe.Error()
	}
	return fmt.Sprintf("%s: %s", ErrParseStructure, strings.Join(msgs, "; "))
}

func (e *ParseStructureError) Unwrap() error {
	return ErrParseStructure
}

// MissingAntecedentError is returned when a blank carry-forward field has no
// non-empty value before it.
type MissingAntecedentError struct {
	// Field is the column name ("id" or "action").
	Field string

	// Row is the 0-based index of the offending row.
	Row int
}

func (e *MissingAntecedentError) Error() string {
	return fmt.Sprintf("cannot fill %q on row %d: %s", e.Field, e.Row, ErrMissingAntecedent)
}

func (e *MissingAntecedentError) Unwrap() error {
	return ErrMissingAntecedent
}
