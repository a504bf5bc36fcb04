// =============================================================================
// Changesheet Preview - Payload Translator
// =============================================================================
//
// This module maps normalized changesheet rows to draft change operations
// and serializes a batch of them as JSON.
//
// MAPPING:
//   | Family | Actions                                | Update clause             |
//   |--------|----------------------------------------|---------------------------|
//   | insert | insert, insert item, insert items      | {"$push": {attr: value}}  |
//   | set    | update, set, replace, replace items    | {"$set": {attr: value}}   |
//   | remove | remove                                 | {"$unset": attr}          |
//
//   Any other action fails, including the declared "remove item" and
//   "remove items", which have no clause shape yet.
//
// KNOWN LIMITATIONS:
//   - Insert-family actions append unconditionally. Changesheet authoring
//     guidance says an item already in the list is not added again; $push
//     does not honor that.
//   - Every operation names the same placeholder collection (see resolver.go).
//
// =============================================================================

package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
)

// ErrUnsupportedAction matches any *UnsupportedActionError with errors.Is.
var ErrUnsupportedAction = errors.New("unsupported action")

// UnsupportedActionError is returned when a row's action has no update clause.
type UnsupportedActionError struct {
	// Action is the offending action text.
	Action changesheet.Action

	// Row is the 0-based index of the row within the batch.
	Row int
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("row %d: %s %q", e.Row, ErrUnsupportedAction, e.Action)
}

func (e *UnsupportedActionError) Unwrap() error {
	return ErrUnsupportedAction
}

// =============================================================================
// TRANSLATOR
// =============================================================================

// Translator turns rows into change operations.
// A Translator holds no per-call state and may be shared.
type Translator struct {
	resolver CollectionResolver
}

// NewTranslator creates a Translator. A nil resolver uses the placeholder collection.
func NewTranslator(resolver CollectionResolver) *Translator {
	if resolver == nil {
		resolver = PlaceholderResolver{}
	}
	return &Translator{resolver: resolver}
}

// defaultTranslator backs the package-level functions.
var defaultTranslator = NewTranslator(nil)

// TranslateRow translates one row using the placeholder collection.
func TranslateRow(row changesheet.Row) (ChangeOperation, error) {
	return defaultTranslator.TranslateRow(row)
}

// TranslateRows translates and serializes rows using the placeholder collection.
func TranslateRows(rows []changesheet.Row) (string, error) {
	return defaultTranslator.TranslateRows(rows)
}

// TranslateRow maps one normalized row to a change operation.
//
// RETURNS:
//   - The operation.
//   - An *UnsupportedActionError (with Row 0) if the action has no clause shape.
func (t *Translator) TranslateRow(row changesheet.Row) (ChangeOperation, error) {
	return t.translate(row, 0)
}

// Operations translates every row, stopping at the first failure.
// On failure no operations are returned.
func (t *Translator) Operations(rows []changesheet.Row) ([]ChangeOperation, error) {
	ops := make([]ChangeOperation, 0, len(rows))
	for i, row := range rows {
		op, err := t.translate(row, i)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// TranslateRows translates rows and serializes the operations as an indented
// JSON array. The batch is all-or-nothing: if any row fails, no text is returned.
func (t *Translator) TranslateRows(rows []changesheet.Row) (string, error) {
	ops, err := t.Operations(rows)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ops); err != nil {
		return "", fmt.Errorf("failed to encode payloads: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// translate builds the operation for the row at index i.
func (t *Translator) translate(row changesheet.Row, i int) (ChangeOperation, error) {
	clause := UpdateClause{Attribute: row.Attribute, Value: row.Value}

	switch row.Action.Family() {
	case changesheet.FamilyInsert:
		clause.Operator = OperatorPush
	case changesheet.FamilySet:
		clause.Operator = OperatorSet
	case changesheet.FamilyRemove:
		clause.Operator = OperatorUnset
		clause.Value = ""
	case changesheet.FamilyNone:
		return ChangeOperation{}, &UnsupportedActionError{Action: row.Action, Row: i}
	default:
		panic(fmt.Sprintf("unhandled action family %v", row.Action.Family()))
	}

	return ChangeOperation{
		Update: t.resolver.CollectionFor(row.ID),
		Updates: []UpdateStatement{{
			Q: Query{ID: row.ID},
			U: clause,
		}},
	}, nil
}
