// =============================================================================
// Changesheet Preview - Row Model
// =============================================================================
//
// This file defines the typed shape of one changesheet line and the set of
// action verbs a changesheet may use.
//
// ROW SHAPE:
//   | id  | action        | attribute | value |
//   |-----|---------------|-----------|-------|
//   | x1  | set           | name      | Alice |
//   |     |               | title     | Dr.   |   <- id/action carried forward
//   | x2  | insert item   | tags      | t1    |
//
// ACTION FAMILIES:
//   Actions are grouped by the shape of the update clause they produce:
//   - Insert: insert, insert item, insert items   -> append to an array
//   - Set:    update, set, replace, replace items -> overwrite a field
//   - Remove: remove                              -> unset a field
//
//   "remove item" and "remove items" are declared values but have no family.
//   Rows using them are rejected when payloads are derived.
//
// =============================================================================

package changesheet

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Column names a changesheet header row is expected to contain.
const (
	ColumnID        = "id"
	ColumnAction    = "action"
	ColumnAttribute = "attribute"
	ColumnValue     = "value"
)

// Columns lists the required columns in their canonical order.
// This order is also used when a changesheet is parsed without a header row.
var Columns = []string{ColumnID, ColumnAction, ColumnAttribute, ColumnValue}

// =============================================================================
// ACTIONS
// =============================================================================

// Action is the verb describing the change a row makes.
// The empty Action means "same as the previous row".
type Action string

// Declared action values.
const (
	ActionInsert       Action = "insert"
	ActionInsertItem   Action = "insert item"
	ActionInsertItems  Action = "insert items"
	ActionRemove       Action = "remove"
	ActionRemoveItem   Action = "remove item"
	ActionRemoveItems  Action = "remove items"
	ActionUpdate       Action = "update"
	ActionSet          Action = "set"
	ActionReplace      Action = "replace"
	ActionReplaceItems Action = "replace items"
)

// Family groups actions that share an update clause shape.
type Family int

const (
	// FamilyNone is returned for actions that cannot be translated.
	FamilyNone Family = iota
	FamilyInsert
	FamilySet
	FamilyRemove
)

// String returns the lowercase family name.
func (f Family) String() string {
	switch f {
	case FamilyInsert:
		return "insert"
	case FamilySet:
		return "set"
	case FamilyRemove:
		return "remove"
	default:
		return "none"
	}
}

// actionFamilies maps every declared action to its family.
// Every declared action must have an entry here, including the ones mapped
// to FamilyNone, so that a newly declared action is an explicit decision.
var actionFamilies = map[Action]Family{
	ActionInsert:       FamilyInsert,
	ActionInsertItem:   FamilyInsert,
	ActionInsertItems:  FamilyInsert,
	ActionUpdate:       FamilySet,
	ActionSet:          FamilySet,
	ActionReplace:      FamilySet,
	ActionReplaceItems: FamilySet,
	ActionRemove:       FamilyRemove,

	// Item-level removal has no update clause yet.
	ActionRemoveItem:  FamilyNone,
	ActionRemoveItems: FamilyNone,
}

// Actions returns the declared actions in declaration order.
func Actions() []Action {
	return []Action{
		ActionInsert,
		ActionInsertItem,
		ActionInsertItems,
		ActionRemove,
		ActionRemoveItem,
		ActionRemoveItems,
		ActionUpdate,
		ActionSet,
		ActionReplace,
		ActionReplaceItems,
	}
}

// Declared reports whether the action is one of the declared values.
func (a Action) Declared() bool {
	_, ok := actionFamilies[a]
	return ok
}

// Family returns the family of the action.
// Undeclared actions and declared actions without a clause shape return FamilyNone.
func (a Action) Family() Family {
	return actionFamilies[a]
}

// =============================================================================
// ROW
// =============================================================================

// Row represents a single changesheet record.
// All values are kept as the text that appeared in the source.
type Row struct {
	// ID identifies the target record. Empty means "same as the previous row".
	ID string `json:"id"`

	// Action is the change verb. Empty means "same as the previous row".
	Action Action `json:"action"`

	// Attribute is the field being modified.
	Attribute string `json:"attribute"`

	// Value is the new value, never coerced.
	Value string `json:"value"`

	// Line is the 1-based source line (or sheet row) of the record.
	// Zero when the row was not produced by a parser.
	Line int `json:"line,omitempty"`
}

// rowFromRecord builds a Row from a header-keyed record.
// Columns absent from the record produce empty fields.
func rowFromRecord(record map[string]string, line int) Row {
	return Row{
		ID:        record[ColumnID],
		Action:    Action(record[ColumnAction]),
		Attribute: record[ColumnAttribute],
		Value:     record[ColumnValue],
		Line:      line,
	}
}
