// =============================================================================
// Changesheet Preview - Carry-Forward Normalizer
// =============================================================================
//
// Changesheet authors leave the id and action cells blank when a row applies
// to the same record, or uses the same verb, as the row above it. This file
// fills those blanks.
//
// ALGORITHM:
//   Walk the rows in order, remembering the last non-empty value of the
//   field. A blank cell takes the remembered value. A blank cell before any
//   non-empty value is an error for the whole call.
//
//   Input:            Output:
//   1  update a b     1  update a b
//      update a b     1  update a b
//   2  replace ...    2  replace ...
//      replace ...    2  replace ...
//
// The input slice is never modified. Callers may keep displaying the raw
// rows next to the normalized ones.
//
// =============================================================================

package changesheet

// field selects a carry-forward column of a Row.
type field struct {
	name string
	get  func(Row) string
	set  func(*Row, string)
}

var (
	idField = field{
		name: ColumnID,
		get:  func(r Row) string { return r.ID },
		set:  func(r *Row, v string) { r.ID = v },
	}
	actionField = field{
		name: ColumnAction,
		get:  func(r Row) string { return string(r.Action) },
		set:  func(r *Row, v string) { r.Action = Action(v) },
	}
)

// FillIDs returns a copy of rows with every empty id replaced by the most
// recent non-empty id before it.
//
// RETURNS:
//   - The filled rows, same length and order as the input.
//   - A *MissingAntecedentError if a blank id has nothing before it.
func FillIDs(rows []Row) ([]Row, error) {
	return carryForward(rows, idField)
}

// FillActions returns a copy of rows with every empty action replaced by the
// most recent non-empty action before it.
func FillActions(rows []Row) ([]Row, error) {
	return carryForward(rows, actionField)
}

// Normalize fills both the id and the action columns.
// The two passes are independent, so their order does not matter.
func Normalize(rows []Row) ([]Row, error) {
	filled, err := FillIDs(rows)
	if err != nil {
		return nil, err
	}
	return FillActions(filled)
}

// carryForward runs one imputation pass for the given field.
func carryForward(rows []Row, f field) ([]Row, error) {
	out := make([]Row, len(rows))
	last := ""

	for i, row := range rows {
		value := f.get(row)
		switch {
		case value != "":
			last = value
		case last != "":
			f.set(&row, last)
		default:
			return nil, &MissingAntecedentError{Field: f.name, Row: i}
		}
		out[i] = row
	}

	return out, nil
}
