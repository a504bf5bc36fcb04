// =============================================================================
// Changesheet Preview - Change Operations
// =============================================================================
//
// A ChangeOperation is the draft request body for one changesheet row, shaped
// for a MongoDB-style update command:
//
//   {
//     "update": "<collection>",
//     "updates": [
//       { "q": { "id": "<id>" }, "u": { "$set": { "<attribute>": "<value>" } } }
//     ]
//   }
//
// Struct field order fixes the key order of the serialized JSON.
//
// =============================================================================

package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChangeOperation is an update command for a single record.
type ChangeOperation struct {
	// Update names the target collection.
	Update string `json:"update"`

	// Updates holds the statements of the command. Always one per row.
	Updates []UpdateStatement `json:"updates"`
}

// UpdateStatement pairs a query selector with an update clause.
type UpdateStatement struct {
	Q Query        `json:"q"`
	U UpdateClause `json:"u"`
}

// Query selects the target record by id.
type Query struct {
	ID string `json:"id"`
}

// Operator is an update clause operator.
type Operator string

const (
	OperatorSet   Operator = "$set"
	OperatorUnset Operator = "$unset"
	OperatorPush  Operator = "$push"
)

// UpdateClause holds exactly one update operator and its argument.
type UpdateClause struct {
	Operator  Operator
	Attribute string

	// Value is ignored for $unset.
	Value string
}

// MarshalJSON renders the clause as a single-key object.
//
//	$set / $push: {"$set": {"<attribute>": "<value>"}}
//	$unset:       {"$unset": "<attribute>"}
func (c UpdateClause) MarshalJSON() ([]byte, error) {
	switch c.Operator {
	case OperatorSet, OperatorPush:
		return marshal(map[Operator]map[string]string{
			c.Operator: {c.Attribute: c.Value},
		})
	case OperatorUnset:
		return marshal(map[Operator]string{
			c.Operator: c.Attribute,
		})
	default:
		return nil, fmt.Errorf("unknown update operator %q", c.Operator)
	}
}

// UnmarshalJSON reads a clause written by MarshalJSON.
func (c *UpdateClause) UnmarshalJSON(data []byte) error {
	var raw map[Operator]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("update clause must have exactly one operator, got %d", len(raw))
	}

	for op, arg := range raw {
		switch op {
		case OperatorSet, OperatorPush:
			var fields map[string]string
			if err := json.Unmarshal(arg, &fields); err != nil {
				return fmt.Errorf("invalid %s argument: %w", op, err)
			}
			if len(fields) != 1 {
				return fmt.Errorf("%s must name exactly one attribute", op)
			}
			for attribute, value := range fields {
				*c = UpdateClause{Operator: op, Attribute: attribute, Value: value}
			}
		case OperatorUnset:
			var attribute string
			if err := json.Unmarshal(arg, &attribute); err != nil {
				return fmt.Errorf("invalid %s argument: %w", op, err)
			}
			*c = UpdateClause{Operator: op, Attribute: attribute}
		default:
			return fmt.Errorf("unknown update operator %q", op)
		}
	}

	return nil
}

// marshal encodes v without HTML escaping, matching the batch encoder.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
