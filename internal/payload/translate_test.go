package payload

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
)

func clauseJSON(t *testing.T, op ChangeOperation) string {
	t.Helper()
	require.Len(t, op.Updates, 1)
	bits, err := json.Marshal(op.Updates[0].U)
	require.NoError(t, err)
	return string(bits)
}

func TestTranslateRow(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		op, err := TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionSet, Attribute: "name", Value: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, DefaultCollectionPlaceholder, op.Update)
		assert.Equal(t, Query{ID: "x"}, op.Updates[0].Q)
		assert.JSONEq(t, `{"$set": {"name": "Alice"}}`, clauseJSON(t, op))
	})
	t.Run("remove", func(t *testing.T) {
		op, err := TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionRemove, Attribute: "name", Value: ""})
		require.NoError(t, err)
		assert.JSONEq(t, `{"$unset": "name"}`, clauseJSON(t, op))
	})
	t.Run("remove ignores the value", func(t *testing.T) {
		op, err := TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionRemove, Attribute: "name", Value: "ignored"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"$unset": "name"}`, clauseJSON(t, op))
	})
	t.Run("insert appends", func(t *testing.T) {
		op, err := TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionInsertItem, Attribute: "tags", Value: "t1"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"$push": {"tags": "t1"}}`, clauseJSON(t, op))
	})
	t.Run("every translatable action", func(t *testing.T) {
		tests := map[changesheet.Action]Operator{
			changesheet.ActionInsert:       OperatorPush,
			changesheet.ActionInsertItem:   OperatorPush,
			changesheet.ActionInsertItems:  OperatorPush,
			changesheet.ActionUpdate:       OperatorSet,
			changesheet.ActionSet:          OperatorSet,
			changesheet.ActionReplace:      OperatorSet,
			changesheet.ActionReplaceItems: OperatorSet,
			changesheet.ActionRemove:       OperatorUnset,
		}
		for action, operator := range tests {
			op, err := TranslateRow(changesheet.Row{ID: "1", Action: action, Attribute: "a", Value: "b"})
			require.NoError(t, err, string(action))
			assert.Equal(t, operator, op.Updates[0].U.Operator, string(action))
			assert.Equal(t, "a", op.Updates[0].U.Attribute)
		}
	})
	t.Run("unsupported actions", func(t *testing.T) {
		for _, action := range []changesheet.Action{
			changesheet.ActionRemoveItem,
			changesheet.ActionRemoveItems,
			"foo",
			"moo",
			"Set",
			"",
		} {
			_, err := TranslateRow(changesheet.Row{ID: "x", Action: action, Attribute: "tags", Value: "t1"})
			require.Error(t, err, string(action))
			assert.True(t, errors.Is(err, ErrUnsupportedAction))

			var uae *UnsupportedActionError
			require.True(t, errors.As(err, &uae))
			assert.Equal(t, action, uae.Action)
		}
	})
	t.Run("dotted attributes stay flat", func(t *testing.T) {
		op, err := TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionSet, Attribute: "env.depth", Value: "10"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"$set": {"env.depth": "10"}}`, clauseJSON(t, op))
	})
	t.Run("custom resolver", func(t *testing.T) {
		tr := NewTranslator(PlaceholderResolver{Name: "biosample_set"})
		op, err := tr.TranslateRow(changesheet.Row{ID: "x", Action: changesheet.ActionSet, Attribute: "a", Value: "b"})
		require.NoError(t, err)
		assert.Equal(t, "biosample_set", op.Update)
	})
}

func TestTranslateRows(t *testing.T) {
	t.Run("exact text", func(t *testing.T) {
		text, err := TranslateRows([]changesheet.Row{
			{ID: "x", Action: changesheet.ActionSet, Attribute: "name", Value: "Alice"},
			{ID: "x", Action: changesheet.ActionRemove, Attribute: "nickname"},
		})
		require.NoError(t, err)
		assert.Equal(t, `[
  {
    "update": "TODO_set",
    "updates": [
      {
        "q": {
          "id": "x"
        },
        "u": {
          "$set": {
            "name": "Alice"
          }
        }
      }
    ]
  },
  {
    "update": "TODO_set",
    "updates": [
      {
        "q": {
          "id": "x"
        },
        "u": {
          "$unset": "nickname"
        }
      }
    ]
  }
]`, text)
	})
	t.Run("order is preserved", func(t *testing.T) {
		text, err := TranslateRows([]changesheet.Row{
			{ID: "1", Action: changesheet.ActionInsert, Attribute: "a", Value: "v1"},
			{ID: "2", Action: changesheet.ActionUpdate, Attribute: "b", Value: "v2"},
			{ID: "3", Action: changesheet.ActionReplaceItems, Attribute: "c", Value: "v3"},
		})
		require.NoError(t, err)
		result := gjson.Parse(text)
		assert.Equal(t, int64(3), result.Get("#").Int())
		assert.Equal(t, []interface{}{"1", "2", "3"}, result.Get("#.updates.0.q.id").Value())
		assert.Equal(t, "v1", result.Get(`0.updates.0.u.$push.a`).String())
		assert.Equal(t, "v3", result.Get(`2.updates.0.u.$set.c`).String())
	})
	t.Run("no html escaping", func(t *testing.T) {
		text, err := TranslateRows([]changesheet.Row{
			{ID: "x", Action: changesheet.ActionSet, Attribute: "note", Value: "<b>&</b>"},
		})
		require.NoError(t, err)
		assert.Contains(t, text, `"<b>&</b>"`)
	})
	t.Run("empty batch", func(t *testing.T) {
		text, err := TranslateRows(nil)
		require.NoError(t, err)
		assert.Equal(t, "[]", text)
	})
	t.Run("one failure fails the batch", func(t *testing.T) {
		text, err := TranslateRows([]changesheet.Row{
			{ID: "1", Action: changesheet.ActionSet, Attribute: "a", Value: "b"},
			{ID: "2", Action: changesheet.ActionRemoveItem, Attribute: "tags", Value: "t1"},
			{ID: "3", Action: changesheet.ActionSet, Attribute: "a", Value: "b"},
		})
		assert.Empty(t, text)
		var uae *UnsupportedActionError
		require.True(t, errors.As(err, &uae))
		assert.Equal(t, 1, uae.Row)
		assert.Equal(t, changesheet.ActionRemoveItem, uae.Action)
	})
	t.Run("operations on failure", func(t *testing.T) {
		ops, err := NewTranslator(nil).Operations([]changesheet.Row{
			{ID: "1", Action: "foo", Attribute: "bar", Value: "baz"},
		})
		assert.Nil(t, ops)
		assert.Error(t, err)
	})
}

func TestParsedChangesheetPipeline(t *testing.T) {
	t.Run("non-canonical actions fail translation", func(t *testing.T) {
		sheet, err := changesheet.Parse("id,action,attribute,value\n1,foo,bar,baz\n2,moo,mar,maz", changesheet.DefaultParseOptions())
		require.NoError(t, err)
		require.Len(t, sheet.Rows, 2)

		rows, err := changesheet.Normalize(sheet.Rows)
		require.NoError(t, err)

		_, err = TranslateRows(rows)
		assert.True(t, errors.Is(err, ErrUnsupportedAction))
	})
	t.Run("normalized tsv", func(t *testing.T) {
		sheet, err := changesheet.Parse("id\taction\tattribute\tvalue\n"+
			"1\tupdate\ta\tb\n"+
			"\tupdate\ta\tb\n"+
			"2\treplace items\ta\tb\n"+
			"\treplace items\ta\tb\n", changesheet.DefaultParseOptions())
		require.NoError(t, err)

		rows, err := changesheet.Normalize(sheet.Rows)
		require.NoError(t, err)

		text, err := TranslateRows(rows)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"1", "1", "2", "2"}, gjson.Get(text, "#.updates.0.q.id").Value())
	})
}

func TestUpdateClauseJSON(t *testing.T) {
	t.Run("decode", func(t *testing.T) {
		var ops []ChangeOperation
		require.NoError(t, json.Unmarshal([]byte(`[
			{"update": "c", "updates": [{"q": {"id": "1"}, "u": {"$push": {"tags": "t1"}}}]},
			{"update": "c", "updates": [{"q": {"id": "2"}, "u": {"$unset": "name"}}]}
		]`), &ops))
		require.Len(t, ops, 2)
		assert.Equal(t, UpdateClause{Operator: OperatorPush, Attribute: "tags", Value: "t1"}, ops[0].Updates[0].U)
		assert.Equal(t, UpdateClause{Operator: OperatorUnset, Attribute: "name"}, ops[1].Updates[0].U)
	})
	t.Run("reject", func(t *testing.T) {
		for _, raw := range []string{
			`{}`,
			`{"$inc": {"a": 1}}`,
			`{"$set": {"a": "b"}, "$unset": "c"}`,
			`{"$set": {"a": "b", "c": "d"}}`,
			`{"$unset": 3}`,
		} {
			var c UpdateClause
			assert.Error(t, json.Unmarshal([]byte(raw), &c), raw)
		}
	})
	t.Run("unknown operator cannot be encoded", func(t *testing.T) {
		_, err := json.Marshal(UpdateClause{Operator: "$inc", Attribute: "a"})
		assert.Error(t, err)
	})
}
