package changesheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsv(rows ...[]string) string {
	lines := []string{strings.Join(Columns, "\t")}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}

func ids(rows []Row) []string {
	return lo.Map(rows, func(r Row, _ int) string { return r.ID })
}

func actions(rows []Row) []Action {
	return lo.Map(rows, func(r Row, _ int) Action { return r.Action })
}

func TestFillIDs(t *testing.T) {
	t.Run("populates missing id values", func(t *testing.T) {
		sheet, err := Parse(tsv(
			[]string{"1", "update", "a", "b"},
			[]string{"", "update", "a", "b"},
			[]string{"", "update", "a", "b"},
			[]string{"1", "update", "a", "b"},
			[]string{"2", "replace items", "a", "b"},
			[]string{"", "replace items", "a", "b"},
			[]string{"3", "insert", "a", "b"},
		), DefaultParseOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "", "", "1", "2", "", "3"}, ids(sheet.Rows))

		rows, err := FillIDs(sheet.Rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "1", "1", "1", "2", "2", "3"}, ids(rows))

		// the parsed rows are left untouched
		assert.Equal(t, []string{"1", "", "", "1", "2", "", "3"}, ids(sheet.Rows))
	})
	t.Run("carry forward from two ids", func(t *testing.T) {
		rows, err := FillIDs([]Row{
			{ID: "1", Action: ActionUpdate, Attribute: "a", Value: "b"},
			{ID: "", Action: ActionUpdate, Attribute: "a", Value: "b"},
			{ID: "2", Action: ActionReplaceItems, Attribute: "a", Value: "b"},
			{ID: "", Action: ActionReplaceItems, Attribute: "a", Value: "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "1", "2", "2"}, ids(rows))
	})
	t.Run("first row without id", func(t *testing.T) {
		rows, err := FillIDs([]Row{
			{ID: "", Action: ActionSet, Attribute: "a", Value: "b"},
			{ID: "1", Action: ActionSet, Attribute: "a", Value: "b"},
		})
		require.Error(t, err)
		assert.Nil(t, rows)
		assert.True(t, errors.Is(err, ErrMissingAntecedent))

		var mae *MissingAntecedentError
		require.True(t, errors.As(err, &mae))
		assert.Equal(t, ColumnID, mae.Field)
		assert.Equal(t, 0, mae.Row)
	})
	t.Run("already populated is a no-op", func(t *testing.T) {
		in := []Row{
			{ID: "1", Action: ActionSet, Attribute: "a", Value: "b"},
			{ID: "2", Action: ActionSet, Attribute: "c", Value: "d"},
		}
		rows, err := FillIDs(in)
		require.NoError(t, err)
		assert.Equal(t, in, rows)
	})
	t.Run("empty input", func(t *testing.T) {
		rows, err := FillIDs(nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
	t.Run("attribute and value are never filled", func(t *testing.T) {
		rows, err := FillIDs([]Row{
			{ID: "1", Action: ActionSet, Attribute: "a", Value: "b"},
			{ID: "", Action: ActionSet, Attribute: "", Value: ""},
		})
		require.NoError(t, err)
		assert.Equal(t, "", rows[1].Attribute)
		assert.Equal(t, "", rows[1].Value)
	})
}

func TestFillActions(t *testing.T) {
	t.Run("populates missing action values", func(t *testing.T) {
		sheet, err := Parse(tsv(
			[]string{"1", "update", "a", "b"},
			[]string{"1", "", "a", "b"},
			[]string{"1", "", "a", "b"},
			[]string{"1", "update", "a", "b"},
			[]string{"1", "replace items", "a", "b"},
			[]string{"1", "", "a", "b"},
			[]string{"1", "insert", "a", "b"},
		), DefaultParseOptions())
		require.NoError(t, err)
		require.Len(t, sheet.Rows, 7)

		rows, err := FillActions(sheet.Rows)
		require.NoError(t, err)
		assert.Equal(t, []Action{
			ActionUpdate, ActionUpdate, ActionUpdate, ActionUpdate,
			ActionReplaceItems, ActionReplaceItems, ActionInsert,
		}, actions(rows))
	})
	t.Run("failure names the action field and row", func(t *testing.T) {
		_, err := FillActions([]Row{
			{ID: "1", Action: "", Attribute: "a", Value: "b"},
		})
		var mae *MissingAntecedentError
		require.True(t, errors.As(err, &mae))
		assert.Equal(t, ColumnAction, mae.Field)
		assert.Equal(t, 0, mae.Row)
		assert.Contains(t, err.Error(), `"action"`)
	})
	t.Run("fails on a later row when no action was seen", func(t *testing.T) {
		_, err := FillActions([]Row{
			{ID: "1", Action: "", Attribute: "a", Value: "b"},
			{ID: "1", Action: ActionSet, Attribute: "a", Value: "b"},
		})
		require.Error(t, err)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("fixture", func(t *testing.T) {
		sheet, err := Parse(loadTestContent(t, "blank-ids-and-actions.tsv"), DefaultParseOptions())
		require.NoError(t, err)

		rows, err := Normalize(sheet.Rows)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"nmdc:bsm-11-abc", "nmdc:bsm-11-abc", "nmdc:bsm-11-abc", "nmdc:bsm-11-abc",
			"nmdc:bsm-11-def", "nmdc:bsm-11-def", "nmdc:bsm-11-def",
		}, ids(rows))
		assert.Equal(t, []Action{
			ActionSet, ActionSet, ActionInsertItems, ActionInsertItems,
			ActionRemove, ActionReplace, ActionReplace,
		}, actions(rows))
	})
	t.Run("order of passes does not matter", func(t *testing.T) {
		in := []Row{
			{ID: "a", Action: ActionSet, Attribute: "x", Value: "1"},
			{ID: "", Action: "", Attribute: "y", Value: "2"},
			{ID: "b", Action: "", Attribute: "z", Value: "3"},
			{ID: "", Action: ActionRemove, Attribute: "w"},
		}
		first, err := Normalize(in)
		require.NoError(t, err)

		byAction, err := FillActions(in)
		require.NoError(t, err)
		second, err := FillIDs(byAction)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
	t.Run("every row is filled with the latest value", func(t *testing.T) {
		in := []Row{
			{ID: "a", Action: ActionSet},
			{},
			{ID: "b"},
			{Action: ActionInsert},
			{},
		}
		rows, err := Normalize(in)
		require.NoError(t, err)
		for i, row := range rows {
			assert.NotEmpty(t, row.ID, "row %d", i)
			assert.NotEmpty(t, row.Action, "row %d", i)
		}
		assert.Equal(t, []string{"a", "a", "b", "b", "b"}, ids(rows))
		assert.Equal(t, []Action{ActionSet, ActionSet, ActionSet, ActionInsert, ActionInsert}, actions(rows))
	})
	t.Run("missing id fails before actions", func(t *testing.T) {
		rows, err := Normalize([]Row{{Attribute: "a"}})
		assert.Nil(t, rows)
		var mae *MissingAntecedentError
		require.True(t, errors.As(err, &mae))
		assert.Equal(t, ColumnID, mae.Field)
	})
}

func TestActionFamilies(t *testing.T) {
	t.Run("every declared action has an explicit family entry", func(t *testing.T) {
		assert.Len(t, actionFamilies, len(Actions()))
		for _, a := range Actions() {
			assert.True(t, a.Declared(), string(a))
		}
	})
	t.Run("families", func(t *testing.T) {
		tests := map[Action]Family{
			ActionInsert:       FamilyInsert,
			ActionInsertItem:   FamilyInsert,
			ActionInsertItems:  FamilyInsert,
			ActionUpdate:       FamilySet,
			ActionSet:          FamilySet,
			ActionReplace:      FamilySet,
			ActionReplaceItems: FamilySet,
			ActionRemove:       FamilyRemove,
			ActionRemoveItem:   FamilyNone,
			ActionRemoveItems:  FamilyNone,
			"foo":              FamilyNone,
			"":                 FamilyNone,
		}
		for action, family := range tests {
			assert.Equal(t, family, action.Family(), string(action))
		}
	})
	t.Run("undeclared", func(t *testing.T) {
		assert.False(t, Action("foo").Declared())
		assert.False(t, Action("Set").Declared())
	})
	t.Run("family names", func(t *testing.T) {
		assert.Equal(t, "insert", FamilyInsert.String())
		assert.Equal(t, "set", FamilySet.String())
		assert.Equal(t, "remove", FamilyRemove.String())
		assert.Equal(t, "none", FamilyNone.String())
	})
}
