package updateexpr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func num(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func apply(t *testing.T, expr string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	t.Helper()
	u, err := Parse(expr, ParseParams{ExpressionValues: values})
	require.NoError(t, err)
	result, err := Apply(u, item)
	require.NoError(t, err)
	return result.Item
}

func TestParse(t *testing.T) {
	t.Run("all clauses", func(t *testing.T) {
		u, err := Parse("SET a = :v, b = :w REMOVE c ADD d :n DELETE e :s", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{
				":v": str("x"), ":w": str("y"), ":n": num("1"),
				":s": &types.AttributeValueMemberSS{Value: []string{"z"}},
			},
		})
		require.NoError(t, err)
		assert.Len(t, u.SetActions, 2)
		assert.Len(t, u.RemoveActions, 1)
		assert.Len(t, u.AddActions, 1)
		assert.Len(t, u.DeleteActions, 1)
	})

	t.Run("clause keywords ignore case", func(t *testing.T) {
		_, err := Parse("set a = :v remove b", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x")},
		})
		require.NoError(t, err)
	})

	t.Run("duplicate clause", func(t *testing.T) {
		_, err := Parse("SET a = :v SET b = :v", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `The "SET" section can only be used once in an update expression;`)
	})

	t.Run("syntax error position", func(t *testing.T) {
		_, err := Parse("ADD str_set bad_value", ParseParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `Syntax error; token: "bad_value", near: "str_set bad_value"`)
	})

	t.Run("missing comma between actions", func(t *testing.T) {
		_, err := Parse("SET a = :v b = :w", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x"), ":w": str("y")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `Syntax error; token: "b"`)
	})

	t.Run("add requires a value placeholder", func(t *testing.T) {
		_, err := Parse("ADD a b", ParseParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `Syntax error; token: "b"`)
	})

	t.Run("unknown set function", func(t *testing.T) {
		_, err := Parse("SET a = list_concat(a, :v)", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid function name; function: list_concat")
	})

	t.Run("overlapping paths", func(t *testing.T) {
		_, err := Parse("SET a.b = :v REMOVE a", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Two document paths overlap with each other; must remove or rewrite one of these paths; path one: [a.b], path two: [a]")
	})

	t.Run("undefined value placeholder", func(t *testing.T) {
		_, err := Parse("SET a = :v", ParseParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attribute value: :v")
	})

	t.Run("empty expression", func(t *testing.T) {
		_, err := Parse("", ParseParams{})
		require.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Run("set literal and path copy", func(t *testing.T) {
		item := map[string]types.AttributeValue{"a": str("old"), "b": str("source")}
		got := apply(t, "SET a = :v, c = b", map[string]types.AttributeValue{":v": str("new")}, item)
		assert.Equal(t, str("new"), got["a"])
		assert.Equal(t, str("source"), got["c"])
		// The input item is untouched.
		assert.Equal(t, str("old"), item["a"])
	})

	t.Run("operands read the pre-update snapshot", func(t *testing.T) {
		item := map[string]types.AttributeValue{"a": num("1")}
		got := apply(t, "SET a = :v, b = a", map[string]types.AttributeValue{":v": num("99")}, item)
		assert.Equal(t, num("99"), got["a"])
		assert.Equal(t, num("1"), got["b"])
	})

	t.Run("arithmetic", func(t *testing.T) {
		item := map[string]types.AttributeValue{"n": num("0.1")}
		got := apply(t, "SET n = n + :d", map[string]types.AttributeValue{":d": num("0.2")}, item)
		assert.Equal(t, num("0.3"), got["n"])

		got = apply(t, "SET n = n - :d", map[string]types.AttributeValue{":d": num("0.2")}, item)
		assert.Equal(t, num("-0.1"), got["n"])
	})

	t.Run("arithmetic on non-numbers", func(t *testing.T) {
		u, err := Parse("SET n = n + :d", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":d": num("1")},
		})
		require.NoError(t, err)
		_, err = Apply(u, map[string]types.AttributeValue{"n": str("nope")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "An operand in the update expression has an incorrect data type")
	})

	t.Run("missing path operand", func(t *testing.T) {
		u, err := Parse("SET a = ghost", ParseParams{})
		require.NoError(t, err)
		_, err = Apply(u, map[string]types.AttributeValue{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "The provided expression refers to an attribute that does not exist in the item")
	})

	t.Run("if_not_exists and list_append", func(t *testing.T) {
		item := map[string]types.AttributeValue{
			"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{str("a")}},
		}
		values := map[string]types.AttributeValue{
			":zero": num("0"),
			":more": &types.AttributeValueMemberL{Value: []types.AttributeValue{str("b")}},
		}
		got := apply(t, "SET c = if_not_exists(c, :zero), l = list_append(l, :more)", values, item)
		assert.Equal(t, num("0"), got["c"])
		list := got["l"].(*types.AttributeValueMemberL)
		require.Len(t, list.Value, 2)
		assert.Equal(t, str("b"), list.Value[1])
	})

	t.Run("add on absent attribute", func(t *testing.T) {
		got := apply(t, "ADD n :d", map[string]types.AttributeValue{":d": num("5")}, map[string]types.AttributeValue{})
		assert.Equal(t, num("5"), got["n"])
	})

	t.Run("add rejects non-addable operand", func(t *testing.T) {
		u, err := Parse("ADD n :d", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":d": str("x")},
		})
		require.NoError(t, err)
		_, err = Apply(u, map[string]types.AttributeValue{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "operator: ADD, operand type: STRING")
	})

	t.Run("delete names the target type", func(t *testing.T) {
		u, err := Parse("DELETE n :s", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{
				":s": &types.AttributeValueMemberSS{Value: []string{"x"}},
			},
		})
		require.NoError(t, err)
		_, err = Apply(u, map[string]types.AttributeValue{"n": num("5")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "operator: DELETE, operand type: NUMBER")
	})

	t.Run("delete on an absent attribute is a no-op", func(t *testing.T) {
		got := apply(t, "DELETE ghost :s", map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberSS{Value: []string{"x"}},
		}, map[string]types.AttributeValue{"keep": str("v")})
		assert.Equal(t, str("v"), got["keep"])
		assert.NotContains(t, got, "ghost")
	})

	t.Run("modified roots", func(t *testing.T) {
		u, err := Parse("SET a = :v, nested.f = :v REMOVE b", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":v": str("x")},
		})
		require.NoError(t, err)
		result, err := Apply(u, map[string]types.AttributeValue{
			"b": str("gone"),
			"nested": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"f": str("old"),
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "nested", "b"}, result.ModifiedRoots)
	})
}
