package keyconditionexpr

import (
	"testing"

	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = table.PrimaryKeyDefinition{
	PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
	SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
}

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func parseWith(t *testing.T, expr string, values map[string]types.AttributeValue) (*KeyCondition, error) {
	t.Helper()
	return Parse(expr, ParseParams{
		ExpressionValues: values,
		IndexKeys:        testKeys,
	})
}

func TestParse(t *testing.T) {
	t.Run("hash only", func(t *testing.T) {
		cond, err := parseWith(t, "pk = :pk", map[string]types.AttributeValue{":pk": str("p")})
		require.NoError(t, err)
		assert.Equal(t, str("p"), cond.PartitionValue)
		assert.Nil(t, cond.SortCondition)
	})

	t.Run("hash and sort comparison", func(t *testing.T) {
		cond, err := parseWith(t, "pk = :pk AND sk < :sk", map[string]types.AttributeValue{
			":pk": str("p"), ":sk": str("x"),
		})
		require.NoError(t, err)
		require.NotNil(t, cond.SortCondition)
		require.NotNil(t, cond.SortCondition.Compare)
		assert.Equal(t, LessThan, cond.SortCondition.Compare.Op)
	})

	t.Run("terms in either order", func(t *testing.T) {
		cond, err := parseWith(t, "sk >= :sk AND pk = :pk", map[string]types.AttributeValue{
			":pk": str("p"), ":sk": str("x"),
		})
		require.NoError(t, err)
		assert.Equal(t, str("p"), cond.PartitionValue)
		require.NotNil(t, cond.SortCondition)
	})

	t.Run("between consumes its own AND", func(t *testing.T) {
		cond, err := parseWith(t, "pk = :pk AND sk BETWEEN :lo AND :hi", map[string]types.AttributeValue{
			":pk": str("p"), ":lo": str("a"), ":hi": str("b"),
		})
		require.NoError(t, err)
		require.NotNil(t, cond.SortCondition)
		require.NotNil(t, cond.SortCondition.Between)
		assert.Equal(t, str("a"), cond.SortCondition.Between.Lower)
	})

	t.Run("begins_with", func(t *testing.T) {
		cond, err := parseWith(t, "pk = :pk AND begins_with(sk, :prefix)", map[string]types.AttributeValue{
			":pk": str("p"), ":prefix": str("order#"),
		})
		require.NoError(t, err)
		require.NotNil(t, cond.SortCondition)
		require.NotNil(t, cond.SortCondition.BeginsWith)
	})

	t.Run("parenthesized terms", func(t *testing.T) {
		_, err := parseWith(t, "(pk = :pk) AND (sk = :sk)", map[string]types.AttributeValue{
			":pk": str("p"), ":sk": str("x"),
		})
		require.NoError(t, err)
	})

	t.Run("name placeholder", func(t *testing.T) {
		cond, err := Parse("#p = :pk", ParseParams{
			ExpressionNames:  map[string]string{"#p": "pk"},
			ExpressionValues: map[string]types.AttributeValue{":pk": str("p")},
			IndexKeys:        testKeys,
		})
		require.NoError(t, err)
		assert.Equal(t, str("p"), cond.PartitionValue)
	})
}

func TestParseErrors(t *testing.T) {
	values := map[string]types.AttributeValue{
		":pk": str("p"), ":sk": str("x"), ":x": str("y"),
	}

	cases := []struct {
		name string
		expr string
		want string
	}{
		{"function name is case-sensitive", "pk = :pk AND BegIns_WiTh(sk, :sk)",
			"Invalid KeyConditionExpression: Invalid function name; function: BegIns_WiTh"},
		{"unknown function", "pk = :pk AND contains(sk, :sk)",
			"Invalid KeyConditionExpression: Invalid function name; function: contains"},
		{"not-equals on a key", "pk = :pk AND sk <> :sk",
			"Invalid operator used in KeyConditionExpression: <>"},
		{"missing hash term", "sk = :sk",
			"Query condition missed key schema element: pk"},
		{"non-equality on the hash key", "pk > :pk",
			"Query key condition not supported"},
		{"duplicate hash term", "pk = :pk AND pk = :pk",
			"Query key condition not supported"},
		{"non-key attribute", "pk = :pk AND other = :x",
			"The provided key element does not match the schema"},
		{"three terms", "pk = :pk AND sk = :sk AND sk = :x",
			"Conditions can be of length 1 or 2 only"},
		{"literal value position", "pk = pk2",
			"Syntax error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.expr, ParseParams{ExpressionValues: values, IndexKeys: testKeys})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("value kind mismatch", func(t *testing.T) {
		_, err := Parse("pk = :pk", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberN{Value: "5"},
			},
			IndexKeys: testKeys,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Condition parameter type does not match schema type")
	})

	t.Run("non-scalar key value", func(t *testing.T) {
		_, err := Parse("pk = :pk", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberBOOL{Value: true},
			},
			IndexKeys: testKeys,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Condition parameter type does not match schema type")
	})

	t.Run("sort term on a hash-only schema", func(t *testing.T) {
		hashOnly := table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: "id", Kind: table.KeyKindS},
		}
		_, err := Parse("id = :id AND sk = :sk", ParseParams{
			ExpressionValues: map[string]types.AttributeValue{":id": str("a"), ":sk": str("b")},
			IndexKeys:        hashOnly,
		})
		require.Error(t, err)
	})
}
