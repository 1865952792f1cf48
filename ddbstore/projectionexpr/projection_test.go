package projectionexpr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func TestProject(t *testing.T) {
	item := map[string]types.AttributeValue{
		"name": str("alice"),
		"age":  &types.AttributeValueMemberN{Value: "30"},
		"address": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"city": str("oslo"),
			"zip":  str("0150"),
		}},
		"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			str("a"), str("b"), str("c"),
		}},
	}

	t.Run("top-level attributes", func(t *testing.T) {
		paths, err := Parse("name, age", nil)
		require.NoError(t, err)
		got := Project(item, paths)
		assert.Equal(t, map[string]types.AttributeValue{
			"name": str("alice"),
			"age":  &types.AttributeValueMemberN{Value: "30"},
		}, got)
	})

	t.Run("nested map path", func(t *testing.T) {
		paths, err := Parse("address.city", nil)
		require.NoError(t, err)
		got := Project(item, paths)
		assert.Equal(t, map[string]types.AttributeValue{
			"address": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"city": str("oslo"),
			}},
		}, got)
	})

	t.Run("list elements", func(t *testing.T) {
		paths, err := Parse("tags[0], tags[2]", nil)
		require.NoError(t, err)
		got := Project(item, paths)
		list := got["tags"].(*types.AttributeValueMemberL)
		assert.Equal(t, []types.AttributeValue{str("a"), str("c")}, list.Value)
	})

	t.Run("missing paths are skipped", func(t *testing.T) {
		paths, err := Parse("name, ghost, address.country", nil)
		require.NoError(t, err)
		got := Project(item, paths)
		assert.Equal(t, map[string]types.AttributeValue{"name": str("alice")}, got)
	})

	t.Run("name placeholders", func(t *testing.T) {
		paths, err := Parse("#n", map[string]string{"#n": "name"})
		require.NoError(t, err)
		got := Project(item, paths)
		assert.Equal(t, map[string]types.AttributeValue{"name": str("alice")}, got)
	})
}

func TestParseErrors(t *testing.T) {
	t.Run("undefined name placeholder", func(t *testing.T) {
		_, err := Parse("#n", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attribute name: #n")
	})

	t.Run("trailing comma", func(t *testing.T) {
		_, err := Parse("a,", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Syntax error")
	})

	t.Run("empty expression", func(t *testing.T) {
		_, err := Parse("", nil)
		require.Error(t, err)
	})
}
