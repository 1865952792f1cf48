package ddbstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutItem(t *testing.T) {
	ctx := context.Background()

	t.Run("put and replace", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": strAttr("user#1"), "sk": strAttr("profile"), "name": strAttr("alice"),
		})

		out, err := store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &singleTableDesign.Name,
			Item: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr("profile"), "name": strAttr("bob"),
			},
			ReturnValues: types.ReturnValueAllOld,
		})
		require.NoError(t, err)
		assert.Equal(t, strAttr("alice"), out.Attributes["name"])

		got, err := store.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &singleTableDesign.Name,
			Key: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr("profile"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, strAttr("bob"), got.Item["name"])
	})

	t.Run("missing sort key", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &singleTableDesign.Name,
			Item:      map[string]types.AttributeValue{"pk": strAttr("user#1")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "One or more parameter values were invalid: Missing the key sk in the item")
	})

	t.Run("key type mismatch", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &singleTableDesign.Name,
			Item: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": numAttr("5"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Type mismatch for key sk expected: S actual: N")
	})

	t.Run("declared index attribute type mismatch", func(t *testing.T) {
		store := newTestStore(t, gsiTable)
		_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &gsiTable.Name,
			Item: map[string]types.AttributeValue{
				"pk": strAttr("order#1"), "sk": strAttr("line#1"),
				"price": strAttr("not-a-number"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Type mismatch for Index Key price Expected: N Actual: S")
	})

	t.Run("conditional put on absence", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		input := &dynamodb.PutItemInput{
			TableName: &singleTableDesign.Name,
			Item: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr("profile"),
			},
			ConditionExpression: ptrStr("attribute_not_exists(pk)"),
		}
		_, err := store.PutItem(ctx, input)
		require.NoError(t, err)

		_, err = store.PutItem(ctx, input)
		var failed *types.ConditionalCheckFailedException
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "The conditional request failed", *failed.Message)
	})

	t.Run("condition against existing attributes", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": strAttr("user#1"), "sk": strAttr("profile"), "version": numAttr("3"),
		})

		_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &singleTableDesign.Name,
			Item: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr("profile"), "version": numAttr("4"),
			},
			ConditionExpression: ptrStr("version = :v"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":v": numAttr("3.0"),
			},
		})
		require.NoError(t, err)
	})

	t.Run("stored item does not alias the input", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		item := map[string]types.AttributeValue{
			"pk": strAttr("user#1"), "sk": strAttr("profile"),
			"tags": &types.AttributeValueMemberSS{Value: []string{"a"}},
		}
		putTestItem(t, store, singleTableDesign.Name, item)
		item["tags"].(*types.AttributeValueMemberSS).Value[0] = "mutated"

		got, err := store.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &singleTableDesign.Name,
			Key: map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr("profile"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got.Item["tags"].(*types.AttributeValueMemberSS).Value)
	})
}
