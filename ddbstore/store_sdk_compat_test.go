package ddbstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The store accepts what the SDK's client-side helpers produce:
// attributevalue-marshaled items and expression-builder expressions with
// generated #n/:n placeholders.

type orderLine struct {
	PK       string `dynamodbav:"pk"`
	SK       string `dynamodbav:"sk"`
	Category string `dynamodbav:"category"`
	Price    int    `dynamodbav:"price"`
}

func TestStore_SDKHelpers(t *testing.T) {
	store := newTestStore(t, gsiTable)
	ctx := context.Background()

	lines := []orderLine{
		{PK: "order#1", SK: "line#1", Category: "books", Price: 12},
		{PK: "order#1", SK: "line#2", Category: "books", Price: 30},
		{PK: "order#1", SK: "ship#1", Category: "freight", Price: 8},
	}
	for _, line := range lines {
		item, err := attributevalue.MarshalMap(line)
		require.NoError(t, err)
		_, err = store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &gsiTable.Name,
			Item:      item,
		})
		require.NoError(t, err)
	}

	t.Run("query via expression builder", func(t *testing.T) {
		expr, err := expression.NewBuilder().
			WithKeyCondition(expression.Key("pk").Equal(expression.Value("order#1")).
				And(expression.Key("sk").BeginsWith("line#"))).
			WithFilter(expression.Name("price").GreaterThan(expression.Value(20))).
			Build()
		require.NoError(t, err)

		out, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &gsiTable.Name,
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		require.NoError(t, err)
		assert.Equal(t, int32(2), out.ScannedCount)
		require.Equal(t, int32(1), out.Count)

		var got orderLine
		require.NoError(t, attributevalue.UnmarshalMap(out.Items[0], &got))
		assert.Equal(t, lines[1], got)
	})

	t.Run("conditional put via expression builder", func(t *testing.T) {
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name("pk"))).
			Build()
		require.NoError(t, err)

		item, err := attributevalue.MarshalMap(lines[0])
		require.NoError(t, err)
		_, err = store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 &gsiTable.Name,
			Item:                      item,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		var failed *types.ConditionalCheckFailedException
		require.ErrorAs(t, err, &failed)
	})

	t.Run("update via expression builder", func(t *testing.T) {
		expr, err := expression.NewBuilder().
			WithUpdate(expression.Set(
				expression.Name("price"),
				expression.Name("price").Plus(expression.Value(5)),
			)).
			Build()
		require.NoError(t, err)

		out, err := store.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: &gsiTable.Name,
			Key: map[string]types.AttributeValue{
				"pk": strAttr("order#1"), "sk": strAttr("line#1"),
			},
			UpdateExpression:          expr.Update(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ReturnValues:              types.ReturnValueUpdatedNew,
		})
		require.NoError(t, err)
		assert.Equal(t, numAttr("17"), out.Attributes["price"])
	})

	t.Run("projection via expression builder", func(t *testing.T) {
		expr, err := expression.NewBuilder().
			WithProjection(expression.NamesList(expression.Name("category"), expression.Name("price"))).
			Build()
		require.NoError(t, err)

		out, err := store.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &gsiTable.Name,
			Key: map[string]types.AttributeValue{
				"pk": strAttr("order#1"), "sk": strAttr("ship#1"),
			},
			ProjectionExpression:     expr.Projection(),
			ExpressionAttributeNames: expr.Names(),
		})
		require.NoError(t, err)
		assert.Len(t, out.Item, 2)
		assert.Equal(t, strAttr("freight"), out.Item["category"])
	})
}
