package ddbstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortKeysOf(items []map[string]types.AttributeValue) []string {
	var keys []string
	for _, item := range items {
		switch sk := item["sk"].(type) {
		case *types.AttributeValueMemberS:
			keys = append(keys, sk.Value)
		case *types.AttributeValueMemberN:
			keys = append(keys, sk.Value)
		}
	}
	return keys
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("partition key only", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"b", "a", "c"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("user#1"), "sk": strAttr(sk),
			})
		}
		putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": strAttr("user#2"), "sk": strAttr("a"),
		})

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("user#1"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, sortKeysOf(result.Items))
		assert.Equal(t, int32(3), result.Count)
		assert.Equal(t, int32(3), result.ScannedCount)
	})

	t.Run("sort key comparison", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"sk-0", "sk-1", "sk-2"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr(sk),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk AND sk < :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
				":sk": strAttr("sk-1"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"sk-0"}, sortKeysOf(result.Items))
	})

	t.Run("numeric sort keys order numerically", func(t *testing.T) {
		store := newTestStore(t, numericSortKeyTable)
		for _, sk := range []string{"10", "2", "1.5", "-3"} {
			putTestItem(t, store, numericSortKeyTable.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": numAttr(sk),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &numericSortKeyTable.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"-3", "1.5", "2", "10"}, sortKeysOf(result.Items))
	})

	t.Run("reverse order mirrors forward order", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"a", "b", "c", "d"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr(sk),
			})
		}

		input := &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
		}
		forward, err := store.Query(ctx, input)
		require.NoError(t, err)

		input.ScanIndexForward = aws.Bool(false)
		backward, err := store.Query(ctx, input)
		require.NoError(t, err)

		fwd := sortKeysOf(forward.Items)
		bwd := sortKeysOf(backward.Items)
		require.Len(t, bwd, len(fwd))
		for i := range fwd {
			assert.Equal(t, fwd[i], bwd[len(bwd)-1-i])
		}
	})

	t.Run("between and begins_with", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"order#001", "order#002", "order#010", "profile"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr(sk),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk AND sk BETWEEN :lo AND :hi"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
				":lo": strAttr("order#001"),
				":hi": strAttr("order#002"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"order#001", "order#002"}, sortKeysOf(result.Items))

		result, err = store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("begins_with(sk, :prefix) AND pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     strAttr("p"),
				":prefix": strAttr("order#"),
			},
		})
		require.NoError(t, err)
		assert.Len(t, result.Items, 3)
	})

	t.Run("filter runs after the limit", func(t *testing.T) {
		store := newTestStore(t, numericSortKeyTable)
		for i := 1; i <= 6; i++ {
			putTestItem(t, store, numericSortKeyTable.Name, map[string]types.AttributeValue{
				"pk":   strAttr("p"),
				"sk":   numAttr(fmt.Sprintf("%d", i)),
				"even": &types.AttributeValueMemberBOOL{Value: i%2 == 0},
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &numericSortKeyTable.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			FilterExpression:       ptrStr("even = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
				":t":  &types.AttributeValueMemberBOOL{Value: true},
			},
			Limit: aws.Int32(3),
		})
		require.NoError(t, err)
		// Items 1,2,3 examined; only 2 passes the filter.
		assert.Equal(t, int32(3), result.ScannedCount)
		assert.Equal(t, int32(1), result.Count)
		require.NotNil(t, result.LastEvaluatedKey)
	})

	t.Run("pagination concatenates to the full result at any limit", func(t *testing.T) {
		store := newTestStore(t, numericSortKeyTable)
		total := 7
		for i := 0; i < total; i++ {
			putTestItem(t, store, numericSortKeyTable.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": numAttr(fmt.Sprintf("%d", i)),
			})
		}

		for limit := 1; limit <= total+1; limit++ {
			var collected []string
			var cursor map[string]types.AttributeValue
			for {
				result, err := store.Query(ctx, &dynamodb.QueryInput{
					TableName:              &numericSortKeyTable.Name,
					KeyConditionExpression: ptrStr("pk = :pk"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":pk": strAttr("p"),
					},
					Limit:             aws.Int32(int32(limit)),
					ExclusiveStartKey: cursor,
				})
				require.NoError(t, err)
				collected = append(collected, sortKeysOf(result.Items)...)
				if result.LastEvaluatedKey == nil {
					break
				}
				cursor = result.LastEvaluatedKey
			}
			assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6"}, collected, "limit %d", limit)
		}
	})

	t.Run("no cursor when the page ends at the tail", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"a", "b"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr(sk),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
			Limit: aws.Int32(2),
		})
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
		assert.Nil(t, result.LastEvaluatedKey)
	})

	t.Run("select count omits items", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		for _, sk := range []string{"a", "b", "c"} {
			putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr(sk),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
			Select: types.SelectCount,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(3), result.Count)
		assert.Nil(t, result.Items)
	})

	t.Run("gsi with duplicate keys surfaces items in insertion order", func(t *testing.T) {
		store := newTestStore(t, gsiTable)
		for i := 1; i <= 3; i++ {
			putTestItem(t, store, gsiTable.Name, map[string]types.AttributeValue{
				"pk": strAttr(fmt.Sprintf("order#%d", i)), "sk": strAttr("line#1"),
				"category": strAttr("books"), "price": numAttr("10"),
			})
		}

		result, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &gsiTable.Name,
			IndexName:              ptrStr("by-category"),
			KeyConditionExpression: ptrStr("category = :c AND price = :p"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": strAttr("books"),
				":p": numAttr("10"),
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 3)
		for i, item := range result.Items {
			assert.Equal(t, strAttr(fmt.Sprintf("order#%d", i+1)), item["pk"])
		}
	})

	t.Run("gsi pagination disambiguates duplicate index keys", func(t *testing.T) {
		store := newTestStore(t, gsiTable)
		for i := 1; i <= 4; i++ {
			putTestItem(t, store, gsiTable.Name, map[string]types.AttributeValue{
				"pk": strAttr(fmt.Sprintf("order#%d", i)), "sk": strAttr("line#1"),
				"category": strAttr("books"), "price": numAttr("10"),
			})
		}

		var collected []string
		var cursor map[string]types.AttributeValue
		for {
			result, err := store.Query(ctx, &dynamodb.QueryInput{
				TableName:              &gsiTable.Name,
				IndexName:              ptrStr("by-category"),
				KeyConditionExpression: ptrStr("category = :c"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":c": strAttr("books"),
				},
				Limit:             aws.Int32(1),
				ExclusiveStartKey: cursor,
			})
			require.NoError(t, err)
			for _, item := range result.Items {
				collected = append(collected, item["pk"].(*types.AttributeValueMemberS).Value)
			}
			if result.LastEvaluatedKey == nil {
				break
			}
			cursor = result.LastEvaluatedKey
		}
		assert.Equal(t, []string{"order#1", "order#2", "order#3", "order#4"}, collected)
	})

	t.Run("case-sensitive function name", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk AND BegIns_WiTh(sk, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     strAttr("p"),
				":prefix": strAttr("x"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid KeyConditionExpression: Invalid function name; function: BegIns_WiTh")
	})

	t.Run("not-equals is rejected", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk AND sk <> :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
				":sk": strAttr("x"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid operator used in KeyConditionExpression: <>")
	})

	t.Run("missing hash key term", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("sk = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sk": strAttr("x"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Query condition missed key schema element: pk")
	})

	t.Run("non-key attribute in key condition", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk AND other = :o"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
				":o":  strAttr("x"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "The provided key element does not match the schema")
	})

	t.Run("key value type mismatch", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": numAttr("5"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Condition parameter type does not match schema type")
	})

	t.Run("zero limit is rejected", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
			Limit: aws.Int32(0),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Member must have value greater than or equal to 1")
	})

	t.Run("starting key with a foreign attribute is invalid", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign)
		putTestItem(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": strAttr("p"), "sk": strAttr("a"),
		})
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:              &singleTableDesign.Name,
			KeyConditionExpression: ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": strAttr("p"),
			},
			ExclusiveStartKey: map[string]types.AttributeValue{
				"pk": strAttr("p"), "sk": strAttr("a"), "extra": strAttr("x"),
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "The provided starting key is invalid")
	})
}
