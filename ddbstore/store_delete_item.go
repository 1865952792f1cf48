package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddbstore/attrval"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DeleteItem removes an item by full primary key. Deleting a missing item
// succeeds unless a condition expression says otherwise.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pk, err := t.definition.KeyDefinitions.ExtractRequestKey(params.Key)
	if err != nil {
		return nil, err
	}

	var oldItem map[string]types.AttributeValue
	if existing, ok := t.primary.get(pk); ok {
		oldItem = existing.item
	}
	if err := checkCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, oldItem); err != nil {
		return nil, err
	}

	t.remove(pk)

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = attrval.CopyItem(oldItem)
	}
	return out, nil
}
