package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/conditionexpr"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PutItem creates or fully replaces an item. Condition evaluation and the
// write happen under one table lock, so concurrent conditional puts
// serialize.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Item == nil {
		return nil, fmt.Errorf("item is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.definition.ValidateItem(params.Item); err != nil {
		return nil, err
	}
	pk, err := t.definition.KeyDefinitions.ExtractItemKey(params.Item)
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

	t.put(attrval.CopyItem(params.Item), pk)

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = attrval.CopyItem(oldItem)
	}
	return out, nil
}

// checkCondition evaluates an optional condition expression against the
// current item (nil when absent). A false result is the conditional
// check failure; parse errors pass through as validation errors.
func checkCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	if expr == nil {
		return nil
	}
	ok, err := conditionexpr.Eval(*expr, conditionexpr.EvalInput{
		ExpressionNames:  names,
		ExpressionValues: values,
	}, item)
	if err != nil {
		return err
	}
	if !ok {
		return &types.ConditionalCheckFailedException{
			Message: ptrStr("The conditional request failed"),
		}
	}
	return nil
}

func ptrStr(s string) *string { return &s }
