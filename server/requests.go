package server

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Request shapes for operations that carry AttributeValue payloads. The
// AttributeValue union cannot be unmarshaled into the SDK's interface type
// directly, so these mirror the wire shapes with wireItem fields and convert.
// Table-control operations carry no AttributeValue and unmarshal straight
// into the SDK input structs.

type putItemRequest struct {
	TableName                 *string
	Item                      wireItem
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues wireItem
	ReturnValues              types.ReturnValue
}

func (r *putItemRequest) toInput() (*dynamodb.PutItemInput, error) {
	item, err := decodeItem(r.Item)
	if err != nil {
		return nil, err
	}
	values, err := decodeItem(r.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dynamodb.PutItemInput{
		TableName:                 r.TableName,
		Item:                      item,
		ConditionExpression:       r.ConditionExpression,
		ExpressionAttributeNames:  r.ExpressionAttributeNames,
		ExpressionAttributeValues: values,
		ReturnValues:              r.ReturnValues,
	}, nil
}

type getItemRequest struct {
	TableName                *string
	Key                      wireItem
	ProjectionExpression     *string
	ExpressionAttributeNames map[string]string
}

func (r *getItemRequest) toInput() (*dynamodb.GetItemInput, error) {
	key, err := decodeItem(r.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName:                r.TableName,
		Key:                      key,
		ProjectionExpression:     r.ProjectionExpression,
		ExpressionAttributeNames: r.ExpressionAttributeNames,
	}, nil
}

type deleteItemRequest struct {
	TableName                 *string
	Key                       wireItem
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues wireItem
	ReturnValues              types.ReturnValue
}

func (r *deleteItemRequest) toInput() (*dynamodb.DeleteItemInput, error) {
	key, err := decodeItem(r.Key)
	if err != nil {
		return nil, err
	}
	values, err := decodeItem(r.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemInput{
		TableName:                 r.TableName,
		Key:                       key,
		ConditionExpression:       r.ConditionExpression,
		ExpressionAttributeNames:  r.ExpressionAttributeNames,
		ExpressionAttributeValues: values,
		ReturnValues:              r.ReturnValues,
	}, nil
}

type wireAttributeUpdate struct {
	Action types.AttributeAction
	Value  wireValue
}

type updateItemRequest struct {
	TableName                 *string
	Key                       wireItem
	UpdateExpression          *string
	ConditionExpression       *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues wireItem
	AttributeUpdates          map[string]wireAttributeUpdate
	ReturnValues              types.ReturnValue
}

func (r *updateItemRequest) toInput() (*dynamodb.UpdateItemInput, error) {
	key, err := decodeItem(r.Key)
	if err != nil {
		return nil, err
	}
	values, err := decodeItem(r.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.UpdateItemInput{
		TableName:                 r.TableName,
		Key:                       key,
		UpdateExpression:          r.UpdateExpression,
		ConditionExpression:       r.ConditionExpression,
		ExpressionAttributeNames:  r.ExpressionAttributeNames,
		ExpressionAttributeValues: values,
		ReturnValues:              r.ReturnValues,
	}
	if r.AttributeUpdates != nil {
		input.AttributeUpdates = make(map[string]types.AttributeValueUpdate, len(r.AttributeUpdates))
		for name, wu := range r.AttributeUpdates {
			update := types.AttributeValueUpdate{Action: wu.Action}
			if wu.Value != nil {
				av, err := decodeValue(wu.Value)
				if err != nil {
					return nil, err
				}
				update.Value = av
			}
			input.AttributeUpdates[name] = update
		}
	}
	return input, nil
}

type queryRequest struct {
	TableName                 *string
	IndexName                 *string
	KeyConditionExpression    *string
	FilterExpression          *string
	ProjectionExpression      *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues wireItem
	ExclusiveStartKey         wireItem
	Limit                     *int32
	ScanIndexForward          *bool
	Select                    types.Select
}

func (r *queryRequest) toInput() (*dynamodb.QueryInput, error) {
	values, err := decodeItem(r.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	startKey, err := decodeItem(r.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryInput{
		TableName:                 r.TableName,
		IndexName:                 r.IndexName,
		KeyConditionExpression:    r.KeyConditionExpression,
		FilterExpression:          r.FilterExpression,
		ProjectionExpression:      r.ProjectionExpression,
		ExpressionAttributeNames:  r.ExpressionAttributeNames,
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
		Limit:                     r.Limit,
		ScanIndexForward:          r.ScanIndexForward,
		Select:                    r.Select,
	}, nil
}

type scanRequest struct {
	TableName                 *string
	IndexName                 *string
	FilterExpression          *string
	ProjectionExpression      *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues wireItem
	ExclusiveStartKey         wireItem
	Limit                     *int32
	Select                    types.Select
}

func (r *scanRequest) toInput() (*dynamodb.ScanInput, error) {
	values, err := decodeItem(r.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	startKey, err := decodeItem(r.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanInput{
		TableName:                 r.TableName,
		IndexName:                 r.IndexName,
		FilterExpression:          r.FilterExpression,
		ProjectionExpression:      r.ProjectionExpression,
		ExpressionAttributeNames:  r.ExpressionAttributeNames,
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
		Limit:                     r.Limit,
		Select:                    r.Select,
	}, nil
}
