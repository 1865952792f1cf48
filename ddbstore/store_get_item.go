package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/projectionexpr"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// GetItem reads a single item by full primary key. The store is strongly
// consistent; ConsistentRead is accepted and ignored.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	pk, err := t.definition.KeyDefinitions.ExtractRequestKey(params.Key)
	if err != nil {
		return nil, err
	}

	out := &dynamodb.GetItemOutput{}
	doc, ok := t.primary.get(pk)
	if !ok {
		return out, nil
	}
	item := attrval.CopyItem(doc.item)
	if params.ProjectionExpression != nil {
		paths, err := projectionexpr.Parse(*params.ProjectionExpression, params.ExpressionAttributeNames)
		if err != nil {
			return nil, err
		}
		item = projectionexpr.Project(item, paths)
	}
	out.Item = item
	return out, nil
}
