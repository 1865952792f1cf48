package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DeleteTable drops the table and everything in it.
func (s *Store) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	name := aws.ToString(params.TableName)

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found"),
		}
	}
	delete(s.tables, name)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return &dynamodb.DeleteTableOutput{
		TableDescription: t.definition.Describe(t.itemCount),
	}, nil
}
