package ddbstore

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ListTables returns table names in lexicographic order, honoring the
// ExclusiveStartTableName/Limit pagination contract.
func (s *Store) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if params == nil {
		params = &dynamodb.ListTablesInput{}
	}
	if err := validateLimit(params.Limit, 100); err != nil {
		return nil, err
	}
	s.mu.RLock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	start := 0
	if params.ExclusiveStartTableName != nil {
		for i, name := range names {
			if name > *params.ExclusiveStartTableName {
				break
			}
			start = i + 1
		}
	}
	names = names[start:]

	out := &dynamodb.ListTablesOutput{}
	limit := len(names)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
		out.LastEvaluatedTableName = aws.String(names[limit-1])
	}
	out.TableNames = names[:limit]
	return out, nil
}
