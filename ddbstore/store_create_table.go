package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddberrors"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// CreateTable registers a new table. The store is single-node and
// synchronous, so the table is ACTIVE immediately.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	def, err := table.FromCreateTableInput(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[def.Name]; exists {
		return nil, ddberrors.ResourceInUse(def.Name)
	}
	s.tables[def.Name] = newTableData(def)

	return &dynamodb.CreateTableOutput{
		TableDescription: def.Describe(0),
	}, nil
}
