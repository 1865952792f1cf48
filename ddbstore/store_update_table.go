package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddberrors"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateTable adjusts provisioned throughput and applies GSI updates.
// Created indexes are backfilled synchronously from existing items.
func (s *Store) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if params.ProvisionedThroughput != nil {
		t.definition.Throughput = table.Throughput{
			ReadCapacityUnits:  aws.ToInt64(params.ProvisionedThroughput.ReadCapacityUnits),
			WriteCapacityUnits: aws.ToInt64(params.ProvisionedThroughput.WriteCapacityUnits),
		}
	}

	// New attribute definitions may accompany a GSI creation.
	for _, ad := range params.AttributeDefinitions {
		t.definition.AttributeDefinitions[aws.ToString(ad.AttributeName)] = table.KeyKind(ad.AttributeType)
	}

	for _, update := range params.GlobalSecondaryIndexUpdates {
		switch {
		case update.Create != nil:
			if err := t.createGSI(update.Create); err != nil {
				return nil, err
			}
		case update.Delete != nil:
			if err := t.deleteGSI(aws.ToString(update.Delete.IndexName)); err != nil {
				return nil, err
			}
		case update.Update != nil:
			if err := t.updateGSIThroughput(update.Update); err != nil {
				return nil, err
			}
		}
	}

	return &dynamodb.UpdateTableOutput{
		TableDescription: t.definition.Describe(t.itemCount),
	}, nil
}

// createGSI validates the new index against the table's attribute
// definitions, registers it and backfills it from the primary view.
// Caller holds the table lock.
func (t *tableData) createGSI(action *types.CreateGlobalSecondaryIndexAction) error {
	name := aws.ToString(action.IndexName)
	if _, exists := t.indexes[name]; exists {
		return ddberrors.Validation("One or more parameter values were invalid: Duplicate index name: %s", name)
	}

	gsi := table.GSIDefinition{Name: name}
	keys, err := gsiKeySchema(action.KeySchema)
	if err != nil {
		return err
	}
	gsi.KeyDefinitions = keys
	if action.ProvisionedThroughput != nil {
		gsi.Throughput = table.Throughput{
			ReadCapacityUnits:  aws.ToInt64(action.ProvisionedThroughput.ReadCapacityUnits),
			WriteCapacityUnits: aws.ToInt64(action.ProvisionedThroughput.WriteCapacityUnits),
		}
	}

	next := t.definition
	next.GSIs = append(append([]table.GSIDefinition{}, t.definition.GSIs...), gsi)
	next.ResolveKeyKinds()
	if err := next.Validate(); err != nil {
		return err
	}
	t.definition = next

	view := newIndexView(next.GSIs[len(next.GSIs)-1].KeyDefinitions, true)
	t.indexes[name] = view
	for _, tree := range t.primary.partitions {
		tree.Ascend(func(e *entry) bool {
			view.insert(e.doc)
			return true
		})
	}
	return nil
}

// deleteGSI drops the index definition and its projection. Caller holds
// the table lock.
func (t *tableData) deleteGSI(name string) error {
	kept := make([]table.GSIDefinition, 0, len(t.definition.GSIs))
	for _, gsi := range t.definition.GSIs {
		if gsi.Name != name {
			kept = append(kept, gsi)
		}
	}
	if len(kept) == len(t.definition.GSIs) {
		return t.unknownIndex(name)
	}
	t.definition.GSIs = kept
	delete(t.indexes, name)
	return nil
}

func (t *tableData) updateGSIThroughput(action *types.UpdateGlobalSecondaryIndexAction) error {
	name := aws.ToString(action.IndexName)
	for i := range t.definition.GSIs {
		if t.definition.GSIs[i].Name == name {
			if action.ProvisionedThroughput != nil {
				t.definition.GSIs[i].Throughput = table.Throughput{
					ReadCapacityUnits:  aws.ToInt64(action.ProvisionedThroughput.ReadCapacityUnits),
					WriteCapacityUnits: aws.ToInt64(action.ProvisionedThroughput.WriteCapacityUnits),
				}
			}
			return nil
		}
	}
	return t.unknownIndex(name)
}

func (t *tableData) unknownIndex(name string) error {
	_, err := t.definition.IndexKeys(name)
	if err != nil {
		return err
	}
	return ddberrors.Validation("The table does not have the specified index: %s", name)
}

func gsiKeySchema(schema []types.KeySchemaElement) (table.PrimaryKeyDefinition, error) {
	var keys table.PrimaryKeyDefinition
	for _, elem := range schema {
		name := aws.ToString(elem.AttributeName)
		switch elem.KeyType {
		case types.KeyTypeHash:
			keys.PartitionKey.Name = name
		case types.KeyTypeRange:
			keys.SortKey.Name = name
		default:
			return keys, ddberrors.Validation("Invalid KeyType: %s", elem.KeyType)
		}
	}
	if keys.PartitionKey.Name == "" {
		return keys, ddberrors.Validation("No hash key specified in key schema")
	}
	return keys, nil
}
