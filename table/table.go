// Package table holds table metadata: key schemas, attribute definitions
// and secondary index definitions, plus the validation rules that tie them
// together.
package table

import (
	"dynalocal/ddberrors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyKind is the declared attribute type of a key attribute.
type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// KeyDef names a single key attribute and its declared type.
type KeyDef struct {
	Name string
	Kind KeyKind
}

// PrimaryKeyDefinition is a hash key plus an optional range key.
// A zero-valued SortKey (empty name) means the schema is hash-only.
type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef
}

// HasSortKey reports whether the schema declares a range key.
func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

// IsKeyAttribute reports whether name is one of the schema's key attributes.
func (k PrimaryKeyDefinition) IsKeyAttribute(name string) bool {
	return name == k.PartitionKey.Name || (k.HasSortKey() && name == k.SortKey.Name)
}

// GSIDefinition is a global secondary index: its own hash/range schema,
// independently provisioned.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Throughput     Throughput
}

// LSIDefinition is a local secondary index: shares the table hash key and
// declares its own range key.
type LSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// Throughput carries the provisioned capacity metadata. The store does no
// capacity accounting; this exists so UpdateTable round-trips it.
type Throughput struct {
	ReadCapacityUnits  int64
	WriteCapacityUnits int64
}

// TableDefinition is the full metadata for one table.
type TableDefinition struct {
	Name                 string
	KeyDefinitions       PrimaryKeyDefinition
	AttributeDefinitions map[string]KeyKind
	GSIs                 []GSIDefinition
	LSIs                 []LSIDefinition
	Throughput           Throughput
}

// Clone returns a deep copy that shares no maps or slices with the
// receiver, so a store can mutate its own copy freely.
func (t TableDefinition) Clone() TableDefinition {
	out := t
	out.AttributeDefinitions = make(map[string]KeyKind, len(t.AttributeDefinitions))
	for name, kind := range t.AttributeDefinitions {
		out.AttributeDefinitions[name] = kind
	}
	out.GSIs = append([]GSIDefinition(nil), t.GSIs...)
	out.LSIs = append([]LSIDefinition(nil), t.LSIs...)
	return out
}

// Validate enforces key-schema / attribute-definition consistency: every
// key attribute referenced by the table or any index must be declared with
// a matching type, and LSIs must reuse the table hash key.
func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return ddberrors.Validation("TableName must not be empty")
	}
	if err := t.validateKeySchema(t.KeyDefinitions); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, gsi := range t.GSIs {
		if gsi.Name == "" {
			return ddberrors.Validation("One or more parameter values were invalid: IndexName must not be empty")
		}
		if seen[gsi.Name] {
			return ddberrors.Validation("One or more parameter values were invalid: Duplicate index name: %s", gsi.Name)
		}
		seen[gsi.Name] = true
		if err := t.validateKeySchema(gsi.KeyDefinitions); err != nil {
			return err
		}
	}
	for _, lsi := range t.LSIs {
		if lsi.Name == "" {
			return ddberrors.Validation("One or more parameter values were invalid: IndexName must not be empty")
		}
		if seen[lsi.Name] {
			return ddberrors.Validation("One or more parameter values were invalid: Duplicate index name: %s", lsi.Name)
		}
		seen[lsi.Name] = true
		if lsi.KeyDefinitions.PartitionKey != t.KeyDefinitions.PartitionKey {
			return ddberrors.Validation("One or more parameter values were invalid: Index KeySchema does not have the same leading hash key as table KeySchema for index: %s", lsi.Name)
		}
		if !lsi.KeyDefinitions.HasSortKey() {
			return ddberrors.Validation("One or more parameter values were invalid: Index KeySchema does not have a range key for index: %s", lsi.Name)
		}
		if err := t.validateKeySchema(lsi.KeyDefinitions); err != nil {
			return err
		}
	}
	return nil
}

func (t TableDefinition) validateKeySchema(keys PrimaryKeyDefinition) error {
	if err := t.validateKeyAttribute(keys.PartitionKey); err != nil {
		return err
	}
	if keys.HasSortKey() {
		return t.validateKeyAttribute(keys.SortKey)
	}
	return nil
}

func (t TableDefinition) validateKeyAttribute(def KeyDef) error {
	declared, ok := t.AttributeDefinitions[def.Name]
	if !ok {
		return ddberrors.Validation("One or more parameter values were invalid: Some index key attributes are not defined in AttributeDefinitions. Keys: [%s]", def.Name)
	}
	if declared != def.Kind {
		return ddberrors.Validation("One or more parameter values were invalid: Key attribute %s declared as %s but key schema uses %s", def.Name, declared, def.Kind)
	}
	return nil
}

// IndexKeys returns the key schema of the named secondary index, or an
// error if the table has no such index.
func (t TableDefinition) IndexKeys(indexName string) (PrimaryKeyDefinition, error) {
	for _, gsi := range t.GSIs {
		if gsi.Name == indexName {
			return gsi.KeyDefinitions, nil
		}
	}
	for _, lsi := range t.LSIs {
		if lsi.Name == indexName {
			return lsi.KeyDefinitions, nil
		}
	}
	return PrimaryKeyDefinition{}, ddberrors.Validation("The table does not have the specified index: %s", indexName)
}

// FromCreateTableInput builds and validates a TableDefinition from the SDK
// request shape.
func FromCreateTableInput(input *dynamodb.CreateTableInput) (TableDefinition, error) {
	if input.TableName == nil {
		return TableDefinition{}, ddberrors.Validation("TableName must not be empty")
	}
	def := TableDefinition{
		Name:                 *input.TableName,
		AttributeDefinitions: attributeDefinitions(input.AttributeDefinitions),
	}
	keys, err := keySchemaToDefinition(input.KeySchema)
	if err != nil {
		return TableDefinition{}, err
	}
	def.KeyDefinitions = keys
	if input.ProvisionedThroughput != nil {
		def.Throughput = Throughput{
			ReadCapacityUnits:  aws.ToInt64(input.ProvisionedThroughput.ReadCapacityUnits),
			WriteCapacityUnits: aws.ToInt64(input.ProvisionedThroughput.WriteCapacityUnits),
		}
	}
	for _, gsi := range input.GlobalSecondaryIndexes {
		gsiKeys, err := keySchemaToDefinition(gsi.KeySchema)
		if err != nil {
			return TableDefinition{}, err
		}
		gsiDef := GSIDefinition{
			Name:           aws.ToString(gsi.IndexName),
			KeyDefinitions: gsiKeys,
		}
		if gsi.ProvisionedThroughput != nil {
			gsiDef.Throughput = Throughput{
				ReadCapacityUnits:  aws.ToInt64(gsi.ProvisionedThroughput.ReadCapacityUnits),
				WriteCapacityUnits: aws.ToInt64(gsi.ProvisionedThroughput.WriteCapacityUnits),
			}
		}
		def.GSIs = append(def.GSIs, gsiDef)
	}
	for _, lsi := range input.LocalSecondaryIndexes {
		lsiKeys, err := keySchemaToDefinition(lsi.KeySchema)
		if err != nil {
			return TableDefinition{}, err
		}
		def.LSIs = append(def.LSIs, LSIDefinition{
			Name:           aws.ToString(lsi.IndexName),
			KeyDefinitions: lsiKeys,
		})
	}
	def.ResolveKeyKinds()
	if err := def.Validate(); err != nil {
		return TableDefinition{}, err
	}
	return def, nil
}

func attributeDefinitions(defs []types.AttributeDefinition) map[string]KeyKind {
	out := make(map[string]KeyKind, len(defs))
	for _, d := range defs {
		out[aws.ToString(d.AttributeName)] = KeyKind(d.AttributeType)
	}
	return out
}

func keySchemaToDefinition(schema []types.KeySchemaElement) (PrimaryKeyDefinition, error) {
	var keys PrimaryKeyDefinition
	for _, elem := range schema {
		name := aws.ToString(elem.AttributeName)
		switch elem.KeyType {
		case types.KeyTypeHash:
			if keys.PartitionKey.Name != "" {
				return keys, ddberrors.Validation("Too many hash keys specified in key schema")
			}
			keys.PartitionKey.Name = name
		case types.KeyTypeRange:
			if keys.SortKey.Name != "" {
				return keys, ddberrors.Validation("Too many range keys specified in key schema")
			}
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

// ResolveKeyKinds fills in the Kind of each key attribute from the
// AttributeDefinitions. A key attribute absent from the definitions
// resolves to the empty kind, which Validate then reports as undefined,
// so resolution happens before validation.
func (t *TableDefinition) ResolveKeyKinds() {
	resolve := func(keys *PrimaryKeyDefinition) {
		keys.PartitionKey.Kind = t.AttributeDefinitions[keys.PartitionKey.Name]
		if keys.HasSortKey() {
			keys.SortKey.Kind = t.AttributeDefinitions[keys.SortKey.Name]
		}
	}
	resolve(&t.KeyDefinitions)
	for i := range t.GSIs {
		resolve(&t.GSIs[i].KeyDefinitions)
	}
	for i := range t.LSIs {
		resolve(&t.LSIs[i].KeyDefinitions)
	}
}

// Describe renders the definition as the SDK's TableDescription shape.
func (t TableDefinition) Describe(itemCount int64) *types.TableDescription {
	desc := &types.TableDescription{
		TableName:   aws.String(t.Name),
		TableStatus: types.TableStatusActive,
		ItemCount:   aws.Int64(itemCount),
		KeySchema:   keyDefinitionToSchema(t.KeyDefinitions),
		ProvisionedThroughput: &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(t.Throughput.ReadCapacityUnits),
			WriteCapacityUnits: aws.Int64(t.Throughput.WriteCapacityUnits),
		},
	}
	for name, kind := range t.AttributeDefinitions {
		desc.AttributeDefinitions = append(desc.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeType(kind),
		})
	}
	for _, gsi := range t.GSIs {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:   aws.String(gsi.Name),
			IndexStatus: types.IndexStatusActive,
			KeySchema:   keyDefinitionToSchema(gsi.KeyDefinitions),
			Projection:  &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: &types.ProvisionedThroughputDescription{
				ReadCapacityUnits:  aws.Int64(gsi.Throughput.ReadCapacityUnits),
				WriteCapacityUnits: aws.Int64(gsi.Throughput.WriteCapacityUnits),
			},
		})
	}
	for _, lsi := range t.LSIs {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  keyDefinitionToSchema(lsi.KeyDefinitions),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	return desc
}

func keyDefinitionToSchema(keys PrimaryKeyDefinition) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(keys.PartitionKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if keys.HasSortKey() {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(keys.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}

func (k KeyKind) String() string { return string(k) }
