package table

import (
	"dynalocal/ddberrors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PrimaryKey is an extracted (hash, range) key value pair together with the
// schema it was extracted against.
type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// PrimaryKeyValues holds the raw key attribute values. SortKey is nil for
// hash-only schemas.
type PrimaryKeyValues struct {
	PartitionKey types.AttributeValue
	SortKey      types.AttributeValue
}

// ExtractItemKey pulls the primary key out of a full item on the write
// path. Missing or mistyped key attributes fail with the PutItem wording.
func (k PrimaryKeyDefinition) ExtractItemKey(item map[string]types.AttributeValue) (PrimaryKey, error) {
	pk := PrimaryKey{Definition: k}
	part, ok := item[k.PartitionKey.Name]
	if !ok {
		return pk, ddberrors.Validation("One or more parameter values were invalid: Missing the key %s in the item", k.PartitionKey.Name)
	}
	if got := keyKindOf(part); got != k.PartitionKey.Kind {
		return pk, ddberrors.Validation("One or more parameter values were invalid: Type mismatch for key %s expected: %s actual: %s", k.PartitionKey.Name, k.PartitionKey.Kind, got)
	}
	pk.Values.PartitionKey = part
	if !k.HasSortKey() {
		return pk, nil
	}
	sort, ok := item[k.SortKey.Name]
	if !ok {
		return pk, ddberrors.Validation("One or more parameter values were invalid: Missing the key %s in the item", k.SortKey.Name)
	}
	if got := keyKindOf(sort); got != k.SortKey.Kind {
		return pk, ddberrors.Validation("One or more parameter values were invalid: Type mismatch for key %s expected: %s actual: %s", k.SortKey.Name, k.SortKey.Kind, got)
	}
	pk.Values.SortKey = sort
	return pk, nil
}

// ExtractRequestKey validates the Key parameter of GetItem, UpdateItem and
// DeleteItem against the schema. An attribute outside the key schema or a
// type mismatch fails with the key-element wording; an incomplete key fails
// with the bare "Validation Exception" message, matching the service.
func (k PrimaryKeyDefinition) ExtractRequestKey(key map[string]types.AttributeValue) (PrimaryKey, error) {
	pk := PrimaryKey{Definition: k}
	if key == nil {
		return pk, ddberrors.Validation("Validation Exception")
	}
	for name, av := range key {
		if !k.IsKeyAttribute(name) {
			return pk, ddberrors.Validation("The provided key element does not match the schema")
		}
		var want KeyKind
		if name == k.PartitionKey.Name {
			want = k.PartitionKey.Kind
		} else {
			want = k.SortKey.Kind
		}
		if keyKindOf(av) != want {
			return pk, ddberrors.Validation("The provided key element does not match the schema")
		}
	}
	part, ok := key[k.PartitionKey.Name]
	if !ok {
		return pk, ddberrors.Validation("Validation Exception")
	}
	pk.Values.PartitionKey = part
	if k.HasSortKey() {
		sort, ok := key[k.SortKey.Name]
		if !ok {
			return pk, ddberrors.Validation("Validation Exception")
		}
		pk.Values.SortKey = sort
	}
	return pk, nil
}

// ValidateItem enforces declared types on the write path: all primary key
// attributes present and correctly typed, and any declared index key
// attribute that appears on the item carrying its declared type. An item
// may legitimately omit index key attributes; it is then excluded from
// that index's projection.
func (t TableDefinition) ValidateItem(item map[string]types.AttributeValue) error {
	if _, err := t.KeyDefinitions.ExtractItemKey(item); err != nil {
		return err
	}
	for name, declared := range t.AttributeDefinitions {
		av, ok := item[name]
		if !ok {
			continue
		}
		if got := keyKindOf(av); got != declared {
			return ddberrors.Validation("One or more parameter values were invalid: Type mismatch for Index Key %s Expected: %s Actual: %s", name, declared, got)
		}
	}
	return nil
}

// keyKindOf returns the key type tag of an attribute value, or "" when the
// value cannot serve as a key (bool, null, document and set types).
func keyKindOf(av types.AttributeValue) KeyKind {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return KeyKindS
	case *types.AttributeValueMemberN:
		return KeyKindN
	case *types.AttributeValueMemberB:
		return KeyKindB
	default:
		return ""
	}
}
