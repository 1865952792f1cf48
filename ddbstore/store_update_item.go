package ddbstore

import (
	"context"
	"fmt"
	"sort"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/docpath"
	"dynalocal/ddbstore/updateexpr"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateItem edits an item's attributes, creating the item from its key
// when it does not exist. Accepts either an UpdateExpression or the
// legacy AttributeUpdates parameter, never both.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.UpdateExpression != nil && params.AttributeUpdates != nil {
		return nil, ddberrors.Validation("Can not use both expression and non-expression parameters in the same request: Non-expression parameters: {AttributeUpdates} Expression parameters: {UpdateExpression}")
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
	existing, exists := t.primary.get(pk)
	if exists {
		oldItem = existing.item
	}
	if err := checkCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, oldItem); err != nil {
		return nil, err
	}

	// Updates to a missing item start from the bare key.
	base := oldItem
	if base == nil {
		base = attrval.CopyItem(params.Key)
	}

	var newItem map[string]types.AttributeValue
	var modifiedRoots []string
	switch {
	case params.UpdateExpression != nil:
		u, err := updateexpr.Parse(*params.UpdateExpression, updateexpr.ParseParams{
			ExpressionNames:  params.ExpressionAttributeNames,
			ExpressionValues: params.ExpressionAttributeValues,
		})
		if err != nil {
			return nil, err
		}
		if err := rejectKeyPaths(t, u.Paths()); err != nil {
			return nil, err
		}
		result, err := updateexpr.Apply(u, base)
		if err != nil {
			return nil, err
		}
		newItem = result.Item
		modifiedRoots = result.ModifiedRoots
	case params.AttributeUpdates != nil:
		newItem, modifiedRoots, err = applyAttributeUpdates(t, base, params.AttributeUpdates)
		if err != nil {
			return nil, err
		}
	default:
		// No mutation requested; still an upsert of the bare key.
		newItem = attrval.CopyItem(base)
	}

	if err := t.definition.ValidateItem(newItem); err != nil {
		return nil, err
	}
	t.put(newItem, pk)

	return updateReturnValues(params.ReturnValues, oldItem, newItem, modifiedRoots)
}

// rejectKeyPaths fails any update that touches a primary key attribute.
func rejectKeyPaths(t *tableData, paths []docpath.Path) error {
	for _, path := range paths {
		if path.IsTopLevel() && t.definition.KeyDefinitions.IsKeyAttribute(path.Root()) {
			return ddberrors.Validation("One or more parameter values were invalid: Cannot update attribute %s. This attribute is part of the key", path.Root())
		}
	}
	return nil
}

// applyAttributeUpdates implements the legacy AttributeUpdates parameter:
// per-attribute PUT, ADD and DELETE actions on top-level attributes.
func applyAttributeUpdates(t *tableData, base map[string]types.AttributeValue, updates map[string]types.AttributeValueUpdate) (map[string]types.AttributeValue, []string, error) {
	names := make([]string, 0, len(updates))
	for name := range updates {
		if t.definition.KeyDefinitions.IsKeyAttribute(name) {
			return nil, nil, ddberrors.Validation("One or more parameter values were invalid: Cannot update attribute %s. This attribute is part of the key", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	item := attrval.CopyItem(base)
	if item == nil {
		item = map[string]types.AttributeValue{}
	}
	for _, name := range names {
		update := updates[name]
		path := docpath.NewRoot(name)
		switch update.Action {
		case types.AttributeActionPut, "":
			if update.Value == nil {
				return nil, nil, ddberrors.Validation("One or more parameter values were invalid: Only DELETE action is allowed when no attribute value is specified")
			}
			item[name] = attrval.Copy(update.Value)
		case types.AttributeActionAdd:
			if update.Value == nil {
				return nil, nil, ddberrors.Validation("One or more parameter values were invalid: Only DELETE action is allowed when no attribute value is specified")
			}
			if err := addAttribute(item, path, update.Value); err != nil {
				return nil, nil, err
			}
		case types.AttributeActionDelete:
			if update.Value == nil {
				delete(item, name)
				break
			}
			if err := deleteFromAttribute(item, path, update.Value); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, ddberrors.Validation("One or more parameter values were invalid: Invalid action %s for AttributeUpdates", update.Action)
		}
	}
	return item, names, nil
}

// addAttribute mirrors the ADD clause of an update expression for a
// single top-level attribute.
func addAttribute(item map[string]types.AttributeValue, path docpath.Path, value types.AttributeValue) error {
	u := &updateexpr.UpdateExpression{
		AddActions: []updateexpr.AddAction{{Path: path, Value: value}},
	}
	result, err := updateexpr.Apply(u, item)
	if err != nil {
		return err
	}
	item[path.Root()] = result.Item[path.Root()]
	return nil
}

func deleteFromAttribute(item map[string]types.AttributeValue, path docpath.Path, value types.AttributeValue) error {
	u := &updateexpr.UpdateExpression{
		DeleteActions: []updateexpr.DeleteAction{{Path: path, Value: value}},
	}
	result, err := updateexpr.Apply(u, item)
	if err != nil {
		return err
	}
	if rest, ok := result.Item[path.Root()]; ok {
		item[path.Root()] = rest
	} else {
		delete(item, path.Root())
	}
	return nil
}

// updateReturnValues assembles the output for the five ReturnValues
// policies. The stored items are never aliased into the response.
func updateReturnValues(policy types.ReturnValue, oldItem, newItem map[string]types.AttributeValue, modifiedRoots []string) (*dynamodb.UpdateItemOutput, error) {
	out := &dynamodb.UpdateItemOutput{}
	switch policy {
	case "", types.ReturnValueNone:
	case types.ReturnValueAllOld:
		if oldItem != nil {
			out.Attributes = attrval.CopyItem(oldItem)
		}
	case types.ReturnValueAllNew:
		out.Attributes = attrval.CopyItem(newItem)
	case types.ReturnValueUpdatedOld:
		out.Attributes = pickRoots(oldItem, modifiedRoots)
	case types.ReturnValueUpdatedNew:
		out.Attributes = pickRoots(newItem, modifiedRoots)
	default:
		return nil, ddberrors.Validation("Return values set to invalid value")
	}
	return out, nil
}

func pickRoots(item map[string]types.AttributeValue, roots []string) map[string]types.AttributeValue {
	if item == nil || len(roots) == 0 {
		return nil
	}
	out := map[string]types.AttributeValue{}
	for _, root := range roots {
		if value, ok := item[root]; ok {
			out[root] = attrval.Copy(value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
