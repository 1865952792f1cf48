package updateexpr

import (
	"fmt"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/docpath"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Result is the outcome of applying an update expression.
type Result struct {
	// Item is the post-update item.
	Item map[string]types.AttributeValue
	// ModifiedRoots are the top-level attribute names touched by any
	// action, in action order, for UPDATED_OLD/UPDATED_NEW return values.
	ModifiedRoots []string
}

var errIncorrectOperand = ddberrors.Validation("An operand in the update expression has an incorrect data type")

// Apply evaluates the expression against item and returns the updated
// item. The input item is not mutated; operands referencing paths resolve
// against the pre-update snapshot. Clause order is SET, ADD, DELETE,
// REMOVE; parse-time overlap checks make the order unobservable.
func Apply(u *UpdateExpression, item map[string]types.AttributeValue) (*Result, error) {
	snapshot := item
	updated := attrval.CopyItem(item)
	if updated == nil {
		updated = map[string]types.AttributeValue{}
	}

	for _, action := range u.SetActions {
		value, err := resolveSetValue(action.Value, snapshot)
		if err != nil {
			return nil, err
		}
		if err := setPath(updated, action.Path, value); err != nil {
			return nil, err
		}
	}
	for _, action := range u.AddActions {
		if err := applyAdd(updated, action); err != nil {
			return nil, err
		}
	}
	for _, action := range u.DeleteActions {
		if err := applyDelete(updated, action); err != nil {
			return nil, err
		}
	}
	for _, path := range u.RemoveActions {
		path.Remove(updated)
	}

	var roots []string
	seen := map[string]bool{}
	for _, path := range u.Paths() {
		if !seen[path.Root()] {
			seen[path.Root()] = true
			roots = append(roots, path.Root())
		}
	}
	return &Result{Item: updated, ModifiedRoots: roots}, nil
}

func resolveSetValue(v SetValue, item map[string]types.AttributeValue) (types.AttributeValue, error) {
	switch sv := v.(type) {
	case *Arithmetic:
		left, err := resolveOperand(sv.Left, item)
		if err != nil {
			return nil, err
		}
		right, err := resolveOperand(sv.Right, item)
		if err != nil {
			return nil, err
		}
		ln, okL := left.(*types.AttributeValueMemberN)
		rn, okR := right.(*types.AttributeValueMemberN)
		if !okL || !okR {
			return nil, errIncorrectOperand
		}
		var result string
		if sv.Operator == "+" {
			result, err = attrval.AddNumbers(ln.Value, rn.Value)
		} else {
			result, err = attrval.SubtractNumbers(ln.Value, rn.Value)
		}
		if err != nil {
			return nil, errIncorrectOperand
		}
		return &types.AttributeValueMemberN{Value: result}, nil
	case Operand:
		return resolveOperand(sv, item)
	default:
		panic(fmt.Sprintf("unsupported set value node: %T", v))
	}
}

func resolveOperand(op Operand, item map[string]types.AttributeValue) (types.AttributeValue, error) {
	switch o := op.(type) {
	case *ValueOperand:
		return o.Value, nil
	case *PathOperand:
		value, ok := o.Path.Get(item)
		if !ok {
			return nil, ddberrors.Validation("The provided expression refers to an attribute that does not exist in the item")
		}
		return value, nil
	case *IfNotExists:
		if value, ok := o.Path.Get(item); ok {
			return value, nil
		}
		return resolveOperand(o.Default, item)
	case *ListAppend:
		left, err := resolveOperand(o.Left, item)
		if err != nil {
			return nil, err
		}
		right, err := resolveOperand(o.Right, item)
		if err != nil {
			return nil, err
		}
		ll, okL := left.(*types.AttributeValueMemberL)
		rl, okR := right.(*types.AttributeValueMemberL)
		if !okL || !okR {
			return nil, errIncorrectOperand
		}
		merged := make([]types.AttributeValue, 0, len(ll.Value)+len(rl.Value))
		merged = append(merged, ll.Value...)
		merged = append(merged, rl.Value...)
		return &types.AttributeValueMemberL{Value: merged}, nil
	default:
		panic(fmt.Sprintf("unsupported operand node: %T", op))
	}
}

func applyAdd(item map[string]types.AttributeValue, action AddAction) error {
	operand := action.Value
	switch attrval.TypeTag(operand) {
	case attrval.TypeNumber:
	case attrval.TypeStringSet, attrval.TypeNumberSet, attrval.TypeBinarySet:
	default:
		return ddberrors.Validation("Invalid UpdateExpression: Incorrect operand type for operator or function; operator or function: operator: ADD, operand type: %s", typeName(operand))
	}

	existing, exists := action.Path.Get(item)
	if !exists {
		return setPath(item, action.Path, attrval.Copy(operand))
	}
	if n, ok := operand.(*types.AttributeValueMemberN); ok {
		en, ok := existing.(*types.AttributeValueMemberN)
		if !ok {
			return errIncorrectOperand
		}
		sum, err := attrval.AddNumbers(en.Value, n.Value)
		if err != nil {
			return errIncorrectOperand
		}
		return setPath(item, action.Path, &types.AttributeValueMemberN{Value: sum})
	}
	if attrval.TypeTag(existing) != attrval.TypeTag(operand) {
		return errIncorrectOperand
	}
	union, err := attrval.SetUnion(existing, operand)
	if err != nil {
		return errIncorrectOperand
	}
	return setPath(item, action.Path, union)
}

func applyDelete(item map[string]types.AttributeValue, action DeleteAction) error {
	existing, exists := action.Path.Get(item)
	if !exists {
		return nil
	}
	if !attrval.IsSet(existing) {
		return ddberrors.Validation("Invalid UpdateExpression: Incorrect operand type for operator or function; operator or function: operator: DELETE, operand type: %s", typeName(existing))
	}
	if !attrval.IsSet(action.Value) || attrval.TypeTag(existing) != attrval.TypeTag(action.Value) {
		return errIncorrectOperand
	}
	rest, err := attrval.SetDifference(existing, action.Value)
	if err != nil {
		return errIncorrectOperand
	}
	if rest == nil {
		// Emptied sets take the attribute with them.
		action.Path.Remove(item)
		return nil
	}
	return setPath(item, action.Path, rest)
}

func setPath(item map[string]types.AttributeValue, path docpath.Path, value types.AttributeValue) error {
	if err := path.Set(item, value); err != nil {
		return ddberrors.Validation("The document path provided in the update expression is invalid for update")
	}
	return nil
}

// typeName renders a type tag the way the service spells it in operand
// type errors.
func typeName(av types.AttributeValue) string {
	switch attrval.TypeTag(av) {
	case attrval.TypeString:
		return "STRING"
	case attrval.TypeNumber:
		return "NUMBER"
	case attrval.TypeBinary:
		return "BINARY"
	case attrval.TypeBool:
		return "BOOLEAN"
	case attrval.TypeNull:
		return "NULL"
	case attrval.TypeList:
		return "LIST"
	case attrval.TypeMap:
		return "MAP"
	case attrval.TypeStringSet:
		return "STRING SET"
	case attrval.TypeNumberSet:
		return "NUMBER SET"
	default:
		return "BINARY SET"
	}
}
