package conditionexpr

import (
	"fmt"
	"strconv"
	"strings"

	"dynalocal/ddbstore/attrval"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EvalInput carries the request-scoped context for the one-shot Eval
// helper.
type EvalInput struct {
	ExpressionNames  map[string]string
	ExpressionValues map[string]types.AttributeValue
	Label            string
}

// Eval parses and evaluates a condition expression against an item in one
// step. A nil item behaves as an item with no attributes.
func Eval(expr string, input EvalInput, item map[string]types.AttributeValue) (bool, error) {
	cond, err := Parse(expr, ParseParams{
		ExpressionNames:  input.ExpressionNames,
		ExpressionValues: input.ExpressionValues,
		Label:            input.Label,
	})
	if err != nil {
		return false, err
	}
	return Evaluate(cond, item), nil
}

// Evaluate walks the condition tree against an item. Comparisons between
// incompatible types and references to missing attributes evaluate to
// false rather than erroring, matching the service's filter semantics.
func Evaluate(cond Condition, item map[string]types.AttributeValue) bool {
	switch c := cond.(type) {
	case *OrCond:
		return Evaluate(c.Left, item) || Evaluate(c.Right, item)
	case *AndCond:
		return Evaluate(c.Left, item) && Evaluate(c.Right, item)
	case *NotCond:
		return !Evaluate(c.Inner, item)
	case *Comparison:
		return evalComparison(c, item)
	case *Between:
		target, ok := resolveOperand(c.Target, item)
		if !ok {
			return false
		}
		lower, okL := resolveOperand(c.Lower, item)
		upper, okU := resolveOperand(c.Upper, item)
		if !okL || !okU {
			return false
		}
		lo, err := attrval.Compare(target, lower)
		if err != nil {
			return false
		}
		hi, err := attrval.Compare(target, upper)
		if err != nil {
			return false
		}
		return lo >= 0 && hi <= 0
	case *In:
		target, ok := resolveOperand(c.Target, item)
		if !ok {
			return false
		}
		for _, candidate := range c.Candidates {
			if cv, ok := resolveOperand(candidate, item); ok && attrval.Equal(target, cv) {
				return true
			}
		}
		return false
	case *FunctionCond:
		return evalFunction(c, item)
	default:
		panic(fmt.Sprintf("unsupported condition node: %T", cond))
	}
}

func evalComparison(c *Comparison, item map[string]types.AttributeValue) bool {
	left, okL := resolveOperand(c.Left, item)
	right, okR := resolveOperand(c.Right, item)
	if !okL || !okR {
		return false
	}
	switch c.Op {
	case Equal:
		return attrval.Equal(left, right)
	case NotEqual:
		return !attrval.Equal(left, right)
	}
	cmp, err := attrval.Compare(left, right)
	if err != nil {
		return false
	}
	switch c.Op {
	case LessThan:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

func evalFunction(c *FunctionCond, item map[string]types.AttributeValue) bool {
	target, exists := c.Path.Get(item)
	switch c.Name {
	case "attribute_exists":
		return exists
	case "attribute_not_exists":
		return !exists
	case "attribute_type":
		if !exists {
			return false
		}
		want, ok := resolveOperand(c.Arg, item)
		if !ok {
			return false
		}
		wantS, ok := want.(*types.AttributeValueMemberS)
		return ok && attrval.TypeTag(target) == wantS.Value
	case "begins_with":
		if !exists {
			return false
		}
		prefix, ok := resolveOperand(c.Arg, item)
		if !ok {
			return false
		}
		switch t := target.(type) {
		case *types.AttributeValueMemberS:
			p, ok := prefix.(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(t.Value, p.Value)
		case *types.AttributeValueMemberB:
			p, ok := prefix.(*types.AttributeValueMemberB)
			return ok && len(t.Value) >= len(p.Value) && string(t.Value[:len(p.Value)]) == string(p.Value)
		default:
			return false
		}
	case "contains":
		if !exists {
			return false
		}
		needle, ok := resolveOperand(c.Arg, item)
		if !ok {
			return false
		}
		return attrval.Contains(target, needle)
	default:
		panic(fmt.Sprintf("unsupported condition function: %s", c.Name))
	}
}

func resolveOperand(op Operand, item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	switch o := op.(type) {
	case *ValueOperand:
		return o.Value, true
	case *PathOperand:
		return o.Path.Get(item)
	case *SizeOperand:
		target, ok := o.Path.Get(item)
		if !ok {
			return nil, false
		}
		n, err := attrval.Size(target)
		if err != nil {
			return nil, false
		}
		return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}, true
	default:
		panic(fmt.Sprintf("unsupported operand node: %T", op))
	}
}
