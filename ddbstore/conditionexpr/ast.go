// Package conditionexpr parses and evaluates ConditionExpression and
// FilterExpression text against an item. Parsing resolves #name and :value
// placeholders eagerly so the resulting tree evaluates without any request
// context.
package conditionexpr

import (
	"dynalocal/ddbstore/docpath"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a node of the parsed boolean tree.
type Condition interface {
	conditionNode()
}

// OrCond is a short-circuit OR.
type OrCond struct {
	Left, Right Condition
}

// AndCond is a short-circuit AND.
type AndCond struct {
	Left, Right Condition
}

// NotCond negates its operand.
type NotCond struct {
	Inner Condition
}

// Comparator is one of the six comparison operators.
type Comparator string

const (
	Equal          Comparator = "="
	NotEqual       Comparator = "<>"
	LessThan       Comparator = "<"
	LessOrEqual    Comparator = "<="
	GreaterThan    Comparator = ">"
	GreaterOrEqual Comparator = ">="
)

// Comparison compares two operands.
type Comparison struct {
	Op          Comparator
	Left, Right Operand
}

// Between is "target BETWEEN lower AND upper" (inclusive both ends).
type Between struct {
	Target       Operand
	Lower, Upper Operand
}

// In is "target IN (a, b, ...)".
type In struct {
	Target     Operand
	Candidates []Operand
}

// FunctionCond is a boolean function call: attribute_exists,
// attribute_not_exists, attribute_type, begins_with, contains.
type FunctionCond struct {
	Name string // canonical lower-case name
	Path docpath.Path
	Arg  Operand // nil for the existence checks
}

func (*OrCond) conditionNode()      {}
func (*AndCond) conditionNode()     {}
func (*NotCond) conditionNode()     {}
func (*Comparison) conditionNode()  {}
func (*Between) conditionNode()     {}
func (*In) conditionNode()          {}
func (*FunctionCond) conditionNode() {}

// Operand is a value-producing expression: a document path, a resolved
// :value literal, or size(path).
type Operand interface {
	operandNode()
}

// PathOperand reads a document path off the item.
type PathOperand struct {
	Path docpath.Path
}

// ValueOperand is a literal resolved from ExpressionAttributeValues.
type ValueOperand struct {
	Value types.AttributeValue
}

// SizeOperand is size(path); it produces a number.
type SizeOperand struct {
	Path docpath.Path
}

func (*PathOperand) operandNode()  {}
func (*ValueOperand) operandNode() {}
func (*SizeOperand) operandNode()  {}
