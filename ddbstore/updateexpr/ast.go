// Package updateexpr parses UpdateExpression text and applies the parsed
// actions to an item.
//
// Update expressions have the following structure:
//
//	[SET action [, action] ...]
//	[REMOVE path [, path] ...]
//	[ADD path value [, path value] ...]
//	[DELETE path value [, path value] ...]
//
// SET values may be a literal, a path copy, numeric addition/subtraction,
// if_not_exists(path, default) or list_append(list, list). ADD and DELETE
// operate on numbers and sets only.
package updateexpr

import (
	"dynalocal/ddbstore/docpath"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateExpression is the parsed, placeholder-resolved expression.
type UpdateExpression struct {
	SetActions    []SetAction
	AddActions    []AddAction
	DeleteActions []DeleteAction
	RemoveActions []docpath.Path
}

// Paths returns every document path targeted by any action, used by the
// store to reject mutations of key attributes.
func (u *UpdateExpression) Paths() []docpath.Path {
	var paths []docpath.Path
	for _, a := range u.SetActions {
		paths = append(paths, a.Path)
	}
	for _, a := range u.AddActions {
		paths = append(paths, a.Path)
	}
	for _, a := range u.DeleteActions {
		paths = append(paths, a.Path)
	}
	paths = append(paths, u.RemoveActions...)
	return paths
}

// SetAction is "SET path = value".
type SetAction struct {
	Path  docpath.Path
	Value SetValue
}

// AddAction is "ADD path value"; the value is a number or set literal.
type AddAction struct {
	Path  docpath.Path
	Value types.AttributeValue
}

// DeleteAction is "DELETE path value"; the value is a set literal.
type DeleteAction struct {
	Path  docpath.Path
	Value types.AttributeValue
}

// SetValue is the right-hand side of a SET action: either a single operand
// or an arithmetic combination of two.
type SetValue interface {
	setValueNode()
}

// Arithmetic is "operand + operand" or "operand - operand".
type Arithmetic struct {
	Left     Operand
	Operator string // "+" or "-"
	Right    Operand
}

func (*Arithmetic) setValueNode() {}

// Operand is a value-producing term inside a SET action.
type Operand interface {
	SetValue
	operandNode()
}

// ValueOperand is a literal resolved from ExpressionAttributeValues.
type ValueOperand struct {
	Value types.AttributeValue
}

// PathOperand copies the value at another document path.
type PathOperand struct {
	Path docpath.Path
}

// IfNotExists is "if_not_exists(path, default)".
type IfNotExists struct {
	Path    docpath.Path
	Default Operand
}

// ListAppend is "list_append(list, list)".
type ListAppend struct {
	Left, Right Operand
}

func (*ValueOperand) setValueNode() {}
func (*ValueOperand) operandNode()  {}
func (*PathOperand) setValueNode()  {}
func (*PathOperand) operandNode()   {}
func (*IfNotExists) setValueNode()  {}
func (*IfNotExists) operandNode()   {}
func (*ListAppend) setValueNode()   {}
func (*ListAppend) operandNode()    {}
