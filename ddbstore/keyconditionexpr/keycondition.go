// Package keyconditionexpr parses KeyConditionExpression text. The grammar
// is deliberately narrow: an equality on the hash key, optionally ANDed
// with a single range-key term using a comparator, BETWEEN or
// begins_with. Anything else is rejected at parse time so the evaluator
// never sees an illegal key condition.
package keyconditionexpr

import (
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyCondition is the validated result of a parse: the hash key equality
// value and an optional sort key term.
type KeyCondition struct {
	PartitionValue types.AttributeValue
	SortCondition  *SortKeyCondition
}

// Comparator is a sort-key comparison operator.
type Comparator string

const (
	Equal          Comparator = "="
	LessThan       Comparator = "<"
	LessOrEqual    Comparator = "<="
	GreaterThan    Comparator = ">"
	GreaterOrEqual Comparator = ">="
)

// SortKeyCondition is the single allowed range-key term. Exactly one of
// the three fields is set.
type SortKeyCondition struct {
	Compare    *KeyComparison
	Between    *KeyBetween
	BeginsWith *KeyBeginsWith
}

// KeyComparison is "sortKey <op> value".
type KeyComparison struct {
	Op    Comparator
	Value types.AttributeValue
}

// KeyBetween is "sortKey BETWEEN lower AND upper".
type KeyBetween struct {
	Lower, Upper types.AttributeValue
}

// KeyBeginsWith is "begins_with(sortKey, prefix)".
type KeyBeginsWith struct {
	Prefix types.AttributeValue
}

// ParseParams carries placeholder maps and the key schema of the queried
// table or index.
type ParseParams struct {
	ExpressionNames  map[string]string
	ExpressionValues map[string]types.AttributeValue
	IndexKeys        table.PrimaryKeyDefinition
}
