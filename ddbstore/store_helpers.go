package ddbstore

import (
	"dynalocal/ddberrors"
	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/conditionexpr"
	"dynalocal/ddbstore/projectionexpr"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// validateLimit rejects out-of-range Limit values. max is 0 when the
// operation has no upper bound.
func validateLimit(limit *int32, max int32) error {
	if limit == nil {
		return nil
	}
	if *limit < 1 {
		return ddberrors.Validation("1 validation error detected: Value '%d' at 'limit' failed to satisfy constraint: Member must have value greater than or equal to 1", *limit)
	}
	if max > 0 && *limit > max {
		return ddberrors.Validation("1 validation error detected: Value '%d' at 'limit' failed to satisfy constraint: Member must have value less than or equal to %d", *limit, max)
	}
	return nil
}

// resumeKey recovers the table primary key from an ExclusiveStartKey. A
// secondary view's cursor carries the view's key attributes alongside the
// table key; only the table key identifies the stored item. Any other
// attribute invalidates the cursor.
func resumeKey(t *tableData, view *indexView, startKey map[string]types.AttributeValue) (table.PrimaryKey, error) {
	tableKeys := t.definition.KeyDefinitions
	key := make(map[string]types.AttributeValue, 2)
	for name, av := range startKey {
		switch {
		case tableKeys.IsKeyAttribute(name):
			key[name] = av
		case view.secondary && view.keys.IsKeyAttribute(name):
		default:
			return table.PrimaryKey{}, ddberrors.Validation("The provided starting key is invalid")
		}
	}
	pk, err := tableKeys.ExtractRequestKey(key)
	if err != nil {
		return table.PrimaryKey{}, ddberrors.Validation("The provided starting key is invalid")
	}
	return pk, nil
}

// parseFilter parses an optional FilterExpression. Nil in, nil out.
func parseFilter(expr *string, names map[string]string, values map[string]types.AttributeValue) (conditionexpr.Condition, error) {
	if expr == nil {
		return nil, nil
	}
	return conditionexpr.Parse(*expr, conditionexpr.ParseParams{
		ExpressionNames:  names,
		ExpressionValues: values,
		Label:            "FilterExpression",
	})
}

// pageParams carries the shared Query/Scan paging knobs.
type pageParams struct {
	limit      *int32
	filter     conditionexpr.Condition
	projection *string
	names      map[string]string
	countOnly  bool
}

// pageResult is one page of results. ScannedCount counts items examined
// before the filter; Count counts items the filter kept.
type pageResult struct {
	items            []map[string]types.AttributeValue
	count            int32
	scanned          int32
	lastEvaluatedKey map[string]types.AttributeValue
}

// collectPage walks entries in order, stopping once limit items have been
// examined. LastEvaluatedKey is set only when at least one entry remains
// past the stopping point, so a page ending exactly at the tail closes
// the cursor.
func collectPage(entries []*entry, t *tableData, view *indexView, p pageParams) (*pageResult, error) {
	result := &pageResult{}
	var lastExamined *entry
	limitHit := false
	for _, e := range entries {
		if p.limit != nil && result.scanned == *p.limit {
			limitHit = true
			break
		}
		result.scanned++
		lastExamined = e
		if p.filter != nil && !conditionexpr.Evaluate(p.filter, e.doc.item) {
			continue
		}
		result.count++
		if !p.countOnly {
			result.items = append(result.items, attrval.CopyItem(e.doc.item))
		}
	}
	if limitHit && lastExamined != nil {
		result.lastEvaluatedKey = lastEvaluatedKey(t, view, lastExamined.doc.item)
	}
	if !p.countOnly {
		items, err := projectionexpr.Apply(p.projection, p.names, result.items)
		if err != nil {
			return nil, err
		}
		result.items = items
	}
	return result, nil
}

// lastEvaluatedKey builds the resume cursor: the table's primary key
// attributes plus, for a secondary view, the view's own key attributes.
func lastEvaluatedKey(t *tableData, view *indexView, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	lek := map[string]types.AttributeValue{}
	copyKeyAttr := func(name string) {
		if value, ok := item[name]; ok {
			lek[name] = attrval.Copy(value)
		}
	}
	copyKeyAttr(t.definition.KeyDefinitions.PartitionKey.Name)
	if t.definition.KeyDefinitions.HasSortKey() {
		copyKeyAttr(t.definition.KeyDefinitions.SortKey.Name)
	}
	if view.secondary {
		copyKeyAttr(view.keys.PartitionKey.Name)
		if view.keys.HasSortKey() {
			copyKeyAttr(view.keys.SortKey.Name)
		}
	}
	return lek
}
