package ddbstore

import (
	"context"
	"fmt"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/attrval"
	"dynalocal/ddbstore/keyconditionexpr"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Query reads one partition of the table or a named index, ordered by the
// range key, with optional sort-key narrowing, filtering and pagination.
// Limit bounds the number of items examined before the filter runs, so a
// page may carry fewer matches than its ScannedCount.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.KeyConditionExpression == nil {
		return nil, ddberrors.Validation("Either the KeyConditions or KeyConditionExpression parameter must be specified in the request.")
	}
	if err := validateLimit(params.Limit, 0); err != nil {
		return nil, err
	}
	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	view, err := t.view(params.IndexName)
	if err != nil {
		return nil, err
	}
	keyCond, err := keyconditionexpr.Parse(*params.KeyConditionExpression, keyconditionexpr.ParseParams{
		ExpressionNames:  params.ExpressionAttributeNames,
		ExpressionValues: params.ExpressionAttributeValues,
		IndexKeys:        view.keys,
	})
	if err != nil {
		return nil, err
	}
	filter, err := parseFilter(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward

	var entries []*entry
	if tree, ok := view.partitions[attrval.EncodeKeyString(keyCond.PartitionValue)]; ok {
		tree.Ascend(func(e *entry) bool {
			if sortConditionMatches(keyCond.SortCondition, e.sort) {
				entries = append(entries, e)
			}
			return true
		})
	}
	if !forward {
		reverseEntries(entries)
	}

	start := 0
	if params.ExclusiveStartKey != nil {
		start, err = resumePosition(entries, params.ExclusiveStartKey, t, view, forward)
		if err != nil {
			return nil, err
		}
	}

	page, err := collectPage(entries[start:], t, view, pageParams{
		limit:      params.Limit,
		filter:     filter,
		projection: params.ProjectionExpression,
		names:      params.ExpressionAttributeNames,
		countOnly:  params.Select == types.SelectCount,
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.QueryOutput{
		Items:            page.items,
		Count:            page.count,
		ScannedCount:     page.scanned,
		LastEvaluatedKey: page.lastEvaluatedKey,
	}, nil
}

// sortConditionMatches applies the parsed sort-key term to one stored
// value. A nil condition matches everything in the partition.
func sortConditionMatches(cond *keyconditionexpr.SortKeyCondition, value types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	switch {
	case cond.Compare != nil:
		cmp, err := attrval.Compare(value, cond.Compare.Value)
		if err != nil {
			return false
		}
		switch cond.Compare.Op {
		case keyconditionexpr.Equal:
			return cmp == 0
		case keyconditionexpr.LessThan:
			return cmp < 0
		case keyconditionexpr.LessOrEqual:
			return cmp <= 0
		case keyconditionexpr.GreaterThan:
			return cmp > 0
		case keyconditionexpr.GreaterOrEqual:
			return cmp >= 0
		}
		return false
	case cond.Between != nil:
		lo, err := attrval.Compare(value, cond.Between.Lower)
		if err != nil {
			return false
		}
		hi, err := attrval.Compare(value, cond.Between.Upper)
		if err != nil {
			return false
		}
		return lo >= 0 && hi <= 0
	case cond.BeginsWith != nil:
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			p, ok := cond.BeginsWith.Prefix.(*types.AttributeValueMemberS)
			return ok && len(v.Value) >= len(p.Value) && v.Value[:len(p.Value)] == p.Value
		case *types.AttributeValueMemberB:
			p, ok := cond.BeginsWith.Prefix.(*types.AttributeValueMemberB)
			return ok && len(v.Value) >= len(p.Value) && string(v.Value[:len(p.Value)]) == string(p.Value)
		}
		return false
	}
	return true
}

func reverseEntries(entries []*entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// resumePosition finds where a page continues after ExclusiveStartKey:
// just past the entry whose stored item carries the cursor's table key.
// When that exact item is gone, the cursor still positions by the view's
// sort order so pagination survives deletes between pages.
func resumePosition(entries []*entry, startKey map[string]types.AttributeValue, t *tableData, view *indexView, forward bool) (int, error) {
	pk, err := resumeKey(t, view, startKey)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if docMatchesKey(e.doc, pk) {
			return i + 1, nil
		}
	}
	if !view.keys.HasSortKey() {
		return len(entries), nil
	}
	cursorSort, ok := startKey[view.keys.SortKey.Name]
	if !ok {
		return len(entries), nil
	}
	for i, e := range entries {
		cmp, err := attrval.Compare(e.sort, cursorSort)
		if err != nil {
			continue
		}
		if (forward && cmp > 0) || (!forward && cmp < 0) {
			return i, nil
		}
	}
	return len(entries), nil
}

func docMatchesKey(doc *document, pk table.PrimaryKey) bool {
	if !attrval.Equal(doc.item[pk.Definition.PartitionKey.Name], pk.Values.PartitionKey) {
		return false
	}
	if !pk.Definition.HasSortKey() {
		return true
	}
	return attrval.Equal(doc.item[pk.Definition.SortKey.Name], pk.Values.SortKey)
}

