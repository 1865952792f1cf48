package ddbstore

import (
	"context"
	"fmt"
	"sort"

	"dynalocal/ddbstore/attrval"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scan walks every item of the table or a named index in a deterministic
// order: partitions by their encoded hash key, items within a partition
// by the view's sort order. The same paging contract as Query applies.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
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
	filter, err := parseFilter(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	entries := flattenView(view)

	start := 0
	if params.ExclusiveStartKey != nil {
		start, err = resumeScanPosition(entries, params.ExclusiveStartKey, t, view)
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

	return &dynamodb.ScanOutput{
		Items:            page.items,
		Count:            page.count,
		ScannedCount:     page.scanned,
		LastEvaluatedKey: page.lastEvaluatedKey,
	}, nil
}

// flattenView lays the view's partitions out in sorted encoded-key order
// so repeated scans of an unchanged table see the same sequence.
func flattenView(view *indexView) []*entry {
	partitions := make([]string, 0, len(view.partitions))
	for key := range view.partitions {
		partitions = append(partitions, key)
	}
	sort.Strings(partitions)

	var entries []*entry
	for _, key := range partitions {
		view.partitions[key].Ascend(func(e *entry) bool {
			entries = append(entries, e)
			return true
		})
	}
	return entries
}

// resumeScanPosition finds the scan cursor by the stored item's table
// primary key. When that exact item is gone, the cursor positions past
// where it would sit in flatten order, so pagination makes progress even
// across deletes between pages.
func resumeScanPosition(entries []*entry, startKey map[string]types.AttributeValue, t *tableData, view *indexView) (int, error) {
	pk, err := resumeKey(t, view, startKey)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if docMatchesKey(e.doc, pk) {
			return i + 1, nil
		}
	}

	hash, ok := startKey[view.keys.PartitionKey.Name]
	if !ok || !scalarKey(hash) {
		return len(entries), nil
	}
	cursorPart := attrval.EncodeKeyString(hash)
	var cursorSort types.AttributeValue
	if view.keys.HasSortKey() {
		cursorSort = startKey[view.keys.SortKey.Name]
	}
	for i, e := range entries {
		part, sortValue, ok := view.viewKey(e.doc.item)
		if !ok || part < cursorPart {
			continue
		}
		if part > cursorPart {
			return i, nil
		}
		if cursorSort == nil || sortValue == nil {
			continue
		}
		if cmp, err := attrval.Compare(sortValue, cursorSort); err == nil && cmp > 0 {
			return i, nil
		}
	}
	return len(entries), nil
}

func scalarKey(av types.AttributeValue) bool {
	switch av.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		return true
	}
	return false
}
