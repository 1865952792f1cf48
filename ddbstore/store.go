// Package ddbstore is an in-memory, single-node item store exposing the
// DynamoDB data-plane and table-control operations with SDK-compatible
// method signatures. Items are held per table in ordered partitions: a
// btree per hash key value, ordered by the range key. Secondary indexes
// are maintained eagerly as extra ordered views over the same documents.
package ddbstore

import (
	"fmt"
	"sync"

	"dynalocal/ddbiface"
	"dynalocal/ddbstore/attrval"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/btree"
)

const btreeDegree = 16

var _ ddbiface.DynamoDB = &Store{}

// Store holds all tables. The outer mutex guards the table map; each
// table carries its own lock so operations on different tables do not
// contend.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*tableData
}

// New returns an empty store, optionally pre-seeded with table
// definitions. Seed definitions must already validate.
func New(defs ...table.TableDefinition) *Store {
	s := &Store{tables: make(map[string]*tableData)}
	for _, def := range defs {
		def = def.Clone()
		def.ResolveKeyKinds()
		s.tables[def.Name] = newTableData(def)
	}
	return s
}

func (s *Store) getTable(tableName *string) (*tableData, error) {
	name := aws.ToString(tableName)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found"),
		}
	}
	return t, nil
}

// tableData is one table's documents plus every ordered view over them:
// the primary view and one view per secondary index.
type tableData struct {
	mu         sync.RWMutex
	definition table.TableDefinition
	primary    *indexView
	indexes    map[string]*indexView
	seq        uint64
	itemCount  int64
}

func newTableData(def table.TableDefinition) *tableData {
	t := &tableData{
		definition: def,
		primary:    newIndexView(def.KeyDefinitions, false),
		indexes:    make(map[string]*indexView),
	}
	for _, gsi := range def.GSIs {
		t.indexes[gsi.Name] = newIndexView(gsi.KeyDefinitions, true)
	}
	for _, lsi := range def.LSIs {
		t.indexes[lsi.Name] = newIndexView(lsi.KeyDefinitions, true)
	}
	return t
}

// document is one stored item plus its insertion sequence number. The
// sequence breaks ties between items sharing a secondary index key, so
// duplicates surface in insertion order.
type document struct {
	item map[string]types.AttributeValue
	seq  uint64
}

// entry is a document's position in one view. sort is nil for hash-only
// schemas.
type entry struct {
	sort types.AttributeValue
	doc  *document
}

// indexView is one ordered projection of a table's documents: a btree
// per hash key value, ordered by the range key value. Secondary views
// additionally order by insertion sequence so equal keys are stable,
// and skip documents missing any of the view's key attributes.
type indexView struct {
	keys       table.PrimaryKeyDefinition
	secondary  bool
	partitions map[string]*btree.BTreeG[*entry]
}

func newIndexView(keys table.PrimaryKeyDefinition, secondary bool) *indexView {
	return &indexView{
		keys:       keys,
		secondary:  secondary,
		partitions: make(map[string]*btree.BTreeG[*entry]),
	}
}

// less orders entries within a partition. Key attributes are validated
// on write, so sort values always share the declared scalar type and
// Compare cannot fail here.
func (v *indexView) less(a, b *entry) bool {
	if a.sort != nil && b.sort != nil {
		cmp, err := attrval.Compare(a.sort, b.sort)
		if err != nil {
			panic(fmt.Sprintf("index %s: %v", v.keys.SortKey.Name, err))
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	if v.secondary {
		return a.doc.seq < b.doc.seq
	}
	return false
}

// viewKey extracts the view's key values from an item. ok is false when
// a key attribute is absent, which excludes the item from a secondary
// view; the primary view's keys are always present on stored items.
func (v *indexView) viewKey(item map[string]types.AttributeValue) (partition string, sort types.AttributeValue, ok bool) {
	hash, present := item[v.keys.PartitionKey.Name]
	if !present {
		return "", nil, false
	}
	if v.keys.HasSortKey() {
		sort, present = item[v.keys.SortKey.Name]
		if !present {
			return "", nil, false
		}
	}
	return attrval.EncodeKeyString(hash), sort, true
}

func (v *indexView) insert(doc *document) {
	partition, sort, ok := v.viewKey(doc.item)
	if !ok {
		return
	}
	tree, exists := v.partitions[partition]
	if !exists {
		tree = btree.NewG(btreeDegree, v.less)
		v.partitions[partition] = tree
	}
	tree.ReplaceOrInsert(&entry{sort: sort, doc: doc})
}

func (v *indexView) remove(doc *document) {
	partition, sort, ok := v.viewKey(doc.item)
	if !ok {
		return
	}
	tree, exists := v.partitions[partition]
	if !exists {
		return
	}
	tree.Delete(&entry{sort: sort, doc: doc})
	if tree.Len() == 0 {
		delete(v.partitions, partition)
	}
}

// get looks up a document by full primary key. Only meaningful on the
// primary view, where keys are unique.
func (v *indexView) get(pk table.PrimaryKey) (*document, bool) {
	tree, ok := v.partitions[attrval.EncodeKeyString(pk.Values.PartitionKey)]
	if !ok {
		return nil, false
	}
	found, ok := tree.Get(&entry{sort: pk.Values.SortKey})
	if !ok {
		return nil, false
	}
	return found.doc, true
}

// put stores an item, replacing any existing item with the same primary
// key across every view. Caller holds the table lock and has validated
// and deep-copied the item.
func (t *tableData) put(item map[string]types.AttributeValue, pk table.PrimaryKey) *document {
	if old, ok := t.primary.get(pk); ok {
		t.removeDocument(old)
		t.itemCount--
	}
	t.seq++
	doc := &document{item: item, seq: t.seq}
	t.insertDocument(doc)
	t.itemCount++
	return doc
}

// remove deletes the item with the given primary key from every view and
// returns it, or nil when no such item exists.
func (t *tableData) remove(pk table.PrimaryKey) *document {
	doc, ok := t.primary.get(pk)
	if !ok {
		return nil
	}
	t.removeDocument(doc)
	t.itemCount--
	return doc
}

func (t *tableData) insertDocument(doc *document) {
	t.primary.insert(doc)
	for _, view := range t.indexes {
		view.insert(doc)
	}
}

func (t *tableData) removeDocument(doc *document) {
	t.primary.remove(doc)
	for _, view := range t.indexes {
		view.remove(doc)
	}
}

// view resolves the primary or a named secondary view for Query/Scan.
func (t *tableData) view(indexName *string) (*indexView, error) {
	if indexName == nil || *indexName == "" {
		return t.primary, nil
	}
	if view, ok := t.indexes[*indexName]; ok {
		return view, nil
	}
	// Produces the exact wording for an unknown index.
	_, err := t.definition.IndexKeys(*indexName)
	return nil, err
}
