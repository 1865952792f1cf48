// Package docpath models document paths ("a.b[0].c") used by the
// expression languages for both reads and mutation targets.
package docpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Part is one step of a path: either a map field name or a list index.
type Part struct {
	Name  string
	Index int
	IsIdx bool
}

// Path is a navigable document path. The first part is always a name.
type Path struct {
	Parts []Part
}

// Root returns the top-level attribute name the path starts at.
func (p Path) Root() string {
	return p.Parts[0].Name
}

// IsTopLevel reports whether the path addresses a bare attribute.
func (p Path) IsTopLevel() bool {
	return len(p.Parts) == 1
}

// String renders the path in expression syntax.
func (p Path) String() string {
	var b strings.Builder
	for i, part := range p.Parts {
		if part.IsIdx {
			b.WriteString("[" + strconv.Itoa(part.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part.Name)
	}
	return b.String()
}

// Overlaps reports whether two paths could address the same data: one is a
// prefix of the other.
func (p Path) Overlaps(other Path) bool {
	n := len(p.Parts)
	if len(other.Parts) < n {
		n = len(other.Parts)
	}
	for i := 0; i < n; i++ {
		a, b := p.Parts[i], other.Parts[i]
		if a.IsIdx != b.IsIdx || a.Name != b.Name || (a.IsIdx && a.Index != b.Index) {
			return false
		}
	}
	return true
}

// NewRoot builds a single-part path for a top-level attribute.
func NewRoot(name string) Path {
	return Path{Parts: []Part{{Name: name}}}
}

// Get resolves the path against an item. The second result reports whether
// every step resolved.
func (p Path) Get(item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	if item == nil {
		return nil, false
	}
	current, ok := item[p.Parts[0].Name]
	if !ok {
		return nil, false
	}
	for _, part := range p.Parts[1:] {
		if part.IsIdx {
			list, ok := current.(*types.AttributeValueMemberL)
			if !ok || part.Index < 0 || part.Index >= len(list.Value) {
				return nil, false
			}
			current = list.Value[part.Index]
			continue
		}
		m, ok := current.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		current, ok = m.Value[part.Name]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes a value at the path, mutating item in place. Every
// intermediate step must already exist with the right shape; setting a
// field on a missing parent is an error, mirroring the service's
// document-path rules. A list index at or beyond the end appends.
func (p Path) Set(item map[string]types.AttributeValue, value types.AttributeValue) error {
	if p.IsTopLevel() {
		item[p.Parts[0].Name] = value
		return nil
	}
	parent, err := p.resolveParent(item)
	if err != nil {
		return err
	}
	last := p.Parts[len(p.Parts)-1]
	if last.IsIdx {
		list, ok := parent.(*types.AttributeValueMemberL)
		if !ok {
			return fmt.Errorf("path %s does not address a list", p)
		}
		if last.Index >= 0 && last.Index < len(list.Value) {
			list.Value[last.Index] = value
		} else {
			list.Value = append(list.Value, value)
		}
		return nil
	}
	m, ok := parent.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("path %s does not address a map", p)
	}
	m.Value[last.Name] = value
	return nil
}

// Remove deletes the value at the path if present. Missing paths are a
// no-op. Removing a list index shrinks the list.
func (p Path) Remove(item map[string]types.AttributeValue) {
	if p.IsTopLevel() {
		delete(item, p.Parts[0].Name)
		return
	}
	parent, err := p.resolveParent(item)
	if err != nil {
		return
	}
	last := p.Parts[len(p.Parts)-1]
	if last.IsIdx {
		if list, ok := parent.(*types.AttributeValueMemberL); ok {
			if last.Index >= 0 && last.Index < len(list.Value) {
				list.Value = append(list.Value[:last.Index], list.Value[last.Index+1:]...)
			}
		}
		return
	}
	if m, ok := parent.(*types.AttributeValueMemberM); ok {
		delete(m.Value, last.Name)
	}
}

func (p Path) resolveParent(item map[string]types.AttributeValue) (types.AttributeValue, error) {
	current, ok := item[p.Parts[0].Name]
	if !ok {
		return nil, fmt.Errorf("document path %s has no parent", p)
	}
	for _, part := range p.Parts[1 : len(p.Parts)-1] {
		if part.IsIdx {
			list, ok := current.(*types.AttributeValueMemberL)
			if !ok || part.Index < 0 || part.Index >= len(list.Value) {
				return nil, fmt.Errorf("document path %s has no parent", p)
			}
			current = list.Value[part.Index]
			continue
		}
		m, ok := current.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("document path %s has no parent", p)
		}
		current, ok = m.Value[part.Name]
		if !ok {
			return nil, fmt.Errorf("document path %s has no parent", p)
		}
	}
	return current, nil
}
