// Package projectionexpr parses ProjectionExpression text and narrows
// items to the requested document paths.
package projectionexpr

import (
	"strconv"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/docpath"
	"dynalocal/ddbstore/exprlexer"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Parse parses a comma-separated list of document paths.
func Parse(expr string, names map[string]string) ([]docpath.Path, error) {
	tokens, err := exprlexer.Tokenize(expr)
	if err != nil {
		return nil, ddberrors.Validation("Invalid ProjectionExpression: Syntax error; %v", err)
	}
	p := &parser{tokens: tokens, names: names}
	var paths []docpath.Path
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.peek().Kind == exprlexer.Comma {
			p.next()
			continue
		}
		break
	}
	if p.peek().Kind != exprlexer.EOF {
		return nil, p.syntaxError()
	}
	return paths, nil
}

// Project narrows an item to the given paths, rebuilding nested structure.
// Paths that do not resolve are skipped.
func Project(item map[string]types.AttributeValue, paths []docpath.Path) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{}
	for _, path := range paths {
		value, ok := path.Get(item)
		if !ok {
			continue
		}
		graft(out, path, value)
	}
	return out
}

// Apply projects every item when expr is set; otherwise items pass
// through untouched.
func Apply(expr *string, names map[string]string, items []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	if expr == nil {
		return items, nil
	}
	paths, err := Parse(*expr, names)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]types.AttributeValue, len(items))
	for i, item := range items {
		out[i] = Project(item, paths)
	}
	return out, nil
}

// graft writes value into out at path, creating intermediate maps. List
// positions collapse: projected list elements are re-appended in path
// order rather than keeping original indexes.
func graft(out map[string]types.AttributeValue, path docpath.Path, value types.AttributeValue) {
	current := out
	for i, part := range path.Parts {
		last := i == len(path.Parts)-1
		if part.IsIdx {
			// Nested list projection: attach under the parent list.
			name := path.Parts[i-1].Name
			list, ok := current[name].(*types.AttributeValueMemberL)
			if !ok {
				list = &types.AttributeValueMemberL{}
				current[name] = list
			}
			list.Value = append(list.Value, value)
			return
		}
		if last {
			current[part.Name] = value
			return
		}
		next, ok := current[part.Name].(*types.AttributeValueMemberM)
		if !ok {
			// A list index follows; let the next iteration handle it.
			if path.Parts[i+1].IsIdx {
				continue
			}
			next = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			current[part.Name] = next
		}
		current = next.Value
	}
}

type parser struct {
	tokens []exprlexer.Token
	pos    int
	names  map[string]string
}

func (p *parser) peek() exprlexer.Token { return p.tokens[p.pos] }

func (p *parser) next() exprlexer.Token {
	t := p.tokens[p.pos]
	if t.Kind != exprlexer.EOF {
		p.pos++
	}
	return t
}

func (p *parser) syntaxError() error {
	t := p.peek()
	text := t.Text
	if t.Kind == exprlexer.EOF {
		text = "<EOF>"
	}
	return ddberrors.Validation("Invalid ProjectionExpression: Syntax error; token: %q, near: %q",
		text, exprlexer.Near(p.tokens, p.pos))
}

func (p *parser) parsePath() (docpath.Path, error) {
	name, err := p.parsePathName()
	if err != nil {
		return docpath.Path{}, err
	}
	path := docpath.Path{Parts: []docpath.Part{{Name: name}}}
	for {
		switch p.peek().Kind {
		case exprlexer.Dot:
			p.next()
			name, err := p.parsePathName()
			if err != nil {
				return docpath.Path{}, err
			}
			path.Parts = append(path.Parts, docpath.Part{Name: name})
		case exprlexer.LeftBracket:
			p.next()
			idxTok := p.peek()
			if idxTok.Kind != exprlexer.Number {
				return docpath.Path{}, p.syntaxError()
			}
			p.next()
			if p.peek().Kind != exprlexer.RightBracket {
				return docpath.Path{}, p.syntaxError()
			}
			p.next()
			idx, _ := strconv.Atoi(idxTok.Text)
			path.Parts = append(path.Parts, docpath.Part{Index: idx, IsIdx: true})
		default:
			return path, nil
		}
	}
}

func (p *parser) parsePathName() (string, error) {
	t := p.peek()
	switch t.Kind {
	case exprlexer.Ident:
		p.next()
		return t.Text, nil
	case exprlexer.NamePlaceholder:
		p.next()
		resolved, ok := p.names[t.Text]
		if !ok {
			return "", ddberrors.Validation("Invalid ProjectionExpression: An expression attribute name used in the document path is not defined; attribute name: %s", t.Text)
		}
		return resolved, nil
	default:
		return "", p.syntaxError()
	}
}
