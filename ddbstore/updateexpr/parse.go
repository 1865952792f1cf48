package updateexpr

import (
	"strconv"
	"strings"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/docpath"
	"dynalocal/ddbstore/exprlexer"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ParseParams carries the request-scoped placeholder maps.
type ParseParams struct {
	ExpressionNames  map[string]string
	ExpressionValues map[string]types.AttributeValue
}

type parser struct {
	tokens []exprlexer.Token
	pos    int
	params ParseParams
}

var clauseKeywords = []string{"SET", "ADD", "DELETE", "REMOVE"}

// Parse parses an update expression, resolving placeholders and enforcing
// clause uniqueness and document-path non-overlap.
func Parse(expr string, params ParseParams) (*UpdateExpression, error) {
	tokens, err := exprlexer.Tokenize(expr)
	if err != nil {
		return nil, ddberrors.Validation("Invalid UpdateExpression: Syntax error; %v", err)
	}
	p := &parser{tokens: tokens, params: params}

	result := &UpdateExpression{}
	seen := map[string]bool{}
	for p.peek().Kind != exprlexer.EOF {
		clause := p.peek()
		// Actions within a clause are comma-separated; anything but a
		// clause keyword here is a syntax error naming that token.
		if clause.Kind != exprlexer.Ident || !isClauseKeyword(clause.Text) {
			return nil, p.syntaxError()
		}
		keyword := strings.ToUpper(clause.Text)
		if seen[keyword] {
			return nil, ddberrors.Validation("Invalid UpdateExpression: The %q section can only be used once in an update expression;", keyword)
		}
		seen[keyword] = true
		p.next()
		if err := p.parseClause(keyword, result); err != nil {
			return nil, err
		}
	}
	if len(seen) == 0 {
		return nil, p.syntaxError()
	}
	if err := checkOverlaps(result); err != nil {
		return nil, err
	}
	return result, nil
}

func isClauseKeyword(text string) bool {
	for _, kw := range clauseKeywords {
		if strings.EqualFold(text, kw) {
			return true
		}
	}
	return false
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
	return ddberrors.Validation("Invalid UpdateExpression: Syntax error; token: %q, near: %q",
		text, exprlexer.Near(p.tokens, p.pos))
}

// parseClause parses the comma-separated actions of one clause, stopping
// at the next clause keyword or EOF.
func (p *parser) parseClause(keyword string, result *UpdateExpression) error {
	for {
		switch keyword {
		case "SET":
			action, err := p.parseSetAction()
			if err != nil {
				return err
			}
			result.SetActions = append(result.SetActions, action)
		case "ADD":
			path, value, err := p.parsePathValueAction()
			if err != nil {
				return err
			}
			result.AddActions = append(result.AddActions, AddAction{Path: path, Value: value})
		case "DELETE":
			path, value, err := p.parsePathValueAction()
			if err != nil {
				return err
			}
			result.DeleteActions = append(result.DeleteActions, DeleteAction{Path: path, Value: value})
		case "REMOVE":
			path, err := p.parsePath()
			if err != nil {
				return err
			}
			result.RemoveActions = append(result.RemoveActions, path)
		}
		if p.peek().Kind == exprlexer.Comma {
			p.next()
			continue
		}
		return nil
	}
}

func (p *parser) parseSetAction() (SetAction, error) {
	path, err := p.parsePath()
	if err != nil {
		return SetAction{}, err
	}
	if p.peek().Kind != exprlexer.Equals {
		return SetAction{}, p.syntaxError()
	}
	p.next()
	value, err := p.parseSetValue()
	if err != nil {
		return SetAction{}, err
	}
	return SetAction{Path: path, Value: value}, nil
}

func (p *parser) parseSetValue() (SetValue, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.Kind == exprlexer.Plus || t.Kind == exprlexer.Minus {
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Left: left, Operator: t.Text, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (Operand, error) {
	t := p.peek()
	switch {
	case t.Kind == exprlexer.ValuePlaceholder:
		p.next()
		av, ok := p.params.ExpressionValues[t.Text]
		if !ok {
			return nil, ddberrors.Validation("Invalid UpdateExpression: An expression attribute value used in expression is not defined; attribute value: %s", t.Text)
		}
		return &ValueOperand{Value: av}, nil
	case t.Kind == exprlexer.Ident && p.tokens[p.pos+1].Kind == exprlexer.LeftParen:
		return p.parseFunctionOperand()
	case t.Kind == exprlexer.Ident || t.Kind == exprlexer.NamePlaceholder:
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return &PathOperand{Path: path}, nil
	default:
		return nil, p.syntaxError()
	}
}

func (p *parser) parseFunctionOperand() (Operand, error) {
	name := p.next()
	canonical := strings.ToLower(name.Text)
	if canonical != "if_not_exists" && canonical != "list_append" {
		return nil, ddberrors.Validation("Invalid UpdateExpression: Invalid function name; function: %s", name.Text)
	}
	p.next() // consume "("
	if canonical == "if_not_exists" {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != exprlexer.Comma {
			return nil, p.syntaxError()
		}
		p.next()
		def, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != exprlexer.RightParen {
			return nil, p.syntaxError()
		}
		p.next()
		return &IfNotExists{Path: path, Default: def}, nil
	}
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != exprlexer.Comma {
		return nil, p.syntaxError()
	}
	p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != exprlexer.RightParen {
		return nil, p.syntaxError()
	}
	p.next()
	return &ListAppend{Left: left, Right: right}, nil
}

// parsePathValueAction parses "path :value" for ADD and DELETE. Only a
// value placeholder is legal in value position; a bare identifier there is
// a syntax error naming the identifier.
func (p *parser) parsePathValueAction() (docpath.Path, types.AttributeValue, error) {
	path, err := p.parsePath()
	if err != nil {
		return docpath.Path{}, nil, err
	}
	t := p.peek()
	if t.Kind != exprlexer.ValuePlaceholder {
		return docpath.Path{}, nil, p.syntaxError()
	}
	p.next()
	av, ok := p.params.ExpressionValues[t.Text]
	if !ok {
		return docpath.Path{}, nil, ddberrors.Validation("Invalid UpdateExpression: An expression attribute value used in expression is not defined; attribute value: %s", t.Text)
	}
	return path, av, nil
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
		if isClauseKeyword(t.Text) {
			return "", p.syntaxError()
		}
		p.next()
		return t.Text, nil
	case exprlexer.NamePlaceholder:
		p.next()
		resolved, ok := p.params.ExpressionNames[t.Text]
		if !ok {
			return "", ddberrors.Validation("Invalid UpdateExpression: An expression attribute name used in the document path is not defined; attribute name: %s", t.Text)
		}
		return resolved, nil
	default:
		return "", p.syntaxError()
	}
}

func checkOverlaps(u *UpdateExpression) error {
	paths := u.Paths()
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			if paths[i].Overlaps(paths[j]) {
				return ddberrors.Validation("Invalid UpdateExpression: Two document paths overlap with each other; must remove or rewrite one of these paths; path one: [%s], path two: [%s]", paths[i], paths[j])
			}
		}
	}
	return nil
}
