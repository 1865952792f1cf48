package conditionexpr

import (
	"strconv"
	"strings"

	"dynalocal/ddberrors"
	"dynalocal/ddbstore/docpath"
	"dynalocal/ddbstore/exprlexer"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ParseParams carries the request-scoped placeholder maps and the label
// used in error messages ("ConditionExpression" or "FilterExpression").
type ParseParams struct {
	ExpressionNames  map[string]string
	ExpressionValues map[string]types.AttributeValue
	Label            string
}

func (p ParseParams) label() string {
	if p.Label == "" {
		return "ConditionExpression"
	}
	return p.Label
}

// booleanFunctions are the condition functions usable as a boolean term.
var booleanFunctions = map[string]int{
	"attribute_exists":     1,
	"attribute_not_exists": 1,
	"attribute_type":       2,
	"begins_with":          2,
	"contains":             2,
}

type parser struct {
	tokens []exprlexer.Token
	pos    int
	params ParseParams
}

// Parse parses a condition expression, resolving placeholders.
func Parse(expr string, params ParseParams) (Condition, error) {
	tokens, err := exprlexer.Tokenize(expr)
	if err != nil {
		return nil, ddberrors.Validation("Invalid %s: Syntax error; %v", params.label(), err)
	}
	p := &parser{tokens: tokens, params: params}
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != exprlexer.EOF {
		return nil, p.syntaxError()
	}
	return cond, nil
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
	return ddberrors.Validation("Invalid %s: Syntax error; token: %q, near: %q",
		p.params.label(), text, exprlexer.Near(p.tokens, p.pos))
}

func (p *parser) parseOr() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Keyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrCond{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().Keyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndCond{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Condition, error) {
	if p.peek().Keyword("NOT") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotCond{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Condition, error) {
	t := p.peek()
	if t.Kind == exprlexer.LeftParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != exprlexer.RightParen {
			return nil, p.syntaxError()
		}
		p.next()
		return inner, nil
	}
	// Function call used as a boolean term.
	if t.Kind == exprlexer.Ident && p.tokens[p.pos+1].Kind == exprlexer.LeftParen && !strings.EqualFold(t.Text, "size") {
		return p.parseFunction()
	}
	return p.parseComparisonTerm()
}

func (p *parser) parseFunction() (Condition, error) {
	name := p.next()
	canonical := strings.ToLower(name.Text)
	argc, ok := booleanFunctions[canonical]
	if !ok {
		return nil, ddberrors.Validation("Invalid %s: Invalid function name; function: %s", p.params.label(), name.Text)
	}
	p.next() // consume "("
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	fn := &FunctionCond{Name: canonical, Path: path}
	if argc == 2 {
		if p.peek().Kind != exprlexer.Comma {
			return nil, p.syntaxError()
		}
		p.next()
		arg, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		fn.Arg = arg
	}
	if p.peek().Kind != exprlexer.RightParen {
		return nil, p.syntaxError()
	}
	p.next()
	return fn, nil
}

func (p *parser) parseComparisonTerm() (Condition, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.IsComparator():
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: comparatorOf(t), Left: left, Right: right}, nil
	case t.Keyword("BETWEEN"):
		p.next()
		lower, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if !p.peek().Keyword("AND") {
			return nil, p.syntaxError()
		}
		p.next()
		upper, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Between{Target: left, Lower: lower, Upper: upper}, nil
	case t.Keyword("IN"):
		p.next()
		if p.peek().Kind != exprlexer.LeftParen {
			return nil, p.syntaxError()
		}
		p.next()
		var candidates []Operand
		for {
			op, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, op)
			if p.peek().Kind == exprlexer.Comma {
				p.next()
				continue
			}
			break
		}
		if p.peek().Kind != exprlexer.RightParen {
			return nil, p.syntaxError()
		}
		p.next()
		return &In{Target: left, Candidates: candidates}, nil
	default:
		return nil, p.syntaxError()
	}
}

func comparatorOf(t exprlexer.Token) Comparator {
	switch t.Kind {
	case exprlexer.Equals:
		return Equal
	case exprlexer.NotEquals:
		return NotEqual
	case exprlexer.LessThan:
		return LessThan
	case exprlexer.LessOrEqual:
		return LessOrEqual
	case exprlexer.GreaterThan:
		return GreaterThan
	default:
		return GreaterOrEqual
	}
}

func (p *parser) parseOperand() (Operand, error) {
	t := p.peek()
	switch {
	case t.Kind == exprlexer.ValuePlaceholder:
		p.next()
		av, ok := p.params.ExpressionValues[t.Text]
		if !ok {
			return nil, ddberrors.Validation("Invalid %s: An expression attribute value used in expression is not defined; attribute value: %s", p.params.label(), t.Text)
		}
		return &ValueOperand{Value: av}, nil
	case t.Kind == exprlexer.Ident && strings.EqualFold(t.Text, "size") && p.tokens[p.pos+1].Kind == exprlexer.LeftParen:
		p.next()
		p.next() // consume "("
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != exprlexer.RightParen {
			return nil, p.syntaxError()
		}
		p.next()
		return &SizeOperand{Path: path}, nil
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

// parsePath parses a document path: name(.name|[idx])*, with #placeholders
// allowed in name positions.
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
		resolved, ok := p.params.ExpressionNames[t.Text]
		if !ok {
			return "", ddberrors.Validation("Invalid %s: An expression attribute name used in the document path is not defined; attribute name: %s", p.params.label(), t.Text)
		}
		return resolved, nil
	default:
		return "", p.syntaxError()
	}
}
