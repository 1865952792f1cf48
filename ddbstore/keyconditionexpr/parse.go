package keyconditionexpr

import (
	"dynalocal/ddberrors"
	"dynalocal/ddbstore/exprlexer"
	"dynalocal/table"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyTerm is one parsed condition term before schema validation.
type keyTerm struct {
	name       string
	op         Comparator
	value      types.AttributeValue
	between    *KeyBetween
	beginsWith *KeyBeginsWith
}

type parser struct {
	tokens []exprlexer.Token
	pos    int
	params ParseParams
}

// Parse parses and validates a key condition expression against the key
// schema in params. Term order is free: the hash term may appear before or
// after the sort term.
func Parse(expr string, params ParseParams) (*KeyCondition, error) {
	tokens, err := exprlexer.Tokenize(expr)
	if err != nil {
		return nil, ddberrors.Validation("Invalid KeyConditionExpression: Syntax error; %v", err)
	}
	p := &parser{tokens: tokens, params: params}

	terms := []keyTerm{}
	for {
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		if p.peek().Keyword("AND") {
			p.next()
			continue
		}
		break
	}
	if p.peek().Kind != exprlexer.EOF {
		return nil, p.syntaxError()
	}
	if len(terms) > 2 {
		return nil, ddberrors.Validation("Conditions can be of length 1 or 2 only")
	}
	return p.assemble(terms)
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
	return ddberrors.Validation("Invalid KeyConditionExpression: Syntax error; token: %q, near: %q",
		text, exprlexer.Near(p.tokens, p.pos))
}

func (p *parser) parseTerm() (keyTerm, error) {
	// Optional parentheses around a single term.
	if p.peek().Kind == exprlexer.LeftParen {
		p.next()
		term, err := p.parseTerm()
		if err != nil {
			return keyTerm{}, err
		}
		if p.peek().Kind != exprlexer.RightParen {
			return keyTerm{}, p.syntaxError()
		}
		p.next()
		return term, nil
	}

	t := p.peek()
	if t.Kind == exprlexer.Ident && p.tokens[p.pos+1].Kind == exprlexer.LeftParen {
		return p.parseFunctionTerm()
	}

	name, err := p.parseKeyName()
	if err != nil {
		return keyTerm{}, err
	}
	op := p.peek()
	switch {
	case op.IsComparator():
		if op.Kind == exprlexer.NotEquals {
			return keyTerm{}, ddberrors.Validation("Invalid operator used in KeyConditionExpression: <>")
		}
		p.next()
		value, err := p.parseKeyValue()
		if err != nil {
			return keyTerm{}, err
		}
		return keyTerm{name: name, op: Comparator(op.Text), value: value}, nil
	case op.Keyword("BETWEEN"):
		p.next()
		lower, err := p.parseKeyValue()
		if err != nil {
			return keyTerm{}, err
		}
		if !p.peek().Keyword("AND") {
			return keyTerm{}, p.syntaxError()
		}
		p.next()
		upper, err := p.parseKeyValue()
		if err != nil {
			return keyTerm{}, err
		}
		return keyTerm{name: name, between: &KeyBetween{Lower: lower, Upper: upper}}, nil
	default:
		return keyTerm{}, p.syntaxError()
	}
}

func (p *parser) parseFunctionTerm() (keyTerm, error) {
	name := p.next()
	// Unlike reserved words, function names here are case-sensitive:
	// BegIns_WiTh is an unknown function and is reported verbatim.
	if name.Text != "begins_with" {
		return keyTerm{}, ddberrors.Validation("Invalid KeyConditionExpression: Invalid function name; function: %s", name.Text)
	}
	p.next() // consume "("
	keyName, err := p.parseKeyName()
	if err != nil {
		return keyTerm{}, err
	}
	if p.peek().Kind != exprlexer.Comma {
		return keyTerm{}, p.syntaxError()
	}
	p.next()
	prefix, err := p.parseKeyValue()
	if err != nil {
		return keyTerm{}, err
	}
	if p.peek().Kind != exprlexer.RightParen {
		return keyTerm{}, p.syntaxError()
	}
	p.next()
	return keyTerm{name: keyName, beginsWith: &KeyBeginsWith{Prefix: prefix}}, nil
}

func (p *parser) parseKeyName() (string, error) {
	t := p.peek()
	switch t.Kind {
	case exprlexer.Ident:
		p.next()
		return t.Text, nil
	case exprlexer.NamePlaceholder:
		p.next()
		resolved, ok := p.params.ExpressionNames[t.Text]
		if !ok {
			return "", ddberrors.Validation("Invalid KeyConditionExpression: An expression attribute name used in the document path is not defined; attribute name: %s", t.Text)
		}
		return resolved, nil
	default:
		return "", p.syntaxError()
	}
}

func (p *parser) parseKeyValue() (types.AttributeValue, error) {
	t := p.peek()
	if t.Kind != exprlexer.ValuePlaceholder {
		return nil, p.syntaxError()
	}
	p.next()
	av, ok := p.params.ExpressionValues[t.Text]
	if !ok {
		return nil, ddberrors.Validation("Invalid KeyConditionExpression: An expression attribute value used in expression is not defined; attribute value: %s", t.Text)
	}
	switch av.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		return av, nil
	default:
		return nil, ddberrors.Validation("One or more parameter values were invalid: Condition parameter type does not match schema type")
	}
}

// assemble validates the parsed terms against the key schema and produces
// the KeyCondition.
func (p *parser) assemble(terms []keyTerm) (*KeyCondition, error) {
	keys := p.params.IndexKeys
	cond := &KeyCondition{}
	for _, term := range terms {
		switch term.name {
		case keys.PartitionKey.Name:
			if cond.PartitionValue != nil {
				return nil, ddberrors.Validation("Query key condition not supported")
			}
			if term.op != Equal || term.between != nil || term.beginsWith != nil {
				return nil, ddberrors.Validation("Query key condition not supported")
			}
			if err := checkValueKind(term.value, keys.PartitionKey); err != nil {
				return nil, err
			}
			cond.PartitionValue = term.value
		case keys.SortKey.Name:
			if !keys.HasSortKey() || cond.SortCondition != nil {
				return nil, ddberrors.Validation("Query key condition not supported")
			}
			sort := &SortKeyCondition{}
			switch {
			case term.between != nil:
				if err := checkValueKind(term.between.Lower, keys.SortKey); err != nil {
					return nil, err
				}
				if err := checkValueKind(term.between.Upper, keys.SortKey); err != nil {
					return nil, err
				}
				sort.Between = term.between
			case term.beginsWith != nil:
				if err := checkValueKind(term.beginsWith.Prefix, keys.SortKey); err != nil {
					return nil, err
				}
				sort.BeginsWith = term.beginsWith
			default:
				if err := checkValueKind(term.value, keys.SortKey); err != nil {
					return nil, err
				}
				sort.Compare = &KeyComparison{Op: term.op, Value: term.value}
			}
			cond.SortCondition = sort
		default:
			return nil, ddberrors.Validation("The provided key element does not match the schema")
		}
	}
	if cond.PartitionValue == nil {
		return nil, ddberrors.Validation("Query condition missed key schema element: %s", keys.PartitionKey.Name)
	}
	return cond, nil
}

func checkValueKind(av types.AttributeValue, def table.KeyDef) error {
	var got table.KeyKind
	switch av.(type) {
	case *types.AttributeValueMemberS:
		got = table.KeyKindS
	case *types.AttributeValueMemberN:
		got = table.KeyKindN
	case *types.AttributeValueMemberB:
		got = table.KeyKindB
	}
	if got != def.Kind {
		return ddberrors.Validation("One or more parameter values were invalid: Condition parameter type does not match schema type")
	}
	return nil
}
