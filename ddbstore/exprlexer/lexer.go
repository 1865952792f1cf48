// Package exprlexer tokenizes the DynamoDB expression languages
// (KeyConditionExpression, ConditionExpression / FilterExpression,
// UpdateExpression, ProjectionExpression). Keywords and function names are
// matched case-insensitively by the parsers; the lexer itself only
// classifies shapes and keeps the original text so error messages can
// quote tokens verbatim.
package exprlexer

import (
	"fmt"
	"strings"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	NamePlaceholder  // #name
	ValuePlaceholder // :value
	Number           // bare digits, used for list indexes
	Equals           // =
	NotEquals        // <>
	LessThan         // <
	LessOrEqual      // <=
	GreaterThan      // >
	GreaterOrEqual   // >=
	LeftParen
	RightParen
	LeftBracket
	RightBracket
	Comma
	Dot
	Plus
	Minus
)

// Token is a lexed token with its original text.
type Token struct {
	Kind Kind
	Text string
}

// IsComparator reports whether the token is one of the six comparison
// operators.
func (t Token) IsComparator() bool {
	switch t.Kind {
	case Equals, NotEquals, LessThan, LessOrEqual, GreaterThan, GreaterOrEqual:
		return true
	}
	return false
}

// Keyword reports whether the token is an identifier matching the given
// keyword, ignoring case.
func (t Token) Keyword(kw string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, kw)
}

// Tokenize splits an expression into tokens. The returned slice always ends
// with an EOF token.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '=':
			tokens = append(tokens, Token{Equals, "="})
			i++
		case c == '<':
			if i+1 < len(input) && input[i+1] == '>' {
				tokens = append(tokens, Token{NotEquals, "<>"})
				i += 2
			} else if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{LessOrEqual, "<="})
				i += 2
			} else {
				tokens = append(tokens, Token{LessThan, "<"})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, Token{GreaterOrEqual, ">="})
				i += 2
			} else {
				tokens = append(tokens, Token{GreaterThan, ">"})
				i++
			}
		case c == '(':
			tokens = append(tokens, Token{LeftParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, Token{RightParen, ")"})
			i++
		case c == '[':
			tokens = append(tokens, Token{LeftBracket, "["})
			i++
		case c == ']':
			tokens = append(tokens, Token{RightBracket, "]"})
			i++
		case c == ',':
			tokens = append(tokens, Token{Comma, ","})
			i++
		case c == '.':
			tokens = append(tokens, Token{Dot, "."})
			i++
		case c == '+':
			tokens = append(tokens, Token{Plus, "+"})
			i++
		case c == '-':
			tokens = append(tokens, Token{Minus, "-"})
			i++
		case c == '#' || c == ':':
			start := i
			i++
			for i < len(input) && isIdentChar(input[i]) {
				i++
			}
			if i == start+1 {
				return nil, fmt.Errorf("invalid token %q at position %d", string(c), start)
			}
			kind := NamePlaceholder
			if c == ':' {
				kind = ValuePlaceholder
			}
			tokens = append(tokens, Token{kind, input[start:i]})
		case isDigit(c):
			start := i
			for i < len(input) && isDigit(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Number, input[start:i]})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentChar(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Ident, input[start:i]})
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", string(c), i)
		}
	}
	return append(tokens, Token{EOF, ""}), nil
}

// Near renders the neighborhood of tokens[i] (previous, offending and next
// token text) for syntax error messages.
func Near(tokens []Token, i int) string {
	var parts []string
	for j := i - 1; j <= i+1; j++ {
		if j < 0 || j >= len(tokens) {
			continue
		}
		if tokens[j].Kind == EOF {
			continue
		}
		parts = append(parts, tokens[j].Text)
	}
	return strings.Join(parts, " ")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
