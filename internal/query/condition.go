package query

import (
	"fmt"
	"strings"
)

const (
	OpEqual    = "=="
	OpNotEqual = "!="
	OpAnd      = "and"
	OpOr       = "or"
)

// Expr is a parsed filter condition.
type Expr interface {
	expr()
}

// Comparison is Field Op 'Value'.
type Comparison struct {
	Field string
	Op    string
	Value string
}

// Logical joins two or more operands with the same operator.
type Logical struct {
	Op       string
	Operands []Expr
}

func (Comparison) expr() {}
func (Logical) expr()    {}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// ParseQueryString parses a {{querystring}} value. The leading "AND" that
// joins it to the surrounding query is optional; an empty string yields nil.
func ParseQueryString(s string) (Expr, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "and ") {
		trimmed = trimmed[4:]
	}
	if strings.TrimSpace(trimmed) == "" {
		return nil, nil
	}
	return ParseCondition(trimmed)
}

// ParseCondition parses ident=='lit' comparisons joined by and/or with
// parentheses. "and" binds tighter than "or".
func ParseCondition(s string) (Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, t.text, t.pos)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	return p.parseJoined(tokOr, OpOr, p.parseAnd)
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseJoined(tokAnd, OpAnd, p.parseUnary)
}

func (p *parser) parseJoined(kind tokenKind, op string, operand func() (Expr, error)) (Expr, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().kind == kind {
		p.next()
		e, err := operand()
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return Logical{Op: op, Operands: operands}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')' at offset %d", ErrSyntax, closing.pos)
		}
		return e, nil
	case tokIdent:
		opTok := p.next()
		var op string
		switch opTok.kind {
		case tokEq:
			op = OpEqual
		case tokNeq:
			op = OpNotEqual
		default:
			return nil, fmt.Errorf("%w: expected == or != after %q", ErrSyntax, t.text)
		}
		lit := p.next()
		if lit.kind != tokString {
			return nil, fmt.Errorf("%w: expected quoted literal at offset %d", ErrSyntax, lit.pos)
		}
		return Comparison{Field: t.text, Op: op, Value: lit.text}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, t.text, t.pos)
	}
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '=' || c == '!':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, fmt.Errorf("%w: bad operator at offset %d", ErrSyntax, i)
			}
			kind := tokEq
			if c == '!' {
				kind = tokNeq
			}
			toks = append(toks, token{kind: kind, text: input[i : i+2], pos: i})
			i += 2
		case c == '\'' || c == '"':
			start := i
			var sb strings.Builder
			closed := false
			i++
			for i < len(input) {
				ch := input[i]
				if ch == '\\' && i+1 < len(input) {
					sb.WriteByte(input[i+1])
					i += 2
					continue
				}
				i++
				if ch == c {
					closed = true
					break
				}
				sb.WriteByte(ch)
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated literal at offset %d", ErrSyntax, start)
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			kind := tokIdent
			switch strings.ToLower(word) {
			case OpAnd:
				kind = tokAnd
			case OpOr:
				kind = tokOr
			}
			toks = append(toks, token{kind: kind, text: word, pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrSyntax, c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}
