// Package arith evaluates the shell's arithmetic expressions: integer
// + - * / % with parentheses, where operands are literals or variables.
package arith

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDivideByZero is returned for division or modulo by zero.
var ErrDivideByZero = errors.New("division by zero")

// LookupFunc resolves a variable name to its value. The second return is
// false when the variable is undefined, which fails the evaluation.
type LookupFunc func(name string) (string, bool)

type parser struct {
	s      string
	pos    int
	lookup LookupFunc
}

// Eval evaluates expr. Undefined variables, malformed syntax, and division
// by zero produce errors rather than panics.
func Eval(expr string, lookup LookupFunc) (int64, error) {
	p := &parser{s: expr, lookup: lookup}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return 0, fmt.Errorf("unexpected character %q", p.s[p.pos])
	}
	return v, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (int64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

// term := factor (('*'|'/'|'%') factor)*
func (p *parser) term() (int64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return v, nil
		}
		p.pos++
		rhs, err := p.factor()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			v *= rhs
		default:
			if rhs == 0 {
				return 0, ErrDivideByZero
			}
			if op == '/' {
				v /= rhs
			} else {
				v %= rhs
			}
		}
	}
}

// factor := '(' expr ')' | number | variable
func (p *parser) factor() (int64, error) {
	p.skipSpace()
	switch {
	case p.peek() == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case isDigit(p.peek()) || (p.peek() == '-' && p.pos+1 < len(p.s) && isDigit(p.s[p.pos+1])):
		return p.number()
	default:
		return p.variable()
	}
}

func (p *parser) number() (int64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}
	return strconv.ParseInt(p.s[start:p.pos], 10, 64)
}

func (p *parser) variable() (int64, error) {
	start := p.pos
	for p.pos < len(p.s) && isNameChar(p.s[p.pos]) {
		p.pos++
	}
	name := p.s[start:p.pos]
	if name == "" {
		return 0, errors.New("expected number, variable, or parenthesis")
	}
	if p.lookup == nil {
		return 0, fmt.Errorf("undefined variable %q", name)
	}
	val, ok := p.lookup(name)
	if !ok {
		return 0, fmt.Errorf("undefined variable %q", name)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("variable %q is not a number", name)
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameChar(c byte) bool {
	return c == '_' || isDigit(c) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
