package goquad

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Infix notation
// ============================================================
//
// Expressions are read with the usual precedence, loosest first:
//
//	+ -          left associative
//	* / %        left associative
//	unary - +
//	^ **         right associative, exponent may carry a sign
//
// so -x^2 is -(x^2), 2^3^2 is 2^9 and x^-1 is 1/x. The result is a fully
// parenthesized expression in govaluate syntax.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					for j < len(src) && isDigit(src[j]) {
						j++
					}
					i = j
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil || math.IsInf(v, 0) {
				return nil, fmt.Errorf("invalid number %q at %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
		case isLetter(c):
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.IndexByte("+-*/%^", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

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

func (p *parser) isOp(ops string) bool {
	t := p.peek()
	return t.kind == tokOp && strings.Contains(ops, t.text)
}

func unexpected(t token) error {
	if t.kind == tokEOF {
		return fmt.Errorf("unexpected end of expression")
	}
	return fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

// translate rewrites expr into govaluate syntax.
func translate(expr string) (string, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return "", err
	}
	p := &parser{toks: toks}
	out, err := p.additive()
	if err != nil {
		return "", err
	}
	if t := p.peek(); t.kind != tokEOF {
		return "", unexpected(t)
	}
	return out, nil
}

func (p *parser) additive() (string, error) {
	left, err := p.multiplicative()
	if err != nil {
		return "", err
	}
	for p.isOp("+-") {
		op := p.next().text
		right, err := p.multiplicative()
		if err != nil {
			return "", err
		}
		left = "(" + left + " " + op + " " + right + ")"
	}
	return left, nil
}

func (p *parser) multiplicative() (string, error) {
	left, err := p.unary()
	if err != nil {
		return "", err
	}
	for p.isOp("*/%") {
		op := p.next().text
		right, err := p.unary()
		if err != nil {
			return "", err
		}
		left = "(" + left + " " + op + " " + right + ")"
	}
	return left, nil
}

// unary negation is written as a subtraction from zero, which govaluate
// parses without relying on its prefix operator handling.
func (p *parser) unary() (string, error) {
	if p.isOp("+-") {
		op := p.next().text
		operand, err := p.unary()
		if err != nil {
			return "", err
		}
		if op == "+" {
			return operand, nil
		}
		return "(0 - " + operand + ")", nil
	}
	return p.power()
}

func (p *parser) power() (string, error) {
	base, err := p.primary()
	if err != nil {
		return "", err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return "", err
	}
	return "(" + base + " ** " + exp + ")", nil
}

func (p *parser) primary() (string, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return strconv.FormatFloat(t.num, 'f', -1, 64), nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return t.text, nil
		}
		p.next()
		var args []string
		if p.peek().kind != tokRParen {
			for {
				arg, err := p.additive()
				if err != nil {
					return "", err
				}
				args = append(args, arg)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if c := p.next(); c.kind != tokRParen {
			return "", unexpected(c)
		}
		return t.text + "(" + strings.Join(args, ", ") + ")", nil
	case tokLParen:
		inner, err := p.additive()
		if err != nil {
			return "", err
		}
		if c := p.next(); c.kind != tokRParen {
			return "", unexpected(c)
		}
		return inner, nil
	}
	return "", unexpected(t)
}
