// Package formula evaluates restricted arithmetic expressions over named
// variables. The grammar is limited to numeric literals, identifiers and
// + - * / ( ); user-supplied text is parsed, never executed.
package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Error reports a rejected token, an unknown variable, or an evaluation
// failure such as division by zero.
type Error struct {
	Formula string
	Detail  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Detail)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

// Expr is a parsed expression ready for repeated evaluation.
type Expr struct {
	src  string
	root node
	vars []string
}

type node interface {
	eval(src string, vars map[string]float64) (float64, error)
}

type numberNode float64

func (n numberNode) eval(string, map[string]float64) (float64, error) {
	return float64(n), nil
}

type varNode string

func (n varNode) eval(src string, vars map[string]float64) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, &Error{Formula: src, Detail: fmt.Sprintf("unknown variable %q", string(n))}
	}
	return v, nil
}

type unaryNode struct {
	op    tokenKind
	child node
}

func (n *unaryNode) eval(src string, vars map[string]float64) (float64, error) {
	v, err := n.child.eval(src, vars)
	if err != nil {
		return 0, err
	}
	if n.op == tokMinus {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

func (n *binaryNode) eval(src string, vars map[string]float64) (float64, error) {
	l, err := n.left.eval(src, vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(src, vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	default:
		if r == 0 {
			return 0, &Error{Formula: src, Detail: "division by zero"}
		}
		return l / r, nil
	}
}

// Parse compiles src into an Expr, rejecting any token outside the grammar.
func Parse(src string) (*Expr, error) {
	tokens, err := scan(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, &Error{Formula: src, Detail: fmt.Sprintf("unexpected token %q", p.peek().text)}
	}

	seen := map[string]bool{}
	var vars []string
	collectVars(root, func(name string) {
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	})

	return &Expr{src: src, root: root, vars: vars}, nil
}

// Variables lists the distinct identifiers the expression references, in
// first-appearance order.
func (e *Expr) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Eval evaluates the expression against the supplied variable bindings.
func (e *Expr) Eval(vars map[string]float64) (float64, error) {
	return e.root.eval(e.src, vars)
}

// Eval is the one-shot parse-and-evaluate convenience.
func Eval(src string, vars map[string]float64) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return expr.Eval(vars)
}

func collectVars(n node, visit func(string)) {
	switch v := n.(type) {
	case varNode:
		visit(string(v))
	case *unaryNode:
		collectVars(v.child, visit)
	case *binaryNode:
		collectVars(v.left, visit)
		collectVars(v.right, visit)
	}
}

func scan(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokPlus, text: "+"})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-"})
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokStar, text: "*"})
			i++
		case c == '/':
			tokens = append(tokens, token{kind: tokSlash, text: "/"})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &Error{Formula: src, Detail: fmt.Sprintf("invalid number %q", text)}
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: v})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(src) && (isIdentChar(src[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i]})
		default:
			return nil, &Error{Formula: src, Detail: fmt.Sprintf("disallowed token %q", string(c))}
		}
	}
	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

func isIdentChar(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// parseExpr := term (('+' | '-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokPlus && op != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

// parseTerm := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokStar && op != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

// parseUnary := ('-' | '+')? primary
func (p *parser) parseUnary() (node, error) {
	if k := p.peek().kind; k == tokMinus || k == tokPlus {
		op := p.next().kind
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, child: child}, nil
	}
	return p.parsePrimary()
}

// parsePrimary := number | ident | '(' expr ')'
func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode(t.value), nil
	case tokIdent:
		return varNode(t.text), nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, &Error{Formula: p.src, Detail: "missing closing parenthesis"}
		}
		return inner, nil
	case tokEOF:
		return nil, &Error{Formula: p.src, Detail: "unexpected end of formula"}
	default:
		return nil, &Error{Formula: p.src, Detail: fmt.Sprintf("unexpected token %q", t.text)}
	}
}

// CheckVariables verifies every referenced identifier is in allowed.
func (e *Expr) CheckVariables(allowed map[string]bool) error {
	var unknown []string
	for _, v := range e.vars {
		if !allowed[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) > 0 {
		return &Error{Formula: e.src, Detail: fmt.Sprintf("unknown variables: %s", strings.Join(unknown, ", "))}
	}
	return nil
}
