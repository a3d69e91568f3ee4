// Package formula evaluates the restricted arithmetic expressions used to
// derive catalog metrics from raw figures. The grammar admits numbers, named
// variables, + - * / and parentheses. Anything else is rejected at parse
// time, so untrusted catalog overlays cannot smuggle in behavior.
package formula

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// Sentinel errors. Parse failures mean the expression itself is bad;
// evaluation failures mean this particular input set cannot be computed.
var (
	ErrParse           = eris.New("formula: parse error")
	ErrUnknownVariable = eris.New("formula: unknown variable")
	ErrDivisionByZero  = eris.New("formula: division by zero")
)

// Expr is a parsed expression ready for repeated evaluation.
type Expr struct {
	root node
	vars []string
	src  string
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.src }

// Variables lists the distinct variable names the expression references, in
// first-appearance order.
func (e *Expr) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Eval computes the expression against the given inputs. Every referenced
// variable must be present.
func (e *Expr) Eval(inputs map[string]float64) (float64, error) {
	return e.root.eval(inputs)
}

// Evaluate parses and evaluates src in one call.
func Evaluate(src string, inputs map[string]float64) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return expr.Eval(inputs)
}

type node interface {
	eval(inputs map[string]float64) (float64, error)
}

type literal float64

func (l literal) eval(map[string]float64) (float64, error) {
	return float64(l), nil
}

type variable string

func (v variable) eval(inputs map[string]float64) (float64, error) {
	val, ok := inputs[string(v)]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownVariable, "%q", string(v))
	}
	return val, nil
}

type unary struct {
	op   rune
	expr node
}

func (u unary) eval(inputs map[string]float64) (float64, error) {
	v, err := u.expr.eval(inputs)
	if err != nil {
		return 0, err
	}
	if u.op == '-' {
		return -v, nil
	}
	return v, nil
}

type binary struct {
	op          rune
	left, right node
}

func (b binary) eval(inputs map[string]float64) (float64, error) {
	l, err := b.left.eval(inputs)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(inputs)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, eris.Wrapf(ErrDivisionByZero, "%s", b.describe())
		}
		return l / r, nil
	}
	return 0, eris.Wrapf(ErrParse, "operator %q", b.op)
}

func (b binary) describe() string {
	if v, ok := b.right.(variable); ok {
		return "denominator " + string(v)
	}
	return "zero denominator"
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	op   rune
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, op: c, pos: i})
			i++
		case unicode.IsDigit(c) || c == '.':
			start := i
			seenDot := false
			for i < len(src) {
				d := src[i]
				if d == '.' {
					if seenDot {
						break
					}
					seenDot = true
					i++
					continue
				}
				if d < '0' || d > '9' {
					break
				}
				i++
			}
			text := src[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, eris.Wrapf(ErrParse, "bad number %q at %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, eris.Wrapf(ErrParse, "unexpected character %q at %d", c, i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c)
}

type parser struct {
	toks []token
	pos  int
	vars []string
	seen map[string]bool
}

// Parse compiles src into an Expr.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, eris.Wrap(ErrParse, "empty expression")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, seen: make(map[string]bool)}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, eris.Wrapf(ErrParse, "unexpected trailing input at %d", tok.pos)
	}
	return &Expr{root: root, vars: p.vars, src: src}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// parseSum handles + and - at the lowest precedence.
func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.op != '+' && tok.op != '-') {
			return left, nil
		}
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binary{op: tok.op, left: left, right: right}
	}
}

// parseProduct handles * and /.
func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.op != '*' && tok.op != '/') {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: tok.op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.op == '+' || tok.op == '-') {
		p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{op: tok.op, expr: expr}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return literal(tok.num), nil
	case tokIdent:
		if !p.seen[tok.text] {
			p.seen[tok.text] = true
			p.vars = append(p.vars, tok.text)
		}
		return variable(tok.text), nil
	case tokLParen:
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, eris.Wrapf(ErrParse, "missing closing parenthesis at %d", closing.pos)
		}
		return inner, nil
	case tokEOF:
		return nil, eris.Wrap(ErrParse, "unexpected end of expression")
	default:
		return nil, eris.Wrapf(ErrParse, "unexpected token at %d", tok.pos)
	}
}
