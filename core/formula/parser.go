// Package formula - Recursive descent parser
//
// Precedence, lowest to highest:
//
//	ternary        cond ? a : b   (right-associative)
//	equality       === !== == !=
//	relational     <= >= < >
//	additive       + -
//	multiplicative * /
//	unary          -x
//	primary        literal, identifier, a.b.c, max(...)/min(...), ( expr )
package formula

import (
	"github.com/shopspring/decimal"
)

// maxDepth bounds nesting of parentheses, calls, conditionals and unary minus
const maxDepth = 256

type parser struct {
	toks  []token
	pos   int
	depth int
}

// Parse parses formula text into an AST
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &ParseError{Pos: 0, Msg: "empty formula"}
	}

	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokRParen {
			return nil, parseErr(tok, "unbalanced parentheses")
		}
		return nil, parseErr(tok, "unexpected token after expression")
	}
	return n, nil
}

// MustParse parses formula text and panics on error.
// Intended for formulas that are constants in code.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) peekOp(ops ...string) (token, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return tok, false
	}
	for _, op := range ops {
		if tok.text == op {
			return tok, true
		}
	}
	return tok, false
}

// enter descends one nesting level; callers must defer p.leave()
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return parseErr(p.peek(), "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseTernary() (Node, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}

	cond, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	q := p.peek()
	if q.kind != tokQuestion {
		return cond, nil
	}
	p.next()

	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	if tok := p.next(); tok.kind != tokColon {
		return nil, parseErr(tok, "expected ':' in conditional expression")
	}

	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	return &TernaryOp{Cond: cond, Then: then, Else: els, Offset: q.pos}, nil
}

// parseBinary parses a left-associative level of the grammar
func (p *parser) parseBinary(operand func() (Node, error), ops ...string) (Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peekOp(ops...)
		if !ok {
			return left, nil
		}
		p.next()

		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: tok.text, Left: left, Right: right, Offset: tok.pos}
	}
}

func (p *parser) parseEquality() (Node, error) {
	return p.parseBinary(p.parseRelational, "===", "!==", "==", "!=")
}

func (p *parser) parseRelational() (Node, error) {
	return p.parseBinary(p.parseAdditive, "<=", ">=", "<", ">")
}

func (p *parser) parseAdditive() (Node, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (Node, error) {
	return p.parseBinary(p.parseUnary, "*", "/")
}

func (p *parser) parseUnary() (Node, error) {
	if tok, ok := p.peekOp("-"); ok {
		p.next()
		defer p.leave()
		if err := p.enter(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "-", Operand: operand, Offset: tok.pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()

	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, parseErr(tok, "invalid number")
		}
		return &Literal{Value: Number(d), Offset: tok.pos}, nil

	case tokString:
		return &Literal{Value: String(tok.str), Offset: tok.pos}, nil

	case tokIdent:
		return p.parseIdentifier(tok)

	case tokLParen:
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			if closing.kind == tokEOF {
				return nil, parseErr(tok, "unbalanced parentheses")
			}
			return nil, parseErr(closing, "expected ')'")
		}
		return inner, nil

	case tokEOF:
		return nil, parseErr(tok, "missing operand")

	case tokRParen:
		return nil, parseErr(tok, "missing operand before ')'")

	default:
		return nil, parseErr(tok, "missing operand")
	}
}

func (p *parser) parseIdentifier(tok token) (Node, error) {
	switch tok.text {
	case "true":
		return &Literal{Value: Bool(true), Offset: tok.pos}, nil
	case "false":
		return &Literal{Value: Bool(false), Offset: tok.pos}, nil
	}

	if p.peek().kind == tokLParen {
		return p.parseCall(tok)
	}

	var node Node = &Identifier{Name: tok.text, Offset: tok.pos}
	if p.peek().kind != tokDot {
		return node, nil
	}

	var path []string
	for p.peek().kind == tokDot {
		p.next()
		seg := p.next()
		if seg.kind != tokIdent {
			return nil, parseErr(seg, "expected member name after '.'")
		}
		path = append(path, seg.text)
	}
	return &MemberAccess{Base: node, Path: path, Offset: tok.pos}, nil
}

func (p *parser) parseCall(name token) (Node, error) {
	if !IsBuiltin(name.text) {
		return nil, parseErr(name, "unknown function %q (only max and min are allowed)", name.text)
	}
	open := p.next()

	call := &Call{Name: name.text, Offset: name.pos}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}

	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		case tokEOF:
			return nil, parseErr(open, "unbalanced parentheses")
		default:
			return nil, parseErr(tok, "expected ',' or ')' in call to %s", name.text)
		}
	}
}
