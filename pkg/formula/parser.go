package formula

import "fmt"

// Grammar, loosest binding first:
//
//	expr    := term  (('+' | '-') term)*
//	term    := unary (('*' | '/' | '%') unary)*
//	unary   := ('+' | '-') unary | power
//	power   := primary (('**' | '^') unary)?
//	primary := number | variable | constant | call | '(' expr ')'
//	call    := ident '(' [expr (',' expr)*] ')'
//
// Exponentiation is right-associative and binds tighter than a leading
// minus, so -2**2 is -4.
type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, err error, format string, args ...interface{}) error {
	return &Error{Expr: p.src, Pos: tok.pos, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (node, error) {
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, ErrSyntax, "unexpected %q", tok.text)
	}
	return n, nil
}

func (p *parser) isOp(ops ...string) bool {
	tok := p.peek()
	if tok.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOp("+", "-") {
		op := p.next().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			return x, nil
		}
		return negNode{x: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**", "^") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "**", l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numberNode(tok.num), nil

	case tokVar:
		return varNode{}, nil

	case tokLParen:
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, ErrSyntax, "missing closing parenthesis")
		}
		return n, nil

	case tokIdent:
		if v, ok := constants[tok.text]; ok {
			return numberNode(v), nil
		}
		fn, ok := functions[tok.text]
		if !ok {
			return nil, p.errorf(tok, ErrNotAllowed, "unknown identifier %q", tok.text)
		}
		if open := p.next(); open.kind != tokLParen {
			return nil, p.errorf(open, ErrSyntax, "expected '(' after %q", tok.text)
		}
		var args []node
		if p.peek().kind != tokRParen {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, ErrSyntax, "missing closing parenthesis in call to %q", tok.text)
		}
		if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
			return nil, p.errorf(tok, ErrSyntax, "wrong number of arguments to %q: %d", tok.text, len(args))
		}
		return callNode{name: tok.text, fn: fn.call, args: args}, nil

	case tokEOF:
		return nil, p.errorf(tok, ErrSyntax, "unexpected end of expression")

	default:
		return nil, p.errorf(tok, ErrSyntax, "unexpected %q", tok.text)
	}
}
