package formula

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokVar
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	pos  int
	text string
	num  float64
}

// variable names, lower-cased.
var varNames = map[string]bool{
	"x": true,
	"e": true,
	"a": true,
	"y": true,
	"z": true,
}

func isDigit(c byte) bool  { return '0' <= c && c <= '9' }
func isLetter(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_' }

func lex(src string) ([]token, error) {
	var toks []token
	i := 0

	// implicit leading variable: "-40" is X-40, like "*2" is X*2
	if strings.IndexByte("+-*/%^", src[0]) >= 0 {
		toks = append(toks, token{kind: tokVar, pos: 0, text: "X"})
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			// scientific notation only when the exponent is well formed,
			// so "2e" stays a number followed by the variable alias.
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
			if err != nil {
				return nil, &Error{Expr: src, Pos: start, Err: ErrSyntax, Msg: "invalid number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNumber, pos: start, text: text, num: v})

		case isLetter(c):
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
				i++
			}
			text := src[start:i]
			if isVariable(text) {
				toks = append(toks, token{kind: tokVar, pos: start, text: text})
				continue
			}
			toks = append(toks, token{kind: tokIdent, pos: start, text: strings.ToLower(text)})

		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokOp, pos: i, text: "**"})
			i += 2

		case strings.IndexByte("+-*/%^", c) >= 0:
			toks = append(toks, token{kind: tokOp, pos: i, text: string(c)})
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i, text: "("})
			i++

		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i, text: ")"})
			i++

		case c == ',':
			toks = append(toks, token{kind: tokComma, pos: i, text: ","})
			i++

		default:
			return nil, &Error{Expr: src, Pos: i, Err: ErrSyntax, Msg: "unexpected character " + strconv.QuoteRune(rune(c))}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

// isVariable reports whether an identifier names the free variable,
// including the X1000 style of named variables.
func isVariable(ident string) bool {
	name := strings.ToLower(ident)
	if varNames[name] {
		return true
	}
	if len(name) < 2 || !varNames[name[:1]] {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isDigit(name[i]) {
			return false
		}
	}
	return true
}
