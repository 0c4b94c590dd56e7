// Package formula evaluates definition conversion formulas.
//
// A formula is an arithmetic expression over a single free variable, the
// raw decoded value. Formulas are compiled once into a small AST and then
// evaluated per element. Only numeric literals, the variable, the
// operators + - * / % ** ^, parentheses, and a fixed set of functions and
// constants are accepted; nothing else is reachable.
//
// Normalization rules, applied while lexing:
//   - the variable is matched case-insensitively as x, and also as the
//     aliases e, a, y and z used by older definitions;
//   - the variable name followed by digits (X1000, x10) is the variable;
//   - a formula starting with an operator (+ - * / % ^) is implicitly
//     prefixed with the variable, so "*2**14" means "X*2**14" and "-40"
//     means "X-40". Write "0-40" or "(-40)" for a negative constant.
package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrSyntax reports an unparseable expression.
	ErrSyntax = errors.New("syntax error")
	// ErrNotAllowed reports use of an identifier outside the whitelist.
	ErrNotAllowed = errors.New("operation not allowed")
	// ErrDivisionByZero reports a division or modulo by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNonFinite reports a NaN or infinite result.
	ErrNonFinite = errors.New("non-finite result")
)

// Error is the FormulaError of the extraction engine.
type Error struct {
	Expr string
	Pos  int // byte offset in Expr, or -1 for evaluation errors
	Err  error
	Msg  string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "formula %q: %v", e.Expr, e.Err)
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if e.Pos >= 0 {
		fmt.Fprintf(&b, " (at offset %d)", e.Pos)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Formula is a compiled conversion formula. A Formula is immutable and
// safe for concurrent use.
type Formula struct {
	src  string
	root node
}

// Identity is the formula used when a definition declares none.
var Identity = &Formula{src: "", root: varNode{}}

// Compile parses expr. An empty expression compiles to Identity.
func Compile(expr string) (*Formula, error) {
	src := strings.TrimSpace(expr)
	if src == "" {
		return Identity, nil
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Formula{src: src, root: root}, nil
}

// String returns the source expression.
func (f *Formula) String() string {
	if f.src == "" {
		return "X"
	}
	return f.src
}

// Eval evaluates the formula with the variable bound to x.
func (f *Formula) Eval(x float64) (float64, error) {
	v, err := f.root.eval(x)
	if err != nil {
		return 0, &Error{Expr: f.src, Pos: -1, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{Expr: f.src, Pos: -1, Err: ErrNonFinite}
	}
	return v, nil
}

// Eval compiles expr and evaluates it against x.
func Eval(expr string, x float64) (float64, error) {
	f, err := Compile(expr)
	if err != nil {
		return 0, err
	}
	return f.Eval(x)
}
