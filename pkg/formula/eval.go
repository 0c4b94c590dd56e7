package formula

import "math"

type node interface {
	eval(x float64) (float64, error)
}

type numberNode float64

func (n numberNode) eval(float64) (float64, error) { return float64(n), nil }

type varNode struct{}

func (varNode) eval(x float64) (float64, error) { return x, nil }

type negNode struct{ x node }

func (n negNode) eval(x float64) (float64, error) {
	v, err := n.x.eval(x)
	return -v, err
}

type binaryNode struct {
	op   string
	l, r node
}

func (n binaryNode) eval(x float64) (float64, error) {
	l, err := n.l.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(x)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		// floored modulo: the result takes the sign of the divisor.
		m := math.Mod(l, r)
		if m != 0 && (m < 0) != (r < 0) {
			m += r
		}
		return m, nil
	case "**":
		if l == 0 && r < 0 {
			return 0, ErrDivisionByZero
		}
		return math.Pow(l, r), nil
	}
	return 0, ErrNotAllowed
}

type callNode struct {
	name string
	fn   func(args []float64) (float64, error)
	args []node
}

func (n callNode) eval(x float64) (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(x)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return n.fn(args)
}

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []float64) (float64, error)
}

func unary(f func(float64) float64) function {
	return function{minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		return f(a[0]), nil
	}}
}

func binary(f func(float64, float64) float64) function {
	return function{minArgs: 2, maxArgs: 2, call: func(a []float64) (float64, error) {
		return f(a[0], a[1]), nil
	}}
}

func fold(f func(float64, float64) float64) function {
	return function{minArgs: 1, maxArgs: -1, call: func(a []float64) (float64, error) {
		v := a[0]
		for _, w := range a[1:] {
			v = f(v, w)
		}
		return v, nil
	}}
}

// functions is the complete set of callable names.
var functions = map[string]function{
	"abs":   unary(math.Abs),
	"sqrt":  unary(math.Sqrt),
	"exp":   unary(math.Exp),
	"log":   unary(math.Log),
	"ln":    unary(math.Log),
	"log10": unary(math.Log10),
	"log2":  unary(math.Log2),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"trunc": unary(math.Trunc),
	"int":   unary(math.Trunc),
	"round": {minArgs: 1, maxArgs: 2, call: round},
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"pow":   binary(math.Pow),
	"atan2": binary(math.Atan2),
	"hypot": binary(math.Hypot),
	"min":   fold(math.Min),
	"max":   fold(math.Max),
}

// constants is the complete set of named constants. "e" is not one of
// them: definitions use it as an alias of the variable.
var constants = map[string]float64{
	"pi":  math.Pi,
	"tau": 2 * math.Pi,
}

// round rounds half away from zero, optionally to a number of decimal places.
func round(a []float64) (float64, error) {
	if len(a) == 1 {
		return math.Round(a[0]), nil
	}
	scale := math.Pow(10, math.Trunc(a[1]))
	return math.Round(a[0]*scale) / scale, nil
}
