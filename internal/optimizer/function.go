package optimizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

var (
	// ErrExpression reports a function string govaluate cannot parse.
	ErrExpression = errors.New("optimizer: bad expression")

	// ErrNotNumber reports an expression that evaluated to something other than a number.
	ErrNotNumber = errors.New("optimizer: expression did not return a number")

	// ErrArity reports a math helper called with the wrong number of arguments.
	ErrArity = errors.New("optimizer: wrong number of arguments")
)

// Params are the named constants an expression may use besides x. They are
// the function context of every expression-backed solve.
type Params map[string]float64

// Func is a textual function of x.
type Func interface {
	Eval(x float64, params Params) (float64, error)
}

// evalFunc is a Func backed by govaluate. The parsed expression is shared;
// every Eval builds its own parameter map so one evalFunc may serve
// concurrent solves.
type evalFunc struct {
	src  string
	expr *govaluate.EvaluableExpression
}

var functions = map[string]govaluate.ExpressionFunction{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"exp":   unary(math.Exp),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"abs":   unary(math.Abs),
	"pow":   binary(math.Pow),
	"atan2": binary(math.Atan2),
}

func unary(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: want 1, got %d", ErrArity, len(args))
		}
		return fn(toFloat(args[0])), nil
	}
}

func binary(fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: want 2, got %d", ErrArity, len(args))
		}
		return fn(toFloat(args[0]), toFloat(args[1])), nil
	}
}

// NewEvalFunc parses expr, a function of x such as "x**3 - x - k".
// Besides x the expression may reference any name later passed in Params,
// plus the constants pi and e.
func NewEvalFunc(expr string) (Func, error) {
	src := normalizeDecimalComma(strings.TrimSpace(expr))
	if src == "" {
		return nil, fmt.Errorf("%w: empty", ErrExpression)
	}

	parsed, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrExpression, expr, err)
	}

	return &evalFunc{src: src, expr: parsed}, nil
}

// normalizeDecimalComma rewrites "0,5" as "0.5". Commas inside parentheses
// separate function arguments and are left alone.
func normalizeDecimalComma(expr string) string {
	var b strings.Builder
	b.Grow(len(expr))
	depth := 0
	for _, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				r = '.'
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (f *evalFunc) String() string { return f.src }

func (f *evalFunc) Eval(x float64, params Params) (float64, error) {
	vars := make(map[string]interface{}, len(params)+3)
	vars["pi"] = math.Pi
	vars["e"] = math.E
	for k, v := range params {
		vars[k] = v
	}
	vars["x"] = x

	v, err := f.expr.Evaluate(vars)
	if err != nil {
		return math.NaN(), err
	}

	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN(), fmt.Errorf("%w: %q", ErrNotNumber, t)
		}
		return parsed, nil
	default:
		return math.NaN(), fmt.Errorf("%w: %T", ErrNotNumber, v)
	}
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return math.NaN()
	}
}

// Set holds f and the optional derivatives of one problem.
type Set struct {
	F       Func
	FPrime  Func
	FPrime2 Func
}

// Compile parses the three expressions. Empty derivative strings leave the
// corresponding field nil.
func Compile(f, fprime, fprime2 string) (Set, error) {
	var (
		s   Set
		err error
	)
	if s.F, err = NewEvalFunc(f); err != nil {
		return Set{}, fmt.Errorf("f: %w", err)
	}
	if strings.TrimSpace(fprime) != "" {
		if s.FPrime, err = NewEvalFunc(fprime); err != nil {
			return Set{}, fmt.Errorf("fprime: %w", err)
		}
	}
	if strings.TrimSpace(fprime2) != "" {
		if s.FPrime2, err = NewEvalFunc(fprime2); err != nil {
			return Set{}, fmt.Errorf("fprime2: %w", err)
		}
	}
	return s, nil
}
