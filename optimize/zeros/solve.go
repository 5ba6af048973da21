package zeros

import (
	"fmt"
	"math"
	"strings"
)

// Method selects a solver for Solve. The zero value is MethodUnset, which
// Solve rejects, so a request that names no method never solves by accident.
type Method int

const (
	// MethodUnset is the zero Method.
	MethodUnset Method = iota

	// MethodBrentq is Brent's method with inverse quadratic interpolation.
	MethodBrentq
	// MethodBrenth is Brent's method with hyperbolic extrapolation.
	MethodBrenth
	// MethodRidder is Ridders' exponential-fit method.
	MethodRidder
	// MethodBisect halves the bracket every step.
	MethodBisect

	// MethodNewton needs f'.
	MethodNewton
	// MethodSecant derives the slope from the two latest points.
	MethodSecant
	// MethodHalley needs f' and f''.
	MethodHalley
)

var methodNames = [...]string{
	MethodUnset:  "",
	MethodBrentq: "brentq",
	MethodBrenth: "brenth",
	MethodRidder: "ridder",
	MethodBisect: "bisect",
	MethodNewton: "newton",
	MethodSecant: "secant",
	MethodHalley: "halley",
}

// Methods lists every supported method, bracketing ones first.
func Methods() []Method {
	return []Method{MethodBrentq, MethodBrenth, MethodRidder, MethodBisect, MethodNewton, MethodSecant, MethodHalley}
}

func (m Method) valid() bool {
	return m >= MethodBrentq && m <= MethodHalley
}

func (m Method) String() string {
	if m == MethodUnset {
		return "unset"
	}
	if !m.valid() {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod maps a case-insensitive name such as "brentq" to its Method.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range methodNames {
		if n != "" && n == name {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// MarshalText implements encoding.TextMarshaler. MethodUnset encodes as "".
func (m Method) MarshalText() ([]byte, error) {
	if m == MethodUnset {
		return []byte{}, nil
	}
	if !m.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Bracketing reports whether m needs a sign-changing interval [A, B].
func (m Method) Bracketing() bool {
	return m == MethodBrentq || m == MethodBrenth || m == MethodRidder || m == MethodBisect
}

// Derivatives is the number of derivative callbacks m requires.
func (m Method) Derivatives() int {
	switch m {
	case MethodNewton:
		return 1
	case MethodHalley:
		return 2
	default:
		return 0
	}
}

// Problem bundles the callbacks, the context and the starting data for Solve.
// Bracketing methods read A and B; the others read X0 (and X1 for Secant).
type Problem[C any] struct {
	F       Func[C]
	FPrime  Func[C]
	FPrime2 Func[C]
	Ctx     C

	X0 float64
	// X1 optionally fixes the second secant point. nil perturbs X0.
	X1 *float64

	A, B float64
}

// Defaults used when Options fields are left at their zero value via
// DefaultOptions.
const (
	machEps = 0x1p-52

	DefaultXTol           = 2e-12
	DefaultRTol           = 4 * machEps
	DefaultTol            = 1.48e-8
	DefaultBracketMaxIter = 100
	DefaultOpenMaxIter    = 50
)

// Options holds the tolerances and budget for Solve.
//
//   - XTol, RTol: absolute and relative tolerances for bracketing methods.
//     RTol may not be smaller than DefaultRTol.
//   - Tol: absolute step tolerance for Newton, Secant and Halley.
//   - MaxIter: iteration budget; 0 selects DefaultBracketMaxIter or
//     DefaultOpenMaxIter depending on the method.
type Options struct {
	XTol    float64 `json:"xtol" yaml:"xtol"`
	RTol    float64 `json:"rtol" yaml:"rtol"`
	Tol     float64 `json:"tol" yaml:"tol"`
	MaxIter int     `json:"maxiter" yaml:"maxiter"`
}

// DefaultOptions returns the classic tolerances with a method-dependent budget.
func DefaultOptions() Options {
	return Options{
		XTol: DefaultXTol,
		RTol: DefaultRTol,
		Tol:  DefaultTol,
	}
}

// Budget returns the iteration budget Solve will use for m.
func (o Options) Budget(m Method) int {
	if o.MaxIter > 0 {
		return o.MaxIter
	}
	if m.Bracketing() {
		return DefaultBracketMaxIter
	}
	return DefaultOpenMaxIter
}

func (o Options) validate(m Method) error {
	if m.Bracketing() {
		if !validTol(o.XTol) {
			return fmt.Errorf("%w: xtol %v", ErrBadTolerance, o.XTol)
		}
		if !validTol(o.RTol) || o.RTol < DefaultRTol {
			return fmt.Errorf("%w: rtol %v (minimum %v)", ErrBadTolerance, o.RTol, DefaultRTol)
		}
	} else if !validTol(o.Tol) {
		return fmt.Errorf("%w: tol %v", ErrBadTolerance, o.Tol)
	}
	if o.MaxIter < 0 {
		return fmt.Errorf("%w: maxiter %d", ErrInvalidInput, o.MaxIter)
	}
	return nil
}

func (p Problem[C]) validate(m Method) error {
	if p.F == nil {
		return fmt.Errorf("%w: f", ErrMissingCallback)
	}
	if m.Derivatives() >= 1 && p.FPrime == nil {
		return fmt.Errorf("%w: %s needs f'", ErrMissingCallback, m)
	}
	if m.Derivatives() >= 2 && p.FPrime2 == nil {
		return fmt.Errorf("%w: %s needs f''", ErrMissingCallback, m)
	}

	if m.Bracketing() {
		if !finite(p.A) || !finite(p.B) || !(p.A < p.B) {
			return fmt.Errorf("%w: bracket [%v, %v] must be finite with a < b", ErrInvalidInput, p.A, p.B)
		}
		return nil
	}
	if !finite(p.X0) {
		return fmt.Errorf("%w: x0 %v", ErrInvalidInput, p.X0)
	}
	if m == MethodSecant && p.X1 != nil && (!finite(*p.X1) || *p.X1 == p.X0) {
		return fmt.Errorf("%w: x1 %v must be finite and differ from x0", ErrInvalidInput, *p.X1)
	}
	return nil
}

// Validate runs the checks Solve makes before calling any callback: a known
// method, usable tolerances and budget, the callbacks m needs and a usable
// starting point or bracket. It never calls p's callbacks.
func Validate[C any](m Method, p Problem[C], opts Options) error {
	if m == MethodUnset {
		return fmt.Errorf("%w: method not set", ErrUnknownMethod)
	}
	if !m.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	if err := opts.validate(m); err != nil {
		return err
	}
	return p.validate(m)
}

// Result is the tagged outcome of Solve: the estimate plus its diagnostics.
type Result struct {
	Root float64 `json:"root"`
	Stats
	Method Method `json:"method"`
}

// Converged reports whether the solver met its tolerance.
func (r Result) Converged() bool {
	return r.Status == Converged
}

// Err returns nil on convergence, otherwise the status sentinel wrapped with
// the method, the counts and the last estimate.
func (r Result) Err() error {
	err := r.Status.Err()
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s stopped after %d iterations (%d calls), last estimate %v",
		err, r.Method, r.Iterations, r.FuncCalls, r.Root)
}

// Solve validates opts and p for method m, runs the solver and returns the
// outcome. The returned error is Result.Err, or a validation error from
// Validate (ErrUnknownMethod, ErrMissingCallback, ErrBadTolerance,
// ErrInvalidInput) in which case no callback was invoked.
//
// Solve is the error-returning boundary over the solver functions: a
// non-converged Result still carries the best estimate.
func Solve[C any](m Method, p Problem[C], opts Options) (Result, error) {
	res := Result{Root: math.NaN(), Method: m, Stats: Stats{Status: InvalidInput}}
	if err := Validate(m, p, opts); err != nil {
		return res, err
	}

	n := opts.Budget(m)
	st := &res.Stats
	switch m {
	case MethodBrentq:
		res.Root = Brentq(p.A, p.B, p.F, p.Ctx, opts.XTol, opts.RTol, n, st)
	case MethodBrenth:
		res.Root = Brenth(p.A, p.B, p.F, p.Ctx, opts.XTol, opts.RTol, n, st)
	case MethodRidder:
		res.Root = Ridder(p.A, p.B, p.F, p.Ctx, opts.XTol, opts.RTol, n, st)
	case MethodBisect:
		res.Root = Bisect(p.A, p.B, p.F, p.Ctx, opts.XTol, opts.RTol, n, st)
	case MethodNewton:
		res.Root = Newton(p.X0, p.F, p.FPrime, p.Ctx, opts.Tol, n, st)
	case MethodSecant:
		if p.X1 != nil {
			res.Root = SecantFrom(p.X0, *p.X1, p.F, p.Ctx, opts.Tol, n, st)
		} else {
			res.Root = Secant(p.X0, p.F, p.Ctx, opts.Tol, n, st)
		}
	case MethodHalley:
		res.Root = Halley(p.X0, p.F, p.FPrime, p.FPrime2, p.Ctx, opts.Tol, n, st)
	}
	return res, res.Err()
}
