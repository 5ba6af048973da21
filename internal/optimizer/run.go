package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/JPFrancoia/scipy/optimize/zeros"
)

// ErrStopped asks Run to abandon the solve. onIter returns it to stop early.
var ErrStopped = errors.New("optimizer: stopped by callback")

// Kind names the callback an evaluation went through.
type Kind string

const (
	KindF       Kind = "f"
	KindFPrime  Kind = "fprime"
	KindFPrime2 Kind = "fprime2"
)

// Iter is one callback evaluation seen during a solve.
type Iter struct {
	K    int     `json:"k"`
	Kind Kind    `json:"kind"`
	X    float64 `json:"x"`
	FX   float64 `json:"fx"`
}

// MarshalJSON writes non-finite values as null.
func (it Iter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		K    int      `json:"k"`
		Kind Kind     `json:"kind"`
		X    *float64 `json:"x"`
		FX   *float64 `json:"fx"`
	}{it.K, it.Kind, Finite(it.X), Finite(it.FX)})
}

// Finite returns &v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Request describes one expression-backed solve.
type Request struct {
	Method  zeros.Method  `json:"method" yaml:"method"`
	F       string        `json:"f" yaml:"f"`
	FPrime  string        `json:"fprime,omitempty" yaml:"fprime,omitempty"`
	FPrime2 string        `json:"fprime2,omitempty" yaml:"fprime2,omitempty"`
	Params  Params        `json:"params,omitempty" yaml:"params,omitempty"`
	X0      float64       `json:"x0" yaml:"x0"`
	X1      *float64      `json:"x1,omitempty" yaml:"x1,omitempty"`
	A       float64       `json:"a" yaml:"a"`
	B       float64       `json:"b" yaml:"b"`
	Options zeros.Options `json:"options" yaml:"options"`
}

// WithDefaults fills every zero tolerance in r.Options from def.
// MaxIter stays zero when def leaves it zero so the method default applies.
func (r Request) WithDefaults(def zeros.Options) Request {
	if r.Options.XTol == 0 {
		r.Options.XTol = def.XTol
	}
	if r.Options.RTol == 0 {
		r.Options.RTol = def.RTol
	}
	if r.Options.Tol == 0 {
		r.Options.Tol = def.Tol
	}
	if r.Options.MaxIter == 0 {
		r.Options.MaxIter = def.MaxIter
	}
	return r
}

// Outcome is the result of Run.
type Outcome struct {
	zeros.Result
	// Evals is the number of evaluations reported to onIter.
	Evals int
	// Last is the final reported evaluation.
	Last Iter
}

// trace is the function context of a traced solve. It is owned by a single
// Run and never shared between goroutines.
type trace struct {
	ctx    context.Context
	params Params
	onIter func(Iter) error

	k    int
	last Iter

	// stop latches the first reason to abandon the solve.
	stop error
	// evalErr keeps the first expression error.
	evalErr error
}

func (t *trace) eval(kind Kind, fn Func, x float64) float64 {
	if t.stop != nil {
		return math.NaN()
	}
	if err := t.ctx.Err(); err != nil {
		t.stop = err
		return math.NaN()
	}

	fx, err := fn.Eval(x, t.params)
	if err != nil {
		if t.evalErr == nil {
			t.evalErr = err
		}
		fx = math.NaN()
	}

	t.k++
	t.last = Iter{K: t.k, Kind: kind, X: x, FX: fx}
	if t.onIter != nil {
		if err := t.onIter(t.last); err != nil {
			t.stop = err
			return math.NaN()
		}
	}
	return fx
}

func traced(kind Kind, fn Func) zeros.Func[*trace] {
	if fn == nil {
		return nil
	}
	return func(x float64, t *trace) float64 { return t.eval(kind, fn, x) }
}

// Run compiles req, solves it and reports every evaluation to onIter.
//
// When onIter returns an error (normally ErrStopped) or ctx is cancelled, the
// remaining evaluations return NaN without being reported; the solver then
// ends within its iteration budget and Run returns that error. Expression
// errors are reported as ErrExpression. Otherwise the error is the solver's
// (see zeros.Result.Err).
func Run(ctx context.Context, req Request, onIter func(Iter) error) (Outcome, error) {
	set, err := Compile(req.F, req.FPrime, req.FPrime2)
	if err != nil {
		return Outcome{Result: zeros.Result{Root: math.NaN(), Method: req.Method, Stats: zeros.Stats{Status: zeros.InvalidInput}}}, err
	}
	return RunSet(ctx, req, set, onIter)
}

// RunSet is Run with already compiled callbacks; the expression fields of req are ignored.
func RunSet(ctx context.Context, req Request, set Set, onIter func(Iter) error) (Outcome, error) {
	t := &trace{ctx: ctx, params: req.Params, onIter: onIter}
	res, err := zeros.Solve(req.Method, problem(req, set, t), req.Options)
	out := Outcome{Result: res, Evals: t.k, Last: t.last}

	switch {
	case t.stop != nil:
		return out, t.stop
	case t.evalErr != nil:
		return out, fmt.Errorf("%w: %v", ErrExpression, t.evalErr)
	}
	return out, err
}

// Validate checks req against set without evaluating anything: the method
// must be set, its callbacks present, the tolerances usable and the starting
// points finite and ordered.
func Validate(req Request, set Set) error {
	return zeros.Validate(req.Method, problem(req, set, nil), req.Options)
}

func problem(req Request, set Set, t *trace) zeros.Problem[*trace] {
	return zeros.Problem[*trace]{
		F:       traced(KindF, set.F),
		FPrime:  traced(KindFPrime, set.FPrime),
		FPrime2: traced(KindFPrime2, set.FPrime2),
		Ctx:     t,
		X0:      req.X0,
		X1:      req.X1,
		A:       req.A,
		B:       req.B,
	}
}

// Sample evaluates f at n evenly spaced points of [a, b] for plotting.
// Failed or non-finite evaluations come back as NaN.
func Sample(f Func, params Params, a, b float64, n int) (xs, ys []float64) {
	if n < 2 || f == nil {
		return nil, nil
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	h := (b - a) / float64(n-1)
	for i := 0; i < n; i++ {
		x := a + float64(i)*h
		y, err := f.Eval(x, params)
		if err != nil || math.IsInf(y, 0) {
			y = math.NaN()
		}
		xs[i], ys[i] = x, y
	}
	return xs, ys
}
