package zeros

import "math"

// Bisect finds a root of f inside [xa, xb] by repeated halving.
//
// f(xa) and f(xb) must have opposite signs, or one of them must be zero.
// Each step evaluates the midpoint and keeps the half whose ends still
// disagree in sign. Iteration stops when f(xm) == 0 or the half-width falls
// below xtol + rtol·|xm|.
//
// Convergence is linear: roughly log2((xb-xa)/xtol) steps. Apart from the
// entry checks (InvalidInput, ValueError, SignError) the only failure is an
// exhausted budget, in which case the left end of the last bracket is
// returned with ConvergenceError.
//
// FuncCalls == Iterations + 2 on every path that enters the loop.
func Bisect[C any](xa, xb float64, f Func[C], ctx C, xtol, rtol float64, maxiter int, stats *Stats) float64 {
	st := begin(stats)
	if f == nil || !bracketInputOK(xa, xb, xtol, rtol, maxiter) {
		st.Status = InvalidInput
		return math.NaN()
	}
	fa, _, root, done := bracketStart(xa, xb, f, ctx, st)
	if done {
		return root
	}

	dm := xb - xa
	for st.Iterations < maxiter {
		st.Iterations++
		dm *= 0.5
		xm := xa + dm
		fm := f(xm, ctx)
		st.FuncCalls++
		if fm == 0 || math.Abs(dm) < xtol+rtol*math.Abs(xm) {
			st.Status = Converged
			return xm
		}
		// [xm, xm+dm] still straddles the root when fm agrees with fa.
		if sameSign(fm, fa) {
			xa, fa = xm, fm
		}
	}

	st.Status = ConvergenceError
	return xa
}
