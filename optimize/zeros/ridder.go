package zeros

import "math"

// Ridder finds a root of f inside [xa, xb] with Ridders' method.
//
// Every step evaluates the midpoint xm, then fits an exponential through the
// bracket ends and the midpoint, giving the corrected point
//
//	xn = xm + (xm - xa)·sign(f(xa) - f(xb))·f(xm) / sqrt(f(xm)² - f(xa)·f(xb))
//
// clamped so it never leaves the bracket. The bracket is then rebuilt from
// whichever pair among xa, xb, xm, xn still disagrees in sign. Iteration stops
// when f(xn) == 0, f(xm) == 0, or the bracket is narrower than
// xtol + rtol·|xn|.
//
// Under a valid bracket the radicand is strictly positive. If it is not
// (NaN values, underflow) the step is undefined: ValueError is recorded and
// xm is returned.
//
// A full step costs two callback calls.
func Ridder[C any](xa, xb float64, f Func[C], ctx C, xtol, rtol float64, maxiter int, stats *Stats) float64 {
	st := begin(stats)
	if f == nil || !bracketInputOK(xa, xb, xtol, rtol, maxiter) {
		st.Status = InvalidInput
		return math.NaN()
	}
	tol := xtol + rtol*(math.Abs(xa)+math.Abs(xb))
	fa, fb, root, done := bracketStart(xa, xb, f, ctx, st)
	if done {
		return root
	}

	var xn float64
	for st.Iterations < maxiter {
		st.Iterations++
		dm := 0.5 * (xb - xa)
		xm := xa + dm
		fm := f(xm, ctx)
		st.FuncCalls++
		if fm == 0 {
			st.Status = Converged
			return xm
		}

		rad := fm*fm - fa*fb
		if !(rad > 0) {
			st.Status = ValueError
			return xm
		}
		dn := sign(fb-fa) * dm * fm / math.Sqrt(rad)
		// A tolerance wider than the bracket leaves no room to move: stay on xm.
		lim := math.Max(0, math.Abs(dm)-0.5*tol)
		xn = xm - sign(dn)*math.Min(math.Abs(dn), lim)
		fn := f(xn, ctx)
		st.FuncCalls++

		switch {
		case opposite(fn, fm):
			xa, fa, xb, fb = xn, fn, xm, fm
		case opposite(fn, fa):
			xb, fb = xn, fn
		default:
			xa, fa = xn, fn
		}

		tol = xtol + rtol*math.Abs(xn)
		if fn == 0 || math.Abs(xb-xa) < tol {
			st.Status = Converged
			return xn
		}
	}

	st.Status = ConvergenceError
	return xn
}

// sign is +1 for positive v and -1 otherwise.
func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}

// opposite reports whether a and b are both non-zero with different signs.
func opposite(a, b float64) bool {
	return a != 0 && b != 0 && math.Signbit(a) != math.Signbit(b)
}
