package zeros

import "math"

// finite reports whether v is neither NaN nor ±Inf.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validTol accepts zero and positive finite tolerances.
func validTol(t float64) bool {
	return finite(t) && t >= 0
}

// openInputOK checks the arguments shared by Newton, Secant and Halley.
func openInputOK(p0, tol float64, maxiter int) bool {
	return finite(p0) && validTol(tol) && maxiter > 0
}

// bracketInputOK checks the arguments shared by the bracketing solvers.
// The bracket must be finite and strictly ordered.
func bracketInputOK(xa, xb, xtol, rtol float64, maxiter int) bool {
	return finite(xa) && finite(xb) && xa < xb &&
		validTol(xtol) && validTol(rtol) && maxiter > 0
}

// sameSign reports whether fa and fb have the same strict sign.
// Both are assumed non-zero and not NaN.
func sameSign(fa, fb float64) bool {
	return math.Signbit(fa) == math.Signbit(fb)
}

// bracketStart runs the entry protocol common to every bracketing solver:
// evaluate both ends, then classify. done is true when the caller must
// return root immediately with st already final.
func bracketStart[C any](xa, xb float64, f Func[C], ctx C, st *Stats) (fa, fb, root float64, done bool) {
	fa = f(xa, ctx)
	fb = f(xb, ctx)
	st.FuncCalls = 2

	switch {
	case math.IsNaN(fa) || math.IsNaN(fb):
		st.Status = ValueError
		return fa, fb, math.NaN(), true
	case fa == 0:
		st.Status = Converged
		return fa, fb, xa, true
	case fb == 0:
		st.Status = Converged
		return fa, fb, xb, true
	case sameSign(fa, fb):
		st.Status = SignError
		return fa, fb, math.NaN(), true
	}
	return fa, fb, 0, false
}
