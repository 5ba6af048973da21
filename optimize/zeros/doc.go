// Package zeros finds roots of scalar functions of one real variable.
//
// Seven iterative methods are provided, split by what they need from the
// caller:
//
//	open-domain (start from one point, no bracket):
//	  Newton: needs f and f'
//	  Secant: needs f only, derives the slope from two trailing values
//	  Halley: needs f, f' and f''
//
//	bracketing (start from [xa, xb] with f(xa), f(xb) of opposite sign):
//	  Bisect: halves the bracket every step
//	  Ridder: exponential correction of the midpoint
//	  Brentq: Brent's method with inverse quadratic interpolation
//	  Brenth: Brent's method with hyperbolic extrapolation
//
// Every solver evaluates the user function through one shape, Func[C], where
// C is an arbitrary caller-owned context passed unchanged to each call:
//
//	type params struct{ a, b float64 }
//	f := func(x float64, p params) float64 { return x*x*x - p.a*x - p.b }
//
//	var st zeros.Stats
//	root := zeros.Brentq(1, 2, f, params{1, 2}, 1e-12, 1e-12, 100, &st)
//	if st.Status != zeros.Converged {
//	    // handle st.Status.Err()
//	}
//
// Solvers never fail at the call boundary. They always return an estimate and
// write the outcome into an optional *Stats: how many times the callbacks ran,
// how many update steps completed, and a Status code. Callers that prefer Go
// errors go through Solve, which returns a Result and the matching sentinel
// error (ErrSign, ErrConvergence, ErrDerivativeZero, ...).
//
// Solvers hold no package state. Concurrent calls are safe as long as the
// callbacks and contexts they are given are.
package zeros
