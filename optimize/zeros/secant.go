package zeros

import "math"

// secantEps perturbs p0 to obtain the second secant point.
const secantEps = 1e-4

// Secant finds a root of f starting from p0 without derivatives. The second
// point is p0·(1+1e-4) pushed a further 1e-4 away from zero, which keeps it
// distinct from p0 even when p0 == 0.
//
// See SecantFrom for the update rule and statuses.
func Secant[C any](p0 float64, f Func[C], ctx C, tol float64, maxiter int, stats *Stats) float64 {
	p1 := p0 * (1 + secantEps)
	if p1 >= 0 {
		p1 += secantEps
	} else {
		p1 -= secantEps
	}
	return SecantFrom(p0, p1, f, ctx, tol, maxiter, stats)
}

// SecantFrom runs the secant method from two caller-chosen points.
//
// The slope of f is taken from the two most recent points. The update is
// written in ratio form, dividing by the larger of the two function values,
// which loses less precision than the textbook p1 - q1·(p1-p0)/(q1-q0).
// Iteration stops once successive estimates differ by less than tol.
//
// Outcomes written to stats:
//   - Converged: tolerance met, or an evaluated point is an exact zero.
//   - DerivativeZero: the two trailing function values are equal; the
//     midpoint of the two points is returned.
//   - ValueError: the update produced NaN; the current point is returned.
//   - ConvergenceError: maxiter steps ran; the last estimate is returned.
//   - InvalidInput: nil f, non-finite or equal points, bad tol, maxiter <= 0.
//
// Two calls are spent up front, then one per step.
func SecantFrom[C any](p0, p1 float64, f Func[C], ctx C, tol float64, maxiter int, stats *Stats) float64 {
	st := begin(stats)
	if f == nil || !openInputOK(p0, tol, maxiter) || !finite(p1) || p0 == p1 {
		st.Status = InvalidInput
		return math.NaN()
	}

	q0 := f(p0, ctx)
	q1 := f(p1, ctx)
	st.FuncCalls = 2
	switch {
	case q0 == 0:
		st.Status = Converged
		return p0
	case q1 == 0:
		st.Status = Converged
		return p1
	}
	if math.Abs(q1) < math.Abs(q0) {
		p0, p1, q0, q1 = p1, p0, q1, q0
	}

	for st.Iterations < maxiter {
		if q1 == q0 {
			st.Status = DerivativeZero
			return (p1 + p0) / 2
		}

		var p float64
		if math.Abs(q1) > math.Abs(q0) {
			p = (-q0/q1*p1 + p0) / (1 - q0/q1)
		} else {
			p = (-q1/q0*p0 + p1) / (1 - q1/q0)
		}
		st.Iterations++
		if math.IsNaN(p) {
			st.Status = ValueError
			return p1
		}
		if math.Abs(p-p1) < tol {
			st.Status = Converged
			return p
		}

		p0, q0 = p1, q1
		p1 = p
		q1 = f(p1, ctx)
		st.FuncCalls++
		if q1 == 0 {
			st.Status = Converged
			return p1
		}
	}

	st.Status = ConvergenceError
	return p1
}
