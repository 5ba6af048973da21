package zeros

import "math"

// Newton finds a root of f starting from p0 with the Newton-Raphson update
//
//	p' = p - f(p)/f'(p)
//
// and stops once |p' - p| < tol.
//
// Outcomes written to stats:
//   - Converged: tolerance met, or f(p) == 0 exactly (p is returned as is).
//   - DerivativeZero: f'(p) == 0; p is returned.
//   - ValueError: the update produced NaN; the last finite p is returned.
//   - ConvergenceError: maxiter steps ran; the last p' is returned.
//   - InvalidInput: nil callback, non-finite p0, bad tol or maxiter <= 0.
//
// Each step costs two callback calls (f and f').
func Newton[C any](p0 float64, f, fprime Func[C], ctx C, tol float64, maxiter int, stats *Stats) float64 {
	return newton(p0, f, fprime, nil, false, ctx, tol, maxiter, stats)
}

// Halley finds a root of f starting from p0 using the first and second
// derivatives. The Newton step d = f/f' is corrected to
//
//	d / (1 - d·f''/(2f'))
//
// when the correction term has magnitude below one; otherwise (including a
// zero or non-finite denominator) the plain Newton step is taken.
//
// Statuses and stopping rule are those of Newton. Each step costs three
// callback calls.
func Halley[C any](p0 float64, f, fprime, fprime2 Func[C], ctx C, tol float64, maxiter int, stats *Stats) float64 {
	return newton(p0, f, fprime, fprime2, true, ctx, tol, maxiter, stats)
}

// newton is the shared Newton/Halley loop. fprime2 is consulted only when
// halley is set.
func newton[C any](p0 float64, f, fprime, fprime2 Func[C], halley bool, ctx C, tol float64, maxiter int, stats *Stats) float64 {
	st := begin(stats)
	if f == nil || fprime == nil || (halley && fprime2 == nil) || !openInputOK(p0, tol, maxiter) {
		st.Status = InvalidInput
		return math.NaN()
	}

	p := p0
	for st.Iterations < maxiter {
		fval := f(p, ctx)
		st.FuncCalls++
		if fval == 0 {
			st.Status = Converged
			return p
		}

		fder := fprime(p, ctx)
		st.FuncCalls++
		if fder == 0 {
			st.Status = DerivativeZero
			return p
		}

		step := fval / fder
		if halley {
			fder2 := fprime2(p, ctx)
			st.FuncCalls++
			// NaN fails the comparison too, so only a usable correction is applied.
			if adj := step * fder2 / fder / 2; math.Abs(adj) < 1 {
				step /= 1 - adj
			}
		}

		next := p - step
		st.Iterations++
		if math.IsNaN(next) {
			st.Status = ValueError
			return p
		}
		if math.Abs(next-p) < tol {
			st.Status = Converged
			return next
		}
		p = next
	}

	st.Status = ConvergenceError
	return p
}
