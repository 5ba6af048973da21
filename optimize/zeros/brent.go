package zeros

import "math"

// Brentq finds a root of f inside [xa, xb] with Brent's method using inverse
// quadratic interpolation.
//
// The solver keeps three points: xcur, the best estimate so far; xpre, the
// previous estimate; and xblk, the point that brackets the root with xcur.
// Each step proposes a higher-order move: a secant step when only two
// distinct points are known, otherwise inverse quadratic interpolation
// through all three. The move is accepted only if it points toward xblk, is
// less than half the step before last and stays well inside the bracket,
//
//	stry·sbis > 0  and  2|stry| < min(|spre|, 3|sbis| - δ)
//
// with sbis the bisection step and δ = (xtol + rtol·|xcur|)/2; otherwise the
// solver bisects. Steps shorter than δ are lengthened to δ so every
// iteration makes progress.
//
// Iteration stops when f(xcur) == 0 or the half-width of the bracket drops
// below δ. The step that detects convergence does not call f, so on
// convergence FuncCalls == Iterations + 1.
func Brentq[C any](xa, xb float64, f Func[C], ctx C, xtol, rtol float64, maxiter int, stats *Stats) float64 {
	return brent(xa, xb, f, ctx, xtol, rtol, maxiter, stats, quadraticStep)
}

// Brenth is Brentq with hyperbolic extrapolation in place of inverse
// quadratic interpolation. Safeguards, stopping rule and call accounting are
// identical.
func Brenth[C any](xa, xb float64, f Func[C], ctx C, xtol, rtol float64, maxiter int, stats *Stats) float64 {
	return brent(xa, xb, f, ctx, xtol, rtol, maxiter, stats, hyperbolicStep)
}

// extrapolator proposes a step from xcur given the three function values and
// the slopes of the chords xcur→xpre and xcur→xblk.
type extrapolator func(fcur, fpre, fblk, dpre, dblk float64) float64

func quadraticStep(fcur, fpre, fblk, dpre, dblk float64) float64 {
	return -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
}

func hyperbolicStep(fcur, fpre, fblk, dpre, dblk float64) float64 {
	return -fcur * (fblk - fpre) / (fblk*dpre - fpre*dblk)
}

func brent[C any](xa, xb float64, f Func[C], ctx C, xtol, rtol float64, maxiter int, stats *Stats, extrapolate extrapolator) float64 {
	st := begin(stats)
	if f == nil || !bracketInputOK(xa, xb, xtol, rtol, maxiter) {
		st.Status = InvalidInput
		return math.NaN()
	}
	xpre, xcur := xa, xb
	fpre, fcur, root, done := bracketStart(xpre, xcur, f, ctx, st)
	if done {
		return root
	}

	var xblk, fblk, spre, scur float64
	for st.Iterations < maxiter {
		st.Iterations++
		if opposite(fpre, fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + rtol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			st.Status = Converged
			return xcur
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// Only two distinct points: secant.
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = extrapolate(fcur, fpre, fblk, dpre, dblk)
			}
			// The move must head toward xblk: an outward step leaves the bracket.
			if stry*sbis > 0 && 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		switch {
		case math.Abs(scur) > delta:
			xcur += scur
		case sbis > 0:
			xcur += delta
		default:
			xcur -= delta
		}

		fcur = f(xcur, ctx)
		st.FuncCalls++
	}

	st.Status = ConvergenceError
	return xcur
}
