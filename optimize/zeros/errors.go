package zeros

import "errors"

// Sentinel errors. Solvers only record a Status; these are what Status.Err,
// Result.Err and Solve hand back, so callers can match with errors.Is.
var (
	// ErrSign reports a bracket whose ends do not straddle a root.
	ErrSign = errors.New("zeros: f(a) and f(b) must have different signs")

	// ErrConvergence reports an exhausted iteration budget.
	ErrConvergence = errors.New("zeros: failed to converge")

	// ErrValue reports a function value that made the update undefined.
	ErrValue = errors.New("zeros: invalid function value")

	// ErrDerivativeZero reports a division by a zero (or flat) derivative.
	ErrDerivativeZero = errors.New("zeros: derivative was zero")

	// ErrInvalidInput reports arguments rejected before iterating.
	ErrInvalidInput = errors.New("zeros: invalid input")

	// ErrUnknownStatus is returned by Status.Err for values outside the enum.
	ErrUnknownStatus = errors.New("zeros: unknown status")

	// ErrUnknownMethod reports a Method outside the supported set.
	ErrUnknownMethod = errors.New("zeros: unknown method")

	// ErrMissingCallback reports a Problem lacking f or a derivative the
	// method needs.
	ErrMissingCallback = errors.New("zeros: missing callback")

	// ErrBadTolerance reports negative, NaN or too small tolerances.
	ErrBadTolerance = errors.New("zeros: bad tolerance")
)
