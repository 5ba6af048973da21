package zeros

// Func is the callback every solver evaluates. ctx is handed through
// untouched on every call.
type Func[C any] func(x float64, ctx C) float64

// Status is the terminal classification of one solver invocation.
// The numeric values match the classic zeros codes.
type Status int

const (
	// Converged means the tolerance was met or an exact zero was hit.
	Converged Status = 0

	// InProgress is written at entry and replaced before the solver returns.
	InProgress Status = 1

	// SignError means f(xa) and f(xb) share a strict sign.
	SignError Status = -1

	// ConvergenceError means maxiter steps ran without meeting the tolerance.
	ConvergenceError Status = -2

	// ValueError means a function value made the update undefined
	// (NaN at the bracket ends, or a non-positive radicand in Ridder's step).
	ValueError Status = -3

	// DerivativeZero means the update would divide by zero:
	// f'(x) == 0 for Newton and Halley, f(x_n) == f(x_{n-1}) for Secant.
	DerivativeZero Status = -4

	// InvalidInput means the arguments were rejected before any iteration.
	InvalidInput Status = -5
)

// String returns the short flag describing s.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case InProgress:
		return "in progress"
	case SignError:
		return "sign error"
	case ConvergenceError:
		return "convergence error"
	case ValueError:
		return "value error"
	case DerivativeZero:
		return "derivative was zero"
	case InvalidInput:
		return "invalid input"
	default:
		return "unknown status"
	}
}

// Err returns the sentinel error for s, or nil when s is Converged.
func (s Status) Err() error {
	switch s {
	case Converged:
		return nil
	case SignError:
		return ErrSign
	case ConvergenceError:
		return ErrConvergence
	case ValueError:
		return ErrValue
	case DerivativeZero:
		return ErrDerivativeZero
	case InvalidInput:
		return ErrInvalidInput
	default:
		return ErrUnknownStatus
	}
}

// Stats is the diagnostics record of one solver invocation.
//
// Solvers reset it on entry. It must not be shared between concurrent calls.
type Stats struct {
	// FuncCalls counts every callback invocation, derivatives included.
	FuncCalls int `json:"funcalls"`

	// Iterations counts completed update steps.
	Iterations int `json:"iterations"`

	// Status is the terminal classification.
	Status Status `json:"error_num"`
}

// begin resets st for a new invocation. A nil st is replaced by a local
// record so solvers can write unconditionally.
func begin(st *Stats) *Stats {
	if st == nil {
		st = new(Stats)
	}
	*st = Stats{Status: InProgress}
	return st
}
