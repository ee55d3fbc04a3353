package solver

import (
	"errors"
	"fmt"
)

// Status classifies the outcome of a solve.
type Status uint8

const (
	StatusUnknown Status = iota
	// StatusOptimal indicates the iteration converged; the solution is valid.
	StatusOptimal
	// StatusIterationLimit indicates the iteration budget was exhausted
	// before convergence.
	StatusIterationLimit
	// StatusSingular indicates a singular Jacobian; the specification is
	// degenerate or inconsistent.
	StatusSingular
	// StatusDiverged indicates the line search could not reduce the
	// residual, or the iterate left the representable range.
	StatusDiverged
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusIterationLimit:
		return "iteration limit"
	case StatusSingular:
		return "singular"
	case StatusDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Result is the outcome of a solve. Only optimal termination is a valid
// solution; on any other status the variable values are the last iterate
// and carry no meaning.
type Result struct {
	Status     Status
	Iterations int
	Residual   float64 // infinity norm of the scaled residuals at the last iterate
}

// IsOptimal reports whether the solve terminated at a converged solution.
func (r Result) IsOptimal() bool { return r.Status == StatusOptimal }

// ErrNotOptimal is returned by Check for any non-optimal termination.
var ErrNotOptimal = errors.New("solver: termination was not optimal")

// Check returns an error unless the result is an optimal termination. The
// workflow treats a failed solve as hard failure: no retry, no fallback.
func Check(r Result) error {
	if r.IsOptimal() {
		return nil
	}
	return fmt.Errorf("%w: %s (residual %.3e after %d iterations)",
		ErrNotOptimal, r.Status, r.Residual, r.Iterations)
}
