// Package solver drives a damped Newton iteration over the free variables
// of a state block.
//
// The solver is the opaque numeric boundary of the workflow: callers hand
// it a square system (zero degrees of freedom), receive a Result with a
// termination status, and must treat anything but optimal termination as a
// failed scenario (see Check).
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/osmosyslabs/osmosys/expr"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotSquare is returned when the count of free variables and
	// relationships differ, i.e. the degrees of freedom are not zero.
	ErrNotSquare = errors.New("solver: free variables and relationships differ in count")

	// ErrUnconstrained is returned when a free variable appears in no
	// relationship; the Jacobian would be structurally singular.
	ErrUnconstrained = errors.New("solver: free variable appears in no relationship")
)

// System is the view of a state block the solver needs. model.Block
// implements it.
type System interface {
	NbVariables() int
	Name(i int) string
	At(i int) float64
	SetAt(i int, v float64)
	Fixed(i int) bool
	ScaleAt(i int) float64
	Residuals() []expr.Expr
}

// Solve runs a damped Newton iteration over the free variables of sys.
//
// Structurally ill-posed systems (non-zero degrees of freedom, free
// variables outside every relationship) are refused with an error and the
// system is left untouched. Numeric failures (singular Jacobian, stalled
// line search, exhausted iteration budget) terminate with a non-optimal
// Result; the free variables then hold the last iterate, which carries no
// meaning. On optimal termination the free variables hold the solution.
func Solve(sys System, opts ...Option) (Result, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return Result{}, fmt.Errorf("apply option: %w", err)
	}
	log := cfg.Logger

	residuals := sys.Residuals()
	nbVars := sys.NbVariables()

	var free []int
	for i := 0; i < nbVars; i++ {
		if !sys.Fixed(i) {
			free = append(free, i)
		}
	}
	n := len(free)
	if n != len(residuals) {
		return Result{}, fmt.Errorf("%w: %d free variables, %d relationships",
			ErrNotSquare, n, len(residuals))
	}
	if n == 0 {
		return Result{Status: StatusOptimal}, nil
	}

	incidence := bitset.New(uint(nbVars))
	for _, r := range residuals {
		r.Vars(incidence)
	}
	for _, i := range free {
		if !incidence.Test(uint(i)) {
			return Result{}, fmt.Errorf("%w: %s", ErrUnconstrained, sys.Name(i))
		}
	}

	log.Info().Int("nbFree", n).Int("nbRelationships", len(residuals)).Msg("solving nonlinear system")

	vals := make([]float64, nbVars)
	for i := range vals {
		vals[i] = sys.At(i)
	}
	writeBack := func() {
		for _, i := range free {
			sys.SetAt(i, vals[i])
		}
	}

	// analytic Jacobian, differentiated once
	jac := make([][]expr.Expr, n)
	for i, r := range residuals {
		jac[i] = make([]expr.Expr, n)
		for j, k := range free {
			jac[i][j] = r.Diff(k)
		}
	}

	// residual rows are normalized by their initial magnitude so the
	// convergence test is insensitive to the units of each relationship.
	// The denominator is capped at 1e6 so a huge starting residual cannot
	// make an arbitrarily large absolute residual look converged.
	rowScale := make([]float64, n)
	for i, r := range residuals {
		rowScale[i] = 1 / math.Min(math.Max(1, math.Abs(r.Eval(vals))), 1e6)
	}
	scaledNorm := func(v []float64) float64 {
		var norm float64
		for i, r := range residuals {
			if x := math.Abs(r.Eval(v)) * rowScale[i]; x > norm {
				norm = x
			}
		}
		return norm
	}

	f := mat.NewVecDense(n, nil)
	jm := mat.NewDense(n, n, nil)
	du := mat.NewVecDense(n, nil)
	trial := make([]float64, nbVars)

	norm := scaledNorm(vals)
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if norm <= cfg.Tolerance {
			writeBack()
			log.Debug().Int("iterations", iter).Float64("residual", norm).Msg("converged")
			return Result{Status: StatusOptimal, Iterations: iter, Residual: norm}, nil
		}

		// assemble -F and J in the scaled space u_j = x_j * scale_j
		for i, r := range residuals {
			f.SetVec(i, -r.Eval(vals)*rowScale[i])
			for j, k := range free {
				jm.Set(i, j, jac[i][j].Eval(vals)*rowScale[i]/sys.ScaleAt(k))
			}
		}

		var lu mat.LU
		lu.Factorize(jm)
		if err := lu.SolveVecTo(du, false, f); err != nil {
			writeBack()
			log.Debug().Int("iterations", iter).Msg("singular jacobian")
			return Result{Status: StatusSingular, Iterations: iter, Residual: norm}, nil
		}

		// backtracking line search on the scaled residual norm
		alpha := 1.0
		for {
			copy(trial, vals)
			for j, k := range free {
				trial[k] = vals[k] + alpha*du.AtVec(j)/sys.ScaleAt(k)
			}
			trialNorm := scaledNorm(trial)
			if !math.IsNaN(trialNorm) && !math.IsInf(trialNorm, 0) && trialNorm < norm {
				copy(vals, trial)
				norm = trialNorm
				break
			}
			alpha /= 2
			if alpha < cfg.MinStep {
				writeBack()
				log.Debug().Int("iterations", iter).Float64("residual", norm).Msg("line search stalled")
				return Result{Status: StatusDiverged, Iterations: iter, Residual: norm}, nil
			}
		}
		log.Debug().Int("iteration", iter).Float64("residual", norm).Float64("step", alpha).Msg("newton step")
	}

	writeBack()
	if norm <= cfg.Tolerance {
		return Result{Status: StatusOptimal, Iterations: cfg.MaxIterations, Residual: norm}, nil
	}
	return Result{Status: StatusIterationLimit, Iterations: cfg.MaxIterations, Residual: norm}, nil
}
