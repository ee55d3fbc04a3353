// Package sweep solves families of independent scenarios concurrently.
//
// Each case builds and specifies its own state block, so every block keeps
// a single writer for its entire lifetime; only the scheduling is
// concurrent.
package sweep

import (
	"context"
	"fmt"
	"runtime"

	"github.com/osmosyslabs/osmosys/logger"
	"github.com/osmosyslabs/osmosys/model"
	"github.com/osmosyslabs/osmosys/solver"
	"golang.org/x/sync/errgroup"
)

// Case is one scenario of a parameter sweep. Build must return a fully
// specified block (zero degrees of freedom).
type Case struct {
	Name  string
	Build func() (*model.Block, error)
}

// Outcome is the solved state of one case. Values holds every block
// variable by name; they are meaningful only when Result is optimal.
type Outcome struct {
	Name   string
	Result solver.Result
	Values map[string]float64
}

// Run solves all cases and returns one outcome per case, in input order.
// Building or structurally ill-posed cases abort the sweep; non-optimal
// terminations do not, and are reported through the outcome's Result.
func Run(ctx context.Context, cases []Case, opts ...solver.Option) ([]Outcome, error) {
	log := logger.For("sweep")
	log.Info().Int("nbCases", len(cases)).Msg("running parameter sweep")

	outcomes := make([]Outcome, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, c := range cases {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := c.Build()
			if err != nil {
				return fmt.Errorf("case %q: build: %w", c.Name, err)
			}
			res, err := solver.Solve(b, opts...)
			if err != nil {
				return fmt.Errorf("case %q: %w", c.Name, err)
			}

			values := make(map[string]float64, b.NbVariables())
			for _, v := range b.Variables() {
				values[v.Name] = v.Value
			}
			outcomes[i] = Outcome{Name: c.Name, Result: res, Values: values}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
