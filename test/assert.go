// Package test provides helpers to exercise specification-solve scenarios
// against state blocks.
package test

import (
	"strings"
	"testing"

	"github.com/osmosyslabs/osmosys/model"
	"github.com/osmosyslabs/osmosys/solver"
	"github.com/stretchr/testify/require"
)

// Assert is a helper to test specification-solve scenarios
type Assert struct {
	t *testing.T
	*require.Assertions
}

// NewAssert returns an Assert helper embedding a testify/require object
// for convenience
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t, Assertions: require.New(t)}
}

// Run runs the test function fn as a subtest. The subtest is parametrized
// by the description strings descs.
func (a *Assert) Run(fn func(assert *Assert), descs ...string) {
	desc := strings.Join(descs, "/")
	a.t.Run(desc, func(t *testing.T) {
		assert := &Assert{t, require.New(t)}
		fn(assert)
	})
}

// Log logs using the test instance logger.
func (assert *Assert) Log(v ...interface{}) {
	assert.t.Log(v...)
}

// SolveSucceeded fails the test unless the block has zero degrees of
// freedom, the solve runs, and it terminates optimally. It returns the
// result for further inspection.
func (assert *Assert) SolveSucceeded(b *model.Block, opts ...solver.Option) solver.Result {
	assert.t.Helper()
	assert.Equal(0, b.DegreesOfFreedom(), "degrees of freedom must be zero before solving")
	res, err := solver.Solve(b, opts...)
	assert.NoError(err)
	assert.NoError(solver.Check(res))
	return res
}

// SolveFailed fails the test unless the solve runs and terminates with a
// non-optimal status.
func (assert *Assert) SolveFailed(b *model.Block, opts ...solver.Option) solver.Result {
	assert.t.Helper()
	res, err := solver.Solve(b, opts...)
	assert.NoError(err)
	assert.ErrorIs(solver.Check(res), solver.ErrNotOptimal)
	return res
}

// Fixed asserts the variable's fixed flag.
func (assert *Assert) Fixed(b *model.Block, name string, want bool) {
	assert.t.Helper()
	fixed, err := b.IsFixed(name)
	assert.NoError(err)
	assert.Equal(want, fixed, name)
}

// Value asserts the variable's value within a relative tolerance.
func (assert *Assert) Value(b *model.Block, name string, want, rtol float64) {
	assert.t.Helper()
	got, err := b.Value(name)
	assert.NoError(err)
	assert.InEpsilon(want, got, rtol, name)
}
