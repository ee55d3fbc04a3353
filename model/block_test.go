package model

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/osmosyslabs/osmosys/expr"
	"github.com/osmosyslabs/osmosys/units"
	"github.com/stretchr/testify/require"
)

// chainBlock declares n dimensionless variables and m < n constraints of
// the form x_i - x_{i+1} = 0.
func chainBlock(t *testing.T, n, m int) *Block {
	t.Helper()
	b, err := New()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := b.AddVariable(fmt.Sprintf("x%d", i), units.Dimensionless, 1)
		require.NoError(t, err)
	}
	for i := 0; i < m; i++ {
		err := b.AddConstraint(fmt.Sprintf("eq%d", i), expr.Sub(expr.V(i), expr.V(i+1)))
		require.NoError(t, err)
	}
	return b
}

func TestDegreesOfFreedom(t *testing.T) {
	assert := require.New(t)

	b := chainBlock(t, 5, 2)
	assert.Equal(3, b.DegreesOfFreedom())

	assert.NoError(b.Fix("x0", 1))
	assert.NoError(b.Fix("x3", 2))
	assert.NoError(b.Fix("x4", 3))
	assert.Equal(0, b.DegreesOfFreedom())

	// fixing twice is idempotent for the accounting
	assert.NoError(b.Fix("x0", 7))
	assert.Equal(0, b.DegreesOfFreedom())

	assert.NoError(b.Unfix("x0"))
	assert.Equal(1, b.DegreesOfFreedom())
}

func TestDegreesOfFreedomAccounting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("dof = variables - fixed - relationships", prop.ForAll(
		func(nVars, nCons, nFixed uint8) bool {
			n := int(nVars%16) + 2
			m := int(nCons) % n
			k := int(nFixed) % (n + 1)

			b := chainBlock(t, n, m)
			for i := 0; i < k; i++ {
				if err := b.Fix(fmt.Sprintf("x%d", i), float64(i)); err != nil {
					return false
				}
			}
			return b.DegreesOfFreedom() == n-k-m
		},
		gen.UInt8(), gen.UInt8(), gen.UInt8(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// registerPair registers two quantities where "derived" requires "base".
func registerPair(t *testing.T, b *Block) {
	t.Helper()
	require.NoError(t, b.RegisterBuilder("base", func(b *Block) error {
		id, err := b.AddVariable("base", units.Dimensionless, 1)
		if err != nil {
			return err
		}
		return b.AddConstraint("eq_base", expr.Sub(expr.V(id), expr.V(0)))
	}))
	require.NoError(t, b.RegisterBuilder("derived", func(b *Block) error {
		if err := b.Touch("base"); err != nil {
			return err
		}
		baseID, err := b.ID("base")
		if err != nil {
			return err
		}
		id, err := b.AddVariable("derived", units.Dimensionless, 1)
		if err != nil {
			return err
		}
		return b.AddConstraint("eq_derived", expr.Sub(expr.V(id), expr.Mul(expr.C(2), expr.V(baseID))))
	}))
}

func TestTouchPrerequisites(t *testing.T) {
	assert := require.New(t)

	b, err := New()
	assert.NoError(err)
	_, err = b.AddVariable("x", units.Dimensionless, 1)
	assert.NoError(err)
	registerPair(t, b)

	// touching derived drags base in
	assert.NoError(b.Touch("derived"))
	assert.Equal(3, b.NbVariables())
	assert.Equal(2, b.NbConstraints())

	// touching a base variable is a no-op
	assert.NoError(b.Touch("x"))
	assert.Equal(3, b.NbVariables())
}

func TestTouchIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("any touch sequence materializes the same set", prop.ForAll(
		func(seq []bool) bool {
			b, err := New()
			if err != nil {
				return false
			}
			if _, err := b.AddVariable("x", units.Dimensionless, 1); err != nil {
				return false
			}
			registerPair(t, b)
			for _, derived := range seq {
				name := "base"
				if derived {
					name = "derived"
				}
				if err := b.Touch(name); err != nil {
					return false
				}
			}
			if err := b.Touch("base"); err != nil {
				return false
			}
			if err := b.Touch("derived"); err != nil {
				return false
			}
			// 1 state variable + 2 derived quantities, 2 relationships
			return b.NbVariables() == 3 && b.NbConstraints() == 2
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTouchErrors(t *testing.T) {
	assert := require.New(t)

	b, err := New()
	assert.NoError(err)

	assert.ErrorIs(b.Touch("nope"), ErrUnknownQuantity)

	// a depends on b depends on a
	assert.NoError(b.RegisterBuilder("a", func(b *Block) error { return b.Touch("b") }))
	assert.NoError(b.RegisterBuilder("b", func(b *Block) error { return b.Touch("a") }))
	assert.ErrorIs(b.Touch("a"), ErrCyclicQuantity)

	// a failing builder surfaces its cause
	boom := errors.New("boom")
	assert.NoError(b.RegisterBuilder("broken", func(b *Block) error { return boom }))
	err = b.Touch("broken")
	assert.ErrorIs(err, boom)
	assert.Contains(err.Error(), `materialize "broken"`)
}

func TestPreconditions(t *testing.T) {
	assert := require.New(t)

	b := chainBlock(t, 3, 0)

	assert.ErrorIs(b.Fix("nope", 1), ErrUnknownVariable)
	assert.ErrorIs(b.Unfix("nope"), ErrUnknownVariable)
	assert.ErrorIs(b.SetValue("nope", 1), ErrUnknownVariable)
	_, err := b.Value("nope")
	assert.ErrorIs(err, ErrUnknownVariable)

	assert.ErrorIs(b.SetScale("x0", 0), ErrBadScale)
	assert.ErrorIs(b.SetScale("x0", -2), ErrBadScale)
	assert.NoError(b.SetScale("x0", 1e3))

	_, err = b.AddVariable("x0", units.Dimensionless, 0)
	assert.ErrorIs(err, ErrDuplicateVariable)

	assert.NoError(b.AddConstraint("eq", expr.Sub(expr.V(0), expr.V(1))))
	assert.ErrorIs(b.AddConstraint("eq", expr.Sub(expr.V(1), expr.V(2))), ErrDuplicateConstraint)
}

func TestUnitConsistency(t *testing.T) {
	assert := require.New(t)

	b, err := New()
	assert.NoError(err)
	flow, err := b.AddVariable("flow", units.KilogramPerSecond, 1)
	assert.NoError(err)
	temp, err := b.AddVariable("temperature", units.Kelvin, 298.15)
	assert.NoError(err)

	// adding kg/s to K must fail before any solve
	err = b.AddConstraint("bad", expr.Add(expr.V(flow), expr.V(temp)))
	assert.ErrorIs(err, expr.ErrInconsistentUnits)
	assert.Equal(0, b.NbConstraints())

	// scaling a residual by a dimensioned constant is fine
	err = b.AddConstraint("ok", expr.Sub(expr.V(flow), expr.Q(1, units.KilogramPerSecond)))
	assert.NoError(err)
}

func TestInspection(t *testing.T) {
	assert := require.New(t)

	b := chainBlock(t, 3, 1)
	assert.Equal([]string{"x0", "x1", "x2"}, b.VariableNames())

	cons := b.Constraints()
	assert.Len(cons, 1)
	assert.Equal("eq0", cons[0].Name)
	assert.NotNil(cons[0].Residual)
}

func TestReport(t *testing.T) {
	assert := require.New(t)

	b := chainBlock(t, 2, 0)
	assert.NoError(b.Fix("x1", 3.5))

	var buf bytes.Buffer
	assert.NoError(b.Report(&buf))
	out := buf.String()
	assert.Contains(out, "x0")
	assert.Contains(out, "x1")
	assert.Contains(out, "3.5")
	assert.Contains(out, "yes")
}
