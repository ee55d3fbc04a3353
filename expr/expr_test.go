package expr

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/osmosyslabs/osmosys/units"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	assert := require.New(t)

	vals := []float64{2, 3, 5}

	// x0*x1 + x2
	e := Add(Mul(V(0), V(1)), V(2))
	assert.Equal(11.0, e.Eval(vals))

	// (x0 - x1) / x2
	e = Div(Sub(V(0), V(1)), V(2))
	assert.InDelta(-0.2, e.Eval(vals), 1e-15)

	// -x1^2
	e = Neg(Pow(V(1), 2))
	assert.Equal(-9.0, e.Eval(vals))

	// constants fold through the helpers
	assert.Equal(7.0, Add(C(0), C(7)).Eval(nil))
	assert.Equal(0.0, Mul(C(0), V(1)).Eval(vals))
	assert.Equal(3.0, Mul(C(1), V(1)).Eval(vals))
}

func TestDiff(t *testing.T) {
	assert := require.New(t)

	vals := []float64{2, 3}

	// d/dx0 (x0*x1) = x1
	e := Mul(V(0), V(1))
	assert.Equal(3.0, e.Diff(0).Eval(vals))
	assert.Equal(2.0, e.Diff(1).Eval(vals))

	// d/dx0 (x0^3) = 3*x0^2
	e = Pow(V(0), 3)
	assert.Equal(12.0, e.Diff(0).Eval(vals))
	assert.Equal(0.0, e.Diff(1).Eval(vals))

	// d/dx0 (x1/x0) = -x1/x0^2
	e = Div(V(1), V(0))
	assert.InDelta(-0.75, e.Diff(0).Eval(vals), 1e-15)

	// d/dx0 (x0 - x1) = 1
	e = Sub(V(0), V(1))
	assert.Equal(1.0, e.Diff(0).Eval(vals))
	assert.Equal(-1.0, e.Diff(1).Eval(vals))
}

func TestDim(t *testing.T) {
	assert := require.New(t)

	dims := func(id int) units.Dim {
		return []units.Dim{
			units.KilogramPerCubicMeter, // 0: density
			units.CubicMeterPerSecond,   // 1: volumetric flow
			units.KilogramPerSecond,     // 2: mass flow
		}[id]
	}

	// rho * flow_vol - flow_mass is a consistent residual in kg/s
	d, err := Sub(Mul(V(0), V(1)), V(2)).Dim(dims)
	assert.NoError(err)
	assert.Equal(units.KilogramPerSecond, d)

	// rho + flow_vol is inconsistent
	_, err = Add(V(0), V(1)).Dim(dims)
	assert.ErrorIs(err, ErrInconsistentUnits)

	// dimensioned constants participate
	d, err = Mul(Q(998.2, units.KilogramPerCubicMeter), V(1)).Dim(dims)
	assert.NoError(err)
	assert.Equal(units.KilogramPerSecond, d)
}

func TestVars(t *testing.T) {
	assert := require.New(t)

	e := Add(Mul(V(0), V(3)), Div(V(5), V(3)), C(2))
	set := bitset.New(8)
	e.Vars(set)

	assert.True(set.Test(0))
	assert.True(set.Test(3))
	assert.True(set.Test(5))
	assert.False(set.Test(1))
	assert.Equal(uint(3), set.Count())
}

func TestFormat(t *testing.T) {
	assert := require.New(t)

	names := func(id int) string { return []string{"x", "y"}[id] }

	assert.Equal("(x)*(y)", Mul(V(0), V(1)).Format(names))
	assert.Equal("x - y", Sub(V(0), V(1)).Format(names))
	assert.Equal("(y)^2", Pow(V(1), 2).Format(names))
}
