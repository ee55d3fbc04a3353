package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDimAlgebra(t *testing.T) {
	assert := require.New(t)

	// density * volumetric flow = mass flow
	assert.Equal(KilogramPerSecond, KilogramPerCubicMeter.Mul(CubicMeterPerSecond))

	// mass flow / volumetric flow = density
	assert.Equal(KilogramPerCubicMeter, KilogramPerSecond.Div(CubicMeterPerSecond))

	// mass fraction is dimensionless
	assert.True(KilogramPerSecond.Div(KilogramPerSecond).IsDimensionless())

	// 1/K * K cancels
	assert.True(PerKelvin.Mul(Kelvin).IsDimensionless())

	assert.Equal(CubicMeter, Meter.Pow(3))
	assert.Equal(Dim{Length: -3}, CubicMeter.Invert())
}

func TestDimString(t *testing.T) {
	assert := require.New(t)

	assert.Equal("dimensionless", Dim{}.String())
	assert.Equal("kg m^-3", KilogramPerCubicMeter.String())
	assert.Equal("kg m^-1 s^-2", Pascal.String())
	assert.Equal("K", Kelvin.String())
}
