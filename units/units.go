// Package units implements the dimensional algebra used to check
// relationships for unit consistency before any solve is attempted.
//
// A Dim is a vector of integer exponents over the SI base dimensions
// relevant to process modeling (mass, length, time, temperature, amount).
// Two quantities may be added or equated only when their Dims are equal;
// multiplication and division add and subtract exponents.
package units

import (
	"strconv"
	"strings"
)

// Dim is a set of exponents over the SI base dimensions.
//
// The zero value is dimensionless.
type Dim struct {
	Mass        int8
	Length      int8
	Time        int8
	Temperature int8
	Amount      int8
}

// Base dimensions and the derived dimensions used by the built-in
// property packages.
var (
	Dimensionless = Dim{}
	Kilogram      = Dim{Mass: 1}
	Meter         = Dim{Length: 1}
	Second        = Dim{Time: 1}
	Kelvin        = Dim{Temperature: 1}
	Mole          = Dim{Amount: 1}

	PerKelvin             = Dim{Temperature: -1}
	Pascal                = Dim{Mass: 1, Length: -1, Time: -2}
	CubicMeter            = Dim{Length: 3}
	KilogramPerSecond     = Dim{Mass: 1, Time: -1}
	CubicMeterPerSecond   = Dim{Length: 3, Time: -1}
	KilogramPerCubicMeter = Dim{Mass: 1, Length: -3}
)

// Mul returns the dimension of a product.
func (d Dim) Mul(o Dim) Dim {
	return Dim{
		Mass:        d.Mass + o.Mass,
		Length:      d.Length + o.Length,
		Time:        d.Time + o.Time,
		Temperature: d.Temperature + o.Temperature,
		Amount:      d.Amount + o.Amount,
	}
}

// Div returns the dimension of a quotient.
func (d Dim) Div(o Dim) Dim {
	return d.Mul(o.Invert())
}

// Pow returns the dimension raised to the n-th power.
func (d Dim) Pow(n int) Dim {
	m := int8(n)
	return Dim{
		Mass:        d.Mass * m,
		Length:      d.Length * m,
		Time:        d.Time * m,
		Temperature: d.Temperature * m,
		Amount:      d.Amount * m,
	}
}

// Invert returns the reciprocal dimension.
func (d Dim) Invert() Dim {
	return Dim{
		Mass:        -d.Mass,
		Length:      -d.Length,
		Time:        -d.Time,
		Temperature: -d.Temperature,
		Amount:      -d.Amount,
	}
}

// IsDimensionless reports whether all exponents are zero.
func (d Dim) IsDimensionless() bool {
	return d == Dim{}
}

func (d Dim) String() string {
	if d.IsDimensionless() {
		return "dimensionless"
	}
	var sbb strings.Builder
	write := func(symbol string, exp int8) {
		if exp == 0 {
			return
		}
		if sbb.Len() > 0 {
			sbb.WriteByte(' ')
		}
		sbb.WriteString(symbol)
		if exp != 1 {
			sbb.WriteByte('^')
			sbb.WriteString(strconv.Itoa(int(exp)))
		}
	}
	write("kg", d.Mass)
	write("m", d.Length)
	write("s", d.Time)
	write("K", d.Temperature)
	write("mol", d.Amount)
	return sbb.String()
}
