// Package expr implements the scalar expression tree used to declare the
// defining relationships of a state block.
//
// Expressions reference block variables by ID and evaluate against a flat
// value vector. They carry enough structure for the solver to derive an
// analytic Jacobian (Diff) and for the model layer to check unit
// consistency statically (Dim), before any numeric solve.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/osmosyslabs/osmosys/units"
)

// ErrInconsistentUnits is returned by Dim when terms of a sum carry
// different dimensions.
var ErrInconsistentUnits = errors.New("expr: inconsistent units")

// DimFunc resolves the dimension of a variable ID.
type DimFunc func(id int) units.Dim

// NameFunc resolves the display name of a variable ID.
type NameFunc func(id int) string

// Expr is a scalar expression over block variables.
type Expr interface {
	// Eval evaluates the expression against a value vector indexed by
	// variable ID.
	Eval(vals []float64) float64

	// Diff returns the analytic partial derivative with respect to the
	// given variable ID.
	Diff(wrt int) Expr

	// Dim returns the dimension of the expression, or an error if a sum
	// combines terms of different dimensions.
	Dim(dims DimFunc) (units.Dim, error)

	// Vars records every referenced variable ID in set.
	Vars(set *bitset.BitSet)

	// Format renders the expression using names to resolve variables.
	Format(names NameFunc) string
}

// C returns a dimensionless constant.
func C(v float64) Expr { return lit{v: v} }

// Q returns a constant carrying a physical dimension.
func Q(v float64, d units.Dim) Expr { return lit{v: v, d: d} }

// V returns a reference to the variable with the given ID.
func V(id int) Expr { return variable(id) }

// Add returns the sum of its operands.
func Add(xs ...Expr) Expr { return addOf(xs) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return addOf([]Expr{a, Neg(b)}) }

// Mul returns the product of its operands.
func Mul(xs ...Expr) Expr {
	if len(xs) == 0 {
		return lit{v: 1}
	}
	e := xs[0]
	for _, x := range xs[1:] {
		e = mulOf(e, x)
	}
	return e
}

// Div returns num / den.
func Div(num, den Expr) Expr { return quot{num: num, den: den} }

// Neg returns -x.
func Neg(x Expr) Expr {
	if n, ok := x.(neg); ok {
		return n.x
	}
	if l, ok := x.(lit); ok {
		return lit{v: -l.v, d: l.d}
	}
	return neg{x: x}
}

// Pow returns x raised to the integer power n.
func Pow(x Expr, n int) Expr {
	switch n {
	case 0:
		return lit{v: 1}
	case 1:
		return x
	}
	return pow{x: x, n: n}
}

func isZero(e Expr) bool {
	l, ok := e.(lit)
	return ok && l.v == 0
}

func isOne(e Expr) bool {
	l, ok := e.(lit)
	return ok && l.v == 1 && l.d.IsDimensionless()
}

func addOf(xs []Expr) Expr {
	terms := make([]Expr, 0, len(xs))
	for _, x := range xs {
		if s, ok := x.(sum); ok {
			terms = append(terms, s.xs...)
			continue
		}
		if isZero(x) {
			continue
		}
		terms = append(terms, x)
	}
	switch len(terms) {
	case 0:
		return lit{}
	case 1:
		return terms[0]
	}
	return sum{xs: terms}
}

func mulOf(a, b Expr) Expr {
	if isZero(a) || isZero(b) {
		return lit{}
	}
	if isOne(a) {
		return b
	}
	if isOne(b) {
		return a
	}
	return prod{a: a, b: b}
}

// lit is a numeric constant, optionally carrying a dimension.
type lit struct {
	v float64
	d units.Dim
}

func (l lit) Eval([]float64) float64 { return l.v }
func (l lit) Diff(int) Expr          { return lit{} }
func (l lit) Vars(*bitset.BitSet)    {}

func (l lit) Dim(DimFunc) (units.Dim, error) { return l.d, nil }

func (l lit) Format(NameFunc) string {
	return strconv.FormatFloat(l.v, 'g', -1, 64)
}

type variable int

func (v variable) Eval(vals []float64) float64 { return vals[v] }

func (v variable) Diff(wrt int) Expr {
	if int(v) == wrt {
		return lit{v: 1}
	}
	return lit{}
}

func (v variable) Dim(dims DimFunc) (units.Dim, error) { return dims(int(v)), nil }

func (v variable) Vars(set *bitset.BitSet) { set.Set(uint(v)) }

func (v variable) Format(names NameFunc) string { return names(int(v)) }

type sum struct {
	xs []Expr
}

func (s sum) Eval(vals []float64) float64 {
	var acc float64
	for _, x := range s.xs {
		acc += x.Eval(vals)
	}
	return acc
}

func (s sum) Diff(wrt int) Expr {
	ds := make([]Expr, len(s.xs))
	for i, x := range s.xs {
		ds[i] = x.Diff(wrt)
	}
	return addOf(ds)
}

func (s sum) Dim(dims DimFunc) (units.Dim, error) {
	d0, err := s.xs[0].Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	for _, x := range s.xs[1:] {
		d, err := x.Dim(dims)
		if err != nil {
			return units.Dim{}, err
		}
		if d != d0 {
			return units.Dim{}, fmt.Errorf("%w: [%s] + [%s]", ErrInconsistentUnits, d0, d)
		}
	}
	return d0, nil
}

func (s sum) Vars(set *bitset.BitSet) {
	for _, x := range s.xs {
		x.Vars(set)
	}
}

func (s sum) Format(names NameFunc) string {
	var sbb strings.Builder
	for i, x := range s.xs {
		term := x.Format(names)
		if i > 0 {
			if strings.HasPrefix(term, "-") {
				sbb.WriteString(" - ")
				term = term[1:]
			} else {
				sbb.WriteString(" + ")
			}
		}
		sbb.WriteString(term)
	}
	return sbb.String()
}

type prod struct {
	a, b Expr
}

func (p prod) Eval(vals []float64) float64 { return p.a.Eval(vals) * p.b.Eval(vals) }

func (p prod) Diff(wrt int) Expr {
	return addOf([]Expr{
		mulOf(p.a.Diff(wrt), p.b),
		mulOf(p.a, p.b.Diff(wrt)),
	})
}

func (p prod) Dim(dims DimFunc) (units.Dim, error) {
	da, err := p.a.Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	db, err := p.b.Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	return da.Mul(db), nil
}

func (p prod) Vars(set *bitset.BitSet) {
	p.a.Vars(set)
	p.b.Vars(set)
}

func (p prod) Format(names NameFunc) string {
	return "(" + p.a.Format(names) + ")*(" + p.b.Format(names) + ")"
}

type quot struct {
	num, den Expr
}

func (q quot) Eval(vals []float64) float64 { return q.num.Eval(vals) / q.den.Eval(vals) }

func (q quot) Diff(wrt int) Expr {
	// (n/d)' = (n'd - nd') / d^2
	return quot{
		num: addOf([]Expr{
			mulOf(q.num.Diff(wrt), q.den),
			Neg(mulOf(q.num, q.den.Diff(wrt))),
		}),
		den: Pow(q.den, 2),
	}
}

func (q quot) Dim(dims DimFunc) (units.Dim, error) {
	dn, err := q.num.Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	dd, err := q.den.Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	return dn.Div(dd), nil
}

func (q quot) Vars(set *bitset.BitSet) {
	q.num.Vars(set)
	q.den.Vars(set)
}

func (q quot) Format(names NameFunc) string {
	return "(" + q.num.Format(names) + ")/(" + q.den.Format(names) + ")"
}

type neg struct {
	x Expr
}

func (n neg) Eval(vals []float64) float64 { return -n.x.Eval(vals) }
func (n neg) Diff(wrt int) Expr           { return Neg(n.x.Diff(wrt)) }

func (n neg) Dim(dims DimFunc) (units.Dim, error) { return n.x.Dim(dims) }

func (n neg) Vars(set *bitset.BitSet) { n.x.Vars(set) }

func (n neg) Format(names NameFunc) string { return "-" + n.x.Format(names) }

type pow struct {
	x Expr
	n int
}

func (p pow) Eval(vals []float64) float64 {
	return math.Pow(p.x.Eval(vals), float64(p.n))
}

func (p pow) Diff(wrt int) Expr {
	// (x^n)' = n * x^(n-1) * x'
	return Mul(lit{v: float64(p.n)}, Pow(p.x, p.n-1), p.x.Diff(wrt))
}

func (p pow) Dim(dims DimFunc) (units.Dim, error) {
	d, err := p.x.Dim(dims)
	if err != nil {
		return units.Dim{}, err
	}
	return d.Pow(p.n), nil
}

func (p pow) Vars(set *bitset.BitSet) { p.x.Vars(set) }

func (p pow) Format(names NameFunc) string {
	return "(" + p.x.Format(names) + ")^" + strconv.Itoa(p.n)
}
