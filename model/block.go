// Package model implements the state block at the heart of the
// specification-solve workflow.
//
// A Block is an arena of named, unit-carrying variables plus the
// relationships that define them. Base variables are declared up front by a
// property package; derived quantities are materialized on first reference
// through Touch. The caller fixes variables until DegreesOfFreedom reports
// zero and hands the block to the solver package.
package model

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bits-and-blooms/bitset"
	"github.com/osmosyslabs/osmosys/debug"
	"github.com/osmosyslabs/osmosys/expr"
	"github.com/osmosyslabs/osmosys/logger"
	"github.com/osmosyslabs/osmosys/units"
	"github.com/rs/zerolog"
)

// Variable is one named entry of a state block. Names may be qualified by
// phase and component indices, e.g. "flow_mass_comp[Liq,NaCl]".
type Variable struct {
	ID    int
	Name  string
	Dim   units.Dim
	Value float64
	Scale float64
}

// Constraint is a defining relationship; the solver drives its residual
// expression to zero.
type Constraint struct {
	Name     string
	Residual expr.Expr
}

// BuildFunc materializes a derived quantity on a block: it declares the
// quantity's variable, its defining relationship, and may Touch
// prerequisite quantities first.
type BuildFunc func(b *Block) error

// Block is a state representation: variables, their fixed flags, the
// active relationships and the registry of on-demand quantities.
//
// A Block is not safe for concurrent use; the workflow assumes a single
// writer for the block's entire lifetime.
type Block struct {
	log zerolog.Logger

	variables []Variable
	byName    map[string]int
	fixed     *bitset.BitSet

	constraints []Constraint
	conNames    map[string]struct{}

	builders map[string]BuildFunc
	built    map[string]struct{}
	building map[string]struct{}
}

// Option alters the construction of a Block.
type Option func(*Block) error

// WithLogger overrides the block's logger. By default the global
// osmosys logger is used.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Block) error {
		b.log = l
		return nil
	}
}

// New returns an empty state block.
func New(opts ...Option) (*Block, error) {
	b := &Block{
		log:      logger.For("model"),
		byName:   make(map[string]int),
		fixed:    bitset.New(16),
		conNames: make(map[string]struct{}),
		builders: make(map[string]BuildFunc),
		built:    make(map[string]struct{}),
		building: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return b, nil
}

// AddVariable declares a variable and returns its ID. The initial value is
// a solver starting point, not a specification; the variable starts unfixed
// with a unit scaling factor.
func (b *Block) AddVariable(name string, dim units.Dim, initial float64) (int, error) {
	if _, ok := b.byName[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateVariable, name)
	}
	id := len(b.variables)
	b.variables = append(b.variables, Variable{
		ID:    id,
		Name:  name,
		Dim:   dim,
		Value: initial,
		Scale: 1,
	})
	b.byName[name] = id
	return id, nil
}

// AddConstraint declares a defining relationship. The residual expression
// is checked for unit consistency immediately; an inconsistent relationship
// is rejected before any solve is attempted.
func (b *Block) AddConstraint(name string, residual expr.Expr) error {
	if _, ok := b.conNames[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateConstraint, name)
	}
	if _, err := residual.Dim(b.dimOf); err != nil {
		return fmt.Errorf("constraint %q: %w", name, err)
	}
	b.constraints = append(b.constraints, Constraint{Name: name, Residual: residual})
	b.conNames[name] = struct{}{}
	return nil
}

// RegisterBuilder registers the builder materializing the named quantity.
func (b *Block) RegisterBuilder(name string, fn BuildFunc) error {
	if _, ok := b.builders[name]; ok {
		return fmt.Errorf("model: builder for %q already registered", name)
	}
	b.builders[name] = fn
	return nil
}

// Touch ensures the named quantity is materialized, building prerequisite
// quantities first. It is idempotent and has no numeric effect until the
// block is solved. Touching a base variable is a no-op.
func (b *Block) Touch(name string) error {
	if _, ok := b.built[name]; ok {
		return nil
	}
	if _, ok := b.byName[name]; ok {
		// base variable, nothing to build
		return nil
	}
	fn, ok := b.builders[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuantity, name)
	}
	if _, ok := b.building[name]; ok {
		return fmt.Errorf("%w: %q", ErrCyclicQuantity, name)
	}
	b.building[name] = struct{}{}
	defer delete(b.building, name)

	if err := fn(b); err != nil {
		if debug.Debug {
			return fmt.Errorf("materialize %q: %w\n%s", name, err, debug.Stack())
		}
		return fmt.Errorf("materialize %q: %w", name, err)
	}
	if _, ok := b.byName[name]; !ok {
		return fmt.Errorf("model: builder for %q did not declare the quantity", name)
	}
	b.built[name] = struct{}{}
	b.log.Debug().Str("quantity", name).Msg("materialized quantity")
	return nil
}

// Fix sets the variable's value and marks it fixed.
func (b *Block) Fix(name string, value float64) error {
	id, err := b.id(name)
	if err != nil {
		return err
	}
	b.variables[id].Value = value
	b.fixed.Set(uint(id))
	b.log.Debug().Str("variable", name).Float64("value", value).Msg("fixed")
	return nil
}

// Unfix marks the variable free; its current value becomes the solver
// starting point.
func (b *Block) Unfix(name string) error {
	id, err := b.id(name)
	if err != nil {
		return err
	}
	b.fixed.Clear(uint(id))
	b.log.Debug().Str("variable", name).Msg("unfixed")
	return nil
}

// IsFixed reports whether the variable is currently fixed.
func (b *Block) IsFixed(name string) (bool, error) {
	id, err := b.id(name)
	if err != nil {
		return false, err
	}
	return b.fixed.Test(uint(id)), nil
}

// SetValue overwrites the variable's value without changing its fixed flag.
func (b *Block) SetValue(name string, value float64) error {
	id, err := b.id(name)
	if err != nil {
		return err
	}
	b.variables[id].Value = value
	return nil
}

// Value returns the variable's current value.
func (b *Block) Value(name string) (float64, error) {
	id, err := b.id(name)
	if err != nil {
		return 0, err
	}
	return b.variables[id].Value, nil
}

// SetScale sets the variable's scaling factor. Scaling only conditions the
// numeric solve; it does not change the mathematical solution.
func (b *Block) SetScale(name string, scale float64) error {
	id, err := b.id(name)
	if err != nil {
		return err
	}
	if scale <= 0 {
		return fmt.Errorf("%w: %q: %v", ErrBadScale, name, scale)
	}
	b.variables[id].Scale = scale
	return nil
}

// DegreesOfFreedom returns variables minus fixed variables minus
// relationships. A solve is well-posed only at zero.
func (b *Block) DegreesOfFreedom() int {
	return len(b.variables) - int(b.fixed.Count()) - len(b.constraints)
}

// ID returns the variable ID for a qualified name.
func (b *Block) ID(name string) (int, error) {
	return b.id(name)
}

// NbVariables returns the number of declared variables.
func (b *Block) NbVariables() int { return len(b.variables) }

// NbConstraints returns the number of active relationships.
func (b *Block) NbConstraints() int { return len(b.constraints) }

// VariableNames returns the variable names in declaration order.
func (b *Block) VariableNames() []string {
	names := make([]string, len(b.variables))
	for i, v := range b.variables {
		names[i] = v.Name
	}
	return names
}

// Variables returns a copy of the declared variables in declaration order.
func (b *Block) Variables() []Variable {
	out := make([]Variable, len(b.variables))
	copy(out, b.variables)
	return out
}

// Constraints returns a copy of the active relationships.
func (b *Block) Constraints() []Constraint {
	out := make([]Constraint, len(b.constraints))
	copy(out, b.constraints)
	return out
}

// Name returns the display name of a variable ID. Part of solver.System.
func (b *Block) Name(i int) string { return b.variables[i].Name }

// At returns the value of a variable ID. Part of solver.System.
func (b *Block) At(i int) float64 { return b.variables[i].Value }

// SetAt sets the value of a variable ID. Part of solver.System.
func (b *Block) SetAt(i int, v float64) { b.variables[i].Value = v }

// Fixed reports the fixed flag of a variable ID. Part of solver.System.
func (b *Block) Fixed(i int) bool { return b.fixed.Test(uint(i)) }

// ScaleAt returns the scaling factor of a variable ID. Part of solver.System.
func (b *Block) ScaleAt(i int) float64 { return b.variables[i].Scale }

// Residuals returns the residual expressions of the active relationships.
// Part of solver.System.
func (b *Block) Residuals() []expr.Expr {
	res := make([]expr.Expr, len(b.constraints))
	for i, c := range b.constraints {
		res[i] = c.Residual
	}
	return res
}

// Report writes a name → value listing of every variable to w, marking
// fixed variables.
func (b *Block) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tVALUE\tUNITS\tFIXED")
	for _, v := range b.variables {
		mark := ""
		if b.fixed.Test(uint(v.ID)) {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\n", v.Name, v.Value, v.Dim, mark)
	}
	return tw.Flush()
}

func (b *Block) id(name string) (int, error) {
	i, ok := b.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return i, nil
}

func (b *Block) dimOf(id int) units.Dim {
	return b.variables[id].Dim
}
