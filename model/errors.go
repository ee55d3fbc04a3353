package model

import "errors"

var (
	// ErrUnknownVariable is returned when fixing, unfixing or reading a
	// variable that was never declared on the block.
	ErrUnknownVariable = errors.New("model: unknown variable")

	// ErrDuplicateVariable is returned when declaring a variable name twice.
	ErrDuplicateVariable = errors.New("model: variable already declared")

	// ErrDuplicateConstraint is returned when declaring a constraint name twice.
	ErrDuplicateConstraint = errors.New("model: constraint already declared")

	// ErrUnknownQuantity is returned by Touch when no builder is registered
	// for the requested quantity.
	ErrUnknownQuantity = errors.New("model: no builder registered for quantity")

	// ErrCyclicQuantity is returned by Touch when quantity builders depend
	// on each other in a cycle.
	ErrCyclicQuantity = errors.New("model: cyclic quantity dependency")

	// ErrBadScale is returned when setting a non-positive scaling factor.
	ErrBadScale = errors.New("model: scaling factor must be positive")

	// ErrSnapshotVersion is returned by ReadFrom when the snapshot was
	// written by an incompatible module version.
	ErrSnapshotVersion = errors.New("model: incompatible snapshot version")
)
