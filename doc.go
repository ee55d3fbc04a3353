// Package osmosys provides an equation-oriented modeling core for
// water-treatment process models.
//
// A state block (see the model package) holds named, unit-carrying
// variables. Derived quantities and their defining relationships are
// materialized on first reference, the caller fixes variables until the
// block has zero degrees of freedom, and the solver package drives a
// damped Newton iteration over the free variables.
//
// Property packages such as seawater declare the variables and
// relationships of a concrete fluid.
package osmosys

import "github.com/blang/semver/v4"

// Version of the osmosys module.
var Version = semver.MustParse("0.4.0")
