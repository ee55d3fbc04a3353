// Package seawater implements a seawater property package with dissolved
// NaCl and total suspended solids (TSS).
//
// New returns a state block whose state variables are temperature,
// pressure and the component mass flows. Volumetric flow, mass
// concentration and mass fractions are derived quantities, materialized on
// first Touch together with their defining relationships:
//
//	ρ(T)·V̇ = Σⱼ ṁⱼ         with ρ(T) = ρ_ref·(1 − β·(T − T_ref))
//	Cⱼ·V̇   = ṁⱼ
//	xⱼ·Σṁ  = ṁⱼ
//
// A typical scenario fixes the five state variables, solves, then
// re-specifies: unfix the mass flows, fix volumetric flow and mass
// fractions instead, and solve again.
package seawater

import (
	"fmt"

	"github.com/osmosyslabs/osmosys/expr"
	"github.com/osmosyslabs/osmosys/model"
	"github.com/osmosyslabs/osmosys/units"
)

// State variable and derived quantity names. Indexed names follow the
// name[phase,component] convention.
const (
	Temperature = "temperature"
	Pressure    = "pressure"

	FlowMassH2O  = "flow_mass_comp[Liq,H2O]"
	FlowMassNaCl = "flow_mass_comp[Liq,NaCl]"
	FlowMassTSS  = "flow_mass_comp[Liq,TSS]"

	FlowVol      = "flow_vol_phase[Liq]"
	ConcMassNaCl = "conc_mass_phase_comp[Liq,NaCl]"
	MassFracNaCl = "mass_frac_phase_comp[Liq,NaCl]"
	MassFracTSS  = "mass_frac_phase_comp[Liq,TSS]"
)

// New returns a state block for a single liquid seawater stream.
func New(params Parameters, opts ...model.Option) (*model.Block, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	b, err := model.New(opts...)
	if err != nil {
		return nil, err
	}

	temp, err := b.AddVariable(Temperature, units.Kelvin, params.TemperatureRef)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddVariable(Pressure, units.Pascal, 101325); err != nil {
		return nil, err
	}
	h2o, err := b.AddVariable(FlowMassH2O, units.KilogramPerSecond, 1)
	if err != nil {
		return nil, err
	}
	nacl, err := b.AddVariable(FlowMassNaCl, units.KilogramPerSecond, 0.035)
	if err != nil {
		return nil, err
	}
	tss, err := b.AddVariable(FlowMassTSS, units.KilogramPerSecond, 1e-4)
	if err != nil {
		return nil, err
	}

	if err := b.SetScale(Temperature, 1e-2); err != nil {
		return nil, err
	}
	if err := b.SetScale(Pressure, 1e-5); err != nil {
		return nil, err
	}
	if err := b.SetScale(FlowMassNaCl, 1e1); err != nil {
		return nil, err
	}
	if err := b.SetScale(FlowMassTSS, 1e4); err != nil {
		return nil, err
	}

	totalFlow := expr.Add(expr.V(h2o), expr.V(nacl), expr.V(tss))

	// ρ(T) = ρ_ref·(1 − β·(T − T_ref))
	densMass := expr.Mul(
		expr.Q(params.DensMassRef, units.KilogramPerCubicMeter),
		expr.Sub(expr.C(1), expr.Mul(
			expr.Q(params.ThermalExpansion, units.PerKelvin),
			expr.Sub(expr.V(temp), expr.Q(params.TemperatureRef, units.Kelvin)),
		)),
	)

	err = b.RegisterBuilder(FlowVol, func(b *model.Block) error {
		id, err := b.AddVariable(FlowVol, units.CubicMeterPerSecond, 1e-3)
		if err != nil {
			return err
		}
		if err := b.SetScale(FlowVol, 1e3); err != nil {
			return err
		}
		// ρ(T)·V̇ = Σⱼ ṁⱼ
		return b.AddConstraint("eq_"+FlowVol,
			expr.Sub(expr.Mul(densMass, expr.V(id)), totalFlow))
	})
	if err != nil {
		return nil, err
	}

	err = b.RegisterBuilder(ConcMassNaCl, func(b *model.Block) error {
		if err := b.Touch(FlowVol); err != nil {
			return err
		}
		flowVol, err := b.ID(FlowVol)
		if err != nil {
			return err
		}
		id, err := b.AddVariable(ConcMassNaCl, units.KilogramPerCubicMeter, 35)
		if err != nil {
			return err
		}
		if err := b.SetScale(ConcMassNaCl, 1e-1); err != nil {
			return err
		}
		// Cⱼ·V̇ = ṁⱼ
		return b.AddConstraint("eq_"+ConcMassNaCl,
			expr.Sub(expr.Mul(expr.V(id), expr.V(flowVol)), expr.V(nacl)))
	})
	if err != nil {
		return nil, err
	}

	massFrac := func(name string, comp int, initial, scale float64) model.BuildFunc {
		return func(b *model.Block) error {
			id, err := b.AddVariable(name, units.Dimensionless, initial)
			if err != nil {
				return err
			}
			if err := b.SetScale(name, scale); err != nil {
				return err
			}
			// xⱼ·Σṁ = ṁⱼ
			return b.AddConstraint("eq_"+name,
				expr.Sub(expr.Mul(expr.V(id), totalFlow), expr.V(comp)))
		}
	}
	if err := b.RegisterBuilder(MassFracNaCl, massFrac(MassFracNaCl, nacl, 0.035, 1e2)); err != nil {
		return nil, err
	}
	if err := b.RegisterBuilder(MassFracTSS, massFrac(MassFracTSS, tss, 1e-4, 1e4)); err != nil {
		return nil, err
	}

	return b, nil
}

// FixState fixes the five state variables in one call.
func FixState(b *model.Block, temperature, pressure, flowH2O, flowNaCl, flowTSS float64) error {
	for _, spec := range []struct {
		name  string
		value float64
	}{
		{Temperature, temperature},
		{Pressure, pressure},
		{FlowMassH2O, flowH2O},
		{FlowMassNaCl, flowNaCl},
		{FlowMassTSS, flowTSS},
	} {
		if err := b.Fix(spec.name, spec.value); err != nil {
			return fmt.Errorf("fix state: %w", err)
		}
	}
	return nil
}
