package seawater

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Parameters are the physical constants of the property package. The zero
// value is not usable; start from DefaultParameters or load a YAML
// parameter file.
type Parameters struct {
	// DensMassRef is the liquid density at the reference temperature, kg/m^3.
	DensMassRef float64 `yaml:"dens_mass_ref"`
	// TemperatureRef is the reference temperature, K.
	TemperatureRef float64 `yaml:"temperature_ref"`
	// ThermalExpansion is the volumetric thermal expansion coefficient, 1/K.
	ThermalExpansion float64 `yaml:"thermal_expansion"`
}

// DefaultParameters returns the parameter set used by the reference
// seawater model: pure-water density at 25 °C with a linear thermal
// expansion correction.
func DefaultParameters() Parameters {
	return Parameters{
		DensMassRef:      998.2,
		TemperatureRef:   298.15,
		ThermalExpansion: 2.1e-4,
	}
}

// LoadParameters reads a YAML parameter file. Missing keys keep their
// default values.
func LoadParameters(r io.Reader) (Parameters, error) {
	p := DefaultParameters()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Parameters{}, fmt.Errorf("decode parameters: %w", err)
	}
	if err := p.validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func (p Parameters) validate() error {
	if p.DensMassRef <= 0 {
		return fmt.Errorf("seawater: dens_mass_ref must be positive, got %v", p.DensMassRef)
	}
	if p.TemperatureRef <= 0 {
		return fmt.Errorf("seawater: temperature_ref must be positive, got %v", p.TemperatureRef)
	}
	if p.ThermalExpansion < 0 {
		return fmt.Errorf("seawater: thermal_expansion must be non-negative, got %v", p.ThermalExpansion)
	}
	return nil
}
