// Package unit holds the catalog of physical dimensions and their
// convertible unit symbols, mirroring the unit metadata the controlled
// processes attach to numeric configuration fields ("x-tfc"). Values
// are persisted in a field's base unit; the catalog only affects how a
// value is displayed and entered.
package unit

import "fmt"

// Dimension names a physical dimension, e.g. "time" or
// "electric_current". The names match the x-tfc metadata emitted by
// the processes.
type Dimension string

// Ratio is the base-unit scale carried in x-tfc metadata: one base
// unit equals Numerator/Denominator of the dimension's default unit.
// A field persisted in deciamps carries ratio 1/10 relative to amps.
type Ratio struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

// Factor returns the scale as a float. Zero-valued ratios yield 1.
func (r Ratio) Factor() float64 {
	if r.Numerator == 0 || r.Denominator == 0 {
		return 1
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

type entry struct {
	def     string
	symbols []string
	factors map[string]float64 // relative to def
}

// catalog lists every dimension with its ordered unit symbols and the
// factor of each symbol relative to the dimension's default unit.
var catalog = map[Dimension]entry{
	"length": {def: "m", symbols: []string{"mm", "cm", "dm", "m", "km"},
		factors: map[string]float64{"mm": 1e-3, "cm": 1e-2, "dm": 1e-1, "m": 1, "km": 1e3}},
	"time": {def: "s", symbols: []string{"ns", "us", "ms", "ds", "s", "min", "h"},
		factors: map[string]float64{"ns": 1e-9, "us": 1e-6, "ms": 1e-3, "ds": 1e-1, "s": 1, "min": 60, "h": 3600}},
	"area": {def: "m2", symbols: []string{"mm2", "cm2", "m2", "km2"},
		factors: map[string]float64{"mm2": 1e-6, "cm2": 1e-4, "m2": 1, "km2": 1e6}},
	"volume": {def: "l", symbols: []string{"ml", "cl", "dl", "l", "m3"},
		factors: map[string]float64{"ml": 1e-3, "cl": 1e-2, "dl": 1e-1, "l": 1, "m3": 1e3}},
	"speed": {def: "m/s", symbols: []string{"mm/s", "cm/s", "m/s", "km/h"},
		factors: map[string]float64{"mm/s": 1e-3, "cm/s": 1e-2, "m/s": 1, "km/h": 1000.0 / 3600.0}},
	"angular_velocity": {def: "rad/s", symbols: []string{"rad/s", "deg/s"},
		factors: map[string]float64{"rad/s": 1, "deg/s": 0.017453292519943295}},
	"acceleration": {def: "m/s2", symbols: []string{"m/s2"},
		factors: map[string]float64{"m/s2": 1}},
	"angular_acceleration": {def: "rad/s2", symbols: []string{"rad/s2"},
		factors: map[string]float64{"rad/s2": 1}},
	"capacitance": {def: "F", symbols: []string{"pF", "nF", "uF", "mF", "F"},
		factors: map[string]float64{"pF": 1e-12, "nF": 1e-9, "uF": 1e-6, "mF": 1e-3, "F": 1}},
	"conductance": {def: "S", symbols: []string{"nS", "uS", "mS", "S", "kS", "MS"},
		factors: map[string]float64{"nS": 1e-9, "uS": 1e-6, "mS": 1e-3, "S": 1, "kS": 1e3, "MS": 1e6}},
	"energy": {def: "J", symbols: []string{"nJ", "uJ", "mJ", "J", "kJ", "MJ"},
		factors: map[string]float64{"nJ": 1e-9, "uJ": 1e-6, "mJ": 1e-3, "J": 1, "kJ": 1e3, "MJ": 1e6}},
	"force": {def: "N", symbols: []string{"nN", "uN", "mN", "N", "kN", "MN"},
		factors: map[string]float64{"nN": 1e-9, "uN": 1e-6, "mN": 1e-3, "N": 1, "kN": 1e3, "MN": 1e6}},
	"frequency": {def: "Hz", symbols: []string{"mHz", "dHz", "Hz", "kHz"},
		factors: map[string]float64{"mHz": 1e-3, "dHz": 1e-1, "Hz": 1, "kHz": 1e3}},
	"heat_capacity": {def: "J/K", symbols: []string{"J/K", "kJ/K"},
		factors: map[string]float64{"J/K": 1, "kJ/K": 1e3}},
	"mass": {def: "g", symbols: []string{"mg", "dg", "g", "hg", "kg"},
		factors: map[string]float64{"mg": 1e-3, "dg": 1e-1, "g": 1, "hg": 1e2, "kg": 1e3}},
	"voltage": {def: "V", symbols: []string{"uV", "mV", "dV", "V", "kV"},
		factors: map[string]float64{"uV": 1e-6, "mV": 1e-3, "dV": 1e-1, "V": 1, "kV": 1e3}},
	"electric_current": {def: "A", symbols: []string{"nA", "uA", "mA", "dA", "A", "kA"},
		factors: map[string]float64{"nA": 1e-9, "uA": 1e-6, "mA": 1e-3, "dA": 1e-1, "A": 1, "kA": 1e3}},
	"inductance": {def: "H", symbols: []string{"nH", "uH", "mH", "H", "kH"},
		factors: map[string]float64{"nH": 1e-9, "uH": 1e-6, "mH": 1e-3, "H": 1, "kH": 1e3}},
	"power": {def: "W", symbols: []string{"uW", "mW", "dW", "W", "hW", "kW"},
		factors: map[string]float64{"uW": 1e-6, "mW": 1e-3, "dW": 1e-1, "W": 1, "hW": 1e2, "kW": 1e3}},
	"resistance": {def: "Ω", symbols: []string{"mΩ", "dΩ", "Ω", "hΩ", "kΩ", "MΩ"},
		factors: map[string]float64{"mΩ": 1e-3, "dΩ": 1e-1, "Ω": 1, "hΩ": 1e2, "kΩ": 1e3, "MΩ": 1e6}},
	"pressure": {def: "Pa", symbols: []string{"Pa", "kPa", "MPa", "GPa"},
		factors: map[string]float64{"Pa": 1, "kPa": 1e3, "MPa": 1e6, "GPa": 1e9}},
	"torque": {def: "Nm", symbols: []string{"Nm", "kNm", "MNm"},
		factors: map[string]float64{"Nm": 1, "kNm": 1e3, "MNm": 1e6}},
	"luminance": {def: "cd/m2", symbols: []string{"cd/m2"},
		factors: map[string]float64{"cd/m2": 1}},
}

// Known reports whether the dimension is in the catalog.
func Known(d Dimension) bool {
	_, ok := catalog[d]
	return ok
}

// Symbols returns the ordered unit symbols for a dimension, or nil for
// an unknown dimension.
func Symbols(d Dimension) []string {
	e, ok := catalog[d]
	if !ok {
		return nil
	}
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Default returns the default (SI-canonical) unit symbol for a
// dimension.
func Default(d Dimension) (string, bool) {
	e, ok := catalog[d]
	return e.def, ok
}

// Convert re-expresses v, given in unit from, in unit to. Both symbols
// must belong to the dimension's symbol list.
func Convert(v float64, from, to string, d Dimension) (float64, error) {
	if from == to {
		return v, nil
	}
	e, ok := catalog[d]
	if !ok {
		return 0, fmt.Errorf("unknown dimension %q", d)
	}
	ff, ok := e.factors[from]
	if !ok {
		return 0, fmt.Errorf("unit %q is not a %s unit", from, d)
	}
	ft, ok := e.factors[to]
	if !ok {
		return 0, fmt.Errorf("unit %q is not a %s unit", to, d)
	}
	return v * ff / ft, nil
}
