// Package energy estimates cutting energy and power from resolved
// toolpath segments. Per-segment material removal rates are derived
// from the engagement model, converted to energy through the material's
// specific cutting energy, and split into chip, tool and workpiece
// shares.
package energy

// MaterialProfile describes how a stock material consumes cutting
// energy. The three split fractions are normalized to sum to 1 before
// use.
type MaterialProfile struct {
	Name string `yaml:"name" json:"name"`

	// SpecificCuttingEnergy is the energy to remove one mm^3, in J/mm^3.
	SpecificCuttingEnergy float64 `yaml:"specific_cutting_energy" json:"specific_cutting_energy"`

	ChipFraction      float64 `yaml:"chip_fraction" json:"chip_fraction"`
	ToolFraction      float64 `yaml:"tool_fraction" json:"tool_fraction"`
	WorkpieceFraction float64 `yaml:"workpiece_fraction" json:"workpiece_fraction"`
}

// DefaultMaterial returns the hardwood profile used when no material is
// selected.
func DefaultMaterial() MaterialProfile {
	return MaterialProfile{
		Name:                  "hardwood",
		SpecificCuttingEnergy: 0.18,
		ChipFraction:          0.60,
		ToolFraction:          0.25,
		WorkpieceFraction:     0.15,
	}
}

// BuiltinMaterials returns the stock material library, keyed by name.
func BuiltinMaterials() map[string]MaterialProfile {
	return map[string]MaterialProfile{
		"hardwood": DefaultMaterial(),
		"softwood": {
			Name:                  "softwood",
			SpecificCuttingEnergy: 0.08,
			ChipFraction:          0.65,
			ToolFraction:          0.20,
			WorkpieceFraction:     0.15,
		},
		"acrylic": {
			Name:                  "acrylic",
			SpecificCuttingEnergy: 0.35,
			ChipFraction:          0.55,
			ToolFraction:          0.20,
			WorkpieceFraction:     0.25,
		},
		"aluminum": {
			Name:                  "aluminum",
			SpecificCuttingEnergy: 0.80,
			ChipFraction:          0.75,
			ToolFraction:          0.15,
			WorkpieceFraction:     0.10,
		},
	}
}

// Normalized returns a copy with the split fractions scaled to sum to
// 1. A degenerate sum falls back to equal thirds.
func (m MaterialProfile) Normalized() MaterialProfile {
	sum := m.ChipFraction + m.ToolFraction + m.WorkpieceFraction
	if sum <= 0 {
		m.ChipFraction = 1.0 / 3
		m.ToolFraction = 1.0 / 3
		m.WorkpieceFraction = 1.0 / 3
		return m
	}
	m.ChipFraction /= sum
	m.ToolFraction /= sum
	m.WorkpieceFraction /= sum
	return m
}

// EngagementModel describes how much of the tool is buried in stock
// during cutting moves.
type EngagementModel struct {
	// Stepover is the radial engagement as a fraction of tool diameter.
	Stepover float64 `yaml:"stepover" json:"stepover"`

	// Stepdown is the axial depth of cut in mm.
	Stepdown float64 `yaml:"stepdown" json:"stepdown"`

	// EngagementPct enters the removal-rate formula divided by 100.
	EngagementPct float64 `yaml:"engagement_pct" json:"engagement_pct"`

	// Climb selects climb over conventional milling. It does not change
	// the energy numbers, only the reported setup.
	Climb bool `yaml:"climb" json:"climb"`
}

// DefaultEngagement returns the profiling-pass engagement assumptions.
func DefaultEngagement() EngagementModel {
	return EngagementModel{
		Stepover:      0.45,
		Stepdown:      2.0,
		EngagementPct: 0.6,
		Climb:         true,
	}
}
