// Cutting energy and power estimation
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package energy

// DefaultToolDiameter is assumed when no tool is configured, in mm.
const DefaultToolDiameter = 6.0

// DefaultFeedFraction is the share of the machine's maximum feed
// assumed for cutting segments that never saw an F word.
const DefaultFeedFraction = 0.80

// Segment is one resolved toolpath leg as seen by the energy pass.
type Segment struct {
	Index   int     `json:"index"`
	Kind    string  `json:"kind"`
	Cutting bool    `json:"cutting"`
	Length  float64 `json:"length_mm"`
	Feed    float64 `json:"feed_mm_min"`
	Time    float64 `json:"time_s"`
}

// Point is one timeseries sample, emitted per segment.
type Point struct {
	Index  int     `json:"index"`
	Kind   string  `json:"kind"`
	Length float64 `json:"length_mm"`
	Time   float64 `json:"time_s"`
	MRR    float64 `json:"mrr_mm3_min"`
	Power  float64 `json:"power_w"`
}

// Summary aggregates the energy pass over a whole program.
type Summary struct {
	SweptVolume     float64 `json:"swept_volume_mm3"`
	TotalEnergy     float64 `json:"total_energy_j"`
	ChipEnergy      float64 `json:"chip_energy_j"`
	ToolEnergy      float64 `json:"tool_energy_j"`
	WorkpieceEnergy float64 `json:"workpiece_energy_j"`
	AvgPower        float64 `json:"avg_power_w"`
	PeakPower       float64 `json:"peak_power_w"`
	CutTime         float64 `json:"cut_time_s"`
	CutLength       float64 `json:"cut_length_mm"`
}

// Model evaluates segments against one material and engagement setup.
// The zero value is not useful; construct with NewModel.
type Model struct {
	Material     MaterialProfile
	Engagement   EngagementModel
	ToolDiameter float64
}

// NewModel returns a model with the material splits normalized and
// missing fields defaulted.
func NewModel(mat MaterialProfile, eng EngagementModel, toolDiameter float64) Model {
	if toolDiameter <= 0 {
		toolDiameter = DefaultToolDiameter
	}
	return Model{
		Material:     mat.Normalized(),
		Engagement:   eng,
		ToolDiameter: toolDiameter,
	}
}

// WidthOfCut is the radial engagement width: tool diameter times the
// stepover fraction.
func (m Model) WidthOfCut() float64 {
	return m.ToolDiameter * m.Engagement.Stepover
}

// MRR is the material removal rate at the given feed, in mm^3/min.
func (m Model) MRR(feed float64) float64 {
	return m.WidthOfCut() * m.Engagement.Stepdown * feed * (m.Engagement.EngagementPct / 100.0)
}

// segmentEnergy returns the swept volume and energy of one cutting
// segment. The volume sweep is purely geometric; the engagement
// percentage only shapes the removal rate.
func (m Model) segmentEnergy(s Segment) (volume, joules float64) {
	volume = s.Length * m.WidthOfCut() * m.Engagement.Stepdown
	joules = volume * m.Material.SpecificCuttingEnergy
	return volume, joules
}

// Evaluate aggregates all cutting segments into a Summary. Rapid and
// dwell segments contribute nothing.
func (m Model) Evaluate(segs []Segment) Summary {
	var sum Summary
	for _, s := range segs {
		if !s.Cutting {
			continue
		}
		volume, joules := m.segmentEnergy(s)
		sum.SweptVolume += volume
		sum.TotalEnergy += joules
		sum.CutTime += s.Time
		sum.CutLength += s.Length

		if s.Time > 0 {
			if power := joules / s.Time; power > sum.PeakPower {
				sum.PeakPower = power
			}
		}
	}
	if sum.CutTime > 0 {
		sum.AvgPower = sum.TotalEnergy / sum.CutTime
	}

	sum.ChipEnergy = sum.TotalEnergy * m.Material.ChipFraction
	sum.ToolEnergy = sum.TotalEnergy * m.Material.ToolFraction
	sum.WorkpieceEnergy = sum.TotalEnergy * m.Material.WorkpieceFraction
	return sum
}

// Timeseries emits one sample per segment, in input order. Non-cutting
// segments appear with zero removal rate and power so the series stays
// aligned with the move list.
func (m Model) Timeseries(segs []Segment) []Point {
	points := make([]Point, 0, len(segs))
	for _, s := range segs {
		p := Point{
			Index:  s.Index,
			Kind:   s.Kind,
			Length: s.Length,
			Time:   s.Time,
		}
		if s.Cutting {
			_, joules := m.segmentEnergy(s)
			p.MRR = m.MRR(s.Feed)
			if s.Time > 0 {
				p.Power = joules / s.Time
			}
		}
		points = append(points, p)
	}
	return points
}
