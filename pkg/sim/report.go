// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/energy"
)

// Summary holds the running totals of one simulation pass.
type Summary struct {
	Units         string  `json:"units"`
	RapidDistance float64 `json:"rapid_distance_mm"`
	CutDistance   float64 `json:"cut_distance_mm"`
	DwellTime     float64 `json:"dwell_time_s"`
	TotalTime     float64 `json:"total_time_s"`
	MoveCount     int     `json:"move_count"`
	IssueCount    int     `json:"issue_count"`
	FatalCount    int     `json:"fatal_count"`
}

// Report is the complete outcome of one simulation: every resolved
// move in program order, every diagnostic issue, the distance/time
// totals, and optionally the energy pass results.
type Report struct {
	Moves      []Move          `json:"moves"`
	Issues     []Issue         `json:"issues"`
	Summary    Summary         `json:"summary"`
	Energy     *energy.Summary `json:"energy,omitempty"`
	Timeseries []energy.Point  `json:"timeseries,omitempty"`
}

// HasFatal reports whether any issue makes the program unsafe to run.
func (r *Report) HasFatal() bool {
	return r.Summary.FatalCount > 0
}

// Segments converts the move list into the energy pass input. Segment
// indices refer back to positions in the move list.
func (r *Report) Segments() []energy.Segment {
	segs := make([]energy.Segment, 0, len(r.Moves))
	for i, mv := range r.Moves {
		segs = append(segs, energy.Segment{
			Index:   i,
			Kind:    mv.Kind.String(),
			Cutting: mv.Kind.Cutting(),
			Length:  mv.Length,
			Feed:    mv.Feed,
			Time:    mv.Time,
		})
	}
	return segs
}

// Energize runs the energy model over the report's moves and attaches
// the results, with the per-segment timeseries when requested.
func (r *Report) Energize(model energy.Model, timeseries bool) {
	segs := r.Segments()
	sum := model.Evaluate(segs)
	r.Energy = &sum
	if timeseries {
		r.Timeseries = model.Timeseries(segs)
	}
}
