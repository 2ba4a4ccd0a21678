// Machine envelope and rapid clearance validation
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package safety

import (
	"fmt"
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

// Tolerance is the slack applied to envelope and clearance comparisons,
// in millimeters.
const Tolerance = 1e-6

// DefaultClearanceZ is the height rapids must hold while traversing, in
// millimeters above Z zero.
const DefaultClearanceZ = 5.0

// Range is one axis of the machine envelope.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the range, within Tolerance.
func (r Range) Contains(v float64) bool {
	return v >= r.Min-Tolerance && v <= r.Max+Tolerance
}

// Envelope is the reachable machine volume.
type Envelope struct {
	X Range `yaml:"x" json:"x"`
	Y Range `yaml:"y" json:"y"`
	Z Range `yaml:"z" json:"z"`
}

// DefaultEnvelope covers a mid-size router table.
func DefaultEnvelope() Envelope {
	return Envelope{
		X: Range{Min: 0, Max: 1200},
		Y: Range{Min: 0, Max: 800},
		Z: Range{Min: -100, Max: 150},
	}
}

// Violation records one axis of a position falling outside the
// envelope.
type Violation struct {
	Axis  byte
	Value float64
	Limit Range
}

func (v Violation) String() string {
	return fmt.Sprintf("%c=%.3f outside [%.3f, %.3f]", v.Axis, v.Value, v.Limit.Min, v.Limit.Max)
}

// Check returns one violation per axis of p outside the envelope. An
// in-bounds position returns nil.
func (e Envelope) Check(p geom.Vec3) []Violation {
	var out []Violation
	if !e.X.Contains(p.X) {
		out = append(out, Violation{Axis: 'X', Value: p.X, Limit: e.X})
	}
	if !e.Y.Contains(p.Y) {
		out = append(out, Violation{Axis: 'Y', Value: p.Y, Limit: e.Y})
	}
	if !e.Z.Contains(p.Z) {
		out = append(out, Violation{Axis: 'Z', Value: p.Z, Limit: e.Z})
	}
	return out
}

// Validator checks commanded targets against the envelope and rewrites
// rapids that would drag the tool below the clearance plane.
type Validator struct {
	envelope   Envelope
	clearanceZ float64
}

// NewValidator returns a validator for the given envelope and rapid
// clearance height.
func NewValidator(env Envelope, clearanceZ float64) *Validator {
	return &Validator{envelope: env, clearanceZ: clearanceZ}
}

// Envelope returns the configured machine envelope.
func (v *Validator) Envelope() Envelope {
	return v.envelope
}

// ClearanceZ returns the configured rapid clearance height.
func (v *Validator) ClearanceZ() float64 {
	return v.clearanceZ
}

// CheckTarget validates a commanded absolute target position.
func (v *Validator) CheckTarget(p geom.Vec3) []Violation {
	return v.envelope.Check(p)
}

// RapidNeedsLift reports whether a rapid starting below the clearance
// plane traverses in XY. Pure Z moves and rapids already at clearance
// height are safe.
func (v *Validator) RapidNeedsLift(start, end geom.Vec3) bool {
	if start.Z >= v.clearanceZ-Tolerance {
		return false
	}
	dx := math.Abs(end.X - start.X)
	dy := math.Abs(end.Y - start.Y)
	return dx > Tolerance || dy > Tolerance
}

// LiftWaypoints rewrites an unsafe rapid into three legs: lift to the
// clearance plane, traverse at clearance height, then descend to the
// commanded target.
func (v *Validator) LiftWaypoints(start, end geom.Vec3) [3]geom.Vec3 {
	return [3]geom.Vec3{
		{X: start.X, Y: start.Y, Z: v.clearanceZ},
		{X: end.X, Y: end.Y, Z: v.clearanceZ},
		end,
	}
}

// GetStatus returns the validator configuration for status reporting.
func (v *Validator) GetStatus() map[string]any {
	return map[string]any{
		"envelope": map[string]any{
			"x": []float64{v.envelope.X.Min, v.envelope.X.Max},
			"y": []float64{v.envelope.Y.Min, v.envelope.Y.Max},
			"z": []float64{v.envelope.Z.Min, v.envelope.Z.Max},
		},
		"clearance_z": v.clearanceZ,
	}
}
