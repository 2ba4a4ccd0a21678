// Unit tests for envelope and clearance validation
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package safety

import (
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

func testEnvelope() Envelope {
	return Envelope{
		X: Range{Min: 0, Max: 100},
		Y: Range{Min: 0, Max: 100},
		Z: Range{Min: -20, Max: 50},
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 0, Max: 100}

	cases := []struct {
		v    float64
		want bool
	}{
		{50, true},
		{0, true},
		{100, true},
		{-0.0000001, true}, // inside tolerance
		{100.0000001, true},
		{-1, false},
		{101, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.v); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEnvelopeCheck(t *testing.T) {
	env := testEnvelope()

	if v := env.Check(geom.Vec3{X: 50, Y: 50, Z: 0}); v != nil {
		t.Errorf("in-bounds position flagged: %v", v)
	}

	// One axis out: exactly one violation
	v := env.Check(geom.Vec3{X: 150, Y: 50, Z: 0})
	if len(v) != 1 {
		t.Fatalf("expected 1 violation, got %v", v)
	}
	if v[0].Axis != 'X' || v[0].Value != 150 {
		t.Errorf("violation = %+v", v[0])
	}

	// All axes out
	v = env.Check(geom.Vec3{X: -5, Y: 200, Z: -100})
	if len(v) != 3 {
		t.Errorf("expected 3 violations, got %v", v)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{Axis: 'Z', Value: -25.5, Limit: Range{Min: -20, Max: 50}}
	want := "Z=-25.500 outside [-20.000, 50.000]"
	if got := v.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRapidNeedsLift(t *testing.T) {
	v := NewValidator(testEnvelope(), 5.0)

	cases := []struct {
		name  string
		start geom.Vec3
		end   geom.Vec3
		want  bool
	}{
		{"below clearance with xy travel", geom.Vec3{X: 0, Y: 0, Z: -5}, geom.Vec3{X: 50, Y: 50, Z: -5}, true},
		{"at clearance", geom.Vec3{X: 0, Y: 0, Z: 5}, geom.Vec3{X: 50, Y: 50, Z: 5}, false},
		{"above clearance", geom.Vec3{X: 0, Y: 0, Z: 20}, geom.Vec3{X: 50, Y: 50, Z: 20}, false},
		{"pure z plunge", geom.Vec3{X: 10, Y: 10, Z: 2}, geom.Vec3{X: 10, Y: 10, Z: -5}, false},
		{"below clearance no travel", geom.Vec3{X: 10, Y: 10, Z: -5}, geom.Vec3{X: 10, Y: 10, Z: -5}, false},
	}
	for _, c := range cases {
		if got := v.RapidNeedsLift(c.start, c.end); got != c.want {
			t.Errorf("%s: RapidNeedsLift = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestLiftWaypoints(t *testing.T) {
	v := NewValidator(testEnvelope(), 5.0)

	start := geom.Vec3{X: 0, Y: 0, Z: -5}
	end := geom.Vec3{X: 50, Y: 50, Z: -5}
	wps := v.LiftWaypoints(start, end)

	if wps[0] != (geom.Vec3{X: 0, Y: 0, Z: 5}) {
		t.Errorf("lift waypoint = %+v", wps[0])
	}
	if wps[1] != (geom.Vec3{X: 50, Y: 50, Z: 5}) {
		t.Errorf("traverse waypoint = %+v", wps[1])
	}
	if wps[2] != end {
		t.Errorf("descend waypoint = %+v", wps[2])
	}
}

func TestValidatorStatus(t *testing.T) {
	v := NewValidator(DefaultEnvelope(), DefaultClearanceZ)

	status := v.GetStatus()
	if status["clearance_z"] != 5.0 {
		t.Errorf("clearance_z = %v", status["clearance_z"])
	}
	if _, ok := status["envelope"]; !ok {
		t.Error("status missing envelope")
	}
}
