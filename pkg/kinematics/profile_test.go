// Unit tests for trapezoidal move timing
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package kinematics

import (
	"math"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

func TestPlanMoveTrapezoid(t *testing.T) {
	// 20mm at 600 mm/min (10 mm/s), 2000 mm/s^2
	p := PlanMove(20, 600, 2000)

	if math.Abs(p.CruiseV-10) > 1e-9 {
		t.Errorf("cruise velocity = %v, want 10", p.CruiseV)
	}
	if math.Abs(p.AccelT-0.005) > 1e-9 {
		t.Errorf("accel time = %v, want 0.005", p.AccelT)
	}
	if math.Abs(p.CruiseT-1.995) > 1e-9 {
		t.Errorf("cruise time = %v, want 1.995", p.CruiseT)
	}
	if math.Abs(p.Total()-2.005) > 1e-9 {
		t.Errorf("total = %v, want 2.005", p.Total())
	}
}

func TestPlanMoveTriangle(t *testing.T) {
	// Too short to reach 10 mm/s: peak limited to sqrt(dist*accel)
	p := PlanMove(0.01, 600, 2000)

	wantV := math.Sqrt(0.01 * 2000)
	if math.Abs(p.CruiseV-wantV) > 1e-9 {
		t.Errorf("peak velocity = %v, want %v", p.CruiseV, wantV)
	}
	if math.Abs(p.CruiseT) > 1e-9 {
		t.Errorf("triangle should have no cruise phase, got %v", p.CruiseT)
	}
	if math.Abs(p.Total()-2*wantV/2000) > 1e-9 {
		t.Errorf("total = %v", p.Total())
	}
}

func TestPlanMoveContinuityAtBoundary(t *testing.T) {
	// The trapezoid collapses to a triangle exactly at d = v^2/a.
	// Total time must be continuous across that distance.
	feed := 600.0
	accel := 2000.0
	v := feed / 60.0
	boundary := v * v / accel

	eps := 1e-9
	below := PlanMove(boundary-eps, feed, accel).Total()
	at := PlanMove(boundary, feed, accel).Total()
	above := PlanMove(boundary+eps, feed, accel).Total()

	if math.Abs(at-below) > 1e-6 || math.Abs(above-at) > 1e-6 {
		t.Errorf("discontinuity at boundary: below=%v at=%v above=%v", below, at, above)
	}
	if p := PlanMove(boundary, feed, accel); math.Abs(p.CruiseT) > 1e-9 {
		t.Errorf("boundary profile should have zero cruise, got %v", p.CruiseT)
	}
}

func TestPlanMoveMonotonic(t *testing.T) {
	prev := 0.0
	for _, d := range []float64{0.001, 0.01, 0.1, 1, 10, 100, 1000} {
		total := PlanMove(d, 1200, 2000).Total()
		if total <= prev {
			t.Errorf("time not increasing at distance %v: %v <= %v", d, total, prev)
		}
		prev = total
	}
}

func TestPlanMoveEdgeCases(t *testing.T) {
	if p := PlanMove(0, 600, 2000); p.Total() != 0 {
		t.Errorf("zero distance time = %v", p.Total())
	}
	if p := PlanMove(10, 0, 2000); p.Total() != 0 {
		t.Errorf("zero feed time = %v", p.Total())
	}
	if p := PlanMove(-20, 600, 2000); math.Abs(p.Total()-2.005) > 1e-9 {
		t.Errorf("negative distance not folded: %v", p.Total())
	}

	// Zero accel: pure cruise
	p := PlanMove(10, 600, 0)
	if p.AccelT != 0 || math.Abs(p.CruiseT-1.0) > 1e-9 {
		t.Errorf("zero accel profile = %+v", p)
	}
}

func TestTravelTimeSplitsLegs(t *testing.T) {
	feed := 600.0
	accel := 2000.0

	xyOnly := TravelTime(geom.Vec3{X: 30, Y: 40}, feed, accel)
	zOnly := TravelTime(geom.Vec3{Z: 10}, feed, accel)
	both := TravelTime(geom.Vec3{X: 30, Y: 40, Z: 10}, feed, accel)

	if math.Abs(both-(xyOnly+zOnly)) > 1e-9 {
		t.Errorf("combined time %v != %v + %v", both, xyOnly, zOnly)
	}

	wantXY := PlanMove(50, feed, accel).Total()
	if math.Abs(xyOnly-wantXY) > 1e-9 {
		t.Errorf("xy time = %v, want %v", xyOnly, wantXY)
	}
}

func TestTravelTimeZeroDelta(t *testing.T) {
	if got := TravelTime(geom.Vec3{}, 600, 2000); got != 0 {
		t.Errorf("zero delta time = %v", got)
	}
}

func TestPathTime(t *testing.T) {
	feed := 600.0
	accel := 2000.0

	want := PlanMove(15.708, feed, accel).Total() + PlanMove(4, feed, accel).Total()
	got := PathTime(15.708, -4, feed, accel)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("path time = %v, want %v", got, want)
	}

	if got := PathTime(10, 0, feed, accel); math.Abs(got-PlanMove(10, feed, accel).Total()) > 1e-9 {
		t.Errorf("planar-only path time = %v", got)
	}
}

func TestDwellSeconds(t *testing.T) {
	cases := []struct {
		p    float64
		want float64
	}{
		{0.5, 0.5},    // small values are seconds
		{10, 10},      // boundary stays seconds
		{10.5, 0.0105},
		{500, 0.5},    // large values are milliseconds
		{2000, 2.0},
		{-3, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := DwellSeconds(c.p); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("DwellSeconds(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestClampFeed(t *testing.T) {
	caps := DefaultCaps()

	if got := caps.ClampFeed(5000); got != caps.MaxFeedXY {
		t.Errorf("clamped feed = %v", got)
	}
	if got := caps.ClampFeed(600); got != 600 {
		t.Errorf("unclamped feed = %v", got)
	}
	if got := caps.ClampFeed(0); got != 0 {
		t.Errorf("zero feed = %v", got)
	}
}

func BenchmarkPlanMove(b *testing.B) {
	for i := 0; i < b.N; i++ {
		PlanMove(42.5, 1800, 2000)
	}
}
