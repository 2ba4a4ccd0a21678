package geom

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestCenterFromOffset(t *testing.T) {
	c := CenterFromOffset(Vec2{10, 20}, 5, -3)
	if !almostEqual(c.X, 15) || !almostEqual(c.Y, 17) {
		t.Errorf("unexpected center: %+v", c)
	}
}

func TestCenterFromRadiusCandidates(t *testing.T) {
	// Chord of length 10 along X, radius 10: h = sqrt(100-25)
	a, b := CenterFromRadius(Vec2{0, 0}, Vec2{10, 0}, 10)
	h := math.Sqrt(75)

	if !almostEqual(a.X, 5) || !almostEqual(a.Y, h) {
		t.Errorf("unexpected first candidate: %+v", a)
	}
	if !almostEqual(b.X, 5) || !almostEqual(b.Y, -h) {
		t.Errorf("unexpected second candidate: %+v", b)
	}
}

func TestCenterFromRadiusHalfCircle(t *testing.T) {
	// Chord equals diameter: both candidates collapse onto the midpoint
	a, b := CenterFromRadius(Vec2{0, 0}, Vec2{10, 0}, 5)
	if !almostEqual(a.X, 5) || !almostEqual(a.Y, 0) {
		t.Errorf("unexpected candidate: %+v", a)
	}
	if !almostEqual(b.X, 5) || !almostEqual(b.Y, 0) {
		t.Errorf("unexpected candidate: %+v", b)
	}
}

func TestCenterFromRadiusOversizedChord(t *testing.T) {
	// Chord longer than the diameter: clamped onto the midpoint rather
	// than producing NaN
	a, b := CenterFromRadius(Vec2{0, 0}, Vec2{10, 0}, 2)
	if math.IsNaN(a.Y) || math.IsNaN(b.Y) {
		t.Fatal("oversized chord produced NaN center")
	}
	if !almostEqual(a.X, 5) || !almostEqual(a.Y, 0) {
		t.Errorf("unexpected candidate: %+v", a)
	}
}

func TestCenterFromRadiusDegenerateChord(t *testing.T) {
	a, b := CenterFromRadius(Vec2{3, 4}, Vec2{3, 4}, 2)
	if !almostEqual(a.X, 3) || !almostEqual(a.Y, 6) {
		t.Errorf("unexpected first candidate: %+v", a)
	}
	if !almostEqual(b.X, 3) || !almostEqual(b.Y, 2) {
		t.Errorf("unexpected second candidate: %+v", b)
	}
}

func TestResolveRadiusWinding(t *testing.T) {
	start := Vec2{0, 0}
	end := Vec2{10, 0}

	// CCW short arc bulges below the chord so the center sits above it
	center, alt := ResolveRadius(start, end, 10, CCW)
	if center.Y <= 0 {
		t.Errorf("ccw center should be above chord, got %+v", center)
	}
	if alt.Y >= 0 {
		t.Errorf("rejected candidate should be below chord, got %+v", alt)
	}

	center, _ = ResolveRadius(start, end, 10, CW)
	if center.Y >= 0 {
		t.Errorf("cw center should be below chord, got %+v", center)
	}
}

func TestResolveRadiusNegative(t *testing.T) {
	start := Vec2{0, 0}
	end := Vec2{10, 0}

	pos, _ := ResolveRadius(start, end, 10, CCW)
	neg, _ := ResolveRadius(start, end, -10, CCW)

	if almostEqual(pos.Y, neg.Y) {
		t.Fatal("negative radius should select the opposite candidate")
	}

	// The negative radius arc is the long way around
	short := ArcLength(start, end, pos, CCW)
	long := ArcLength(start, end, neg, CCW)
	if long <= short {
		t.Errorf("long arc %.3f should exceed short arc %.3f", long, short)
	}
}

func TestPickCenterOrderInvariant(t *testing.T) {
	start := Vec2{0, 0}
	end := Vec2{10, 0}
	a, b := CenterFromRadius(start, end, 10)

	c1, _ := pickCenter(start, end, CCW, a, b)
	c2, _ := pickCenter(start, end, CCW, b, a)
	if c1 != c2 {
		t.Errorf("candidate order changed selection: %+v vs %+v", c1, c2)
	}

	l1 := ArcLength(start, end, c1, CCW)
	l2 := ArcLength(start, end, c2, CCW)
	if !almostEqual(l1, l2) {
		t.Errorf("candidate order changed arc length: %.9f vs %.9f", l1, l2)
	}
}

func TestSweepQuarters(t *testing.T) {
	center := Vec2{0, 0}
	start := Vec2{5, 0}
	end := Vec2{0, 5}

	ccw := Sweep(start, end, center, CCW)
	if !almostEqual(ccw, math.Pi/2) {
		t.Errorf("ccw quarter sweep = %.9f, want %.9f", ccw, math.Pi/2)
	}

	// Same endpoints clockwise go the long way around
	cw := Sweep(start, end, center, CW)
	if !almostEqual(cw, -3*math.Pi/2) {
		t.Errorf("cw sweep = %.9f, want %.9f", cw, -3*math.Pi/2)
	}
}

func TestSweepFullCircle(t *testing.T) {
	center := Vec2{5, 0}
	p := Vec2{0, 0}

	if got := Sweep(p, p, center, CW); !almostEqual(got, -2*math.Pi) {
		t.Errorf("cw full circle sweep = %.9f", got)
	}
	if got := Sweep(p, p, center, CCW); !almostEqual(got, 2*math.Pi) {
		t.Errorf("ccw full circle sweep = %.9f", got)
	}
}

func TestArcLengthHalfCircle(t *testing.T) {
	// G2 X10 Y0 I5 J0 from the origin: half circle of radius 5
	start := Vec2{0, 0}
	end := Vec2{10, 0}
	center := CenterFromOffset(start, 5, 0)

	got := ArcLength(start, end, center, CW)
	want := math.Pi * 5
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("half circle length = %.9f, want %.9f", got, want)
	}
}

func TestArcLengthQuarter(t *testing.T) {
	start := Vec2{10, 0}
	end := Vec2{0, 10}
	center := Vec2{0, 0}

	got := ArcLength(start, end, center, CCW)
	want := math.Pi * 10 / 2
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("quarter arc length = %.9f, want %.9f", got, want)
	}
}

func TestWindingString(t *testing.T) {
	if CW.String() != "cw" || CCW.String() != "ccw" {
		t.Errorf("unexpected winding strings: %s %s", CW, CCW)
	}
}
