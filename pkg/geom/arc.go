// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package geom

import "math"

// chordEpsilon is the squared chord length below which the start and end
// points of an arc are treated as coincident.
const chordEpsilon = 1e-12

// Winding is the direction an arc is traversed in its plane.
type Winding int

const (
	// CW sweeps clockwise (G2).
	CW Winding = iota
	// CCW sweeps counter-clockwise (G3).
	CCW
)

func (w Winding) String() string {
	if w == CW {
		return "cw"
	}
	return "ccw"
}

// CenterFromOffset resolves an arc center from start-relative offsets,
// the I/J/K form. The offsets point from the start position to the center.
func CenterFromOffset(start Vec2, i, j float64) Vec2 {
	return Vec2{start.X + i, start.Y + j}
}

// CenterFromRadius resolves the two candidate centers of an arc given by
// its endpoints and a radius. The candidates are the chord midpoint offset
// along the chord perpendicular by h = sqrt(r^2 - (d/2)^2) on either side.
// A chord longer than the diameter collapses both candidates onto the
// midpoint; a degenerate chord offsets along +Y.
func CenterFromRadius(start, end Vec2, radius float64) (Vec2, Vec2) {
	chord := end.Sub(start)
	d2 := chord.Dot(chord)
	mid := start.Add(chord.Scale(0.5))

	perp := Vec2{0, 1}
	if d2 > chordEpsilon {
		inv := 1.0 / math.Sqrt(d2)
		perp = Vec2{-chord.Y * inv, chord.X * inv}
	}

	r := math.Abs(radius)
	h2 := r*r - d2/4.0
	h := 0.0
	if h2 > 0 {
		h = math.Sqrt(h2)
	}
	return mid.Add(perp.Scale(h)), mid.Sub(perp.Scale(h))
}

// ResolveRadius picks the arc center matching the requested winding from
// the two radius-form candidates and returns it along with the rejected
// candidate. A positive radius selects the short arc, a negative radius
// the long one.
func ResolveRadius(start, end Vec2, radius float64, w Winding) (center, alt Vec2) {
	a, b := CenterFromRadius(start, end, radius)
	center, alt = pickCenter(start, end, w, a, b)
	if radius < 0 {
		center, alt = alt, center
	}
	return center, alt
}

// pickCenter orders two candidate centers so that the first one produces
// a short arc in the requested winding. Candidate order does not affect
// the result.
func pickCenter(start, end Vec2, w Winding, a, b Vec2) (Vec2, Vec2) {
	sa := signedSweep(start, end, a)
	if (w == CW && sa <= 0) || (w == CCW && sa >= 0) {
		return a, b
	}
	return b, a
}

// signedSweep returns the angle from start to end around center wrapped
// to (-pi, pi]. Positive angles are counter-clockwise.
func signedSweep(start, end, center Vec2) float64 {
	rs := start.Sub(center)
	re := end.Sub(center)
	return math.Atan2(rs.Cross(re), rs.Dot(re))
}

// Sweep returns the angular travel from start to end around center,
// forced into the requested winding: negative for CW, positive for CCW.
// Coincident endpoints produce a full circle.
func Sweep(start, end, center Vec2, w Winding) float64 {
	travel := signedSweep(start, end, center)
	if travel < 0 {
		travel += 2 * math.Pi
	}
	if w == CW {
		travel -= 2 * math.Pi
	}
	if travel == 0 {
		chord := end.Sub(start)
		if chord.Dot(chord) <= chordEpsilon {
			if w == CW {
				travel = -2 * math.Pi
			} else {
				travel = 2 * math.Pi
			}
		}
	}
	return travel
}

// ArcLength returns the planar length of the arc from start to end around
// center in the requested winding. The radius is taken from the start
// point, matching how offset-form centers are specified.
func ArcLength(start, end, center Vec2, w Winding) float64 {
	return math.Abs(Sweep(start, end, center, w)) * start.Distance(center)
}
