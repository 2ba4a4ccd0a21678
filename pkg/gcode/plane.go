// Arc plane selection and axis mapping
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

// Plane is the active G17/G18/G19 arc plane.
type Plane int

const (
	// PlaneXY maps arcs onto X/Y with I/J offsets; Z is the helical axis.
	PlaneXY Plane = iota
	// PlaneXZ maps arcs onto X/Z with I/K offsets; Y is the helical axis.
	PlaneXZ
	// PlaneYZ maps arcs onto Y/Z with J/K offsets; X is the helical axis.
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXZ:
		return "G18"
	case PlaneYZ:
		return "G19"
	}
	return "G17"
}

// Point projects a machine position onto the plane's (alpha, beta)
// coordinates.
func (p Plane) Point(v geom.Vec3) geom.Vec2 {
	switch p {
	case PlaneXZ:
		return geom.Vec2{X: v.X, Y: v.Z}
	case PlaneYZ:
		return geom.Vec2{X: v.Y, Y: v.Z}
	}
	return geom.Vec2{X: v.X, Y: v.Y}
}

// Offsets selects the center offset words for the plane: I/J on G17,
// I/K on G18, J/K on G19. It reports false when neither word is
// present; a single present word pairs with zero.
func (p Plane) Offsets(params Params) (alpha, beta float64, ok bool) {
	var a, b byte
	switch p {
	case PlaneXZ:
		a, b = 'I', 'K'
	case PlaneYZ:
		a, b = 'J', 'K'
	default:
		a, b = 'I', 'J'
	}
	if !params.Has(a) && !params.Has(b) {
		return 0, 0, false
	}
	return params.GetOr(a, 0), params.GetOr(b, 0), true
}

// Helical returns the travel along the axis normal to the plane.
func (p Plane) Helical(from, to geom.Vec3) float64 {
	switch p {
	case PlaneXZ:
		return to.Y - from.Y
	case PlaneYZ:
		return to.X - from.X
	}
	return to.Z - from.Z
}

// Lift embeds a plane point back into machine space, taking the
// out-of-plane coordinate from ref.
func (p Plane) Lift(pt geom.Vec2, ref geom.Vec3) geom.Vec3 {
	switch p {
	case PlaneXZ:
		return geom.Vec3{X: pt.X, Y: ref.Y, Z: pt.Y}
	case PlaneYZ:
		return geom.Vec3{X: ref.X, Y: pt.X, Z: pt.Y}
	}
	return geom.Vec3{X: pt.X, Y: pt.Y, Z: ref.Z}
}
