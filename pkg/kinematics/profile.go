// Trapezoidal velocity profiles for move timing
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package kinematics

import (
	"math"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

const (
	// DefaultAccel is the acceleration assumed by the validation pass,
	// in mm/s^2.
	DefaultAccel = 2000.0

	// DefaultEnergyAccel is the acceleration assumed by the energy
	// pass, in mm/s^2. It is tuned independently of DefaultAccel.
	DefaultEnergyAccel = 800.0
)

// Caps holds the machine feed limits in mm/min.
type Caps struct {
	MaxFeedXY   float64 `yaml:"max_feed_xy" json:"max_feed_xy"`
	RapidFeedXY float64 `yaml:"rapid_feed_xy" json:"rapid_feed_xy"`
}

// DefaultCaps returns limits for a mid-size hobby router.
func DefaultCaps() Caps {
	return Caps{
		MaxFeedXY:   3000.0,
		RapidFeedXY: 7500.0,
	}
}

// ClampFeed limits a cutting feed to the machine maximum. Zero and
// negative feeds pass through for the caller to substitute a default.
func (c Caps) ClampFeed(feed float64) float64 {
	if c.MaxFeedXY > 0 && feed > c.MaxFeedXY {
		return c.MaxFeedXY
	}
	return feed
}

// Profile is the symmetric trapezoidal velocity profile of a single
// straight leg: accelerate for AccelT, cruise for CruiseT, decelerate
// for AccelT again.
type Profile struct {
	AccelT  float64 // seconds
	CruiseT float64 // seconds
	CruiseV float64 // mm/s
}

// Total returns the duration of the profile in seconds.
func (p Profile) Total() float64 {
	return 2*p.AccelT + p.CruiseT
}

// PlanMove computes the velocity profile for a leg of the given length
// at the given feed. If the distance is too short to reach the feed,
// the profile degrades to a triangle with the peak velocity chosen so
// accel and cruise phases meet exactly. feed is mm/min, accel mm/s^2,
// dist mm. Zero accel means instant velocity changes.
func PlanMove(dist, feed, accel float64) Profile {
	if dist < 0 {
		dist = -dist
	}
	v := feed / 60.0
	if dist == 0 || v <= 0 {
		return Profile{}
	}
	if accel <= 0 {
		return Profile{CruiseT: dist / v, CruiseV: v}
	}

	// Velocity reachable when accelerating half way and braking the rest
	maxCruiseV2 := dist * accel
	if maxCruiseV2 < v*v {
		v = math.Sqrt(maxCruiseV2)
	}
	accelT := v / accel
	accelDecelDist := accelT * v
	return Profile{
		AccelT:  accelT,
		CruiseT: (dist - accelDecelDist) / v,
		CruiseV: v,
	}
}

// TravelTime times a 3D displacement by profiling its XY leg and its Z
// leg independently and summing the two durations.
func TravelTime(delta geom.Vec3, feed, accel float64) float64 {
	t := 0.0
	if xy := math.Hypot(delta.X, delta.Y); xy > 0 {
		t += PlanMove(xy, feed, accel).Total()
	}
	if dz := math.Abs(delta.Z); dz > 0 {
		t += PlanMove(dz, feed, accel).Total()
	}
	return t
}

// PathTime times a move of known path length split into a planar leg
// and an out-of-plane leg, as arcs are. Each leg gets its own profile.
func PathTime(planar, helical, feed, accel float64) float64 {
	t := 0.0
	if planar > 0 {
		t += PlanMove(planar, feed, accel).Total()
	}
	if h := math.Abs(helical); h > 0 {
		t += PlanMove(h, feed, accel).Total()
	}
	return t
}

// DwellSeconds interprets a G4 P value: values above 10 are taken as
// milliseconds, everything else as seconds. Negative dwells are
// clamped to zero.
func DwellSeconds(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return p / 1000.0
	}
	return p
}
