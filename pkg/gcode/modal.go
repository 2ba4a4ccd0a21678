// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/pool"
)

// MMPerInch converts G20 coordinates to millimeters.
const MMPerInch = 25.4

// Units is the active G20/G21 input unit system.
type Units int

const (
	UnitsMM Units = iota
	UnitsInch
)

func (u Units) String() string {
	if u == UnitsInch {
		return "inch"
	}
	return "mm"
}

// Positioning is the active G90/G91 coordinate interpretation.
type Positioning int

const (
	PositionAbsolute Positioning = iota
	PositionRelative
)

func (p Positioning) String() string {
	if p == PositionRelative {
		return "relative"
	}
	return "absolute"
}

// FeedMode is the active G93/G94 feed interpretation.
type FeedMode int

const (
	// FeedUnitsPerMin interprets F as distance per minute (G94).
	FeedUnitsPerMin FeedMode = iota
	// FeedInverseTime interprets F as moves per minute (G93).
	FeedInverseTime
)

func (f FeedMode) String() string {
	if f == FeedInverseTime {
		return "inverse_time"
	}
	return "units_per_min"
}

// Motion is the motion command carried by a single block, if any.
type Motion int

const (
	MotionNone Motion = iota
	MotionRapid
	MotionLinear
	MotionArcCW
	MotionArcCCW
	MotionDwell
)

func (m Motion) String() string {
	switch m {
	case MotionRapid:
		return "G0"
	case MotionLinear:
		return "G1"
	case MotionArcCW:
		return "G2"
	case MotionArcCCW:
		return "G3"
	case MotionDwell:
		return "G4"
	}
	return "none"
}

// Params holds the non-modal parameter words of one block: target
// coordinates, arc offsets and dwell times. Values are as written,
// before unit scaling.
type Params struct {
	vals map[byte]float64
}

// Has reports whether the block carried the given letter.
func (p Params) Has(letter byte) bool {
	_, ok := p.vals[letter]
	return ok
}

// Get returns the value of the given letter and whether it was present.
func (p Params) Get(letter byte) (float64, bool) {
	v, ok := p.vals[letter]
	return v, ok
}

// GetOr returns the value of the given letter, or def when absent.
func (p Params) GetOr(letter byte, def float64) float64 {
	if v, ok := p.vals[letter]; ok {
		return v
	}
	return def
}

// Block is the result of applying one line to the modal state: the
// motion command it requested plus its parameter words.
type Block struct {
	Line   int
	Motion Motion
	Params Params
}

// Release returns the block's parameter storage to the shared pool.
// The block must not be read afterwards. Callers that retain blocks
// simply skip the call.
func (b *Block) Release() {
	pool.PutParamsMap(b.Params.vals)
	b.Params.vals = nil
}

// ModalState tracks the sticky interpreter state across lines. Position
// is always absolute millimeters regardless of the active units and
// positioning modes.
type ModalState struct {
	Units       Units
	Positioning Positioning
	Plane       Plane
	FeedMode    FeedMode

	// Feed is the sticky F value. In units-per-minute mode it is stored
	// in mm/min; in inverse-time mode it is the raw 1/min value.
	Feed float64

	SpindleRPM float64
	SpindleOn  bool
	Tool       int

	Position geom.Vec3
}

// NewModalState returns the power-on state: millimeters, absolute
// positioning, XY plane, units-per-minute feed, spindle off, origin.
func NewModalState() *ModalState {
	return &ModalState{}
}

// Scale returns the multiplier from the active input units to
// millimeters.
func (m *ModalState) Scale() float64 {
	if m.Units == UnitsInch {
		return MMPerInch
	}
	return 1.0
}

// ApplyLine consumes one line's words in order. Modal words (units,
// positioning, plane, feed mode, F, S, T, spindle M-codes) update the
// state immediately; parameter words are collected into the returned
// Block along with the motion command, if the line carried one.
// Unrecognized words are ignored.
func (m *ModalState) ApplyLine(words []Word, line int) Block {
	block := Block{Line: line, Params: Params{vals: pool.GetParamsMap()}}

	for _, w := range words {
		switch w.Letter {
		case 'G':
			m.applyG(w.Value, &block)
		case 'M':
			m.applyM(w.Value)
		case 'F':
			if w.Value < 0 {
				break
			}
			if m.FeedMode == FeedUnitsPerMin {
				m.Feed = w.Value * m.Scale()
			} else {
				m.Feed = w.Value
			}
		case 'S':
			if w.Value >= 0 {
				m.SpindleRPM = w.Value
			}
		case 'T':
			m.Tool = int(w.Value)
		case 'X', 'Y', 'Z', 'I', 'J', 'K', 'R', 'P':
			block.Params.vals[w.Letter] = w.Value
		}
	}
	return block
}

func (m *ModalState) applyG(value float64, block *Block) {
	code := int(value)
	if float64(code) != value {
		// Fractional codes (G38.2 etc.) are not modeled
		return
	}
	switch code {
	case 0:
		block.Motion = MotionRapid
	case 1:
		block.Motion = MotionLinear
	case 2:
		block.Motion = MotionArcCW
	case 3:
		block.Motion = MotionArcCCW
	case 4:
		block.Motion = MotionDwell
	case 17:
		m.Plane = PlaneXY
	case 18:
		m.Plane = PlaneXZ
	case 19:
		m.Plane = PlaneYZ
	case 20:
		m.Units = UnitsInch
	case 21:
		m.Units = UnitsMM
	case 90:
		m.Positioning = PositionAbsolute
	case 91:
		m.Positioning = PositionRelative
	case 93:
		m.FeedMode = FeedInverseTime
	case 94:
		m.FeedMode = FeedUnitsPerMin
	}
}

func (m *ModalState) applyM(value float64) {
	switch int(value) {
	case 3, 4:
		m.SpindleOn = true
	case 5:
		m.SpindleOn = false
	}
}

// Target resolves the X/Y/Z words of a block against the current
// position, honoring the active units and positioning modes. Axes
// without a word keep their current coordinate.
func (m *ModalState) Target(p Params) geom.Vec3 {
	scale := m.Scale()
	pos := m.Position
	if v, ok := p.Get('X'); ok {
		pos.X = m.resolveAxis(pos.X, v*scale)
	}
	if v, ok := p.Get('Y'); ok {
		pos.Y = m.resolveAxis(pos.Y, v*scale)
	}
	if v, ok := p.Get('Z'); ok {
		pos.Z = m.resolveAxis(pos.Z, v*scale)
	}
	return pos
}

func (m *ModalState) resolveAxis(current, scaled float64) float64 {
	if m.Positioning == PositionRelative {
		return current + scaled
	}
	return scaled
}

// EffectiveFeed converts the sticky feed into mm/min for a move of the
// given length. In inverse-time mode the whole move takes 1/F minutes,
// so the equivalent feed scales with the move length.
func (m *ModalState) EffectiveFeed(dist float64) float64 {
	if m.FeedMode == FeedInverseTime {
		return dist * m.Feed
	}
	return m.Feed
}
