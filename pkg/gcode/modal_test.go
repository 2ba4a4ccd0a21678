package gcode

import (
	"math"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

func apply(t *testing.T, m *ModalState, line string) Block {
	t.Helper()
	return m.ApplyLine(ParseLine(line), 1)
}

func TestModalDefaults(t *testing.T) {
	m := NewModalState()
	if m.Units != UnitsMM {
		t.Errorf("default units = %v", m.Units)
	}
	if m.Positioning != PositionAbsolute {
		t.Errorf("default positioning = %v", m.Positioning)
	}
	if m.Plane != PlaneXY {
		t.Errorf("default plane = %v", m.Plane)
	}
	if m.FeedMode != FeedUnitsPerMin {
		t.Errorf("default feed mode = %v", m.FeedMode)
	}
	if m.Scale() != 1.0 {
		t.Errorf("default scale = %v", m.Scale())
	}
}

func TestModalUnits(t *testing.T) {
	m := NewModalState()
	apply(t, m, "G20")
	if m.Units != UnitsInch || m.Scale() != MMPerInch {
		t.Errorf("G20: units=%v scale=%v", m.Units, m.Scale())
	}

	b := apply(t, m, "G0 X1")
	target := m.Target(b.Params)
	if target.X != 25.4 {
		t.Errorf("inch target X = %v, want 25.4", target.X)
	}

	apply(t, m, "G21")
	if m.Units != UnitsMM {
		t.Errorf("G21: units=%v", m.Units)
	}
}

func TestModalFeedScaling(t *testing.T) {
	m := NewModalState()
	apply(t, m, "F100")
	if m.Feed != 100 {
		t.Errorf("mm feed = %v", m.Feed)
	}

	// F after G20 on the same line is interpreted in inches/min
	apply(t, m, "G20 F10")
	if m.Feed != 254 {
		t.Errorf("inch feed = %v, want 254", m.Feed)
	}
}

func TestModalStickyFeed(t *testing.T) {
	m := NewModalState()
	apply(t, m, "G1 X10 F600")
	apply(t, m, "G1 Y10")
	if m.Feed != 600 {
		t.Errorf("feed did not stick: %v", m.Feed)
	}
}

func TestModalNegativeFeedIgnored(t *testing.T) {
	m := NewModalState()
	apply(t, m, "F600")
	apply(t, m, "F-100")
	if m.Feed != 600 {
		t.Errorf("negative feed not ignored: %v", m.Feed)
	}
}

func TestModalRelativePositioning(t *testing.T) {
	m := NewModalState()
	apply(t, m, "G91")

	b := apply(t, m, "G1 X10")
	m.Position = m.Target(b.Params)
	b = apply(t, m, "G1 X10 Y-5")
	m.Position = m.Target(b.Params)

	if m.Position.X != 20 || m.Position.Y != -5 {
		t.Errorf("relative position = %+v", m.Position)
	}

	apply(t, m, "G90")
	b = apply(t, m, "G1 X3")
	if got := m.Target(b.Params); got.X != 3 {
		t.Errorf("absolute target X = %v", got.X)
	}
}

func TestModalTargetKeepsMissingAxes(t *testing.T) {
	m := NewModalState()
	m.Position = geom.Vec3{X: 1, Y: 2, Z: 3}

	b := apply(t, m, "G1 Y9")
	got := m.Target(b.Params)
	if got.X != 1 || got.Y != 9 || got.Z != 3 {
		t.Errorf("target = %+v", got)
	}
}

func TestModalPlaneSelection(t *testing.T) {
	m := NewModalState()
	apply(t, m, "G18")
	if m.Plane != PlaneXZ {
		t.Errorf("plane = %v", m.Plane)
	}
	apply(t, m, "G19")
	if m.Plane != PlaneYZ {
		t.Errorf("plane = %v", m.Plane)
	}
	apply(t, m, "G17")
	if m.Plane != PlaneXY {
		t.Errorf("plane = %v", m.Plane)
	}
}

func TestModalInverseTimeFeed(t *testing.T) {
	m := NewModalState()
	apply(t, m, "G93 F2")

	// A 30mm move at F2 takes half a minute: effective 60 mm/min
	if got := m.EffectiveFeed(30); math.Abs(got-60) > 1e-9 {
		t.Errorf("effective feed = %v, want 60", got)
	}

	apply(t, m, "G94 F600")
	if got := m.EffectiveFeed(30); got != 600 {
		t.Errorf("units/min effective feed = %v", got)
	}
}

func TestModalSpindleAndTool(t *testing.T) {
	m := NewModalState()
	apply(t, m, "T2 M3 S12000")
	if !m.SpindleOn || m.SpindleRPM != 12000 || m.Tool != 2 {
		t.Errorf("state = on:%v rpm:%v tool:%v", m.SpindleOn, m.SpindleRPM, m.Tool)
	}

	apply(t, m, "M5")
	if m.SpindleOn {
		t.Error("M5 did not stop spindle")
	}
}

func TestModalMotionDetection(t *testing.T) {
	cases := []struct {
		line string
		want Motion
	}{
		{"G0 X1", MotionRapid},
		{"G1 X1", MotionLinear},
		{"G2 X1 I1", MotionArcCW},
		{"G3 X1 J1", MotionArcCCW},
		{"G4 P100", MotionDwell},
		{"G21 G90", MotionNone},
		{"X5 Y5", MotionNone},
		{"M3 S8000", MotionNone},
	}
	for _, c := range cases {
		m := NewModalState()
		b := apply(t, m, c.line)
		if b.Motion != c.want {
			t.Errorf("ApplyLine(%q).Motion = %v, want %v", c.line, b.Motion, c.want)
		}
	}
}

func TestModalUnknownCodesIgnored(t *testing.T) {
	m := NewModalState()
	b := apply(t, m, "G55 G38.2 M42 Q7")
	if b.Motion != MotionNone {
		t.Errorf("unknown codes produced motion %v", b.Motion)
	}
	if m.Units != UnitsMM || m.Positioning != PositionAbsolute {
		t.Error("unknown codes mutated modal state")
	}
}

func TestModalCombinedLine(t *testing.T) {
	m := NewModalState()
	b := apply(t, m, "G21 G90 G1 X5 Y5 F300")
	if b.Motion != MotionLinear {
		t.Errorf("motion = %v", b.Motion)
	}
	if m.Feed != 300 {
		t.Errorf("feed = %v", m.Feed)
	}
	got := m.Target(b.Params)
	if got.X != 5 || got.Y != 5 {
		t.Errorf("target = %+v", got)
	}
}

func TestModalDwellParams(t *testing.T) {
	m := NewModalState()
	b := apply(t, m, "G4 P500")
	if v, ok := b.Params.Get('P'); !ok || v != 500 {
		t.Errorf("P param = %v, %v", v, ok)
	}
}
