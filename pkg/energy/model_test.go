package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel() Model {
	// 6mm tool, stepover 0.5 -> width 3mm, stepdown 2mm
	return NewModel(DefaultMaterial(), EngagementModel{
		Stepover:      0.5,
		Stepdown:      2.0,
		EngagementPct: 0.6,
		Climb:         true,
	}, 6.0)
}

func cuttingSegment(idx int, length, feed, time float64) Segment {
	return Segment{Index: idx, Kind: "linear", Cutting: true, Length: length, Feed: feed, Time: time}
}

func TestWidthOfCut(t *testing.T) {
	m := testModel()
	assert.InDelta(t, 3.0, m.WidthOfCut(), 1e-9)
}

func TestMRRFormula(t *testing.T) {
	m := testModel()

	// width 3 * depth 2 * feed 600 * (0.6/100)
	assert.InDelta(t, 3*2*600*0.006, m.MRR(600), 1e-9)
	assert.Equal(t, 0.0, m.MRR(0))
}

func TestEvaluateSingleSegment(t *testing.T) {
	m := testModel()

	// 100mm at 600 mm/min takes 10s of cutting
	sum := m.Evaluate([]Segment{cuttingSegment(0, 100, 600, 10)})

	wantVolume := 100 * 3.0 * 2.0
	wantEnergy := wantVolume * m.Material.SpecificCuttingEnergy

	assert.InDelta(t, wantVolume, sum.SweptVolume, 1e-9)
	assert.InDelta(t, wantEnergy, sum.TotalEnergy, 1e-9)
	assert.InDelta(t, wantEnergy/10, sum.AvgPower, 1e-9)
	assert.InDelta(t, wantEnergy/10, sum.PeakPower, 1e-9)
	assert.InDelta(t, 10.0, sum.CutTime, 1e-9)
	assert.InDelta(t, 100.0, sum.CutLength, 1e-9)
}

func TestEvaluateSkipsRapids(t *testing.T) {
	m := testModel()

	segs := []Segment{
		{Index: 0, Kind: "rapid", Cutting: false, Length: 500, Feed: 7500, Time: 4},
		cuttingSegment(1, 50, 600, 5),
		{Index: 2, Kind: "dwell", Cutting: false, Time: 1},
	}
	sum := m.Evaluate(segs)

	assert.InDelta(t, 50*3.0*2.0, sum.SweptVolume, 1e-9, "only the cutting segment sweeps volume")
	assert.InDelta(t, 5.0, sum.CutTime, 1e-9, "rapid and dwell time excluded from cut time")
}

func TestEvaluateSplitsSumToTotal(t *testing.T) {
	// Fractions that don't sum to 1 must still split the full total
	mat := MaterialProfile{
		Name:                  "lopsided",
		SpecificCuttingEnergy: 0.5,
		ChipFraction:          3,
		ToolFraction:          1,
		WorkpieceFraction:     1,
	}
	m := NewModel(mat, DefaultEngagement(), 6.0)

	sum := m.Evaluate([]Segment{cuttingSegment(0, 200, 900, 13.3)})

	require.Greater(t, sum.TotalEnergy, 0.0)
	split := sum.ChipEnergy + sum.ToolEnergy + sum.WorkpieceEnergy
	assert.InDelta(t, sum.TotalEnergy, split, 1e-9)
	assert.InDelta(t, sum.TotalEnergy*0.6, sum.ChipEnergy, 1e-9)
}

func TestEvaluatePeakTracksFastestSegment(t *testing.T) {
	m := testModel()

	// Same length, one twice as fast: double the power
	segs := []Segment{
		cuttingSegment(0, 60, 600, 6),
		cuttingSegment(1, 60, 1200, 3),
	}
	sum := m.Evaluate(segs)

	_, joules := m.segmentEnergy(segs[1])
	assert.InDelta(t, joules/3, sum.PeakPower, 1e-9)
	assert.Less(t, sum.AvgPower, sum.PeakPower)
}

func TestEvaluateZeroTimeSegment(t *testing.T) {
	m := testModel()

	// Zero-time cutting segment contributes energy but no power sample
	sum := m.Evaluate([]Segment{cuttingSegment(0, 10, 600, 0)})

	assert.Greater(t, sum.TotalEnergy, 0.0)
	assert.Equal(t, 0.0, sum.PeakPower)
	assert.Equal(t, 0.0, sum.AvgPower)
}

func TestEvaluateEmpty(t *testing.T) {
	m := testModel()
	sum := m.Evaluate(nil)

	assert.Equal(t, 0.0, sum.TotalEnergy)
	assert.Equal(t, 0.0, sum.SweptVolume)
	assert.Equal(t, 0.0, sum.AvgPower)
}

func TestTimeseriesAlignment(t *testing.T) {
	m := testModel()

	segs := []Segment{
		{Index: 0, Kind: "rapid", Cutting: false, Length: 100, Feed: 7500, Time: 1},
		cuttingSegment(1, 50, 600, 5),
	}
	points := m.Timeseries(segs)

	require.Len(t, points, 2, "every segment appears in the series")

	assert.Equal(t, "rapid", points[0].Kind)
	assert.Equal(t, 0.0, points[0].MRR, "rapid has no removal rate")
	assert.Equal(t, 0.0, points[0].Power)

	assert.Equal(t, 1, points[1].Index)
	assert.InDelta(t, m.MRR(600), points[1].MRR, 1e-9)
	assert.Greater(t, points[1].Power, 0.0)
}

func TestTimeseriesMatchesEvaluate(t *testing.T) {
	m := testModel()

	segs := []Segment{
		cuttingSegment(0, 30, 600, 3),
		cuttingSegment(1, 70, 900, 4.7),
	}

	sum := m.Evaluate(segs)
	points := m.Timeseries(segs)

	// Integrating the series reproduces the aggregate energy
	total := 0.0
	for _, p := range points {
		total += p.Power * p.Time
	}
	assert.InDelta(t, sum.TotalEnergy, total, 1e-9)
}

func TestNormalized(t *testing.T) {
	m := MaterialProfile{ChipFraction: 2, ToolFraction: 1, WorkpieceFraction: 1}.Normalized()
	assert.InDelta(t, 0.5, m.ChipFraction, 1e-9)
	assert.InDelta(t, 0.25, m.ToolFraction, 1e-9)
	assert.InDelta(t, 0.25, m.WorkpieceFraction, 1e-9)

	// Degenerate sum falls back to equal thirds
	z := MaterialProfile{}.Normalized()
	assert.InDelta(t, 1.0/3, z.ChipFraction, 1e-9)
	assert.InDelta(t, 1.0, z.ChipFraction+z.ToolFraction+z.WorkpieceFraction, 1e-9)
}

func TestBuiltinMaterials(t *testing.T) {
	mats := BuiltinMaterials()

	require.Contains(t, mats, "hardwood")
	require.Contains(t, mats, "softwood")
	require.Contains(t, mats, "acrylic")
	require.Contains(t, mats, "aluminum")

	assert.Equal(t, DefaultMaterial(), mats["hardwood"])
	for name, m := range mats {
		assert.Equal(t, name, m.Name)
		assert.Greater(t, m.SpecificCuttingEnergy, 0.0, "material %s", name)
	}
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(MaterialProfile{ChipFraction: 2, ToolFraction: 2, WorkpieceFraction: 4}, DefaultEngagement(), 0)

	assert.Equal(t, DefaultToolDiameter, m.ToolDiameter)
	assert.InDelta(t, 1.0, m.Material.ChipFraction+m.Material.ToolFraction+m.Material.WorkpieceFraction, 1e-9,
		"NewModel normalizes the splits")
}
