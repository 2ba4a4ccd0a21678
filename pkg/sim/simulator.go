// Toolpath simulation pass
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"fmt"
	"math"
	"strings"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/energy"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/gcode"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/kinematics"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/log"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/safety"
)

// Options configures one simulation pass. The zero value is usable;
// New substitutes defaults for unset fields.
type Options struct {
	// Units is the input unit system assumed until a G20/G21 appears.
	Units gcode.Units

	Caps kinematics.Caps

	// Accel is the acceleration for all velocity profiles, mm/s^2.
	Accel float64

	Envelope   safety.Envelope
	ClearanceZ float64

	// FallbackFeed substitutes for cutting moves before any F word has
	// been seen, mm/min. Defaults to the maximum XY feed.
	FallbackFeed float64

	// Start is the initial tool position.
	Start geom.Vec3

	// OnMove, when set, observes every recorded move in program order.
	OnMove func(Move)
}

// DefaultOptions returns the validation-pass configuration.
func DefaultOptions() Options {
	return Options{
		Caps:       kinematics.DefaultCaps(),
		Accel:      kinematics.DefaultAccel,
		Envelope:   safety.DefaultEnvelope(),
		ClearanceZ: safety.DefaultClearanceZ,
	}
}

// EnergyOptions returns the energy-pass configuration: a gentler
// acceleration and a fraction of the maximum feed substituted for
// unfed cutting segments. Both knobs are tuned independently of the
// validation pass.
func EnergyOptions() Options {
	o := DefaultOptions()
	o.Accel = kinematics.DefaultEnergyAccel
	o.FallbackFeed = energy.DefaultFeedFraction * o.Caps.MaxFeedXY
	return o
}

// Simulator runs G-code programs against one immutable configuration.
// It holds no cross-run state: concurrent Run calls on the same
// Simulator are safe as long as OnMove is.
type Simulator struct {
	opts      Options
	validator *safety.Validator
}

// New returns a simulator for the given options, substituting defaults
// for unset fields.
func New(opts Options) *Simulator {
	if opts.Caps == (kinematics.Caps{}) {
		opts.Caps = kinematics.DefaultCaps()
	}
	if opts.Accel <= 0 {
		opts.Accel = kinematics.DefaultAccel
	}
	if opts.Envelope == (safety.Envelope{}) {
		opts.Envelope = safety.DefaultEnvelope()
	}
	if opts.ClearanceZ == 0 {
		opts.ClearanceZ = safety.DefaultClearanceZ
	}
	if opts.FallbackFeed <= 0 {
		opts.FallbackFeed = opts.Caps.MaxFeedXY
	}
	return &Simulator{
		opts:      opts,
		validator: safety.NewValidator(opts.Envelope, opts.ClearanceZ),
	}
}

// Options returns the effective configuration after defaulting.
func (s *Simulator) Options() Options {
	return s.opts
}

// runState is the per-invocation mutable state: one modal interpreter
// and one report under construction.
type runState struct {
	state  *gcode.ModalState
	report *Report
}

func (s *Simulator) begin() *runState {
	state := gcode.NewModalState()
	state.Units = s.opts.Units
	state.Position = s.opts.Start
	return &runState{
		state:  state,
		report: &Report{Moves: []Move{}, Issues: []Issue{}},
	}
}

func (s *Simulator) finish(rs *runState) *Report {
	rs.report.Summary.Units = s.opts.Units.String()
	rs.report.Summary.MoveCount = len(rs.report.Moves)
	rs.report.Summary.IssueCount = len(rs.report.Issues)
	return rs.report
}

// Run simulates a raw multi-line G-code program.
func (s *Simulator) Run(text string) *Report {
	rs := s.begin()
	for i, line := range strings.Split(text, "\n") {
		words := gcode.ParseLine(line)
		if len(words) == 0 {
			continue
		}
		block := rs.state.ApplyLine(words, i+1)
		s.step(rs, block)
		block.Release()
	}
	return s.finish(rs)
}

// RunIntents simulates a structured move-intent sequence through the
// same modal pipeline as raw text. Intents with an unsupported code
// are skipped.
func (s *Simulator) RunIntents(intents []Intent) *Report {
	rs := s.begin()
	for i, intent := range intents {
		words, ok := intent.words()
		if !ok {
			log.Debug("skipping intent %d: unsupported code %q", i, intent.Code)
			continue
		}
		block := rs.state.ApplyLine(words, i+1)
		s.step(rs, block)
		block.Release()
	}
	return s.finish(rs)
}

// step dispatches one block on its resolved motion kind.
func (s *Simulator) step(rs *runState, block gcode.Block) {
	switch block.Motion {
	case gcode.MotionNone:
		// Modal-only line
	case gcode.MotionRapid:
		s.stepRapid(rs, block)
	case gcode.MotionLinear:
		s.stepLinear(rs, block)
	case gcode.MotionArcCW:
		s.stepArc(rs, block, geom.CW)
	case gcode.MotionArcCCW:
		s.stepArc(rs, block, geom.CCW)
	case gcode.MotionDwell:
		s.stepDwell(rs, block)
	}
}

func (s *Simulator) stepDwell(rs *runState, block gcode.Block) {
	seconds := kinematics.DwellSeconds(block.Params.GetOr('P', 0))
	pos := rs.state.Position
	s.record(rs, Move{
		Line:  block.Line,
		Kind:  KindDwell,
		Start: pos,
		End:   pos,
		Time:  seconds,
	})
}

func (s *Simulator) stepRapid(rs *runState, block gcode.Block) {
	start := rs.state.Position
	target := rs.state.Target(block.Params)
	s.checkEnvelope(rs, block.Line, target)

	if s.validator.RapidNeedsLift(start, target) {
		s.recordIssue(rs, Issue{
			Severity: SeverityWarn,
			Category: CategoryUnsafeRapid,
			Message: fmt.Sprintf("rapid from Z%.3f below clearance Z%.3f rewritten as lift, traverse, descend",
				start.Z, s.validator.ClearanceZ()),
			Line: block.Line,
		})
		from := start
		for _, wp := range s.validator.LiftWaypoints(start, target) {
			s.record(rs, s.rapidMove(block.Line, from, wp, true))
			from = wp
		}
	} else {
		s.record(rs, s.rapidMove(block.Line, start, target, false))
	}
	rs.state.Position = target
}

func (s *Simulator) rapidMove(line int, from, to geom.Vec3, synthetic bool) Move {
	delta := to.Sub(from)
	return Move{
		Line:      line,
		Kind:      KindRapid,
		Start:     from,
		End:       to,
		Feed:      s.opts.Caps.RapidFeedXY,
		Length:    delta.Length(),
		Time:      kinematics.TravelTime(delta, s.opts.Caps.RapidFeedXY, s.opts.Accel),
		Synthetic: synthetic,
	}
}

func (s *Simulator) stepLinear(rs *runState, block gcode.Block) {
	start := rs.state.Position
	target := rs.state.Target(block.Params)
	s.checkEnvelope(rs, block.Line, target)

	delta := target.Sub(start)
	dist := delta.Length()
	feed := s.cutFeed(rs, dist)

	s.record(rs, Move{
		Line:   block.Line,
		Kind:   KindLinear,
		Start:  start,
		End:    target,
		Feed:   feed,
		Length: dist,
		Time:   kinematics.TravelTime(delta, feed, s.opts.Accel),
	})
	rs.state.Position = target
}

func (s *Simulator) stepArc(rs *runState, block gcode.Block, winding geom.Winding) {
	start := rs.state.Position
	target := rs.state.Target(block.Params)
	s.checkEnvelope(rs, block.Line, target)

	kind := KindArcCW
	if winding == geom.CCW {
		kind = KindArcCCW
	}

	plane := rs.state.Plane
	scale := rs.state.Scale()
	p0 := plane.Point(start)
	p1 := plane.Point(target)

	var center geom.Vec2
	resolved := false
	if i, j, ok := plane.Offsets(block.Params); ok {
		center = geom.CenterFromOffset(p0, i*scale, j*scale)
		resolved = true
	} else if r, ok := block.Params.Get('R'); ok {
		center, _ = geom.ResolveRadius(p0, p1, r*scale, winding)
		resolved = true
	}

	if !resolved {
		s.recordIssue(rs, Issue{
			Severity: SeverityError,
			Category: CategoryArcMissingParams,
			Message:  fmt.Sprintf("%s without center offsets or radius", kind),
			Line:     block.Line,
		})
		// Degenerate zero-length arc at the start point; the tool does
		// not advance.
		s.record(rs, Move{
			Line:  block.Line,
			Kind:  kind,
			Start: start,
			End:   start,
		})
		return
	}

	planar := geom.ArcLength(p0, p1, center, winding)
	helical := plane.Helical(start, target)
	length := planar
	if helical != 0 {
		length = math.Hypot(planar, helical)
	}

	feed := s.cutFeed(rs, length)
	center3 := plane.Lift(center, start)

	s.record(rs, Move{
		Line:   block.Line,
		Kind:   kind,
		Start:  start,
		End:    target,
		Feed:   feed,
		Center: &center3,
		Length: length,
		Time:   kinematics.PathTime(planar, helical, feed, s.opts.Accel),
	})
	rs.state.Position = target
}

// cutFeed resolves the effective feed of a cutting move: the sticky F
// (converted for inverse-time mode), the fallback when no F has been
// seen, clamped to the machine maximum.
func (s *Simulator) cutFeed(rs *runState, dist float64) float64 {
	feed := rs.state.EffectiveFeed(dist)
	if feed <= 0 {
		feed = s.opts.FallbackFeed
	}
	return s.opts.Caps.ClampFeed(feed)
}

func (s *Simulator) checkEnvelope(rs *runState, line int, target geom.Vec3) {
	for _, v := range s.validator.CheckTarget(target) {
		s.recordIssue(rs, Issue{
			Severity: SeverityFatal,
			Category: CategoryEnvelopeViolation,
			Message:  v.String(),
			Line:     line,
		})
	}
}

func (s *Simulator) record(rs *runState, mv Move) {
	rs.report.Moves = append(rs.report.Moves, mv)

	sum := &rs.report.Summary
	switch {
	case mv.Kind == KindDwell:
		sum.DwellTime += mv.Time
	case mv.Kind.Cutting():
		sum.CutDistance += mv.Length
	default:
		sum.RapidDistance += mv.Length
	}
	sum.TotalTime += mv.Time

	if s.opts.OnMove != nil {
		s.opts.OnMove(mv)
	}
}

func (s *Simulator) recordIssue(rs *runState, issue Issue) {
	rs.report.Issues = append(rs.report.Issues, issue)
	if issue.Severity == SeverityFatal {
		rs.report.Summary.FatalCount++
	}
	log.Debug("line %d: %s %s: %s", issue.Line, issue.Severity, issue.Category, issue.Message)
}
