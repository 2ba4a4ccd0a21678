// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/sim"
)

// readProgram loads the program text, with "-" meaning stdin.
func readProgram(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.InputReadError("stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.InputReadError(path, err)
	}
	return string(data), nil
}

// simulateFile builds a fresh engine for one invocation and runs the
// program through it.
func simulateFile(ctx *runContext, file, machine, material, format string, energyMode, timeseries bool) (*sim.Report, error) {
	program, err := readProgram(file)
	if err != nil {
		return nil, err
	}

	var opts sim.Options
	if energyMode {
		opts, err = ctx.cfg.EnergySimOptions(machine)
	} else {
		opts, err = ctx.cfg.SimOptions(machine)
	}
	if err != nil {
		return nil, err
	}

	eng := sim.New(opts)

	var report *sim.Report
	switch format {
	case "", "gcode":
		report = eng.Run(program)
	case "intents":
		intents, err := sim.ParseIntents([]byte(program))
		if err != nil {
			return nil, err
		}
		report = eng.RunIntents(intents)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if energyMode {
		model, err := ctx.cfg.EnergyModel(material)
		if err != nil {
			return nil, err
		}
		report.Energize(model, timeseries)
	}
	return report, nil
}

func writeReportJSON(w io.Writer, report *sim.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// formatSeconds renders an estimated duration the way a machinist
// reads it.
func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second))
	return d.Round(100 * time.Millisecond).String()
}

func printSummary(ctx *runContext, report *sim.Report) {
	if ctx.quiet {
		return
	}

	s := report.Summary
	fmt.Printf("Moves:   %d (%.1f mm rapid, %.1f mm cut)\n", s.MoveCount, s.RapidDistance, s.CutDistance)
	fmt.Printf("Time:    %s (dwell %.1fs)\n", formatSeconds(s.TotalTime), s.DwellTime)
	if e := report.Energy; e != nil {
		fmt.Printf("Energy:  %.1f J (avg %.1f W, peak %.1f W)\n", e.TotalEnergy, e.AvgPower, e.PeakPower)
		fmt.Printf("Split:   chip %.1f J, tool %.1f J, workpiece %.1f J\n",
			e.ChipEnergy, e.ToolEnergy, e.WorkpieceEnergy)
	}

	switch {
	case s.FatalCount > 0:
		color.Red("Issues:  %d (%d fatal)", s.IssueCount, s.FatalCount)
	case s.IssueCount > 0:
		color.Yellow("Issues:  %d", s.IssueCount)
	default:
		color.Green("No issues found")
	}
}

func printIssues(ctx *runContext, report *sim.Report) {
	if ctx.quiet {
		return
	}

	for _, issue := range report.Issues {
		line := fmt.Sprintf("line %d: %s (%s)", issue.Line, issue.Message, issue.Category)
		switch issue.Severity {
		case sim.SeverityFatal:
			color.Red("  %s", line)
		case sim.SeverityError:
			color.Yellow("  %s", line)
		default:
			fmt.Printf("  %s\n", line)
		}
	}
}

// SimulateCmd runs the validation pass and prints the outcome.
type SimulateCmd struct {
	File    string `arg:"" help:"G-code program, or - for stdin."`
	Machine string `help:"Machine profile name." short:"m" env:"CAMSIM_MACHINE"`
	Format  string `help:"Input format." default:"gcode" enum:"gcode,intents"`
	JSON    bool   `help:"Write the full report as JSON to stdout."`
}

func (cmd *SimulateCmd) Run(ctx *runContext) error {
	report, err := simulateFile(ctx, cmd.File, cmd.Machine, "", cmd.Format, false, false)
	if err != nil {
		return err
	}

	if cmd.JSON {
		return writeReportJSON(os.Stdout, report)
	}

	printSummary(ctx, report)
	printIssues(ctx, report)
	return nil
}

// EnergyCmd runs the energy pass and prints the estimate.
type EnergyCmd struct {
	File       string `arg:"" help:"G-code program, or - for stdin."`
	Machine    string `help:"Machine profile name." short:"m" env:"CAMSIM_MACHINE"`
	Material   string `help:"Material profile name." env:"CAMSIM_MATERIAL"`
	Format     string `help:"Input format." default:"gcode" enum:"gcode,intents"`
	Timeseries bool   `help:"Show the per-segment power series."`
	JSON       bool   `help:"Write the full report as JSON to stdout."`
}

func (cmd *EnergyCmd) Run(ctx *runContext) error {
	report, err := simulateFile(ctx, cmd.File, cmd.Machine, cmd.Material, cmd.Format, true, cmd.Timeseries || cmd.JSON)
	if err != nil {
		return err
	}

	if cmd.JSON {
		return writeReportJSON(os.Stdout, report)
	}

	printSummary(ctx, report)
	printIssues(ctx, report)

	if cmd.Timeseries && !ctx.quiet {
		fmt.Println("Segments:")
		for _, p := range report.Timeseries {
			fmt.Printf("  %4d  %-7s %8.2fs %9.2f W %10.1f mm3/min\n",
				p.Index, p.Kind, p.Time, p.Power, p.MRR)
		}
	}
	return nil
}

// CheckCmd is the safety gate: it fails when the program carries any
// fatal issue, so it can stand in front of a post-processor.
type CheckCmd struct {
	File    string `arg:"" help:"G-code program, or - for stdin."`
	Machine string `help:"Machine profile name." short:"m" env:"CAMSIM_MACHINE"`
	Format  string `help:"Input format." default:"gcode" enum:"gcode,intents"`
}

func (cmd *CheckCmd) Run(ctx *runContext) error {
	report, err := simulateFile(ctx, cmd.File, cmd.Machine, "", cmd.Format, false, false)
	if err != nil {
		return err
	}

	printIssues(ctx, report)

	if report.HasFatal() {
		return fmt.Errorf("%d fatal issue(s) in %s", report.Summary.FatalCount, cmd.File)
	}
	if !ctx.quiet {
		color.Green("%s is safe to run", cmd.File)
	}
	return nil
}

// ExportCmd writes the resolved move list in a machine-readable form.
type ExportCmd struct {
	File    string `arg:"" help:"G-code program, or - for stdin."`
	Machine string `help:"Machine profile name." short:"m" env:"CAMSIM_MACHINE"`
	Format  string `help:"Input format." default:"gcode" enum:"gcode,intents"`
	Output  string `help:"Export format." short:"f" default:"csv" enum:"csv,json"`
	Out     string `help:"Output path (default stdout)." short:"o"`
}

func (cmd *ExportCmd) Run(ctx *runContext) error {
	report, err := simulateFile(ctx, cmd.File, cmd.Machine, "", cmd.Format, false, false)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if cmd.Out != "" {
		f, err := os.Create(cmd.Out)
		if err != nil {
			return errors.ExportError(err)
		}
		defer f.Close()
		w = f
	}

	switch cmd.Output {
	case "csv":
		err = sim.WriteCSV(w, report.Moves)
	case "json":
		err = writeReportJSON(w, report)
	}
	if err != nil {
		return errors.ExportError(err)
	}

	if !ctx.quiet && cmd.Out != "" {
		color.Green("Exported %d moves to %s", len(report.Moves), cmd.Out)
	}
	return nil
}

// ProfilesCmd lists what the loaded profile set can simulate.
type ProfilesCmd struct{}

func (cmd *ProfilesCmd) Run(ctx *runContext) error {
	cfg := ctx.cfg

	fmt.Println("Machines:")
	names := cfg.MachineNames()
	if len(names) == 0 {
		fmt.Println("  (built-in default only)")
	}
	for _, name := range names {
		m, err := cfg.MachineNamed(name)
		if err != nil {
			return err
		}
		marker := " "
		if name == cfg.Machine {
			marker = "*"
		}
		fmt.Printf("%s %-14s feed %5.0f  rapid %5.0f  accel %5.0f  envelope %.0fx%.0fx%.0f mm\n",
			marker, name, m.MaxFeedXY, m.RapidFeedXY, m.Accel,
			m.Envelope.X.Max-m.Envelope.X.Min,
			m.Envelope.Y.Max-m.Envelope.Y.Min,
			m.Envelope.Z.Max-m.Envelope.Z.Min)
	}

	fmt.Println("Materials:")
	for _, name := range cfg.MaterialNames() {
		mat, err := cfg.MaterialNamed(name)
		if err != nil {
			return err
		}
		marker := " "
		if name == cfg.Material {
			marker = "*"
		}
		fmt.Printf("%s %-14s SCE %.2f J/mm3\n", marker, name, mat.SpecificCuttingEnergy)
	}
	return nil
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *runContext) error {
	fmt.Printf("camsim v%s\n", version)
	return nil
}
