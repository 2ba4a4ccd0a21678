// Profile file loading and validation
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package config loads the camsim profile file: named machine profiles
// (feed limits, accelerations, envelope, rapid clearance), material
// profiles layered over the builtin library, the engagement model, and
// the server and logging setup. Profiles are YAML; unknown keys are
// rejected so a typo in a profile file surfaces as a parse error
// instead of silently reverting a value to its default.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/energy"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/kinematics"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/safety"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/sim"
)

// DefaultAddr is the API server bind address when none is configured.
const DefaultAddr = ":8080"

// MachineProfile is one named machine: feed limits in mm/min,
// accelerations in mm/s^2, the working envelope and the rapid
// clearance height. Zero fields inherit the builtin default machine,
// so a profile may override just the envelope.
type MachineProfile struct {
	MaxFeedXY   float64 `yaml:"max_feed_xy" json:"max_feed_xy"`
	RapidFeedXY float64 `yaml:"rapid_feed_xy" json:"rapid_feed_xy"`

	// Accel drives the validation pass.
	Accel float64 `yaml:"accel" json:"accel"`

	// EnergyAccel drives the energy pass. It is tuned separately
	// because energy estimates assume a loaded, slower machine.
	EnergyAccel float64 `yaml:"energy_accel" json:"energy_accel"`

	ClearanceZ float64         `yaml:"clearance_z" json:"clearance_z"`
	Envelope   safety.Envelope `yaml:"envelope" json:"envelope"`
}

// DefaultMachine returns the builtin profile used when no machine is
// selected: a mid-size router table.
func DefaultMachine() MachineProfile {
	caps := kinematics.DefaultCaps()
	return MachineProfile{
		MaxFeedXY:   caps.MaxFeedXY,
		RapidFeedXY: caps.RapidFeedXY,
		Accel:       kinematics.DefaultAccel,
		EnergyAccel: kinematics.DefaultEnergyAccel,
		ClearanceZ:  safety.DefaultClearanceZ,
		Envelope:    safety.DefaultEnvelope(),
	}
}

// Caps returns the machine's feed limits.
func (m MachineProfile) Caps() kinematics.Caps {
	return kinematics.Caps{MaxFeedXY: m.MaxFeedXY, RapidFeedXY: m.RapidFeedXY}
}

func (m MachineProfile) withDefaults() MachineProfile {
	def := DefaultMachine()
	if m.MaxFeedXY == 0 {
		m.MaxFeedXY = def.MaxFeedXY
	}
	if m.RapidFeedXY == 0 {
		m.RapidFeedXY = def.RapidFeedXY
	}
	if m.Accel == 0 {
		m.Accel = def.Accel
	}
	if m.EnergyAccel == 0 {
		m.EnergyAccel = def.EnergyAccel
	}
	if m.ClearanceZ == 0 {
		m.ClearanceZ = def.ClearanceZ
	}
	if m.Envelope == (safety.Envelope{}) {
		m.Envelope = def.Envelope
	}
	return m
}

// ToolConfig describes the cutter assumed by the energy pass.
type ToolConfig struct {
	// Diameter in mm. Zero keeps the energy default.
	Diameter float64 `yaml:"diameter" json:"diameter"`
}

// ServerConfig holds the API server binding.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig mirrors the CAMSIM_LOG_* environment knobs for setups
// that prefer the profile file. The environment wins when both are
// set; the CLI applies these only to unset knobs.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// Config is the root of a profile file.
type Config struct {
	// Machine selects the active profile from Machines. Empty selects
	// the builtin default machine.
	Machine  string                    `yaml:"machine" json:"machine"`
	Machines map[string]MachineProfile `yaml:"machines" json:"machines"`

	// Material selects the stock material. Names resolve against
	// Materials first, then the builtin library, so a profile file can
	// shadow a builtin.
	Material  string                            `yaml:"material" json:"material"`
	Materials map[string]energy.MaterialProfile `yaml:"materials" json:"materials"`

	Engagement energy.EngagementModel `yaml:"engagement" json:"engagement"`
	Tool       ToolConfig             `yaml:"tool" json:"tool"`
	Server     ServerConfig           `yaml:"server" json:"server"`
	Log        LogConfig              `yaml:"log" json:"log"`
}

// Default returns the configuration used when no profile file is
// given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a profile file. A missing file is an
// error; callers that treat the file as optional use Default when the
// path is empty.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigReadError(path, err)
	}
	return Parse(data, path)
}

// Parse decodes a profile from YAML, fills defaults and validates.
// path only labels errors.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, errors.ConfigParseError(path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for name, m := range c.Machines {
		c.Machines[name] = m.withDefaults()
	}
	for name, m := range c.Materials {
		if m.Name == "" {
			m.Name = name
			c.Materials[name] = m
		}
	}
	if c.Engagement == (energy.EngagementModel{}) {
		c.Engagement = energy.DefaultEngagement()
	}
	if c.Tool.Diameter == 0 {
		c.Tool.Diameter = energy.DefaultToolDiameter
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks ranges and that the selected machine and material
// resolve. The first problem found is returned; profiles are checked
// in name order so the error is deterministic.
func (c *Config) Validate() error {
	for _, name := range c.MachineNames() {
		if err := c.Machines[name].validate("machines." + name); err != nil {
			return err
		}
	}
	for _, name := range userMaterialNames(c.Materials) {
		if err := validateMaterial("materials."+name, c.Materials[name]); err != nil {
			return err
		}
	}
	if err := validateEngagement(c.Engagement); err != nil {
		return err
	}
	if c.Tool.Diameter <= 0 {
		return errors.ConfigValidationError("tool.diameter", "must be positive")
	}
	if !validLogLevel(c.Log.Level) {
		return errors.ConfigValidationError("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.ConfigValidationError("log.format", fmt.Sprintf("must be text or json, got %q", c.Log.Format))
	}
	if _, err := c.MachineNamed(""); err != nil {
		return err
	}
	if _, err := c.MaterialNamed(""); err != nil {
		return err
	}
	return nil
}

func (m MachineProfile) validate(prefix string) error {
	if m.MaxFeedXY <= 0 {
		return errors.ConfigValidationError(prefix+".max_feed_xy", "must be positive")
	}
	if m.RapidFeedXY <= 0 {
		return errors.ConfigValidationError(prefix+".rapid_feed_xy", "must be positive")
	}
	if m.Accel <= 0 {
		return errors.ConfigValidationError(prefix+".accel", "must be positive")
	}
	if m.EnergyAccel <= 0 {
		return errors.ConfigValidationError(prefix+".energy_accel", "must be positive")
	}
	for _, axis := range []struct {
		name string
		r    safety.Range
	}{
		{"x", m.Envelope.X},
		{"y", m.Envelope.Y},
		{"z", m.Envelope.Z},
	} {
		if axis.r.Min >= axis.r.Max {
			return errors.ConfigValidationError(
				fmt.Sprintf("%s.envelope.%s", prefix, axis.name),
				fmt.Sprintf("min %.3f not below max %.3f", axis.r.Min, axis.r.Max))
		}
	}
	if !m.Envelope.Z.Contains(m.ClearanceZ) {
		return errors.ConfigValidationError(prefix+".clearance_z",
			fmt.Sprintf("%.3f outside envelope Z [%.3f, %.3f]", m.ClearanceZ, m.Envelope.Z.Min, m.Envelope.Z.Max))
	}
	return nil
}

func validateMaterial(prefix string, m energy.MaterialProfile) error {
	if m.SpecificCuttingEnergy <= 0 {
		return errors.ConfigValidationError(prefix+".specific_cutting_energy", "must be positive")
	}
	if m.ChipFraction < 0 || m.ToolFraction < 0 || m.WorkpieceFraction < 0 {
		return errors.ConfigValidationError(prefix, "split fractions must not be negative")
	}
	return nil
}

func validateEngagement(e energy.EngagementModel) error {
	if e.Stepover <= 0 || e.Stepover > 1 {
		return errors.ConfigValidationError("engagement.stepover", "must be in (0, 1]")
	}
	if e.Stepdown <= 0 {
		return errors.ConfigValidationError("engagement.stepdown", "must be positive")
	}
	if e.EngagementPct <= 0 || e.EngagementPct > 100 {
		return errors.ConfigValidationError("engagement.engagement_pct", "must be in (0, 100]")
	}
	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return true
	}
	return false
}

func userMaterialNames(m map[string]energy.MaterialProfile) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MachineNamed resolves a machine profile. An empty name falls back
// to the configured selection, then to the builtin default.
func (c *Config) MachineNamed(name string) (MachineProfile, error) {
	if name == "" {
		name = c.Machine
	}
	if name == "" {
		return DefaultMachine(), nil
	}
	if m, ok := c.Machines[name]; ok {
		return m, nil
	}
	return MachineProfile{}, errors.ProfileUnknownError("machine", name)
}

// MaterialNamed resolves a material, checking the profile file before
// the builtin library. An empty name falls back to the configured
// selection, then to the builtin default material.
func (c *Config) MaterialNamed(name string) (energy.MaterialProfile, error) {
	if name == "" {
		name = c.Material
	}
	if name == "" {
		return energy.DefaultMaterial(), nil
	}
	if m, ok := c.Materials[name]; ok {
		return m, nil
	}
	if m, ok := energy.BuiltinMaterials()[name]; ok {
		return m, nil
	}
	return energy.MaterialProfile{}, errors.ProfileUnknownError("material", name)
}

// MachineNames returns the selectable machine names, sorted.
func (c *Config) MachineNames() []string {
	names := make([]string, 0, len(c.Machines))
	for name := range c.Machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaterialNames returns the selectable material names, builtin plus
// profile-file entries, sorted without duplicates.
func (c *Config) MaterialNames() []string {
	builtin := energy.BuiltinMaterials()
	names := make([]string, 0, len(builtin)+len(c.Materials))
	for name := range builtin {
		names = append(names, name)
	}
	for name := range c.Materials {
		if _, ok := builtin[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SimOptions returns the validation-pass options for the named
// machine. An empty name uses the configured selection.
func (c *Config) SimOptions(machine string) (sim.Options, error) {
	m, err := c.MachineNamed(machine)
	if err != nil {
		return sim.Options{}, err
	}
	return sim.Options{
		Caps:       m.Caps(),
		Accel:      m.Accel,
		Envelope:   m.Envelope,
		ClearanceZ: m.ClearanceZ,
	}, nil
}

// EnergySimOptions returns the energy-pass options for the named
// machine: the energy acceleration and the fallback feed applied to
// cutting segments that never saw an F word.
func (c *Config) EnergySimOptions(machine string) (sim.Options, error) {
	m, err := c.MachineNamed(machine)
	if err != nil {
		return sim.Options{}, err
	}
	return sim.Options{
		Caps:         m.Caps(),
		Accel:        m.EnergyAccel,
		Envelope:     m.Envelope,
		ClearanceZ:   m.ClearanceZ,
		FallbackFeed: energy.DefaultFeedFraction * m.MaxFeedXY,
	}, nil
}

// EnergyModel returns the evaluation model for the named material
// with the configured tool and engagement. An empty name uses the
// configured selection.
func (c *Config) EnergyModel(material string) (energy.Model, error) {
	mat, err := c.MaterialNamed(material)
	if err != nil {
		return energy.Model{}, err
	}
	return energy.NewModel(mat, c.Engagement, c.Tool.Diameter), nil
}
