// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// camsim validates G-code toolpaths against a machine profile,
// estimates cutting energy, exports resolved moves and serves the
// simulation engine over HTTP.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/log"
)

// version is overridden at release time via -ldflags.
var version = "1.2.0"

const defaultConfigName = "camsim.yaml"

// runContext carries the loaded profile set and global flags into the
// commands.
type runContext struct {
	cfg     *config.Config
	cfgPath string
	log     *log.Logger
	verbose bool
	quiet   bool
}

var cli struct {
	Config  string `help:"Profile file path (default camsim.yaml when present)." short:"c" env:"CAMSIM_CONFIG"`
	Verbose bool   `help:"Enable debug logging." short:"v"`
	Quiet   bool   `help:"Suppress status lines." short:"q"`

	Simulate SimulateCmd `cmd:"" help:"Validate a G-code program against a machine profile."`
	Energy   EnergyCmd   `cmd:"" help:"Estimate cutting energy and power for a program."`
	Check    CheckCmd    `cmd:"" help:"Gate a program: exit nonzero when any fatal issue is found."`
	Export   ExportCmd   `cmd:"" help:"Export resolved moves as CSV or JSON."`
	Profiles ProfilesCmd `cmd:"" help:"List the machine and material profiles."`
	Serve    ServeCmd    `cmd:"" help:"Run the simulation API server."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

func main() {
	loadEnvFiles()

	ctx := kong.Parse(&cli,
		kong.Name("camsim"),
		kong.Description("G-code kinematic simulation and safety validation for CNC machining."),
		kong.UsageOnError(),
	)

	logger := log.Default()
	if cli.Verbose {
		logger.SetLevel(log.DEBUG)
	}

	cfg, path, err := loadConfig(cli.Config)
	ctx.FatalIfErrorf(err)
	applyLogConfig(logger, cfg, cli.Verbose)

	err = ctx.Run(&runContext{
		cfg:     cfg,
		cfgPath: path,
		log:     logger,
		verbose: cli.Verbose,
		quiet:   cli.Quiet,
	})
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// loadEnvFiles loads a .env file when one exists, then reapplies the
// CAMSIM_LOG_* settings it may have introduced.
func loadEnvFiles() {
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
		}
		log.ConfigureFromEnv()
	}
}

// loadConfig resolves the profile set. A missing file is only an
// error when a path was given explicitly.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if !fileExists(defaultConfigName) {
			return config.Default(), "", nil
		}
		path = defaultConfigName
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// applyLogConfig applies the profile's log section. Flags and
// CAMSIM_LOG_* environment settings win over the file.
func applyLogConfig(logger *log.Logger, cfg *config.Config, verbose bool) {
	if os.Getenv("CAMSIM_LOG_LEVEL") == "" && !verbose {
		logger.SetLevel(log.ParseLevel(cfg.Log.Level))
	}
	if os.Getenv("CAMSIM_LOG_FORMAT") == "" && strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormat(log.FormatJSON)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
