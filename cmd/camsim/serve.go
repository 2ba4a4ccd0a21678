// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/log"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/metrics"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/server"
)

// ServeCmd runs the HTTP and WebSocket API server.
type ServeCmd struct {
	Addr    string `help:"Bind address (host:port)." env:"CAMSIM_ADDR"`
	Watch   bool   `help:"Reload the profile file when it changes." short:"w"`
	LogFile string `help:"Also write logs to this file, with rotation."`
	History int    `help:"Completed runs to keep in memory." default:"200"`
}

func (cmd *ServeCmd) Run(ctx *runContext) error {
	logger := ctx.log
	if cmd.LogFile != "" {
		fileLogger, writer, err := log.NewConsoleAndFileLogger("camsim", log.RotationConfig{
			Filename: cmd.LogFile,
			Compress: true,
		})
		if err != nil {
			return err
		}
		defer writer.Close()
		fileLogger.SetLevel(logger.GetLevel())
		logger = fileLogger
	}

	addr := cmd.Addr
	if addr == "" {
		addr = ctx.cfg.Server.Addr
	}

	sm := metrics.GlobalMetrics()
	profiles := func() *config.Config { return ctx.cfg }

	if cmd.Watch {
		if ctx.cfgPath == "" {
			return fmt.Errorf("--watch needs a profile file, but none was loaded")
		}
		watcher := config.NewWatcher(ctx.cfgPath, ctx.cfg)
		watcher.SetCallbacks(
			func(cfg *config.Config) {
				sm.RecordConfigReload(true)
				logger.Info("profiles reloaded from %s", ctx.cfgPath)
			},
			func(err error) {
				sm.RecordConfigReload(false)
				logger.WithError(err).Warn("profile reload failed")
			},
		)
		watcher.Start()
		defer watcher.Stop()
		profiles = watcher.Current
	}

	srv := server.New(server.Options{
		Addr:        addr,
		Profiles:    profiles,
		Logger:      logger.WithPrefix("server"),
		Metrics:     sm,
		HistorySize: cmd.History,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received %s, shutting down", sig)
		srv.Stop()
	}()

	if !ctx.quiet {
		color.Green("camsim v%s listening on %s", version, addr)
	}
	return srv.Start()
}
