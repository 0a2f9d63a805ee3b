// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// wledbridge-plugin-wled bridges WLED LED controllers into the hub.
// It runs as a separate process and talks to the hub over go-plugin RPC.
package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/state"
)

func main() {
	// stdout carries the RPC handshake, so everything logs to stderr
	backends := []logger.Backend{logger.NewWriterBackend(os.Stderr, "text")}

	config, err := state.LoadBridgeConfig()
	if err != nil {
		config = state.DefaultBridgeConfig()
		logger.New(logger.Config{Level: "info", Component: "wled"}, backends, nil).
			Warn("Unable to load bridge config, using defaults", logger.Err(err))
	}

	log := logger.New(logger.Config{
		Level:     config.LogLevel,
		Format:    "text",
		Component: "wled",
	}, backends, nil)

	version, err := state.ReadVersion(filepath.Join(config.DataDir, "server.json"))
	if err != nil {
		log.Info("Version not found in server.json", logger.Err(err))
	}

	controller := NewController(Config{
		Version:       version,
		DataDir:       config.DataDir,
		ProfileDir:    config.ProfileDir,
		DeviceTimeout: time.Duration(config.DeviceTimeout) * time.Second,
	}, log, nil)

	frameworkLog := hclog.New(&hclog.LoggerOptions{
		Name:       "wledbridge-plugin-wled",
		Output:     os.Stderr,
		Level:      hclog.LevelFromString(config.LogLevel),
		JSONFormat: true,
	})

	host.ServePlugin(controller, frameworkLog)
}
