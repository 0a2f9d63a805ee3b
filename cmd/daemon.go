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

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/daemon"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/state"
)

// defaultLogFile is used when journald is not available
const defaultLogFile = "/var/log/wledbridge/wledbridge.log"

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the wledbridge hub daemon",
	Long: `Starts the daemon: launches the WLED plugin, polls the devices on the
configured short/long cadence and listens for commands on a Unix socket.`,
	Run: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) {
	lock, err := daemon.AcquireLock(daemon.LockPath(daemon.GetSocketPath()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	config, err := state.LoadBridgeConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n\nTip: Run 'wledbridge validate' to check the configuration\n", err)
		os.Exit(1)
	}

	if err := initializeLogger(config.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(); err != nil {
		logger.Warn("Configuration has problems", logger.Err(err))
	}

	server, err := daemon.NewServer(config)
	if err != nil {
		logger.Error("Failed to create server", logger.Err(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop server", logger.Err(err))
		}
		lock.Release()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		logger.Error("Server failed", logger.Err(err))
		server.Stop()
		lock.Release()
		os.Exit(1)
	}
}

// initializeLogger sets up the global structured logger: journald when
// systemd-cat is available, otherwise a log file
func initializeLogger(level string) error {
	config := logger.Config{
		Level:     level,
		Format:    "json",
		Component: "daemon",
	}

	useJournald := false
	if _, err := exec.LookPath("systemd-cat"); err == nil {
		useJournald = true
	}

	var backends []logger.Backend
	emitter := logger.NewEmitter()

	if useJournald {
		journaldBackend, err := logger.NewJournaldBackend("wledbridge", config.Format)
		if err != nil {
			log.Printf("[WARN] Could not initialize journald backend: %v, falling back to file", err)
			useJournald = false
		} else {
			backends = append(backends, journaldBackend)
		}
	}

	if !useJournald {
		fileBackend, err := logger.NewFileBackend(defaultLogFile, config.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize file backend: %w", err)
		}
		backends = append(backends, fileBackend)
	}

	logger.Init(config, backends, emitter)

	if useJournald {
		logger.Info("Logging initialized",
			logger.F("backend", "journald"),
			logger.F("format", config.Format))
	} else {
		logger.Info("Logging initialized",
			logger.F("backend", "file"),
			logger.F("file", defaultLogFile),
			logger.F("format", config.Format))
	}

	return nil
}
