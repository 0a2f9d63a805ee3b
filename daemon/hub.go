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

package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
)

// profileArtifacts are the generated files a profile install picks up,
// relative to the profile directory
var profileArtifacts = []string{
	filepath.Join("nls", "en_us.txt"),
	filepath.Join("editor", "editors.xml"),
}

// Hub is the hub side of the plugin contract. The plugin reaches it through
// the reverse RPC channel to register nodes and report driver values.
type Hub struct {
	registry   *NodeRegistry
	history    *History // nil disables history
	profileDir string
	installs   atomic.Int32
	now        func() time.Time
}

// NewHub creates a hub backed by registry. history may be nil.
func NewHub(registry *NodeRegistry, history *History, profileDir string) *Hub {
	return &Hub{
		registry:   registry,
		history:    history,
		profileDir: profileDir,
		now:        time.Now,
	}
}

// Ping answers the plugin's liveness check
func (h *Hub) Ping(ctx context.Context) error {
	return nil
}

// AddNode registers a node and records its initial driver values
func (h *Hub) AddNode(ctx context.Context, node host.NodeInfo) error {
	if err := h.registry.AddNode(node); err != nil {
		return err
	}

	logger.Info("Node added",
		logger.F("address", node.Address),
		logger.F("name", node.Name),
		logger.F("nodedef", node.NodeDef))

	at := h.now()
	for _, d := range node.Drivers {
		h.record(node.Address, d, at)
	}
	return nil
}

// SetDriver stores a driver value and records it when it changed
func (h *Hub) SetDriver(ctx context.Context, address string, driver host.Driver, force bool) error {
	changed, err := h.registry.SetDriver(address, driver, force)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	logger.Debug("Driver updated",
		logger.F("address", address),
		logger.F("driver", driver.Name),
		logger.F("value", driver.Value))

	h.record(address, driver, h.now())
	return nil
}

// ReportCommand keeps a command the plugin reported, such as the heartbeat
func (h *Hub) ReportCommand(ctx context.Context, address string, command string, value int, uom int) error {
	h.registry.RecordReport(CommandReport{
		Address: address,
		Command: command,
		Value:   value,
		UOM:     uom,
		Time:    h.now(),
	})
	logger.Debug("Command reported", logger.F("address", address), logger.F("cmd", command))
	return nil
}

// InstallProfile checks that the generated artifacts are in place and counts
// the install. The plugin calls it after every profile rebuild.
func (h *Hub) InstallProfile(ctx context.Context) error {
	for _, rel := range profileArtifacts {
		path := filepath.Join(h.profileDir, rel)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("profile artifact missing: %w", err)
		}
	}

	n := h.installs.Add(1)
	logger.Info("Profile installed",
		logger.F("profile_dir", h.profileDir),
		logger.F("installs", n))
	return nil
}

// Installs returns how many profile installs succeeded
func (h *Hub) Installs() int {
	return int(h.installs.Load())
}

func (h *Hub) record(address string, driver host.Driver, at time.Time) {
	if h.history == nil {
		return
	}
	if err := h.history.Record(address, driver, at); err != nil {
		logger.Warn("Failed to record driver value",
			logger.F("address", address),
			logger.F("driver", driver.Name),
			logger.Err(err))
	}
}
