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

package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/we-are-mono/wledbridge/validation"
)

// BridgeNamespace is the config file name (without .json) for the bridge
const BridgeNamespace = "wled"

// DefaultVersion is reported when server.json carries no version
const DefaultVersion = "0.0.0"

// BridgeConfig is the operator-facing configuration of the hub and plugin.
type BridgeConfig struct {
	// Host is the comma-separated list of WLED device addresses
	Host string `json:"host"`

	// ShortPoll and LongPoll are the scheduler cadences in seconds
	ShortPoll int `json:"short_poll"`
	LongPoll  int `json:"long_poll"`

	// Plugin is the plugin name (wledbridge-plugin-<name>) or an absolute path
	Plugin string `json:"plugin"`

	// DataDir holds the effect cache and server.json
	DataDir string `json:"data_dir"`

	// ProfileDir holds the profile templates and generated artifacts
	ProfileDir string `json:"profile_dir"`

	// HistoryPath is the SQLite file recording driver values. Empty disables history.
	HistoryPath string `json:"history_path,omitempty"`

	// DeviceTimeout bounds each HTTP call to a device, in seconds
	DeviceTimeout int `json:"device_timeout"`

	LogLevel string `json:"log_level,omitempty"`
}

// DefaultBridgeConfig returns the configuration used for unset fields
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		ShortPoll:     10,
		LongPoll:      60,
		Plugin:        "wled",
		DataDir:       "/var/lib/wledbridge",
		ProfileDir:    "/var/lib/wledbridge/profile",
		HistoryPath:   "/var/lib/wledbridge/history.db",
		DeviceTimeout: 5,
		LogLevel:      "info",
	}
}

// applyDefaults fills zero-valued fields from DefaultBridgeConfig
func (c *BridgeConfig) applyDefaults() {
	def := DefaultBridgeConfig()
	if c.ShortPoll == 0 {
		c.ShortPoll = def.ShortPoll
	}
	if c.LongPoll == 0 {
		c.LongPoll = def.LongPoll
	}
	if c.Plugin == "" {
		c.Plugin = def.Plugin
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.ProfileDir == "" {
		c.ProfileDir = filepath.Join(c.DataDir, "profile")
	}
	if c.DeviceTimeout == 0 {
		c.DeviceTimeout = def.DeviceTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks every field and reports all problems together.
// A missing host is reported too; the plugin treats it as a start failure.
func (c *BridgeConfig) Validate() error {
	ec := validation.NewCollector()
	ec.CheckMsg(validation.ValidateHostList(c.Host), "host")
	ec.CheckMsg(validation.ValidateRange("short_poll", c.ShortPoll, 1, 3600), "short_poll")
	ec.CheckMsg(validation.ValidateRange("long_poll", c.LongPoll, 1, 86400), "long_poll")
	ec.CheckMsg(validation.ValidateRange("device_timeout", c.DeviceTimeout, 1, 120), "device_timeout")
	ec.CheckMsg(validation.ValidateLogLevel(c.LogLevel), "log_level")
	if c.LongPoll < c.ShortPoll {
		ec.Check(fmt.Errorf("long_poll (%d) must not be shorter than short_poll (%d)", c.LongPoll, c.ShortPoll))
	}
	return ec.Error()
}

// LoadBridgeConfig loads wled.json from the config directory and applies
// defaults. A missing file yields the defaults (with an empty host list).
func LoadBridgeConfig() (*BridgeConfig, error) {
	config := &BridgeConfig{}
	if err := LoadConfig(BridgeNamespace, config); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultBridgeConfig(), nil
		}
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

// SaveBridgeConfig writes wled.json to the config directory
func SaveBridgeConfig(config *BridgeConfig) error {
	return SaveConfig(BridgeNamespace, config)
}

type serverManifest struct {
	Credits []struct {
		Version string `json:"version"`
	} `json:"credits"`
}

// ReadVersion reads credits[0].version from a server.json side-car file.
// Any failure yields DefaultVersion together with the reason.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultVersion, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var manifest serverManifest
	if err := UnmarshalJSON(data, &manifest); err != nil {
		return DefaultVersion, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(manifest.Credits) == 0 || manifest.Credits[0].Version == "" {
		return DefaultVersion, fmt.Errorf("version not found in %s", path)
	}
	return manifest.Credits[0].Version, nil
}
