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

package host

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PluginPrefix is prepended to a plugin name to form its binary name
const PluginPrefix = "wledbridge-plugin-"

// PluginManager locates plugin binaries.
type PluginManager struct {
	pluginDirs []string
}

// NewPluginManager creates a manager with the default search directories.
// Search order: $WLEDBRIDGE_PLUGIN_DIR, ./bin (dev), /usr/lib/wledbridge/plugins
// (system), /opt/wledbridge/plugins (alt).
func NewPluginManager() *PluginManager {
	var dirs []string
	if dir := os.Getenv("WLEDBRIDGE_PLUGIN_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs,
		"./bin",
		"/usr/lib/wledbridge/plugins",
		"/opt/wledbridge/plugins",
	)
	return &PluginManager{pluginDirs: dirs}
}

// FindPlugin searches for a plugin binary by name ("wled" ->
// "wledbridge-plugin-wled"). An absolute path is accepted as-is if executable.
func (pm *PluginManager) FindPlugin(name string) (string, error) {
	if filepath.IsAbs(name) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("plugin not found: %s", name)
	}

	binary := PluginPrefix + name
	for _, dir := range pm.pluginDirs {
		pluginPath := filepath.Join(dir, binary)
		if isExecutable(pluginPath) {
			return pluginPath, nil
		}
	}

	return "", fmt.Errorf("plugin not found: %s", name)
}

// ListPlugins returns the sorted names (without prefix) of every plugin found
// in the search directories.
func (pm *PluginManager) ListPlugins() ([]string, error) {
	plugins := make(map[string]bool)

	for _, dir := range pm.pluginDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // Directory might not exist
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, PluginPrefix) {
				continue
			}
			if isExecutable(filepath.Join(dir, name)) {
				plugins[strings.TrimPrefix(name, PluginPrefix)] = true
			}
		}
	}

	result := make([]string, 0, len(plugins))
	for name := range plugins {
		result = append(result, name)
	}
	sort.Strings(result)

	return result, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && (info.Mode().Perm()&0111) != 0
}
