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

// Package state manages configuration files and small persisted artifacts for wledbridge.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultConfigBasePath = "/etc/wledbridge"
)

// GetConfigDir returns the configuration directory path.
// Checks WLEDBRIDGE_CONFIG_DIR environment variable, falls back to /etc/wledbridge
func GetConfigDir() string {
	if dir := os.Getenv("WLEDBRIDGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigBasePath
}

// ConfigPath returns the file path for a namespace's config file
func ConfigPath(namespace string) string {
	return filepath.Join(GetConfigDir(), namespace+".json")
}

// LoadConfig loads configuration for a given namespace from the config file.
// The config parameter should be a pointer to the struct to unmarshal into.
func LoadConfig(namespace string, config interface{}) error {
	path := ConfigPath(namespace)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s config: %w", namespace, err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, col := getLineCol(data, syntaxErr.Offset)
			return fmt.Errorf("failed to parse %s config at %s line %d, column %d: %w",
				namespace, path, line, col, err)
		}
		return fmt.Errorf("failed to parse %s config: %w", namespace, err)
	}

	return nil
}

// getLineCol calculates the line and column number for a byte offset in JSON data
func getLineCol(data []byte, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return
}

// SaveConfig saves configuration for a given namespace, keeping a timestamped
// backup of the previous file.
func SaveConfig(namespace string, config interface{}) error {
	path := ConfigPath(namespace)

	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
		if err := copyFile(path, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s config: %w", namespace, err)
	}

	return WriteFileAtomic(path, data, 0600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0600)
}

// UnmarshalJSON unmarshals JSON data with line/column information on syntax errors
func UnmarshalJSON(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, col := getLineCol(data, syntaxErr.Offset)
			return fmt.Errorf("JSON syntax error at line %d, column %d: %w", line, col, err)
		}
		return err
	}
	return nil
}
