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

package logger

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// JournaldBackend writes log entries to the systemd journal through systemd-cat
type JournaldBackend struct {
	tag    string
	format string // "json" or "text"
	mu     sync.Mutex
}

// NewJournaldBackend creates a new journald backend.
// Returns an error if systemd-cat is not available.
func NewJournaldBackend(tag, format string) (*JournaldBackend, error) {
	if _, err := exec.LookPath("systemd-cat"); err != nil {
		return nil, fmt.Errorf("systemd-cat not found: %w", err)
	}

	return &JournaldBackend{
		tag:    tag,
		format: format,
	}, nil
}

// journalPriority maps a log level to a syslog priority
func journalPriority(level string) string {
	switch level {
	case "debug":
		return "7"
	case "warn":
		return "4"
	case "error":
		return "3"
	default:
		return "6"
	}
}

// Write writes a log entry to systemd journal
func (b *JournaldBackend) Write(entry *Entry) error {
	line, err := formatEntry(entry, b.format)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := exec.Command("systemd-cat", "-t", b.tag, "-p", journalPriority(entry.Level))
	cmd.Stdin = strings.NewReader(strings.TrimSuffix(line, "\n"))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	return nil
}

// Close closes the journald backend
func (b *JournaldBackend) Close() error {
	return nil
}
