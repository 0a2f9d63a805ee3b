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

// Package daemon implements the wledbridge development hub and its IPC protocol.
package daemon

import (
	"time"

	"github.com/we-are-mono/wledbridge/host"
)

// LogFilter defines filtering criteria for log streaming
type LogFilter struct {
	Level     string `json:"level,omitempty"`     // Filter by log level (debug, info, warn, error)
	Component string `json:"component,omitempty"` // Filter by component name
}

// Request represents a command sent to the daemon
type Request struct {
	Value       *int       `json:"value,omitempty"`
	Command     string     `json:"command"`           // status, nodes, command, discover, query, install-profile, history, logs-subscribe
	Address     string     `json:"address,omitempty"` // Node address for command and history
	NodeCommand string     `json:"cmd,omitempty"`     // Node command name, e.g. DON or SET_BRI
	Driver      string     `json:"driver,omitempty"`  // Driver filter for history
	Limit       int        `json:"limit,omitempty"`   // Row limit for history (0 = default)
	LogFilter   *LogFilter `json:"log_filter,omitempty"`
}

// Response represents the daemon's response
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Success bool        `json:"success"`
}

// StatusInfo is the data payload of the status command
type StatusInfo struct {
	Plugin          string         `json:"plugin"`
	Version         string         `json:"version"`
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	Nodes           int            `json:"nodes"`
	ControllerST    int            `json:"controller_st"`
	ProfileInstalls int            `json:"profile_installs"`
	ShortPoll       int            `json:"short_poll"`
	LongPoll        int            `json:"long_poll"`
	LastReport      *CommandReport `json:"last_report,omitempty"`
}

// NodeView is one node with its current driver values, as returned by nodes
type NodeView struct {
	host.NodeInfo
	Updated time.Time `json:"updated"`
}

// CommandReport is a command a node reported to the hub (heartbeat DON/DOF)
type CommandReport struct {
	Address string    `json:"address"`
	Command string    `json:"cmd"`
	Value   int       `json:"value"`
	UOM     int       `json:"uom"`
	Time    time.Time `json:"time"`
}
