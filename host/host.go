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

// Package host defines the contract between the hub and a node-server plugin
// and carries it over Hashicorp's go-plugin net/rpc transport.
package host

import (
	"context"
	"errors"
)

// ErrUnknownNode is returned when a command or driver names an address the
// receiver does not manage.
var ErrUnknownNode = errors.New("unknown node")

// ErrUnknownCommand is returned for a command name the node does not accept.
var ErrUnknownCommand = errors.New("unknown command")

// Driver is a named, typed value shown for a node (ST, GV3, ...).
type Driver struct {
	Name  string `json:"driver"`
	Value int    `json:"value"`
	UOM   int    `json:"uom"`
}

// NodeInfo describes a node the plugin registers with the hub.
type NodeInfo struct {
	Address string   `json:"address"`
	Primary string   `json:"primary"`
	Name    string   `json:"name"`
	NodeDef string   `json:"nodedef"`
	Drivers []Driver `json:"drivers"`
}

// Command is a named command addressed to one node. Value is nil for
// commands without a payload (DON, DOF, QUERY, ...).
type Command struct {
	Address string `json:"address"`
	Name    string `json:"cmd"`
	Value   *int   `json:"value,omitempty"`
}

// IntValue returns a pointer to v, for building a Command payload.
func IntValue(v int) *int {
	return &v
}

// Metadata identifies the plugin to the hub.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// NodeServer is the capability set a plugin exposes to the hub. The hub owns
// scheduling and calls ShortPoll and LongPoll on its own cadence.
type NodeServer interface {
	// Metadata returns plugin information
	Metadata(ctx context.Context) (Metadata, error)

	// Start reads the custom parameters and brings the controller up
	Start(ctx context.Context, params map[string]string) error

	ShortPoll(ctx context.Context) error
	LongPoll(ctx context.Context) error

	// Query asks every node to re-report all of its drivers
	Query(ctx context.Context) error

	// Delete is called when the node server is removed from the hub
	Delete(ctx context.Context) error

	// HandleCommand dispatches a hub command to the addressed node
	HandleCommand(ctx context.Context, cmd Command) error

	// Nodes returns a snapshot of every managed node and its drivers
	Nodes(ctx context.Context) ([]NodeInfo, error)

	// SetHost hands the plugin the hub's callback interface
	SetHost(h Host)
}

// Host is what the hub provides back to the plugin over the reverse channel.
type Host interface {
	// Ping verifies the reverse channel is responsive
	Ping(ctx context.Context) error

	// AddNode registers (or re-registers) a node
	AddNode(ctx context.Context, node NodeInfo) error

	// SetDriver reports a driver value. Unchanged values are dropped by the
	// hub unless force is set.
	SetDriver(ctx context.Context, address string, driver Driver, force bool) error

	// ReportCommand reports a command the node itself emitted (heartbeat)
	ReportCommand(ctx context.Context, address string, command string, value int, uom int) error

	// InstallProfile asks the hub to reload the generated profile artifacts
	InstallProfile(ctx context.Context) error
}
