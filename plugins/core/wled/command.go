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

package main

import (
	"fmt"

	"github.com/we-are-mono/wledbridge/host"
)

// Command is the closed set of commands a node accepts. Only types in this
// file implement it.
type Command interface {
	// Name returns the hub-facing command name
	Name() string
	isCommand()
}

type (
	// PowerOn turns the device on (DON)
	PowerOn struct{}

	// PowerOff turns the device off (DOF)
	PowerOff struct{}

	// SetBrightness sets the master brightness (SET_BRI)
	SetBrightness struct{ Level int }

	// SetEffect selects an effect by its 1-based UI index (SET_EFFECT)
	SetEffect struct{ Index int }

	// SetColor sets the colour from a wheel position (SET_COLOR_ID)
	SetColor struct{ Position int }

	// RebuildProfile refetches effects and regenerates the profile (SET_PROFILE)
	RebuildProfile struct{}

	// QueryDrivers re-reports every driver (QUERY)
	QueryDrivers struct{}

	// Discover reruns discovery; controller only (DISCOVERY)
	Discover struct{}
)

func (PowerOn) Name() string        { return "DON" }
func (PowerOff) Name() string       { return "DOF" }
func (SetBrightness) Name() string  { return "SET_BRI" }
func (SetEffect) Name() string      { return "SET_EFFECT" }
func (SetColor) Name() string       { return "SET_COLOR_ID" }
func (RebuildProfile) Name() string { return "SET_PROFILE" }
func (QueryDrivers) Name() string   { return "QUERY" }
func (Discover) Name() string       { return "DISCOVERY" }

func (PowerOn) isCommand()        {}
func (PowerOff) isCommand()       {}
func (SetBrightness) isCommand()  {}
func (SetEffect) isCommand()      {}
func (SetColor) isCommand()       {}
func (RebuildProfile) isCommand() {}
func (QueryDrivers) isCommand()   {}
func (Discover) isCommand()       {}

// ParseCommand converts a hub command into a typed Command, checking that
// payload-carrying commands have a value in range.
func ParseCommand(hc host.Command) (Command, error) {
	switch hc.Name {
	case "DON":
		return PowerOn{}, nil
	case "DOF":
		return PowerOff{}, nil
	case "SET_PROFILE":
		return RebuildProfile{}, nil
	case "QUERY":
		return QueryDrivers{}, nil
	case "DISCOVERY":
		return Discover{}, nil
	case "SET_BRI":
		v, err := payload(hc, 0, 255)
		if err != nil {
			return nil, err
		}
		return SetBrightness{Level: v}, nil
	case "SET_EFFECT":
		v, err := payload(hc, 1, 1<<16)
		if err != nil {
			return nil, err
		}
		return SetEffect{Index: v}, nil
	case "SET_COLOR_ID":
		v, err := payload(hc, 0, 255)
		if err != nil {
			return nil, err
		}
		return SetColor{Position: v}, nil
	default:
		return nil, fmt.Errorf("%w: %q", host.ErrUnknownCommand, hc.Name)
	}
}

func payload(hc host.Command, min, max int) (int, error) {
	if hc.Value == nil {
		return 0, fmt.Errorf("%s requires a value", hc.Name)
	}
	v := *hc.Value
	if v < min || v > max {
		return 0, fmt.Errorf("%s value %d out of range [%d, %d]", hc.Name, v, min, max)
	}
	return v, nil
}
