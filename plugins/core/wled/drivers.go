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

import "github.com/we-are-mono/wledbridge/host"

// ControllerAddress is the fixed address of the controller node
const ControllerAddress = "controller"

// Node definitions referenced by the profile
const (
	NodeDefController = "controller"
	NodeDefDevice     = "WLED"
)

// Driver names
const (
	DriverStatus     = "ST"
	DriverBrightness = "GV3"
	DriverEffect     = "GV4"
	DriverColor      = "GV6"
)

// Units of measure
const (
	UOMBoolean = 2   // controller ready flag and heartbeat
	UOMPercent = 78  // device on (100) / off (0)
	UOMLevel   = 56  // raw brightness 0..255
	UOMIndex   = 25  // effect index
	UOMByte    = 100 // colour-wheel position 0..255
)

// Device ST values
const (
	StatusOn  = 100
	StatusOff = 0
)

// deviceDriverOrder is the order drivers are listed and re-reported in
var deviceDriverOrder = []string{DriverStatus, DriverBrightness, DriverEffect, DriverColor}

// defaultDeviceDrivers returns the initial driver set of a device node
func defaultDeviceDrivers() map[string]host.Driver {
	return map[string]host.Driver{
		DriverStatus:     {Name: DriverStatus, Value: StatusOff, UOM: UOMPercent},
		DriverBrightness: {Name: DriverBrightness, Value: 0, UOM: UOMLevel},
		DriverEffect:     {Name: DriverEffect, Value: 1, UOM: UOMIndex},
		DriverColor:      {Name: DriverColor, Value: 0, UOM: UOMByte},
	}
}

func statusValue(on bool) int {
	if on {
		return StatusOn
	}
	return StatusOff
}
