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

package wled

import "github.com/lucasb-eyer/go-colorful"

// WheelToRGB maps a colour-wheel position (0..255) to a fully saturated RGB
// colour. Position 0 is red; positions wrap once around the hue circle.
func WheelToRGB(pos int) (r, g, b uint8) {
	if pos < 0 {
		pos = 0
	}
	if pos > 255 {
		pos = 255
	}
	return colorful.Hsv(float64(pos)*360.0/256.0, 1, 1).RGB255()
}
