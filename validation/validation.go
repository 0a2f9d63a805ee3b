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

// Package validation provides reusable validation helpers for wledbridge configuration.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var hostnameRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidatePort validates that a port number is in the valid range [1, 65535].
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of valid range [1, 65535]", port)
	}
	return nil
}

// ValidateIP validates that a string is a valid IPv4 or IPv6 address.
func ValidateIP(ip string) error {
	if ip == "" {
		return fmt.Errorf("IP address cannot be empty")
	}

	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address: %s", ip)
	}

	return nil
}

// ValidateHostname validates an RFC 1035 host name such as "wled-kitchen.local".
func ValidateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	if len(name) > 253 {
		return fmt.Errorf("hostname too long: %s (max 253 characters)", name)
	}
	if !hostnameRegex.MatchString(name) {
		return fmt.Errorf("invalid hostname: %s", name)
	}
	return nil
}

// ValidateDeviceAddress validates one entry of the host list. Accepted forms are
// an IP, a hostname, or either of those followed by ":port".
func ValidateDeviceAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("device address cannot be empty")
	}

	host := addr
	if h, portStr, err := net.SplitHostPort(addr); err == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port in %s: %w", addr, err)
		}
		if err := ValidatePort(port); err != nil {
			return fmt.Errorf("invalid port in %s: %w", addr, err)
		}
		host = h
	}

	if net.ParseIP(host) != nil {
		return nil
	}
	if err := ValidateHostname(host); err != nil {
		return fmt.Errorf("invalid device address %s: %w", addr, err)
	}
	return nil
}

// SplitHostList splits a comma-separated host list into trimmed, non-empty
// entries, preserving order.
func SplitHostList(list string) []string {
	var hosts []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hosts = append(hosts, part)
	}
	return hosts
}

// ValidateHostList validates every entry of a comma-separated host list.
func ValidateHostList(list string) error {
	hosts := SplitHostList(list)
	if len(hosts) == 0 {
		return fmt.Errorf("host list cannot be empty")
	}

	ec := NewCollector()
	for i, h := range hosts {
		ec.CheckMsg(ValidateDeviceAddress(h), fmt.Sprintf("host %d", i+1))
	}
	return ec.Error()
}

// ValidateRange validates that value lies within [min, max].
func ValidateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s %d out of valid range [%d, %d]", name, value, min, max)
	}
	return nil
}

// ValidateLogLevel validates a logger level name. Empty means the default.
func ValidateLogLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", level)
	}
}
