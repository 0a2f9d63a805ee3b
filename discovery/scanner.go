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

// Package discovery finds WLED controllers on the local network over mDNS.
// It only helps an operator compose the host list; the bridge itself never
// scans.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/vishvananda/netlink"

	"github.com/we-are-mono/wledbridge/logger"
)

// WLEDService is the service type WLED firmware announces
const WLEDService = "_wled._tcp"

// DefaultTimeout is how long each interface is queried
const DefaultTimeout = 3 * time.Second

// Device is one WLED controller answering the query
type Device struct {
	Name string `json:"name"`
	Host string `json:"host"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Scanner queries every usable link for WLED announcements
type Scanner struct {
	timeout      time.Duration
	log          logger.Logger
	query        func(ctx context.Context, params *mdns.QueryParam) error
	links        func() ([]netlink.Link, error)
	ifaceByIndex func(index int) (*net.Interface, error)
}

// NewScanner creates a scanner. A zero timeout uses DefaultTimeout.
func NewScanner(timeout time.Duration, log logger.Logger) *Scanner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scanner{
		timeout:      timeout,
		log:          log,
		query:        mdns.QueryContext,
		links:        netlink.LinkList,
		ifaceByIndex: net.InterfaceByIndex,
	}
}

// usableLink reports whether mDNS can be sent on a link
func usableLink(attrs *netlink.LinkAttrs) bool {
	return attrs.Flags&net.FlagUp != 0 &&
		attrs.Flags&net.FlagLoopback == 0 &&
		attrs.Flags&net.FlagMulticast != 0
}

// Interfaces returns the up, multicast-capable, non-loopback interfaces
func (s *Scanner) Interfaces() ([]*net.Interface, error) {
	links, err := s.links()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var ifaces []*net.Interface
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || !usableLink(attrs) {
			continue
		}
		iface, err := s.ifaceByIndex(attrs.Index)
		if err != nil {
			s.log.Debug("Skipping link", logger.F("link", attrs.Name), logger.Err(err))
			continue
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// Scan queries each usable interface in turn and returns the devices found,
// de-duplicated by IP and sorted. When no interface qualifies the system
// default is queried.
func (s *Scanner) Scan(ctx context.Context) ([]Device, error) {
	ifaces, err := s.Interfaces()
	if err != nil {
		s.log.Warn("Falling back to the default interface", logger.Err(err))
	}
	if len(ifaces) == 0 {
		ifaces = []*net.Interface{nil}
	}

	seen := make(map[string]Device)
	for _, iface := range ifaces {
		if ctx.Err() != nil {
			break
		}

		name := "default"
		if iface != nil {
			name = iface.Name
		}

		found, err := s.queryInterface(ctx, iface)
		if err != nil {
			s.log.Warn("mDNS query failed", logger.F("interface", name), logger.Err(err))
			continue
		}
		s.log.Debug("mDNS query done", logger.F("interface", name), logger.F("found", len(found)))

		for _, d := range found {
			if _, dup := seen[d.IP]; !dup {
				seen[d.IP] = d
			}
		}
	}

	devices := make([]Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return lessIP(devices[i].IP, devices[j].IP) })
	return devices, ctx.Err()
}

func (s *Scanner) queryInterface(ctx context.Context, iface *net.Interface) ([]Device, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		errCh <- s.query(ctx, &mdns.QueryParam{
			Service:             WLEDService,
			Domain:              "local",
			Timeout:             s.timeout,
			Interface:           iface,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: true,
		})
	}()

	var devices []Device
	for entry := range entries {
		if d, ok := deviceFromEntry(entry); ok {
			devices = append(devices, d)
		}
	}
	return devices, <-errCh
}

// deviceFromEntry converts an answer, dropping those without an IPv4 address
// or for another service
func deviceFromEntry(entry *mdns.ServiceEntry) (Device, bool) {
	if entry == nil || entry.AddrV4 == nil || entry.AddrV4.IsUnspecified() {
		return Device{}, false
	}
	if !strings.Contains(entry.Name, WLEDService) {
		return Device{}, false
	}

	name := entry.Name
	if i := strings.Index(name, "."+WLEDService); i > 0 {
		name = name[:i]
	}

	return Device{
		Name: strings.ReplaceAll(name, `\ `, " "),
		Host: strings.TrimSuffix(entry.Host, "."),
		IP:   entry.AddrV4.String(),
		Port: entry.Port,
	}, true
}

// lessIP orders addresses numerically, so 10.0.0.9 sorts before 10.0.0.10
func lessIP(a, b string) bool {
	ipA, ipB := net.ParseIP(a), net.ParseIP(b)
	if ipA == nil || ipB == nil {
		return a < b
	}
	if v4 := ipA.To4(); v4 != nil {
		ipA = v4
	}
	if v4 := ipB.To4(); v4 != nil {
		ipB = v4
	}
	if len(ipA) != len(ipB) {
		return len(ipA) < len(ipB)
	}
	return bytes.Compare(ipA, ipB) < 0
}

// Addr returns the host-list entry for the device. The port is kept unless
// it is the HTTP default.
func (d Device) Addr() string {
	if d.Port == 0 || d.Port == 80 {
		return d.IP
	}
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// HostList renders devices as the comma-separated host parameter
func HostList(devices []Device) string {
	addrs := make([]string, len(devices))
	for i, d := range devices {
		addrs[i] = d.Addr()
	}
	return strings.Join(addrs, ",")
}
