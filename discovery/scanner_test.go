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

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"github.com/we-are-mono/wledbridge/logger"
)

func link(index int, name string, flags net.Flags) netlink.Link {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Index: index, Name: name, Flags: flags}}
}

func entry(name, ip string) *mdns.ServiceEntry {
	return &mdns.ServiceEntry{
		Name:   name + "." + WLEDService + ".local.",
		Host:   name + ".local.",
		AddrV4: net.ParseIP(ip),
		Port:   80,
	}
}

func newTestScanner(links []netlink.Link, answers map[string][]*mdns.ServiceEntry) (*Scanner, *[]string) {
	var mu sync.Mutex
	queried := []string{}

	s := NewScanner(0, logger.Nop())
	s.links = func() ([]netlink.Link, error) { return links, nil }
	s.ifaceByIndex = func(index int) (*net.Interface, error) {
		for _, l := range links {
			if l.Attrs().Index == index {
				return &net.Interface{Index: index, Name: l.Attrs().Name}, nil
			}
		}
		return nil, fmt.Errorf("no such interface %d", index)
	}
	s.query = func(ctx context.Context, params *mdns.QueryParam) error {
		name := "default"
		if params.Interface != nil {
			name = params.Interface.Name
		}
		mu.Lock()
		queried = append(queried, name)
		mu.Unlock()

		if params.Service != WLEDService {
			return errors.New("unexpected service")
		}
		for _, e := range answers[name] {
			params.Entries <- e
		}
		return nil
	}
	return s, &queried
}

func TestUsableLink(t *testing.T) {
	tests := []struct {
		name  string
		flags net.Flags
		want  bool
	}{
		{name: "up multicast", flags: net.FlagUp | net.FlagMulticast, want: true},
		{name: "down", flags: net.FlagMulticast, want: false},
		{name: "loopback", flags: net.FlagUp | net.FlagLoopback | net.FlagMulticast, want: false},
		{name: "no multicast", flags: net.FlagUp, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usableLink(&netlink.LinkAttrs{Flags: tt.flags}))
		})
	}
}

func TestDeviceFromEntry(t *testing.T) {
	d, ok := deviceFromEntry(entry(`Living\ Room`, "192.168.1.20"))
	require.True(t, ok)
	assert.Equal(t, Device{Name: "Living Room", Host: `Living\ Room.local`, IP: "192.168.1.20", Port: 80}, d)

	_, ok = deviceFromEntry(&mdns.ServiceEntry{Name: "x._wled._tcp.local."})
	assert.False(t, ok, "no address")

	_, ok = deviceFromEntry(&mdns.ServiceEntry{Name: "printer._ipp._tcp.local.", AddrV4: net.ParseIP("10.0.0.9")})
	assert.False(t, ok, "other service")

	_, ok = deviceFromEntry(nil)
	assert.False(t, ok)
}

func TestScanner_Interfaces(t *testing.T) {
	s, _ := newTestScanner([]netlink.Link{
		link(1, "lo", net.FlagUp|net.FlagLoopback|net.FlagMulticast),
		link(2, "eth0", net.FlagUp|net.FlagMulticast),
		link(3, "wlan0", net.FlagMulticast),
		link(4, "br0", net.FlagUp|net.FlagMulticast),
	}, nil)

	ifaces, err := s.Interfaces()
	require.NoError(t, err)
	require.Len(t, ifaces, 2)
	assert.Equal(t, "eth0", ifaces[0].Name)
	assert.Equal(t, "br0", ifaces[1].Name)
}

func TestScanner_ScanDeduplicatesAndSorts(t *testing.T) {
	s, queried := newTestScanner([]netlink.Link{
		link(2, "eth0", net.FlagUp|net.FlagMulticast),
		link(4, "br0", net.FlagUp|net.FlagMulticast),
	}, map[string][]*mdns.ServiceEntry{
		"eth0": {entry("desk", "192.168.1.30"), entry("shelf", "192.168.1.12")},
		"br0":  {entry("desk", "192.168.1.30")},
	})

	devices, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"eth0", "br0"}, *queried)
	require.Len(t, devices, 2)
	assert.Equal(t, "192.168.1.12", devices[0].IP)
	assert.Equal(t, "shelf", devices[0].Name)
	assert.Equal(t, "192.168.1.12,192.168.1.30", HostList(devices))
}

func TestScanner_ScanFallsBackToDefaultInterface(t *testing.T) {
	s, queried := newTestScanner(nil, map[string][]*mdns.ServiceEntry{
		"default": {entry("wled-1", "10.0.0.5")},
	})

	devices, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"default"}, *queried)
	require.Len(t, devices, 1)
	assert.Equal(t, "10.0.0.5", devices[0].IP)
}

func TestScanner_ScanCancelled(t *testing.T) {
	s, queried := newTestScanner([]netlink.Link{link(2, "eth0", net.FlagUp|net.FlagMulticast)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices, err := s.Scan(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, devices)
	assert.Empty(t, *queried)
}

func TestScanner_ScanSortsNumerically(t *testing.T) {
	s, _ := newTestScanner([]netlink.Link{link(2, "eth0", net.FlagUp|net.FlagMulticast)},
		map[string][]*mdns.ServiceEntry{
			"eth0": {entry("c", "10.0.0.10"), entry("a", "10.0.0.9"), entry("b", "9.0.0.200")},
		})

	devices, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "9.0.0.200,10.0.0.9,10.0.0.10", HostList(devices))
}

func TestHostList(t *testing.T) {
	tests := []struct {
		name    string
		devices []Device
		want    string
	}{
		{name: "empty", want: ""},
		{
			name:    "default port dropped",
			devices: []Device{{IP: "10.0.0.5", Port: 80}, {IP: "10.0.0.6"}},
			want:    "10.0.0.5,10.0.0.6",
		},
		{
			name:    "custom port kept",
			devices: []Device{{IP: "10.0.0.5", Port: 8080}, {IP: "10.0.0.6", Port: 80}},
			want:    "10.0.0.5:8080,10.0.0.6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HostList(tt.devices))
		})
	}
}
