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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/host"
)

func deviceNodes(nodes []host.NodeInfo) []host.NodeInfo {
	var out []host.NodeInfo
	for _, n := range nodes {
		if n.Address != ControllerAddress {
			out = append(out, n)
		}
	}
	return out
}

func TestController_Metadata(t *testing.T) {
	env := newTestEnv(t)

	meta, err := env.ctrl.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wled", meta.Name)
	assert.Equal(t, "1.0.0", meta.Version)
}

func TestController_StartMissingHost(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{name: "absent", params: map[string]string{}},
		{name: "blank", params: map[string]string{"host": " , "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			err := env.ctrl.Start(context.Background(), tt.params)
			require.ErrorIs(t, err, ErrMissingHost)
			assert.Equal(t, 0, env.ctrl.Status())
			assert.False(t, env.ctrl.Discovering())

			reports := env.host.Drivers()
			require.NotEmpty(t, reports)
			assert.Equal(t, driverReport{
				Address: ControllerAddress,
				Driver:  host.Driver{Name: DriverStatus, Value: 0, UOM: UOMBoolean},
			}, reports[len(reports)-1])
		})
	}
}

func TestController_DiscoveryCreatesPositionalDevices(t *testing.T) {
	env := newTestEnv(t)

	env.startAndWait(t, "10.0.0.5,10.0.0.6")

	assert.Equal(t, 1, env.ctrl.Status())

	d1, ok := env.ctrl.Device("device1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", d1.IP())

	d2, ok := env.ctrl.Device("device2")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.6", d2.IP())

	_, ok = env.ctrl.Device("device3")
	assert.False(t, ok)

	added := deviceNodes(env.host.Nodes())
	require.Len(t, added, 2)
	assert.Equal(t, "device1", added[0].Address)
	assert.Equal(t, "device2", added[1].Address)
	assert.Equal(t, ControllerAddress, added[0].Primary)
	assert.Equal(t, NodeDefDevice, added[0].NodeDef)
}

func TestController_DiscoveryTokenRules(t *testing.T) {
	tests := []struct {
		name  string
		hosts string
		want  []string
	}{
		{name: "single", hosts: "10.0.0.5", want: []string{"10.0.0.5"}},
		{name: "whitespace trimmed", hosts: " 10.0.0.5 , 10.0.0.6 ", want: []string{"10.0.0.5", "10.0.0.6"}},
		{name: "empty tokens skipped", hosts: "10.0.0.5,,10.0.0.7,", want: []string{"10.0.0.5", "10.0.0.7"}},
		{name: "order defines identity", hosts: "10.0.0.6,10.0.0.5", want: []string{"10.0.0.6", "10.0.0.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.startAndWait(t, tt.hosts)

			nodes, err := env.ctrl.Nodes(context.Background())
			require.NoError(t, err)
			devices := deviceNodes(nodes)
			require.Len(t, devices, len(tt.want))

			for i, ip := range tt.want {
				p, ok := env.ctrl.Device(devices[i].Address)
				require.True(t, ok)
				assert.Equal(t, ip, p.IP())
				assert.Equal(t, "device"+string(rune('1'+i)), p.Address())
			}
		})
	}
}

func TestController_NoDuplicateDiscovery(t *testing.T) {
	env := newTestEnv(t)
	gate := make(chan struct{})
	env.prepare = func(ip string, c *fakeClient) { c.gate = gate }

	require.NoError(t, env.ctrl.Start(context.Background(), map[string]string{"host": "10.0.0.5,10.0.0.6"}))
	require.True(t, env.ctrl.Discovering())

	// a racing request while the first run is blocked must be a no-op
	assert.False(t, env.ctrl.Discover())
	require.NoError(t, env.ctrl.HandleCommand(context.Background(), host.Command{Address: ControllerAddress, Name: "DISCOVERY"}))

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.ctrl.WaitDiscovery(ctx))
	assert.False(t, env.ctrl.Discovering())

	assert.Len(t, deviceNodes(env.host.Nodes()), 2)
	env.mu.Lock()
	assert.Len(t, env.clients, 2)
	env.mu.Unlock()
}

func TestController_RediscoveryKeepsExistingProxies(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5")
	first, _ := env.ctrl.Device("device1")

	require.True(t, env.ctrl.Discover())
	require.NoError(t, env.ctrl.WaitDiscovery(context.Background()))

	again, _ := env.ctrl.Device("device1")
	assert.Same(t, first, again)
	assert.Len(t, deviceNodes(env.host.Nodes()), 2, "node is re-registered with the hub")
}

func TestController_ShortPollSkippedDuringDiscovery(t *testing.T) {
	env := newTestEnv(t)
	gate := make(chan struct{})
	env.prepare = func(ip string, c *fakeClient) { c.gate = gate }

	require.NoError(t, env.ctrl.Start(context.Background(), map[string]string{"host": "10.0.0.5"}))
	reportsBefore := len(env.host.Drivers())

	require.NoError(t, env.ctrl.ShortPoll(context.Background()))
	assert.Len(t, env.host.Drivers(), reportsBefore)

	close(gate)
	require.NoError(t, env.ctrl.WaitDiscovery(context.Background()))

	calls := len(env.client("10.0.0.5").Calls())
	require.NoError(t, env.ctrl.ShortPoll(context.Background()))
	assert.Greater(t, len(env.client("10.0.0.5").Calls()), calls, "device refreshed after discovery")
}

func TestController_ShortPollBeforeStart(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.ctrl.ShortPoll(context.Background()))
	assert.Empty(t, env.host.Drivers())
	assert.Equal(t, 0, env.ctrl.Status())
}

func TestController_HeartbeatAlternates(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, env.ctrl.LongPoll(context.Background()))
	}

	assert.Equal(t, []string{"DON", "DOF", "DON", "DOF", "DON"}, env.host.Commands())
	for _, c := range env.host.commands {
		assert.Equal(t, ControllerAddress, c.Address)
		assert.Equal(t, UOMBoolean, c.UOM)
	}
}

func TestController_LongPollRefreshesAfterDiscovery(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5")
	c := env.client("10.0.0.5")
	before := len(c.Calls())

	require.NoError(t, env.ctrl.LongPoll(context.Background()))

	assert.Equal(t, []string{"State"}, c.Calls()[before:])
}

func TestController_HandleCommandRouting(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5,10.0.0.6")
	ctx := context.Background()

	require.NoError(t, env.ctrl.HandleCommand(ctx, host.Command{Address: "device2", Name: "SET_BRI", Value: host.IntValue(33)}))
	d2, _ := env.ctrl.Device("device2")
	d1, _ := env.ctrl.Device("device1")
	assert.Equal(t, 33, driverValue(t, d2, DriverBrightness))
	assert.Equal(t, 128, driverValue(t, d1, DriverBrightness))

	err := env.ctrl.HandleCommand(ctx, host.Command{Address: "device9", Name: "DON"})
	assert.ErrorIs(t, err, host.ErrUnknownNode)

	err = env.ctrl.HandleCommand(ctx, host.Command{Address: ControllerAddress, Name: "DON"})
	assert.ErrorIs(t, err, host.ErrUnknownCommand)

	err = env.ctrl.HandleCommand(ctx, host.Command{Address: "device1", Name: "FLASH"})
	assert.ErrorIs(t, err, host.ErrUnknownCommand)
}

func TestController_Query(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5,10.0.0.6")
	before := len(env.host.Drivers())

	require.NoError(t, env.ctrl.HandleCommand(context.Background(), host.Command{Address: ControllerAddress, Name: "QUERY"}))

	reports := env.host.Drivers()[before:]
	require.Len(t, reports, 1+2*len(deviceDriverOrder))
	assert.Equal(t, ControllerAddress, reports[0].Address)
	for _, r := range reports {
		assert.True(t, r.Force)
	}
}

func TestController_InstallProfile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.ctrl.InstallProfile(context.Background()))
	assert.Equal(t, 1, env.host.Installs())

	env.host.installErr = assert.AnError
	assert.Error(t, env.ctrl.InstallProfile(context.Background()))

	env.ctrl.SetHost(nil)
	assert.Error(t, env.ctrl.InstallProfile(context.Background()))
}

func TestController_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5")

	require.NoError(t, env.ctrl.Delete(context.Background()))

	_, ok := env.ctrl.Device("device1")
	assert.False(t, ok)
	nodes, err := env.ctrl.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestController_StartAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	env.startAndWait(t, "10.0.0.5")
	require.NoError(t, env.ctrl.Delete(context.Background()))

	env.startAndWait(t, "10.0.0.5,10.0.0.6")

	for _, address := range []string{"device1", "device2"} {
		_, ok := env.ctrl.Device(address)
		assert.True(t, ok, address)
	}
}
