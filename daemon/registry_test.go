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

package daemon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/host"
)

func TestNodeRegistry_AddNode(t *testing.T) {
	r := NewNodeRegistry()

	require.NoError(t, r.AddNode(host.NodeInfo{Address: "controller", Name: "WLED Controller"}))
	require.NoError(t, r.AddNode(host.NodeInfo{Address: "device1", Name: "device1"}))
	require.NoError(t, r.AddNode(host.NodeInfo{Address: "controller", Name: "Renamed"}))

	nodes := r.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "controller", nodes[0].Address)
	assert.Equal(t, "Renamed", nodes[0].Name)
	assert.Equal(t, 2, r.Len())

	assert.Error(t, r.AddNode(host.NodeInfo{}))
}

func TestNodeRegistry_SetDriver(t *testing.T) {
	st := host.Driver{Name: "ST", Value: 100, UOM: 78}

	tests := []struct {
		name        string
		address     string
		driver      host.Driver
		force       bool
		wantChanged bool
		wantErr     error
	}{
		{name: "same value is not a change", address: "device1", driver: st, wantChanged: false},
		{name: "forced same value", address: "device1", driver: st, force: true, wantChanged: true},
		{name: "new value", address: "device1", driver: host.Driver{Name: "ST", Value: 0, UOM: 78}, wantChanged: true},
		{name: "new driver", address: "device1", driver: host.Driver{Name: "GV3", Value: 5, UOM: 56}, wantChanged: true},
		{name: "unknown node", address: "device9", driver: st, wantErr: host.ErrUnknownNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewNodeRegistry()
			require.NoError(t, r.AddNode(host.NodeInfo{Address: "device1", Drivers: []host.Driver{st}}))

			changed, err := r.SetDriver(tt.address, tt.driver, tt.force)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)

			got, ok := r.Driver(tt.address, tt.driver.Name)
			require.True(t, ok)
			assert.Equal(t, tt.driver, got)
		})
	}
}

func TestNodeRegistry_ReturnsCopies(t *testing.T) {
	r := NewNodeRegistry()
	drivers := []host.Driver{{Name: "ST", Value: 1, UOM: 2}}
	require.NoError(t, r.AddNode(host.NodeInfo{Address: "controller", Drivers: drivers}))

	drivers[0].Value = 99
	view, ok := r.Get("controller")
	require.True(t, ok)
	assert.Equal(t, 1, view.Drivers[0].Value)

	view.Drivers[0].Value = 42
	d, _ := r.Driver("controller", "ST")
	assert.Equal(t, 1, d.Value)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestNodeRegistry_ReportsAreBounded(t *testing.T) {
	r := NewNodeRegistry()
	for i := 0; i < maxReports+5; i++ {
		r.RecordReport(CommandReport{Address: "controller", Command: fmt.Sprintf("C%d", i)})
	}

	reports := r.Reports()
	require.Len(t, reports, maxReports)
	assert.Equal(t, "C5", reports[0].Command)
	assert.Equal(t, fmt.Sprintf("C%d", maxReports+4), reports[len(reports)-1].Command)
	assert.False(t, reports[0].Time.IsZero())
}
