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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/host"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "sub", "history.db"), "run-1")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecordAndQuery(t *testing.T) {
	h := openTestHistory(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record("device1", host.Driver{Name: "ST", Value: 100, UOM: 78}, base))
	require.NoError(t, h.Record("device1", host.Driver{Name: "GV3", Value: 128, UOM: 56}, base.Add(time.Second)))
	require.NoError(t, h.Record("device1", host.Driver{Name: "ST", Value: 0, UOM: 78}, base.Add(2*time.Second)))
	require.NoError(t, h.Record("device2", host.Driver{Name: "ST", Value: 100, UOM: 78}, base))

	records, err := h.Query("device1", "ST", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 100, records[0].Value)
	assert.Equal(t, 0, records[1].Value)
	assert.Equal(t, "run-1", records[0].RunID)
	assert.True(t, records[1].Timestamp.Equal(base.Add(2*time.Second)))

	all, err := h.Query("device1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := h.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestHistory_QueryLimitKeepsNewest(t *testing.T) {
	h := openTestHistory(t)
	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Record("device1", host.Driver{Name: "GV3", Value: i, UOM: 56}, now))
	}

	records, err := h.Query("device1", "GV3", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Value)
	assert.Equal(t, 4, records[1].Value)
}

func TestHistory_QueryUnknownNode(t *testing.T) {
	h := openTestHistory(t)

	records, err := h.Query("nope", "", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistory_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := OpenHistory(path, "first")
	require.NoError(t, err)
	require.NoError(t, h.Record("controller", host.Driver{Name: "ST", Value: 1, UOM: 2}, time.Now()))
	require.NoError(t, h.Close())

	h, err = OpenHistory(path, "second")
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.Record("controller", host.Driver{Name: "ST", Value: 0, UOM: 2}, time.Now()))

	records, err := h.Query("controller", "ST", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].RunID)
	assert.Equal(t, "second", records[1].RunID)
}
