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
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/logger"
)

func TestSocketLogSubscriber_Matches(t *testing.T) {
	entry := logger.NewEntry("warn", "device", "Unable to connect to WLED", nil)

	tests := []struct {
		name   string
		filter *LogFilter
		want   bool
	}{
		{name: "no filter", filter: nil, want: true},
		{name: "empty filter", filter: &LogFilter{}, want: true},
		{name: "level match ignores case", filter: &LogFilter{Level: "WARN"}, want: true},
		{name: "level mismatch", filter: &LogFilter{Level: "error"}, want: false},
		{name: "component match", filter: &LogFilter{Component: "device"}, want: true},
		{name: "component mismatch", filter: &LogFilter{Component: "hub"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSocketLogSubscriber(nil, tt.filter)
			assert.Equal(t, tt.want, s.Matches(entry))
		})
	}
}

func TestSocketLogSubscriber_WritesJSONLines(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	s := NewSocketLogSubscriber(serverConn, &LogFilter{Component: "controller"})
	entry := logger.NewEntry("info", "controller", "Discovery complete", map[string]interface{}{"devices": 2})

	go func() {
		_ = s.OnLogEvent(logger.NewEntry("info", "hub", "filtered out", nil))
		_ = s.OnLogEvent(entry)
	}()

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(5*time.Second)))
	line, err := bufio.NewReader(clientConn).ReadBytes('\n')
	require.NoError(t, err)

	var got logger.Entry
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Equal(t, "Discovery complete", got.Message)
	assert.Equal(t, "controller", got.Component)
}

func TestSocketLogSubscriber_ClosedSkipsWrites(t *testing.T) {
	s := NewSocketLogSubscriber(nil, nil)
	s.Close()

	assert.NoError(t, s.OnLogEvent(logger.NewEntry("info", "hub", "ignored", nil)))
}
