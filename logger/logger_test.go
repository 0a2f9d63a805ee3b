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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []Entry {
	t.Helper()
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Level: "warn", Component: "hub"}, []Backend{NewBufferBackend(buf, "json")}, nil)

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept", F("device", "device1"))
	log.Error("also kept", Err(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "hub", entries[0].Component)
	assert.Equal(t, "device1", entries[0].Fields["device"])
	assert.Equal(t, "boom", entries[1].Fields["error"])
}

func TestLogger_WithComponentAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := New(Config{Level: "debug", Component: "wled"}, []Backend{NewBufferBackend(buf, "json")}, nil)

	child := parent.With(F("component", "device"), F("ip", "10.0.0.5"))
	child.Info("refreshed", F("bri", 128))
	parent.Info("parent untouched")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "device", entries[0].Component)
	assert.Equal(t, "10.0.0.5", entries[0].Fields["ip"])
	assert.Equal(t, float64(128), entries[0].Fields["bri"])
	assert.NotContains(t, entries[0].Fields, "component")

	assert.Equal(t, "wled", entries[1].Component)
	assert.Empty(t, entries[1].Fields)
}

func TestErr_Nil(t *testing.T) {
	assert.Equal(t, Field{Key: "error", Value: ""}, Err(nil))
}

func TestEntry_ToText(t *testing.T) {
	e := &Entry{
		Timestamp: "2025-01-01T00:00:00Z",
		Level:     "info",
		Component: "controller",
		Message:   "Device added",
		Fields:    map[string]interface{}{"ip": "10.0.0.5", "device": "device1", "n": 2},
	}
	assert.Equal(t, "2025-01-01T00:00:00Z [info] [controller] Device added device=device1 ip=10.0.0.5 n=2", e.ToText())
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wledbridge.log")
	backend, err := NewFileBackend(path, "text")
	require.NoError(t, err)
	assert.Equal(t, path, backend.Path())

	require.NoError(t, backend.Write(NewEntry("info", "daemon", "started", nil)))
	require.NoError(t, backend.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[info] [daemon] started")
}

type recordingSubscriber struct {
	mu      sync.Mutex
	entries []*Entry
}

func (s *recordingSubscriber) OnLogEvent(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestEmitter_SubscribeUnsubscribe(t *testing.T) {
	emitter := NewEmitter()
	sub := &recordingSubscriber{}
	emitter.Subscribe(sub)
	assert.Equal(t, 1, emitter.Count())

	log := New(Config{Level: "info"}, nil, emitter)
	log.Info("hello")

	assert.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 10*time.Millisecond)

	emitter.Unsubscribe(sub)
	assert.Equal(t, 0, emitter.Count())
}

func TestGlobal_DefaultBeforeInit(t *testing.T) {
	saved := std
	defer func() { std = saved }()

	std = nil
	assert.NotNil(t, Default())
	Info("no panic without Init")

	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Component: "cli"}, []Backend{NewBufferBackend(buf, "text")}, nil)
	Info("after init")
	assert.Contains(t, buf.String(), "[cli] after init")
}
