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

//go:build integration

// Package integration runs the daemon against the real plugin binary and
// fake WLED devices served over HTTP.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/client"
	"github.com/we-are-mono/wledbridge/daemon"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/state"
)

// pluginSource is the plugin package relative to this directory
const pluginSource = "../../plugins/core/wled"

// FakeDevice is a WLED device answering the JSON API from memory
type FakeDevice struct {
	Server *httptest.Server

	mu      sync.Mutex
	on      bool
	bri     int
	fx      int
	effects []string
	posts   []map[string]interface{}
}

// NewFakeDevice starts a device with the given effect names
func NewFakeDevice(t *testing.T, effects ...string) *FakeDevice {
	t.Helper()
	d := &FakeDevice{bri: 128, effects: effects}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	t.Cleanup(d.Server.Close)
	return d
}

// Addr returns host:port for the host list
func (d *FakeDevice) Addr() string {
	return strings.TrimPrefix(d.Server.URL, "http://")
}

// Brightness returns the last brightness the device was set to
func (d *FakeDevice) Brightness() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bri
}

// Posts returns the state bodies the device received
func (d *FakeDevice) Posts() []map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]map[string]interface{}(nil), d.posts...)
}

func (d *FakeDevice) serveHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case r.URL.Path == "/json/state" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]interface{}{
			"on":  d.on,
			"bri": d.bri,
			"seg": []map[string]interface{}{{"id": 0, "fx": d.fx}},
		})
	case r.URL.Path == "/json/state" && r.Method == http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var update map[string]interface{}
		if err := json.Unmarshal(body, &update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.posts = append(d.posts, update)
		if on, ok := update["on"].(bool); ok {
			d.on = on
		}
		if bri, ok := update["bri"].(float64); ok {
			d.bri = int(bri)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/json/effects":
		json.NewEncoder(w).Encode(d.effects)
	case r.URL.Path == "/json/info":
		json.NewEncoder(w).Encode(map[string]interface{}{"ver": "0.14.0", "name": "WLED"})
	default:
		http.NotFound(w, r)
	}
}

// TestHarness provides an isolated daemon with its own config, data and socket
type TestHarness struct {
	t          *testing.T
	configDir  string
	dataDir    string
	profileDir string
	socketPath string
	logs       *bytes.Buffer
	server     *daemon.Server
	done       chan error
}

// NewTestHarness builds the plugin and prepares a config for the given devices
func NewTestHarness(t *testing.T, devices ...*FakeDevice) *TestHarness {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	h := &TestHarness{
		t:          t,
		configDir:  filepath.Join(root, "config"),
		dataDir:    filepath.Join(root, "data"),
		profileDir: filepath.Join(root, "data", "profile"),
		socketPath: filepath.Join(root, "wledbridge.sock"),
		logs:       &bytes.Buffer{},
	}

	pluginDir := filepath.Join(root, "plugins")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))
	build := exec.Command("go", "build", "-o", filepath.Join(pluginDir, "wledbridge-plugin-wled"), pluginSource)
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building plugin: %s", out)

	for _, rel := range []string{"nls/en_us.template", "editor/editors.template"} {
		data, err := os.ReadFile(filepath.Join(pluginSource, "profile", rel))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(h.profileDir, rel)), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(h.profileDir, rel), data, 0644))
	}

	t.Setenv("WLEDBRIDGE_CONFIG_DIR", h.configDir)
	t.Setenv("WLEDBRIDGE_SOCKET_PATH", h.socketPath)
	t.Setenv("WLEDBRIDGE_PLUGIN_DIR", pluginDir)

	addrs := make([]string, len(devices))
	for i, d := range devices {
		addrs[i] = d.Addr()
	}

	config := &state.BridgeConfig{
		Host:          strings.Join(addrs, ","),
		ShortPoll:     1,
		LongPoll:      2,
		Plugin:        "wled",
		DataDir:       h.dataDir,
		ProfileDir:    h.profileDir,
		HistoryPath:   filepath.Join(h.dataDir, "history.db"),
		DeviceTimeout: 2,
		LogLevel:      "debug",
	}
	require.NoError(t, state.SaveBridgeConfig(config))

	t.Cleanup(h.Stop)
	return h
}

// Start runs the daemon in-process and waits for its socket
func (h *TestHarness) Start() {
	h.t.Helper()

	logger.Init(logger.Config{Level: "debug", Format: "json", Component: "daemon"},
		[]logger.Backend{logger.NewBufferBackend(h.logs, "json")}, logger.NewEmitter())

	config, err := state.LoadBridgeConfig()
	require.NoError(h.t, err)

	h.server, err = daemon.NewServer(config)
	require.NoError(h.t, err)

	h.done = make(chan error, 1)
	go func() {
		h.done <- h.server.Start()
	}()

	h.WaitFor(10*time.Second, func() bool {
		resp, err := client.Send(daemon.Request{Command: "status"})
		return err == nil && resp.Success
	}, "daemon did not answer")
}

// Stop shuts the daemon down
func (h *TestHarness) Stop() {
	if h.server == nil {
		return
	}
	h.server.Stop()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		h.t.Log("daemon did not return from Start")
	}
	h.server = nil
}

// Send issues a request to the harness daemon
func (h *TestHarness) Send(req daemon.Request) *daemon.Response {
	h.t.Helper()
	resp, err := client.Send(req)
	require.NoError(h.t, err)
	return resp
}

// Decode converts a response payload into out
func (h *TestHarness) Decode(resp *daemon.Response, out interface{}) {
	h.t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal(raw, out))
}

// WaitFor polls cond until it holds or timeout passes
func (h *TestHarness) WaitFor(timeout time.Duration, cond func() bool, msg string) {
	h.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	h.t.Fatalf("%s within %s\nlogs:\n%s", msg, timeout, h.logs.String())
}

// ProfilePath returns a path under the profile directory
func (h *TestHarness) ProfilePath(rel string) string {
	return filepath.Join(h.profileDir, rel)
}

// String describes the harness for failure messages
func (h *TestHarness) String() string {
	return fmt.Sprintf("harness(config=%s, socket=%s)", h.configDir, h.socketPath)
}
