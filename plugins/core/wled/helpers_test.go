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
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/wled"
)

var errDevice = errors.New("connection refused")

// fakeClient is a scriptable DeviceClient
type fakeClient struct {
	mu         sync.Mutex
	ip         string
	state      wled.State
	stateErr   error
	cmdErr     error
	effects    []string
	effectsErr error
	info       wled.Info
	infoErr    error
	calls      []string
	gate       chan struct{} // State blocks until closed when non-nil
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) State(ctx context.Context) (*wled.State, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.record("State")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	st := f.state
	return &st, nil
}

func (f *fakeClient) TurnOn(ctx context.Context) error {
	f.record("TurnOn")
	return f.cmdErr
}

func (f *fakeClient) TurnOff(ctx context.Context) error {
	f.record("TurnOff")
	return f.cmdErr
}

func (f *fakeClient) SetBrightness(ctx context.Context, level int) error {
	f.record("SetBrightness")
	return f.cmdErr
}

func (f *fakeClient) SetEffect(ctx context.Context, fx int) error {
	f.record("SetEffect")
	if f.cmdErr == nil {
		f.mu.Lock()
		f.state.Segments = []wled.Segment{{Effect: fx}}
		f.mu.Unlock()
	}
	return f.cmdErr
}

func (f *fakeClient) SetColor(ctx context.Context, r, g, b uint8) error {
	f.record("SetColor")
	return f.cmdErr
}

func (f *fakeClient) Effects(ctx context.Context) ([]string, error) {
	f.record("Effects")
	if f.effectsErr != nil {
		return nil, f.effectsErr
	}
	return append([]string{}, f.effects...), nil
}

func (f *fakeClient) Info(ctx context.Context) (*wled.Info, error) {
	f.record("Info")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := f.info
	return &info, nil
}

type driverReport struct {
	Address string
	Driver  host.Driver
	Force   bool
}

type commandReport struct {
	Address string
	Command string
	UOM     int
}

// recordingHost implements host.Host and records every call
type recordingHost struct {
	mu         sync.Mutex
	nodes      []host.NodeInfo
	drivers    []driverReport
	commands   []commandReport
	installs   int
	installErr error
}

func (h *recordingHost) Ping(ctx context.Context) error { return nil }

func (h *recordingHost) AddNode(ctx context.Context, node host.NodeInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = append(h.nodes, node)
	return nil
}

func (h *recordingHost) SetDriver(ctx context.Context, address string, driver host.Driver, force bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drivers = append(h.drivers, driverReport{Address: address, Driver: driver, Force: force})
	return nil
}

func (h *recordingHost) ReportCommand(ctx context.Context, address, command string, value, uom int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, commandReport{Address: address, Command: command, UOM: uom})
	return nil
}

func (h *recordingHost) InstallProfile(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installs++
	return h.installErr
}

func (h *recordingHost) Nodes() []host.NodeInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.NodeInfo(nil), h.nodes...)
}

func (h *recordingHost) Drivers() []driverReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]driverReport(nil), h.drivers...)
}

func (h *recordingHost) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.commands))
	for _, c := range h.commands {
		out = append(out, c.Command)
	}
	return out
}

func (h *recordingHost) Installs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installs
}

// writeTemplates creates minimal profile templates under dir
func writeTemplates(t *testing.T, dir string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nls"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "editor"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, NLSTemplate), []byte("ND-WLED-NAME = WLED"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, EditorsTemplate), []byte("<editors>"), 0644))
}

// testEnv bundles a controller wired to fakes
type testEnv struct {
	ctrl    *Controller
	host    *recordingHost
	log     logger.Logger
	dataDir string
	profDir string

	mu      sync.Mutex
	clients map[string]*fakeClient
	prepare func(ip string, c *fakeClient)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		host:    &recordingHost{},
		log:     logger.Nop(),
		dataDir: t.TempDir(),
		profDir: t.TempDir(),
		clients: make(map[string]*fakeClient),
	}
	writeTemplates(t, env.profDir)

	env.ctrl = NewController(Config{
		Version:    "1.0.0",
		DataDir:    env.dataDir,
		ProfileDir: env.profDir,
	}, env.log, env.factory)
	env.ctrl.SetHost(env.host)
	t.Cleanup(func() { _ = env.ctrl.Delete(context.Background()) })
	return env
}

func (e *testEnv) factory(ip string) DeviceClient {
	c := &fakeClient{
		ip:      ip,
		state:   wled.State{On: true, Brightness: 128, Segments: []wled.Segment{{Effect: 0}}},
		effects: []string{"Solid", "Blink", "Fade"},
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prepare != nil {
		e.prepare(ip, c)
	}
	e.clients[ip] = c
	return c
}

func (e *testEnv) client(ip string) *fakeClient {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clients[ip]
}

// startAndWait starts the controller and waits for discovery to finish
func (e *testEnv) startAndWait(t *testing.T, hostList string) {
	t.Helper()

	require.NoError(t, e.ctrl.Start(context.Background(), map[string]string{"host": hostList}))
	require.NoError(t, e.ctrl.WaitDiscovery(context.Background()))
}
