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
	"fmt"
	"sync"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/wled"
)

// ErrUnreachable marks a device that did not answer its last probe or refresh
var ErrUnreachable = errors.New("device unreachable")

// DeviceClient is the subset of the WLED client a DeviceProxy uses
type DeviceClient interface {
	State(ctx context.Context) (*wled.State, error)
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetBrightness(ctx context.Context, level int) error
	SetEffect(ctx context.Context, fx int) error
	SetColor(ctx context.Context, r, g, b uint8) error
	Effects(ctx context.Context) ([]string, error)
	Info(ctx context.Context) (*wled.Info, error)
}

// nodeParent is what a DeviceProxy needs from its controller
type nodeParent interface {
	sendDriver(ctx context.Context, address string, driver host.Driver, force bool)
	InstallProfile(ctx context.Context) error
}

// DeviceProxy mirrors one WLED device into hub drivers and forwards
// commands to it.
type DeviceProxy struct {
	address string
	ip      string
	name    string
	client  DeviceClient
	parent  nodeParent
	logger  logger.Logger
	cache   *EffectCache
	profile *ProfileBuilder

	mu        sync.RWMutex
	drivers   map[string]host.Driver
	effects   []string
	reachable bool
}

// NewDeviceProxy probes the device and loads its effect list. An unreachable
// device still yields a registered proxy. When no effect cache exists yet the
// list is fetched, persisted and the profile rebuilt.
func NewDeviceProxy(ctx context.Context, parent nodeParent, log logger.Logger, cache *EffectCache,
	profile *ProfileBuilder, address, ip string, client DeviceClient) *DeviceProxy {
	p := &DeviceProxy{
		address: address,
		ip:      ip,
		name:    address,
		client:  client,
		parent:  parent,
		logger:  log.With(logger.F("device", address), logger.F("ip", ip)),
		cache:   cache,
		profile: profile,
		drivers: defaultDeviceDrivers(),
		effects: []string{},
	}

	st, err := client.State(ctx)
	if err != nil {
		p.logger.Error("Unable to connect to WLED", logger.Err(err))
	} else {
		p.reachable = true
		p.mirror(st)
		p.loadName(ctx)
	}

	effects, err := cache.Load()
	if err != nil {
		p.logger.Debug("Effect cache unavailable, fetching from device", logger.Err(err))
		_ = p.RebuildProfile(ctx)
	} else {
		p.effects = effects
	}

	return p
}

// Address returns the node address ("device1", ...)
func (p *DeviceProxy) Address() string {
	return p.address
}

// IP returns the configured device address
func (p *DeviceProxy) IP() string {
	return p.ip
}

// Reachable reports whether the last probe or refresh succeeded
func (p *DeviceProxy) Reachable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reachable
}

// Name returns the device's own name, or its address when the device did
// not report one
func (p *DeviceProxy) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *DeviceProxy) loadName(ctx context.Context) {
	info, err := p.client.Info(ctx)
	if err != nil {
		p.logger.Debug("Unable to read device info", logger.Err(err))
		return
	}
	p.logger.Info("Connected to WLED", logger.F("name", info.Name), logger.F("version", info.Version))
	if info.Name == "" {
		return
	}
	p.mu.Lock()
	p.name = info.Name
	p.mu.Unlock()
}

// Effects returns a copy of the current effect list
func (p *DeviceProxy) Effects() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.effects...)
}

// Driver returns the mirrored value of one driver
func (p *DeviceProxy) Driver(name string) (host.Driver, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.drivers[name]
	return d, ok
}

// NodeInfo returns the node description with a snapshot of its drivers
func (p *DeviceProxy) NodeInfo() host.NodeInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	drivers := make([]host.Driver, 0, len(deviceDriverOrder))
	for _, name := range deviceDriverOrder {
		drivers = append(drivers, p.drivers[name])
	}
	return host.NodeInfo{
		Address: p.address,
		Primary: ControllerAddress,
		Name:    p.name,
		NodeDef: NodeDefDevice,
		Drivers: drivers,
	}
}

// ApplyCommand runs cmd against the device. On success the new value is
// echoed into the mirror immediately; on failure nothing changes.
func (p *DeviceProxy) ApplyCommand(ctx context.Context, cmd Command) error {
	var err error

	switch c := cmd.(type) {
	case PowerOn:
		if err = p.client.TurnOn(ctx); err == nil {
			p.setDriver(ctx, DriverStatus, StatusOn, false)
		}
	case PowerOff:
		if err = p.client.TurnOff(ctx); err == nil {
			p.setDriver(ctx, DriverStatus, StatusOff, false)
		}
	case SetBrightness:
		if err = p.client.SetBrightness(ctx, c.Level); err == nil {
			p.setDriver(ctx, DriverBrightness, c.Level, false)
		}
	case SetEffect:
		if n := len(p.Effects()); n > 0 && c.Index > n {
			err = fmt.Errorf("effect %d out of range [1, %d]", c.Index, n)
			break
		}
		if err = p.client.SetEffect(ctx, c.Index-1); err == nil {
			p.setDriver(ctx, DriverEffect, c.Index, false)
		}
	case SetColor:
		r, g, b := wled.WheelToRGB(c.Position)
		if err = p.client.SetColor(ctx, r, g, b); err == nil {
			p.setDriver(ctx, DriverColor, c.Position, false)
		}
	case RebuildProfile:
		return p.RebuildProfile(ctx)
	case QueryDrivers:
		p.ReportDrivers(ctx)
		return nil
	case Discover:
		return fmt.Errorf("%w: %s is only accepted by the controller", host.ErrUnknownCommand, c.Name())
	default:
		return fmt.Errorf("%w: %T", host.ErrUnknownCommand, cmd)
	}

	if err != nil {
		p.logger.Error("Command failed", logger.F("command", cmd.Name()), logger.Err(err))
		return fmt.Errorf("%s on %s: %w", cmd.Name(), p.address, err)
	}
	return nil
}

// Refresh reads live state and overwrites ST, GV3 and GV4. GV6 is left alone
// because the device reports RGB, not a wheel position. A failed read changes
// nothing.
func (p *DeviceProxy) Refresh(ctx context.Context) error {
	st, err := p.client.State(ctx)
	if err != nil {
		p.mu.Lock()
		p.reachable = false
		p.mu.Unlock()
		p.logger.Error("Error updating WLED value", logger.Err(err))
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, p.address, err)
	}

	p.mu.Lock()
	p.reachable = true
	p.mu.Unlock()

	p.setDriver(ctx, DriverStatus, statusValue(st.On), false)
	p.setDriver(ctx, DriverBrightness, st.Brightness, false)
	p.setDriver(ctx, DriverEffect, st.Effect()+1, false)
	return nil
}

// ReportDrivers re-sends every driver to the hub, changed or not
func (p *DeviceProxy) ReportDrivers(ctx context.Context) {
	for _, d := range p.NodeInfo().Drivers {
		p.parent.sendDriver(ctx, p.address, d, true)
	}
}

// RebuildProfile fetches the effect list, persists it and regenerates the
// profile artifacts, then asks the controller to install them. A failed fetch
// keeps the previous list.
func (p *DeviceProxy) RebuildProfile(ctx context.Context) error {
	effects, err := p.client.Effects(ctx)
	if err != nil {
		p.logger.Error("Unable to get WLED effect list", logger.Err(err))
	} else {
		p.mu.Lock()
		p.effects = effects
		p.mu.Unlock()

		if err := p.cache.Save(effects); err != nil {
			p.logger.Error("Unable to write effect cache", logger.Err(err))
		}
	}

	if err := p.profile.Build(p.Effects()); err != nil {
		p.logger.Error("Error generating profile", logger.Err(err))
		return err
	}

	p.logger.Info("Profile rebuilt", logger.F("effects", len(p.Effects())))
	_ = p.parent.InstallProfile(ctx)
	return nil
}

// mirror stores state without reporting; used before the node is registered
func (p *DeviceProxy) mirror(st *wled.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.update(DriverStatus, statusValue(st.On))
	p.update(DriverBrightness, st.Brightness)
	p.update(DriverEffect, st.Effect()+1)
}

// update writes one driver value and reports whether it changed. Caller holds mu.
func (p *DeviceProxy) update(name string, value int) (host.Driver, bool) {
	d := p.drivers[name]
	changed := d.Value != value
	d.Value = value
	p.drivers[name] = d
	return d, changed
}

func (p *DeviceProxy) setDriver(ctx context.Context, name string, value int, force bool) {
	p.mu.Lock()
	d, changed := p.update(name, value)
	p.mu.Unlock()

	if changed || force {
		p.parent.sendDriver(ctx, p.address, d, force)
	}
}
