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
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/validation"
	"github.com/we-are-mono/wledbridge/wled"
)

// ErrMissingHost is returned by Start when the host parameter is absent
var ErrMissingHost = errors.New("need to have ip address in custom param host")

// ClientFactory builds the device client for one address
type ClientFactory func(ip string) DeviceClient

// Config carries the values the controller needs at construction
type Config struct {
	Version       string
	DataDir       string
	ProfileDir    string
	DeviceTimeout time.Duration
}

// Controller owns the managed devices and implements host.NodeServer.
type Controller struct {
	config    Config
	logger    logger.Logger
	cache     *EffectCache
	profile   *ProfileBuilder
	newClient ClientFactory

	// base is cancelled by Delete so an in-flight discovery stops early;
	// Start replaces a cancelled one. Guarded by mu.
	base   context.Context
	cancel context.CancelFunc

	hostMu sync.RWMutex
	host   host.Host

	mu            sync.RWMutex
	hostList      string
	status        int
	devices       map[string]*DeviceProxy
	order         []string
	discoveryDone chan struct{}

	discovering atomic.Bool

	hbMu      sync.Mutex
	heartbeat int
}

// NewController creates a controller. A nil factory uses the WLED HTTP
// client with the configured timeout.
func NewController(config Config, log logger.Logger, factory ClientFactory) *Controller {
	if factory == nil {
		timeout := config.DeviceTimeout
		if timeout <= 0 {
			timeout = wled.DefaultTimeout
		}
		httpClient := &http.Client{Timeout: timeout}
		factory = func(ip string) DeviceClient {
			return wled.NewClient(ip, httpClient)
		}
	}

	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		config:    config,
		logger:    log.With(logger.F("component", "wled")),
		cache:     NewEffectCache(config.DataDir),
		profile:   NewProfileBuilder(config.ProfileDir),
		newClient: factory,
		base:      base,
		cancel:    cancel,
		devices:   make(map[string]*DeviceProxy),
	}
}

// Metadata returns plugin information
func (c *Controller) Metadata(ctx context.Context) (host.Metadata, error) {
	return host.Metadata{
		Name:        "wled",
		Version:     c.config.Version,
		Description: "WLED addressable LED controllers",
	}, nil
}

// SetHost stores the hub callback interface
func (c *Controller) SetHost(h host.Host) {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	c.host = h
}

func (c *Controller) getHost() host.Host {
	c.hostMu.RLock()
	defer c.hostMu.RUnlock()
	return c.host
}

// Start reads the host list, marks the controller ready and starts discovery.
func (c *Controller) Start(ctx context.Context, params map[string]string) error {
	c.logger.Info("Started WLED bridge", logger.F("version", c.config.Version))

	if h := c.getHost(); h != nil {
		if err := h.AddNode(ctx, c.controllerNode()); err != nil {
			c.logger.Error("Unable to register controller node", logger.Err(err))
		}
	}

	hostList := params["host"]
	if len(validation.SplitHostList(hostList)) == 0 {
		c.logger.Error("Need to have ip address in custom param host")
		c.setStatus(ctx, 0)
		return ErrMissingHost
	}
	c.logger.Info("Custom IP address specified", logger.F("host", hostList))

	if err := validation.ValidateHostList(hostList); err != nil {
		c.logger.Warn("Host list contains invalid entries", logger.Err(err))
	}

	c.mu.Lock()
	c.hostList = hostList
	if c.base.Err() != nil {
		c.base, c.cancel = context.WithCancel(context.Background())
	}
	c.mu.Unlock()

	c.setStatus(ctx, 1)
	c.Discover()
	return nil
}

// Discover starts a discovery run unless one is in flight. It reports
// whether a new run was started.
func (c *Controller) Discover() bool {
	c.mu.RLock()
	hostList := c.hostList
	c.mu.RUnlock()

	if hostList == "" {
		c.logger.Warn("Discovery requested before a host list was configured")
		return false
	}

	if !c.discovering.CompareAndSwap(false, true) {
		c.logger.Info("Discovery is still in progress")
		return false
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.discoveryDone = done
	c.mu.Unlock()

	go c.runDiscovery(done, validation.SplitHostList(hostList))
	return true
}

// Discovering reports whether a discovery run is in flight
func (c *Controller) Discovering() bool {
	return c.discovering.Load()
}

// WaitDiscovery blocks until the current discovery run, if any, finishes
func (c *Controller) WaitDiscovery(ctx context.Context) error {
	c.mu.RLock()
	done := c.discoveryDone
	c.mu.RUnlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) runDiscovery(done chan struct{}, ips []string) {
	defer func() {
		c.discovering.Store(false)
		close(done)
	}()

	c.mu.RLock()
	ctx := c.base
	c.mu.RUnlock()

	for i, ip := range ips {
		if ctx.Err() != nil {
			c.logger.Warn("Discovery cancelled", logger.Err(ctx.Err()))
			return
		}

		address := fmt.Sprintf("device%d", i+1)

		c.mu.RLock()
		proxy, exists := c.devices[address]
		c.mu.RUnlock()

		if !exists || proxy.IP() != ip {
			proxy = NewDeviceProxy(ctx, c, c.logger, c.cache, c.profile, address, ip, c.newClient(ip))

			c.mu.Lock()
			if _, had := c.devices[address]; !had {
				c.order = append(c.order, address)
			}
			c.devices[address] = proxy
			c.mu.Unlock()
		}

		if h := c.getHost(); h != nil {
			if err := h.AddNode(ctx, proxy.NodeInfo()); err != nil {
				c.logger.Error("Unable to add node", logger.F("device", address), logger.Err(err))
				continue
			}
		}
		c.logger.Info("Device added", logger.F("device", address), logger.F("ip", ip))
	}
}

// ShortPoll refreshes every registered device. It does nothing while discovery
// runs or before a successful Start.
func (c *Controller) ShortPoll(ctx context.Context) error {
	if c.Discovering() {
		c.logger.Debug("Skipping shortPoll() while discovery in progress...")
		return nil
	}
	if !c.started() {
		return nil
	}

	c.setStatus(ctx, 1)
	c.refreshAll(ctx)
	return nil
}

// LongPoll emits the heartbeat and, once discovery is idle, refreshes devices.
func (c *Controller) LongPoll(ctx context.Context) error {
	c.emitHeartbeat(ctx)

	if c.Discovering() || !c.started() {
		return nil
	}
	c.refreshAll(ctx)
	return nil
}

// emitHeartbeat alternates DON and DOF, starting with DON from the idle state
func (c *Controller) emitHeartbeat(ctx context.Context) {
	c.hbMu.Lock()
	cmd := "DON"
	if c.heartbeat == 0 {
		c.heartbeat = 1
	} else {
		cmd = "DOF"
		c.heartbeat = 0
	}
	c.hbMu.Unlock()

	c.logger.Debug("heartbeat", logger.F("cmd", cmd))

	if h := c.getHost(); h != nil {
		if err := h.ReportCommand(ctx, ControllerAddress, cmd, 0, UOMBoolean); err != nil {
			c.logger.Warn("Unable to report heartbeat", logger.Err(err))
		}
	}
}

// Query re-reports the controller status and every device driver
func (c *Controller) Query(ctx context.Context) error {
	c.mu.RLock()
	status := c.status
	c.mu.RUnlock()

	c.sendDriver(ctx, ControllerAddress, host.Driver{Name: DriverStatus, Value: status, UOM: UOMBoolean}, true)
	for _, p := range c.snapshot() {
		p.ReportDrivers(ctx)
	}
	return nil
}

// Delete drops every device record and stops any running discovery
func (c *Controller) Delete(ctx context.Context) error {
	c.logger.Info("Deleting WLED bridge")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.devices = make(map[string]*DeviceProxy)
	c.order = nil
	return nil
}

// HandleCommand routes a hub command to the controller or a device
func (c *Controller) HandleCommand(ctx context.Context, hc host.Command) error {
	cmd, err := ParseCommand(hc)
	if err != nil {
		c.logger.Warn("Rejected command", logger.F("address", hc.Address), logger.F("command", hc.Name), logger.Err(err))
		return err
	}

	if hc.Address == ControllerAddress {
		switch cmd.(type) {
		case Discover:
			c.Discover()
			return nil
		case QueryDrivers:
			return c.Query(ctx)
		default:
			return fmt.Errorf("%w: controller does not accept %s", host.ErrUnknownCommand, cmd.Name())
		}
	}

	p, ok := c.Device(hc.Address)
	if !ok {
		return fmt.Errorf("%w: %s", host.ErrUnknownNode, hc.Address)
	}
	return p.ApplyCommand(ctx, cmd)
}

// Nodes returns the controller node followed by every device, in list order
func (c *Controller) Nodes(ctx context.Context) ([]host.NodeInfo, error) {
	nodes := []host.NodeInfo{c.controllerNode()}
	for _, p := range c.snapshot() {
		nodes = append(nodes, p.NodeInfo())
	}
	return nodes, nil
}

// InstallProfile asks the hub to reload the profile. Failures are logged and
// returned, never fatal.
func (c *Controller) InstallProfile(ctx context.Context) error {
	h := c.getHost()
	if h == nil {
		err := errors.New("no host connection")
		c.logger.Error("Error installing profile", logger.Err(err))
		return err
	}
	if err := h.InstallProfile(ctx); err != nil {
		c.logger.Error("Error installing profile", logger.Err(err))
		return err
	}
	c.logger.Info("Please restart the Admin Console for change to take effect")
	return nil
}

// Device returns the proxy registered at address
func (c *Controller) Device(address string) (*DeviceProxy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.devices[address]
	return p, ok
}

// Status returns the controller ST value
func (c *Controller) Status() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Controller) started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostList != ""
}

func (c *Controller) snapshot() []*DeviceProxy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	proxies := make([]*DeviceProxy, 0, len(c.order))
	for _, address := range c.order {
		proxies = append(proxies, c.devices[address])
	}
	return proxies
}

func (c *Controller) refreshAll(ctx context.Context) {
	for _, p := range c.snapshot() {
		_ = p.Refresh(ctx)
	}
}

func (c *Controller) controllerNode() host.NodeInfo {
	return host.NodeInfo{
		Address: ControllerAddress,
		Primary: ControllerAddress,
		Name:    "WLED",
		NodeDef: NodeDefController,
		Drivers: []host.Driver{{Name: DriverStatus, Value: c.Status(), UOM: UOMBoolean}},
	}
}

func (c *Controller) setStatus(ctx context.Context, value int) {
	c.mu.Lock()
	c.status = value
	c.mu.Unlock()

	c.sendDriver(ctx, ControllerAddress, host.Driver{Name: DriverStatus, Value: value, UOM: UOMBoolean}, false)
}

// sendDriver forwards a driver value to the hub, logging failures
func (c *Controller) sendDriver(ctx context.Context, address string, driver host.Driver, force bool) {
	h := c.getHost()
	if h == nil {
		return
	}
	if err := h.SetDriver(ctx, address, driver, force); err != nil {
		c.logger.Warn("Unable to report driver",
			logger.F("address", address), logger.F("driver", driver.Name), logger.Err(err))
	}
}
