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
	"fmt"
	"sync"
	"time"

	"github.com/we-are-mono/wledbridge/host"
)

// maxReports bounds the reported-command backlog kept in memory
const maxReports = 100

type nodeEntry struct {
	info    host.NodeInfo
	updated time.Time
}

// NodeRegistry holds the nodes a plugin registered and their current driver
// values. It is the hub-side mirror of what the plugin reports.
type NodeRegistry struct {
	nodes   map[string]*nodeEntry // address -> node
	order   []string              // registration order
	reports []CommandReport
	now     func() time.Time
	mu      sync.RWMutex
}

// NewNodeRegistry creates an empty registry
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{
		nodes: make(map[string]*nodeEntry),
		now:   time.Now,
	}
}

// AddNode registers a node. Re-adding an address replaces its description
// and drivers but keeps its position.
func (r *NodeRegistry) AddNode(node host.NodeInfo) error {
	if node.Address == "" {
		return fmt.Errorf("node address cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	drivers := make([]host.Driver, len(node.Drivers))
	copy(drivers, node.Drivers)
	node.Drivers = drivers

	if _, exists := r.nodes[node.Address]; !exists {
		r.order = append(r.order, node.Address)
	}
	r.nodes[node.Address] = &nodeEntry{info: node, updated: r.now()}
	return nil
}

// SetDriver stores a driver value. It reports whether anything changed;
// an identical value counts as a change only when force is set.
func (r *NodeRegistry) SetDriver(address string, driver host.Driver, force bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.nodes[address]
	if !exists {
		return false, fmt.Errorf("%w: %s", host.ErrUnknownNode, address)
	}

	for i, d := range entry.info.Drivers {
		if d.Name != driver.Name {
			continue
		}
		if d == driver && !force {
			return false, nil
		}
		entry.info.Drivers[i] = driver
		entry.updated = r.now()
		return true, nil
	}

	entry.info.Drivers = append(entry.info.Drivers, driver)
	entry.updated = r.now()
	return true, nil
}

// Get returns a copy of one node
func (r *NodeRegistry) Get(address string) (NodeView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.nodes[address]
	if !exists {
		return NodeView{}, false
	}
	return entry.view(), true
}

// Driver returns the current value of one driver
func (r *NodeRegistry) Driver(address, name string) (host.Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.nodes[address]
	if !exists {
		return host.Driver{}, false
	}
	for _, d := range entry.info.Drivers {
		if d.Name == name {
			return d, true
		}
	}
	return host.Driver{}, false
}

// Nodes returns copies of all nodes in registration order
func (r *NodeRegistry) Nodes() []NodeView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]NodeView, 0, len(r.order))
	for _, address := range r.order {
		views = append(views, r.nodes[address].view())
	}
	return views
}

// Len returns the number of registered nodes
func (r *NodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// RecordReport appends a reported command, dropping the oldest past maxReports
func (r *NodeRegistry) RecordReport(report CommandReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if report.Time.IsZero() {
		report.Time = r.now()
	}
	r.reports = append(r.reports, report)
	if len(r.reports) > maxReports {
		r.reports = r.reports[len(r.reports)-maxReports:]
	}
}

// Reports returns the reported commands, oldest first
func (r *NodeRegistry) Reports() []CommandReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CommandReport, len(r.reports))
	copy(out, r.reports)
	return out
}

func (e *nodeEntry) view() NodeView {
	info := e.info
	info.Drivers = make([]host.Driver, len(e.info.Drivers))
	copy(info.Drivers, e.info.Drivers)
	return NodeView{NodeInfo: info, Updated: e.updated}
}
