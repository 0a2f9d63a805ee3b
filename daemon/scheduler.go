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
	"context"
	"time"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/logger"
)

// Scheduler drives the plugin's short and long poll from a single goroutine,
// so ticks never overlap.
type Scheduler struct {
	node      host.NodeServer
	shortPoll time.Duration
	longPoll  time.Duration
}

// NewScheduler creates a scheduler for node with the given cadences
func NewScheduler(node host.NodeServer, shortPoll, longPoll time.Duration) *Scheduler {
	return &Scheduler{
		node:      node,
		shortPoll: shortPoll,
		longPoll:  longPoll,
	}
}

// Run ticks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	shortTicker := time.NewTicker(s.shortPoll)
	defer shortTicker.Stop()
	longTicker := time.NewTicker(s.longPoll)
	defer longTicker.Stop()

	logger.Info("Scheduler started",
		logger.F("short_poll", s.shortPoll.String()),
		logger.F("long_poll", s.longPoll.String()))

	s.runWith(ctx, shortTicker.C, longTicker.C)

	logger.Info("Scheduler stopped")
}

func (s *Scheduler) runWith(ctx context.Context, shortC, longC <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-shortC:
			if err := s.node.ShortPoll(ctx); err != nil {
				logger.Warn("Short poll failed", logger.Err(err))
			}
		case <-longC:
			if err := s.node.LongPoll(ctx); err != nil {
				logger.Warn("Long poll failed", logger.Err(err))
			}
		}
	}
}
