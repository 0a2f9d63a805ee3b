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
	"net"
	"strings"
	"sync"

	"github.com/we-are-mono/wledbridge/logger"
)

// SocketLogSubscriber writes log events to a Unix socket connection
type SocketLogSubscriber struct {
	conn   net.Conn
	filter *LogFilter
	mu     sync.Mutex
	closed bool
}

// NewSocketLogSubscriber creates a subscriber that streams logs to a client socket
func NewSocketLogSubscriber(conn net.Conn, filter *LogFilter) *SocketLogSubscriber {
	return &SocketLogSubscriber{
		conn:   conn,
		filter: filter,
	}
}

// Matches reports whether entry passes the subscriber's filter
func (s *SocketLogSubscriber) Matches(entry *logger.Entry) bool {
	if s.filter == nil {
		return true
	}
	if s.filter.Level != "" && !strings.EqualFold(entry.Level, s.filter.Level) {
		return false
	}
	if s.filter.Component != "" && entry.Component != s.filter.Component {
		return false
	}
	return true
}

// OnLogEvent writes the log entry to the socket if it matches the filter
func (s *SocketLogSubscriber) OnLogEvent(entry *logger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.Matches(entry) {
		return nil
	}

	logEventJSON, err := entry.ToJSON()
	if err != nil {
		return err
	}

	if _, err := s.conn.Write(append(logEventJSON, '\n')); err != nil {
		s.closed = true
		return err
	}
	return nil
}

// Close marks the subscriber as closed
func (s *SocketLogSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
