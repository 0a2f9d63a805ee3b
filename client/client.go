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

// Package client talks to the wledbridge daemon over its Unix socket.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/we-are-mono/wledbridge/daemon"
)

// GetSocketPath returns the daemon socket path, preferring WLEDBRIDGE_SOCKET_PATH
func GetSocketPath() string {
	return daemon.GetSocketPath()
}

func dial(req daemon.Request) (net.Conn, error) {
	conn, err := net.Dial("unix", GetSocketPath())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon (is it running?): %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data = append(data, '\n')
	if _, err = conn.Write(data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return conn, nil
}

// Send issues one request and waits for the response
func Send(req daemon.Request) (*daemon.Response, error) {
	conn, err := dial(req)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp daemon.Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &resp, nil
}

// StreamLogs subscribes to the daemon's log stream and calls handle with each
// JSON-encoded entry until the daemon closes the connection or handle fails.
func StreamLogs(filter *daemon.LogFilter, handle func([]byte) error) error {
	conn, err := dial(daemon.Request{Command: "logs-subscribe", LogFilter: filter})
	if err != nil {
		return err
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := handle(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("log stream interrupted: %w", err)
	}
	return nil
}
