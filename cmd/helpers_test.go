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

package cmd

import (
	"github.com/we-are-mono/wledbridge/daemon"
)

// mockClient implements ClientInterface for testing
type mockClient struct {
	sendFunc func(req daemon.Request) (*daemon.Response, error)
	requests []daemon.Request
}

func (m *mockClient) Send(req daemon.Request) (*daemon.Response, error) {
	m.requests = append(m.requests, req)
	if m.sendFunc != nil {
		return m.sendFunc(req)
	}
	return &daemon.Response{Success: true, Message: "OK"}, nil
}

// respondWith returns a mock client answering every request with resp
func respondWith(resp *daemon.Response, err error) *mockClient {
	return &mockClient{
		sendFunc: func(req daemon.Request) (*daemon.Response, error) {
			return resp, err
		},
	}
}
