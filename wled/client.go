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

// Package wled is a small client for the WLED JSON HTTP API.
package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single request when the caller supplies no client
const DefaultTimeout = 5 * time.Second

// Client talks to one WLED device.
type Client struct {
	addr   string
	client *http.Client
}

// NewClient creates a client for addr ("10.0.0.5" or "10.0.0.5:8080"). If
// client is nil, an http.Client with DefaultTimeout is used.
func NewClient(addr string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{addr: addr, client: client}
}

// Addr returns the device address the client was built with
func (c *Client) Addr() string {
	return c.addr
}

// State is the subset of /json/state the bridge mirrors.
type State struct {
	On         bool      `json:"on"`
	Brightness int       `json:"bri"`
	Segments   []Segment `json:"seg,omitempty"`
}

// Segment is one LED segment. Colors holds up to three [r,g,b(,w)] slots.
type Segment struct {
	ID     int     `json:"id"`
	Effect int     `json:"fx"`
	Colors [][]int `json:"col,omitempty"`
}

// Effect returns the raw 0-based effect id of the main segment
func (s *State) Effect() int {
	if len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[0].Effect
}

// Info is the subset of /json/info used for logging and scanning.
type Info struct {
	Version string `json:"ver"`
	Name    string `json:"name"`
	MAC     string `json:"mac"`
	Product string `json:"product"`
	LEDs    struct {
		Count int `json:"count"`
	} `json:"leds"`
}

// State fetches the current device state.
func (c *Client) State(ctx context.Context) (*State, error) {
	state := &State{}
	if err := c.get(ctx, "/json/state", state); err != nil {
		return nil, err
	}
	return state, nil
}

// Info fetches device information.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	info := &Info{}
	if err := c.get(ctx, "/json/info", info); err != nil {
		return nil, err
	}
	return info, nil
}

// Effects fetches the ordered effect names. Position is the raw effect id.
func (c *Client) Effects(ctx context.Context) ([]string, error) {
	var effects []string
	if err := c.get(ctx, "/json/effects", &effects); err != nil {
		return nil, err
	}
	if effects == nil {
		effects = []string{}
	}
	return effects, nil
}

func (c *Client) TurnOn(ctx context.Context) error {
	return c.post(ctx, map[string]interface{}{"on": true})
}

func (c *Client) TurnOff(ctx context.Context) error {
	return c.post(ctx, map[string]interface{}{"on": false})
}

// SetBrightness sets the master brightness (0..255).
func (c *Client) SetBrightness(ctx context.Context, level int) error {
	if level < 0 || level > 255 {
		return fmt.Errorf("brightness %d out of range [0, 255]", level)
	}
	return c.post(ctx, map[string]interface{}{"bri": level})
}

// SetEffect selects the raw 0-based effect id on the main segment.
func (c *Client) SetEffect(ctx context.Context, fx int) error {
	if fx < 0 {
		return fmt.Errorf("effect %d out of range", fx)
	}
	return c.post(ctx, map[string]interface{}{
		"seg": []map[string]interface{}{{"fx": fx}},
	})
}

// SetColor sets the primary colour of the main segment.
func (c *Client) SetColor(ctx context.Context, r, g, b uint8) error {
	return c.post(ctx, map[string]interface{}{
		"seg": []map[string]interface{}{{"col": [][]int{{int(r), int(g), int(b)}}}},
	})
}

func (c *Client) url(path string) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.addr,
		Path:   path,
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/json/state"), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status code %d", req.Method, req.URL.Path, res.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.URL.Path, err)
	}
	return nil
}
