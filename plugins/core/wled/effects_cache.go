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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/we-are-mono/wledbridge/state"
)

// EffectCacheFile is the cache file name under the data directory
const EffectCacheFile = ".effectLists.json"

// EffectCache persists the most recently fetched effect list. All devices
// share one file.
type EffectCache struct {
	path string
	mu   sync.Mutex
}

// NewEffectCache creates a cache stored in dir
func NewEffectCache(dir string) *EffectCache {
	return &EffectCache{path: filepath.Join(dir, EffectCacheFile)}
}

// Path returns the cache file path
func (c *EffectCache) Path() string {
	return c.path
}

// Load reads the cached list. A missing file is reported with an error
// wrapping os.ErrNotExist.
func (c *EffectCache) Load() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read effect cache: %w", err)
	}

	var effects []string
	if err := state.UnmarshalJSON(data, &effects); err != nil {
		return nil, fmt.Errorf("failed to parse effect cache: %w", err)
	}
	if effects == nil {
		effects = []string{}
	}
	return effects, nil
}

// Save replaces the cached list
func (c *EffectCache) Save(effects []string) error {
	if effects == nil {
		effects = []string{}
	}

	data, err := json.Marshal(effects)
	if err != nil {
		return fmt.Errorf("failed to encode effect cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := state.WriteFileAtomic(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write effect cache: %w", err)
	}
	return nil
}
