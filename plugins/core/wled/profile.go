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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/we-are-mono/wledbridge/state"
)

// Profile file locations relative to the profile directory
const (
	NLSTemplate     = "nls/en_us.template"
	NLSOutput       = "nls/en_us.txt"
	EditorsTemplate = "editor/editors.template"
	EditorsOutput   = "editor/editors.xml"
)

// ProfileState tracks whether the artifacts have been generated
type ProfileState int

const (
	ProfileTemplate ProfileState = iota
	ProfileMaterialized
)

// ProfileBuilder regenerates the NLS and editor artifacts from their
// templates plus the effect list. Every build rewrites both files in full.
type ProfileBuilder struct {
	dir   string
	mu    sync.Mutex
	state ProfileState
}

// NewProfileBuilder creates a builder rooted at dir
func NewProfileBuilder(dir string) *ProfileBuilder {
	return &ProfileBuilder{dir: dir}
}

// Dir returns the profile directory
func (b *ProfileBuilder) Dir() string {
	return b.dir
}

// State reports whether a build has succeeded since construction
func (b *ProfileBuilder) State() ProfileState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// EffectRange returns the editor subset for n effects. An empty list still
// yields "1-1".
func EffectRange(n int) string {
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("1-%d", n)
}

// Build writes both artifacts. A failure leaves the previous files in place.
func (b *ProfileBuilder) Build(effects []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.materialize(NLSTemplate, NLSOutput, nlsLines(effects)); err != nil {
		return err
	}
	if err := b.materialize(EditorsTemplate, EditorsOutput, editorLines(len(effects))); err != nil {
		return err
	}

	b.state = ProfileMaterialized
	return nil
}

func nlsLines(effects []string) []byte {
	var buf bytes.Buffer
	for i, name := range effects {
		fmt.Fprintf(&buf, "EFFECT_SEL-%d = %s\n", i+1, name)
	}
	return buf.Bytes()
}

func editorLines(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("\t<editor id=\"MEFFECT\">\n")
	fmt.Fprintf(&buf, "\t\t<range uom=\"%d\" subset=\"%s\" nls=\"EFFECT_SEL\" />\n", UOMIndex, EffectRange(n))
	buf.WriteString("\t</editor>\n")
	buf.WriteString("</editors>")
	return buf.Bytes()
}

// materialize copies the template verbatim, adds a newline, then appends generated
func (b *ProfileBuilder) materialize(template, output string, generated []byte) error {
	tmpl, err := os.ReadFile(filepath.Join(b.dir, template))
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", template, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(tmpl) + 1 + len(generated))
	buf.Write(tmpl)
	buf.WriteByte('\n')
	buf.Write(generated)

	if err := state.WriteFileAtomic(filepath.Join(b.dir, output), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}
