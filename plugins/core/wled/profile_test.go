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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEffectRange(t *testing.T) {
	assert.Equal(t, "1-1", EffectRange(0))
	assert.Equal(t, "1-1", EffectRange(1))
	assert.Equal(t, "1-3", EffectRange(3))
	assert.Equal(t, "1-118", EffectRange(118))
}

func TestProfileBuilder_ThreeEffects(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir)
	b := NewProfileBuilder(dir)
	assert.Equal(t, ProfileTemplate, b.State())

	require.NoError(t, b.Build([]string{"Solid", "Blink", "Fade"}))
	assert.Equal(t, ProfileMaterialized, b.State())

	nls := readFile(t, filepath.Join(dir, NLSOutput))
	assert.Equal(t, "ND-WLED-NAME = WLED\n"+
		"EFFECT_SEL-1 = Solid\n"+
		"EFFECT_SEL-2 = Blink\n"+
		"EFFECT_SEL-3 = Fade\n", nls)

	editors := readFile(t, filepath.Join(dir, EditorsOutput))
	assert.Equal(t, "<editors>\n"+
		"\t<editor id=\"MEFFECT\">\n"+
		"\t\t<range uom=\"25\" subset=\"1-3\" nls=\"EFFECT_SEL\" />\n"+
		"\t</editor>\n"+
		"</editors>", editors)
}

func TestProfileBuilder_EmptyListYieldsRangeOfOne(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir)
	b := NewProfileBuilder(dir)

	require.NoError(t, b.Build(nil))

	nls := readFile(t, filepath.Join(dir, NLSOutput))
	assert.NotContains(t, nls, "EFFECT_SEL-")

	editors := readFile(t, filepath.Join(dir, EditorsOutput))
	assert.Contains(t, editors, `subset="1-1"`)
	assert.NotContains(t, editors, `subset="1-0"`)
}

func TestProfileBuilder_RebuildRegeneratesFromScratch(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir)
	b := NewProfileBuilder(dir)

	require.NoError(t, b.Build([]string{"Solid", "Blink", "Fade"}))
	require.NoError(t, b.Build([]string{"Rainbow"}))

	nls := readFile(t, filepath.Join(dir, NLSOutput))
	assert.Equal(t, 1, strings.Count(nls, "EFFECT_SEL-"))
	assert.Contains(t, nls, "EFFECT_SEL-1 = Rainbow")
	assert.Contains(t, readFile(t, filepath.Join(dir, EditorsOutput)), `subset="1-1"`)
}

func TestProfileBuilder_MissingTemplateKeepsPreviousArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir)
	b := NewProfileBuilder(dir)
	require.NoError(t, b.Build([]string{"Solid"}))

	before := readFile(t, filepath.Join(dir, NLSOutput))
	require.NoError(t, os.Remove(filepath.Join(dir, EditorsTemplate)))

	err := b.Build([]string{"Solid", "Blink"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read template")

	// the NLS file was already regenerated, but the editors file is untouched
	assert.NotEqual(t, before, readFile(t, filepath.Join(dir, NLSOutput)))
	assert.Contains(t, readFile(t, filepath.Join(dir, EditorsOutput)), `subset="1-1"`)
}

func TestProfileBuilder_NoTemplates(t *testing.T) {
	b := NewProfileBuilder(t.TempDir())

	err := b.Build([]string{"Solid"})
	require.Error(t, err)
	assert.Equal(t, ProfileTemplate, b.State())
}
