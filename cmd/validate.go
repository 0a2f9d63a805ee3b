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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/host"
	"github.com/we-are-mono/wledbridge/state"
)

// profileTemplates must exist under the profile directory for a rebuild to work
var profileTemplates = []string{
	filepath.Join("nls", "en_us.template"),
	filepath.Join("editor", "editors.template"),
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the bridge configuration",
	Long:  `Checks wled.json for syntax errors, validates its values, checks that the profile templates exist and that the\nconfigured plugin binary can be found.`,
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	if err := executeValidate(cmd.OutOrStdout()); err != nil {
		exitWithError()
	}
}

func executeValidate(w io.Writer) error {
	path := state.ConfigPath(state.BridgeNamespace)
	fmt.Fprintf(w, "Validating %s...\n\n", path)

	var config state.BridgeConfig
	if err := state.LoadConfig(state.BridgeNamespace, &config); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "❌ %s: not found\n", filepath.Base(path))
		} else {
			fmt.Fprintf(w, "❌ %s: %v\n", filepath.Base(path), err)
		}
		return err
	}

	loaded, err := state.LoadBridgeConfig()
	if err != nil {
		return err
	}

	hasErrors := false
	if err := loaded.Validate(); err != nil {
		fmt.Fprintf(w, "❌ %s: %v\n", filepath.Base(path), err)
		hasErrors = true
	} else {
		fmt.Fprintf(w, "✓ %s: valid\n", filepath.Base(path))
	}

	for _, rel := range profileTemplates {
		if _, err := os.Stat(filepath.Join(loaded.ProfileDir, rel)); err != nil {
			fmt.Fprintf(w, "❌ %s: missing in %s\n", rel, loaded.ProfileDir)
			hasErrors = true
		} else {
			fmt.Fprintf(w, "✓ %s: found\n", rel)
		}
	}

	pm := host.NewPluginManager()
	if path, err := pm.FindPlugin(loaded.Plugin); err != nil {
		fmt.Fprintf(w, "❌ plugin %s: %v\n", loaded.Plugin, err)
		if available, _ := pm.ListPlugins(); len(available) > 0 {
			fmt.Fprintf(w, "   available: %s\n", strings.Join(available, ", "))
		}
		hasErrors = true
	} else {
		fmt.Fprintf(w, "✓ plugin %s: %s\n", loaded.Plugin, path)
	}

	fmt.Fprintln(w)
	if hasErrors {
		fmt.Fprintln(w, "❌ Validation failed - please fix the errors above")
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintln(w, "✓ Configuration is valid")
	return nil
}
