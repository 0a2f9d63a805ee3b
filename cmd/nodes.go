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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/daemon"
	"github.com/we-are-mono/wledbridge/host"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List nodes and their driver values",
	Long:  `Lists the controller and every WLED device the plugin registered, with their current driver values.`,
	Run:   runNodes,
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) {
	if err := executeNodes(cmd.OutOrStdout(), defaultClient); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func executeNodes(w io.Writer, client ClientInterface) error {
	resp, err := send(client, daemon.Request{Command: "nodes"})
	if err != nil {
		return err
	}

	var nodes []daemon.NodeView
	if err := decodeData(resp.Data, &nodes); err != nil {
		return err
	}

	if len(nodes) == 0 {
		fmt.Fprintln(w, "No nodes registered")
		return nil
	}

	fmt.Fprintf(w, "%-12s %-20s %-12s %s\n", "ADDRESS", "NAME", "NODEDEF", "DRIVERS")
	for _, n := range nodes {
		fmt.Fprintf(w, "%-12s %-20s %-12s %s\n", n.Address, n.Name, n.NodeDef, formatDrivers(n.Drivers))
	}
	return nil
}

// formatDrivers renders drivers as NAME=value pairs in reported order
func formatDrivers(drivers []host.Driver) string {
	parts := make([]string, len(drivers))
	for i, d := range drivers {
		parts[i] = fmt.Sprintf("%s=%d", d.Name, d.Value)
	}
	return strings.Join(parts, " ")
}
