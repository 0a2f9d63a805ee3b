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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/daemon"
)

var commandCmd = &cobra.Command{
	Use:   "cmd <address> <command> [value]",
	Short: "Send a command to a node",
	Long: `Sends a hub command to one node, exactly as the hub would.

Examples:
  wledbridge cmd device1 DON
  wledbridge cmd device1 SET_BRI 128
  wledbridge cmd device2 SET_EFFECT 12
  wledbridge cmd device1 SET_COLOR_ID 170
  wledbridge cmd controller DISCOVERY`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runCommand,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Re-run device discovery from the host list",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runSimple(cmd, daemon.Request{Command: "discover"})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [address]",
	Short: "Force every node, or one node, to report its drivers",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSimple(cmd, daemon.Request{Command: "query", Address: firstArg(args)})
	},
}

var installProfileCmd = &cobra.Command{
	Use:   "install-profile [address]",
	Short: "Rebuild the effect profile and install it",
	Long: `Asks a device to fetch its effect list, regenerate the profile files and
install them. Without an address the first device is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSimple(cmd, daemon.Request{Command: "install-profile", Address: firstArg(args)})
	},
}

func init() {
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(installProfileCmd)
}

func runCommand(cmd *cobra.Command, args []string) {
	if err := executeCommand(cmd.OutOrStdout(), defaultClient, args); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func runSimple(cmd *cobra.Command, req daemon.Request) {
	if err := executeSimple(cmd.OutOrStdout(), defaultClient, req); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

// parseCommandArgs builds a command request from <address> <command> [value]
func parseCommandArgs(args []string) (daemon.Request, error) {
	if len(args) < 2 {
		return daemon.Request{}, fmt.Errorf("usage: cmd <address> <command> [value]")
	}

	req := daemon.Request{
		Command:     "command",
		Address:     args[0],
		NodeCommand: strings.ToUpper(args[1]),
	}

	if len(args) > 2 {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return daemon.Request{}, fmt.Errorf("invalid value %q: must be an integer", args[2])
		}
		req.Value = &v
	}
	return req, nil
}

func executeCommand(w io.Writer, client ClientInterface, args []string) error {
	req, err := parseCommandArgs(args)
	if err != nil {
		return err
	}
	return executeSimple(w, client, req)
}

// executeSimple sends a request whose only output is the daemon's message
func executeSimple(w io.Writer, client ClientInterface, req daemon.Request) error {
	resp, err := send(client, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[OK] %s\n", resp.Message)
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
