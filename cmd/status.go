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
	"time"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and controller status",
	Long:  `Displays the loaded plugin, the controller state and the poll cadence.`,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	if err := executeStatus(cmd.OutOrStdout(), defaultClient); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func executeStatus(w io.Writer, client ClientInterface) error {
	resp, err := send(client, daemon.Request{Command: "status"})
	if err != nil {
		return err
	}

	var info daemon.StatusInfo
	if err := decodeData(resp.Data, &info); err != nil {
		return err
	}

	fmt.Fprintln(w, "wledbridge")
	fmt.Fprintln(w, "==========")
	fmt.Fprintf(w, "Plugin:      %s v%s\n", info.Plugin, info.Version)
	fmt.Fprintf(w, "Run ID:      %s\n", info.RunID)
	fmt.Fprintf(w, "Started:     %s\n", info.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Controller:  %s\n", boolToStatus(info.ControllerST == 1))
	fmt.Fprintf(w, "Nodes:       %d\n", info.Nodes)
	fmt.Fprintf(w, "Polling:     short %ds, long %ds\n", info.ShortPoll, info.LongPoll)
	fmt.Fprintf(w, "Profiles:    %d installed\n", info.ProfileInstalls)
	if info.LastReport != nil {
		fmt.Fprintf(w, "Heartbeat:   %s at %s\n", info.LastReport.Command, info.LastReport.Time.Format(time.RFC3339))
	}
	return nil
}

func boolToStatus(b bool) string {
	if b {
		return "Active"
	}
	return "Inactive"
}
