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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/discovery"
	"github.com/we-are-mono/wledbridge/logger"
	"github.com/we-are-mono/wledbridge/state"
)

var (
	scanTimeout time.Duration
	scanSave    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find WLED devices on the local network",
	Long: `Queries mDNS for WLED controllers on every usable interface and prints the
host list to configure. With --save the list is written to the bridge config.

The daemon does not need to be running.`,
	Args: cobra.NoArgs,
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultTimeout, "How long to listen on each interface")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Write the found hosts to the bridge config")
}

// deviceScanner is the part of discovery.Scanner the scan command uses
type deviceScanner interface {
	Scan(ctx context.Context) ([]discovery.Device, error)
}

func runScan(cmd *cobra.Command, args []string) {
	scanner := discovery.NewScanner(scanTimeout, logger.Default())
	if err := executeScan(cmd.Context(), cmd.OutOrStdout(), scanner, scanSave); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func executeScan(ctx context.Context, w io.Writer, scanner deviceScanner, save bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintln(w, "Scanning for WLED devices...")
	devices, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, "No WLED devices found")
		return nil
	}

	fmt.Fprintf(w, "%-21s %-24s %s\n", "ADDRESS", "NAME", "HOST")
	for _, d := range devices {
		fmt.Fprintf(w, "%-21s %-24s %s\n", d.Addr(), d.Name, d.Host)
	}

	hosts := discovery.HostList(devices)
	fmt.Fprintf(w, "\nhost: %s\n", hosts)

	if !save {
		return nil
	}

	config, err := state.LoadBridgeConfig()
	if err != nil {
		return err
	}
	config.Host = hosts
	if err := state.SaveBridgeConfig(config); err != nil {
		return err
	}
	fmt.Fprintf(w, "[OK] Saved to %s\n", state.ConfigPath(state.BridgeNamespace))
	return nil
}
