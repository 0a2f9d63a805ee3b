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

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/we-are-mono/wledbridge/daemon"
)

var (
	historyLimit int
	historyGraph bool
)

var historyCmd = &cobra.Command{
	Use:   "history <address> [driver]",
	Short: "Show recorded driver values for a node",
	Long: `Shows the driver values the daemon recorded for a node, oldest first.

With --graph the values of one driver are plotted.

Examples:
  wledbridge history device1
  wledbridge history device1 GV3 --graph`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", daemon.DefaultHistoryLimit, "Number of values to show")
	historyCmd.Flags().BoolVar(&historyGraph, "graph", false, "Plot the values of one driver")
}

func runHistory(cmd *cobra.Command, args []string) {
	if err := executeHistory(cmd.OutOrStdout(), defaultClient, args, historyLimit, historyGraph); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func executeHistory(w io.Writer, client ClientInterface, args []string, limit int, graph bool) error {
	if len(args) < 1 {
		return fmt.Errorf("history requires an address")
	}
	req := daemon.Request{Command: "history", Address: args[0], Limit: limit}
	if len(args) > 1 {
		req.Driver = args[1]
	}
	if graph && req.Driver == "" {
		return fmt.Errorf("--graph requires a driver")
	}

	resp, err := send(client, req)
	if err != nil {
		return err
	}

	var records []daemon.HistoryRecord
	if err := decodeData(resp.Data, &records); err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(w, "No history for %s\n", req.Address)
		return nil
	}

	if graph {
		fmt.Fprintln(w, plotHistory(records, fmt.Sprintf("%s %s", req.Address, req.Driver)))
		return nil
	}

	fmt.Fprintf(w, "%-25s %-8s %6s %4s\n", "TIME", "DRIVER", "VALUE", "UOM")
	for _, r := range records {
		fmt.Fprintf(w, "%-25s %-8s %6d %4d\n", r.Timestamp.Local().Format(time.RFC3339), r.Driver, r.Value, r.UOM)
	}
	return nil
}

// plotHistory renders driver values as an ASCII line graph
func plotHistory(records []daemon.HistoryRecord, caption string) string {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = float64(r.Value)
	}
	// asciigraph needs two points to draw a line
	if len(values) == 1 {
		values = append(values, values[0])
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Precision(0),
		asciigraph.Caption(caption))
}
