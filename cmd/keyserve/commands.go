// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL  string // Base URL of the dataserver
	jsonOutput bool   // Output raw JSON instead of formatted text

	rootCmd = &cobra.Command{
		Use:   "keyserve",
		Short: "A cli to query a keyserve dataserver",
		Long: `keyserve talks to a running dataserver over HTTP to fetch
				scalar values, keyset contents, and set-algebra query results.`,
	}

	// --- Lookups ---
	getCmd = &cobra.Command{
		Use:   "get [keys...]",
		Short: "Fetch scalar values for one or more keys",
		Args:  cobra.MinimumNArgs(1),
		Run:   runGetCommand, // Defined in cmd_lookup.go
	}
	keysetCmd = &cobra.Command{
		Use:   "keyset [keys...]",
		Short: "Fetch the full contents of one or more keysets",
		Args:  cobra.MinimumNArgs(1),
		Run:   runKeysetCommand, // Defined in cmd_lookup.go
	}
	queryCmd = &cobra.Command{
		Use:   "query [expression]",
		Short: "Run a set-algebra query (UNION, INTERSECTION) over keysets",
		Long: `Runs a set-algebra expression over the server's keysets, for example:

  keyserve query "campaign_a UNION campaign_b"
  keyserve query "(a | b) & c"`,
		Args: cobra.ExactArgs(1),
		Run:  runQueryCommand, // Defined in cmd_lookup.go
	}

	// --- Diagnostics ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check whether the dataserver is up",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

func init() {
	defaultServer := os.Getenv("KEYSERVE_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:12400"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"Base URL of the dataserver (env: KEYSERVE_SERVER_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output raw JSON for scripting")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(keysetCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(healthCmd)
}
