// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// runHealthCommand checks the dataserver's /healthz endpoint.
//
// Exits 1 when the server is unreachable or unhealthy so the command
// can gate scripts and readiness probes.
func runHealthCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Status string `json:"status"`
	}
	if err := newAPIClient().getJSON(ctx, "/healthz", nil, &result); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Printf("%s: %s\n", serverURL, result.Status)
}
