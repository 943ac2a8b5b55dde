// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftline/keyserve/pkg/validation"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// keyOutcome mirrors the server's per-key result object.
type keyOutcome struct {
	Value    json.RawMessage `json:"value,omitempty"`
	ValueSet []string        `json:"valueSet,omitempty"`
	Status   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status,omitempty"`
}

// getValuesResult mirrors GET /v1/getvalues.
type getValuesResult struct {
	Keys map[string]keyOutcome `json:"keys"`
}

// keysetsResult mirrors GET /v1/keysets.
type keysetsResult struct {
	KVPairs map[string]keyOutcome `json:"kvPairs"`
}

// queryResult mirrors POST /v1/query.
type queryResult struct {
	Elements []string `json:"elements"`
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

// runGetCommand fetches scalar values for the given keys.
//
// # Description
//
// Packs all argument keys into one getvalues request (the server splits
// on commas) and prints one line per key: the value, or "(not found)".
//
// # Inputs
//
//   - cmd: Cobra command (unused)
//   - args: Keys to fetch
//
// # Outputs
//
// Prints per-key results to stdout. Exits 1 on transport failure.
func runGetCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := validation.ValidateKeys(args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	params := url.Values{}
	params.Set("keys", strings.Join(args, ","))

	var result getValuesResult
	if err := newAPIClient().getJSON(ctx, "/v1/getvalues", params, &result); err != nil {
		fmt.Fprintf(os.Stderr, "get failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, key := range sortedKeys(result.Keys) {
		outcome := result.Keys[key]
		if outcome.Status != nil {
			fmt.Printf("%s\t(not found)\n", key)
			continue
		}
		fmt.Printf("%s\t%s\n", key, renderValue(outcome.Value))
	}
}

// runKeysetCommand fetches the contents of the given keysets.
func runKeysetCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := validation.ValidateKeys(args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	params := url.Values{}
	params.Set("keys", strings.Join(args, ","))

	var result keysetsResult
	if err := newAPIClient().getJSON(ctx, "/v1/keysets", params, &result); err != nil {
		fmt.Fprintf(os.Stderr, "keyset failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, key := range sortedKeys(result.KVPairs) {
		outcome := result.KVPairs[key]
		if outcome.Status != nil {
			fmt.Printf("%s\t(not found)\n", key)
			continue
		}
		fmt.Printf("%s\t%s\n", key, strings.Join(outcome.ValueSet, " "))
	}
}

// runQueryCommand runs a set-algebra expression over keysets.
//
// Invalid expressions come back as a 400 with the parse position; the
// message is printed verbatim.
func runQueryCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	request := map[string]string{"query": args[0]}
	var result queryResult
	if err := newAPIClient().postJSON(ctx, "/v1/query", request, &result); err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, element := range result.Elements {
		fmt.Println(element)
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// renderValue prints a JSON scalar bare and anything structured as-is.
func renderValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func sortedKeys(m map[string]keyOutcome) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
