// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for client-side
// request construction.
//
// The serving API packs multiple keys into one query parameter joined by
// commas, so a key containing a comma cannot be transported losslessly.
// These validators catch such keys before the request leaves the client.
package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateKey checks a lookup key before it is packed into a request.
//
// Valid keys:
//   - Non-empty
//   - No commas (the wire delimiter between packed keys)
//   - No control characters
//
// Returns an error describing the first violation.
//
// Example:
//
//	if err := validation.ValidateKey(key); err != nil {
//	    return fmt.Errorf("invalid key: %w", err)
//	}
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if strings.Contains(key, ",") {
		return fmt.Errorf("key %q contains a comma, which is the wire delimiter", key)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("key %q contains a control character", key)
		}
	}
	return nil
}

// ValidateKeys validates multiple lookup keys.
// Returns an error listing all invalid keys if any fail validation.
func ValidateKeys(keys []string) error {
	var invalid []string
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			invalid = append(invalid, fmt.Sprintf("%q (%v)", key, err))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid keys: %s", strings.Join(invalid, "; "))
	}
	return nil
}
