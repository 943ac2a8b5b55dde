// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lookup answers key, keyset and query requests from the request
// boundary, hiding whether the data is local to this process or served
// by a remote shard.
//
// # Description
//
// Lookup is the service's public capability surface. The local variant
// answers from an injected in-process cache; a remote variant would
// delegate to another shard over the network behind the identical
// contract, so callers stay agnostic to which one they hold.
//
// Per-key absence is data, not failure: a batch call either returns a
// complete per-key result or a single call-level error, never a mix.
package lookup

import (
	"context"
	"errors"
)

// ErrInvalidQuery marks a query that failed to lex or parse. The cache
// is never touched for such a call.
var ErrInvalidQuery = errors.New("invalid query")

// StatusNotFound is the per-key code reported for absent keys. The value
// follows the canonical RPC code table.
const StatusNotFound = 5

// keyNotFoundMessage is the per-key message for absent keys.
const keyNotFoundMessage = "Key not found"

// KeyStatus reports a per-key, non-fatal condition.
type KeyStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SingleResult is the outcome for one key: exactly one of Value,
// ValueSet or Status is set.
type SingleResult struct {
	Value    *string    `json:"value,omitempty"`
	ValueSet []string   `json:"valueSet,omitempty"`
	Status   *KeyStatus `json:"status,omitempty"`
}

// Response maps every distinct requested key to its result.
type Response struct {
	KVPairs map[string]SingleResult `json:"kvPairs"`
}

// QueryResponse carries the evaluated element set of one query.
type QueryResponse struct {
	Elements []string `json:"elements"`
}

// Lookup is implemented by the local variant (in-process cache) and by
// remote-shard clients. Every method takes a context so remote
// implementations can carry deadlines and cancellation behind the same
// signature; the local variant is pure in-memory and ignores them.
type Lookup interface {
	// GetKeyValues answers each distinct key with its scalar value or a
	// NotFound status. An empty key slice yields an empty response.
	GetKeyValues(ctx context.Context, keys []string) (*Response, error)

	// GetKeyValueSet answers each distinct key with its non-empty value
	// set or a NotFound status. An empty key slice yields an empty
	// response.
	GetKeyValueSet(ctx context.Context, keys []string) (*Response, error)

	// RunQuery parses and evaluates a set-algebra query over keyset
	// keys. An empty query succeeds with an empty element set; a query
	// that fails to parse returns an error wrapping ErrInvalidQuery.
	RunQuery(ctx context.Context, q string) (*QueryResponse, error)
}

func notFound() *KeyStatus {
	return &KeyStatus{Code: StatusNotFound, Message: keyNotFoundMessage}
}
