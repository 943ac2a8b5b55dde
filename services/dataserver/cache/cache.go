// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides the in-memory key/value store that backs the
// dataserver's lookup path.
//
// The cache holds two data shapes: scalar key -> value pairs, and
// keyset key -> set-of-strings associations. All reads are batched and
// snapshot consistent: every key in one call is answered from the same
// immutable generation of the store, even while writers are installing
// new generations concurrently.
//
// # Design Principles
//
// Generations are immutable once installed. Writers build a new generation
// by copy-on-write and publish it with a single atomic pointer swap;
// readers load the pointer once per call and keep reading the generation
// they observed. A SetResult retains its generation, so the view it was
// built from stays valid for as long as the caller holds it.
//
// # Thread Safety
//
// KeyValueCache is safe for concurrent use. Readers never block writers
// and writers never block readers.
package cache

import "context"

// SetResult is the snapshot-pinned handle returned by a batched keyset
// read.
//
// # Description
//
// A SetResult answers GetValueSet for any key that was part of the
// original batch, always from the one generation the batch observed.
// It remains valid and internally consistent after GetKeyValueSet
// returns, including while later writes install new generations.
//
// # Thread Safety
//
// Safe for concurrent reads. The returned sets are views into the
// pinned generation and must not be modified.
type SetResult interface {
	// GetValueSet returns the stored members for key, or an empty set
	// when the key is absent from the keyset store.
	GetValueSet(key string) map[string]struct{}
}

// Cache is the read contract consumed by the lookup layer.
//
// # Description
//
// Both read operations are batched: all keys in one call are resolved
// against a single generation, never N independent point reads. Empty
// key slices short-circuit without touching the store.
//
// How entries get into the cache is the writer's concern (see Writer);
// readers only assume that no partially applied generation is ever
// visible.
type Cache interface {
	// GetKeyValuePairs returns the scalar values for the found subset of
	// keys. Absent keys are omitted from the returned map.
	GetKeyValuePairs(ctx context.Context, keys []string) map[string]string

	// GetKeyValueSet returns a snapshot-pinned SetResult covering keys.
	GetKeyValueSet(ctx context.Context, keys []string) SetResult
}

// MutationType identifies one kind of store mutation.
type MutationType int

const (
	// MutationUpdate sets a scalar key to a value.
	MutationUpdate MutationType = iota

	// MutationDelete removes a scalar key.
	MutationDelete

	// MutationUpdateSet adds members to a keyset key.
	MutationUpdateSet

	// MutationDeleteSet removes members from a keyset key. Removing the
	// last member leaves the key equivalent to never written.
	MutationDeleteSet
)

// Mutation is a single store change, applied by Writer implementations.
//
// Value is used by MutationUpdate; Values by MutationUpdateSet and
// MutationDeleteSet.
type Mutation struct {
	Type   MutationType
	Key    string
	Value  string
	Values []string
}

// Writer is the population surface of the store, consumed by the data
// loader.
//
// # Description
//
// Single mutations each install one new generation. Apply batches many
// mutations into one generation so readers never observe a partially
// loaded file.
type Writer interface {
	// UpdateKeyValue sets a scalar key to value.
	UpdateKeyValue(key, value string)

	// DeleteKey removes a scalar key.
	DeleteKey(key string)

	// UpdateKeyValueSet adds values to the set stored under key.
	UpdateKeyValueSet(key string, values []string)

	// DeleteKeyValueSet removes values from the set stored under key.
	DeleteKeyValueSet(key string, values []string)

	// Apply installs all mutations as a single new generation.
	Apply(ctx context.Context, mutations []Mutation)
}
