// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// generation is one immutable point-in-time view of the store. Once a
// generation has been published it is never modified; writers build a
// replacement and swap the pointer.
type generation struct {
	values map[string]string
	sets   map[string]map[string]struct{}
}

var emptySet = map[string]struct{}{}

// KeyValueCache is the copy-on-write implementation of Cache and Writer.
//
// # Description
//
// The current generation is held behind an atomic pointer. Each read
// loads the pointer exactly once, so a batch of keys can never observe
// a mix of old and new data. Writers serialize on a mutex, shallow-copy
// the maps of the current generation, apply their changes, and publish
// the result atomically.
//
// A generation stays reachable (and therefore valid) for as long as any
// SetResult built from it is held; the garbage collector takes the role
// a reference count plays in manually managed stores.
//
// # Limitations
//
//   - Each write copies the top-level maps; population is expected to go
//     through Apply in batches rather than per-record point writes.
type KeyValueCache struct {
	// writeMu serializes writers. Readers never take it.
	writeMu sync.Mutex

	current atomic.Pointer[generation]
}

// NewKeyValueCache returns an empty cache ready for concurrent use.
func NewKeyValueCache() *KeyValueCache {
	c := &KeyValueCache{}
	c.current.Store(&generation{
		values: map[string]string{},
		sets:   map[string]map[string]struct{}{},
	})
	return c
}

// GetKeyValuePairs returns the scalar values for the found subset of
// keys, all resolved against one generation. Absent keys are omitted.
// An empty keys slice returns an empty map without loading the store.
func (c *KeyValueCache) GetKeyValuePairs(_ context.Context, keys []string) map[string]string {
	found := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return found
	}
	gen := c.current.Load()
	for _, key := range keys {
		if value, ok := gen.values[key]; ok {
			found[key] = value
		}
	}
	return found
}

// GetKeyValueSet returns a SetResult pinned to the generation observed
// at call time. An empty keys slice short-circuits to a result backed
// by nothing.
func (c *KeyValueCache) GetKeyValueSet(_ context.Context, keys []string) SetResult {
	if len(keys) == 0 {
		return &setResult{}
	}
	return &setResult{gen: c.current.Load()}
}

// setResult pins the generation it was built from. The pinned maps are
// immutable, so lookups need no synchronization.
type setResult struct {
	gen *generation
}

func (r *setResult) GetValueSet(key string) map[string]struct{} {
	if r.gen == nil {
		return emptySet
	}
	if set, ok := r.gen.sets[key]; ok {
		return set
	}
	return emptySet
}

// UpdateKeyValue sets a scalar key to value in a new generation.
func (c *KeyValueCache) UpdateKeyValue(key, value string) {
	c.Apply(context.Background(), []Mutation{{Type: MutationUpdate, Key: key, Value: value}})
}

// DeleteKey removes a scalar key in a new generation.
func (c *KeyValueCache) DeleteKey(key string) {
	c.Apply(context.Background(), []Mutation{{Type: MutationDelete, Key: key}})
}

// UpdateKeyValueSet adds values to the set stored under key in a new
// generation. Duplicate members collapse.
func (c *KeyValueCache) UpdateKeyValueSet(key string, values []string) {
	c.Apply(context.Background(), []Mutation{{Type: MutationUpdateSet, Key: key, Values: values}})
}

// DeleteKeyValueSet removes values from the set stored under key in a
// new generation. An emptied set is dropped entirely, so the key reads
// back as never written.
func (c *KeyValueCache) DeleteKeyValueSet(key string, values []string) {
	c.Apply(context.Background(), []Mutation{{Type: MutationDeleteSet, Key: key, Values: values}})
}

// Apply installs all mutations as one new generation. Readers see either
// the store before the batch or after it, never an intermediate state.
func (c *KeyValueCache) Apply(_ context.Context, mutations []Mutation) {
	if len(mutations) == 0 {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	next := c.cloneCurrent()
	for _, m := range mutations {
		switch m.Type {
		case MutationUpdate:
			next.values[m.Key] = m.Value
		case MutationDelete:
			delete(next.values, m.Key)
		case MutationUpdateSet:
			set := cloneSet(next.sets[m.Key], len(m.Values))
			for _, v := range m.Values {
				set[v] = struct{}{}
			}
			next.sets[m.Key] = set
		case MutationDeleteSet:
			set := cloneSet(next.sets[m.Key], 0)
			for _, v := range m.Values {
				delete(set, v)
			}
			if len(set) == 0 {
				delete(next.sets, m.Key)
			} else {
				next.sets[m.Key] = set
			}
		}
	}
	c.current.Store(next)
}

// cloneCurrent shallow-copies the top-level maps of the current
// generation. Inner sets are shared until a mutation touches them;
// cloneSet makes the per-key copy. Caller must hold writeMu.
func (c *KeyValueCache) cloneCurrent() *generation {
	cur := c.current.Load()
	next := &generation{
		values: make(map[string]string, len(cur.values)),
		sets:   make(map[string]map[string]struct{}, len(cur.sets)),
	}
	for k, v := range cur.values {
		next.values[k] = v
	}
	for k, s := range cur.sets {
		next.sets[k] = s
	}
	return next
}

func cloneSet(set map[string]struct{}, extra int) map[string]struct{} {
	out := make(map[string]struct{}, len(set)+extra)
	for v := range set {
		out[v] = struct{}{}
	}
	return out
}
