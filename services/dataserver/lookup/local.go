// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/driftline/keyserve/services/dataserver/cache"
	"github.com/driftline/keyserve/services/dataserver/observability"
	"github.com/driftline/keyserve/services/dataserver/query"
)

// LocalLookup answers from the in-process cache.
//
// The cache and metrics are injected at construction; LocalLookup holds
// references, never owns. One instance serves all requests concurrently.
type LocalLookup struct {
	cache   cache.Cache
	metrics *observability.ServerMetrics
}

var _ Lookup = (*LocalLookup)(nil)

// NewLocalLookup builds a Lookup over c, recording serving events on m.
func NewLocalLookup(c cache.Cache, m *observability.ServerMetrics) *LocalLookup {
	return &LocalLookup{cache: c, metrics: m}
}

// GetKeyValues resolves all keys against one cache snapshot and reports
// a value or a NotFound status per distinct key.
func (l *LocalLookup) GetKeyValues(ctx context.Context, keys []string) (*Response, error) {
	response := &Response{KVPairs: make(map[string]SingleResult, len(keys))}
	if len(keys) == 0 {
		return response, nil
	}
	pairs := l.cache.GetKeyValuePairs(ctx, keys)
	for _, key := range keys {
		if value, ok := pairs[key]; ok {
			response.KVPairs[key] = SingleResult{Value: &value}
		} else {
			response.KVPairs[key] = SingleResult{Status: notFound()}
		}
	}
	return response, nil
}

// GetKeyValueSet resolves all keyset keys against one pinned snapshot.
// A key whose set is empty reports NotFound and bumps the
// keyset-not-found counter once.
func (l *LocalLookup) GetKeyValueSet(ctx context.Context, keys []string) (*Response, error) {
	response := &Response{KVPairs: make(map[string]SingleResult, len(keys))}
	if len(keys) == 0 {
		return response, nil
	}
	result := l.cache.GetKeyValueSet(ctx, keys)
	for _, key := range keys {
		set := result.GetValueSet(key)
		if len(set) == 0 {
			l.metrics.RecordKeysetNotFound()
			response.KVPairs[key] = SingleResult{Status: notFound()}
			continue
		}
		response.KVPairs[key] = SingleResult{ValueSet: query.Set(set).Elements()}
	}
	return response, nil
}

// RunQuery executes a set-algebra query: parse, collect the distinct
// leaf keys, fetch them in exactly one batched snapshot read, then
// evaluate the tree against that snapshot. The fetch + evaluate phase is
// what the RunQuery latency histogram measures.
func (l *LocalLookup) RunQuery(ctx context.Context, q string) (*QueryResponse, error) {
	// Empty query is policy, not error: succeed with nothing.
	if q == "" {
		return &QueryResponse{Elements: []string{}}, nil
	}
	root, err := query.Parse(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	start := time.Now()
	result := l.cache.GetKeyValueSet(ctx, query.Keys(root))
	elements, err := query.Evaluate(root, func(key string) (query.Set, error) {
		return query.Set(result.GetValueSet(key)), nil
	})
	l.metrics.ObserveRunQueryDuration(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("query evaluation: %w", err)
	}
	return &QueryResponse{Elements: elements.Elements()}, nil
}
