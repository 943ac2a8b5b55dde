// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lookup

import (
	"context"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/keyserve/services/dataserver/cache"
	"github.com/driftline/keyserve/services/dataserver/observability"
)

// mockCache is an instrumented Cache: it records how often each batched
// read fired and which keys the last keyset batch asked for.
type mockCache struct {
	values map[string]string
	sets   map[string]map[string]struct{}

	pairCalls   int
	setCalls    int
	lastSetKeys []string
}

func (m *mockCache) GetKeyValuePairs(_ context.Context, keys []string) map[string]string {
	m.pairCalls++
	found := map[string]string{}
	for _, key := range keys {
		if value, ok := m.values[key]; ok {
			found[key] = value
		}
	}
	return found
}

func (m *mockCache) GetKeyValueSet(_ context.Context, keys []string) cache.SetResult {
	m.setCalls++
	m.lastSetKeys = append([]string(nil), keys...)
	sort.Strings(m.lastSetKeys)
	return mockSetResult{sets: m.sets}
}

type mockSetResult struct {
	sets map[string]map[string]struct{}
}

func (r mockSetResult) GetValueSet(key string) map[string]struct{} {
	if set, ok := r.sets[key]; ok {
		return set
	}
	return map[string]struct{}{}
}

func newFixture() (*mockCache, *LocalLookup, *observability.ServerMetrics) {
	mc := &mockCache{
		values: map[string]string{"k1": "hello"},
		sets: map[string]map[string]struct{}{
			"a": {"x": {}, "y": {}},
			"b": {"y": {}, "z": {}},
		},
	}
	metrics := observability.NewServerMetrics(prometheus.NewRegistry())
	return mc, NewLocalLookup(mc, metrics), metrics
}

func TestGetKeyValues_PerKeyOutcome(t *testing.T) {
	_, l, _ := newFixture()

	response, err := l.GetKeyValues(context.Background(), []string{"k1", "k2"})
	require.NoError(t, err)
	require.Len(t, response.KVPairs, 2)

	found := response.KVPairs["k1"]
	require.NotNil(t, found.Value)
	assert.Equal(t, "hello", *found.Value)
	assert.Nil(t, found.Status)

	missing := response.KVPairs["k2"]
	assert.Nil(t, missing.Value)
	require.NotNil(t, missing.Status)
	assert.Equal(t, StatusNotFound, missing.Status.Code)
	assert.Equal(t, "Key not found", missing.Status.Message)
}

func TestGetKeyValues_EmptyInputSkipsCache(t *testing.T) {
	mc, l, _ := newFixture()

	response, err := l.GetKeyValues(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, response.KVPairs)
	assert.Zero(t, mc.pairCalls)
}

func TestGetKeyValueSet_FoundAndNotFound(t *testing.T) {
	_, l, metrics := newFixture()

	response, err := l.GetKeyValueSet(context.Background(), []string{"a", "missing"})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, response.KVPairs["a"].ValueSet)

	missing := response.KVPairs["missing"]
	require.NotNil(t, missing.Status)
	assert.Equal(t, StatusNotFound, missing.Status.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KeysetNotFound))
}

func TestGetKeyValueSet_CounterFiresPerEmptyKey(t *testing.T) {
	_, l, metrics := newFixture()

	_, err := l.GetKeyValueSet(context.Background(), []string{"gone1", "gone2", "a"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.KeysetNotFound))
}

func TestRunQuery_EmptyQuerySucceedsWithoutCache(t *testing.T) {
	mc, l, _ := newFixture()

	response, err := l.RunQuery(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, response.Elements)
	assert.Zero(t, mc.setCalls)
}

func TestRunQuery_ParseFailureSkipsCache(t *testing.T) {
	mc, l, _ := newFixture()

	for _, invalid := range []string{"(", "a UNION", ") a"} {
		_, err := l.RunQuery(context.Background(), invalid)
		assert.ErrorIs(t, err, ErrInvalidQuery, "query %q", invalid)
	}
	assert.Zero(t, mc.setCalls)
}

func TestRunQuery_SingleBatchedFetchOverDistinctLeaves(t *testing.T) {
	mc, l, _ := newFixture()

	_, err := l.RunQuery(context.Background(), "(a UNION b) INTERSECTION (a UNION a)")
	require.NoError(t, err)

	assert.Equal(t, 1, mc.setCalls, "repeated literals must not multiply cache calls")
	assert.Equal(t, []string{"a", "b"}, mc.lastSetKeys)
}

func TestRunQuery_EndToEnd(t *testing.T) {
	_, l, _ := newFixture()

	union, err := l.RunQuery(context.Background(), "a UNION b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, union.Elements)

	both, err := l.RunQuery(context.Background(), "a INTERSECTION b")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, both.Elements)
}

func TestRunQuery_AbsentLeafIsEmptySet(t *testing.T) {
	_, l, _ := newFixture()

	response, err := l.RunQuery(context.Background(), "a INTERSECTION nothere")
	require.NoError(t, err)
	assert.Empty(t, response.Elements)
}

func TestRunQuery_RecordsLatency(t *testing.T) {
	_, l, metrics := newFixture()

	_, err := l.RunQuery(context.Background(), "a UNION b")
	require.NoError(t, err)

	sample := &dto.Metric{}
	require.NoError(t, metrics.RunQueryDuration.Write(sample))
	assert.Equal(t, uint64(1), sample.GetHistogram().GetSampleCount())
}
