// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// fixtureResolver resolves from a fixed keyset store; unknown keys are
// empty sets, mirroring the cache contract.
func fixtureResolver(store map[string]Set) Resolver {
	return func(key string) (Set, error) {
		if set, ok := store[key]; ok {
			return set, nil
		}
		return Set{}, nil
	}
}

func TestKeys_DistinctSorted(t *testing.T) {
	root, err := Parse("b UNION a INTERSECTION (b | c)")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, Keys(root))
}

func TestEvaluate_UnionAndIntersection(t *testing.T) {
	store := map[string]Set{
		"a": newSet("x", "y"),
		"b": newSet("y", "z"),
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"a UNION b", []string{"x", "y", "z"}},
		{"a INTERSECTION b", []string{"y"}},
		{"a | b", []string{"x", "y", "z"}},
		{"a & b", []string{"y"}},
		{"(a UNION b) INTERSECTION b", []string{"y", "z"}},
		{"a UNION missing", []string{"x", "y"}},
		{"a INTERSECTION missing", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			root, err := Parse(tc.query)
			require.NoError(t, err)
			got, err := Evaluate(root, fixtureResolver(store))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Elements())
		})
	}
}

// TestEvaluate_SetAlgebraLaws checks idempotence, commutativity and the
// subset property of intersection over a handful of operand shapes.
func TestEvaluate_SetAlgebraLaws(t *testing.T) {
	store := map[string]Set{
		"a": newSet("1", "2", "3"),
		"b": newSet("2", "3", "4"),
		"c": newSet(),
	}
	resolve := fixtureResolver(store)

	eval := func(q string) Set {
		t.Helper()
		root, err := Parse(q)
		require.NoError(t, err)
		result, err := Evaluate(root, resolve)
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, eval("a").Elements(), eval("a UNION a").Elements())
	assert.Equal(t, eval("a UNION b").Elements(), eval("b UNION a").Elements())
	assert.Equal(t, eval("a INTERSECTION b").Elements(), eval("b INTERSECTION a").Elements())

	both := eval("a INTERSECTION b")
	for member := range both {
		assert.Contains(t, eval("a"), member)
		assert.Contains(t, eval("b"), member)
	}

	assert.Empty(t, eval("a INTERSECTION c").Elements())
}

func TestEvaluate_ResolverErrorPropagates(t *testing.T) {
	root, err := Parse("a UNION b")
	require.NoError(t, err)

	resolverErr := errors.New("snapshot gone")
	_, err = Evaluate(root, func(key string) (Set, error) {
		if key == "b" {
			return nil, resolverErr
		}
		return newSet("x"), nil
	})
	assert.ErrorIs(t, err, resolverErr)
}

func TestEvaluate_DoesNotMutateOperands(t *testing.T) {
	store := map[string]Set{
		"a": newSet("x", "y"),
		"b": newSet("y"),
	}
	root, err := Parse("a INTERSECTION b")
	require.NoError(t, err)

	_, err = Evaluate(root, fixtureResolver(store))
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, store["a"].Elements())
	assert.Equal(t, []string{"y"}, store["b"].Elements())
}
