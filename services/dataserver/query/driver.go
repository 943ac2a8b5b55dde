// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import "sort"

// Resolver supplies the value set for one leaf key. A key absent from
// the underlying store resolves to an empty Set, not an error; a
// returned error aborts evaluation and propagates to the caller.
type Resolver func(key string) (Set, error)

// Keys returns the distinct leaf key literals referenced anywhere in the
// tree, sorted. Duplicated literals collapse to one entry, so the caller
// issues exactly one batched fetch per distinct key.
func Keys(root Node) []string {
	distinct := map[string]struct{}{}
	root.appendKeys(distinct)
	keys := make([]string, 0, len(distinct))
	for key := range distinct {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Evaluate walks the tree bottom-up, resolving every leaf through
// resolve and combining subtree results with their operators.
//
// The intended pipeline is strictly sequential: Parse, collect Keys,
// fetch all of them in one snapshot read, then Evaluate with a resolver
// bound to that snapshot. Evaluate never triggers fetches of its own.
func Evaluate(root Node, resolve Resolver) (Set, error) {
	return root.evaluate(resolve)
}
