// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package query implements the set-algebra query language evaluated over
// keyset values: a scanner, a recursive-descent parser, and a driver that
// evaluates the parsed tree against an injected value-set resolver.
//
// The language is small: key literals combined with binary set operators,
// grouped by parentheses. `a UNION b`, `a & (b | c)`. Operators are
// left-associative with equal precedence.
//
// The package knows nothing about the cache. Whoever drives a query
// collects the tree's distinct leaf keys, fetches them in one batched
// snapshot read, and hands Evaluate a resolver backed by that snapshot.
package query

import "sort"

// Set is a deduplicated collection of string members. The zero value of
// a nil Set is a valid empty set for reading.
type Set map[string]struct{}

// Elements returns the members in sorted order. Set semantics impose no
// ordering; sorting keeps wire output and tests deterministic.
func (s Set) Elements() []string {
	out := make([]string, 0, len(s))
	for member := range s {
		out = append(out, member)
	}
	sort.Strings(out)
	return out
}

// Operator is one binary set operation. Operators live in a table
// (see operators) so the language can grow without parser changes.
type Operator struct {
	// Name is the canonical keyword, e.g. "UNION".
	Name string

	// Apply combines two evaluated operand sets into a new set. It must
	// not modify its inputs.
	Apply func(left, right Set) Set
}

// operators maps each operator keyword to its definition. The evidenced
// language defines exactly UNION and INTERSECTION; registering a new
// entry (plus optionally a symbol in operatorSymbols) extends the
// grammar.
var operators = map[string]Operator{
	"UNION":        {Name: "UNION", Apply: union},
	"INTERSECTION": {Name: "INTERSECTION", Apply: intersection},
}

// operatorSymbols maps single-rune operator aliases to keywords.
var operatorSymbols = map[rune]string{
	'|': "UNION",
	'&': "INTERSECTION",
}

func union(left, right Set) Set {
	out := make(Set, len(left)+len(right))
	for member := range left {
		out[member] = struct{}{}
	}
	for member := range right {
		out[member] = struct{}{}
	}
	return out
}

func intersection(left, right Set) Set {
	small, large := left, right
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set, len(small))
	for member := range small {
		if _, ok := large[member]; ok {
			out[member] = struct{}{}
		}
	}
	return out
}

// Node is one node of a parsed query tree. The only terminal nodes are
// key literals.
type Node interface {
	// appendKeys records every leaf key literal under this node.
	appendKeys(keys map[string]struct{})

	// evaluate resolves this subtree bottom-up through resolve.
	evaluate(resolve Resolver) (Set, error)
}

// KeyNode is a leaf referencing one keyset key.
type KeyNode struct {
	Key string
}

func (n *KeyNode) appendKeys(keys map[string]struct{}) {
	keys[n.Key] = struct{}{}
}

func (n *KeyNode) evaluate(resolve Resolver) (Set, error) {
	return resolve(n.Key)
}

// OpNode applies a binary set operator to two subtrees.
type OpNode struct {
	Op    Operator
	Left  Node
	Right Node
}

func (n *OpNode) appendKeys(keys map[string]struct{}) {
	n.Left.appendKeys(keys)
	n.Right.appendKeys(keys)
}

func (n *OpNode) evaluate(resolve Resolver) (Set, error) {
	left, err := n.Left.evaluate(resolve)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.evaluate(resolve)
	if err != nil {
		return nil, err
	}
	return n.Op.Apply(left, right), nil
}
