// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request-scoped types shared between the
// dataserver's middleware and handlers.
package datatypes

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// RequestContext correlates one external call with one request id and a
// request-scoped logger. It is created at call entry, carried through
// the call's context.Context, and discarded at call exit; it is never
// shared across calls.
type RequestContext struct {
	// ID is the caller-supplied request id, or a freshly generated uuid
	// when the caller sent none.
	ID string

	// Logger carries the request id on every record it emits.
	Logger *slog.Logger
}

type requestContextKey struct{}

// NewRequestContext builds the per-call context. An empty id is replaced
// with a generated uuid; a nil base falls back to slog.Default().
func NewRequestContext(id string, base *slog.Logger) RequestContext {
	if id == "" {
		id = uuid.NewString()
	}
	if base == nil {
		base = slog.Default()
	}
	return RequestContext{ID: id, Logger: base.With("request_id", id)}
}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext carried by ctx. Calls
// that bypassed the middleware (tests, internal callers) get a fresh one
// so logging still carries a request id.
func RequestContextFrom(ctx context.Context) RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(RequestContext); ok {
		return rc
	}
	return NewRequestContext("", nil)
}
