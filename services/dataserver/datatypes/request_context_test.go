// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestContext_KeepsCallerID(t *testing.T) {
	rc := NewRequestContext("caller-id", nil)
	assert.Equal(t, "caller-id", rc.ID)
	require.NotNil(t, rc.Logger)
}

func TestNewRequestContext_GeneratesUUIDWhenEmpty(t *testing.T) {
	rc := NewRequestContext("", nil)
	_, err := uuid.Parse(rc.ID)
	assert.NoError(t, err)
}

func TestNewRequestContext_LoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	rc := NewRequestContext("rid-42", base)
	rc.Logger.Info("handled")

	assert.True(t, strings.Contains(buf.String(), "request_id=rid-42"),
		"log output missing request id: %s", buf.String())
}

func TestRequestContextRoundTrip(t *testing.T) {
	rc := NewRequestContext("rid-1", nil)
	ctx := WithRequestContext(context.Background(), rc)

	got := RequestContextFrom(ctx)
	assert.Equal(t, "rid-1", got.ID)
}

func TestRequestContextFrom_FallsBackToFreshContext(t *testing.T) {
	got := RequestContextFrom(context.Background())
	assert.NotEmpty(t, got.ID)
	assert.NotNil(t, got.Logger)
}
