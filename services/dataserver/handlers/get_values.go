// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the dataserver's HTTP boundary: it splits
// composite key parameters, invokes the lookup layer, converts stored
// payloads to wire values and records serving metrics.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/driftline/keyserve/services/dataserver/datatypes"
	"github.com/driftline/keyserve/services/dataserver/lookup"
	"github.com/driftline/keyserve/services/dataserver/observability"
)

// keyDelimiter joins multiple logical keys packed into one query
// parameter value.
const keyDelimiter = ","

// valueResult is the wire form of one scalar lookup outcome. Value holds
// either the JSON-decoded payload or the raw string; Status reports
// per-key absence.
type valueResult struct {
	Value  any               `json:"value,omitempty"`
	Status *lookup.KeyStatus `json:"status,omitempty"`
}

// getValuesResponse groups results per request field, mirroring the
// request parameters.
type getValuesResponse struct {
	KVInternal            map[string]valueResult `json:"kvInternal,omitempty"`
	Keys                  map[string]valueResult `json:"keys,omitempty"`
	RenderUrls            map[string]valueResult `json:"renderUrls,omitempty"`
	AdComponentRenderUrls map[string]valueResult `json:"adComponentRenderUrls,omitempty"`
}

// GetValues answers GET /v1/getvalues. Each of the kvInternal, keys,
// renderUrls and adComponentRenderUrls parameters may be repeated, and
// each value may pack several keys joined by commas; the handler splits
// and deduplicates before invoking the lookup, so the core only ever
// sees key sets.
func GetValues(l lookup.Lookup, metrics *observability.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rc := datatypes.RequestContextFrom(ctx)

		var response getValuesResponse
		var err error
		if response.KVInternal, err = processKeys(ctx, c.QueryArray("kvInternal"), l, metrics); err != nil {
			rc.Logger.Error("getvalues lookup failed", "field", "kvInternal", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if response.Keys, err = processKeys(ctx, c.QueryArray("keys"), l, metrics); err != nil {
			rc.Logger.Error("getvalues lookup failed", "field", "keys", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if response.RenderUrls, err = processKeys(ctx, c.QueryArray("renderUrls"), l, metrics); err != nil {
			rc.Logger.Error("getvalues lookup failed", "field", "renderUrls", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if response.AdComponentRenderUrls, err = processKeys(ctx, c.QueryArray("adComponentRenderUrls"), l, metrics); err != nil {
			rc.Logger.Error("getvalues lookup failed", "field", "adComponentRenderUrls", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// processKeys resolves one request field: split, dedupe, one batched
// lookup, then wire conversion. The cache-hit counter fires when the
// batch found at least one key, the cache-miss counter when it found
// none.
func processKeys(ctx context.Context, raw []string, l lookup.Lookup,
	metrics *observability.ServerMetrics) (map[string]valueResult, error) {

	keys := SplitKeys(raw)
	if len(keys) == 0 {
		return nil, nil
	}
	response, err := l.GetKeyValues(ctx, keys)
	if err != nil {
		return nil, err
	}

	found := 0
	results := make(map[string]valueResult, len(response.KVPairs))
	for key, result := range response.KVPairs {
		if result.Status != nil {
			results[key] = valueResult{Status: result.Status}
			continue
		}
		found++
		results[key] = valueResult{Value: convertValue(*result.Value)}
	}
	metrics.RecordScalarBatch(found)
	return results, nil
}

// convertValue decodes a stored payload that is valid JSON into its
// structured form; anything else passes through as a plain string.
func convertValue(stored string) any {
	trimmed := strings.TrimSpace(stored)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return stored
}

// SplitKeys splits every raw parameter value on the key delimiter and
// returns the sorted set of distinct, non-empty keys.
func SplitKeys(raw []string) []string {
	distinct := map[string]struct{}{}
	for _, packed := range raw {
		for _, key := range strings.Split(packed, keyDelimiter) {
			if key != "" {
				distinct[key] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(distinct))
	for key := range distinct {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
