// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/keyserve/services/dataserver/lookup"
)

func newKeySetsRouter(l lookup.Lookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/keysets", GetKeySets(l))
	return router
}

func TestGetKeySets_FoundAndMissing(t *testing.T) {
	writer, l, _ := newServingFixture()
	writer.UpdateKeyValueSet("campaign_a", []string{"ad2", "ad1"})
	router := newKeySetsRouter(l)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keysets?keys=campaign_a,campaign_b", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response lookup.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.KVPairs, 2)
	assert.Equal(t, []string{"ad1", "ad2"}, response.KVPairs["campaign_a"].ValueSet)
	require.NotNil(t, response.KVPairs["campaign_b"].Status)
	assert.Equal(t, lookup.StatusNotFound, response.KVPairs["campaign_b"].Status.Code)
}

func TestGetKeySets_PackedKeysSplitAndDeduped(t *testing.T) {
	writer, l, _ := newServingFixture()
	writer.UpdateKeyValueSet("a", []string{"x"})
	writer.UpdateKeyValueSet("b", []string{"y"})
	router := newKeySetsRouter(l)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keysets?keys=a,b&keys=a", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response lookup.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.KVPairs, 2)
}

func TestGetKeySets_EmptyRequest(t *testing.T) {
	_, l, _ := newServingFixture()
	router := newKeySetsRouter(l)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keysets", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response lookup.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.KVPairs)
}

func TestGetKeySets_LookupFailureReturns500(t *testing.T) {
	router := newKeySetsRouter(&errorLookup{err: assert.AnError})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keysets?keys=a", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
