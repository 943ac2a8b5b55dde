// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/keyserve/services/dataserver/lookup"
)

func newRunQueryRouter(l lookup.Lookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/query", RunQuery(l))
	return router
}

func postQuery(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/query", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRunQuery_EvaluatesExpression(t *testing.T) {
	writer, l, _ := newServingFixture()
	writer.UpdateKeyValueSet("a", []string{"x", "y"})
	writer.UpdateKeyValueSet("b", []string{"y", "z"})
	router := newRunQueryRouter(l)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"union", "a UNION b", []string{"x", "y", "z"}},
		{"intersection", "a INTERSECTION b", []string{"y"}},
		{"symbols and parens", "(a | b) & b", []string{"y", "z"}},
		{"empty query", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"query": tt.query})
			w := postQuery(router, string(body))
			require.Equal(t, http.StatusOK, w.Code)

			var response lookup.QueryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.want, response.Elements)
		})
	}
}

func TestRunQuery_MalformedBodyReturns400(t *testing.T) {
	_, l, _ := newServingFixture()
	router := newRunQueryRouter(l)

	w := postQuery(router, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "invalid request body")
}

func TestRunQuery_ParseFailureReturns400WithPosition(t *testing.T) {
	_, l, _ := newServingFixture()
	router := newRunQueryRouter(l)

	w := postQuery(router, `{"query":"a UNION"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "invalid query")
}

func TestRunQuery_EvaluationFailureReturns500(t *testing.T) {
	router := newRunQueryRouter(&errorLookup{err: assert.AnError})

	w := postQuery(router, `{"query":"a UNION b"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
