// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/keyserve/services/dataserver/datatypes"
)

func newRequestIDRouter(capture *datatypes.RequestContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(nil))
	router.GET("/ping", func(c *gin.Context) {
		*capture = datatypes.RequestContextFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequestID_EchoesCallerSuppliedID(t *testing.T) {
	var rc datatypes.RequestContext
	router := newRequestIDRouter(&rc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "caller-id-1")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "caller-id-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "caller-id-1", rc.ID)
	assert.NotNil(t, rc.Logger)
}

func TestRequestID_GeneratesIDWhenAbsent(t *testing.T) {
	var rc datatypes.RequestContext
	router := newRequestIDRouter(&rc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	echoed := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, echoed)
	assert.Equal(t, echoed, rc.ID)

	// Generated ids are uuids.
	_, err := uuid.Parse(echoed)
	assert.NoError(t, err)
}

func TestRequestID_FreshIDPerRequest(t *testing.T) {
	var rc datatypes.RequestContext
	router := newRequestIDRouter(&rc)

	ids := map[string]struct{}{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		ids[w.Header().Get(RequestIDHeader)] = struct{}{}
	}
	assert.Len(t, ids, 3)
}
