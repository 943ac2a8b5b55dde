// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftline/keyserve/services/dataserver/datatypes"
	"github.com/driftline/keyserve/services/dataserver/lookup"
)

// runQueryRequest is the POST /v1/query body. An empty query is legal
// and succeeds with an empty element set, so no binding constraint on
// the field.
type runQueryRequest struct {
	Query string `json:"query"`
}

// RunQuery answers POST /v1/query. Malformed bodies and queries that
// fail to parse map to 400; evaluation failures map to 500.
func RunQuery(l lookup.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rc := datatypes.RequestContextFrom(ctx)

		var request runQueryRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		response, err := l.RunQuery(ctx, request.Query)
		if err != nil {
			if errors.Is(err, lookup.ErrInvalidQuery) {
				rc.Logger.Warn("rejected malformed query", "error", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rc.Logger.Error("query evaluation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query evaluation failed"})
			return
		}
		c.JSON(http.StatusOK, response)
	}
}
