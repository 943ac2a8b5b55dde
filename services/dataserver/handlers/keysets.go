// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftline/keyserve/services/dataserver/datatypes"
	"github.com/driftline/keyserve/services/dataserver/lookup"
)

// GetKeySets answers GET /v1/keysets. The keys parameter follows the
// same pack-split-dedupe convention as /v1/getvalues; each distinct key
// reports its value set or a NotFound status.
func GetKeySets(l lookup.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rc := datatypes.RequestContextFrom(ctx)

		keys := SplitKeys(c.QueryArray("keys"))
		response, err := l.GetKeyValueSet(ctx, keys)
		if err != nil {
			rc.Logger.Error("keyset lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, response)
	}
}
