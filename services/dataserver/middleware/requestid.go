// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides the gin middleware for the dataserver.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/driftline/keyserve/services/dataserver/datatypes"
)

// RequestIDHeader is the header carrying the caller-supplied request id.
const RequestIDHeader = "X-Request-ID"

// RequestID builds the per-call RequestContext from the incoming
// X-Request-ID header (generating an id when absent), stores it on the
// request's context for handlers and the lookup path, and echoes the id
// back on the response.
func RequestID(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := datatypes.NewRequestContext(c.GetHeader(RequestIDHeader), base)
		c.Request = c.Request.WithContext(
			datatypes.WithRequestContext(c.Request.Context(), rc))
		c.Header(RequestIDHeader, rc.ID)
		c.Next()
	}
}
