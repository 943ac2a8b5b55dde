// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftline/keyserve/services/dataserver/handlers"
	"github.com/driftline/keyserve/services/dataserver/lookup"
	"github.com/driftline/keyserve/services/dataserver/observability"
)

// SetupRoutes wires the dataserver's HTTP surface onto router. The
// gatherer backs the /metrics endpoint and is normally the same registry
// the ServerMetrics were registered on.
func SetupRoutes(router *gin.Engine, l lookup.Lookup,
	metrics *observability.ServerMetrics, gatherer prometheus.Gatherer) {

	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/getvalues", handlers.GetValues(l, metrics))
		v1.GET("/keysets", handlers.GetKeySets(l))
		v1.POST("/query", handlers.RunQuery(l))
	}
}
