// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the dataserver
// lookup path.
//
// # Description
//
// Four instruments cover the serving events that matter for parity with
// the dashboards:
//   - cache_key_hit_total: a scalar batch read found at least one key.
//   - cache_key_miss_total: a scalar batch read found none of its keys.
//   - keyset_not_found_total: one keyset key resolved to an empty set.
//   - run_query_duration_seconds: latency of query fetch + evaluation.
//
// # Integration
//
// Metrics are exposed on the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "keyserve"

// Subsystem for lookup metrics
const lookupSubsystem = "lookup"

// ServerMetrics holds the Prometheus instruments for the lookup path.
//
// Construct one per process with NewServerMetrics and inject it into the
// request handlers and the local lookup. Tests construct their own
// instance against a private registry.
type ServerMetrics struct {
	// CacheKeyHit counts scalar batch reads that found >= 1 key.
	CacheKeyHit prometheus.Counter

	// CacheKeyMiss counts scalar batch reads that found 0 keys.
	CacheKeyMiss prometheus.Counter

	// KeysetNotFound counts keyset keys that resolved to an empty set,
	// one increment per such key.
	KeysetNotFound prometheus.Counter

	// RunQueryDuration measures the query fetch + evaluate phase.
	RunQueryDuration prometheus.Histogram
}

// NewServerMetrics creates and registers the lookup instruments on reg.
//
// # Inputs
//
//   - reg: Registry to register on; prometheus.DefaultRegisterer in main,
//     a fresh prometheus.NewRegistry() in tests.
//
// # Limitations
//
//   - Panics on duplicate registration, so call once per registry.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	factory := promauto.With(reg)
	return &ServerMetrics{
		CacheKeyHit: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lookupSubsystem,
			Name:      "cache_key_hit_total",
			Help:      "Scalar batch reads that found at least one requested key",
		}),
		CacheKeyMiss: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lookupSubsystem,
			Name:      "cache_key_miss_total",
			Help:      "Scalar batch reads that found none of the requested keys",
		}),
		KeysetNotFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: lookupSubsystem,
			Name:      "keyset_not_found_total",
			Help:      "Keyset keys that resolved to an empty value set",
		}),
		RunQueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: lookupSubsystem,
			Name:      "run_query_duration_seconds",
			Help:      "Latency of query snapshot fetch and evaluation",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
	}
}

// RecordScalarBatch records the hit-or-miss outcome of one scalar batch
// read: hit when the batch found at least one key, miss otherwise.
func (m *ServerMetrics) RecordScalarBatch(foundKeys int) {
	if foundKeys > 0 {
		m.CacheKeyHit.Inc()
	} else {
		m.CacheKeyMiss.Inc()
	}
}

// RecordKeysetNotFound records one keyset key resolving empty.
func (m *ServerMetrics) RecordKeysetNotFound() {
	m.KeysetNotFound.Inc()
}

// ObserveRunQueryDuration records one query execution latency in seconds.
func (m *ServerMetrics) ObserveRunQueryDuration(seconds float64) {
	m.RunQueryDuration.Observe(seconds)
}
