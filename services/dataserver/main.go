// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/driftline/keyserve/pkg/logging"
	"github.com/driftline/keyserve/services/dataserver/cache"
	"github.com/driftline/keyserve/services/dataserver/loader"
	"github.com/driftline/keyserve/services/dataserver/lookup"
	"github.com/driftline/keyserve/services/dataserver/middleware"
	"github.com/driftline/keyserve/services/dataserver/observability"
	"github.com/driftline/keyserve/services/dataserver/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// initTracer wires the OTLP gRPC exporter. Returns a nil cleanup when
// OTEL_EXPORTER_OTLP_ENDPOINT is unset so the server can run without a
// collector.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return nil, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("keyserve-dataserver")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("KEYSERVE_PORT")
	if port == "" {
		port = "12400"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("KEYSERVE_LOG_DIR"),
		Service: "dataserver",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	if cleanup != nil {
		defer cleanup(context.Background())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewServerMetrics(registry)

	kvCache := cache.NewKeyValueCache()

	dataDir := os.Getenv("KEYSERVE_DATA_DIR")
	if dataDir != "" {
		dataLoader := loader.NewLoader(dataDir, kvCache, logger.Slog())
		if err := dataLoader.LoadExisting(context.Background()); err != nil {
			log.Fatalf("failed to load data dir: %v", err)
		}
		if err := dataLoader.Watch(context.Background()); err != nil {
			log.Fatalf("failed to watch data dir: %v", err)
		}
		logger.Info("serving from data dir", "dir", dataDir)
	} else {
		logger.Warn("KEYSERVE_DATA_DIR not set, serving an empty cache")
	}

	localLookup := lookup.NewLocalLookup(kvCache, metrics)

	router := gin.Default()
	router.Use(otelgin.Middleware("keyserve-dataserver"))
	router.Use(middleware.RequestID(logger.Slog()))

	routes.SetupRoutes(router, localLookup, metrics, registry)

	logger.Info("starting the dataserver", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
