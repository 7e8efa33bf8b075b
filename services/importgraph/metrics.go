// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package importgraph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "importgraph.service"

// Metrics for service operations. Instruments are created lazily so the
// meter provider installed by telemetry.Init is picked up.
var (
	queryLatency metric.Float64Histogram
	queryTotal   metric.Int64Counter
	queryResults metric.Int64Histogram
	graphsActive metric.Int64UpDownCounter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		var err error

		queryLatency, err = meter.Float64Histogram(
			"importgraph_operation_duration_seconds",
			metric.WithDescription("Duration of import graph operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryTotal, err = meter.Int64Counter(
			"importgraph_operation_total",
			metric.WithDescription("Total number of import graph operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryResults, err = meter.Int64Histogram(
			"importgraph_operation_results",
			metric.WithDescription("Number of modules or chains returned per query"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphsActive, err = meter.Int64UpDownCounter(
			"importgraph_graphs_active",
			metric.WithDescription("Number of graphs held by the service"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordOperationMetrics records one service operation.
func recordOperationMetrics(ctx context.Context, op string, duration time.Duration, resultCount int, err error) {
	if initMetrics() != nil {
		return
	}

	opAttr := attribute.String("operation", op)
	queryLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(opAttr))
	queryTotal.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.Bool("success", err == nil)))
	if err == nil {
		queryResults.Record(ctx, int64(resultCount), metric.WithAttributes(opAttr))
	}
}

// recordGraphsDelta adjusts the active graph gauge.
func recordGraphsDelta(ctx context.Context, delta int) {
	if delta == 0 || initMetrics() != nil {
		return
	}
	graphsActive.Add(ctx, int64(delta))
}

// startOperationSpan creates a span for a service operation.
func startOperationSpan(ctx context.Context, op, graphID string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "ImportGraph."+op,
		trace.WithAttributes(
			attribute.String("importgraph.operation", op),
			attribute.String("importgraph.graph_id", graphID),
		),
	)
}
