// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus metrics.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are
// thread-safe).
type Metrics struct {
	// RunsTotal counts finished gate runs by status.
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall-clock run duration by status.
	RunDurationSeconds *prometheus.HistogramVec

	// LogsObservedTotal counts logs consumed into run buffers.
	LogsObservedTotal prometheus.Counter

	// LogsEvictedTotal counts logs dropped by the buffer cap.
	LogsEvictedTotal prometheus.Counter

	// PreflightDecisionsTotal counts preflight verdicts by decision.
	PreflightDecisionsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// EngineMetrics returns the process-wide engine metrics, registering
// them with the default registerer on first use.
func EngineMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gatewright",
					Subsystem: "gate",
					Name:      "runs_total",
					Help:      "Finished gate runs by status",
				},
				[]string{"status"},
			),
			RunDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "gatewright",
					Subsystem: "gate",
					Name:      "run_duration_seconds",
					Help:      "Wall-clock gate run duration by status",
					Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
				},
				[]string{"status"},
			),
			LogsObservedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "gatewright",
					Subsystem: "gate",
					Name:      "logs_observed_total",
					Help:      "Logs consumed into run buffers",
				},
			),
			LogsEvictedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "gatewright",
					Subsystem: "gate",
					Name:      "logs_evicted_total",
					Help:      "Logs dropped by the buffer cap",
				},
			),
			PreflightDecisionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gatewright",
					Subsystem: "preflight",
					Name:      "decisions_total",
					Help:      "Preflight verdicts by decision",
				},
				[]string{"decision"},
			),
		}
	})
	return metrics
}
