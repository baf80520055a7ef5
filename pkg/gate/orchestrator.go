// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gatewright/gatewright/pkg/action"
	"github.com/gatewright/gatewright/pkg/assertion"
	"github.com/gatewright/gatewright/pkg/datatypes"
	"github.com/gatewright/gatewright/pkg/preflight"
)

// streamDrainGrace bounds how long the runner waits for the consumer to
// drain after the backend is stopped. A backend blocked on a reader
// that ignores Stop must not wedge the run.
const streamDrainGrace = 250 * time.Millisecond

// Runner drives one gate through the lifecycle
//
//	INIT → [PREFLIGHT] → OBSERVING → ACTING → STOPPING → ASSERTING
//
// and classifies the outcome. A Runner is single-use: Run may be called
// once.
type Runner struct {
	spec     Spec
	logger   *slog.Logger
	checker  preflight.Checker
	executor *action.Executor
	buffer   *Buffer
	metrics  *Metrics

	mu  sync.Mutex
	ran bool
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithPreflightChecker overrides the preflight policy. The default is
// the heuristic checker.
func WithPreflightChecker(c preflight.Checker) RunnerOption {
	return func(r *Runner) { r.checker = c }
}

// WithExecutor overrides the action executor.
func WithExecutor(e *action.Executor) RunnerOption {
	return func(r *Runner) { r.executor = e }
}

// withBuffer is the test seam for exercising eviction with a small cap.
func withBuffer(b *Buffer) RunnerOption {
	return func(r *Runner) { r.buffer = b }
}

// NewRunner creates a single-use runner for the spec.
func NewRunner(spec Spec, opts ...RunnerOption) *Runner {
	r := &Runner{
		spec:    spec,
		logger:  slog.Default(),
		checker: preflight.NewHeuristic(),
		metrics: EngineMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.executor == nil {
		r.executor = action.NewExecutor(r.logger)
	}
	if r.buffer == nil {
		r.buffer = NewBuffer()
	}
	return r
}

// Run executes the gate and returns its classified result. The result
// is produced once and never mutated afterwards.
func (r *Runner) Run(ctx context.Context) *Result {
	started := time.Now()
	result := &Result{
		RunID: uuid.NewString(),
		Name:  r.spec.Name,
	}

	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return r.finish(result, started, StatusFailed, ErrAlreadyRun.Error())
	}
	r.ran = true
	r.mu.Unlock()

	tracer := otel.Tracer("gatewright/gate")
	ctx, span := tracer.Start(ctx, "gate.run")
	span.SetAttributes(
		attribute.String("gate.name", r.spec.Name),
		attribute.String("gate.run_id", result.RunID),
	)
	defer span.End()

	logger := r.logger.With(
		slog.String("gate", r.spec.Name),
		slog.String("run_id", result.RunID),
	)
	logger.Info("gate starting",
		slog.Int64("idle_ms", r.spec.Stop.IdleMs),
		slog.Int64("max_ms", r.spec.Stop.MaxMs),
	)

	// Stop is the sole cancellation signal for the backend. It is
	// idempotent and this deferred call guarantees it fires on every
	// exit path: preflight denial, start failure, action failure,
	// timeout, or normal completion.
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			if err := r.spec.Observe.Stop(); err != nil {
				logger.Warn("backend stop failed", slog.String("error", err.Error()))
			}
		})
	}
	defer stop()

	// PREFLIGHT.
	if r.spec.Preflight != nil {
		if err := r.runPreflight(ctx, logger); err != nil {
			span.SetAttributes(attribute.String("gate.phase", "preflight"))
			return r.finish(result, started, StatusFailed, err.Error())
		}
	}

	// OBSERVING. The max ceiling governs everything from here on.
	maxCtx, cancel := context.WithTimeout(ctx, r.spec.Stop.Max())
	defer cancel()

	stream, err := r.spec.Observe.Start(maxCtx)
	if err != nil {
		span.SetAttributes(attribute.String("gate.phase", "observe"))
		return r.finish(result, started, StatusFailed, err.Error())
	}

	var lastLog atomic.Int64
	lastLog.Store(time.Now().UnixNano())
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		for l := range stream {
			r.buffer.Append(l)
			lastLog.Store(time.Now().UnixNano())
			r.metrics.LogsObservedTotal.Inc()
		}
	}()

	// ACTING. Each action is validated before any side effect; the
	// first failure fails the gate with no assertion phase.
	if err := r.executor.ExecuteAll(maxCtx, r.spec.Act); err != nil {
		span.SetAttributes(attribute.String("gate.phase", "act"))
		stop()
		r.drain(streamDone)
		result.Logs = r.buffer.Snapshot()
		if maxCtx.Err() == context.DeadlineExceeded {
			return r.finish(result, started, StatusTimeout, r.timeoutError(started).Error())
		}
		return r.finish(result, started, StatusFailed, err.Error())
	}

	// STOPPING: race the rolling idle window against the max ceiling.
	// The window restarts whenever a new log lands; natural stream end
	// resolves the race on the idle branch.
	timedOut := r.awaitStop(maxCtx, &lastLog, streamDone)

	stop()
	r.drain(streamDone)
	result.Logs = r.buffer.Snapshot()

	if timedOut {
		span.SetAttributes(attribute.String("gate.phase", "stop"))
		return r.finish(result, started, StatusTimeout, r.timeoutError(started).Error())
	}

	// ASSERTING: every assertion runs against the same immutable
	// snapshot; no short-circuiting.
	if err := assertion.EvaluateAll(ctx, result.Logs, r.spec.Assert); err != nil {
		span.SetAttributes(attribute.String("gate.phase", "assert"))
		return r.finish(result, started, StatusFailed, err.Error())
	}
	return r.finish(result, started, StatusSuccess, "")
}

// runPreflight authorizes the gate's declared intent. Only ALLOW lets
// the run proceed.
func (r *Runner) runPreflight(ctx context.Context, logger *slog.Logger) error {
	res, err := r.checker.Check(ctx, *r.spec.Preflight)
	if err != nil {
		return fmt.Errorf("preflight check: %w", err)
	}
	r.metrics.PreflightDecisionsTotal.WithLabelValues(string(res.Decision)).Inc()
	logger.Info("preflight decision",
		slog.String("decision", string(res.Decision)),
		slog.String("justification", res.Justification),
	)
	switch res.Decision {
	case preflight.Allow:
		return nil
	case preflight.Deny:
		return fmt.Errorf("%w: %s", ErrPreflightDenied, res.Justification)
	case preflight.Ask:
		return fmt.Errorf("%w: %s", ErrPreflightUnresolved, strings.Join(res.Questions, "; "))
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrPreflightDenied, res.Decision)
	}
}

// awaitStop blocks until the idle window elapses, the stream ends
// naturally, or the max ceiling fires. It reports whether the max path
// was taken.
func (r *Runner) awaitStop(maxCtx context.Context, lastLog *atomic.Int64, streamDone <-chan struct{}) bool {
	idle := r.spec.Stop.Idle()
	for {
		sinceLast := time.Since(time.Unix(0, lastLog.Load()))
		remaining := idle - sinceLast
		if remaining <= 0 {
			return false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
			// Re-check: a log may have landed while we slept.
		case <-streamDone:
			timer.Stop()
			return false
		case <-maxCtx.Done():
			timer.Stop()
			return maxCtx.Err() == context.DeadlineExceeded
		}
	}
}

// drain waits briefly for the consumer to finish after Stop. Backends
// blocked on an unresponsive reader must not wedge the run.
func (r *Runner) drain(streamDone <-chan struct{}) {
	select {
	case <-streamDone:
	case <-time.After(streamDrainGrace):
	}
}

func (r *Runner) timeoutError(started time.Time) error {
	return &TimeoutError{Max: r.spec.Stop.Max(), Elapsed: time.Since(started)}
}

// finish seals the result, reduces evidence, and records metrics.
func (r *Runner) finish(result *Result, started time.Time, status Status, errMsg string) *Result {
	result.Status = status
	result.Error = errMsg
	result.DurationMs = time.Since(started).Milliseconds()
	if result.Logs == nil {
		result.Logs = []datatypes.Log{}
	}
	result.Evidence = datatypes.ReduceEvidence(result.Logs)

	r.metrics.RunsTotal.WithLabelValues(string(status)).Inc()
	r.metrics.RunDurationSeconds.WithLabelValues(string(status)).Observe(time.Since(started).Seconds())
	if r.buffer != nil && r.buffer.Evicted() > 0 {
		r.metrics.LogsEvictedTotal.Add(float64(r.buffer.Evicted()))
	}

	r.logger.Info("gate finished",
		slog.String("gate", r.spec.Name),
		slog.String("status", string(status)),
		slog.Int64("duration_ms", result.DurationMs),
		slog.Int("logs", len(result.Logs)),
	)
	return result
}
