// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gate drives one observe/act/assert/stop verification run.
//
// # Description
//
// A gate declares what evidence must be produced (observe), what
// actions drive the system (act), what must hold afterwards (assert),
// and when to stop (an idle window raced against an absolute ceiling).
// Runner executes that lifecycle as a state machine and classifies the
// run into a Result with the deduplicated evidence attached.
//
// # Thread Safety
//
// Spec and Result are value types; a Result is produced once and never
// mutated. Each Runner owns an independent backend, buffer, and timers,
// so concurrent gates are fully isolated.
package gate

import (
	"time"

	"github.com/gatewright/gatewright/pkg/action"
	"github.com/gatewright/gatewright/pkg/assertion"
	"github.com/gatewright/gatewright/pkg/datatypes"
	"github.com/gatewright/gatewright/pkg/observe"
	"github.com/gatewright/gatewright/pkg/preflight"
)

// Status classifies a finished gate run.
type Status string

const (
	// StatusSuccess means the run stopped on the idle window (or
	// natural stream end) and every assertion held.
	StatusSuccess Status = "success"

	// StatusFailed means a validation failure, preflight denial,
	// observability error, action failure, or assertion failure.
	StatusFailed Status = "failed"

	// StatusTimeout is reserved for the max-ceiling path only.
	StatusTimeout Status = "timeout"
)

// StopPolicy is the idle/max timer pair.
//
// IdleMs is a rolling inactivity window that resets on every observed
// log; MaxMs is an absolute ceiling from gate start. Whichever elapses
// first stops the run; only the max path classifies as timeout.
type StopPolicy struct {
	IdleMs int64
	MaxMs  int64
}

// Idle returns the rolling window as a duration.
func (p StopPolicy) Idle() time.Duration { return time.Duration(p.IdleMs) * time.Millisecond }

// Max returns the ceiling as a duration.
func (p StopPolicy) Max() time.Duration { return time.Duration(p.MaxMs) * time.Millisecond }

// Spec is the immutable declaration of one gate.
type Spec struct {
	// Name labels the gate in logs and reports.
	Name string

	// Preflight, when set, is authorized before any action runs.
	Preflight *preflight.Spec

	// Observe produces the run's log stream. Required.
	Observe observe.Backend

	// Act is the ordered action list.
	Act []action.Action

	// Assert is evaluated over the final log snapshot.
	Assert []assertion.Assertion

	// Stop is the idle/max timer pair. Required.
	Stop StopPolicy
}

// Result is the classified outcome of one gate run. Produced once,
// never mutated.
type Result struct {
	RunID      string             `json:"runId"`
	Name       string             `json:"name"`
	Status     Status             `json:"status"`
	DurationMs int64              `json:"durationMs"`
	Logs       []datatypes.Log    `json:"logs"`
	Evidence   datatypes.Evidence `json:"evidence"`
	Error      string             `json:"error,omitempty"`
}
