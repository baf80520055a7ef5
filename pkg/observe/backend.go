// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observe provides the pluggable log-stream sources a gate run
// consumes.
//
// # Description
//
// A Backend turns some external signal (an HTTP endpoint, an in-memory
// queue, an NDJSON agent feed, a CLI process stream) into a channel of
// datatypes.Log. Backends follow a strict lifecycle: created fresh per
// run, started at most once, stopped exactly once on every exit path.
// Stop is always idempotent and safe to call without a prior Start.
//
// Resource wraps a Backend into a one-shot acquire/use/release query
// cycle independent of any gate run.
//
// # Thread Safety
//
// A Backend instance is owned by a single run. Stop may be called from
// any goroutine, concurrently with the consumer.
package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// Sentinel errors for the observe package.
var (
	// ErrAlreadyStarted indicates Start was called twice on one backend.
	ErrAlreadyStarted = errors.New("observe backend already started")

	// ErrStopped indicates the backend was stopped before the operation.
	ErrStopped = errors.New("observe backend stopped")

	errEmptyURL = errors.New("url must not be empty")
)

// ObservabilityError wraps a backend start or stream failure. The
// orchestrator surfaces it verbatim in the gate result.
type ObservabilityError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *ObservabilityError) Error() string {
	return fmt.Sprintf("observe backend %s: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ObservabilityError) Unwrap() error { return e.Err }

// Backend is a pluggable log-stream source.
//
// Start opens the source and returns the stream. The channel is closed
// when the source ends naturally or the backend is stopped. Start
// returns an *ObservabilityError on failure and ErrAlreadyStarted if
// invoked more than once on the same instance.
//
// Stop releases the source. It must be idempotent and must be safe to
// call even if Start was never invoked or failed.
type Backend interface {
	Start(ctx context.Context) (<-chan datatypes.Log, error)
	Stop() error
}
