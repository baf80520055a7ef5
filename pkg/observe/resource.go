// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// ErrResourceUsed indicates Query was called twice on one Resource.
var ErrResourceUsed = errors.New("observe resource already used")

// DefaultQueryTimeout bounds a Resource query when none is configured.
const DefaultQueryTimeout = 10 * time.Second

// Resource wraps a Backend into a one-shot acquire/use/release query.
//
// # Description
//
// Query opens the backend, buffers logs matching the filter until the
// stream ends naturally or the query timeout elapses, and releases the
// backend on every path, including start failure. A Resource is
// independent of any gate run and is consumed by a single Query.
type Resource struct {
	backend Backend
	timeout time.Duration

	mu   sync.Mutex
	used bool
}

// NewResource wraps the backend with the given query timeout.
// A non-positive timeout falls back to DefaultQueryTimeout.
func NewResource(b Backend, timeout time.Duration) *Resource {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Resource{backend: b, timeout: timeout}
}

// Query runs the acquire/use/release cycle and returns the matching
// logs. Reaching the query timeout is not an error: the logs buffered
// so far are returned.
func (r *Resource) Query(ctx context.Context, filter datatypes.LogFilter) ([]datatypes.Log, error) {
	r.mu.Lock()
	if r.used {
		r.mu.Unlock()
		return nil, ErrResourceUsed
	}
	r.used = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Release is guaranteed whether start fails, the stream ends, or
	// the timeout fires.
	defer r.backend.Stop() //nolint:errcheck

	stream, err := r.backend.Start(ctx)
	if err != nil {
		return nil, err
	}

	var logs []datatypes.Log
	for {
		select {
		case l, ok := <-stream:
			if !ok {
				return logs, nil
			}
			if filter.Matches(l) {
				logs = append(logs, l)
			}
		case <-ctx.Done():
			return logs, nil
		}
	}
}
