// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observe

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// DefaultMemoryCapacity is the channel capacity of a MemoryBackend.
const DefaultMemoryCapacity = 1024

// MemoryBackend is an in-process FIFO log queue.
//
// # Description
//
// Producers publish logs with Publish; the stream ends when Close is
// called (the explicit end sentinel) or the backend is stopped. It is
// the workhorse of the engine's tests and the underlying transport of
// the NDJSON agent bridge.
//
// # Thread Safety
//
// Publish, Close, and Stop are safe for concurrent use.
type MemoryBackend struct {
	id string

	mu      sync.Mutex
	ch      chan datatypes.Log
	started bool
	closed  bool

	stopOnce sync.Once
}

// NewMemoryBackend creates an in-memory queue backend with the default
// capacity.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendSize(DefaultMemoryCapacity)
}

// NewMemoryBackendSize creates an in-memory queue backend with an
// explicit channel capacity.
func NewMemoryBackendSize(capacity int) *MemoryBackend {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryBackend{
		id: uuid.NewString(),
		ch: make(chan datatypes.Log, capacity),
	}
}

// ID returns the unique identifier of this backend instance.
func (b *MemoryBackend) ID() string { return b.id }

// Start returns the queue's stream. It may be called at most once.
func (b *MemoryBackend) Start(ctx context.Context) (<-chan datatypes.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil, &ObservabilityError{Backend: "memory", Err: ErrAlreadyStarted}
	}
	b.started = true
	return b.ch, nil
}

// Publish enqueues one log. It returns ErrStopped once the queue has
// been closed or stopped; a full queue drops the log rather than block
// the producer.
func (b *MemoryBackend) Publish(l datatypes.Log) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrStopped
	}
	select {
	case b.ch <- l:
	default:
		// Queue full: drop. The gate buffer applies its own cap anyway.
	}
	return nil
}

// Close marks the natural end of the stream. Safe to call repeatedly.
func (b *MemoryBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// Stop releases the queue. Idempotent; safe without a prior Start.
func (b *MemoryBackend) Stop() error {
	b.stopOnce.Do(b.Close)
	return nil
}
