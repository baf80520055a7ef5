// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"sync"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// MaxBufferedLogs caps the per-run log buffer. Beyond the cap the
// oldest entries are evicted first; this is a documented approximation
// for runaway sources, not a defect.
const MaxBufferedLogs = 50_000

// Buffer is a capped FIFO log buffer.
//
// One consumer goroutine appends; snapshots may be taken from any
// goroutine. The buffer never grows past MaxBufferedLogs.
type Buffer struct {
	mu      sync.Mutex
	logs    []datatypes.Log
	cap     int
	evicted uint64
}

// NewBuffer creates a buffer with the standard cap.
func NewBuffer() *Buffer {
	return &Buffer{cap: MaxBufferedLogs}
}

// newBufferSize is used by tests to exercise eviction cheaply.
func newBufferSize(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = MaxBufferedLogs
	}
	return &Buffer{cap: capacity}
}

// Append adds one log, evicting the oldest entry once the cap is hit.
func (b *Buffer) Append(l datatypes.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.logs) >= b.cap {
		// Shift rather than reslice so the backing array does not pin
		// evicted entries.
		copy(b.logs, b.logs[1:])
		b.logs = b.logs[:len(b.logs)-1]
		b.evicted++
	}
	b.logs = append(b.logs, l)
}

// Len returns the current number of buffered logs.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logs)
}

// Evicted returns how many logs were dropped to honor the cap.
func (b *Buffer) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// Snapshot returns an immutable copy of the buffered logs.
func (b *Buffer) Snapshot() []datatypes.Log {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]datatypes.Log, len(b.logs))
	copy(out, b.logs)
	return out
}
