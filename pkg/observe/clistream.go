// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observe

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// CLIStreamBackend attaches to the output of an externally running
// process and emits one log per line.
//
// The process itself is an external collaborator: the caller spawns it
// and hands this backend its stdout/stderr reader. Lines containing
// "error" (case-insensitive) are classified as errors, everything else
// as info. The stream ends at EOF or Stop.
type CLIStreamBackend struct {
	r     io.Reader
	stage string

	mu      sync.Mutex
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCLIStreamBackend creates a line-stream backend over the reader.
// Stage labels the emitted logs; it defaults to "cli".
func NewCLIStreamBackend(r io.Reader, stage string) *CLIStreamBackend {
	if stage == "" {
		stage = "cli"
	}
	return &CLIStreamBackend{r: r, stage: stage, stopCh: make(chan struct{})}
}

// Start begins consuming lines. It may be called at most once.
func (b *CLIStreamBackend) Start(ctx context.Context) (<-chan datatypes.Log, error) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil, &ObservabilityError{Backend: "cli-stream", Err: ErrAlreadyStarted}
	}
	b.started = true
	b.mu.Unlock()

	out := make(chan datatypes.Log, DefaultMemoryCapacity)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(b.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			l := datatypes.Log{
				Timestamp: time.Now(),
				Stage:     b.stage,
				Action:    "line",
				Status:    datatypes.StatusInfo,
				Data:      map[string]any{"line": line},
			}
			if strings.Contains(strings.ToLower(line), "error") {
				l.Status = datatypes.StatusError
				l.Error = &datatypes.LogError{Tag: "cli_error", Message: line}
			}
			select {
			case out <- l:
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop ends the stream. Idempotent; safe without a prior Start.
func (b *CLIStreamBackend) Stop() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	return nil
}
