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
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// AgentEventType discriminates the NDJSON agent protocol union.
type AgentEventType string

// Recognized agent event types. Anything else is skipped.
const (
	AgentEventText    AgentEventType = "text"
	AgentEventTool    AgentEventType = "tool"
	AgentEventCommand AgentEventType = "command"
	AgentEventCommit  AgentEventType = "commit"
	AgentEventSpawn   AgentEventType = "spawn"
	AgentEventWorkers AgentEventType = "workers"
	AgentEventStatus  AgentEventType = "status"
	AgentEventHandoff AgentEventType = "handoff"
	AgentEventDone    AgentEventType = "done"
)

// AgentEvent is one line of the NDJSON agent protocol.
//
// An external agent container emits one JSON object per line. Status
// describes the event itself (start/done/error); State describes the
// agent's run state (idle/thinking/running/done/error).
type AgentEvent struct {
	Type      AgentEventType `json:"type"`
	Agent     string         `json:"agent"`
	RequestID string         `json:"requestId,omitempty"`
	Status    string         `json:"status,omitempty"`
	State     string         `json:"state,omitempty"`
	Text      string         `json:"text,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Command   string         `json:"command,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

var agentEventTypes = map[AgentEventType]struct{}{
	AgentEventText: {}, AgentEventTool: {}, AgentEventCommand: {},
	AgentEventCommit: {}, AgentEventSpawn: {}, AgentEventWorkers: {},
	AgentEventStatus: {}, AgentEventHandoff: {}, AgentEventDone: {},
}

// MapAgentEvent converts one valid agent event into exactly one log.
//
// The mapping is total over recognized events: stage is the agent name,
// action is the event type, and status follows a fixed table. Event
// status wins over agent state when both are present.
func MapAgentEvent(ev AgentEvent) datatypes.Log {
	l := datatypes.Log{
		RequestID: ev.RequestID,
		Timestamp: time.Now(),
		Stage:     ev.Agent,
		Action:    string(ev.Type),
		Status:    agentLogStatus(ev),
	}
	data := map[string]any{}
	if ev.Text != "" {
		data["text"] = ev.Text
	}
	if ev.Tool != "" {
		data["tool"] = ev.Tool
	}
	if ev.Command != "" {
		data["command"] = ev.Command
	}
	for k, v := range ev.Detail {
		data[k] = v
	}
	if len(data) > 0 {
		l.Data = data
	}
	if l.Status == datatypes.StatusError {
		l.Error = &datatypes.LogError{Tag: "agent_error", Message: ev.Text}
	}
	return l
}

func agentLogStatus(ev AgentEvent) datatypes.LogStatus {
	switch ev.Status {
	case "start":
		return datatypes.StatusStart
	case "done":
		return datatypes.StatusSuccess
	case "error":
		return datatypes.StatusError
	}
	switch ev.State {
	case "idle":
		return datatypes.StatusInfo
	case "thinking", "running":
		return datatypes.StatusStart
	case "done":
		return datatypes.StatusSuccess
	case "error":
		return datatypes.StatusError
	}
	return datatypes.StatusInfo
}

// AgentBackend bridges an NDJSON agent feed into a log stream.
//
// # Description
//
// Each line of the reader is parsed as one AgentEvent. Unparseable or
// unrecognized lines are skipped silently; the feed degrades, it never
// crashes. The stream ends when the reader reaches EOF or the backend
// is stopped.
type AgentBackend struct {
	r      io.Reader
	logger *slog.Logger

	mu      sync.Mutex
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewAgentBackend creates an NDJSON bridge over the reader.
func NewAgentBackend(r io.Reader, logger *slog.Logger) *AgentBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentBackend{r: r, logger: logger, stopCh: make(chan struct{})}
}

// Start begins scanning the feed. It may be called at most once.
func (b *AgentBackend) Start(ctx context.Context) (<-chan datatypes.Log, error) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil, &ObservabilityError{Backend: "agent", Err: ErrAlreadyStarted}
	}
	b.started = true
	b.mu.Unlock()

	out := make(chan datatypes.Log, DefaultMemoryCapacity)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(b.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var ev AgentEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				b.logger.Debug("skipping unparseable agent line", slog.String("error", err.Error()))
				continue
			}
			if _, ok := agentEventTypes[ev.Type]; !ok {
				b.logger.Debug("skipping unrecognized agent event", slog.String("type", string(ev.Type)))
				continue
			}
			select {
			case out <- MapAgentEvent(ev):
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop ends the scan. Idempotent; safe without a prior Start.
func (b *AgentBackend) Stop() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	return nil
}
