// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the shared Log and Evidence model used by
// every layer of the verification engine.
//
// # Description
//
// A Log is one observed runtime event produced by an observe backend.
// Evidence is the deduplicated reduction of a run's logs that a
// GateResult carries alongside the raw buffer. The package has no
// dependencies on the engine itself so backends, evaluators, and
// reporters can all share it.
//
// # Thread Safety
//
// All types are plain value types; copies are independent.
package datatypes

import (
	"time"
)

// LogStatus classifies a single observed event.
type LogStatus string

const (
	// StatusStart marks the beginning of an operation.
	StatusStart LogStatus = "start"

	// StatusSuccess marks an operation that completed normally.
	StatusSuccess LogStatus = "success"

	// StatusError marks a failed operation.
	StatusError LogStatus = "error"

	// StatusInfo marks a neutral observation.
	StatusInfo LogStatus = "info"
)

// LogError carries structured failure detail attached to a Log.
type LogError struct {
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Log is one observed runtime event.
//
// The record is open: backends may attach arbitrary key/value pairs in
// Data. RequestID groups logs belonging to one logical request and may
// be empty for events that have no request affiliation.
type Log struct {
	RequestID  string         `json:"requestId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Stage      string         `json:"stage"`
	Action     string         `json:"action"`
	Status     LogStatus      `json:"status"`
	Error      *LogError      `json:"error,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
}

// LogFilter is a conjunctive query predicate over logs.
//
// Zero-value fields match everything; set fields must all match.
type LogFilter struct {
	RequestID string
	Stage     string
	Action    string
	Status    LogStatus
	Since     time.Time
	Until     time.Time
}

// Matches reports whether the log satisfies every set field of the filter.
func (f LogFilter) Matches(l Log) bool {
	if f.RequestID != "" && l.RequestID != f.RequestID {
		return false
	}
	if f.Stage != "" && l.Stage != f.Stage {
		return false
	}
	if f.Action != "" && l.Action != f.Action {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && l.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && l.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// FilterLogs returns the subset of logs matching the filter, preserving
// order.
func FilterLogs(logs []Log, f LogFilter) []Log {
	out := make([]Log, 0, len(logs))
	for _, l := range logs {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}
