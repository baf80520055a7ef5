// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// captureExporter records exported entries for inspection.
type captureExporter struct {
	entries []Entry
	flushed bool
	closed  bool
}

func (e *captureExporter) Export(_ context.Context, entry Entry) error {
	e.entries = append(e.entries, entry)
	return nil
}

func (e *captureExporter) Flush(context.Context) error { e.flushed = true; return nil }
func (e *captureExporter) Close() error                { e.closed = true; return nil }

func TestLevel_String(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})
	logger.Info("gate starting", "gate", "checkout")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}

	name := "testsvc_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("expected log file %s: %v", name, err)
	}

	var record map[string]any
	line := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("file line is not JSON: %v\n%s", err, line)
	}
	if record["msg"] != "gate starting" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["service"] != "testsvc" {
		t.Errorf("service = %v, want the configured service attribute", record["service"])
	}
	if record["gate"] != "checkout" {
		t.Errorf("gate = %v", record["gate"])
	}
}

func TestLogger_LevelFiltersFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelWarn, LogDir: dir, Service: "filter", Quiet: true})
	logger.Debug("too quiet")
	logger.Info("still too quiet")
	logger.Error("loud enough")
	logger.Close() //nolint:errcheck

	name := "filter_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if strings.Contains(out, "too quiet") {
		t.Errorf("below-level entries reached the file:\n%s", out)
	}
	if !strings.Contains(out, "loud enough") {
		t.Errorf("error entry missing from the file:\n%s", out)
	}
}

func TestLogger_Exporter(t *testing.T) {
	exp := &captureExporter{}
	logger := New(Config{Level: LevelInfo, Service: "exp", Quiet: true, Exporter: exp})

	logger.Debug("filtered out")
	logger.Info("run finished", "status", "success", "logs", 3)

	if len(exp.entries) != 1 {
		t.Fatalf("exported %d entries, want 1 (below-level entries skipped)", len(exp.entries))
	}
	entry := exp.entries[0]
	if entry.Message != "run finished" || entry.Level != LevelInfo || entry.Service != "exp" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Attrs["status"] != "success" {
		t.Errorf("Attrs = %v, want key/value args captured", entry.Attrs)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if !exp.flushed || !exp.closed {
		t.Error("Close must flush and close the exporter")
	}

	// Close is idempotent; the exporter is released.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestLogger_SlogAndWith(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close() //nolint:errcheck

	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
	child := logger.With("component", "observer")
	if child == nil {
		t.Fatal("With() returned nil")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in this environment")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q, want unchanged", got)
	}
}
