// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Sentinel errors for the executor.
var (
	// ErrNoBrowserDriver indicates a browser action ran without a driver.
	ErrNoBrowserDriver = errors.New("no browser driver configured")

	// ErrNoDeployer indicates a deploy action ran without a deployer.
	ErrNoDeployer = errors.New("no deployer configured")
)

// DefaultMaxOutput caps captured process output at 256 KiB.
const DefaultMaxOutput = 256 * 1024

// BrowserDriver abstracts the external browser automation collaborator.
// Execution is opaque to the engine; only success or failure matters.
type BrowserDriver interface {
	Open(ctx context.Context, url string) error
}

// Deployer abstracts the external deployment collaborator.
type Deployer interface {
	Deploy(ctx context.Context, name, target string) error
}

// ExecError reports a process that exited non-zero, with its captured
// output attached for the gate result.
type ExecError struct {
	Command  string
	ExitCode int
	Output   string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %q exited with code %d", e.Command, e.ExitCode)
}

// Executor runs validated actions sequentially.
//
// # Description
//
// Every action is validated before any side effect; the first
// validation or execution failure is returned immediately. Process
// execution captures bounded stdout/stderr. Browser and deploy actions
// are delegated to pluggable collaborators; without one configured they
// fail rather than silently succeed.
//
// # Thread Safety
//
// An Executor is immutable after construction and safe for concurrent
// use; each Execute call is independent.
type Executor struct {
	logger    *slog.Logger
	workDir   string
	maxOutput int
	browser   BrowserDriver
	deployer  Deployer
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithWorkDir sets the working directory for exec actions.
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) { e.workDir = dir }
}

// WithMaxOutput overrides the captured-output cap.
func WithMaxOutput(n int) ExecutorOption {
	return func(e *Executor) { e.maxOutput = n }
}

// WithBrowserDriver plugs in the browser collaborator.
func WithBrowserDriver(d BrowserDriver) ExecutorOption {
	return func(e *Executor) { e.browser = d }
}

// WithDeployer plugs in the deployment collaborator.
func WithDeployer(d Deployer) ExecutorOption {
	return func(e *Executor) { e.deployer = d }
}

// NewExecutor creates an executor with the given options.
func NewExecutor(logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{logger: logger, maxOutput: DefaultMaxOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates and runs one action.
func (e *Executor) Execute(ctx context.Context, a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	started := time.Now()
	e.logger.Debug("executing action", slog.String("action", Describe(a)))

	var err error
	switch v := a.(type) {
	case Wait:
		err = e.wait(ctx, v)
	case Exec:
		err = e.exec(ctx, v)
	case Browser:
		err = e.browse(ctx, v)
	case Deploy:
		err = e.deploy(ctx, v)
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind())
	}

	if err != nil {
		e.logger.Warn("action failed",
			slog.String("action", Describe(a)),
			slog.Duration("duration", time.Since(started)),
			slog.String("error", err.Error()),
		)
		return err
	}
	e.logger.Info("action completed",
		slog.String("action", Describe(a)),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

// ExecuteAll runs actions in declared order, stopping at the first
// failure.
func (e *Executor) ExecuteAll(ctx context.Context, actions []Action) error {
	for _, a := range actions {
		if err := e.Execute(ctx, a); err != nil {
			return fmt.Errorf("action %s: %w", Describe(a), err)
		}
	}
	return nil
}

func (e *Executor) wait(ctx context.Context, a Wait) error {
	timer := time.NewTimer(a.Duration())
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) exec(ctx context.Context, a Exec) error {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	// Validation already rejected every shell metacharacter, so the
	// command splits safely on whitespace.
	argv := strings.Fields(a.Command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	var out bytes.Buffer
	limited := &limitedWriter{w: &out, limit: e.maxOutput}
	cmd.Stdout = limited
	cmd.Stderr = limited

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExecError{Command: a.Command, ExitCode: exitErr.ExitCode(), Output: out.String()}
		}
		return fmt.Errorf("spawn %q: %w", a.Command, err)
	}
	return nil
}

func (e *Executor) browse(ctx context.Context, a Browser) error {
	if e.browser == nil {
		return ErrNoBrowserDriver
	}
	return e.browser.Open(ctx, a.URL)
}

func (e *Executor) deploy(ctx context.Context, a Deploy) error {
	if e.deployer == nil {
		return ErrNoDeployer
	}
	return e.deployer.Deploy(ctx, a.Name, a.Target)
}

// limitedWriter discards bytes beyond its limit, remembering that it
// truncated.
type limitedWriter struct {
	w         *bytes.Buffer
	limit     int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.limit - lw.w.Len()
	if remaining <= 0 {
		lw.truncated = true
		return n, nil
	}
	if n > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	lw.w.Write(p)
	return n, nil
}
