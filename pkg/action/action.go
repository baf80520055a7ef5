// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package action

import (
	"fmt"
	"time"
)

// Action is the closed sum of gate action variants. The concrete types
// are Wait, Exec, Browser, and Deploy; the executor dispatches on them.
type Action interface {
	// Kind returns the variant name used in logs and errors.
	Kind() string

	// Validate checks the action's parameters without side effects.
	Validate() error

	sealed()
}

// Wait pauses the gate for a bounded duration.
type Wait struct {
	Ms int64
}

// Kind implements Action.
func (Wait) Kind() string { return "wait" }

// Validate implements Action.
func (a Wait) Validate() error { return ValidateWaitMs(a.Ms) }

func (Wait) sealed() {}

// Duration returns the wait as a time.Duration.
func (a Wait) Duration() time.Duration { return time.Duration(a.Ms) * time.Millisecond }

// Exec spawns a process. The command is a plain argv string; shell
// metacharacters are rejected during validation, never interpreted.
type Exec struct {
	Command string

	// Timeout bounds the process; zero means no bound beyond the gate's
	// own max ceiling.
	Timeout time.Duration
}

// Kind implements Action.
func (Exec) Kind() string { return "exec" }

// Validate implements Action.
func (a Exec) Validate() error { return ValidateCommand(a.Command) }

func (Exec) sealed() {}

// Browser drives a browser to a URL via an external automation driver.
type Browser struct {
	URL string
}

// Kind implements Action.
func (Browser) Kind() string { return "browser" }

// Validate implements Action.
func (a Browser) Validate() error { return ValidateURL(a.URL) }

func (Browser) sealed() {}

// Deploy triggers a named deployment via an external deployer.
type Deploy struct {
	Name   string
	Target string
}

// Kind implements Action.
func (Deploy) Kind() string { return "deploy" }

// Validate implements Action.
func (a Deploy) Validate() error { return ValidateName(a.Name) }

func (Deploy) sealed() {}

// Describe returns a short human-readable label for error messages.
func Describe(a Action) string {
	switch v := a.(type) {
	case Wait:
		return fmt.Sprintf("wait(%dms)", v.Ms)
	case Exec:
		return fmt.Sprintf("exec(%s)", v.Command)
	case Browser:
		return fmt.Sprintf("browser(%s)", v.URL)
	case Deploy:
		return fmt.Sprintf("deploy(%s)", v.Name)
	default:
		return a.Kind()
	}
}
