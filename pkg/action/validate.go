// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package action defines the gate's action variants, the parameter
// validators that guard them, and the executor that runs them.
//
// # Description
//
// Validation is the engine's primary safety boundary. Every action is
// validated before any side effect; a single rejected parameter fails
// the whole gate before the assertion phase. Command validation is
// deny-by-presence: any shell metacharacter at all rejects the string,
// rather than blocklisting known-dangerous commands.
package action

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MaxWaitMs is the upper bound of a wait action (one hour).
const MaxWaitMs = 3_600_000

// shellMeta is the full set of rejected shell metacharacters.
const shellMeta = ";$|&`(){}[]<>'\"\n\t"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidationError reports a rejected action parameter. It is detected
// before any side effect and fails the gate immediately.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidateCommand rejects any command string containing a shell
// metacharacter. The empty string is rejected too.
func ValidateCommand(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return &ValidationError{Field: "command", Value: cmd, Reason: "must not be empty"}
	}
	if i := strings.IndexAny(cmd, shellMeta); i >= 0 {
		return &ValidationError{
			Field:  "command",
			Value:  cmd,
			Reason: fmt.Sprintf("contains shell metacharacter %q", cmd[i]),
		}
	}
	return nil
}

// ValidateURL requires an absolute, parseable http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Value: raw, Reason: "not parseable"}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "url", Value: raw, Reason: "must be absolute"}
	}
	return nil
}

// ValidateName requires an identifier-safe deployment name: letters,
// digits, underscore, and dash, starting with a letter or digit.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return &ValidationError{Field: "name", Value: name, Reason: "must be identifier-safe"}
	}
	return nil
}

// ValidateWaitMs requires 0 <= ms <= MaxWaitMs.
func ValidateWaitMs(ms int64) error {
	if ms < 0 || ms > MaxWaitMs {
		return &ValidationError{
			Field:  "waitMs",
			Value:  fmt.Sprintf("%d", ms),
			Reason: fmt.Sprintf("must be between 0 and %d", MaxWaitMs),
		}
	}
	return nil
}
