// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the gate package.
var (
	// ErrPreflightDenied indicates the preflight authorizer returned DENY.
	ErrPreflightDenied = errors.New("preflight denied")

	// ErrPreflightUnresolved indicates the preflight authorizer returned
	// ASK and no resolution mechanism was configured.
	ErrPreflightUnresolved = errors.New("preflight ask unresolved")

	// ErrAlreadyRun indicates Run was called twice on the same Runner.
	ErrAlreadyRun = errors.New("gate already run")
)

// TimeoutError reports that the absolute maxMs ceiling elapsed before
// the run completed. This is the only path classified as StatusTimeout.
type TimeoutError struct {
	Max     time.Duration
	Elapsed time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gate exceeded max timeout %s (elapsed %s)", e.Max, e.Elapsed)
}
