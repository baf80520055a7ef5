// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assertion evaluates predicates over a gate run's buffered
// logs.
//
// # Description
//
// Every assertion runs against the same immutable log snapshot and
// evaluation never short-circuits: a run surfaces every broken
// expectation at once. Exactly one failure yields *FailedError naming
// it; several yield *AggregateError listing all failing names.
package assertion

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// Predicate is a custom assertion body.
type Predicate func(ctx context.Context, logs []datatypes.Log) (bool, error)

// Assertion is one named predicate over the log snapshot.
type Assertion struct {
	name string
	eval Predicate
}

// Name returns the assertion's name, used in failure errors.
func (a Assertion) Name() string { return a.name }

// Evaluate runs the predicate.
func (a Assertion) Evaluate(ctx context.Context, logs []datatypes.Log) (bool, error) {
	return a.eval(ctx, logs)
}

// NoErrors fails if any log has status "error".
func NoErrors() Assertion {
	return Assertion{
		name: "no-errors",
		eval: func(_ context.Context, logs []datatypes.Log) (bool, error) {
			for _, l := range logs {
				if l.Status == datatypes.StatusError {
					return false, nil
				}
			}
			return true, nil
		},
	}
}

// HasAction passes if any log carries the given action name.
func HasAction(name string) Assertion {
	return Assertion{
		name: fmt.Sprintf("has-action(%s)", name),
		eval: func(_ context.Context, logs []datatypes.Log) (bool, error) {
			for _, l := range logs {
				if l.Action == name {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

// HasStage passes if any log carries the given stage name.
func HasStage(name string) Assertion {
	return Assertion{
		name: fmt.Sprintf("has-stage(%s)", name),
		eval: func(_ context.Context, logs []datatypes.Log) (bool, error) {
			for _, l := range logs {
				if l.Stage == name {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

// Custom wraps an arbitrary named predicate.
func Custom(name string, p Predicate) Assertion {
	return Assertion{name: name, eval: p}
}

// FailedError reports exactly one failing assertion.
type FailedError struct {
	Name string
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	return fmt.Sprintf("assertion failed: %s", e.Name)
}

// AggregateError reports two or more failing assertions, naming all of
// them.
type AggregateError struct {
	Names []string
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	return fmt.Sprintf("%d assertions failed: %s", len(e.Names), strings.Join(e.Names, ", "))
}

// EvaluateAll runs every assertion against the snapshot without
// short-circuiting.
//
// A predicate error counts as a failure of that assertion. Returns nil
// when everything passed, *FailedError for one failure, and
// *AggregateError for several.
func EvaluateAll(ctx context.Context, logs []datatypes.Log, assertions []Assertion) error {
	var failed []string
	for _, a := range assertions {
		ok, err := a.Evaluate(ctx, logs)
		if err != nil || !ok {
			failed = append(failed, a.Name())
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return &FailedError{Name: failed[0]}
	default:
		return &AggregateError{Names: failed}
	}
}
