// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package preflight implements the pre-action authorization gate.
//
// # Description
//
// Before a gate runs any action, an optional preflight check classifies
// the declared intent into ALLOW, ASK, or DENY. Only ALLOW lets the run
// proceed; DENY and an unresolved ASK fail the gate before a single
// action executes. The policy is pluggable: a heuristic checker ships
// built in, and an LLM-delegated checker is selected when the spec
// names a model.
package preflight

import (
	"context"
	"fmt"
	"strings"
)

// Decision is the preflight verdict.
type Decision string

const (
	// Allow permits the gate to proceed.
	Allow Decision = "ALLOW"

	// Ask requires answers before the gate may proceed. A result with
	// decision Ask carries at least one question.
	Ask Decision = "ASK"

	// Deny blocks the gate.
	Deny Decision = "DENY"
)

// ActionClass is the declared category of the intended operation.
type ActionClass string

// Recognized action classes, in increasing order of scrutiny.
const (
	ActionRead    ActionClass = "read"
	ActionWrite   ActionClass = "write"
	ActionDelete  ActionClass = "delete"
	ActionExecute ActionClass = "execute"
)

// Spec describes the operation being authorized.
type Spec struct {
	// URL is the target of the operation.
	URL string `json:"url"`

	// Intent is the operator's plain-language statement of purpose.
	Intent string `json:"intent"`

	// Action classifies the operation.
	Action ActionClass `json:"action"`

	// ModelID selects a delegated checker; empty means heuristic.
	ModelID string `json:"modelId,omitempty"`
}

// Result is the checker's verdict.
type Result struct {
	Decision      Decision `json:"decision"`
	Justification string   `json:"justification"`
	Questions     []string `json:"questions,omitempty"`
}

// Checker is the pluggable preflight policy.
type Checker interface {
	Check(ctx context.Context, spec Spec) (Result, error)
}

// destructiveMarkers are intent fragments that force DENY under the
// heuristic policy.
var destructiveMarkers = []string{
	"rm -rf", "drop table", "drop database", "wipe", "destroy",
	"delete all", "truncate", "format disk",
}

// ambiguousMarkers are intent fragments that force ASK.
var ambiguousMarkers = []string{
	"production", "prod ", "customer data", "live ", "all users",
}

// Heuristic is the built-in rule-based checker.
//
// Destructive intents are denied outright; ambiguous intents and
// destructive action classes produce ASK with concrete questions; plain
// reads are allowed.
type Heuristic struct{}

// NewHeuristic creates the rule-based checker.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Check implements Checker.
func (h *Heuristic) Check(ctx context.Context, spec Spec) (Result, error) {
	intent := strings.ToLower(spec.Intent)

	for _, marker := range destructiveMarkers {
		if strings.Contains(intent, marker) {
			return Result{
				Decision:      Deny,
				Justification: fmt.Sprintf("intent contains destructive marker %q", marker),
			}, nil
		}
	}

	var questions []string
	for _, marker := range ambiguousMarkers {
		if strings.Contains(intent, marker) {
			questions = append(questions,
				fmt.Sprintf("The intent mentions %q. Is this targeting a non-production environment?", strings.TrimSpace(marker)))
		}
	}

	switch spec.Action {
	case ActionDelete:
		questions = append(questions, "Is the data being deleted recoverable or backed up?")
	case ActionExecute:
		questions = append(questions, "Is the executed command reviewed and scoped to the target under test?")
	case ActionWrite, ActionRead:
	default:
		return Result{
			Decision:      Deny,
			Justification: fmt.Sprintf("unknown action class %q", spec.Action),
		}, nil
	}

	if len(questions) > 0 {
		return Result{
			Decision:      Ask,
			Justification: "operation needs clarification before it can be authorized",
			Questions:     questions,
		}, nil
	}

	return Result{
		Decision:      Allow,
		Justification: fmt.Sprintf("%s operation with benign intent", spec.Action),
	}, nil
}

// ForSpec selects the checker for a spec: the LLM-delegated checker
// when ModelID is set and a client is available, otherwise heuristic.
func ForSpec(spec Spec, llm *LLMChecker) Checker {
	if spec.ModelID != "" && llm != nil {
		return llm
	}
	return NewHeuristic()
}
