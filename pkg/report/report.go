// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report renders gate and claim results. All functions are
// pure serializers over an already-sealed result.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gatewright/gatewright/pkg/claim"
	"github.com/gatewright/gatewright/pkg/datatypes"
	"github.com/gatewright/gatewright/pkg/gate"
)

// Text renders a gate result as a human-readable summary.
func Text(r *gate.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "gate %s: %s (%dms)\n", r.Name, r.Status, r.DurationMs)
	if r.Error != "" {
		fmt.Fprintf(&b, "  error: %s\n", r.Error)
	}
	fmt.Fprintf(&b, "  logs: %d\n", len(r.Logs))
	writeSet(&b, "requestIds", r.Evidence.RequestIDs)
	writeSet(&b, "stagesSeen", r.Evidence.StagesSeen)
	writeSet(&b, "actionsSeen", r.Evidence.ActionsSeen)
	writeSet(&b, "errorTags", r.Evidence.ErrorTags)
	return b.String()
}

// JSON renders a gate result as indented JSON.
func JSON(r *gate.Result) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ClaimText renders a claim result as a human-readable summary.
func ClaimText(r *claim.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "claim %s: %s (phase %s, proof %s)\n", r.Name, r.Status, r.Phase, r.ProofStrength)
	for _, n := range r.Notes {
		fmt.Fprintf(&b, "  note: %s\n", n)
	}
	for _, e := range r.Evidence {
		fmt.Fprintf(&b, "  evidence %s [%s]: %s\n", e.ID, e.Kind, e.Summary)
	}
	return b.String()
}

// ClaimJSON renders a claim result as indented JSON.
func ClaimJSON(r *claim.Result) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToClaimResultV1 maps a claim result onto the legacy gate result
// shape for consumers that predate the claim protocol.
//
// pass maps to success; every other status maps to failed with the
// notes joined into the error message. Each evidence entry becomes one
// log with stage "claim" and the entry ID as the action.
func ToClaimResultV1(r *claim.Result) *gate.Result {
	logs := make([]datatypes.Log, 0, len(r.Evidence))
	now := time.Now()
	for _, e := range r.Evidence {
		logs = append(logs, datatypes.Log{
			Timestamp: now,
			Stage:     "claim",
			Action:    e.ID,
			Status:    datatypes.StatusInfo,
			Data:      map[string]any{"kind": string(e.Kind), "summary": e.Summary},
		})
	}

	out := &gate.Result{
		Name:     r.Name,
		Logs:     logs,
		Evidence: datatypes.ReduceEvidence(logs),
	}
	if r.Status == claim.StatusPass {
		out.Status = gate.StatusSuccess
	} else {
		out.Status = gate.StatusFailed
		msg := fmt.Sprintf("claim %s: %s", r.Name, r.Status)
		if len(r.Notes) > 0 {
			msg += ": " + strings.Join(r.Notes, "; ")
		}
		out.Error = msg
	}
	return out
}

func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", name, strings.Join(values, ", "))
}
