// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gatewright/gatewright/pkg/claim"
	"github.com/gatewright/gatewright/pkg/datatypes"
	"github.com/gatewright/gatewright/pkg/gate"
)

func sampleGateResult() *gate.Result {
	return &gate.Result{
		RunID:      "run-1",
		Name:       "checkout-flow",
		Status:     gate.StatusFailed,
		DurationMs: 420,
		Error:      "assertion failed: has-action(send-email)",
		Logs: []datatypes.Log{
			{RequestID: "r1", Stage: "api", Action: "create", Status: datatypes.StatusSuccess},
			{RequestID: "r2", Stage: "api", Action: "create", Status: datatypes.StatusError,
				Error: &datatypes.LogError{Tag: "db_conflict", Message: "duplicate key"}},
		},
		Evidence: datatypes.Evidence{
			RequestIDs:  []string{"r1", "r2"},
			StagesSeen:  []string{"api"},
			ActionsSeen: []string{"create"},
			ErrorTags:   []string{"db_conflict"},
		},
	}
}

func TestText(t *testing.T) {
	out := Text(sampleGateResult())

	for _, want := range []string{
		"gate checkout-flow: failed (420ms)",
		"error: assertion failed: has-action(send-email)",
		"logs: 2",
		"requestIds: r1, r2",
		"errorTags: db_conflict",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text output missing %q:\n%s", want, out)
		}
	}
}

func TestText_OmitsEmptySets(t *testing.T) {
	out := Text(&gate.Result{Name: "empty", Status: gate.StatusSuccess, Logs: []datatypes.Log{}})
	if strings.Contains(out, "requestIds") || strings.Contains(out, "errorTags") {
		t.Errorf("Text output lists empty evidence sets:\n%s", out)
	}
}

func TestJSON_RoundTrips(t *testing.T) {
	raw, err := JSON(sampleGateResult())
	if err != nil {
		t.Fatal(err)
	}
	var back gate.Result
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back.Name != "checkout-flow" || back.Status != gate.StatusFailed {
		t.Errorf("round trip lost fields: %+v", back)
	}
}

func TestClaimText(t *testing.T) {
	out := ClaimText(&claim.Result{
		Name:          "order-persisted",
		Status:        claim.StatusInconclusive,
		Phase:         "classify",
		ProofStrength: claim.Moderate,
		Notes:         []string{"Missing required evidence kinds: outcome"},
		Evidence: []claim.Entry{
			{ID: "logs", Kind: claim.KindTelemetry, Summary: "order event logged"},
		},
	})

	for _, want := range []string{
		"claim order-persisted: inconclusive (phase classify, proof moderate)",
		"note: Missing required evidence kinds: outcome",
		"evidence logs [telemetry]: order event logged",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ClaimText output missing %q:\n%s", want, out)
		}
	}
}

func TestClaimJSON_UsesStrengthName(t *testing.T) {
	raw, err := ClaimJSON(&claim.Result{
		Name:          "x",
		Status:        claim.StatusPass,
		ProofStrength: claim.Strong,
		Strength:      claim.Strong.String(),
		Notes:         []string{},
		Evidence:      []claim.Entry{},
	})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["proofStrength"] != "strong" {
		t.Errorf("proofStrength = %v, want the name, not the ordinal", decoded["proofStrength"])
	}
}

func TestToClaimResultV1(t *testing.T) {
	t.Run("pass maps to success", func(t *testing.T) {
		out := ToClaimResultV1(&claim.Result{
			Name:   "order-persisted",
			Status: claim.StatusPass,
			Evidence: []claim.Entry{
				{ID: "db-row", Kind: claim.KindOutcome, Summary: "row present"},
				{ID: "logs", Kind: claim.KindTelemetry, Summary: "event logged"},
			},
		})

		if out.Status != gate.StatusSuccess {
			t.Fatalf("Status = %s, want success", out.Status)
		}
		if out.Error != "" {
			t.Errorf("Error = %q, want empty on pass", out.Error)
		}
		if len(out.Logs) != 2 {
			t.Fatalf("Logs = %d, want one per evidence entry", len(out.Logs))
		}
		first := out.Logs[0]
		if first.Stage != "claim" || first.Action != "db-row" || first.Status != datatypes.StatusInfo {
			t.Errorf("log = %+v, want stage claim / action db-row / status info", first)
		}
		if first.Data["kind"] != "outcome" || first.Data["summary"] != "row present" {
			t.Errorf("log data = %v", first.Data)
		}
		if len(out.Evidence.ActionsSeen) != 2 {
			t.Errorf("ActionsSeen = %v, want the entry IDs reduced", out.Evidence.ActionsSeen)
		}
	})

	t.Run("non-pass maps to failed with notes joined", func(t *testing.T) {
		for _, status := range []claim.Status{claim.StatusFail, claim.StatusSkip, claim.StatusInconclusive} {
			out := ToClaimResultV1(&claim.Result{
				Name:   "c",
				Status: status,
				Notes:  []string{"first note", "second note"},
			})
			if out.Status != gate.StatusFailed {
				t.Errorf("%s: Status = %s, want failed", status, out.Status)
			}
			if !strings.Contains(out.Error, string(status)) {
				t.Errorf("%s: Error = %q, want the claim status named", status, out.Error)
			}
			if !strings.Contains(out.Error, "first note; second note") {
				t.Errorf("%s: Error = %q, want notes joined", status, out.Error)
			}
		}
	})
}
