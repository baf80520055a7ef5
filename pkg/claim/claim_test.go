// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package claim

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func passExpect(evidence []Entry) Expectation {
	return Expectation{OK: true, Message: "holds"}
}

func staticCollector(id string, kind Kind, data any) Collector {
	return Collector{
		ID:   id,
		Kind: kind,
		Collect: func(context.Context) (any, string, error) {
			return data, "static", nil
		},
	}
}

func TestDefine(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		_, err := Define(Definition{Expect: passExpect})
		if !errors.Is(err, ErrNoName) {
			t.Errorf("Define = %v, want ErrNoName", err)
		}
	})

	t.Run("requires an expect function", func(t *testing.T) {
		_, err := Define(Definition{Name: "x"})
		if !errors.Is(err, ErrNoExpect) {
			t.Errorf("Define = %v, want ErrNoExpect", err)
		}
	})
}

func TestClaim_Prerequisites(t *testing.T) {
	ctx := context.Background()

	t.Run("unmet prerequisite skips without running anything", func(t *testing.T) {
		exercised := false
		collected := false
		c, err := Define(Definition{
			Name: "skipped",
			Prerequisites: []Prerequisite{
				{Name: "server-up", Check: func(context.Context) (bool, error) { return false, nil }},
			},
			Exercise: func(context.Context) error { exercised = true; return nil },
			Collect: []Collector{{
				ID: "probe", Kind: KindTelemetry,
				Collect: func(context.Context) (any, string, error) { collected = true; return nil, "", nil },
			}},
			Expect: passExpect,
		})
		if err != nil {
			t.Fatal(err)
		}

		result, err := c.Run(ctx)
		if err != nil {
			t.Fatalf("Run = %v, want nil error on a clean skip", err)
		}
		if result.Status != StatusSkip || result.Phase != "prerequisites" {
			t.Errorf("result = (%s, %s), want (skip, prerequisites)", result.Status, result.Phase)
		}
		if exercised || collected {
			t.Error("exercise/collect ran despite the unmet prerequisite")
		}
		if len(result.Notes) == 0 || !strings.Contains(result.Notes[0], "server-up") {
			t.Errorf("Notes = %v, want the failed prerequisite named", result.Notes)
		}
	})

	t.Run("prerequisite error skips and propagates", func(t *testing.T) {
		boom := errors.New("probe exploded")
		c, _ := Define(Definition{
			Name: "errored",
			Prerequisites: []Prerequisite{
				{Name: "flaky", Check: func(context.Context) (bool, error) { return false, boom }},
			},
			Expect: passExpect,
		})
		result, err := c.Run(ctx)
		if !errors.Is(err, boom) {
			t.Errorf("Run = %v, want wrapped prerequisite error", err)
		}
		if result.Status != StatusSkip {
			t.Errorf("Status = %s, want skip", result.Status)
		}
	})

	t.Run("prerequisites run in declared order and stop at the first failure", func(t *testing.T) {
		var order []string
		prereq := func(name string, ok bool) Prerequisite {
			return Prerequisite{Name: name, Check: func(context.Context) (bool, error) {
				order = append(order, name)
				return ok, nil
			}}
		}
		c, _ := Define(Definition{
			Name:          "ordered",
			Prerequisites: []Prerequisite{prereq("first", true), prereq("second", false), prereq("third", true)},
			Expect:        passExpect,
		})
		c.Run(ctx) //nolint:errcheck
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("checked %v, want [first second]", order)
		}
	})
}

func TestClaim_ExerciseFailure(t *testing.T) {
	boom := errors.New("deploy failed")
	c, _ := Define(Definition{
		Name:     "broken-exercise",
		Exercise: func(context.Context) error { return boom },
		Expect:   passExpect,
	})
	result, err := c.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run = %v, want the exercise error", err)
	}
	if result.Status != StatusFail || result.Phase != "exercise" {
		t.Errorf("result = (%s, %s), want (fail, exercise)", result.Status, result.Phase)
	}
}

func TestClaim_Classification(t *testing.T) {
	ctx := context.Background()

	t.Run("missing required kind is inconclusive", func(t *testing.T) {
		c, _ := Define(Definition{
			Name:         "needs-outcome",
			Collect:      []Collector{staticCollector("logs", KindTelemetry, "saw it in the logs")},
			Expect:       passExpect,
			Requirements: Requirements{MinKinds: []Kind{KindOutcome}},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusInconclusive {
			t.Fatalf("Status = %s, want inconclusive even though the expectation held", result.Status)
		}
		found := false
		for _, n := range result.Notes {
			if strings.Contains(n, "outcome") {
				found = true
			}
		}
		if !found {
			t.Errorf("Notes = %v, want the missing kind named", result.Notes)
		}
	})

	t.Run("synthetic-only evidence with synthetic disallowed is inconclusive", func(t *testing.T) {
		c, _ := Define(Definition{
			Name:         "fabricated",
			Collect:      []Collector{staticCollector("fake", KindSynthetic, map[string]any{"made": "up"})},
			Expect:       passExpect,
			Requirements: Requirements{AllowSynthetic: BoolPtr(false)},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusInconclusive {
			t.Errorf("Status = %s, want inconclusive", result.Status)
		}
	})

	t.Run("disallowed synthetic is fine when real evidence carries the verdict", func(t *testing.T) {
		c, _ := Define(Definition{
			Name: "real-enough",
			Collect: []Collector{
				staticCollector("fake", KindSynthetic, "simulated"),
				staticCollector("row", KindOutcome, "row exists in the database"),
			},
			Expect: func(evidence []Entry) Expectation {
				for _, e := range evidence {
					if e.Kind == KindOutcome {
						return Expectation{OK: true}
					}
				}
				return Expectation{OK: false, Message: "no outcome entry"}
			},
			Requirements: Requirements{AllowSynthetic: BoolPtr(false)},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusPass {
			t.Errorf("Status = %s (notes %v), want pass", result.Status, result.Notes)
		}
	})

	t.Run("strength below the floor is inconclusive", func(t *testing.T) {
		c, _ := Define(Definition{
			Name:         "weak-proof",
			Collect:      []Collector{staticCollector("logs", KindTelemetry, "telemetry only")},
			Expect:       passExpect,
			Requirements: Requirements{MinProofStrength: Strong},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusInconclusive {
			t.Errorf("Status = %s, want inconclusive below the strength floor", result.Status)
		}
		if result.ProofStrength != Moderate {
			t.Errorf("ProofStrength = %s, want moderate for telemetry-only evidence", result.ProofStrength)
		}
	})

	t.Run("failing expectation is fail, not inconclusive", func(t *testing.T) {
		c, _ := Define(Definition{
			Name:    "honest-fail",
			Collect: []Collector{staticCollector("row", KindOutcome, "row missing")},
			Expect: func([]Entry) Expectation {
				return Expectation{OK: false, Message: "the row never appeared"}
			},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusFail || result.Phase != "expect" {
			t.Errorf("result = (%s, %s), want (fail, expect)", result.Status, result.Phase)
		}
		found := false
		for _, n := range result.Notes {
			if strings.Contains(n, "never appeared") {
				found = true
			}
		}
		if !found {
			t.Errorf("Notes = %v, want the expectation message", result.Notes)
		}
	})

	t.Run("pass with outcome evidence is strong", func(t *testing.T) {
		c, _ := Define(Definition{
			Name: "proven",
			Collect: []Collector{
				staticCollector("row", KindOutcome, "verified externally"),
				staticCollector("logs", KindTelemetry, "and logged"),
			},
			Expect:       passExpect,
			Requirements: Requirements{MinKinds: []Kind{KindOutcome, KindTelemetry}, MinProofStrength: Strong},
		})
		result, err := c.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != StatusPass {
			t.Fatalf("Status = %s (notes %v), want pass", result.Status, result.Notes)
		}
		if result.ProofStrength != Strong || result.Strength != "strong" {
			t.Errorf("strength = (%s, %q), want strong", result.ProofStrength, result.Strength)
		}
		if len(result.Evidence) != 2 {
			t.Errorf("Evidence = %d entries, want 2", len(result.Evidence))
		}
	})
}

func TestClaim_CollectorFailuresBecomeNotes(t *testing.T) {
	c, _ := Define(Definition{
		Name: "flaky-collector",
		Collect: []Collector{
			staticCollector("good", KindTelemetry, "fine"),
			{
				ID: "bad", Kind: KindOutcome,
				Collect: func(context.Context) (any, string, error) {
					return nil, "", errors.New("connection refused")
				},
			},
		},
		Expect: passExpect,
	})
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run = %v, collector failures must not abort the claim", err)
	}
	if len(result.Evidence) != 1 || result.Evidence[0].ID != "good" {
		t.Errorf("Evidence = %v, want only the surviving entry", result.Evidence)
	}
	found := false
	for _, n := range result.Notes {
		if strings.Contains(n, "bad") && strings.Contains(n, "connection refused") {
			found = true
		}
	}
	if !found {
		t.Errorf("Notes = %v, want the collector failure recorded", result.Notes)
	}
	// With the outcome collector down, only telemetry survives.
	if result.ProofStrength != Moderate {
		t.Errorf("ProofStrength = %s, want moderate", result.ProofStrength)
	}
}

func TestStrength_String(t *testing.T) {
	cases := []struct {
		s    Strength
		want string
	}{
		{Weak, "weak"},
		{Moderate, "moderate"},
		{Strong, "strong"},
	}
	for _, tc := range cases {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("Strength(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}
