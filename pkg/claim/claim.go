// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package claim implements the declarative Claim/Evidence protocol.
//
// # Description
//
// A claim asserts something about a system and proves it with collected
// evidence: prerequisites gate the run, an exercise drives the system,
// collectors record evidence entries, and an expectation judges them.
// The verdict is classified by proof strength so a claim can never
// register as passing on self-reported or fabricated evidence alone:
// weak proof is reported as inconclusive instead of being collapsed
// into a binary pass/fail.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Kind classifies an evidence entry by its independence from the
// system under test.
type Kind string

const (
	// KindOutcome is externally verified real-world effect, independent
	// of the system's own self-reported logging.
	KindOutcome Kind = "outcome"

	// KindTelemetry is the system's own emitted signal.
	KindTelemetry Kind = "telemetry"

	// KindSynthetic is fabricated or simulated evidence.
	KindSynthetic Kind = "synthetic"
)

// Strength is the qualitative confidence a claim's evidence supports.
type Strength int

const (
	// Weak is synthetic-only (or empty) evidence.
	Weak Strength = iota

	// Moderate is telemetry-backed evidence without an outcome entry.
	Moderate

	// Strong requires at least one outcome-kind entry.
	Strong
)

// String returns the strength's lowercase name.
func (s Strength) String() string {
	switch s {
	case Strong:
		return "strong"
	case Moderate:
		return "moderate"
	default:
		return "weak"
	}
}

// Entry is one recorded evidence artifact.
type Entry struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Data    any    `json:"data"`
	Summary string `json:"summary,omitempty"`
}

// Expectation is the pure verdict of a claim's expect function.
type Expectation struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Requirements is the claim's acceptance policy.
type Requirements struct {
	// MinKinds must all be present among the collected evidence kinds.
	MinKinds []Kind

	// AllowSynthetic controls whether synthetic evidence may carry the
	// verdict. Nil means true.
	AllowSynthetic *bool

	// MinProofStrength is the floor below which the verdict downgrades
	// to inconclusive. Zero value is Weak (no floor).
	MinProofStrength Strength
}

func (r Requirements) syntheticAllowed() bool {
	return r.AllowSynthetic == nil || *r.AllowSynthetic
}

// BoolPtr is a convenience for Requirements.AllowSynthetic.
func BoolPtr(v bool) *bool { return &v }

// Prerequisite is one gate on the claim's applicability.
type Prerequisite struct {
	Name  string
	Check func(ctx context.Context) (bool, error)
}

// Collector records one evidence entry. Data is the artifact; the
// returned summary is a one-line description.
type Collector struct {
	ID      string
	Kind    Kind
	Collect func(ctx context.Context) (data any, summary string, err error)
}

// Definition declares a claim.
type Definition struct {
	Name          string
	Intent        string
	Prerequisites []Prerequisite
	Exercise      func(ctx context.Context) error
	Collect       []Collector
	Expect        func(evidence []Entry) Expectation
	Requirements  Requirements
}

// Status classifies a finished claim run.
type Status string

const (
	// StatusPass means the expectation held with sufficient proof.
	StatusPass Status = "pass"

	// StatusFail means the expectation did not hold.
	StatusFail Status = "fail"

	// StatusSkip means a prerequisite was not met; nothing ran.
	StatusSkip Status = "skip"

	// StatusInconclusive means the evidence could not carry the verdict
	// either way (missing kinds, disallowed synthetic, weak proof).
	StatusInconclusive Status = "inconclusive"
)

// Result is the classified outcome of one claim run.
type Result struct {
	Name          string      `json:"name"`
	Status        Status      `json:"status"`
	Phase         string      `json:"phase"`
	ProofStrength Strength    `json:"-"`
	Strength      string      `json:"proofStrength"`
	Notes         []string    `json:"notes"`
	Evidence      []Entry     `json:"evidence"`
	Expectation   Expectation `json:"expectation"`
}

// Sentinel errors for the claim package.
var (
	// ErrNoExpect indicates a definition without an expect function.
	ErrNoExpect = errors.New("claim must define an expect function")

	// ErrNoName indicates a definition without a name.
	ErrNoName = errors.New("claim must have a name")
)

// Claim is a runnable, defined claim.
type Claim struct {
	def    Definition
	logger *slog.Logger
}

// Option customizes a Claim.
type Option func(*Claim)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Claim) { c.logger = l }
}

// Define validates the definition and returns a runnable claim.
func Define(def Definition, opts ...Option) (*Claim, error) {
	if def.Name == "" {
		return nil, ErrNoName
	}
	if def.Expect == nil {
		return nil, ErrNoExpect
	}
	c := &Claim{def: def, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the claim lifecycle: prerequisites → exercise →
// collect → expect → classify.
//
// A prerequisite returning false skips the claim without running the
// exercise or collectors. An exercise failure propagates as a run-level
// error alongside a fail-classified result. Collector failures are
// recorded as notes; the surviving evidence still feeds classification.
func (c *Claim) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Name:     c.def.Name,
		Notes:    []string{},
		Evidence: []Entry{},
	}

	// Prerequisites, in declared order.
	for _, p := range c.def.Prerequisites {
		ok, err := p.Check(ctx)
		if err != nil {
			result.Status = StatusSkip
			result.Phase = "prerequisites"
			result.Notes = append(result.Notes, fmt.Sprintf("prerequisite %s errored: %v", p.Name, err))
			result.Strength = result.ProofStrength.String()
			return result, fmt.Errorf("prerequisite %s: %w", p.Name, err)
		}
		if !ok {
			result.Status = StatusSkip
			result.Phase = "prerequisites"
			result.Notes = append(result.Notes, fmt.Sprintf("prerequisite not met: %s", p.Name))
			result.Strength = result.ProofStrength.String()
			c.logger.Info("claim skipped", slog.String("claim", c.def.Name), slog.String("prerequisite", p.Name))
			return result, nil
		}
	}

	// Exercise: the side-effecting setup that drives the system.
	if c.def.Exercise != nil {
		if err := c.def.Exercise(ctx); err != nil {
			result.Status = StatusFail
			result.Phase = "exercise"
			result.Notes = append(result.Notes, fmt.Sprintf("exercise failed: %v", err))
			result.Strength = result.ProofStrength.String()
			return result, fmt.Errorf("exercise: %w", err)
		}
	}

	// Collect: order-independent, so collectors run concurrently.
	result.Evidence, result.Notes = c.collect(ctx, result.Notes)

	// Classify.
	c.classify(result)
	result.Strength = result.ProofStrength.String()
	c.logger.Info("claim finished",
		slog.String("claim", c.def.Name),
		slog.String("status", string(result.Status)),
		slog.String("proof_strength", result.ProofStrength.String()),
	)
	return result, nil
}

func (c *Claim) collect(ctx context.Context, notes []string) ([]Entry, []string) {
	var mu sync.Mutex
	entries := make([]Entry, 0, len(c.def.Collect))

	g, gctx := errgroup.WithContext(ctx)
	for _, col := range c.def.Collect {
		g.Go(func() error {
			id := col.ID
			if id == "" {
				id = uuid.NewString()
			}
			data, summary, err := col.Collect(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				notes = append(notes, fmt.Sprintf("collector %s failed: %v", id, err))
				return nil
			}
			entries = append(entries, Entry{ID: id, Kind: col.Kind, Data: data, Summary: summary})
			return nil
		})
	}
	g.Wait() //nolint:errcheck // collectors never return errors, they note them
	return entries, notes
}

// classify applies the downgrade policy: missing required kinds,
// disallowed synthetic evidence, and insufficient proof strength each
// force inconclusive before the expectation's pass/fail is honored.
func (c *Claim) classify(result *Result) {
	achieved := map[Kind]bool{}
	hasSynthetic := false
	nonSynthetic := make([]Entry, 0, len(result.Evidence))
	for _, e := range result.Evidence {
		achieved[e.Kind] = true
		if e.Kind == KindSynthetic {
			hasSynthetic = true
		} else {
			nonSynthetic = append(nonSynthetic, e)
		}
	}

	result.ProofStrength = strengthOf(achieved)
	result.Expectation = c.def.Expect(result.Evidence)
	req := c.def.Requirements

	var missing []Kind
	for _, k := range req.MinKinds {
		if !achieved[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		result.Status = StatusInconclusive
		result.Phase = "classify"
		result.Notes = append(result.Notes, fmt.Sprintf("Missing required evidence kinds: %s", joinKinds(missing)))
		return
	}

	if !req.syntheticAllowed() && hasSynthetic {
		// Synthetic evidence was needed if the expectation cannot be
		// satisfied by the non-synthetic subset alone.
		if len(nonSynthetic) == 0 || (result.Expectation.OK && !c.def.Expect(nonSynthetic).OK) {
			result.Status = StatusInconclusive
			result.Phase = "classify"
			result.Notes = append(result.Notes, "Synthetic evidence is not allowed")
			return
		}
	}

	if result.ProofStrength < req.MinProofStrength {
		result.Status = StatusInconclusive
		result.Phase = "classify"
		result.Notes = append(result.Notes, fmt.Sprintf(
			"Proof strength %s is below required %s",
			result.ProofStrength, req.MinProofStrength))
		return
	}

	result.Phase = "expect"
	if result.Expectation.OK {
		result.Status = StatusPass
	} else {
		result.Status = StatusFail
		if result.Expectation.Message != "" {
			result.Notes = append(result.Notes, result.Expectation.Message)
		}
	}
}

// strengthOf derives proof strength from the achieved kinds: strong
// needs an outcome entry, moderate permits telemetry-only, weak is
// synthetic-only or empty.
func strengthOf(achieved map[Kind]bool) Strength {
	switch {
	case achieved[KindOutcome]:
		return Strong
	case achieved[KindTelemetry]:
		return Moderate
	default:
		return Weak
	}
}

func joinKinds(kinds []Kind) string {
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += ", "
		}
		out += string(k)
	}
	return out
}
