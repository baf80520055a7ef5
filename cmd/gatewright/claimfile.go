// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gatewright/gatewright/pkg/action"
	"github.com/gatewright/gatewright/pkg/claim"
	"github.com/gatewright/gatewright/pkg/datatypes"
	"github.com/gatewright/gatewright/pkg/observe"
)

// claimCollectorTimeout bounds each declared collector.
const claimCollectorTimeout = 30 * time.Second

// ClaimFile is the YAML declaration of one claim.
//
// Collectors are declarative: each either executes a command or polls a
// URL, and the evidence it yields carries the declared kind. The
// expectation is that every declared collector produced evidence.
type ClaimFile struct {
	Name         string               `yaml:"name" validate:"required"`
	Intent       string               `yaml:"intent"`
	Collect      []ClaimCollectorSpec `yaml:"collect" validate:"required,min=1,dive"`
	Requirements ClaimRequirements    `yaml:"requirements"`
}

// ClaimCollectorSpec declares one evidence collector. Exactly one of
// Exec or URL must be set.
type ClaimCollectorSpec struct {
	ID   string `yaml:"id" validate:"required"`
	Kind string `yaml:"kind" validate:"required,oneof=outcome telemetry synthetic"`
	Exec string `yaml:"exec"`
	URL  string `yaml:"url"`
}

// ClaimRequirements mirrors claim.Requirements for YAML.
type ClaimRequirements struct {
	MinKinds         []string `yaml:"minKinds" validate:"dive,oneof=outcome telemetry synthetic"`
	AllowSynthetic   *bool    `yaml:"allowSynthetic"`
	MinProofStrength string   `yaml:"minProofStrength" validate:"omitempty,oneof=weak moderate strong"`
}

// LoadClaimFile parses and validates a YAML claim declaration.
func LoadClaimFile(path string) (*ClaimFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claim file: %w", err)
	}
	var file ClaimFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse claim file: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid claim file: %w", err)
	}
	for _, c := range file.Collect {
		if (c.Exec == "") == (c.URL == "") {
			return nil, fmt.Errorf("collector %s: exactly one of exec or url must be set", c.ID)
		}
	}
	return &file, nil
}

// Build converts the file into a runnable claim. The expectation holds
// when every declared collector produced an evidence entry.
func (f *ClaimFile) Build(opts ...claim.Option) (*claim.Claim, error) {
	collectors := make([]claim.Collector, 0, len(f.Collect))
	for _, c := range f.Collect {
		col, err := buildCollector(c)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, col)
	}

	declared := make([]string, 0, len(f.Collect))
	for _, c := range f.Collect {
		declared = append(declared, c.ID)
	}

	def := claim.Definition{
		Name:    f.Name,
		Intent:  f.Intent,
		Collect: collectors,
		Expect: func(evidence []claim.Entry) claim.Expectation {
			seen := map[string]bool{}
			for _, e := range evidence {
				seen[e.ID] = true
			}
			var missing []string
			for _, id := range declared {
				if !seen[id] {
					missing = append(missing, id)
				}
			}
			if len(missing) > 0 {
				return claim.Expectation{
					OK:      false,
					Message: "collectors produced no evidence: " + strings.Join(missing, ", "),
				}
			}
			return claim.Expectation{OK: true, Message: "every declared collector produced evidence"}
		},
		Requirements: f.requirements(),
	}
	return claim.Define(def, opts...)
}

func (f *ClaimFile) requirements() claim.Requirements {
	req := claim.Requirements{AllowSynthetic: f.Requirements.AllowSynthetic}
	for _, k := range f.Requirements.MinKinds {
		req.MinKinds = append(req.MinKinds, claim.Kind(k))
	}
	switch f.Requirements.MinProofStrength {
	case "strong":
		req.MinProofStrength = claim.Strong
	case "moderate":
		req.MinProofStrength = claim.Moderate
	}
	return req
}

func buildCollector(c ClaimCollectorSpec) (claim.Collector, error) {
	kind := claim.Kind(c.Kind)
	if c.Exec != "" {
		if err := action.ValidateCommand(c.Exec); err != nil {
			return claim.Collector{}, fmt.Errorf("collector %s: %w", c.ID, err)
		}
		command := c.Exec
		return claim.Collector{
			ID:      c.ID,
			Kind:    kind,
			Collect: func(ctx context.Context) (any, string, error) { return execCollect(ctx, command) },
		}, nil
	}

	if err := action.ValidateURL(c.URL); err != nil {
		return claim.Collector{}, fmt.Errorf("collector %s: %w", c.ID, err)
	}
	url := c.URL
	return claim.Collector{
		ID:      c.ID,
		Kind:    kind,
		Collect: func(ctx context.Context) (any, string, error) { return httpCollect(ctx, url) },
	}, nil
}

// execCollect runs a metacharacter-free command and yields its bounded
// output as evidence. A non-zero exit is a collector failure.
func execCollect(ctx context.Context, command string) (any, string, error) {
	ctx, cancel := context.WithTimeout(ctx, claimCollectorTimeout)
	defer cancel()

	argv := strings.Fields(command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("exec %q: %w", command, err)
	}

	output := out.String()
	if len(output) > action.DefaultMaxOutput {
		output = output[:action.DefaultMaxOutput]
	}
	return map[string]any{"command": command, "output": output},
		fmt.Sprintf("command %q exited 0", argv[0]), nil
}

// httpCollect polls the URL once through an observe resource and yields
// the resulting log as evidence. A transport or status error is a
// collector failure.
func httpCollect(ctx context.Context, url string) (any, string, error) {
	resource := observe.NewResource(
		observe.NewHTTPBackend(observe.HTTPConfig{URL: url}),
		claimCollectorTimeout,
	)
	logs, err := resource.Query(ctx, datatypes.LogFilter{})
	if err != nil {
		return nil, "", err
	}
	if len(logs) == 0 {
		return nil, "", fmt.Errorf("poll %s yielded no response", url)
	}
	l := logs[0]
	if l.Status == datatypes.StatusError {
		msg := ""
		if l.Error != nil {
			msg = l.Error.Message
		}
		return nil, "", fmt.Errorf("poll %s failed: %s", url, msg)
	}
	return l, fmt.Sprintf("poll %s returned %v", url, l.Data["statusCode"]), nil
}
