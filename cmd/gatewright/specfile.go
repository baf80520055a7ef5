// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gatewright/gatewright/pkg/action"
	"github.com/gatewright/gatewright/pkg/assertion"
	"github.com/gatewright/gatewright/pkg/gate"
	"github.com/gatewright/gatewright/pkg/observe"
	"github.com/gatewright/gatewright/pkg/preflight"
)

// SpecFile is the YAML declaration of one gate.
type SpecFile struct {
	Name      string         `yaml:"name" validate:"required"`
	Preflight *PreflightSpec `yaml:"preflight"`
	Observe   ObserveSpec    `yaml:"observe" validate:"required"`
	Act       []ActionSpec   `yaml:"act" validate:"dive"`
	Assert    []AssertSpec   `yaml:"assert" validate:"dive"`
	Stop      StopSpec       `yaml:"stop" validate:"required"`
	Report    string         `yaml:"report" validate:"omitempty,oneof=text json"`
}

// PreflightSpec mirrors preflight.Spec for YAML.
type PreflightSpec struct {
	URL     string `yaml:"url" validate:"required,url"`
	Intent  string `yaml:"intent" validate:"required"`
	Action  string `yaml:"action" validate:"required,oneof=read write delete execute"`
	ModelID string `yaml:"modelId"`
}

// ObserveSpec selects and configures the observe backend.
type ObserveSpec struct {
	Type      string            `yaml:"type" validate:"required,oneof=http cli agent"`
	URL       string            `yaml:"url"`
	Method    string            `yaml:"method"`
	Headers   map[string]string `yaml:"headers"`
	Body      string            `yaml:"body"`
	TimeoutMs int64             `yaml:"timeoutMs" validate:"gte=0"`
	Stage     string            `yaml:"stage"`
}

// ActionSpec is one declared action.
type ActionSpec struct {
	Type    string `yaml:"type" validate:"required,oneof=wait exec browser deploy"`
	Ms      int64  `yaml:"ms"`
	Command string `yaml:"command"`
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Target  string `yaml:"target"`
}

// AssertSpec is one declared assertion.
type AssertSpec struct {
	Type string `yaml:"type" validate:"required,oneof=no-errors has-action has-stage"`
	Name string `yaml:"name"`
}

// StopSpec is the idle/max timer pair.
type StopSpec struct {
	IdleMs int64 `yaml:"idleMs" validate:"required,gt=0"`
	MaxMs  int64 `yaml:"maxMs" validate:"required,gt=0"`
}

// LoadSpecFile parses and validates a YAML gate spec.
func LoadSpecFile(path string) (*SpecFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}
	var spec SpecFile
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse spec file: %w", err)
	}
	if err := validator.New().Struct(&spec); err != nil {
		return nil, fmt.Errorf("invalid spec file: %w", err)
	}
	return &spec, nil
}

// Build converts the file into an engine gate.Spec. The cli and agent
// observe types attach to stdin, since the process under observation is
// an external collaborator.
func (s *SpecFile) Build() (gate.Spec, error) {
	spec := gate.Spec{
		Name: s.Name,
		Stop: gate.StopPolicy{IdleMs: s.Stop.IdleMs, MaxMs: s.Stop.MaxMs},
	}

	switch s.Observe.Type {
	case "http":
		if s.Observe.URL == "" {
			return gate.Spec{}, fmt.Errorf("observe.url is required for type http")
		}
		spec.Observe = observe.NewHTTPBackend(observe.HTTPConfig{
			URL:     s.Observe.URL,
			Method:  s.Observe.Method,
			Headers: s.Observe.Headers,
			Body:    s.Observe.Body,
			Timeout: time.Duration(s.Observe.TimeoutMs) * time.Millisecond,
		})
	case "cli":
		spec.Observe = observe.NewCLIStreamBackend(os.Stdin, s.Observe.Stage)
	case "agent":
		spec.Observe = observe.NewAgentBackend(os.Stdin, nil)
	default:
		return gate.Spec{}, fmt.Errorf("unknown observe type %q", s.Observe.Type)
	}

	if s.Preflight != nil {
		spec.Preflight = &preflight.Spec{
			URL:     s.Preflight.URL,
			Intent:  s.Preflight.Intent,
			Action:  preflight.ActionClass(s.Preflight.Action),
			ModelID: s.Preflight.ModelID,
		}
	}

	for _, a := range s.Act {
		switch a.Type {
		case "wait":
			spec.Act = append(spec.Act, action.Wait{Ms: a.Ms})
		case "exec":
			spec.Act = append(spec.Act, action.Exec{Command: a.Command})
		case "browser":
			spec.Act = append(spec.Act, action.Browser{URL: a.URL})
		case "deploy":
			spec.Act = append(spec.Act, action.Deploy{Name: a.Name, Target: a.Target})
		}
	}

	for _, a := range s.Assert {
		switch a.Type {
		case "no-errors":
			spec.Assert = append(spec.Assert, assertion.NoErrors())
		case "has-action":
			spec.Assert = append(spec.Assert, assertion.HasAction(a.Name))
		case "has-stage":
			spec.Assert = append(spec.Assert, assertion.HasStage(a.Name))
		}
	}

	return spec, nil
}
