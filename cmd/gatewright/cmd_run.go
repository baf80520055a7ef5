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

	"github.com/spf13/cobra"

	"github.com/gatewright/gatewright/pkg/claim"
	"github.com/gatewright/gatewright/pkg/gate"
	"github.com/gatewright/gatewright/pkg/logging"
	"github.com/gatewright/gatewright/pkg/preflight"
	"github.com/gatewright/gatewright/pkg/report"
)

func buildLogger() *logging.Logger {
	level := logging.LevelInfo
	switch logLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{Level: level, Service: "cli", Quiet: quiet})
}

// preflightChecker selects the delegated checker when the spec names a
// model and a key is available, heuristic otherwise.
func preflightChecker(spec *preflight.Spec, logger *logging.Logger) preflight.Checker {
	if spec == nil || spec.ModelID == "" {
		return preflight.NewHeuristic()
	}
	key := openAIAPIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		logger.Warn("preflight names a model but no API key is set, falling back to heuristic",
			"model", spec.ModelID)
		return preflight.NewHeuristic()
	}
	return preflight.NewLLMChecker(key, logger.Slog())
}

func runGate(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Close()

	specFile, err := LoadSpecFile(args[0])
	if err != nil {
		return err
	}
	spec, err := specFile.Build()
	if err != nil {
		return err
	}

	runner := gate.NewRunner(spec,
		gate.WithLogger(logger.Slog()),
		gate.WithPreflightChecker(preflightChecker(spec.Preflight, logger)),
	)
	result := runner.Run(cmd.Context())

	if jsonOutput || specFile.Report == "json" {
		out, err := report.JSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.Text(result))
	}

	if result.Status != gate.StatusSuccess {
		// Non-zero exit mirrors the verdict without cobra re-printing
		// the report as an error.
		cmd.SilenceUsage = true
		return fmt.Errorf("gate %s: %s", result.Name, result.Status)
	}
	return nil
}

func runClaim(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Close()

	claimFile, err := LoadClaimFile(args[0])
	if err != nil {
		return err
	}
	c, err := claimFile.Build(claim.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}

	result, err := c.Run(cmd.Context())
	if err != nil {
		logger.Warn("claim run error", "error", err.Error())
	}

	if jsonOutput {
		out, err := report.ClaimJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.ClaimText(result))
	}

	if result.Status != claim.StatusPass {
		cmd.SilenceUsage = true
		return fmt.Errorf("claim %s: %s", result.Name, result.Status)
	}
	return nil
}

func runPreflight(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Close()

	specFile, err := LoadSpecFile(args[0])
	if err != nil {
		return err
	}
	if specFile.Preflight == nil {
		return fmt.Errorf("spec %s declares no preflight", args[0])
	}
	spec := preflight.Spec{
		URL:     specFile.Preflight.URL,
		Intent:  specFile.Preflight.Intent,
		Action:  preflight.ActionClass(specFile.Preflight.Action),
		ModelID: specFile.Preflight.ModelID,
	}

	res, err := preflightChecker(&spec, logger).Check(cmd.Context(), spec)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "decision: %s\njustification: %s\n", res.Decision, res.Justification)
	for _, q := range res.Questions {
		fmt.Fprintf(cmd.OutOrStdout(), "question: %s\n", q)
	}
	return nil
}
